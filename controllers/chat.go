package controllers

import (
	"encoding/base64"
	"time"

	"app/ai"
	"app/lib"
	"app/pay"
)

// Chat is the voice conversation endpoint. Access control happens in the
// middleware before requests ever reach it.
type Chat struct {
	Engine    *pay.Engine
	Speech    ai.Speech
	Completer ai.Completer
}

type chatRequest struct {
	Audio    string       `json:"audio"`
	MimeType string       `json:"mimeType"`
	Text     string       `json:"text"`
	History  []ai.Message `json:"history"`
}

// Converse runs one turn: transcribe the uploaded audio (or take the text as
// is), complete the conversation, synthesize the reply. The reply audio is
// archived to S3 when a bucket is configured, best effort.
func (ct *Chat) Converse(c *lib.Ctx) {
	if ct.Speech == nil || ct.Completer == nil {
		c.JSON(503, lib.J{"error": "ai providers not configured"})
		return
	}
	req := &chatRequest{}
	c.Bind(req)
	if req.Audio == "" && req.Text == "" {
		c.JSON(400, lib.J{"error": "missing audio or text"})
		return
	}

	var err error
	transcript := req.Text
	if req.Audio != "" {
		c.TraceSpanFn("ai.transcribe", lib.J{}, func() {
			transcript, err = ct.Speech.Transcribe(req.Audio, req.MimeType)
		})
		lib.Check(err)
	}
	if transcript == "" {
		c.JSON(200, lib.J{"transcript": "", "reply": "", "audio": ""})
		return
	}

	var reply string
	c.TraceSpanFn("ai.complete", lib.J{}, func() {
		reply, err = ct.Completer.Complete(req.History, transcript)
	})
	lib.Check(err)

	var audio string
	c.TraceSpanFn("ai.synthesize", lib.J{}, func() {
		audio, err = ct.Speech.Synthesize(reply)
	})
	lib.Check(err)

	res := lib.J{
		"transcript": transcript,
		"reply":      reply,
		"audio":      audio,
		"mimeType":   "audio/mpeg",
	}
	if lib.Env("S3_BUCKET", "") != "" {
		turnID := lib.NewID()
		res["audioUrl"] = lib.AWSS3URL(turnID)
		go ct.archive(c, turnID, transcript, reply, audio)
	}
	c.JSON(200, res)
}

func (ct *Chat) archive(c *lib.Ctx, turnID, transcript, reply, audio string) {
	defer func() { recover() }()
	id, _ := c.Data["sessionId"].(string)
	body := time.Now().UTC().Format(time.RFC3339) + "\nsession: " + id + "\nuser: " + transcript + "\nassistant: " + reply + "\n"
	if err := c.Storage.SetErr(turnID+"-text", []byte(body)); err != nil {
		lib.LogWarning("chat archive failed", lib.J{"key": turnID, "error": err.Error()})
		return
	}
	bs, err := base64.StdEncoding.DecodeString(audio)
	if err == nil {
		err = c.Storage.SetErr(turnID, bs)
	}
	if err != nil {
		lib.LogWarning("chat archive failed", lib.J{"key": turnID, "error": err.Error()})
	}
}

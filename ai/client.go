package ai

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"app/lib"
)

var defaultSystemPrompt = "You are Samantha, a warm and curious voice companion. " +
	"Keep replies short and conversational, you are speaking out loud."

var httpClient = &http.Client{Timeout: 60 * time.Second}

// client talks to an OpenAI-compatible inference API. Chat goes through the
// shared JSON client; transcription and synthesis need multipart and binary
// bodies so they use net/http directly.
type client struct {
	key        string
	base       string
	chatModel  string
	sttModel   string
	ttsModel   string
	voice      string
	systemRole string
}

func (c *client) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.key}
}

func (c *client) Complete(history []Message, user string) (string, error) {
	messages := []Message{{Role: "system", Content: c.systemRole}}
	messages = append(messages, history...)
	messages = append(messages, Message{Role: "user", Content: user})
	response := struct {
		Choices []struct {
			Message Message `json:"message"`
		} `json:"choices"`
	}{}
	err := lib.PostJSONErr(c.base+"/chat/completions", &response, c.headers(), lib.J{
		"model":      c.chatModel,
		"messages":   messages,
		"max_tokens": lib.EnvInt("AI_MAX_TOKENS", 300),
	})
	if err != nil {
		return "", err
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("ai: completion returned no choices")
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

func (c *client) Transcribe(audioB64, mimeType string) (string, error) {
	audio, err := base64.StdEncoding.DecodeString(audioB64)
	if err != nil {
		return "", fmt.Errorf("ai: decoding audio: %v", err)
	}
	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)
	part, err := form.CreateFormFile("file", "audio."+extensionFor(mimeType))
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audio); err != nil {
		return "", err
	}
	if err := form.WriteField("model", c.sttModel); err != nil {
		return "", err
	}
	if err := form.Close(); err != nil {
		return "", err
	}
	req, err := http.NewRequest("POST", c.base+"/audio/transcriptions", body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", form.FormDataContentType())
	bs, err := c.do(req)
	if err != nil {
		return "", err
	}
	response := struct {
		Text string `json:"text"`
	}{}
	if err := json.Unmarshal(bs, &response); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Text), nil
}

func (c *client) Synthesize(text string) (string, error) {
	bs, err := json.Marshal(lib.J{
		"model": c.ttsModel,
		"voice": c.voice,
		"input": text,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequest("POST", c.base+"/audio/speech", bytes.NewReader(bs))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", "application/json")
	audio, err := c.do(req)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(audio), nil
}

func (c *client) do(req *http.Request) ([]byte, error) {
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf(`ai: fetching "%s": %v`, req.URL.Path, err)
	}
	defer resp.Body.Close()
	bs, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf(`ai: fetching "%s": got status code %d (%s)`,
			req.URL.Path, resp.StatusCode, string(bs))
	}
	return bs, nil
}

func extensionFor(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "wav"):
		return "wav"
	case strings.Contains(mimeType, "mp4"):
		return "mp4"
	case strings.Contains(mimeType, "ogg"):
		return "ogg"
	default:
		return "webm"
	}
}

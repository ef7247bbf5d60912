package ai

import (
	"errors"

	"app/lib"
)

// Speech converts audio to text and back. Audio travels as base64 in JSON,
// the mime type rides along so the provider can pick a decoder.
type Speech interface {
	Transcribe(audioB64, mimeType string) (string, error)
	Synthesize(text string) (audioB64 string, err error)
}

// Completer turns a transcript plus the running conversation into the
// assistant's next reply.
type Completer interface {
	Complete(history []Message, user string) (string, error)
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// New builds the production Speech and Completer from the environment.
func New() (Speech, Completer, error) {
	key := lib.Env("AI_API_KEY", "")
	if key == "" {
		return nil, nil, errors.New("ai: AI_API_KEY not set")
	}
	c := &client{
		key:        key,
		base:       lib.Env("AI_API_URL", "https://api.openai.com/v1"),
		chatModel:  lib.Env("AI_CHAT_MODEL", "gpt-4o-mini"),
		sttModel:   lib.Env("AI_STT_MODEL", "whisper-1"),
		ttsModel:   lib.Env("AI_TTS_MODEL", "tts-1"),
		voice:      lib.Env("AI_TTS_VOICE", "nova"),
		systemRole: lib.Env("AI_SYSTEM_PROMPT", defaultSystemPrompt),
	}
	return c, c, nil
}

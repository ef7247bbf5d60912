package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpeechClientHasBoundedTimeout(t *testing.T) {
	// A hung speech provider must not pin request handlers forever.
	assert.NotZero(t, httpClient.Timeout)
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, "webm", extensionFor("audio/webm;codecs=opus"))
	assert.Equal(t, "wav", extensionFor("audio/wav"))
	assert.Equal(t, "mp4", extensionFor("audio/mp4"))
	assert.Equal(t, "ogg", extensionFor("audio/ogg"))
	assert.Equal(t, "webm", extensionFor(""))
}

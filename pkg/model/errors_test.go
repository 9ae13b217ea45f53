package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "configuration error: api key is required",
		(&ConfigurationError{Field: "api key"}).Error())
	assert.Equal(t, "upstream error: status 429: quota exceeded",
		(&UpstreamError{StatusCode: 429, Body: "quota exceeded"}).Error())
	assert.Equal(t, "parse error: no JSON array found in response",
		(&ParseError{Detail: "no JSON array found in response"}).Error())
	assert.Equal(t, "model gemini-pro does not support image generation: text only",
		(&ModalityUnsupportedError{Model: "gemini-pro", Detail: "text only"}).Error())
}

func TestIsConfiguration(t *testing.T) {
	assert.True(t, IsConfiguration(&ConfigurationError{Field: "model"}))
	assert.True(t, IsConfiguration(fmt.Errorf("wrapped: %w", &ConfigurationError{Field: "model"})))
	assert.False(t, IsConfiguration(errors.New("configuration error: model is required")))
	assert.False(t, IsConfiguration(nil))
}

func TestIsParse(t *testing.T) {
	assert.True(t, IsParse(&ParseError{Detail: "bad"}))
	assert.True(t, IsParse(fmt.Errorf("apply: %w", &ParseError{Detail: "bad"})))
	assert.False(t, IsParse(&UpstreamError{StatusCode: 500}))
	assert.False(t, IsParse(nil))
}

func TestIsModalityUnsupported(t *testing.T) {
	assert.True(t, IsModalityUnsupported(&ModalityUnsupportedError{Model: "m"}))
	assert.True(t, IsModalityUnsupported(fmt.Errorf("call: %w", &ModalityUnsupportedError{Model: "m"})))

	// Detected by upstream wording too, case-insensitively.
	assert.True(t, IsModalityUnsupported(&UpstreamError{StatusCode: 400, Body: "modality IMAGE is Unsupported"}))
	assert.True(t, IsModalityUnsupported(errors.New("image output is not supported for this model")))

	assert.False(t, IsModalityUnsupported(&UpstreamError{StatusCode: 500, Body: "internal"}))
	assert.False(t, IsModalityUnsupported(nil))
}

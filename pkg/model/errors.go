package model

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError reports a missing credential, model or prompt. It is
// surfaced immediately and never retried.
type ConfigurationError struct {
	Field string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s is required", e.Field)
}

// UpstreamError reports a non-success response from the generation
// service, carrying the upstream status and body.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: status %d: %s", e.StatusCode, e.Body)
}

// ParseError reports a malformed expected-JSON payload in free-form model
// text. It never escapes the parser boundary as a panic; callers may keep
// whatever was parsed, including an empty result.
type ParseError struct {
	Detail string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %s", e.Detail)
}

// ModalityUnsupportedError reports an image generation attempt against a
// model lacking that capability.
type ModalityUnsupportedError struct {
	Model  string
	Detail string
}

func (e *ModalityUnsupportedError) Error() string {
	return fmt.Sprintf("model %s does not support image generation: %s", e.Model, e.Detail)
}

// IsConfiguration reports whether err is a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsParse reports whether err is a ParseError.
func IsParse(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsModalityUnsupported reports whether err signals a missing generation
// modality, either as a typed error or by the upstream message wording.
func IsModalityUnsupported(err error) bool {
	if err == nil {
		return false
	}

	var me *ModalityUnsupportedError
	if errors.As(err, &me) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unsupported") || strings.Contains(msg, "not supported")
}

// Package generation exposes the two capability calls of the workflow,
// text and image generation, plus the model catalog. Every upstream call
// is routed through the shared request scheduler; the client itself holds
// no state beyond its collaborators.
package generation

import (
	"context"
	"fmt"

	"github.com/pressline/writeflow-sdk/pkg/model"
	"github.com/pressline/writeflow-sdk/pkg/scheduler"
)

// PlaceholderImageRef is returned when the model produced no image at all.
const PlaceholderImageRef = "https://placehold.co/600x400?text=No+Image"

// Client maps workflow calls onto a model provider.
type Client struct {
	provider model.Provider
	sched    *scheduler.Scheduler
}

// NewClient creates a client routing all calls through sched.
func NewClient(provider model.Provider, sched *scheduler.Scheduler) *Client {
	return &Client{
		provider: provider,
		sched:    sched,
	}
}

// GenerateText performs one text generation call. It fails with a
// ConfigurationError before any network attempt if credential, model or
// prompt is missing. An upstream failure propagates unchanged.
func (c *Client) GenerateText(ctx context.Context, credential, modelID, prompt string) (string, error) {
	if err := requireCall(credential, modelID, prompt); err != nil {
		return "", err
	}

	m, err := c.provider.GetModel(modelID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve model: %w", err)
	}

	value, err := c.sched.Schedule(ctx, func(ctx context.Context) (interface{}, error) {
		return m.GenerateContent(ctx, &model.Request{
			APIKey: credential,
			Prompt: prompt,
		})
	})
	if err != nil {
		return "", err
	}

	return value.(*model.Response).Text, nil
}

// GenerateImage performs one image generation call, appending the
// optional style directive to the prompt. When the response carries no
// image it falls back to any textual fragment, then to the fixed
// placeholder reference. A model without the image modality yields a
// ModalityUnsupportedError so callers can render a distinct message.
func (c *Client) GenerateImage(ctx context.Context, credential, modelID, prompt, style string) (string, error) {
	if err := requireCall(credential, modelID, prompt); err != nil {
		return "", err
	}

	full := prompt
	if style != "" {
		full = prompt + "\n\nStyle: " + style
	}

	m, err := c.provider.GetModel(modelID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve model: %w", err)
	}

	value, err := c.sched.Schedule(ctx, func(ctx context.Context) (interface{}, error) {
		return m.GenerateContent(ctx, &model.Request{
			APIKey:    credential,
			Prompt:    full,
			WantImage: true,
		})
	})
	if err != nil {
		if model.IsModalityUnsupported(err) {
			return "", &model.ModalityUnsupportedError{Model: modelID, Detail: err.Error()}
		}
		return "", err
	}

	response := value.(*model.Response)
	switch {
	case response.ImageRef != "":
		return response.ImageRef, nil
	case response.Text != "":
		return response.Text, nil
	default:
		return PlaceholderImageRef, nil
	}
}

// ListModels fetches the upstream catalog filtered to text-capable
// entries.
func (c *Client) ListModels(ctx context.Context, credential string) ([]model.ModelInfo, error) {
	if credential == "" {
		return nil, &model.ConfigurationError{Field: "api key"}
	}

	value, err := c.sched.Schedule(ctx, func(ctx context.Context) (interface{}, error) {
		return c.provider.ListModels(ctx, credential)
	})
	if err != nil {
		return nil, err
	}

	return model.TextCapable(value.([]model.ModelInfo)), nil
}

func requireCall(credential, modelID, prompt string) error {
	if credential == "" {
		return &model.ConfigurationError{Field: "api key"}
	}
	if modelID == "" {
		return &model.ConfigurationError{Field: "model"}
	}
	if prompt == "" {
		return &model.ConfigurationError{Field: "prompt"}
	}
	return nil
}

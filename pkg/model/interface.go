package model

import (
	"context"
)

// Request represents a generation request to a model. The API key travels
// with the request because credentials are entered interactively and held
// only in memory, never on the provider.
type Request struct {
	APIKey    string
	Prompt    string
	WantImage bool
}

// Response represents a response from a model
type Response struct {
	// Text is the first textual content fragment, or "" if the
	// response contained none
	Text string

	// ImageRef is the first image-bearing fragment, as a reference URL
	// or an embeddable data URL; "" if the response contained none
	ImageRef string

	// Usage is token usage information, if reported
	Usage *Usage
}

// Usage represents token usage information
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ModelInfo describes one entry of the upstream model catalog
type ModelInfo struct {
	ID           string
	DisplayName  string
	Capabilities []string
}

// CapabilityTextGeneration is the catalog capability advertising text
// generation support.
const CapabilityTextGeneration = "generateContent"

// Model defines the interface for a single generation model
type Model interface {
	// GenerateContent performs one generation call
	GenerateContent(ctx context.Context, request *Request) (*Response, error)
}

// Provider is responsible for looking up Models and the model catalog
type Provider interface {
	// GetModel returns a model by name
	GetModel(modelName string) (Model, error)

	// ListModels returns the upstream model catalog
	ListModels(ctx context.Context, apiKey string) ([]ModelInfo, error)
}

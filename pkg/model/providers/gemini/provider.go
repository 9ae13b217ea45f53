package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pressline/writeflow-sdk/pkg/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// DefaultBaseURL is the default base URL for the generative language API
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

// Provider implements model.Provider for the Gemini generateContent API.
// Credentials are not held here; every request carries its own API key.
type Provider struct {
	// Configuration
	BaseURL    string
	HTTPClient *http.Client

	// Model configuration
	DefaultModel string

	// Internal state
	mu sync.RWMutex
}

// NewProvider creates a new Provider with default settings
func NewProvider() *Provider {
	return &Provider{
		BaseURL: DefaultBaseURL,
		HTTPClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// WithHTTPClient sets the HTTP client for the provider
func (p *Provider) WithHTTPClient(client *http.Client) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.HTTPClient = client
	return p
}

// WithDefaultModel sets the default model for the provider
func (p *Provider) WithDefaultModel(modelName string) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.DefaultModel = modelName
	return p
}

// SetBaseURL sets the base URL for the provider
func (p *Provider) SetBaseURL(baseURL string) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.BaseURL = strings.TrimSuffix(baseURL, "/")
	return p
}

// GetModel returns a model by name
func (p *Provider) GetModel(name string) (model.Model, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	// If no name is provided, use the default model
	if name == "" {
		if p.DefaultModel == "" {
			return nil, fmt.Errorf("no model name provided and no default model set")
		}
		name = p.DefaultModel
	}

	return &Model{
		ModelName: name,
		Provider:  p,
	}, nil
}

// modelCatalogResponse is the wire shape of the models endpoint
type modelCatalogResponse struct {
	Models []catalogEntry `json:"models"`
}

type catalogEntry struct {
	Name                       string   `json:"name"`
	DisplayName                string   `json:"displayName"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
}

// ListModels fetches the upstream model catalog.
func (p *Provider) ListModels(ctx context.Context, apiKey string) ([]model.ModelInfo, error) {
	if apiKey == "" {
		return nil, &model.ConfigurationError{Field: "api key"}
	}

	p.mu.RLock()
	baseURL := p.BaseURL
	client := p.HTTPClient
	p.mu.RUnlock()

	endpoint := fmt.Sprintf("%s/models?key=%s", baseURL, url.QueryEscape(apiKey))
	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpResponse, err := client.Do(httpRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer httpResponse.Body.Close()

	if httpResponse.StatusCode != http.StatusOK {
		return nil, handleError(httpResponse)
	}

	responseBody, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var catalog modelCatalogResponse
	if err := json.Unmarshal(responseBody, &catalog); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	infos := make([]model.ModelInfo, 0, len(catalog.Models))
	for _, entry := range catalog.Models {
		id := strings.TrimPrefix(entry.Name, "models/")
		display := entry.DisplayName
		if display == "" {
			display = displayNameFromID(id)
		}
		infos = append(infos, model.ModelInfo{
			ID:           id,
			DisplayName:  display,
			Capabilities: entry.SupportedGenerationMethods,
		})
	}

	return infos, nil
}

// displayNameFromID derives a human-readable name from a model ID when
// the catalog entry carries none.
func displayNameFromID(id string) string {
	c := cases.Title(language.Und)
	return c.String(strings.ReplaceAll(id, "-", " "))
}

package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/pressline/writeflow-sdk/pkg/model"
)

// Model implements the model.Model interface for Gemini
type Model struct {
	// Configuration
	ModelName string
	Provider  *Provider
}

// generateRequest represents a request to the generateContent API
type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
	FileData   *fileData   `json:"fileData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type fileData struct {
	MIMEType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

// generateResponse represents a response from the generateContent API
type generateResponse struct {
	Candidates    []candidate    `json:"candidates"`
	UsageMetadata *usageMetadata `json:"usageMetadata,omitempty"`
}

type candidate struct {
	Content content `json:"content"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// errorResponse represents an error response from the API
type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// GenerateContent performs one generation call against the messages API
func (m *Model) GenerateContent(ctx context.Context, request *model.Request) (*model.Response, error) {
	if request.APIKey == "" {
		return nil, &model.ConfigurationError{Field: "api key"}
	}
	if request.Prompt == "" {
		return nil, &model.ConfigurationError{Field: "prompt"}
	}

	geminiRequest := &generateRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: request.Prompt}}},
		},
	}
	if request.WantImage {
		geminiRequest.GenerationConfig = &generationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		}
	}

	requestBody, err := json.Marshal(geminiRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	m.Provider.mu.RLock()
	baseURL := m.Provider.BaseURL
	client := m.Provider.HTTPClient
	m.Provider.mu.RUnlock()

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		baseURL, m.ModelName, url.QueryEscape(request.APIKey))
	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")

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

	var geminiResponse generateResponse
	if err := json.Unmarshal(responseBody, &geminiResponse); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return parseResponse(&geminiResponse), nil
}

// parseResponse maps a generateContent response to a model.Response,
// extracting the first textual and first image-bearing fragments.
func parseResponse(geminiResponse *generateResponse) *model.Response {
	response := &model.Response{}

	if geminiResponse.UsageMetadata != nil {
		response.Usage = &model.Usage{
			PromptTokens:     geminiResponse.UsageMetadata.PromptTokenCount,
			CompletionTokens: geminiResponse.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      geminiResponse.UsageMetadata.TotalTokenCount,
		}
	}

	for _, cand := range geminiResponse.Candidates {
		for _, p := range cand.Content.Parts {
			if response.Text == "" && p.Text != "" {
				response.Text = p.Text
			}
			if response.ImageRef == "" && p.InlineData != nil && p.InlineData.Data != "" {
				response.ImageRef = fmt.Sprintf("data:%s;base64,%s", p.InlineData.MIMEType, p.InlineData.Data)
			}
			if response.ImageRef == "" && p.FileData != nil && p.FileData.FileURI != "" {
				response.ImageRef = p.FileData.FileURI
			}
		}
	}

	return response
}

// handleError converts a non-success HTTP response into an UpstreamError
// carrying the upstream status and message.
func handleError(response *http.Response) error {
	body, err := io.ReadAll(response.Body)
	if err != nil {
		return &model.UpstreamError{
			StatusCode: response.StatusCode,
			Body:       http.StatusText(response.StatusCode),
		}
	}

	var upstream errorResponse
	if err := json.Unmarshal(body, &upstream); err == nil && upstream.Error.Message != "" {
		return &model.UpstreamError{
			StatusCode: response.StatusCode,
			Body:       upstream.Error.Message,
		}
	}

	return &model.UpstreamError{
		StatusCode: response.StatusCode,
		Body:       string(body),
	}
}

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultGeminiURL = "https://generativelanguage.googleapis.com/v1beta/models/gemini-pro:generateContent"

// GenerationConfig carries the fixed sampling parameters sent with every
// completion request
type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	CandidateCount  int     `json:"candidateCount"`
}

// SafetySetting maps a harm category to a blocking threshold
type SafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// DefaultGenerationConfig returns the sampling parameters used for persona chat
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Temperature:     0.9,
		TopK:            40,
		TopP:            0.95,
		MaxOutputTokens: 1024,
		CandidateCount:  1,
	}
}

// DefaultSafetySettings blocks medium-and-above content across all four harm categories
func DefaultSafetySettings() []SafetySetting {
	const threshold = "BLOCK_MEDIUM_AND_ABOVE"
	return []SafetySetting{
		{Category: "HARM_CATEGORY_HARASSMENT", Threshold: threshold},
		{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: threshold},
		{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: threshold},
		{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: threshold},
	}
}

// GeminiClient wraps one outbound call to the generative-language completion
// endpoint. Stateless; retry policy belongs to the caller.
type GeminiClient struct {
	apiKey           string
	baseURL          string
	httpClient       *http.Client
	generationConfig GenerationConfig
	safetySettings   []SafetySetting
}

// GeminiOption customizes a GeminiClient
type GeminiOption func(*GeminiClient)

// WithBaseURL overrides the completion endpoint
func WithBaseURL(url string) GeminiOption {
	return func(c *GeminiClient) { c.baseURL = url }
}

// WithHTTPClient overrides the transport
func WithHTTPClient(hc *http.Client) GeminiOption {
	return func(c *GeminiClient) { c.httpClient = hc }
}

// WithGenerationConfig overrides the sampling parameters
func WithGenerationConfig(gc GenerationConfig) GeminiOption {
	return func(c *GeminiClient) { c.generationConfig = gc }
}

// NewGeminiClient creates a completion client
func NewGeminiClient(apiKey string, opts ...GeminiOption) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, &ConfigurationError{Reason: "missing Gemini API key"}
	}

	client := &GeminiClient{
		apiKey:           apiKey,
		baseURL:          defaultGeminiURL,
		httpClient:       &http.Client{Timeout: 30 * time.Second},
		generationConfig: DefaultGenerationConfig(),
		safetySettings:   DefaultSafetySettings(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
	SafetySettings   []SafetySetting  `json:"safetySettings"`
}

// GeminiResponse is the success shape of the completion endpoint
type GeminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type geminiErrorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Send issues a single completion request carrying the persona context and
// the user message as ordered conversational turns, and extracts the first
// candidate's first text part.
func (c *GeminiClient) Send(ctx context.Context, message, systemContext string) (string, error) {
	requestBody := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: systemContext}}},
			{Role: "user", Parts: []geminiPart{{Text: message}}},
		},
		GenerationConfig: c.generationConfig,
		SafetySettings:   c.safetySettings,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("error marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s?key=%s", c.baseURL, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error making API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errBody geminiErrorBody
		_ = json.Unmarshal(body, &errBody)
		return "", &UpstreamError{
			Service: "gemini",
			Status:  resp.StatusCode,
			Message: errBody.Error.Message,
		}
	}

	var geminiResp GeminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", &MalformedResponse{Service: "gemini", Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	return ExtractText(&geminiResp)
}

// ExtractText pulls the first candidate's first text part out of a
// completion response, or reports a MalformedResponse
func ExtractText(resp *GeminiResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", &MalformedResponse{Service: "gemini", Reason: "no candidates"}
	}
	parts := resp.Candidates[0].Content.Parts
	if len(parts) == 0 {
		return "", &MalformedResponse{Service: "gemini", Reason: "candidate has no parts"}
	}
	if parts[0].Text == "" {
		return "", &MalformedResponse{Service: "gemini", Reason: "candidate part has no text"}
	}
	return parts[0].Text, nil
}

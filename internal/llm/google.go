package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const googleAPIBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// GoogleProvider talks to the Gemini generateContent API over plain HTTP.
type GoogleProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewGoogleProvider creates a new Google Gemini provider.
func NewGoogleProvider(apiKey string, model string) *GoogleProvider {
	return &GoogleProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: googleAPIBaseURL,
		client:  &http.Client{},
	}
}

func (p *GoogleProvider) Name() string {
	return "google"
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature"`
}

// geminiResponse is both the unary response and one streamed chunk.
type geminiResponse struct {
	Candidates    []geminiCandidate    `json:"candidates"`
	UsageMetadata *geminiUsageMetadata `json:"usageMetadata"`
	Error         *geminiError         `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content      *geminiContent `json:"content"`
	FinishReason string         `json:"finishReason"`
}

type geminiUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (e *geminiError) err() error {
	return fmt.Errorf("gemini API error (%s): %s", e.Status, e.Message)
}

// text returns the first candidate's text.
func (r *geminiResponse) text() string {
	if len(r.Candidates) == 0 || r.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range r.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String()
}

// merge folds the metadata of a response or stream chunk into resp.
func (r *geminiResponse) merge(resp *CompletionResponse) {
	if len(r.Candidates) > 0 && r.Candidates[0].FinishReason != "" {
		resp.FinishReason = r.Candidates[0].FinishReason
	}
	if r.UsageMetadata != nil {
		resp.InputTokens = r.UsageMetadata.PromptTokenCount
		resp.OutputTokens = r.UsageMetadata.CandidatesTokenCount
	}
}

func (p *GoogleProvider) request(req CompletionRequest) (string, geminiRequest) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	var systemParts []geminiPart
	var contents []geminiContent
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			systemParts = append(systemParts, geminiPart{Text: msg.Content})
		case RoleUser:
			contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: msg.Content}}})
		case RoleAssistant:
			contents = append(contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: msg.Content}}})
		}
	}
	// The API requires at least one content entry.
	if len(contents) == 0 {
		contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: ""}}})
	}

	apiReq := geminiRequest{
		Contents: contents,
		GenerationConfig: &geminiGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		},
	}
	if len(systemParts) > 0 {
		apiReq.SystemInstruction = &geminiContent{Parts: systemParts}
	}
	return model, apiReq
}

// post calls method (generateContent or streamGenerateContent) and returns
// the response once its status is 200.
func (p *GoogleProvider) post(ctx context.Context, model, method string, apiReq geminiRequest, query url.Values) (*http.Response, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gemini request: %w", err)
	}

	query.Set("key", p.apiKey)
	endpoint := fmt.Sprintf("%s/%s:%s?%s", p.baseURL, model, method, query.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	if httpResp.StatusCode == http.StatusOK {
		return httpResp, nil
	}

	defer httpResp.Body.Close()
	respBody, _ := io.ReadAll(httpResp.Body)
	var apiResp geminiResponse
	if json.Unmarshal(respBody, &apiResp) == nil && apiResp.Error != nil {
		return nil, apiResp.Error.err()
	}
	return nil, fmt.Errorf("gemini returned status %d: %s", httpResp.StatusCode, string(respBody))
}

func (p *GoogleProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model, apiReq := p.request(req)
	httpResp, err := p.post(ctx, model, "generateContent", apiReq, url.Values{})
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	var apiResp geminiResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode gemini response: %w", err)
	}
	if apiResp.Error != nil {
		return nil, apiResp.Error.err()
	}

	resp := &CompletionResponse{Content: apiResp.text(), Model: model}
	apiResp.merge(resp)
	return resp, nil
}

// CompleteStream uses streamGenerateContent with server-sent events and
// forwards the text of each chunk.
func (p *GoogleProvider) CompleteStream(ctx context.Context, req CompletionRequest, onDelta DeltaFunc) (*CompletionResponse, error) {
	model, apiReq := p.request(req)
	httpResp, err := p.post(ctx, model, "streamGenerateContent", apiReq, url.Values{"alt": {"sse"}})
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	resp := &CompletionResponse{Model: model}
	var content strings.Builder

	err = readSSE(httpResp.Body, func(data []byte) error {
		var chunk geminiResponse
		if err := json.Unmarshal(data, &chunk); err != nil {
			return fmt.Errorf("failed to decode gemini stream chunk: %w", err)
		}
		if chunk.Error != nil {
			return chunk.Error.err()
		}
		chunk.merge(resp)
		text := chunk.text()
		if text == "" {
			return nil
		}
		content.WriteString(text)
		return onDelta(text)
	})
	if err != nil {
		return nil, err
	}

	resp.Content = content.String()
	return resp, nil
}

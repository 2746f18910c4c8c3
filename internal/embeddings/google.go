package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const defaultGoogleBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GoogleModel represents a supported Google embedding model.
type GoogleModel string

const (
	ModelGeminiEmbedding001 GoogleModel = "gemini-embedding-001"
	ModelTextEmbedding004   GoogleModel = "text-embedding-004"
)

func (m GoogleModel) dimensions() int {
	switch m {
	case ModelTextEmbedding004:
		return 768
	default:
		return 3072
	}
}

// GoogleEmbedder embeds text with the Gemini batchEmbedContents endpoint.
type GoogleEmbedder struct {
	apiKey     string
	model      GoogleModel
	dims       int // outputDimensionality; 0 keeps the model's native size
	baseURL    string
	httpClient *http.Client
}

// NewGoogleEmbedder creates a new Google embedder.
func NewGoogleEmbedder(apiKey string, model GoogleModel) *GoogleEmbedder {
	return &GoogleEmbedder{
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultGoogleBaseURL,
		httpClient: &http.Client{},
	}
}

// WithDimensions requests vectors of n dimensions. n <= 0, or the model's
// native size, leaves the output unchanged.
func (e *GoogleEmbedder) WithDimensions(n int) *GoogleEmbedder {
	if n > 0 && n != e.model.dimensions() {
		e.dims = n
	}
	return e
}

func (e *GoogleEmbedder) Name() string {
	return sizedName("google/"+string(e.model), e.dims)
}

func (e *GoogleEmbedder) Dimensions() int {
	if e.dims > 0 {
		return e.dims
	}
	return e.model.dimensions()
}

type googleBatchRequest struct {
	Requests []googleEmbedRequest `json:"requests"`
}

type googleEmbedRequest struct {
	Model                string        `json:"model"`
	Content              googleContent `json:"content"`
	OutputDimensionality int           `json:"outputDimensionality,omitempty"`
}

type googleContent struct {
	Parts []googlePart `json:"parts"`
}

type googlePart struct {
	Text string `json:"text"`
}

type googleEmbedding struct {
	Values []float32 `json:"values"`
}

type googleBatchResponse struct {
	Embeddings []googleEmbedding `json:"embeddings"`
	Error      *struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

func (e *GoogleEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return inBatches(ctx, texts, maxBatchSize, e.embedBatch)
}

func (e *GoogleEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	model := "models/" + string(e.model)
	reqBody := googleBatchRequest{Requests: make([]googleEmbedRequest, len(texts))}
	for i, text := range texts {
		reqBody.Requests[i] = googleEmbedRequest{
			Model:                model,
			Content:              googleContent{Parts: []googlePart{{Text: text}}},
			OutputDimensionality: e.dims,
		}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal google embed request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:batchEmbedContents?key=%s", e.baseURL, model, e.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create google embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google embed request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read google embed response: %w", err)
	}

	var result googleBatchResponse
	decodeErr := json.Unmarshal(respBody, &result)
	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && result.Error != nil {
			return nil, fmt.Errorf("google embed API error (%s): %s", result.Error.Status, result.Error.Message)
		}
		return nil, fmt.Errorf("google embed API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode google embed response: %w", decodeErr)
	}

	out := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}

package embeddings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type stubEmbedder struct {
	dims int
	out  [][]float32
	err  error
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.out != nil {
		return s.out, nil
	}
	vecs := make([][]float32, len(texts))
	for i := range texts {
		vecs[i] = make([]float32, s.dims)
		vecs[i][0] = float32(i + 1)
	}
	return vecs, nil
}

func (s *stubEmbedder) Dimensions() int { return s.dims }
func (s *stubEmbedder) Name() string    { return "stub" }

func TestChecked_WrapsBackendFailure(t *testing.T) {
	backendErr := errors.New("quota exceeded")
	e := Checked(&stubEmbedder{dims: 3, err: backendErr})

	_, err := e.Embed(context.Background(), []string{"a"})

	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ProviderError, got %v", err)
	}
	if pe.Provider != "stub" {
		t.Errorf("expected provider stub, got %q", pe.Provider)
	}
	if !errors.Is(err, backendErr) {
		t.Error("expected backend error to be unwrappable")
	}
}

func TestChecked_DimensionMismatch(t *testing.T) {
	e := Checked(&stubEmbedder{dims: 3, out: [][]float32{{1, 2}}})

	_, err := e.Embed(context.Background(), []string{"a"})

	var dm *DimensionMismatchError
	if !errors.As(err, &dm) {
		t.Fatalf("expected *DimensionMismatchError, got %v", err)
	}
	if dm.Want != 3 || dm.Got != 2 {
		t.Errorf("unexpected mismatch %+v", dm)
	}
}

func TestChecked_InconsistentDimensionsWhenUnknown(t *testing.T) {
	e := Checked(&stubEmbedder{dims: 0, out: [][]float32{{1, 2}, {1, 2, 3}}})

	_, err := e.Embed(context.Background(), []string{"a", "b"})

	var dm *DimensionMismatchError
	if !errors.As(err, &dm) {
		t.Fatalf("expected *DimensionMismatchError, got %v", err)
	}
}

func TestChecked_CountMismatch(t *testing.T) {
	e := Checked(&stubEmbedder{dims: 2, out: [][]float32{{1, 2}}})

	_, err := e.Embed(context.Background(), []string{"a", "b"})

	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ProviderError, got %v", err)
	}
}

func TestChecked_IsIdempotent(t *testing.T) {
	e := Checked(&stubEmbedder{dims: 2})
	if Checked(e) != e {
		t.Error("Checked should not double-wrap")
	}
}

func TestEmbedOne(t *testing.T) {
	e := Checked(&stubEmbedder{dims: 4})
	v, err := EmbedOne(context.Background(), e, "hello")
	if err != nil {
		t.Fatalf("EmbedOne: %v", err)
	}
	if len(v) != 4 {
		t.Errorf("expected 4 dims, got %d", len(v))
	}
}

func TestDimensionMismatchError_Message(t *testing.T) {
	err := &DimensionMismatchError{Collection: "doc", WantEmbedder: "openai/a", GotEmbedder: "ollama/b"}
	if !strings.Contains(err.Error(), "openai/a") {
		t.Errorf("expected embedder names in message, got %q", err.Error())
	}
	err = &DimensionMismatchError{Want: 3, Got: 2}
	if !strings.Contains(err.Error(), "want 3") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestOllamaEmbedder_Batch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Model != "nomic-embed-text" {
			t.Errorf("unexpected model %q", req.Model)
		}
		resp := ollamaEmbedResponse{}
		for range req.Input {
			resp.Embeddings = append(resp.Embeddings, []float32{0.1, 0.2, 0.3})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := NewOllamaEmbedder("nomic-embed-text", 3, srv.URL)
	vecs, err := Checked(e).Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vecs))
	}
	if e.Name() != "ollama/nomic-embed-text" {
		t.Errorf("unexpected name %q", e.Name())
	}
}

func TestOllamaEmbedder_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := Checked(NewOllamaEmbedder("missing", 3, srv.URL)).Embed(context.Background(), []string{"a"})
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ProviderError, got %v", err)
	}
}

func TestGoogleEmbedder_Batch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/text-embedding-004:batchEmbedContents") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "k" {
			t.Errorf("missing api key")
		}
		var req googleBatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		var resp googleBatchResponse
		for range req.Requests {
			resp.Embeddings = append(resp.Embeddings, googleEmbedding{Values: make([]float32, 768)})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := NewGoogleEmbedder("k", ModelTextEmbedding004)
	e.baseURL = srv.URL
	vecs, err := Checked(e).Embed(context.Background(), []string{"x", "y", "z"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 3 || len(vecs[0]) != 768 {
		t.Fatalf("unexpected vectors: %d", len(vecs))
	}
}

func TestOpenAIModelDimensions(t *testing.T) {
	if ModelTextEmbedding3Small.dimensions() != 1536 {
		t.Error("text-embedding-3-small should have 1536 dimensions")
	}
	if ModelTextEmbedding3Large.dimensions() != 3072 {
		t.Error("text-embedding-3-large should have 3072 dimensions")
	}
}

func TestToChromemFunc(t *testing.T) {
	fn := ToChromemFunc(&stubEmbedder{dims: 2})
	v, err := fn(context.Background(), "q")
	if err != nil {
		t.Fatalf("embedding func: %v", err)
	}
	if len(v) != 2 {
		t.Errorf("expected 2 dims, got %d", len(v))
	}
}

func TestInBatches_SplitsAndPreservesOrder(t *testing.T) {
	texts := make([]string, 7)
	var sizes []int
	embed := func(_ context.Context, batch []string) ([][]float32, error) {
		sizes = append(sizes, len(batch))
		out := make([][]float32, len(batch))
		for i := range batch {
			out[i] = []float32{float32(len(sizes))}
		}
		return out, nil
	}

	vecs, err := inBatches(context.Background(), texts, 3, embed)
	if err != nil {
		t.Fatalf("inBatches: %v", err)
	}
	if len(sizes) != 3 || sizes[0] != 3 || sizes[2] != 1 {
		t.Errorf("unexpected batch sizes %v", sizes)
	}
	if len(vecs) != 7 || vecs[6][0] != 3 {
		t.Errorf("unexpected vectors %v", vecs)
	}
}

func TestInBatches_ShortBatch(t *testing.T) {
	embed := func(_ context.Context, batch []string) ([][]float32, error) {
		return [][]float32{{1}}, nil
	}
	if _, err := inBatches(context.Background(), []string{"a", "b"}, 10, embed); err == nil {
		t.Error("expected error for short batch")
	}
}

func TestOllamaEmbedder_ErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"model \"x\" not found, try pulling it first"}`))
	}))
	defer srv.Close()

	_, err := NewOllamaEmbedder("x", 3, srv.URL).Embed(context.Background(), []string{"a"})
	if err == nil || !strings.Contains(err.Error(), "try pulling it first") {
		t.Fatalf("expected decoded ollama error, got %v", err)
	}
}

func TestOllamaEmbedder_UnknownDimensionsFollowModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		resp := ollamaEmbedResponse{}
		for range req.Input {
			resp.Embeddings = append(resp.Embeddings, make([]float32, 1024))
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := NewOllamaEmbedder("mxbai-embed-large", 0, srv.URL)
	if e.Dimensions() != 0 {
		t.Fatalf("expected unknown dims, got %d", e.Dimensions())
	}
	vecs, err := Checked(e).Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 2 || len(vecs[0]) != 1024 {
		t.Errorf("unexpected vectors: %d x %d", len(vecs), len(vecs[0]))
	}
}

func TestOpenAIEmbedder_WithDimensions(t *testing.T) {
	e := NewOpenAIEmbedder("k", ModelTextEmbedding3Large).WithDimensions(256)
	if e.Dimensions() != 256 {
		t.Errorf("expected 256 dims, got %d", e.Dimensions())
	}
	if e.Name() != "openai/text-embedding-3-large@256" {
		t.Errorf("unexpected name %q", e.Name())
	}

	ada := NewOpenAIEmbedder("k", ModelTextEmbeddingAda002).WithDimensions(256)
	if ada.Dimensions() != 1536 || ada.Name() != "openai/text-embedding-ada-002" {
		t.Errorf("ada should ignore dimension override, got %d %q", ada.Dimensions(), ada.Name())
	}
}

func TestGoogleEmbedder_OutputDimensionality(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req googleBatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		var resp googleBatchResponse
		for _, item := range req.Requests {
			if item.OutputDimensionality != 128 {
				t.Errorf("expected outputDimensionality 128, got %d", item.OutputDimensionality)
			}
			resp.Embeddings = append(resp.Embeddings, googleEmbedding{Values: make([]float32, 128)})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := NewGoogleEmbedder("k", ModelGeminiEmbedding001).WithDimensions(128)
	e.baseURL = srv.URL
	vecs, err := Checked(e).Embed(context.Background(), []string{"x"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs[0]) != 128 || e.Name() != "google/gemini-embedding-001@128" {
		t.Errorf("unexpected result: %d dims, name %q", len(vecs[0]), e.Name())
	}
}

func TestGoogleEmbedder_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"message":"API key not valid","status":"PERMISSION_DENIED"}}`))
	}))
	defer srv.Close()

	e := NewGoogleEmbedder("bad", ModelTextEmbedding004)
	e.baseURL = srv.URL
	_, err := e.Embed(context.Background(), []string{"x"})
	if err == nil || !strings.Contains(err.Error(), "PERMISSION_DENIED") {
		t.Fatalf("expected decoded API error, got %v", err)
	}
}

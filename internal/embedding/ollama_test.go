package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaProvider_Embed(t *testing.T) {
	vec := make([]float32, DefaultDimensions)
	for i := range vec {
		vec[i] = float32(i) * 0.001
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != apiPathEmbeddings {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"embedding": vec})
	}))
	defer srv.Close()

	p := NewOllamaProvider(WithBaseURL(srv.URL))
	emb, err := p.Embed(context.Background(), "some abstract text")
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}
	if emb.Dimensions() != DefaultDimensions {
		t.Errorf("Dimensions() = %d, want %d", emb.Dimensions(), DefaultDimensions)
	}
}

func TestOllamaProvider_DimensionMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embedding": []float32{1, 2, 3}})
	}))
	defer srv.Close()

	p := NewOllamaProvider(WithBaseURL(srv.URL))
	if _, err := p.Embed(context.Background(), "text"); err == nil {
		t.Error("Embed() should reject a vector with wrong dimensions")
	}
}

func TestOllamaProvider_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewOllamaProvider(WithBaseURL(srv.URL))
	if _, err := p.Embed(context.Background(), "text"); err == nil {
		t.Error("Embed() should surface server errors")
	}
}

func TestOllamaProvider_Options(t *testing.T) {
	p := NewOllamaProvider(WithModel("nomic-embed-text"), WithDimensions(768))
	if p.ModelName() != "nomic-embed-text" {
		t.Errorf("ModelName() = %q", p.ModelName())
	}
	if p.Dimensions() != 768 {
		t.Errorf("Dimensions() = %d", p.Dimensions())
	}
}

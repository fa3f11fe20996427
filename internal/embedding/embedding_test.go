package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestAPIEmbedderBatch(t *testing.T) {
	// Mock OpenAI-compatible embedding server returning one vector per input.
	mux := http.NewServeMux()
	mux.HandleFunc("/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var req apiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp := apiResponse{}
		for i := range req.Input {
			resp.Data = append(resp.Data, apiEmbeddingData{
				Index:     i,
				Embedding: []float32{float32(i), 0.5, 0.5},
			})
		}
		json.NewEncoder(w).Encode(resp)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	e := NewAPIEmbedder(Config{Name: "test-model", Endpoint: srv.URL, APIKey: "sk-test"})

	vectors, err := e.Embed(context.Background(), []string{"one", "two", "three"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("got %d vectors, want 3", len(vectors))
	}
	// Order must match input order.
	for i, v := range vectors {
		if v[0] != float32(i) {
			t.Errorf("vector %d out of order: got marker %v", i, v[0])
		}
	}
	if e.Dimension() != 3 {
		t.Errorf("got dimension %d, want 3", e.Dimension())
	}
}

func TestAPIEmbedderCountMismatch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/embeddings", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(apiResponse{
			Data: []apiEmbeddingData{{Embedding: []float32{0.1}}},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	e := NewAPIEmbedder(Config{Name: "test-model", Endpoint: srv.URL, APIKey: "sk-test"})
	if _, err := e.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected error on embedding count mismatch")
	}
}

func TestLocalEmbedderOrder(t *testing.T) {
	var calls []string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var req localRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		calls = append(calls, req.Prompt)
		json.NewEncoder(w).Encode(localResponse{
			Embedding: []float32{float32(len(calls)), 0.1},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	e := NewLocalEmbedder(Config{Name: "all-minilm", Endpoint: srv.URL})

	vectors, err := e.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("got %d vectors, want 2", len(vectors))
	}
	if calls[0] != "first" || calls[1] != "second" {
		t.Errorf("requests out of order: %v", calls)
	}
	if e.Dimension() != 2 {
		t.Errorf("got dimension %d, want 2", e.Dimension())
	}
}

func TestEmbedEmptyInput(t *testing.T) {
	e := NewAPIEmbedder(Config{Name: "test-model", Endpoint: "http://unused", APIKey: "sk-test", Dimension: 128})
	vectors, err := e.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vectors != nil {
		t.Errorf("expected nil for empty input, got %v", vectors)
	}
	// Dimension falls back to the configured hint before any call.
	if d := e.Dimension(); d != 128 {
		t.Errorf("got dimension %d, want configured 128", d)
	}
}

func TestRegistryResolve(t *testing.T) {
	reg := NewRegistry([]Config{
		{Name: "text-embedding-3-small", Kind: "api", APIKey: "sk-test"},
		{Name: "all-MiniLM-L6-v2", Kind: "local", Endpoint: "http://localhost:11434"},
	}, zap.NewNop())

	if _, err := reg.Resolve("text-embedding-3-small"); err != nil {
		t.Errorf("resolve api model: %v", err)
	}
	if _, err := reg.Resolve("all-MiniLM-L6-v2"); err != nil {
		t.Errorf("resolve local model: %v", err)
	}

	_, err := reg.Resolve("no-such-model")
	if !errors.Is(err, ErrUnknownModel) {
		t.Errorf("got %v, want ErrUnknownModel", err)
	}
}

func TestRegistryMissingAPIKey(t *testing.T) {
	reg := NewRegistry([]Config{
		{Name: "text-embedding-3-small", Kind: "api"},
	}, zap.NewNop())

	_, err := reg.Resolve("text-embedding-3-small")
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("got %v, want ErrMissingAPIKey", err)
	}
}

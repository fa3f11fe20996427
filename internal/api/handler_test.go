package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/solvik/ragserver/internal/rag"
	"github.com/solvik/ragserver/internal/store"
	"github.com/solvik/ragserver/internal/vectorstore"
	"go.uber.org/zap"
)

// fakeRegistry is an in-memory ClientRegistry.
type fakeRegistry struct {
	clients map[string]*store.Client
}

func (f *fakeRegistry) SetModels(ctx context.Context, clientID, embeddingModel, llmModel string) (*store.Client, error) {
	c := &store.Client{ClientID: clientID, EmbeddingModel: embeddingModel, LLMModel: llmModel}
	f.clients[clientID] = c
	return c, nil
}

func (f *fakeRegistry) Get(ctx context.Context, clientID string) (*store.Client, error) {
	c, ok := f.clients[clientID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrClientNotFound, clientID)
	}
	return c, nil
}

func (f *fakeRegistry) UpdateModels(ctx context.Context, clientID, embeddingModel, llmModel string) (*store.Client, error) {
	c, ok := f.clients[clientID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrClientNotFound, clientID)
	}
	if embeddingModel != "" {
		c.EmbeddingModel = embeddingModel
	}
	if llmModel != "" {
		c.LLMModel = llmModel
	}
	return c, nil
}

// fakeRAG records calls and returns canned results.
type fakeRAG struct {
	ingested   []string // document ids
	queryErr   error
	lastTopK   int
	lastClient string
}

func (f *fakeRAG) Ingest(ctx context.Context, clientID, documentID, text, embeddingModel string) (*rag.IngestResult, error) {
	f.ingested = append(f.ingested, documentID)
	return &rag.IngestResult{
		DocumentID:   documentID,
		Collection:   rag.CollectionName(clientID, embeddingModel),
		ChunksStored: 1,
	}, nil
}

func (f *fakeRAG) Query(ctx context.Context, clientID, queryText, embeddingModel, llmModel string, topK int) (*rag.QueryResult, error) {
	f.lastClient = clientID
	f.lastTopK = topK
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return &rag.QueryResult{Answer: "42", EmbeddingModel: embeddingModel, LLMModel: llmModel}, nil
}

func newTestServer(t *testing.T) (*fakeRegistry, *fakeRAG, *httptest.Server) {
	t.Helper()
	reg := &fakeRegistry{clients: make(map[string]*store.Client)}
	pipe := &fakeRAG{}
	h := NewHandler(reg, pipe, zap.NewNop())
	ts := httptest.NewServer(h.Router())
	t.Cleanup(ts.Close)
	return reg, pipe, ts
}

func postJSON(t *testing.T, ts *httptest.Server, path string, body interface{}) *http.Response {
	t.Helper()
	b, _ := json.Marshal(body)
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	_, _, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]string
	decodeJSON(t, resp, &body)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestSetAndGetClientModels(t *testing.T) {
	_, _, ts := newTestServer(t)

	resp := postJSON(t, ts, "/api/clients", map[string]string{
		"client_id":       "clientA",
		"embedding_model": "modelX",
		"llm_model":       "llmY",
	})
	if resp.StatusCode != 201 {
		t.Fatalf("set models: expected 201, got %d", resp.StatusCode)
	}
	var created store.Client
	decodeJSON(t, resp, &created)
	if created.EmbeddingModel != "modelX" {
		t.Errorf("got embedding model %q, want modelX", created.EmbeddingModel)
	}

	resp, err := http.Get(ts.URL + "/api/clients/clientA")
	if err != nil {
		t.Fatalf("GET client: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("get client: expected 200, got %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/clients/ghost")
	if err != nil {
		t.Fatalf("GET missing client: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 404 {
		t.Errorf("missing client: expected 404, got %d", resp.StatusCode)
	}
}

func TestSetClientModelsValidation(t *testing.T) {
	_, _, ts := newTestServer(t)

	resp := postJSON(t, ts, "/api/clients", map[string]string{"client_id": "clientA"})
	resp.Body.Close()
	if resp.StatusCode != 400 {
		t.Errorf("expected 400 for missing fields, got %d", resp.StatusCode)
	}
}

func TestUpdateClientModels(t *testing.T) {
	reg, _, ts := newTestServer(t)
	reg.clients["clientA"] = &store.Client{ClientID: "clientA", EmbeddingModel: "modelX", LLMModel: "llmY"}

	body, _ := json.Marshal(map[string]string{"llm_model": "llmZ"})
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/clients/clientA", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT client: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var updated store.Client
	decodeJSON(t, resp, &updated)
	if updated.LLMModel != "llmZ" {
		t.Errorf("got llm model %q, want llmZ", updated.LLMModel)
	}
	if updated.EmbeddingModel != "modelX" {
		t.Errorf("embedding model changed on partial update: %q", updated.EmbeddingModel)
	}
}

func TestIngestFile(t *testing.T) {
	reg, pipe, ts := newTestServer(t)
	reg.clients["clientA"] = &store.Client{ClientID: "clientA", EmbeddingModel: "modelX", LLMModel: "llmY"}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("client_id", "clientA")
	mw.WriteField("document_id", "doc1")
	fw, _ := mw.CreateFormFile("file", "doc1.txt")
	fw.Write([]byte("the contents of document one"))
	mw.Close()

	resp, err := http.Post(ts.URL+"/api/ingest", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST /api/ingest: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var result rag.IngestResult
	decodeJSON(t, resp, &result)
	if result.Collection != "clientA_modelX" {
		t.Errorf("got collection %q, want clientA_modelX", result.Collection)
	}
	if len(pipe.ingested) != 1 || pipe.ingested[0] != "doc1" {
		t.Errorf("pipeline saw ingests %v, want [doc1]", pipe.ingested)
	}
}

func TestIngestFileUnknownClient(t *testing.T) {
	_, _, ts := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("client_id", "ghost")
	mw.WriteField("document_id", "doc1")
	fw, _ := mw.CreateFormFile("file", "doc1.txt")
	fw.Write([]byte("text"))
	mw.Close()

	resp, err := http.Post(ts.URL+"/api/ingest", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST /api/ingest: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 404 {
		t.Errorf("expected 404 for unknown client, got %d", resp.StatusCode)
	}
}

func TestQuery(t *testing.T) {
	reg, pipe, ts := newTestServer(t)
	reg.clients["clientA"] = &store.Client{ClientID: "clientA", EmbeddingModel: "modelX", LLMModel: "llmY"}

	resp := postJSON(t, ts, "/api/query", map[string]interface{}{
		"client_id": "clientA",
		"query":     "what is in doc1?",
		"top_k":     5,
	})
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var result rag.QueryResult
	decodeJSON(t, resp, &result)
	if result.Answer != "42" {
		t.Errorf("got answer %q, want 42", result.Answer)
	}
	if result.EmbeddingModel != "modelX" || result.LLMModel != "llmY" {
		t.Errorf("got models %q/%q, want the client's registered models", result.EmbeddingModel, result.LLMModel)
	}
	if pipe.lastTopK != 5 {
		t.Errorf("got topK %d, want 5", pipe.lastTopK)
	}
}

func TestQueryBeforeIngest(t *testing.T) {
	reg, pipe, ts := newTestServer(t)
	reg.clients["clientA"] = &store.Client{ClientID: "clientA", EmbeddingModel: "modelX", LLMModel: "llmY"}
	pipe.queryErr = fmt.Errorf("%w: clientA_modelX (ingest documents first)", vectorstore.ErrCollectionNotFound)

	resp := postJSON(t, ts, "/api/query", map[string]string{
		"client_id": "clientA",
		"query":     "anything?",
	})
	defer resp.Body.Close()
	if resp.StatusCode != 404 {
		t.Errorf("expected 404 before ingestion, got %d", resp.StatusCode)
	}
}

func TestQueryUnknownClient(t *testing.T) {
	_, _, ts := newTestServer(t)

	resp := postJSON(t, ts, "/api/query", map[string]string{
		"client_id": "ghost",
		"query":     "anything?",
	})
	resp.Body.Close()
	if resp.StatusCode != 404 {
		t.Errorf("expected 404 for unknown client, got %d", resp.StatusCode)
	}
}

// Package api exposes the ingestion and query pipelines over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/solvik/ragserver/internal/chunker"
	"github.com/solvik/ragserver/internal/embedding"
	"github.com/solvik/ragserver/internal/extract"
	"github.com/solvik/ragserver/internal/llm"
	"github.com/solvik/ragserver/internal/rag"
	"github.com/solvik/ragserver/internal/store"
	"github.com/solvik/ragserver/internal/vectorstore"
	"go.uber.org/zap"
)

// maxUploadSize bounds multipart ingestion uploads.
const maxUploadSize = 64 << 20

// ClientRegistry is the client model record store the handlers use.
// *store.Store satisfies it.
type ClientRegistry interface {
	SetModels(ctx context.Context, clientID, embeddingModel, llmModel string) (*store.Client, error)
	Get(ctx context.Context, clientID string) (*store.Client, error)
	UpdateModels(ctx context.Context, clientID, embeddingModel, llmModel string) (*store.Client, error)
}

// RAGService runs ingestion and queries. *rag.Pipeline satisfies it.
type RAGService interface {
	Ingest(ctx context.Context, clientID, documentID, text, embeddingModel string) (*rag.IngestResult, error)
	Query(ctx context.Context, clientID, queryText, embeddingModel, llmModel string, topK int) (*rag.QueryResult, error)
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	registry ClientRegistry
	pipeline RAGService
	logger   *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(registry ClientRegistry, pipeline RAGService, logger *zap.Logger) *Handler {
	return &Handler{registry: registry, pipeline: pipeline, logger: logger}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)
		r.Post("/clients", h.setClientModels)
		r.Get("/clients/{clientID}", h.getClient)
		r.Put("/clients/{clientID}", h.updateClientModels)
		r.Post("/ingest", h.ingestFile)
		r.Post("/query", h.query)
	})

	return r
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

// respondError maps the pipeline error taxonomy to HTTP statuses:
// missing records are 404, bad input or misconfigured model names are
// 400, backend faults are 502, everything else is 500.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrClientNotFound),
		errors.Is(err, vectorstore.ErrCollectionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, chunker.ErrEmptyInput),
		errors.Is(err, chunker.ErrNoChunks),
		errors.Is(err, extract.ErrNoText),
		errors.Is(err, embedding.ErrUnknownModel),
		errors.Is(err, llm.ErrUnknownModel):
		status = http.StatusBadRequest
	case errors.Is(err, llm.ErrGeneration):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
	}
	h.respondJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "RAG service is up and running",
	})
}

type setModelsRequest struct {
	ClientID       string `json:"client_id"`
	EmbeddingModel string `json:"embedding_model"`
	LLMModel       string `json:"llm_model"`
}

func (h *Handler) setClientModels(w http.ResponseWriter, r *http.Request) {
	var req setModelsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if req.ClientID == "" || req.EmbeddingModel == "" || req.LLMModel == "" {
		h.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "client_id, embedding_model and llm_model are required"})
		return
	}

	client, err := h.registry.SetModels(r.Context(), req.ClientID, req.EmbeddingModel, req.LLMModel)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, client)
}

func (h *Handler) getClient(w http.ResponseWriter, r *http.Request) {
	client, err := h.registry.Get(r.Context(), chi.URLParam(r, "clientID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, client)
}

type updateModelsRequest struct {
	EmbeddingModel string `json:"embedding_model"`
	LLMModel       string `json:"llm_model"`
}

func (h *Handler) updateClientModels(w http.ResponseWriter, r *http.Request) {
	var req updateModelsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	client, err := h.registry.UpdateModels(r.Context(), chi.URLParam(r, "clientID"), req.EmbeddingModel, req.LLMModel)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, client)
}

// ingestFile accepts a multipart upload (client_id, document_id, file),
// extracts its text and runs it through the ingestion pipeline using the
// client's registered embedding model.
func (h *Handler) ingestFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		h.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}

	clientID := r.FormValue("client_id")
	documentID := r.FormValue("document_id")
	if clientID == "" || documentID == "" {
		h.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "client_id and document_id are required"})
		return
	}

	client, err := h.registry.Get(r.Context(), clientID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "file field is required"})
		return
	}
	defer file.Close()

	// Spool the upload to disk for the extractor.
	tmp, err := os.CreateTemp("", "ragserver-upload-*"+filepath.Ext(header.Filename))
	if err != nil {
		h.respondError(w, err)
		return
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		h.respondError(w, err)
		return
	}
	tmp.Close()

	text, err := extract.Text(tmp.Name())
	if err != nil {
		h.respondError(w, err)
		return
	}

	result, err := h.pipeline.Ingest(r.Context(), client.ClientID, documentID, text, client.EmbeddingModel)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

type queryRequest struct {
	ClientID string `json:"client_id"`
	Query    string `json:"query"`
	TopK     int    `json:"top_k"`
}

// query answers a question against the client's ingested documents using
// the client's registered embedding and LLM models.
func (h *Handler) query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if req.ClientID == "" || req.Query == "" {
		h.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "client_id and query are required"})
		return
	}

	client, err := h.registry.Get(r.Context(), req.ClientID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	result, err := h.pipeline.Query(r.Context(), client.ClientID, req.Query, client.EmbeddingModel, client.LLMModel, req.TopK)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

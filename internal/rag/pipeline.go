// Package rag composes the chunker, embedding backends, vector store and
// LLM backends into per-client ingestion and query pipelines.
package rag

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/solvik/ragserver/internal/chunker"
	"github.com/solvik/ragserver/internal/embedding"
	"github.com/solvik/ragserver/internal/llm"
	"github.com/solvik/ragserver/internal/vectorstore"
	"go.uber.org/zap"
)

// probeText is the sentinel embedded once per ingestion to discover a
// model's vector dimensionality. Not cached across calls: ingestion is
// infrequent and document-sized, and the probe keeps a model rename from
// silently writing wrong-sized vectors.
const probeText = "test"

// DefaultTopK is the number of chunks retrieved per query.
const DefaultTopK = 3

// Store is the vector database surface the pipelines use.
// *vectorstore.Client satisfies it.
type Store interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, name string, vectorSize uint64) error
	Upsert(ctx context.Context, collection string, points []vectorstore.Point) error
	Search(ctx context.Context, collection string, vector []float32, topK uint64) ([]vectorstore.SearchResult, error)
}

// EmbedderResolver resolves an embedding model name to a backend.
// *embedding.Registry satisfies it.
type EmbedderResolver interface {
	Resolve(name string) (embedding.Embedder, error)
}

// GeneratorResolver resolves an LLM model name to a backend.
// *llm.Registry satisfies it.
type GeneratorResolver interface {
	Resolve(name string) (llm.Generator, error)
}

// Pipeline runs document ingestion and retrieval-augmented queries.
// It holds no per-call state and is safe for concurrent use; it does not
// own the store's backing data and re-checks collection existence on
// every call.
type Pipeline struct {
	embedders  EmbedderResolver
	generators GeneratorResolver
	store      Store
	logger     *zap.Logger
}

// NewPipeline creates a pipeline over the given registries and store.
func NewPipeline(embedders EmbedderResolver, generators GeneratorResolver, store Store, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		embedders:  embedders,
		generators: generators,
		store:      store,
		logger:     logger,
	}
}

// IngestResult summarizes a completed ingestion.
type IngestResult struct {
	DocumentID   string `json:"document_id"`
	Collection   string `json:"collection"`
	ChunksStored int    `json:"chunks_stored"`
}

// Ingest chunks the document text, embeds the chunks and stores them in
// the client's collection for the given embedding model, creating the
// collection on first use. Any failure aborts the whole call with
// nothing to roll back beyond re-running it: semantics are
// at-least-once, and re-ingesting the same document id appends rather
// than replaces.
func (p *Pipeline) Ingest(ctx context.Context, clientID, documentID, text, embeddingModel string) (*IngestResult, error) {
	// Reject unusable text before resolving models.
	chunks, err := chunker.Split(text, chunker.DefaultChunkSize, chunker.DefaultOverlap)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", documentID, err)
	}

	embedder, err := p.embedders.Resolve(embeddingModel)
	if err != nil {
		return nil, err
	}

	collection := CollectionName(clientID, embeddingModel)

	// Probe the model's dimensionality before touching the store.
	probe, err := embedder.Embed(ctx, []string{probeText})
	if err != nil {
		return nil, fmt.Errorf("probe embedding for model %s: %w", embeddingModel, err)
	}
	if len(probe) == 0 || len(probe[0]) == 0 {
		return nil, fmt.Errorf("probe embedding for model %s: empty vector", embeddingModel)
	}
	vectorSize := uint64(len(probe[0]))

	exists, err := p.store.CollectionExists(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := p.store.CreateCollection(ctx, collection, vectorSize); err != nil {
			return nil, err
		}
	}

	vectors, err := embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed %d chunks for document %s: %w", len(chunks), documentID, err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embed document %s: got %d vectors for %d chunks", documentID, len(vectors), len(chunks))
	}

	points := make([]vectorstore.Point, len(chunks))
	for i, chunk := range chunks {
		points[i] = vectorstore.Point{
			ID:     uuid.New().String(),
			Vector: vectors[i],
			Payload: map[string]string{
				"content":     chunk,
				"document_id": documentID,
				"chunk_index": strconv.Itoa(i),
			},
		}
	}

	if err := p.store.Upsert(ctx, collection, points); err != nil {
		return nil, err
	}

	p.logger.Info("document ingested",
		zap.String("client", clientID),
		zap.String("document", documentID),
		zap.String("collection", collection),
		zap.Int("chunks", len(chunks)))

	return &IngestResult{
		DocumentID:   documentID,
		Collection:   collection,
		ChunksStored: len(chunks),
	}, nil
}

// QueryResult holds the generated answer and the models that produced it.
type QueryResult struct {
	Answer         string `json:"answer"`
	EmbeddingModel string `json:"embedding_model"`
	LLMModel       string `json:"llm_model"`
}

// Query embeds the question, retrieves the topK most similar chunks from
// the client's collection and feeds them, verbatim and in retrieval
// order, to the LLM ahead of the question. A missing collection means
// the client has not ingested anything yet and surfaces as
// vectorstore.ErrCollectionNotFound.
func (p *Pipeline) Query(ctx context.Context, clientID, queryText, embeddingModel, llmModel string, topK int) (*QueryResult, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	collection := CollectionName(clientID, embeddingModel)

	exists, err := p.store.CollectionExists(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s (ingest documents first)", vectorstore.ErrCollectionNotFound, collection)
	}

	embedder, err := p.embedders.Resolve(embeddingModel)
	if err != nil {
		return nil, err
	}
	generator, err := p.generators.Resolve(llmModel)
	if err != nil {
		return nil, err
	}

	vectors, err := embedder.Embed(ctx, []string{queryText})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embed query: empty result")
	}

	hits, err := p.store.Search(ctx, collection, vectors[0], uint64(topK))
	if err != nil {
		return nil, err
	}

	contexts := make([]string, 0, len(hits))
	for _, h := range hits {
		contexts = append(contexts, h.Payload["content"])
	}
	prompt := BuildPrompt(contexts, queryText)

	answer, err := generator.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	p.logger.Info("query answered",
		zap.String("client", clientID),
		zap.String("collection", collection),
		zap.Int("chunks_retrieved", len(hits)),
		zap.String("llm_model", llmModel))

	return &QueryResult{
		Answer:         answer,
		EmbeddingModel: embeddingModel,
		LLMModel:       llmModel,
	}, nil
}

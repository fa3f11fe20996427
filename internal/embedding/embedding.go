// Package embedding resolves configured model names to embedder backends
// that map text to fixed-length vectors. Two backends are supported: an
// OpenAI-compatible hosted API and a local sentence-embedding server
// speaking the Ollama protocol.
package embedding

import (
	"context"
	"time"
)

// Embedder generates vector embeddings from text. Batch calls preserve
// input order one-to-one, and every vector produced by one instance has
// the same length.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Config describes one embedding model backend.
type Config struct {
	Name      string        `json:"name"` // model name clients select by
	Kind      string        `json:"kind"` // "api" or "local"
	Endpoint  string        `json:"endpoint"`
	APIKey    string        `json:"api_key"`
	Dimension int           `json:"dimension"` // optional hint; probed at runtime
	Timeout   time.Duration `json:"-"`
}

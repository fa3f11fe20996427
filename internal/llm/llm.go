// Package llm resolves configured model names to text-generation
// backends. Two backends are supported: an OpenAI-compatible hosted
// chat-completion API and a local inference server speaking the Ollama
// protocol. Sampling parameters are fixed per backend at configuration
// time, not supplied per request.
package llm

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnknownModel is returned when a model name has no configured backend.
	ErrUnknownModel = errors.New("llm: unknown model")
	// ErrGeneration wraps transport or backend faults from a generation call.
	ErrGeneration = errors.New("llm: generation failed")
)

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Config describes one LLM backend.
type Config struct {
	Name        string        `json:"name"` // model name clients select by
	Kind        string        `json:"kind"` // "openai" or "ollama"
	Endpoint    string        `json:"endpoint"`
	APIKey      string        `json:"api_key"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Timeout     time.Duration `json:"-"`
}

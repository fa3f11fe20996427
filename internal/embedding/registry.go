package embedding

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	// ErrUnknownModel is returned when a model name has no configured backend.
	ErrUnknownModel = errors.New("embedding: unknown model")
	// ErrMissingAPIKey is returned when a hosted backend is resolved
	// without a credential.
	ErrMissingAPIKey = errors.New("embedding: api key not configured")
)

// Registry maps configured model names to embedder factories. Adding a
// backend kind means adding one case here, not touching call sites.
type Registry struct {
	factories map[string]func() (Embedder, error)
	logger    *zap.Logger
}

// NewRegistry builds the dispatch table from configuration.
func NewRegistry(configs []Config, logger *zap.Logger) *Registry {
	r := &Registry{
		factories: make(map[string]func() (Embedder, error)),
		logger:    logger,
	}
	for _, cfg := range configs {
		cfg := cfg
		switch cfg.Kind {
		case "api":
			r.factories[cfg.Name] = func() (Embedder, error) {
				if cfg.APIKey == "" {
					return nil, fmt.Errorf("model %s: %w", cfg.Name, ErrMissingAPIKey)
				}
				return NewAPIEmbedder(cfg), nil
			}
		case "local":
			r.factories[cfg.Name] = func() (Embedder, error) {
				return NewLocalEmbedder(cfg), nil
			}
		default:
			logger.Warn("unknown embedding backend kind",
				zap.String("model", cfg.Name), zap.String("kind", cfg.Kind))
			continue
		}
		logger.Info("registered embedding model",
			zap.String("model", cfg.Name), zap.String("kind", cfg.Kind))
	}
	return r
}

// Resolve returns an embedder for the named model. Configuration problems
// such as a missing credential surface here, not on first use.
func (r *Registry) Resolve(name string) (Embedder, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
	return factory()
}

// Models lists the configured model names.
func (r *Registry) Models() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}

package llm

import (
	"fmt"

	"go.uber.org/zap"
)

// Registry maps configured model names to generator factories.
type Registry struct {
	factories map[string]func() (Generator, error)
	logger    *zap.Logger
}

// NewRegistry builds the dispatch table from configuration.
func NewRegistry(configs []Config, logger *zap.Logger) *Registry {
	r := &Registry{
		factories: make(map[string]func() (Generator, error)),
		logger:    logger,
	}
	for _, cfg := range configs {
		cfg := cfg
		switch cfg.Kind {
		case "openai":
			r.factories[cfg.Name] = func() (Generator, error) {
				if cfg.APIKey == "" {
					return nil, fmt.Errorf("llm: model %s: api key not configured", cfg.Name)
				}
				return NewOpenAIGenerator(cfg, logger), nil
			}
		case "ollama":
			r.factories[cfg.Name] = func() (Generator, error) {
				return NewOllamaGenerator(cfg, logger), nil
			}
		default:
			logger.Warn("unknown llm backend kind",
				zap.String("model", cfg.Name), zap.String("kind", cfg.Kind))
			continue
		}
		logger.Info("registered llm model",
			zap.String("model", cfg.Name), zap.String("kind", cfg.Kind))
	}
	return r
}

// Resolve returns a generator for the named model.
func (r *Registry) Resolve(name string) (Generator, error) {
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

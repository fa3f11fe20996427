// Package config loads the service configuration from a JSON file with
// ${VAR} and ${VAR:default} environment substitution.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"
)

// Config is the top-level configuration structure.
type Config struct {
	Server    ServerConfig     `json:"server"`
	Postgres  PostgresConfig   `json:"postgres"`
	Qdrant    QdrantConfig     `json:"qdrant"`
	Embedding []EmbeddingModel `json:"embedding_models"`
	LLM       []LLMModel       `json:"llm_models"`
}

type ServerConfig struct {
	Port     int    `json:"port"`
	LogLevel string `json:"log_level"`
}

type PostgresConfig struct {
	DSN string `json:"dsn"`
}

type QdrantConfig struct {
	Host   string `json:"host"`
	Port   int    `json:"port"`
	APIKey string `json:"api_key"`
	UseTLS bool   `json:"use_tls"`
}

// EmbeddingModel configures one embedding backend.
type EmbeddingModel struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"` // "api" or "local"
	Endpoint   string `json:"endpoint"`
	APIKey     string `json:"api_key"`
	Dimension  int    `json:"dimension"`
	TimeoutSec int    `json:"timeout_seconds"`
}

// LLMModel configures one generation backend.
type LLMModel struct {
	Name        string  `json:"name"`
	Kind        string  `json:"kind"` // "openai" or "ollama"
	Endpoint    string  `json:"endpoint"`
	APIKey      string  `json:"api_key"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	TimeoutSec  int     `json:"timeout_seconds"`
}

// Timeout returns the configured request timeout.
func (m EmbeddingModel) Timeout() time.Duration {
	return time.Duration(m.TimeoutSec) * time.Second
}

// Timeout returns the configured request timeout.
func (m LLMModel) Timeout() time.Duration {
	return time.Duration(m.TimeoutSec) * time.Second
}

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load reads a JSON config file and substitutes environment variable references.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	// Substitute ${VAR} and ${VAR:default} with environment values.
	resolved := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		name := parts[1]
		defaultVal := parts[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return defaultVal
	})

	var cfg Config
	if err := json.Unmarshal([]byte(resolved), &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

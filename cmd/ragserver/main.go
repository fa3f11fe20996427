package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/solvik/ragserver/internal/api"
	"github.com/solvik/ragserver/internal/config"
	"github.com/solvik/ragserver/internal/embedding"
	"github.com/solvik/ragserver/internal/llm"
	"github.com/solvik/ragserver/internal/rag"
	"github.com/solvik/ragserver/internal/store"
	"github.com/solvik/ragserver/internal/vectorstore"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Starting ragserver...")

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/ragserver.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
	}
	logger.Info("Config loaded", zap.String("path", cfgPath))

	// Client model registry.
	registry, err := store.New(cfg.Postgres.DSN, logger)
	if err != nil {
		logger.Fatal("postgres unavailable", zap.Error(err))
	}
	if err := registry.Migrate(context.Background(), "migrations"); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	// Vector store. The process owns the connection lifecycle; pipelines
	// only borrow it per call.
	qdrant, err := vectorstore.NewClient(vectorstore.Config{
		Host:   cfg.Qdrant.Host,
		Port:   cfg.Qdrant.Port,
		APIKey: cfg.Qdrant.APIKey,
		UseTLS: cfg.Qdrant.UseTLS,
	}, logger)
	if err != nil {
		logger.Fatal("qdrant unavailable", zap.Error(err))
	}

	// Model dispatch tables.
	embCfgs := make([]embedding.Config, len(cfg.Embedding))
	for i, m := range cfg.Embedding {
		embCfgs[i] = embedding.Config{
			Name:      m.Name,
			Kind:      m.Kind,
			Endpoint:  m.Endpoint,
			APIKey:    m.APIKey,
			Dimension: m.Dimension,
			Timeout:   m.Timeout(),
		}
	}
	embedders := embedding.NewRegistry(embCfgs, logger)

	llmCfgs := make([]llm.Config, len(cfg.LLM))
	for i, m := range cfg.LLM {
		llmCfgs[i] = llm.Config{
			Name:        m.Name,
			Kind:        m.Kind,
			Endpoint:    m.Endpoint,
			APIKey:      m.APIKey,
			Temperature: m.Temperature,
			MaxTokens:   m.MaxTokens,
			Timeout:     m.Timeout(),
		}
	}
	generators := llm.NewRegistry(llmCfgs, logger)

	pipeline := rag.NewPipeline(embedders, generators, qdrant, logger)
	handler := api.NewHandler(registry, pipeline, logger)

	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("ragserver listening", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down ragserver...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
	qdrant.Close()
	registry.Close()
}

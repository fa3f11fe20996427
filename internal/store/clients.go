package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ErrClientNotFound is returned when no record exists for a client id.
var ErrClientNotFound = errors.New("store: client not found")

// Client is one client's model registration.
type Client struct {
	ClientID       string    `json:"client_id"`
	EmbeddingModel string    `json:"embedding_model"`
	LLMModel       string    `json:"llm_model"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SetModels creates the client record or overwrites both model settings
// for an existing one.
func (s *Store) SetModels(ctx context.Context, clientID, embeddingModel, llmModel string) (*Client, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO clients (client_id, embedding_model, llm_model)
		VALUES ($1, $2, $3)
		ON CONFLICT (client_id) DO UPDATE SET
			embedding_model = EXCLUDED.embedding_model,
			llm_model = EXCLUDED.llm_model,
			updated_at = NOW()
		RETURNING client_id, embedding_model, llm_model, created_at, updated_at`,
		clientID, embeddingModel, llmModel)

	var c Client
	if err := row.Scan(&c.ClientID, &c.EmbeddingModel, &c.LLMModel, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, fmt.Errorf("set models for client %s: %w", clientID, err)
	}
	return &c, nil
}

// Get retrieves a client by id.
func (s *Store) Get(ctx context.Context, clientID string) (*Client, error) {
	row := s.db.QueryRow(ctx, `
		SELECT client_id, embedding_model, llm_model, created_at, updated_at
		FROM clients WHERE client_id = $1`, clientID)

	var c Client
	if err := row.Scan(&c.ClientID, &c.EmbeddingModel, &c.LLMModel, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrClientNotFound, clientID)
		}
		return nil, fmt.Errorf("get client %s: %w", clientID, err)
	}
	return &c, nil
}

// UpdateModels changes one or both model settings for an existing client.
// Empty arguments leave the corresponding setting untouched.
func (s *Store) UpdateModels(ctx context.Context, clientID, embeddingModel, llmModel string) (*Client, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE clients SET
			embedding_model = COALESCE(NULLIF($2, ''), embedding_model),
			llm_model = COALESCE(NULLIF($3, ''), llm_model),
			updated_at = NOW()
		WHERE client_id = $1
		RETURNING client_id, embedding_model, llm_model, created_at, updated_at`,
		clientID, embeddingModel, llmModel)

	var c Client
	if err := row.Scan(&c.ClientID, &c.EmbeddingModel, &c.LLMModel, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrClientNotFound, clientID)
		}
		return nil, fmt.Errorf("update models for client %s: %w", clientID, err)
	}
	return &c, nil
}

// Package vectorstore wraps the Qdrant vector database behind the small
// surface the ingestion and query pipelines need: collection lifecycle,
// batch upserts, and top-k similarity search.
package vectorstore

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	pb "github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

var (
	// ErrCollectionNotFound is returned when an operation targets a
	// collection that does not exist. This is an expected, recoverable
	// condition on first query before any ingestion.
	ErrCollectionNotFound = errors.New("vectorstore: collection not found")
	// ErrDimensionMismatch is returned when a vector's length does not
	// match the collection's fixed dimensionality. Vectors are never
	// truncated or padded.
	ErrDimensionMismatch = errors.New("vectorstore: vector dimension mismatch")
)

// Config holds connection settings for a Qdrant instance.
type Config struct {
	Host    string        `json:"host"`
	Port    int           `json:"port"`
	APIKey  string        `json:"api_key"`
	UseTLS  bool          `json:"use_tls"`
	Timeout time.Duration `json:"-"` // per-operation bound; default 30s
}

// Client wraps gRPC connections to Qdrant's collections and points
// services. It is stateless and safe for concurrent use.
type Client struct {
	conn        *grpc.ClientConn
	collections pb.CollectionsClient
	points      pb.PointsClient
	timeout     time.Duration
	logger      *zap.Logger
}

// NewClient dials the Qdrant gRPC endpoint and returns a ready Client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	creds := insecure.NewCredentials()
	if cfg.UseTLS {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	opts := []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	if cfg.APIKey != "" {
		opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("qdrant connect %s: %w", addr, err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		conn:        conn,
		collections: pb.NewCollectionsClient(conn),
		points:      pb.NewPointsClient(conn),
		timeout:     timeout,
		logger:      logger,
	}, nil
}

// apiKeyInterceptor attaches the Qdrant api-key header to every call.
func apiKeyInterceptor(key string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{},
		cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", key)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

func (c *Client) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// CollectionExists reports whether the named collection exists.
func (c *Client) CollectionExists(ctx context.Context, name string) (bool, error) {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	_, err := c.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: name})
	if err == nil {
		return true, nil
	}
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	return false, fmt.Errorf("qdrant get collection %s: %w", name, err)
}

// CreateCollection creates the named collection with the given vector
// size and cosine distance. A concurrent create of the same collection
// is treated as success, so the exists-then-create sequence in the
// ingestion pipeline has no race.
func (c *Client) CreateCollection(ctx context.Context, name string, vectorSize uint64) error {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	_, err := c.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: name,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     vectorSize,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil
		}
		return fmt.Errorf("qdrant create collection %s: %w", name, err)
	}
	c.logger.Info("created collection",
		zap.String("collection", name), zap.Uint64("vector_size", vectorSize))
	return nil
}

// CollectionDimension returns the fixed vector size the collection was
// created with.
func (c *Client) CollectionDimension(ctx context.Context, name string) (uint64, error) {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	resp, err := c.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: name})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return 0, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
		}
		return 0, fmt.Errorf("qdrant get collection %s: %w", name, err)
	}

	params := resp.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams()
	if params == nil {
		return 0, fmt.Errorf("qdrant collection %s: no vector params", name)
	}
	return params.Size, nil
}

// ListCollections returns the names of all collections.
func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	resp, err := c.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return nil, fmt.Errorf("qdrant list collections: %w", err)
	}
	names := make([]string, 0, len(resp.Collections))
	for _, coll := range resp.Collections {
		names = append(names, coll.Name)
	}
	return names, nil
}

// Point is one chunk vector with its payload.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]string
}

// Upsert writes a batch of points into the collection. Every vector must
// match the collection's dimensionality; a mismatch fails the whole batch
// before anything is sent.
func (c *Client) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	dim, err := c.CollectionDimension(ctx, collection)
	if err != nil {
		return err
	}
	for i, p := range points {
		if uint64(len(p.Vector)) != dim {
			return fmt.Errorf("%w: collection %s expects %d, point %d has %d",
				ErrDimensionMismatch, collection, dim, i, len(p.Vector))
		}
	}

	pbPoints := make([]*pb.PointStruct, len(points))
	for i, p := range points {
		payload := make(map[string]*pb.Value, len(p.Payload))
		for k, v := range p.Payload {
			payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
		}
		pbPoints[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: p.ID}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: p.Vector}}},
			Payload: payload,
		}
	}

	ctx, cancel := c.opContext(ctx)
	defer cancel()

	_, err = c.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: collection,
		Points:         pbPoints,
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert %s: %w", collection, err)
	}
	return nil
}

// SearchResult holds a single vector search hit.
type SearchResult struct {
	ID      string
	Score   float32
	Payload map[string]string
}

// Search performs a nearest-neighbor search and returns the top-K results
// ordered by descending similarity under the collection's metric.
func (c *Client) Search(ctx context.Context, collection string, vector []float32, topK uint64) ([]SearchResult, error) {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	resp, err := c.points.Search(ctx, &pb.SearchPoints{
		CollectionName: collection,
		Vector:         vector,
		Limit:          topK,
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
		}
		return nil, fmt.Errorf("qdrant search %s: %w", collection, err)
	}

	results := make([]SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		payload := make(map[string]string, len(r.Payload))
		for k, v := range r.Payload {
			if sv, ok := v.Kind.(*pb.Value_StringValue); ok {
				payload[k] = sv.StringValue
			}
		}
		results = append(results, SearchResult{
			ID:      r.Id.GetUuid(),
			Score:   r.Score,
			Payload: payload,
		})
	}
	return results, nil
}

// Close tears down the underlying gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

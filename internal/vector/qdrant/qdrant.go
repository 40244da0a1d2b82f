// Package qdrant provides a Qdrant-backed vector.Repository.
package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/snarlhq/snarl/internal/observability"
	"github.com/snarlhq/snarl/internal/patterns"
	"github.com/snarlhq/snarl/internal/vector"
)

// Config holds Qdrant connection settings.
type Config struct {
	Host       string
	Port       int
	APIKey     string
	Collection string
}

// Repository implements vector.Repository over the Qdrant gRPC API.
type Repository struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
}

var _ vector.Repository = (*Repository)(nil)

// NewRepository opens a gRPC connection to Qdrant.
func NewRepository(ctx context.Context, cfg Config) (*Repository, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if cfg.APIKey != "" {
		opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	return &Repository{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  cfg.Collection,
	}, nil
}

// apiKeyInterceptor attaches the Qdrant api-key header to every call.
func apiKeyInterceptor(key string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", key)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// EnsureCollection creates the signature collection if it does not exist.
func (r *Repository) EnsureCollection(ctx context.Context) error {
	exists, err := r.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{
		CollectionName: r.collection,
	})
	if err != nil {
		return fmt.Errorf("qdrant collection check: %w", err)
	}
	if exists.GetResult().GetExists() {
		return nil
	}

	_, err = r.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: r.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(vector.SignatureDim),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant collection create: %w", err)
	}
	return nil
}

// UpsertResult archives one signature point per detected pattern and
// returns how many points were written.
func (r *Repository) UpsertResult(ctx context.Context, runID string, result *patterns.Result) (int, error) {
	if result == nil || len(result.Patterns) == 0 {
		return 0, nil
	}

	points := make([]*pb.PointStruct, len(result.Patterns))
	for i, p := range result.Patterns {
		payload := map[string]*pb.Value{
			"run_id":      {Kind: &pb.Value_StringValue{StringValue: runID}},
			"pattern_id":  {Kind: &pb.Value_StringValue{StringValue: p.ID}},
			"type":        {Kind: &pb.Value_StringValue{StringValue: string(p.Type)}},
			"severity":    {Kind: &pb.Value_StringValue{StringValue: string(p.Severity)}},
			"description": {Kind: &pb.Value_StringValue{StringValue: p.Description}},
		}
		points[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: PointID(runID, p.ID)}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: vector.Signature(p)}}},
			Payload: payload,
		}
	}

	_, err := r.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: r.collection,
		Points:         points,
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant upsert: %w", err)
	}
	observability.SignaturesArchived.Add(float64(len(points)))
	return len(points), nil
}

// SearchSimilar returns the closest archived signatures to the given
// pattern. A non-positive limit defaults to 10.
func (r *Repository) SearchSimilar(ctx context.Context, pattern patterns.DetectedPattern, limit int) ([]vector.Match, error) {
	if limit <= 0 {
		limit = 10
	}

	resp, err := r.points.Search(ctx, &pb.SearchPoints{
		CollectionName: r.collection,
		Vector:         vector.Signature(pattern),
		Limit:          uint64(limit),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}

	matches := make([]vector.Match, len(resp.Result))
	for i, pt := range resp.Result {
		payload := make(map[string]string, len(pt.Payload))
		for k, v := range pt.Payload {
			payload[k] = v.GetStringValue()
		}
		matches[i] = vector.Match{
			ID:      pt.Id.GetUuid(),
			Score:   pt.Score,
			Payload: payload,
		}
	}
	return matches, nil
}

// Close releases the underlying gRPC connection.
func (r *Repository) Close() error {
	return r.conn.Close()
}

// PointID derives a stable UUID for a pattern within a run.
// Re-archiving the same run overwrites points rather than duplicating them.
func PointID(runID, patternID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(runID+"/"+patternID)).String()
}

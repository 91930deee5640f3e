// Package store persists embedded chunks in Qdrant. Persistence is
// entirely outside the indexing core; the pipeline only produces the
// records written here.
package store

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// Record is one chunk prepared for storage: pipeline output plus the
// embedding vector and security flag attached by the indexer.
type Record struct {
	ID         string
	Path       string
	Language   string
	Backend    string
	ChunkIndex int
	Text       string
	TokenCount int
	StartUnit  int
	EndUnit    int
	Oversized  bool
	Degraded   bool
	HasSecrets bool
	Vector     []float32
}

// QdrantStore handles vector storage in Qdrant.
type QdrantStore struct {
	client *qdrant.Client
}

// NewQdrantStore connects to a Qdrant instance.
func NewQdrantStore(host string) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}

	return &QdrantStore{client: client}, nil
}

// Close closes the Qdrant connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// EnsureCollection creates the collection if it doesn't exist.
func (s *QdrantStore) EnsureCollection(ctx context.Context, name string, vectorSize int) error {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(vectorSize),
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

// DeleteCollection removes a collection.
func (s *QdrantStore) DeleteCollection(ctx context.Context, name string) error {
	return s.client.DeleteCollection(ctx, name)
}

// UpsertRecords inserts or updates chunk records.
func (s *QdrantStore) UpsertRecords(ctx context.Context, collection string, records []Record) error {
	points := make([]*qdrant.PointStruct, len(records))

	for i, r := range records {
		payload := map[string]interface{}{
			"path":        r.Path,
			"language":    r.Language,
			"backend":     r.Backend,
			"chunk_index": r.ChunkIndex,
			"text":        r.Text,
			"token_count": r.TokenCount,
			"start_unit":  r.StartUnit,
			"end_unit":    r.EndUnit,
			"oversized":   r.Oversized,
			"degraded":    r.Degraded,
			"has_secrets": r.HasSecrets,
		}

		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(r.ID),
			Vectors: qdrant.NewVectors(r.Vector...),
			Payload: qdrant.NewValueMap(payload),
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         points,
	})

	return err
}

// DeleteByPath removes all records of one file, used before re-indexing
// a changed file so stale chunks don't linger.
func (s *QdrantStore) DeleteByPath(ctx context.Context, collection, path string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				{
					ConditionOneOf: &qdrant.Condition_Field{
						Field: &qdrant.FieldCondition{
							Key: "path",
							Match: &qdrant.Match{
								MatchValue: &qdrant.Match_Keyword{Keyword: path},
							},
						},
					},
				},
			},
		}),
	})
	return err
}

// Count returns the number of stored records in a collection.
func (s *QdrantStore) Count(ctx context.Context, collection string) (int64, error) {
	info, err := s.client.GetCollectionInfo(ctx, collection)
	if err != nil {
		return 0, err
	}
	if info.PointsCount == nil {
		return 0, nil
	}
	return int64(*info.PointsCount), nil
}

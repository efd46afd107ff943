package vectorstore

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantIndex stores points in a qdrant collection over gRPC.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
}

func NewQdrantIndex(ctx context.Context, addr, collection string, dimensions int) (*QdrantIndex, error) {
	host, port := parseHostPort(addr, "localhost", 6334)

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	exists, err := client.CollectionExists(ctx, collection)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to check qdrant collection: %w", err)
	}

	if !exists {
		err := client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dimensions),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to create qdrant collection: %w", err)
		}
	}

	return &QdrantIndex{client: client, collection: collection}, nil
}

func (q *QdrantIndex) Upsert(ctx context.Context, points []Point) error {
	upsertPoints := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		upsertPoints = append(upsertPoints, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"document_id": p.DocumentID,
				"chunk_id":    p.ChunkID,
				"text":        p.Text,
			}),
		})
	}

	wait := true
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Wait:           &wait,
		Points:         upsertPoints,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	return nil
}

func (q *QdrantIndex) Search(ctx context.Context, vector []float32, limit int) ([]Match, error) {
	topK := uint64(limit)

	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &topK,
		WithPayload: &qdrant.WithPayloadSelector{
			SelectorOptions: &qdrant.WithPayloadSelector_Enable{
				Enable: true,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}

	matches := make([]Match, 0, len(points))
	for _, p := range points {
		m := Match{ID: p.GetId().GetUuid(), Score: p.GetScore()}
		if v, ok := p.Payload["document_id"]; ok {
			m.DocumentID = v.GetStringValue()
		}
		if v, ok := p.Payload["chunk_id"]; ok {
			m.ChunkID = v.GetStringValue()
		}
		if v, ok := p.Payload["text"]; ok {
			m.Text = v.GetStringValue()
		}
		matches = append(matches, m)
	}

	return matches, nil
}

func (q *QdrantIndex) DeleteDocument(ctx context.Context, documentID string) error {
	wait := true
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Wait:           &wait,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("document_id", documentID),
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to delete document points: %w", err)
	}

	return nil
}

func (q *QdrantIndex) Close() error {
	return q.client.Close()
}

func parseHostPort(addr string, defaultHost string, defaultPort int) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return defaultHost, defaultPort
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, defaultPort
	}
	return host, port
}

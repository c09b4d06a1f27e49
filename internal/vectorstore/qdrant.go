package vectorstore

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantStore backs the facade with a qdrant collection, following the same
// client-plus-collection-name shape as the teacher's retriever/qdrant
// repository. A single *qdrant.Client is safe for concurrent use, so no
// extra locking is needed beyond what the client library already does.
type QdrantStore struct {
	client         *qdrant.Client
	collectionName string
	dimensions     uint64
}

// NewQdrantStore dials addr and binds to collectionName. The collection is
// created on first Load if it does not already exist.
func NewQdrantStore(addr string, collectionName string, dimensions uint64) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{Host: addr, Port: 6334})
	if err != nil {
		return nil, fmt.Errorf("dial qdrant: %w", err)
	}
	return &QdrantStore{client: client, collectionName: collectionName, dimensions: dimensions}, nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collectionName)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if exists {
		return nil
	}
	return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.dimensions,
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

func (s *QdrantStore) Load(ctx context.Context, docs []Document, overwrite bool) error {
	if err := s.ensureCollection(ctx); err != nil {
		return err
	}
	if overwrite {
		if err := s.client.DeleteCollection(ctx, s.collectionName); err != nil {
			return fmt.Errorf("clear collection: %w", err)
		}
		if err := s.ensureCollection(ctx); err != nil {
			return err
		}
	}

	points := make([]*qdrant.PointStruct, 0, len(docs))
	for _, d := range docs {
		payload := map[string]any{"text": d.Text}
		for k, v := range d.Attributes {
			payload[k] = v
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(d.ID),
			Vectors: qdrant.NewVectors(toFloat32Slice(d.Vector)...),
			Payload: qdrant.NewValueMap(payload),
		})
	}
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collectionName,
		Points:         points,
	})
	return err
}

func (s *QdrantStore) SearchByVector(ctx context.Context, vec []float32, k int, filter *IDFilter) ([]SearchResult, error) {
	limit := uint64(k)
	req := &qdrant.QueryPoints{
		CollectionName: s.collectionName,
		Query:          qdrant.NewQuery(vec...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if filter != nil && len(filter.IDs) > 0 {
		ids := make([]string, 0, len(filter.IDs))
		for id := range filter.IDs {
			ids = append(ids, id)
		}
		req.Filter = &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatchKeywords("id", ids...)},
		}
	}
	points, err := s.client.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("query qdrant: %w", err)
	}

	results := make([]SearchResult, 0, len(points))
	for _, p := range points {
		attrs := map[string]any{}
		text := ""
		for k, v := range p.GetPayload() {
			if k == "text" {
				text = v.GetStringValue()
				continue
			}
			attrs[k] = v
		}
		results = append(results, SearchResult{
			Document: Document{ID: idToString(p.GetId()), Text: text, Attributes: attrs},
			Score:    float64(p.GetScore()),
		})
	}
	return results, nil
}

func (s *QdrantStore) SearchByText(ctx context.Context, text string, embed EmbedFunc, k int, filter *IDFilter) ([]SearchResult, error) {
	vec, err := embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return s.SearchByVector(ctx, vec, k, filter)
}

func (s *QdrantStore) FilterByID(ids []string) *IDFilter {
	return NewIDFilter(ids)
}

func toFloat32Slice(v []float32) []float32 { return v }

func idToString(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if u := id.GetUuid(); u != "" {
		return u
	}
	return fmt.Sprintf("%d", id.GetNum())
}

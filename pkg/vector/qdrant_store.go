package vector

import (
	"context"
	"fmt"
	"time"

	"github.com/andrew/llm-rag-poc/pkg/models"
	qdrantclient "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// payload field names used on every point stored in Qdrant.
const (
	fieldContent    = "content"
	fieldDocumentID = "document_id"
	fieldTitle      = "title"
	fieldSource     = "source"
	fieldSection    = "section"
	fieldDomain     = "domain"
)

// QdrantStore is a Store backed by a real Qdrant collection over gRPC.
type QdrantStore struct {
	conn       *grpc.ClientConn
	collection string
	points     qdrantclient.PointsClient
	collClient qdrantclient.CollectionsClient
}

// NewQdrantStore dials Qdrant at addr (host:grpc-port) and ensures the
// named collection exists with the given vector dimension, cosine
// distance, matching the collection setup in this codebase's existing
// indexer tooling.
func NewQdrantStore(ctx context.Context, addr, collection string, dimension int) (*QdrantStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connect to qdrant at %s: %w", addr, err)
	}

	s := &QdrantStore{
		conn:       conn,
		collection: collection,
		points:     qdrantclient.NewPointsClient(conn),
		collClient: qdrantclient.NewCollectionsClient(conn),
	}

	if err := s.ensureCollection(ctx, dimension); err != nil {
		conn.Close()
		return nil, err
	}

	return s, nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context, dimension int) error {
	collections, err := s.collClient.List(ctx, &qdrantclient.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}

	for _, col := range collections.GetCollections() {
		if col.GetName() == s.collection {
			return nil
		}
	}

	_, err = s.collClient.Create(ctx, &qdrantclient.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &qdrantclient.VectorsConfig{
			Config: &qdrantclient.VectorsConfig_Params{
				Params: &qdrantclient.VectorParams{
					Size:     uint64(dimension),
					Distance: qdrantclient.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", s.collection, err)
	}
	return nil
}

// Upsert stores a chunk's embedding and payload in the collection. The
// chunk's ID is used as the point ID, so re-ingesting the same chunk ID
// overwrites the previous vector and payload.
func (s *QdrantStore) Upsert(ctx context.Context, chunk models.Chunk) error {
	if len(chunk.Embedding) == 0 {
		return fmt.Errorf("upsert chunk %s: embedding is empty", chunk.ID)
	}

	point := &qdrantclient.PointStruct{
		Id: &qdrantclient.PointId{
			PointIdOptions: &qdrantclient.PointId_Uuid{Uuid: chunk.ID},
		},
		Vectors: &qdrantclient.Vectors{
			VectorsOptions: &qdrantclient.Vectors_Vector{
				Vector: &qdrantclient.Vector{Data: chunk.Embedding},
			},
		},
		Payload: map[string]*qdrantclient.Value{
			fieldContent:    {Kind: &qdrantclient.Value_StringValue{StringValue: chunk.Content}},
			fieldDocumentID: {Kind: &qdrantclient.Value_StringValue{StringValue: chunk.DocumentID}},
			fieldTitle:      {Kind: &qdrantclient.Value_StringValue{StringValue: chunk.Title}},
			fieldSource:     {Kind: &qdrantclient.Value_StringValue{StringValue: chunk.Source}},
			fieldSection:    {Kind: &qdrantclient.Value_StringValue{StringValue: chunk.Section}},
			fieldDomain:     {Kind: &qdrantclient.Value_StringValue{StringValue: chunk.Domain}},
		},
	}

	_, err := s.points.Upsert(ctx, &qdrantclient.UpsertPoints{
		CollectionName: s.collection,
		Points:         []*qdrantclient.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("upsert point %s: %w", chunk.ID, err)
	}
	return nil
}

// Search runs a cosine-similarity search, optionally filtered to a single
// domain, drops results below opts.ScoreFloor, and assigns a 1-based rank
// in score order.
func (s *QdrantStore) Search(ctx context.Context, queryVector []float32, opts SearchOptions) ([]models.RetrievedPassage, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 5
	}

	req := &qdrantclient.SearchPoints{
		CollectionName: s.collection,
		Vector:         queryVector,
		Limit:          uint64(limit),
		WithPayload: &qdrantclient.WithPayloadSelector{
			SelectorOptions: &qdrantclient.WithPayloadSelector_Enable{Enable: true},
		},
	}

	if opts.DomainFilter != "" {
		req.Filter = &qdrantclient.Filter{
			Must: []*qdrantclient.Condition{
				{
					ConditionOneOf: &qdrantclient.Condition_Field{
						Field: &qdrantclient.FieldCondition{
							Key: fieldDomain,
							Match: &qdrantclient.Match{
								MatchValue: &qdrantclient.Match_Keyword{Keyword: opts.DomainFilter},
							},
						},
					},
				},
			},
		}
	}

	resp, err := s.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search collection %s: %w", s.collection, err)
	}

	passages := make([]models.RetrievedPassage, 0, len(resp.GetResult()))
	rank := 0
	for _, point := range resp.GetResult() {
		score := point.GetScore()
		if score < opts.ScoreFloor {
			continue
		}
		rank++

		chunk := models.Chunk{
			Content:    stringPayload(point.Payload, fieldContent),
			DocumentID: stringPayload(point.Payload, fieldDocumentID),
			Title:      stringPayload(point.Payload, fieldTitle),
			Source:     stringPayload(point.Payload, fieldSource),
			Section:    stringPayload(point.Payload, fieldSection),
			Domain:     stringPayload(point.Payload, fieldDomain),
		}
		if id := point.GetId(); id != nil {
			if uuidVal, ok := id.PointIdOptions.(*qdrantclient.PointId_Uuid); ok {
				chunk.ID = uuidVal.Uuid
			}
		}

		passages = append(passages, models.RetrievedPassage{
			Chunk: chunk,
			Score: score,
			Rank:  rank,
		})
	}

	return passages, nil
}

func stringPayload(payload map[string]*qdrantclient.Value, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

// Delete removes a point from the collection by ID.
func (s *QdrantStore) Delete(ctx context.Context, id string) error {
	_, err := s.points.Delete(ctx, &qdrantclient.DeletePoints{
		CollectionName: s.collection,
		Points: &qdrantclient.PointsSelector{
			PointsSelectorOneOf: &qdrantclient.PointsSelector_Points{
				Points: &qdrantclient.PointsIdsList{
					Ids: []*qdrantclient.PointId{
						{PointIdOptions: &qdrantclient.PointId_Uuid{Uuid: id}},
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("delete point %s: %w", id, err)
	}
	return nil
}

// Close releases the underlying gRPC connection.
func (s *QdrantStore) Close() error {
	return s.conn.Close()
}

// Healthy reports whether the Qdrant server is reachable, used by the
// /api/health endpoint.
func (s *QdrantStore) Healthy(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := s.collClient.List(ctx, &qdrantclient.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("qdrant unreachable: %w", err)
	}
	return nil
}

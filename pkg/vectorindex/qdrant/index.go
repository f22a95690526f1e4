package qdrant

import (
	"context"
	"fmt"

	"docchat-be/pkg/vectorindex"

	"github.com/qdrant/go-client/qdrant"
)

// indexingThreshold is restored by EnableIndexing; collections start at zero so
// bulk uploads are not indexed point by point.
const indexingThreshold uint64 = 20000

// client is the subset of *qdrant.Client this backend relies on.
type client interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	UpdateCollection(ctx context.Context, request *qdrant.UpdateCollection) error
	GetCollectionInfo(ctx context.Context, collectionName string) (*qdrant.CollectionInfo, error)
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	DeleteCollection(ctx context.Context, collectionName string) error
}

type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

type Index struct {
	client client
}

func NewIndex(cfg Config) (*Index, *qdrant.Client, error) {
	c, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect to qdrant: %w", err)
	}
	return &Index{client: c}, c, nil
}

func (i *Index) CollectionExists(ctx context.Context, name string) (bool, error) {
	return i.client.CollectionExists(ctx, name)
}

func (i *Index) CreateCollection(ctx context.Context, name string, dimension int) error {
	return i.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
		OptimizersConfig: &qdrant.OptimizersConfigDiff{
			IndexingThreshold: qdrant.PtrOf(uint64(0)),
		},
	})
}

func (i *Index) CollectionDimension(ctx context.Context, name string) (int, error) {
	exists, err := i.client.CollectionExists(ctx, name)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, vectorindex.ErrCollectionNotFound
	}

	info, err := i.client.GetCollectionInfo(ctx, name)
	if err != nil {
		return 0, err
	}
	size := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
	if size == 0 {
		return 0, fmt.Errorf("collection %s has no single vector configuration", name)
	}
	return int(size), nil
}

func (i *Index) Upsert(ctx context.Context, name string, points []vectorindex.Point) error {
	structs := make([]*qdrant.PointStruct, len(points))
	for k, p := range points {
		structs[k] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(p.Payload.ToMap()),
		}
	}

	_, err := i.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: name,
		Wait:           qdrant.PtrOf(true),
		Points:         structs,
	})
	return err
}

func (i *Index) Search(ctx context.Context, name string, vector []float32, opts vectorindex.SearchOptions) ([]vectorindex.Match, error) {
	req := &qdrant.QueryPoints{
		CollectionName: name,
		Query:          qdrant.NewQuery(vector...),
		ScoreThreshold: qdrant.PtrOf(opts.ScoreThreshold),
		WithPayload:    qdrant.NewWithPayload(opts.WithPayload),
	}
	if opts.Limit > 0 {
		req.Limit = qdrant.PtrOf(uint64(opts.Limit))
	}

	scored, err := i.client.Query(ctx, req)
	if err != nil {
		return nil, err
	}

	matches := make([]vectorindex.Match, 0, len(scored))
	for _, sp := range scored {
		m := vectorindex.Match{
			ID:    sp.GetId().GetNum(),
			Score: sp.GetScore(),
		}
		if opts.WithPayload {
			m.Payload = payloadFromValues(sp.GetPayload())
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func (i *Index) DeleteCollection(ctx context.Context, name string) error {
	exists, err := i.client.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return vectorindex.ErrCollectionNotFound
	}
	return i.client.DeleteCollection(ctx, name)
}

func (i *Index) EnableIndexing(ctx context.Context, name string) error {
	return i.client.UpdateCollection(ctx, &qdrant.UpdateCollection{
		CollectionName: name,
		OptimizersConfig: &qdrant.OptimizersConfigDiff{
			IndexingThreshold: qdrant.PtrOf(indexingThreshold),
		},
	})
}

func payloadFromValues(values map[string]*qdrant.Value) *vectorindex.Payload {
	return &vectorindex.Payload{
		Text:       values[vectorindex.PayloadText].GetStringValue(),
		DocumentID: values[vectorindex.PayloadDocumentID].GetStringValue(),
		Title:      values[vectorindex.PayloadTitle].GetStringValue(),
		ChunkIndex: int(values[vectorindex.PayloadChunkIndex].GetIntegerValue()),
	}
}

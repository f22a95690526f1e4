package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"docchat-be/internal/entity"
	"docchat-be/internal/repository/contract"
	"docchat-be/internal/repository/specification"

	"github.com/patrickmn/go-cache"
)

// DocumentRepository is the STORE_BACKEND=memory document store. Records never
// expire. Specifications are interpreted for the types the services use.
type DocumentRepository struct {
	cache *cache.Cache
	mu    sync.Mutex
}

func NewDocumentRepository() *DocumentRepository {
	return &DocumentRepository{cache: cache.New(cache.NoExpiration, 0)}
}

var _ contract.DocumentRepository = (*DocumentRepository)(nil)

func (r *DocumentRepository) Create(ctx context.Context, document *entity.Document) error {
	c := *document
	if err := r.cache.Add(document.Id.String(), &c, cache.NoExpiration); err != nil {
		return fmt.Errorf("document %s already exists", document.Id)
	}
	return nil
}

func (r *DocumentRepository) all() []*entity.Document {
	items := r.cache.Items()
	docs := make([]*entity.Document, 0, len(items))
	for _, item := range items {
		c := *item.Object.(*entity.Document)
		docs = append(docs, &c)
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.Before(docs[j].CreatedAt)
	})
	return docs
}

// documentOrder maps the sortable columns onto entity comparisons.
var documentOrder = map[string]func(a, b *entity.Document) bool{
	"created_at":  func(a, b *entity.Document) bool { return a.CreatedAt.Before(b.CreatedAt) },
	"updated_at":  func(a, b *entity.Document) bool { return a.UpdatedAt.Before(b.UpdatedAt) },
	"title":       func(a, b *entity.Document) bool { return a.Title < b.Title },
	"status":      func(a, b *entity.Document) bool { return a.Status < b.Status },
	"chunk_count": func(a, b *entity.Document) bool { return a.ChunkCount < b.ChunkCount },
}

func (r *DocumentRepository) query(specs ...specification.Specification) ([]*entity.Document, error) {
	docs := r.all()
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			docs = filter(docs, func(d *entity.Document) bool { return d.Id == s.ID })
		case specification.ByStatus:
			docs = filter(docs, func(d *entity.Document) bool { return d.Status == s.Status })
		case specification.OrderBy:
			less, ok := documentOrder[s.Field]
			if !ok {
				return nil, fmt.Errorf("cannot order documents by %q", s.Field)
			}
			sort.SliceStable(docs, func(i, j int) bool {
				if s.Desc {
					return less(docs[j], docs[i])
				}
				return less(docs[i], docs[j])
			})
		case specification.Pagination:
			start := s.Offset
			if start > len(docs) {
				start = len(docs)
			}
			end := len(docs)
			if s.Limit > 0 && start+s.Limit < end {
				end = start + s.Limit
			}
			docs = docs[start:end]
		}
	}
	return docs, nil
}

func filter(docs []*entity.Document, keep func(*entity.Document) bool) []*entity.Document {
	out := docs[:0]
	for _, d := range docs {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

func (r *DocumentRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error) {
	docs, err := r.query(specs...)
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return docs[0], nil
}

func (r *DocumentRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error) {
	return r.query(specs...)
}

func (r *DocumentRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	docs, err := r.query(specs...)
	if err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}

func (r *DocumentRepository) SaveTransition(ctx context.Context, document *entity.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	x, found := r.cache.Get(document.Id.String())
	if !found {
		return fmt.Errorf("document %s not found", document.Id)
	}
	if x.(*entity.Document).Status != entity.DocumentStatusProcessing {
		return fmt.Errorf("%w: document %s is no longer processing", entity.ErrInvalidTransition, document.Id)
	}

	c := *document
	r.cache.Set(document.Id.String(), &c, cache.NoExpiration)
	return nil
}

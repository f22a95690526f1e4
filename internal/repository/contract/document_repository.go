package contract

import (
	"context"

	"docchat-be/internal/entity"
	"docchat-be/internal/repository/specification"
)

type DocumentRepository interface {
	Create(ctx context.Context, document *entity.Document) error
	// FindOne returns (nil, nil) when nothing matches.
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// SaveTransition persists a terminal status. It only succeeds while the stored
	// record is still PROCESSING, otherwise it returns entity.ErrInvalidTransition.
	SaveTransition(ctx context.Context, document *entity.Document) error
}

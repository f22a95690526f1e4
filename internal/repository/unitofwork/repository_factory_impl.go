package unitofwork

import (
	"context"

	"docchat-be/internal/repository/contract"

	"gorm.io/gorm"
)

type RepositoryFactoryImpl struct {
	db *gorm.DB
}

func NewRepositoryFactory(db *gorm.DB) RepositoryFactory {
	return &RepositoryFactoryImpl{
		db: db,
	}
}

// NewUnitOfWork is short lived, one per request.
func (f *RepositoryFactoryImpl) NewUnitOfWork(ctx context.Context) UnitOfWork {
	return NewUnitOfWork(f.db)
}

// memoryUnitOfWork hands out shared in-process repositories. Begin/Commit/Rollback
// are no-ops because each repository call is already atomic.
type memoryUnitOfWork struct {
	documents contract.DocumentRepository
	sessions  contract.ChatSessionRepository
}

func (u *memoryUnitOfWork) Begin(ctx context.Context) error { return nil }
func (u *memoryUnitOfWork) Commit() error                   { return nil }
func (u *memoryUnitOfWork) Rollback() error                 { return nil }

func (u *memoryUnitOfWork) DocumentRepository() contract.DocumentRepository {
	return u.documents
}

func (u *memoryUnitOfWork) ChatSessionRepository() contract.ChatSessionRepository {
	return u.sessions
}

type memoryRepositoryFactory struct {
	uow *memoryUnitOfWork
}

func NewMemoryRepositoryFactory(documents contract.DocumentRepository, sessions contract.ChatSessionRepository) RepositoryFactory {
	return &memoryRepositoryFactory{
		uow: &memoryUnitOfWork{documents: documents, sessions: sessions},
	}
}

func (f *memoryRepositoryFactory) NewUnitOfWork(ctx context.Context) UnitOfWork {
	return f.uow
}

package service

import (
	"context"
	"fmt"

	"docchat-be/internal/dto"
	"docchat-be/internal/entity"
	"docchat-be/internal/repository/specification"
	"docchat-be/internal/repository/unitofwork"
	"docchat-be/pkg/progress"

	"github.com/google/uuid"
)

const defaultListLimit = 20

type IDocumentService interface {
	Show(ctx context.Context, id uuid.UUID) (*dto.ShowDocumentResponse, error)
	Progress(ctx context.Context, id uuid.UUID) (*dto.DocumentProgressResponse, error)
	List(ctx context.Context, req *dto.ListDocumentsRequest) (*dto.ListDocumentsResponse, error)
}

type documentService struct {
	uowFactory unitofwork.RepositoryFactory
	tracker    progress.Tracker
}

func NewDocumentService(uowFactory unitofwork.RepositoryFactory, tracker progress.Tracker) IDocumentService {
	return &documentService{
		uowFactory: uowFactory,
		tracker:    tracker,
	}
}

func (s *documentService) find(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	doc, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	return doc, nil
}

func (s *documentService) Show(ctx context.Context, id uuid.UUID) (*dto.ShowDocumentResponse, error) {
	doc, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return toShowDocumentResponse(doc), nil
}

// Progress reports the last observed upload position. A READY document always
// reports complete, whatever the tracker still holds.
func (s *documentService) Progress(ctx context.Context, id uuid.UUID) (*dto.DocumentProgressResponse, error) {
	doc, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	res := &dto.DocumentProgressResponse{
		DocumentId: doc.Id,
		Status:     string(doc.Status),
		Total:      doc.ChunkCount,
	}

	if doc.Status == entity.DocumentStatusReady {
		res.Uploaded = doc.ChunkCount
		return res, nil
	}

	snap, err := s.tracker.Get(ctx, doc.Id.String())
	if err != nil {
		return nil, err
	}
	if snap != nil {
		res.Uploaded = snap.Uploaded
		res.Total = snap.Total
		res.UpdatedAt = &snap.UpdatedAt
	}
	return res, nil
}

func (s *documentService) List(ctx context.Context, req *dto.ListDocumentsRequest) (*dto.ListDocumentsResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	var filters []specification.Specification
	if req.Status != "" {
		filters = append(filters, specification.ByStatus{Status: entity.DocumentStatus(req.Status)})
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	total, err := uow.DocumentRepository().Count(ctx, filters...)
	if err != nil {
		return nil, err
	}

	specs := append(filters,
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: req.Offset},
	)
	docs, err := uow.DocumentRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	res := &dto.ListDocumentsResponse{
		Documents: make([]*dto.ShowDocumentResponse, 0, len(docs)),
		Total:     total,
	}
	for _, doc := range docs {
		res.Documents = append(res.Documents, toShowDocumentResponse(doc))
	}
	return res, nil
}

func toShowDocumentResponse(doc *entity.Document) *dto.ShowDocumentResponse {
	return &dto.ShowDocumentResponse{
		Id:            doc.Id,
		Title:         doc.Title,
		FileName:      doc.FileName,
		ByteSize:      doc.ByteSize,
		Chunks:        doc.ChunkCount,
		Status:        string(doc.Status),
		Collection:    doc.Collection,
		FailureReason: doc.FailureReason,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}
}

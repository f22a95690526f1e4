package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docchat-be/internal/dto"
	"docchat-be/internal/pkg/logger"
)

const defaultLogLimit = 50

type ISystemLogService interface {
	GetLogs(ctx context.Context, req *dto.ListLogsRequest) ([]*dto.LogListResponse, error)
	GetLogDetail(ctx context.Context, id string) (*dto.LogDetailResponse, error)
}

type systemLogService struct {
	logger logger.ILogger
}

func NewSystemLogService(logger logger.ILogger) ISystemLogService {
	return &systemLogService{logger: logger}
}

func (s *systemLogService) GetLogs(ctx context.Context, req *dto.ListLogsRequest) ([]*dto.LogListResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLogLimit
	}

	entries, err := s.logger.GetLogs(req.Level, limit, req.Offset)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.LogListResponse, 0, len(entries))
	for _, entry := range entries {
		item := toLogListResponse(entry)
		res = append(res, &item)
	}
	return res, nil
}

func (s *systemLogService) GetLogDetail(ctx context.Context, id string) (*dto.LogDetailResponse, error) {
	entry, err := s.logger.GetLogById(id)
	if err != nil {
		if errors.Is(err, logger.ErrLogNotFound) {
			return nil, fmt.Errorf("%w: log %s", ErrNotFound, id)
		}
		return nil, err
	}
	return &dto.LogDetailResponse{
		LogListResponse: toLogListResponse(*entry),
		Details:         entry.Details,
	}, nil
}

func toLogListResponse(entry logger.LogEntry) dto.LogListResponse {
	createdAt, _ := time.Parse("2006-01-02T15:04:05.000Z0700", entry.Timestamp)
	return dto.LogListResponse{
		Id:        entry.Id,
		Level:     entry.Level,
		Module:    entry.Module,
		Message:   entry.Message,
		CreatedAt: createdAt,
	}
}

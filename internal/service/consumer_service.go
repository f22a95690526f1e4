package service

import (
	"context"
	"encoding/json"
	"errors"

	"docchat-be/internal/dto"
	"docchat-be/internal/entity"
	"docchat-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	ingestion  IIngestionService
	logger     logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	ingestion IIngestionService,
	logger logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		ingestion:  ingestion,
		logger:     logger,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

// processMessage acks every outcome the saga has already settled. Only a failure
// to load the record is retried, because nothing has been written yet.
func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.IndexDocumentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("Consumer", "Failed to unmarshal indexing job", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	doc, err := cs.ingestion.Index(ctx, payload.DocumentId, payload.Chunks)
	switch {
	case err == nil:
		cs.logger.Info("Consumer", "Indexing job completed", map[string]interface{}{
			"document_id": doc.Id.String(),
			"chunks":      doc.ChunkCount,
		})
		msg.Ack()
	case errors.Is(err, ErrDocumentNotFound), errors.Is(err, entity.ErrInvalidTransition):
		cs.logger.Warn("Consumer", "Dropping indexing job", map[string]interface{}{
			"document_id": payload.DocumentId.String(),
			"error":       err.Error(),
		})
		msg.Ack()
	case ctx.Err() != nil:
		msg.Nack()
	default:
		// the document is FAILED and its collection removed, a retry would hit a terminal record
		cs.logger.Error("Consumer", "Indexing job failed", map[string]interface{}{
			"document_id": payload.DocumentId.String(),
			"error":       err.Error(),
		})
		msg.Ack()
	}
}

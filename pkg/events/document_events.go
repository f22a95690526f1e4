package events

import "time"

const (
	TypeDocumentReady  = "DOCUMENT_READY"
	TypeDocumentFailed = "DOCUMENT_FAILED"
)

func NewDocumentReady(documentID, title, collection string, chunks int) BaseEvent {
	return BaseEvent{
		Type: TypeDocumentReady,
		Data: map[string]interface{}{
			"document_id": documentID,
			"title":       title,
			"collection":  collection,
			"chunks":      chunks,
		},
		OccurredAt: time.Now(),
	}
}

func NewDocumentFailed(documentID, title, reason string) BaseEvent {
	return BaseEvent{
		Type: TypeDocumentFailed,
		Data: map[string]interface{}{
			"document_id": documentID,
			"title":       title,
			"reason":      reason,
		},
		OccurredAt: time.Now(),
	}
}

package entity

import (
	"time"

	"github.com/google/uuid"
)

type TurnRole string

const (
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
)

type Turn struct {
	Role    TurnRole `json:"role"`
	Content string   `json:"content"`
}

// ChatSession is bound to one document for its whole lifetime.
type ChatSession struct {
	Id         string
	DocumentId uuid.UUID
	Turns      []Turn
	Summary    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

package entity

import (
	"time"

	"github.com/google/uuid"
)

type ConversationTurn struct {
	Id            uuid.UUID
	Role          string
	Content       string
	ChatSessionId uuid.UUID
	UserId        uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     *time.Time
	DeletedAt     *time.Time
	IsDeleted     bool
}

package mapper

import (
	"time"

	"ai-context-engine/internal/entity"
	"ai-context-engine/internal/model"

	"gorm.io/gorm"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// Session Mappers

func (m *ChatMapper) ChatSessionToEntity(s *model.ChatSession) *entity.ChatSession {
	if s == nil {
		return nil
	}

	var deletedAt *time.Time
	if s.DeletedAt.Valid {
		t := s.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.ChatSession{
		Id:        s.Id,
		UserId:    s.UserId,
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
		IsDeleted: s.DeletedAt.Valid,
	}
}

func (m *ChatMapper) ChatSessionToModel(s *entity.ChatSession) *model.ChatSession {
	if s == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if s.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *s.DeletedAt, Valid: true}
	} else if s.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.ChatSession{
		Id:        s.Id,
		UserId:    s.UserId,
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
	}
}

// Turn Mappers

func (m *ChatMapper) ConversationTurnToEntity(turn *model.ConversationTurn) *entity.ConversationTurn {
	if turn == nil {
		return nil
	}

	var deletedAt *time.Time
	if turn.DeletedAt.Valid {
		t := turn.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !turn.UpdatedAt.IsZero() {
		t := turn.UpdatedAt
		updatedAt = &t
	}

	return &entity.ConversationTurn{
		Id:            turn.Id,
		Role:          turn.Role,
		Content:       turn.Content,
		ChatSessionId: turn.ChatSessionId,
		UserId:        turn.UserId,
		CreatedAt:     turn.CreatedAt,
		UpdatedAt:     updatedAt,
		DeletedAt:     deletedAt,
		IsDeleted:     turn.DeletedAt.Valid,
	}
}

func (m *ChatMapper) ConversationTurnToModel(turn *entity.ConversationTurn) *model.ConversationTurn {
	if turn == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if turn.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *turn.DeletedAt, Valid: true}
	} else if turn.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if turn.UpdatedAt != nil {
		updatedAt = *turn.UpdatedAt
	}

	return &model.ConversationTurn{
		Id:            turn.Id,
		Role:          turn.Role,
		Content:       turn.Content,
		ChatSessionId: turn.ChatSessionId,
		UserId:        turn.UserId,
		CreatedAt:     turn.CreatedAt,
		UpdatedAt:     updatedAt,
		DeletedAt:     deletedAt,
	}
}

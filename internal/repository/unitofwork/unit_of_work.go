package unitofwork

import (
	"context"

	"ai-context-engine/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	DocumentRepository() contract.DocumentRepository
	ChatSessionRepository() contract.ChatSessionRepository
	ConversationTurnRepository() contract.ConversationTurnRepository
	ProviderAccountRepository() contract.ProviderAccountRepository
	ServiceKeyRepository() contract.ServiceKeyRepository
}

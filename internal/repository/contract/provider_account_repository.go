package contract

import (
	"context"

	"ai-context-engine/internal/entity"
	"ai-context-engine/internal/repository/specification"

	"github.com/google/uuid"
)

type ProviderAccountRepository interface {
	Create(ctx context.Context, account *entity.ProviderAccount) error
	Update(ctx context.Context, account *entity.ProviderAccount) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ProviderAccount, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ProviderAccount, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}

package contract

import (
	"context"

	"ai-context-engine/internal/entity"
	"ai-context-engine/internal/repository/specification"
)

type ServiceKeyRepository interface {
	Create(ctx context.Context, key *entity.ServiceKey) error
	Update(ctx context.Context, key *entity.ServiceKey) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ServiceKey, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ServiceKey, error)
}

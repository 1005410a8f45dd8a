package implementation

import (
	"context"
	"errors"

	"ai-context-engine/internal/entity"
	"ai-context-engine/internal/mapper"
	"ai-context-engine/internal/model"
	"ai-context-engine/internal/repository/contract"
	"ai-context-engine/internal/repository/specification"

	"gorm.io/gorm"
)

type ServiceKeyRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AccountMapper
}

func NewServiceKeyRepository(db *gorm.DB) contract.ServiceKeyRepository {
	return &ServiceKeyRepositoryImpl{
		db:     db,
		mapper: mapper.NewAccountMapper(),
	}
}

func (r *ServiceKeyRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ServiceKeyRepositoryImpl) Create(ctx context.Context, key *entity.ServiceKey) error {
	m := r.mapper.ServiceKeyToModel(key)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*key = *r.mapper.ServiceKeyToEntity(m)
	return nil
}

func (r *ServiceKeyRepositoryImpl) Update(ctx context.Context, key *entity.ServiceKey) error {
	m := r.mapper.ServiceKeyToModel(key)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*key = *r.mapper.ServiceKeyToEntity(m)
	return nil
}

func (r *ServiceKeyRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ServiceKey, error) {
	var m model.ServiceKey
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ServiceKeyToEntity(&m), nil
}

func (r *ServiceKeyRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ServiceKey, error) {
	var models []*model.ServiceKey
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ServiceKey, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ServiceKeyToEntity(m)
	}
	return entities, nil
}

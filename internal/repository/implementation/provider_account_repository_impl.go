package implementation

import (
	"context"
	"errors"

	"ai-context-engine/internal/entity"
	"ai-context-engine/internal/mapper"
	"ai-context-engine/internal/model"
	"ai-context-engine/internal/repository/contract"
	"ai-context-engine/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProviderAccountRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AccountMapper
}

func NewProviderAccountRepository(db *gorm.DB) contract.ProviderAccountRepository {
	return &ProviderAccountRepositoryImpl{
		db:     db,
		mapper: mapper.NewAccountMapper(),
	}
}

func (r *ProviderAccountRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ProviderAccountRepositoryImpl) Create(ctx context.Context, account *entity.ProviderAccount) error {
	m := r.mapper.ProviderAccountToModel(account)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*account = *r.mapper.ProviderAccountToEntity(m)
	return nil
}

func (r *ProviderAccountRepositoryImpl) Update(ctx context.Context, account *entity.ProviderAccount) error {
	m := r.mapper.ProviderAccountToModel(account)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*account = *r.mapper.ProviderAccountToEntity(m)
	return nil
}

func (r *ProviderAccountRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.ProviderAccount{}, id).Error
}

func (r *ProviderAccountRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ProviderAccount, error) {
	var m model.ProviderAccount
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ProviderAccountToEntity(&m), nil
}

func (r *ProviderAccountRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ProviderAccount, error) {
	var models []*model.ProviderAccount
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ProviderAccount, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ProviderAccountToEntity(m)
	}
	return entities, nil
}

func (r *ProviderAccountRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.ProviderAccount{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

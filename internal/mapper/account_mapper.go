package mapper

import (
	"time"

	"ai-context-engine/internal/entity"
	"ai-context-engine/internal/model"

	"gorm.io/gorm"
)

type AccountMapper struct{}

func NewAccountMapper() *AccountMapper {
	return &AccountMapper{}
}

func (m *AccountMapper) ProviderAccountToEntity(acc *model.ProviderAccount) *entity.ProviderAccount {
	if acc == nil {
		return nil
	}

	var deletedAt *time.Time
	if acc.DeletedAt.Valid {
		t := acc.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !acc.UpdatedAt.IsZero() {
		t := acc.UpdatedAt
		updatedAt = &t
	}

	return &entity.ProviderAccount{
		Id:           acc.Id,
		UserId:       acc.UserId,
		Provider:     acc.Provider,
		Email:        acc.Email,
		AccessToken:  acc.AccessToken,
		RefreshToken: acc.RefreshToken,
		TokenExpiry:  acc.TokenExpiry,
		IsPrimary:    acc.IsPrimary,
		CreatedAt:    acc.CreatedAt,
		UpdatedAt:    updatedAt,
		DeletedAt:    deletedAt,
		IsDeleted:    acc.DeletedAt.Valid,
	}
}

func (m *AccountMapper) ProviderAccountToModel(acc *entity.ProviderAccount) *model.ProviderAccount {
	if acc == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if acc.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *acc.DeletedAt, Valid: true}
	} else if acc.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if acc.UpdatedAt != nil {
		updatedAt = *acc.UpdatedAt
	}

	return &model.ProviderAccount{
		Id:           acc.Id,
		UserId:       acc.UserId,
		Provider:     acc.Provider,
		Email:        acc.Email,
		AccessToken:  acc.AccessToken,
		RefreshToken: acc.RefreshToken,
		TokenExpiry:  acc.TokenExpiry,
		IsPrimary:    acc.IsPrimary,
		CreatedAt:    acc.CreatedAt,
		UpdatedAt:    updatedAt,
		DeletedAt:    deletedAt,
	}
}

func (m *AccountMapper) ServiceKeyToEntity(key *model.ServiceKey) *entity.ServiceKey {
	if key == nil {
		return nil
	}
	return &entity.ServiceKey{
		Id:        key.Id,
		Name:      key.Name,
		KeyHash:   key.KeyHash,
		CreatedAt: key.CreatedAt,
		RevokedAt: key.RevokedAt,
	}
}

func (m *AccountMapper) ServiceKeyToModel(key *entity.ServiceKey) *model.ServiceKey {
	if key == nil {
		return nil
	}
	return &model.ServiceKey{
		Id:        key.Id,
		Name:      key.Name,
		KeyHash:   key.KeyHash,
		CreatedAt: key.CreatedAt,
		RevokedAt: key.RevokedAt,
	}
}

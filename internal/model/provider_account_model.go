package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProviderAccount struct {
	Id           uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId       uuid.UUID      `gorm:"type:uuid;not null;index"`
	Provider     string         `gorm:"type:varchar(50);not null;default:'google'"`
	Email        string         `gorm:"type:varchar(255);not null"`
	AccessToken  string         `gorm:"type:text"`
	RefreshToken string         `gorm:"type:text"`
	TokenExpiry  *time.Time
	IsPrimary    bool           `gorm:"default:false"`
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime"`
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

func (ProviderAccount) TableName() string {
	return "provider_accounts"
}

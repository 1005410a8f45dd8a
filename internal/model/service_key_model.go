package model

import (
	"time"

	"github.com/google/uuid"
)

type ServiceKey struct {
	Id        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string     `gorm:"type:varchar(100);not null;uniqueIndex"`
	KeyHash   string     `gorm:"type:text;not null"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	RevokedAt *time.Time
}

func (ServiceKey) TableName() string {
	return "service_keys"
}

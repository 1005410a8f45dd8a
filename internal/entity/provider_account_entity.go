package entity

import (
	"time"

	"github.com/google/uuid"
)

// ProviderAccount is a linked external account (currently always google).
// AccessToken is short lived; RefreshToken is exchanged on expiry.
type ProviderAccount struct {
	Id           uuid.UUID
	UserId       uuid.UUID
	Provider     string
	Email        string
	AccessToken  string
	RefreshToken string
	TokenExpiry  *time.Time
	IsPrimary    bool
	CreatedAt    time.Time
	UpdatedAt    *time.Time
	DeletedAt    *time.Time
	IsDeleted    bool
}

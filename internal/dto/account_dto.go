package dto

import (
	"time"

	"github.com/google/uuid"
)

// UpsertAccountRequest links (or refreshes) an external provider account for
// a user. Posted by the identity layer after an OAuth consent completes.
type UpsertAccountRequest struct {
	UserId       uuid.UUID `json:"user_id" validate:"required"`
	Provider     string    `json:"provider" validate:"required,oneof=google"`
	Email        string    `json:"email" validate:"required,email"`
	RefreshToken string    `json:"refresh_token" validate:"required"`
	IsPrimary    bool      `json:"is_primary"`
}

type UpsertAccountResponse struct {
	Id uuid.UUID `json:"id"`
}

type GetAccountResponse struct {
	Id        uuid.UUID `json:"id"`
	Provider  string    `json:"provider"`
	Email     string    `json:"email"`
	IsPrimary bool      `json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
}

package entity

import (
	"time"

	"github.com/google/uuid"
)

// ServiceKey authenticates ingestion bridges on the /internal routes.
// KeyHash is a bcrypt hash; the raw key is shown once at creation.
type ServiceKey struct {
	Id        uuid.UUID
	Name      string
	KeyHash   string
	CreatedAt time.Time
	RevokedAt *time.Time
}

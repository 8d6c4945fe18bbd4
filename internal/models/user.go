package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleSuperAdmin = "SUPER_ADMIN"
	RoleAdmin      = "ADMIN"
	RoleClient     = "CLIENT"
)

// User is the canonical user document. The password hash never leaves the
// store; everything else is mirrored verbatim into the users search index.
type User struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username         string    `gorm:"size:100;not null" json:"username"`
	Email            string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Password         string    `gorm:"not null" json:"-"`
	Role             string    `gorm:"size:20;not null;default:'CLIENT'" json:"role"`
	StripeCustomerID string    `gorm:"size:255" json:"stripeCustomerId,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func ValidRole(role string) bool {
	switch role {
	case RoleSuperAdmin, RoleAdmin, RoleClient:
		return true
	}
	return false
}

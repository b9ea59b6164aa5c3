package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// Account is a login identity. Enrollees who set a password at enrollment
// own one; admins are seeded from configuration.
type Account struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Email        string              `bson:"email" json:"email"`
	PasswordHash string              `bson:"password_hash" json:"-"`
	Role         UserRole            `bson:"role" json:"role"`
	EnrolleeID   *primitive.ObjectID `bson:"enrollee_id,omitempty" json:"enrollee_id,omitempty"`
	LastLoginAt  *time.Time          `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`
	CreatedAt    time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time           `bson:"updated_at" json:"updated_at"`
}

// Caller is the authenticated identity attached to a request.
type Caller struct {
	AccountID  string
	Email      string
	Role       UserRole
	EnrolleeID string
}

func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

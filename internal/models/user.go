// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// Roles a user account can hold.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Credential providers. Local accounts carry a password hash; externally
// authenticated accounts carry the provider's subject identifier instead.
const (
	ProviderManual = "manual"
	ProviderAuth0  = "auth0"
)

// User represents a registered forum member.
//
// A local account and an external-provider account sharing the same email
// are distinct rows; credential lookups always filter by AuthProvider.
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Username     string         `gorm:"uniqueIndex;not null" json:"username"`
	Email        string         `gorm:"index:idx_users_email_provider,unique" json:"email"`
	PasswordHash string         `json:"-"`
	Role         string         `gorm:"not null;default:user" json:"role"`
	AuthProvider string         `gorm:"not null;default:manual;index:idx_users_provider_subject;index:idx_users_email_provider,unique" json:"auth_provider"`
	ExternalID   *string        `gorm:"index:idx_users_provider_subject" json:"-"`
	Bio          string         `json:"bio"`
	Avatar       string         `gorm:"type:text" json:"avatar"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Posts        []Post         `gorm:"foreignKey:UserID" json:"posts,omitempty"`
}

// UserSummary is the public projection returned by user listings.
// The password hash is never part of any read path.
type UserSummary struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

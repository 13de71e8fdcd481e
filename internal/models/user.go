package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Role is the coarse account type; fine-grained permissions are derived from it.
type Role string

const (
	RoleFreelancer Role = "freelancer"
	RoleClient     Role = "client"
	RoleAdmin      Role = "admin"
)

// Roles lists every assignable role.
var Roles = []string{string(RoleFreelancer), string(RoleClient), string(RoleAdmin)}

// User represents an authenticated account.
type User struct {
	ID              string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	Name            string     `gorm:"size:50;not null" json:"name"`
	Email           string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password        string     `gorm:"size:255;not null" json:"-"` // bcrypt hash, never exposed
	Role            Role       `gorm:"size:20;not null;default:'freelancer'" json:"role"`
	Avatar          string     `gorm:"size:500" json:"avatar,omitempty"`
	IsEmailVerified bool       `gorm:"not null;default:false" json:"isEmailVerified"`
	LastLoginAt     *time.Time `json:"lastLoginAt,omitempty"`
	IsActive        bool       `gorm:"not null;default:true" json:"isActive"`
}

// BeforeCreate assigns an id and normalizes the email.
func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = newID()
	}
	u.Email = NormalizeEmail(u.Email)
	if u.Role == "" {
		u.Role = RoleFreelancer
	}
	return nil
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// NormalizeEmail lowercases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

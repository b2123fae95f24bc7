// Package models contains data structures for the application's domain models.
package models

import "time"

// UserRole is the authorization role of an account.
type UserRole string

// Account roles.
const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// UserStatus is the lifecycle state of an account.
type UserStatus string

// Account states. Deleted is terminal.
const (
	StatusActive    UserStatus = "active"
	StatusSuspended UserStatus = "suspended"
	StatusDeleted   UserStatus = "deleted"
)

// Valid reports whether s is a known status.
func (s UserStatus) Valid() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusDeleted:
		return true
	}
	return false
}

// CanTransitionTo reports whether the state machine allows moving from s to next.
// active <-> suspended, active/suspended -> deleted; nothing leaves deleted.
func (s UserStatus) CanTransitionTo(next UserStatus) bool {
	switch s {
	case StatusActive:
		return next == StatusSuspended || next == StatusDeleted
	case StatusSuspended:
		return next == StatusActive || next == StatusDeleted
	}
	return false
}

// User represents an account.
type User struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Email      string     `gorm:"not null;uniqueIndex:uq_users_email" json:"email"`
	Nickname   string     `gorm:"not null;uniqueIndex:uq_users_nickname" json:"nickname"`
	Password   string     `gorm:"not null" json:"-"`
	ProfileURL *string    `json:"profile_url,omitempty"`
	Role       UserRole   `gorm:"not null;default:user" json:"role"`
	Status     UserStatus `gorm:"not null;default:active" json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TableName overrides the table name used by User to `users`.
func (User) TableName() string {
	return "users"
}

// IsActive reports whether the user may author content.
func (u *User) IsActive() bool {
	return u != nil && u.Status == StatusActive
}

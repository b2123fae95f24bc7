package models

import "time"

// Category groups posts. Every post belongs to exactly one.
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null;uniqueIndex:uq_categories_name" json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName overrides the table name used by Category to `categories`.
func (Category) TableName() string {
	return "categories"
}

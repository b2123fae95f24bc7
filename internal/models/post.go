package models

import "time"

// Post represents a post authored by a user in a category.
type Post struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Title      string `gorm:"not null" json:"title"`
	Content    string `gorm:"type:text;not null" json:"content"`
	UserID     uint   `gorm:"not null;index" json:"user_id"`
	CategoryID uint   `gorm:"not null;index" json:"category_id"`
	// LikesCount is maintained by the like service only.
	LikesCount int       `gorm:"not null;default:0" json:"likes_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Tags is populated on demand and never persisted through the post row.
	Tags []Tag `gorm:"-" json:"tags,omitempty"`
}

// TableName overrides the table name used by Post to `posts`.
func (Post) TableName() string {
	return "posts"
}

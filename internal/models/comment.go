package models

import "time"

// Comment represents a comment on a post. ParentID, when set, points at a
// top-level comment on the same post.
type Comment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	PostID     uint      `gorm:"not null;index" json:"post_id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	ParentID   *uint     `gorm:"index" json:"parent_id,omitempty"`
	LikesCount int       `gorm:"not null;default:0" json:"likes_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Replies []Comment `gorm:"-" json:"replies,omitempty"`
}

// TableName overrides the table name used by Comment to `comments`.
func (Comment) TableName() string {
	return "comments"
}

// IsTopLevel reports whether the comment has no parent.
func (c *Comment) IsTopLevel() bool {
	return c.ParentID == nil
}

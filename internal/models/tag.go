package models

import "time"

// Tag is a free-form label attached to posts.
type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null;uniqueIndex:uq_tags_name" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName overrides the table name used by Tag to `tags`.
func (Tag) TableName() string {
	return "tags"
}

// PostTag is the join row between a post and a tag.
type PostTag struct {
	PostID    uint      `gorm:"primaryKey;autoIncrement:false" json:"post_id"`
	TagID     uint      `gorm:"primaryKey;autoIncrement:false" json:"tag_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName overrides the table name used by PostTag to `post_tags`.
func (PostTag) TableName() string {
	return "post_tags"
}

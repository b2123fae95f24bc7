package models

import "time"

// TargetType names the kind of entity a like points at.
type TargetType string

// Likeable targets.
const (
	TargetPost    TargetType = "post"
	TargetComment TargetType = "comment"
)

// Valid reports whether t is a likeable target type.
func (t TargetType) Valid() bool {
	return t == TargetPost || t == TargetComment
}

// Like represents a user's like on a post or comment.
// The combination of UserID, TargetType and TargetID must be unique.
// TargetID has no foreign key; the like service checks the target exists.
type Like struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;uniqueIndex:uq_likes_user_target" json:"user_id"`
	TargetType TargetType `gorm:"not null;uniqueIndex:uq_likes_user_target" json:"target_type"`
	TargetID   uint       `gorm:"not null;uniqueIndex:uq_likes_user_target" json:"target_id"`
	CreatedAt  time.Time  `json:"created_at"`
}

// TableName overrides the table name used by Like to `likes`.
func (Like) TableName() string {
	return "likes"
}

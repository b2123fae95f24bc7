package repository

import (
	"context"

	"agora/internal/models"

	"gorm.io/gorm"
)

// CommentFilter narrows List and Count. TopLevelOnly keeps comments without a parent.
type CommentFilter struct {
	PostID       *uint
	UserID       *uint
	ParentID     *uint
	TopLevelOnly bool
	Limit        int
	Offset       int
}

// CommentPatch lists the comment fields an update may change.
type CommentPatch struct {
	Content *string
}

func (p CommentPatch) changes() map[string]any {
	m := make(map[string]any)
	if p.Content != nil {
		m["content"] = *p.Content
	}
	return m
}

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Comment, error)
	Create(ctx context.Context, comment *models.Comment) (*models.Comment, error)
	Update(ctx context.Context, id uint, patch CommentPatch) (*models.Comment, error)
	Delete(ctx context.Context, id uint) (bool, error)
	List(ctx context.Context, filter CommentFilter) ([]models.Comment, error)
	Count(ctx context.Context, filter CommentFilter) (int64, error)
	AdjustLikesCount(ctx context.Context, id uint, delta int) (bool, error)
}

type commentRepository struct {
	base
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{base: newBase(db, "comments")}
}

func (r *commentRepository) FindByID(ctx context.Context, id uint) (*models.Comment, error) {
	defer r.track("find_by_id")()
	comment, err := takeOrNil[models.Comment](r.conn(ctx).Where("id = ?", id))
	if err != nil {
		return nil, r.fail(ctx, "find_by_id", err)
	}
	return comment, nil
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) (*models.Comment, error) {
	done := r.track("create")
	err := r.conn(ctx).Create(comment).Error
	done()
	if err != nil {
		return nil, r.fail(ctx, "create", err)
	}
	r.log.LogCreate(ctx, map[string]any{"id": comment.ID, "post_id": comment.PostID})
	return r.FindByID(ctx, comment.ID)
}

func (r *commentRepository) Update(ctx context.Context, id uint, patch CommentPatch) (*models.Comment, error) {
	changes := patch.changes()
	if len(changes) == 0 {
		return r.FindByID(ctx, id)
	}

	done := r.track("update")
	matched, err := applyUpdates(r.conn(ctx), &models.Comment{}, id, changes)
	done()
	if err != nil {
		return nil, r.fail(ctx, "update", err)
	}
	if !matched {
		return nil, nil
	}
	r.log.LogUpdate(ctx, map[string]any{"id": id})
	return r.FindByID(ctx, id)
}

// Delete removes the comment; its replies and likes go with it through the schema.
func (r *commentRepository) Delete(ctx context.Context, id uint) (bool, error) {
	defer r.track("delete")()
	res := r.conn(ctx).Where("id = ?", id).Delete(&models.Comment{})
	if res.Error != nil {
		return false, r.fail(ctx, "delete", res.Error)
	}
	if res.RowsAffected > 0 {
		r.log.LogDelete(ctx, map[string]any{"id": id})
	}
	return res.RowsAffected > 0, nil
}

func (r *commentRepository) filtered(ctx context.Context, f CommentFilter) *gorm.DB {
	q := r.conn(ctx).Model(&models.Comment{})
	if f.PostID != nil {
		q = q.Where("post_id = ?", *f.PostID)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.ParentID != nil {
		q = q.Where("parent_id = ?", *f.ParentID)
	}
	if f.TopLevelOnly {
		q = q.Where("parent_id IS NULL")
	}
	return q
}

func (r *commentRepository) List(ctx context.Context, filter CommentFilter) ([]models.Comment, error) {
	defer r.track("list")()
	var comments []models.Comment
	q := paginate(r.filtered(ctx, filter).Order("created_at ASC, id ASC"), filter.Limit, filter.Offset)
	if err := q.Find(&comments).Error; err != nil {
		return nil, r.fail(ctx, "list", err)
	}
	return comments, nil
}

func (r *commentRepository) Count(ctx context.Context, filter CommentFilter) (int64, error) {
	defer r.track("count")()
	var n int64
	if err := r.filtered(ctx, filter).Count(&n).Error; err != nil {
		return 0, r.fail(ctx, "count", err)
	}
	return n, nil
}

// AdjustLikesCount adds delta to the counter. It reports false when the comment
// is missing or the counter would drop below zero.
func (r *commentRepository) AdjustLikesCount(ctx context.Context, id uint, delta int) (bool, error) {
	defer r.track("adjust_likes_count")()
	ok, err := adjustCounter(r.conn(ctx), &models.Comment{}, id, delta)
	if err != nil {
		return false, r.fail(ctx, "adjust_likes_count", err)
	}
	return ok, nil
}

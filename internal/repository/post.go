package repository

import (
	"context"

	"agora/internal/models"

	"gorm.io/gorm"
)

// PostFilter narrows List and Count. TagID matches posts carrying that tag.
type PostFilter struct {
	UserID     *uint
	CategoryID *uint
	TagID      *uint
	Limit      int
	Offset     int
}

// PostPatch lists the post fields an update may change.
type PostPatch struct {
	Title      *string
	Content    *string
	CategoryID *uint
}

func (p PostPatch) changes() map[string]any {
	m := make(map[string]any)
	if p.Title != nil {
		m["title"] = *p.Title
	}
	if p.Content != nil {
		m["content"] = *p.Content
	}
	if p.CategoryID != nil {
		m["category_id"] = *p.CategoryID
	}
	return m
}

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Post, error)
	Create(ctx context.Context, post *models.Post) (*models.Post, error)
	Update(ctx context.Context, id uint, patch PostPatch) (*models.Post, error)
	Delete(ctx context.Context, id uint) (bool, error)
	List(ctx context.Context, filter PostFilter) ([]models.Post, error)
	Count(ctx context.Context, filter PostFilter) (int64, error)
	AdjustLikesCount(ctx context.Context, id uint, delta int) (bool, error)
}

type postRepository struct {
	base
}

// NewPostRepository returns a new PostRepository implementation.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{base: newBase(db, "posts")}
}

func (r *postRepository) FindByID(ctx context.Context, id uint) (*models.Post, error) {
	defer r.track("find_by_id")()
	post, err := takeOrNil[models.Post](r.conn(ctx).Where("id = ?", id))
	if err != nil {
		return nil, r.fail(ctx, "find_by_id", err)
	}
	return post, nil
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	done := r.track("create")
	err := r.conn(ctx).Create(post).Error
	done()
	if err != nil {
		return nil, r.fail(ctx, "create", err)
	}
	r.log.LogCreate(ctx, map[string]any{"id": post.ID, "user_id": post.UserID})
	return r.FindByID(ctx, post.ID)
}

func (r *postRepository) Update(ctx context.Context, id uint, patch PostPatch) (*models.Post, error) {
	changes := patch.changes()
	if len(changes) == 0 {
		return r.FindByID(ctx, id)
	}

	done := r.track("update")
	matched, err := applyUpdates(r.conn(ctx), &models.Post{}, id, changes)
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

// Delete removes the post. Comments, tag links and likes go with it through the schema.
func (r *postRepository) Delete(ctx context.Context, id uint) (bool, error) {
	defer r.track("delete")()
	res := r.conn(ctx).Where("id = ?", id).Delete(&models.Post{})
	if res.Error != nil {
		return false, r.fail(ctx, "delete", res.Error)
	}
	if res.RowsAffected > 0 {
		r.log.LogDelete(ctx, map[string]any{"id": id})
	}
	return res.RowsAffected > 0, nil
}

func (r *postRepository) filtered(ctx context.Context, f PostFilter) *gorm.DB {
	q := r.conn(ctx).Model(&models.Post{})
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.TagID != nil {
		q = q.Where("id IN (?)", r.conn(ctx).Model(&models.PostTag{}).Select("post_id").Where("tag_id = ?", *f.TagID))
	}
	return q
}

func (r *postRepository) List(ctx context.Context, filter PostFilter) ([]models.Post, error) {
	defer r.track("list")()
	var posts []models.Post
	q := paginate(r.filtered(ctx, filter).Order("created_at DESC, id DESC"), filter.Limit, filter.Offset)
	if err := q.Find(&posts).Error; err != nil {
		return nil, r.fail(ctx, "list", err)
	}
	return posts, nil
}

func (r *postRepository) Count(ctx context.Context, filter PostFilter) (int64, error) {
	defer r.track("count")()
	var n int64
	if err := r.filtered(ctx, filter).Count(&n).Error; err != nil {
		return 0, r.fail(ctx, "count", err)
	}
	return n, nil
}

// AdjustLikesCount adds delta to the counter. It reports false when the post is
// missing or the counter would drop below zero.
func (r *postRepository) AdjustLikesCount(ctx context.Context, id uint, delta int) (bool, error) {
	defer r.track("adjust_likes_count")()
	ok, err := adjustCounter(r.conn(ctx), &models.Post{}, id, delta)
	if err != nil {
		return false, r.fail(ctx, "adjust_likes_count", err)
	}
	return ok, nil
}

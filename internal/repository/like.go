package repository

import (
	"context"

	"agora/internal/models"

	"gorm.io/gorm"
)

// LikeFilter narrows List and Count.
type LikeFilter struct {
	UserID     *uint
	TargetType *models.TargetType
	TargetID   *uint
	Limit      int
	Offset     int
}

// LikeRepository defines persistence operations for likes.
// Counters on the liked rows are not touched here.
type LikeRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Like, error)
	Find(ctx context.Context, userID uint, targetType models.TargetType, targetID uint) (*models.Like, error)
	Exists(ctx context.Context, userID uint, targetType models.TargetType, targetID uint) (bool, error)
	Create(ctx context.Context, like *models.Like) (*models.Like, error)
	Delete(ctx context.Context, userID uint, targetType models.TargetType, targetID uint) (bool, error)
	CountByTarget(ctx context.Context, targetType models.TargetType, targetID uint) (int64, error)
	List(ctx context.Context, filter LikeFilter) ([]models.Like, error)
	Count(ctx context.Context, filter LikeFilter) (int64, error)
}

type likeRepository struct {
	base
}

// NewLikeRepository returns a new LikeRepository implementation.
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{base: newBase(db, "likes")}
}

func (r *likeRepository) FindByID(ctx context.Context, id uint) (*models.Like, error) {
	defer r.track("find_by_id")()
	like, err := takeOrNil[models.Like](r.conn(ctx).Where("id = ?", id))
	if err != nil {
		return nil, r.fail(ctx, "find_by_id", err)
	}
	return like, nil
}

func (r *likeRepository) tuple(ctx context.Context, userID uint, targetType models.TargetType, targetID uint) *gorm.DB {
	return r.conn(ctx).Model(&models.Like{}).
		Where("user_id = ? AND target_type = ? AND target_id = ?", userID, string(targetType), targetID)
}

func (r *likeRepository) Find(ctx context.Context, userID uint, targetType models.TargetType, targetID uint) (*models.Like, error) {
	defer r.track("find")()
	like, err := takeOrNil[models.Like](r.tuple(ctx, userID, targetType, targetID))
	if err != nil {
		return nil, r.fail(ctx, "find", err)
	}
	return like, nil
}

func (r *likeRepository) Exists(ctx context.Context, userID uint, targetType models.TargetType, targetID uint) (bool, error) {
	defer r.track("exists")()
	found, err := exists(r.tuple(ctx, userID, targetType, targetID))
	if err != nil {
		return false, r.fail(ctx, "exists", err)
	}
	return found, nil
}

// Create inserts the like. A duplicate tuple surfaces as a unique constraint violation.
func (r *likeRepository) Create(ctx context.Context, like *models.Like) (*models.Like, error) {
	done := r.track("create")
	err := r.conn(ctx).Create(like).Error
	done()
	if err != nil {
		return nil, r.fail(ctx, "create", err)
	}
	r.log.LogCreate(ctx, map[string]any{"id": like.ID, "target_type": like.TargetType, "target_id": like.TargetID})
	return r.FindByID(ctx, like.ID)
}

func (r *likeRepository) Delete(ctx context.Context, userID uint, targetType models.TargetType, targetID uint) (bool, error) {
	defer r.track("delete")()
	res := r.conn(ctx).
		Where("user_id = ? AND target_type = ? AND target_id = ?", userID, string(targetType), targetID).
		Delete(&models.Like{})
	if res.Error != nil {
		return false, r.fail(ctx, "delete", res.Error)
	}
	if res.RowsAffected > 0 {
		r.log.LogDelete(ctx, map[string]any{"user_id": userID, "target_type": targetType, "target_id": targetID})
	}
	return res.RowsAffected > 0, nil
}

func (r *likeRepository) CountByTarget(ctx context.Context, targetType models.TargetType, targetID uint) (int64, error) {
	return r.Count(ctx, LikeFilter{TargetType: &targetType, TargetID: &targetID})
}

func (r *likeRepository) filtered(ctx context.Context, f LikeFilter) *gorm.DB {
	q := r.conn(ctx).Model(&models.Like{})
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.TargetType != nil {
		q = q.Where("target_type = ?", string(*f.TargetType))
	}
	if f.TargetID != nil {
		q = q.Where("target_id = ?", *f.TargetID)
	}
	return q
}

func (r *likeRepository) List(ctx context.Context, filter LikeFilter) ([]models.Like, error) {
	defer r.track("list")()
	var likes []models.Like
	q := paginate(r.filtered(ctx, filter).Order("created_at DESC, id DESC"), filter.Limit, filter.Offset)
	if err := q.Find(&likes).Error; err != nil {
		return nil, r.fail(ctx, "list", err)
	}
	return likes, nil
}

func (r *likeRepository) Count(ctx context.Context, filter LikeFilter) (int64, error) {
	defer r.track("count")()
	var n int64
	if err := r.filtered(ctx, filter).Count(&n).Error; err != nil {
		return 0, r.fail(ctx, "count", err)
	}
	return n, nil
}

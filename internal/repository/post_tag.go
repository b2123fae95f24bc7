package repository

import (
	"context"

	"agora/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostTagRepository defines persistence operations for post/tag associations.
type PostTagRepository interface {
	Create(ctx context.Context, postID, tagID uint) (bool, error)
	Exists(ctx context.Context, postID, tagID uint) (bool, error)
	Delete(ctx context.Context, postID, tagID uint) (bool, error)
	ListTagsForPost(ctx context.Context, postID uint) ([]models.Tag, error)
	ListPostIDsForTag(ctx context.Context, tagID uint) ([]uint, error)
	CountByPost(ctx context.Context, postID uint) (int64, error)
}

type postTagRepository struct {
	base
}

// NewPostTagRepository returns a new PostTagRepository implementation.
func NewPostTagRepository(db *gorm.DB) PostTagRepository {
	return &postTagRepository{base: newBase(db, "post_tags")}
}

// Create links the post and tag. An existing link is left as is and reported as false.
func (r *postTagRepository) Create(ctx context.Context, postID, tagID uint) (bool, error) {
	defer r.track("create")()
	link := models.PostTag{PostID: postID, TagID: tagID}
	res := r.conn(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}, {Name: "tag_id"}},
			DoNothing: true,
		}).
		Create(&link)
	if res.Error != nil {
		return false, r.fail(ctx, "create", res.Error)
	}
	if res.RowsAffected > 0 {
		r.log.LogCreate(ctx, map[string]any{"post_id": postID, "tag_id": tagID})
	}
	return res.RowsAffected > 0, nil
}

func (r *postTagRepository) Exists(ctx context.Context, postID, tagID uint) (bool, error) {
	defer r.track("exists")()
	found, err := exists(r.conn(ctx).Model(&models.PostTag{}).Where("post_id = ? AND tag_id = ?", postID, tagID))
	if err != nil {
		return false, r.fail(ctx, "exists", err)
	}
	return found, nil
}

func (r *postTagRepository) Delete(ctx context.Context, postID, tagID uint) (bool, error) {
	defer r.track("delete")()
	res := r.conn(ctx).Where("post_id = ? AND tag_id = ?", postID, tagID).Delete(&models.PostTag{})
	if res.Error != nil {
		return false, r.fail(ctx, "delete", res.Error)
	}
	if res.RowsAffected > 0 {
		r.log.LogDelete(ctx, map[string]any{"post_id": postID, "tag_id": tagID})
	}
	return res.RowsAffected > 0, nil
}

func (r *postTagRepository) ListTagsForPost(ctx context.Context, postID uint) ([]models.Tag, error) {
	defer r.track("list_tags_for_post")()
	var tags []models.Tag
	err := r.conn(ctx).
		Model(&models.Tag{}).
		Joins("JOIN post_tags ON post_tags.tag_id = tags.id").
		Where("post_tags.post_id = ?", postID).
		Order("tags.name ASC").
		Find(&tags).Error
	if err != nil {
		return nil, r.fail(ctx, "list_tags_for_post", err)
	}
	return tags, nil
}

func (r *postTagRepository) ListPostIDsForTag(ctx context.Context, tagID uint) ([]uint, error) {
	defer r.track("list_post_ids_for_tag")()
	var ids []uint
	err := r.conn(ctx).Model(&models.PostTag{}).Where("tag_id = ?", tagID).Order("post_id ASC").Pluck("post_id", &ids).Error
	if err != nil {
		return nil, r.fail(ctx, "list_post_ids_for_tag", err)
	}
	return ids, nil
}

func (r *postTagRepository) CountByPost(ctx context.Context, postID uint) (int64, error) {
	defer r.track("count_by_post")()
	var n int64
	if err := r.conn(ctx).Model(&models.PostTag{}).Where("post_id = ?", postID).Count(&n).Error; err != nil {
		return 0, r.fail(ctx, "count_by_post", err)
	}
	return n, nil
}

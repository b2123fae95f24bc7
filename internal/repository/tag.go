package repository

import (
	"context"

	"agora/internal/cache"
	"agora/internal/database"
	"agora/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TagFilter narrows List and Count.
type TagFilter struct {
	Name   *string
	Limit  int
	Offset int
}

// TagPatch lists the tag fields an update may change.
type TagPatch struct {
	Name *string
}

// TagRepository defines persistence operations for tags.
type TagRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Tag, error)
	FindByName(ctx context.Context, name string) (*models.Tag, error)
	ExistsByName(ctx context.Context, name string, excludeID uint) (bool, error)
	Create(ctx context.Context, tag *models.Tag) (*models.Tag, error)
	FindOrCreate(ctx context.Context, name string) (*models.Tag, bool, error)
	Update(ctx context.Context, id uint, patch TagPatch) (*models.Tag, error)
	Delete(ctx context.Context, id uint) (bool, error)
	List(ctx context.Context, filter TagFilter) ([]models.Tag, error)
	Count(ctx context.Context, filter TagFilter) (int64, error)
}

type tagRepository struct {
	base
	cache *cache.Cache
}

// NewTagRepository returns a TagRepository. Point lookups go through c outside
// transactions; c may be nil.
func NewTagRepository(db *gorm.DB, c *cache.Cache) TagRepository {
	return &tagRepository{base: newBase(db, "tags"), cache: c}
}

func (r *tagRepository) fetch(ctx context.Context, operation, column string, value any) (*models.Tag, error) {
	defer r.track(operation)()
	tag, err := takeOrNil[models.Tag](r.conn(ctx).Where(column+" = ?", value))
	if err != nil {
		return nil, r.fail(ctx, operation, err)
	}
	return tag, nil
}

func (r *tagRepository) findBy(ctx context.Context, operation, key, column string, value any) (*models.Tag, error) {
	if database.InTx(ctx) {
		return r.fetch(ctx, operation, column, value)
	}

	var tag models.Tag
	ok, err := r.cache.Aside(ctx, key, &tag, cache.TagTTL, func() (bool, error) {
		found, err := r.fetch(ctx, operation, column, value)
		if err != nil || found == nil {
			return false, err
		}
		tag = *found
		return true, nil
	})
	if err != nil || !ok {
		return nil, err
	}
	return &tag, nil
}

func (r *tagRepository) FindByID(ctx context.Context, id uint) (*models.Tag, error) {
	return r.findBy(ctx, "find_by_id", cache.TagIDKey(id), "id", id)
}

func (r *tagRepository) FindByName(ctx context.Context, name string) (*models.Tag, error) {
	return r.findBy(ctx, "find_by_name", cache.TagNameKey(name), "name", name)
}

func (r *tagRepository) ExistsByName(ctx context.Context, name string, excludeID uint) (bool, error) {
	defer r.track("exists_by_name")()
	q := r.conn(ctx).Model(&models.Tag{}).Where("name = ?", name)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	found, err := exists(q)
	if err != nil {
		return false, r.fail(ctx, "exists_by_name", err)
	}
	return found, nil
}

func (r *tagRepository) Create(ctx context.Context, tag *models.Tag) (*models.Tag, error) {
	done := r.track("create")
	err := r.conn(ctx).Create(tag).Error
	done()
	if err != nil {
		return nil, r.fail(ctx, "create", err)
	}
	r.log.LogCreate(ctx, map[string]any{"id": tag.ID, "name": tag.Name})
	return r.fetch(ctx, "find_by_id", "id", tag.ID)
}

// FindOrCreate inserts the tag unless the name exists and returns the stored row.
// The insert ignores name conflicts, so concurrent callers converge on one row.
func (r *tagRepository) FindOrCreate(ctx context.Context, name string) (*models.Tag, bool, error) {
	done := r.track("find_or_create")
	tag := models.Tag{Name: name}
	res := r.conn(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&tag)
	done()
	if res.Error != nil {
		return nil, false, r.fail(ctx, "find_or_create", res.Error)
	}
	created := res.RowsAffected > 0
	if created {
		r.log.LogCreate(ctx, map[string]any{"id": tag.ID, "name": name})
	}

	stored, err := r.fetch(ctx, "find_by_name", "name", name)
	if err != nil {
		return nil, false, err
	}
	if stored == nil {
		return nil, false, models.NewInternalError(nil).WithMessage("tag %q vanished after upsert", name)
	}
	return stored, created, nil
}

// Update renames the tag. Tags carry no updated_at, so only the name changes.
func (r *tagRepository) Update(ctx context.Context, id uint, patch TagPatch) (*models.Tag, error) {
	before, err := r.fetch(ctx, "find_by_id", "id", id)
	if err != nil || before == nil {
		return nil, err
	}
	if patch.Name == nil {
		return before, nil
	}

	done := r.track("update")
	res := r.conn(ctx).Model(&models.Tag{}).Where("id = ?", id).Update("name", *patch.Name)
	done()
	if res.Error != nil {
		return nil, r.fail(ctx, "update", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	r.log.LogUpdate(ctx, map[string]any{"id": id, "name": *patch.Name})
	r.cache.Invalidate(ctx, cache.TagIDKey(id), cache.TagNameKey(before.Name), cache.TagNameKey(*patch.Name))
	return r.fetch(ctx, "find_by_id", "id", id)
}

func (r *tagRepository) Delete(ctx context.Context, id uint) (bool, error) {
	before, err := r.fetch(ctx, "find_by_id", "id", id)
	if err != nil || before == nil {
		return false, err
	}

	defer r.track("delete")()
	res := r.conn(ctx).Where("id = ?", id).Delete(&models.Tag{})
	if res.Error != nil {
		return false, r.fail(ctx, "delete", res.Error)
	}
	r.cache.Invalidate(ctx, cache.TagIDKey(id), cache.TagNameKey(before.Name))
	if res.RowsAffected > 0 {
		r.log.LogDelete(ctx, map[string]any{"id": id})
	}
	return res.RowsAffected > 0, nil
}

func (r *tagRepository) filtered(ctx context.Context, f TagFilter) *gorm.DB {
	q := r.conn(ctx).Model(&models.Tag{})
	if f.Name != nil {
		q = q.Where("name = ?", *f.Name)
	}
	return q
}

func (r *tagRepository) List(ctx context.Context, filter TagFilter) ([]models.Tag, error) {
	defer r.track("list")()
	var tags []models.Tag
	q := paginate(r.filtered(ctx, filter).Order("name ASC"), filter.Limit, filter.Offset)
	if err := q.Find(&tags).Error; err != nil {
		return nil, r.fail(ctx, "list", err)
	}
	return tags, nil
}

func (r *tagRepository) Count(ctx context.Context, filter TagFilter) (int64, error) {
	defer r.track("count")()
	var n int64
	if err := r.filtered(ctx, filter).Count(&n).Error; err != nil {
		return 0, r.fail(ctx, "count", err)
	}
	return n, nil
}

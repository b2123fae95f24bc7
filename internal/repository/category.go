package repository

import (
	"context"

	"agora/internal/cache"
	"agora/internal/database"
	"agora/internal/models"

	"gorm.io/gorm"
)

// CategoryFilter narrows List and Count.
type CategoryFilter struct {
	Name   *string
	Limit  int
	Offset int
}

// CategoryPatch lists the category fields an update may change.
// An empty Description clears it.
type CategoryPatch struct {
	Name        *string
	Description *string
}

func (p CategoryPatch) changes() map[string]any {
	m := make(map[string]any)
	if p.Name != nil {
		m["name"] = *p.Name
	}
	if p.Description != nil {
		if *p.Description == "" {
			m["description"] = nil
		} else {
			m["description"] = *p.Description
		}
	}
	return m
}

// CategoryRepository defines persistence operations for categories.
type CategoryRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Category, error)
	FindByName(ctx context.Context, name string) (*models.Category, error)
	ExistsByName(ctx context.Context, name string, excludeID uint) (bool, error)
	Create(ctx context.Context, category *models.Category) (*models.Category, error)
	Update(ctx context.Context, id uint, patch CategoryPatch) (*models.Category, error)
	Delete(ctx context.Context, id uint) (bool, error)
	List(ctx context.Context, filter CategoryFilter) ([]models.Category, error)
	Count(ctx context.Context, filter CategoryFilter) (int64, error)
	CountPosts(ctx context.Context, id uint) (int64, error)
}

type categoryRepository struct {
	base
	cache *cache.Cache
}

// NewCategoryRepository returns a CategoryRepository. Point lookups go through
// c outside transactions; c may be nil.
func NewCategoryRepository(db *gorm.DB, c *cache.Cache) CategoryRepository {
	return &categoryRepository{base: newBase(db, "categories"), cache: c}
}

func (r *categoryRepository) findBy(ctx context.Context, operation, key, column string, value any) (*models.Category, error) {
	load := func(dest *models.Category) (bool, error) {
		defer r.track(operation)()
		found, err := takeOrNil[models.Category](r.conn(ctx).Where(column+" = ?", value))
		if err != nil {
			return false, r.fail(ctx, operation, err)
		}
		if found == nil {
			return false, nil
		}
		*dest = *found
		return true, nil
	}

	var category models.Category
	var ok bool
	var err error
	// Uncommitted rows must never reach the shared cache.
	if database.InTx(ctx) {
		ok, err = load(&category)
	} else {
		ok, err = r.cache.Aside(ctx, key, &category, cache.CategoryTTL, func() (bool, error) {
			return load(&category)
		})
	}
	if err != nil || !ok {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) FindByID(ctx context.Context, id uint) (*models.Category, error) {
	return r.findBy(ctx, "find_by_id", cache.CategoryIDKey(id), "id", id)
}

func (r *categoryRepository) FindByName(ctx context.Context, name string) (*models.Category, error) {
	return r.findBy(ctx, "find_by_name", cache.CategoryNameKey(name), "name", name)
}

func (r *categoryRepository) ExistsByName(ctx context.Context, name string, excludeID uint) (bool, error) {
	defer r.track("exists_by_name")()
	q := r.conn(ctx).Model(&models.Category{}).Where("name = ?", name)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	found, err := exists(q)
	if err != nil {
		return false, r.fail(ctx, "exists_by_name", err)
	}
	return found, nil
}

func (r *categoryRepository) Create(ctx context.Context, category *models.Category) (*models.Category, error) {
	done := r.track("create")
	err := r.conn(ctx).Create(category).Error
	done()
	if err != nil {
		return nil, r.fail(ctx, "create", err)
	}
	r.log.LogCreate(ctx, map[string]any{"id": category.ID, "name": category.Name})
	r.cache.Invalidate(ctx, cache.CategoryNameKey(category.Name))
	return r.fetch(ctx, category.ID)
}

// fetch reads straight from storage, skipping the cache.
func (r *categoryRepository) fetch(ctx context.Context, id uint) (*models.Category, error) {
	defer r.track("find_by_id")()
	category, err := takeOrNil[models.Category](r.conn(ctx).Where("id = ?", id))
	if err != nil {
		return nil, r.fail(ctx, "find_by_id", err)
	}
	return category, nil
}

func (r *categoryRepository) Update(ctx context.Context, id uint, patch CategoryPatch) (*models.Category, error) {
	changes := patch.changes()
	if len(changes) == 0 {
		return r.fetch(ctx, id)
	}

	before, err := r.fetch(ctx, id)
	if err != nil || before == nil {
		return nil, err
	}

	done := r.track("update")
	matched, err := applyUpdates(r.conn(ctx), &models.Category{}, id, changes)
	done()
	if err != nil {
		return nil, r.fail(ctx, "update", err)
	}
	if !matched {
		return nil, nil
	}
	r.log.LogUpdate(ctx, map[string]any{"id": id})

	keys := []string{cache.CategoryIDKey(id), cache.CategoryNameKey(before.Name)}
	if patch.Name != nil {
		keys = append(keys, cache.CategoryNameKey(*patch.Name))
	}
	r.cache.Invalidate(ctx, keys...)
	return r.fetch(ctx, id)
}

func (r *categoryRepository) Delete(ctx context.Context, id uint) (bool, error) {
	before, err := r.fetch(ctx, id)
	if err != nil || before == nil {
		return false, err
	}

	defer r.track("delete")()
	res := r.conn(ctx).Where("id = ?", id).Delete(&models.Category{})
	if res.Error != nil {
		return false, r.fail(ctx, "delete", res.Error)
	}
	r.cache.Invalidate(ctx, cache.CategoryIDKey(id), cache.CategoryNameKey(before.Name))
	if res.RowsAffected > 0 {
		r.log.LogDelete(ctx, map[string]any{"id": id})
	}
	return res.RowsAffected > 0, nil
}

func (r *categoryRepository) filtered(ctx context.Context, f CategoryFilter) *gorm.DB {
	q := r.conn(ctx).Model(&models.Category{})
	if f.Name != nil {
		q = q.Where("name = ?", *f.Name)
	}
	return q
}

func (r *categoryRepository) List(ctx context.Context, filter CategoryFilter) ([]models.Category, error) {
	defer r.track("list")()
	var categories []models.Category
	q := paginate(r.filtered(ctx, filter).Order("name ASC"), filter.Limit, filter.Offset)
	if err := q.Find(&categories).Error; err != nil {
		return nil, r.fail(ctx, "list", err)
	}
	return categories, nil
}

func (r *categoryRepository) Count(ctx context.Context, filter CategoryFilter) (int64, error) {
	defer r.track("count")()
	var n int64
	if err := r.filtered(ctx, filter).Count(&n).Error; err != nil {
		return 0, r.fail(ctx, "count", err)
	}
	return n, nil
}

func (r *categoryRepository) CountPosts(ctx context.Context, id uint) (int64, error) {
	defer r.track("count_posts")()
	var n int64
	if err := r.conn(ctx).Model(&models.Post{}).Where("category_id = ?", id).Count(&n).Error; err != nil {
		return 0, r.fail(ctx, "count_posts", err)
	}
	return n, nil
}

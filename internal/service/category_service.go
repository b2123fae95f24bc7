package service

import (
	"context"

	"agora/internal/models"
	"agora/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const (
	maxCategoryNameLen        = 80
	maxCategoryDescriptionLen = 500
)

type CategoryService struct {
	categories repository.CategoryRepository
	tx         Transactor
}

type CreateCategoryInput struct {
	Name        string
	Description *string
}

// UpdateCategoryInput carries the fields to change. An empty Description clears it.
type UpdateCategoryInput struct {
	Name        *string
	Description *string
}

func NewCategoryService(categories repository.CategoryRepository, tx Transactor) *CategoryService {
	return &CategoryService{categories: categories, tx: tx}
}

func categoryConflict(err error) error {
	if models.IsUniqueViolation(err, "name") {
		return models.ErrDuplicateCategoryName.Wrap(err)
	}
	return err
}

func (s *CategoryService) Create(ctx context.Context, in CreateCategoryInput) (category *models.Category, err error) {
	ctx, c := begin(ctx, "category", "create")
	defer c.end(&err)

	name, err := required("Name", in.Name)
	if err != nil {
		return nil, err
	}
	if err := maxLen("Name", name, maxCategoryNameLen); err != nil {
		return nil, err
	}
	if in.Description != nil {
		if err := maxLen("Description", *in.Description, maxCategoryDescriptionLen); err != nil {
			return nil, err
		}
	}

	taken, err := s.categories.ExistsByName(ctx, name, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, models.ErrDuplicateCategoryName
	}

	category, err = s.categories.Create(ctx, &models.Category{Name: name, Description: in.Description})
	if err != nil {
		return nil, categoryConflict(err)
	}
	return category, nil
}

func (s *CategoryService) Get(ctx context.Context, id uint) (category *models.Category, err error) {
	ctx, c := begin(ctx, "category", "get", attribute.Int("category.id", int(id)))
	defer c.end(&err)

	category, err = s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, models.ErrCategoryNotFound
	}
	return category, nil
}

func (s *CategoryService) GetByName(ctx context.Context, name string) (category *models.Category, err error) {
	ctx, c := begin(ctx, "category", "get_by_name")
	defer c.end(&err)

	category, err = s.categories.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, models.ErrCategoryNotFound
	}
	return category, nil
}

func (s *CategoryService) List(ctx context.Context, filter repository.CategoryFilter) (categories []models.Category, err error) {
	ctx, c := begin(ctx, "category", "list")
	defer c.end(&err)
	return s.categories.List(ctx, filter)
}

func (s *CategoryService) Update(ctx context.Context, id uint, in UpdateCategoryInput) (category *models.Category, err error) {
	ctx, c := begin(ctx, "category", "update", attribute.Int("category.id", int(id)))
	defer c.end(&err)

	var patch repository.CategoryPatch
	if in.Name != nil {
		name, err := required("Name", *in.Name)
		if err != nil {
			return nil, err
		}
		if err := maxLen("Name", name, maxCategoryNameLen); err != nil {
			return nil, err
		}
		patch.Name = &name
	}
	if in.Description != nil {
		if err := maxLen("Description", *in.Description, maxCategoryDescriptionLen); err != nil {
			return nil, err
		}
		patch.Description = in.Description
	}

	if patch.Name != nil {
		taken, err := s.categories.ExistsByName(ctx, *patch.Name, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, models.ErrDuplicateCategoryName
		}
	}

	category, err = s.categories.Update(ctx, id, patch)
	if err != nil {
		return nil, categoryConflict(err)
	}
	if category == nil {
		return nil, models.ErrCategoryNotFound
	}
	return category, nil
}

// Delete removes an unused category. Posts keep their category, so a category
// that is still referenced cannot go.
func (s *CategoryService) Delete(ctx context.Context, id uint) (err error) {
	ctx, c := begin(ctx, "category", "delete", attribute.Int("category.id", int(id)))
	defer c.end(&err)

	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		inUse, err := s.categories.CountPosts(ctx, id)
		if err != nil {
			return err
		}
		if inUse > 0 {
			return models.ErrCategoryInUse.WithMessage("category is still used by %d posts", inUse)
		}

		removed, err := s.categories.Delete(ctx, id)
		if models.IsForeignKeyViolation(err) {
			return models.ErrCategoryInUse.Wrap(err)
		}
		if err != nil {
			return err
		}
		if !removed {
			return models.ErrCategoryNotFound
		}
		return nil
	})
}

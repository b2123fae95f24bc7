package service

import (
	"context"
	"strings"

	"agora/internal/models"
	"agora/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const maxTagNameLen = 50

type TagService struct {
	tags repository.TagRepository
}

func NewTagService(tags repository.TagRepository) *TagService {
	return &TagService{tags: tags}
}

// NormalizeTagName trims and lowercases a tag name so "Go" and " go " share a row.
func NormalizeTagName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func validateTagName(raw string) (string, error) {
	name, err := required("Tag name", NormalizeTagName(raw))
	if err != nil {
		return "", err
	}
	if err := maxLen("Tag name", name, maxTagNameLen); err != nil {
		return "", err
	}
	return name, nil
}

func (s *TagService) Create(ctx context.Context, name string) (tag *models.Tag, err error) {
	ctx, c := begin(ctx, "tag", "create")
	defer c.end(&err)

	name, err = validateTagName(name)
	if err != nil {
		return nil, err
	}
	taken, err := s.tags.ExistsByName(ctx, name, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, models.ErrDuplicateTagName
	}

	tag, err = s.tags.Create(ctx, &models.Tag{Name: name})
	if models.IsUniqueViolation(err, "name") {
		return nil, models.ErrDuplicateTagName.Wrap(err)
	}
	if err != nil {
		return nil, err
	}
	return tag, nil
}

func (s *TagService) Get(ctx context.Context, id uint) (tag *models.Tag, err error) {
	ctx, c := begin(ctx, "tag", "get", attribute.Int("tag.id", int(id)))
	defer c.end(&err)

	tag, err = s.tags.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tag == nil {
		return nil, models.ErrTagNotFound
	}
	return tag, nil
}

func (s *TagService) GetByName(ctx context.Context, name string) (tag *models.Tag, err error) {
	ctx, c := begin(ctx, "tag", "get_by_name")
	defer c.end(&err)

	tag, err = s.tags.FindByName(ctx, NormalizeTagName(name))
	if err != nil {
		return nil, err
	}
	if tag == nil {
		return nil, models.ErrTagNotFound
	}
	return tag, nil
}

func (s *TagService) List(ctx context.Context, filter repository.TagFilter) (tags []models.Tag, err error) {
	ctx, c := begin(ctx, "tag", "list")
	defer c.end(&err)
	return s.tags.List(ctx, filter)
}

// Update renames a tag's name. Posts keep their association.
func (s *TagService) Update(ctx context.Context, id uint, name string) (tag *models.Tag, err error) {
	ctx, c := begin(ctx, "tag", "update", attribute.Int("tag.id", int(id)))
	defer c.end(&err)

	name, err = validateTagName(name)
	if err != nil {
		return nil, err
	}
	taken, err := s.tags.ExistsByName(ctx, name, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, models.ErrDuplicateTagName
	}

	tag, err = s.tags.Update(ctx, id, repository.TagPatch{Name: &name})
	if models.IsUniqueViolation(err, "name") {
		return nil, models.ErrDuplicateTagName.Wrap(err)
	}
	if err != nil {
		return nil, err
	}
	if tag == nil {
		return nil, models.ErrTagNotFound
	}
	return tag, nil
}

// Delete removes the tag and every association to it.
func (s *TagService) Delete(ctx context.Context, id uint) (err error) {
	ctx, c := begin(ctx, "tag", "delete", attribute.Int("tag.id", int(id)))
	defer c.end(&err)

	removed, err := s.tags.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return models.ErrTagNotFound
	}
	return nil
}

package service

import (
	"context"

	"agora/internal/models"
	"agora/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const (
	maxTitleLen   = 300
	maxContentLen = 50000
	maxPostTags   = 10
)

type PostService struct {
	posts      repository.PostRepository
	postTags   repository.PostTagRepository
	tags       repository.TagRepository
	categories repository.CategoryRepository
	users      repository.UserRepository
	tx         Transactor
}

type CreatePostInput struct {
	UserID     uint
	CategoryID uint
	Title      string
	Content    string
	Tags       []string
}

// UpdatePostInput carries the fields to change. Nil fields are kept.
type UpdatePostInput struct {
	UserID     uint
	PostID     uint
	Title      *string
	Content    *string
	CategoryID *uint
}

func NewPostService(
	posts repository.PostRepository,
	postTags repository.PostTagRepository,
	tags repository.TagRepository,
	categories repository.CategoryRepository,
	users repository.UserRepository,
	tx Transactor,
) *PostService {
	return &PostService{
		posts:      posts,
		postTags:   postTags,
		tags:       tags,
		categories: categories,
		users:      users,
		tx:         tx,
	}
}

func (s *PostService) requireCategory(ctx context.Context, id uint) error {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if category == nil {
		return models.ErrCategoryNotFound
	}
	return nil
}

// Create stores the post and attaches its tags in one transaction.
func (s *PostService) Create(ctx context.Context, in CreatePostInput) (post *models.Post, err error) {
	ctx, c := begin(ctx, "post", "create", attribute.Int("user.id", int(in.UserID)))
	defer c.end(&err)

	title, err := required("Title", in.Title)
	if err != nil {
		return nil, err
	}
	if err := maxLen("Title", title, maxTitleLen); err != nil {
		return nil, err
	}
	content, err := required("Content", in.Content)
	if err != nil {
		return nil, err
	}
	if err := maxLen("Content", content, maxContentLen); err != nil {
		return nil, err
	}
	names, err := normalizeTagNames(in.Tags)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := ensureCanWrite(ctx, s.users, in.UserID); err != nil {
			return err
		}
		if err := s.requireCategory(ctx, in.CategoryID); err != nil {
			return err
		}

		created, err := s.posts.Create(ctx, &models.Post{
			Title:      title,
			Content:    content,
			UserID:     in.UserID,
			CategoryID: in.CategoryID,
		})
		if models.IsForeignKeyViolation(err) {
			return models.ErrCategoryNotFound.Wrap(err)
		}
		if err != nil {
			return err
		}

		created.Tags, err = s.attach(ctx, created.ID, names)
		if err != nil {
			return err
		}
		post = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.span.AddAttributes(attribute.Int("post.id", int(post.ID)))
	return post, nil
}

// Get returns the post with its tags.
func (s *PostService) Get(ctx context.Context, id uint) (post *models.Post, err error) {
	ctx, c := begin(ctx, "post", "get", attribute.Int("post.id", int(id)))
	defer c.end(&err)

	post, err = s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, models.ErrPostNotFound
	}
	post.Tags, err = s.postTags.ListTagsForPost(ctx, id)
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) List(ctx context.Context, filter repository.PostFilter) (posts []models.Post, err error) {
	ctx, c := begin(ctx, "post", "list")
	defer c.end(&err)
	return s.posts.List(ctx, filter)
}

func (s *PostService) Count(ctx context.Context, filter repository.PostFilter) (n int64, err error) {
	ctx, c := begin(ctx, "post", "count")
	defer c.end(&err)
	return s.posts.Count(ctx, filter)
}

// Update edits a post. Only the author or an admin may do so.
func (s *PostService) Update(ctx context.Context, in UpdatePostInput) (post *models.Post, err error) {
	ctx, c := begin(ctx, "post", "update", attribute.Int("post.id", int(in.PostID)))
	defer c.end(&err)

	var patch repository.PostPatch
	if in.Title != nil {
		title, err := required("Title", *in.Title)
		if err != nil {
			return nil, err
		}
		if err := maxLen("Title", title, maxTitleLen); err != nil {
			return nil, err
		}
		patch.Title = &title
	}
	if in.Content != nil {
		content, err := required("Content", *in.Content)
		if err != nil {
			return nil, err
		}
		if err := maxLen("Content", content, maxContentLen); err != nil {
			return nil, err
		}
		patch.Content = &content
	}
	patch.CategoryID = in.CategoryID

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		actor, err := ensureCanWrite(ctx, s.users, in.UserID)
		if err != nil {
			return err
		}
		current, err := s.posts.FindByID(ctx, in.PostID)
		if err != nil {
			return err
		}
		if current == nil {
			return models.ErrPostNotFound
		}
		if err := ensureAuthor(actor, current.UserID); err != nil {
			return err
		}
		if patch.CategoryID != nil && *patch.CategoryID != current.CategoryID {
			if err := s.requireCategory(ctx, *patch.CategoryID); err != nil {
				return err
			}
		}

		post, err = s.posts.Update(ctx, in.PostID, patch)
		if models.IsForeignKeyViolation(err) {
			return models.ErrCategoryNotFound.Wrap(err)
		}
		if err != nil {
			return err
		}
		if post == nil {
			return models.ErrPostNotFound
		}
		post.Tags, err = s.postTags.ListTagsForPost(ctx, in.PostID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

// Delete removes the post. Its comments, tag links and likes are removed by the schema.
func (s *PostService) Delete(ctx context.Context, userID, postID uint) (err error) {
	ctx, c := begin(ctx, "post", "delete", attribute.Int("post.id", int(postID)))
	defer c.end(&err)

	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		actor, err := ensureCanWrite(ctx, s.users, userID)
		if err != nil {
			return err
		}
		post, err := s.posts.FindByID(ctx, postID)
		if err != nil {
			return err
		}
		if post == nil {
			return models.ErrPostNotFound
		}
		if err := ensureAuthor(actor, post.UserID); err != nil {
			return err
		}
		removed, err := s.posts.Delete(ctx, postID)
		if err != nil {
			return err
		}
		if !removed {
			return models.ErrPostNotFound
		}
		return nil
	})
}

// AttachTags finds or creates each named tag and links it to the post.
// Links that already exist are left alone. Returns the post's full tag set.
func (s *PostService) AttachTags(ctx context.Context, postID uint, names []string) (tags []models.Tag, err error) {
	ctx, c := begin(ctx, "post", "attach_tags",
		attribute.Int("post.id", int(postID)),
		attribute.Int("tags.requested", len(names)),
	)
	defer c.end(&err)

	normalized, err := normalizeTagNames(names)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		post, err := s.posts.FindByID(ctx, postID)
		if err != nil {
			return err
		}
		if post == nil {
			return models.ErrPostNotFound
		}
		tags, err = s.attach(ctx, postID, normalized)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func (s *PostService) attach(ctx context.Context, postID uint, names []string) ([]models.Tag, error) {
	for _, name := range names {
		tag, _, err := s.tags.FindOrCreate(ctx, name)
		if err != nil {
			return nil, err
		}
		if _, err := s.postTags.Create(ctx, postID, tag.ID); err != nil {
			if models.IsForeignKeyViolation(err) {
				return nil, models.ErrPostNotFound.Wrap(err)
			}
			return nil, err
		}
	}
	return s.postTags.ListTagsForPost(ctx, postID)
}

// DetachTag unlinks the named tag from the post. It reports whether a link was removed.
func (s *PostService) DetachTag(ctx context.Context, postID uint, name string) (removed bool, err error) {
	ctx, c := begin(ctx, "post", "detach_tag", attribute.Int("post.id", int(postID)))
	defer c.end(&err)

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		post, err := s.posts.FindByID(ctx, postID)
		if err != nil {
			return err
		}
		if post == nil {
			return models.ErrPostNotFound
		}
		tag, err := s.tags.FindByName(ctx, NormalizeTagName(name))
		if err != nil {
			return err
		}
		if tag == nil {
			return models.ErrTagNotFound
		}
		removed, err = s.postTags.Delete(ctx, postID, tag.ID)
		return err
	})
	return removed, err
}

func (s *PostService) ListTags(ctx context.Context, postID uint) (tags []models.Tag, err error) {
	ctx, c := begin(ctx, "post", "list_tags", attribute.Int("post.id", int(postID)))
	defer c.end(&err)

	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, models.ErrPostNotFound
	}
	return s.postTags.ListTagsForPost(ctx, postID)
}

// normalizeTagNames validates, normalizes and de-duplicates names, keeping first-seen order.
func normalizeTagNames(names []string) ([]string, error) {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, raw := range names {
		name, err := validateTagName(raw)
		if err != nil {
			return nil, err
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	if len(out) > maxPostTags {
		return nil, models.NewValidationError("Too many tags (max 10)")
	}
	return out, nil
}

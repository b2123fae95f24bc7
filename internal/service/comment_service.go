package service

import (
	"context"

	"agora/internal/models"
	"agora/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const maxCommentLen = 10000

type CommentService struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
	users    repository.UserRepository
	tx       Transactor
}

type CreateCommentInput struct {
	PostID   uint
	UserID   uint
	Content  string
	ParentID *uint
}

type UpdateCommentInput struct {
	UserID    uint
	CommentID uint
	Content   string
}

func NewCommentService(
	comments repository.CommentRepository,
	posts repository.PostRepository,
	users repository.UserRepository,
	tx Transactor,
) *CommentService {
	return &CommentService{comments: comments, posts: posts, users: users, tx: tx}
}

func validateCommentContent(raw string) (string, error) {
	content, err := required("Content", raw)
	if err != nil {
		return "", err
	}
	if err := maxLen("Content", content, maxCommentLen); err != nil {
		return "", err
	}
	return content, nil
}

// Create adds a comment. A reply must point at a top-level comment on the same
// post, which caps nesting at one level.
func (s *CommentService) Create(ctx context.Context, in CreateCommentInput) (comment *models.Comment, err error) {
	ctx, c := begin(ctx, "comment", "create", attribute.Int("post.id", int(in.PostID)))
	defer c.end(&err)

	content, err := validateCommentContent(in.Content)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := ensureCanWrite(ctx, s.users, in.UserID); err != nil {
			return err
		}
		post, err := s.posts.FindByID(ctx, in.PostID)
		if err != nil {
			return err
		}
		if post == nil {
			return models.ErrPostNotFound
		}

		if in.ParentID != nil {
			parent, err := s.comments.FindByID(ctx, *in.ParentID)
			if err != nil {
				return err
			}
			if parent == nil {
				return models.ErrInvalidParent.WithMessage("parent comment %d does not exist", *in.ParentID)
			}
			if parent.PostID != in.PostID || !parent.IsTopLevel() {
				return models.ErrInvalidParent
			}
		}

		comment, err = s.comments.Create(ctx, &models.Comment{
			Content:  content,
			PostID:   in.PostID,
			UserID:   in.UserID,
			ParentID: in.ParentID,
		})
		if models.IsForeignKeyViolation(err) {
			return models.ErrPostNotFound.Wrap(err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *CommentService) Get(ctx context.Context, id uint) (comment *models.Comment, err error) {
	ctx, c := begin(ctx, "comment", "get", attribute.Int("comment.id", int(id)))
	defer c.end(&err)

	comment, err = s.comments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if comment == nil {
		return nil, models.ErrCommentNotFound
	}
	return comment, nil
}

// ListByPost returns the post's top-level comments in creation order, each with
// its replies attached.
func (s *CommentService) ListByPost(ctx context.Context, postID uint) (thread []models.Comment, err error) {
	ctx, c := begin(ctx, "comment", "list_by_post", attribute.Int("post.id", int(postID)))
	defer c.end(&err)

	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, models.ErrPostNotFound
	}

	all, err := s.comments.List(ctx, repository.CommentFilter{PostID: &postID})
	if err != nil {
		return nil, err
	}
	return nest(all), nil
}

func nest(flat []models.Comment) []models.Comment {
	replies := make(map[uint][]models.Comment)
	for _, cm := range flat {
		if cm.ParentID != nil {
			replies[*cm.ParentID] = append(replies[*cm.ParentID], cm)
		}
	}
	thread := make([]models.Comment, 0, len(flat))
	for _, cm := range flat {
		if cm.IsTopLevel() {
			cm.Replies = replies[cm.ID]
			thread = append(thread, cm)
		}
	}
	return thread
}

// Update edits the comment content. Only the author or an admin may do so.
func (s *CommentService) Update(ctx context.Context, in UpdateCommentInput) (comment *models.Comment, err error) {
	ctx, c := begin(ctx, "comment", "update", attribute.Int("comment.id", int(in.CommentID)))
	defer c.end(&err)

	content, err := validateCommentContent(in.Content)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		actor, err := ensureCanWrite(ctx, s.users, in.UserID)
		if err != nil {
			return err
		}
		current, err := s.comments.FindByID(ctx, in.CommentID)
		if err != nil {
			return err
		}
		if current == nil {
			return models.ErrCommentNotFound
		}
		if err := ensureAuthor(actor, current.UserID); err != nil {
			return err
		}
		comment, err = s.comments.Update(ctx, in.CommentID, repository.CommentPatch{Content: &content})
		if err != nil {
			return err
		}
		if comment == nil {
			return models.ErrCommentNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// Delete removes the comment. Replies and likes on them go with it.
func (s *CommentService) Delete(ctx context.Context, userID, commentID uint) (err error) {
	ctx, c := begin(ctx, "comment", "delete", attribute.Int("comment.id", int(commentID)))
	defer c.end(&err)

	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		actor, err := ensureCanWrite(ctx, s.users, userID)
		if err != nil {
			return err
		}
		current, err := s.comments.FindByID(ctx, commentID)
		if err != nil {
			return err
		}
		if current == nil {
			return models.ErrCommentNotFound
		}
		if err := ensureAuthor(actor, current.UserID); err != nil {
			return err
		}
		removed, err := s.comments.Delete(ctx, commentID)
		if err != nil {
			return err
		}
		if !removed {
			return models.ErrCommentNotFound
		}
		return nil
	})
}

package service

import (
	"context"

	"agora/internal/models"
	"agora/internal/observability"
	"agora/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// LikeService owns likes and the likes_count counters on their targets.
// Nothing else writes those counters.
type LikeService struct {
	likes    repository.LikeRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
	users    repository.UserRepository
	tx       Transactor
}

func NewLikeService(
	likes repository.LikeRepository,
	posts repository.PostRepository,
	comments repository.CommentRepository,
	users repository.UserRepository,
	tx Transactor,
) *LikeService {
	return &LikeService{likes: likes, posts: posts, comments: comments, users: users, tx: tx}
}

func likeAttrs(userID uint, targetType models.TargetType, targetID uint) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int("user.id", int(userID)),
		attribute.String("like.target_type", string(targetType)),
		attribute.Int("like.target_id", int(targetID)),
	}
}

func (s *LikeService) targetExists(ctx context.Context, targetType models.TargetType, targetID uint) (bool, error) {
	switch targetType {
	case models.TargetPost:
		post, err := s.posts.FindByID(ctx, targetID)
		return post != nil, err
	case models.TargetComment:
		comment, err := s.comments.FindByID(ctx, targetID)
		return comment != nil, err
	}
	return false, models.ErrInvalidTargetType
}

func (s *LikeService) adjust(ctx context.Context, targetType models.TargetType, targetID uint, delta int) (bool, error) {
	if targetType == models.TargetComment {
		return s.comments.AdjustLikesCount(ctx, targetID, delta)
	}
	return s.posts.AdjustLikesCount(ctx, targetID, delta)
}

// Like records the like and bumps the target's counter in one transaction.
// The unique tuple constraint decides concurrent duplicates: the loser gets
// ErrAlreadyLiked.
func (s *LikeService) Like(ctx context.Context, userID uint, targetType models.TargetType, targetID uint) (like *models.Like, err error) {
	ctx, c := begin(ctx, "like", "like", likeAttrs(userID, targetType, targetID)...)
	defer c.end(&err)

	if !targetType.Valid() {
		return nil, models.ErrInvalidTargetType
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := ensureCanWrite(ctx, s.users, userID); err != nil {
			return err
		}
		found, err := s.targetExists(ctx, targetType, targetID)
		if err != nil {
			return err
		}
		if !found {
			return models.ErrTargetNotFound
		}

		like, err = s.likes.Create(ctx, &models.Like{UserID: userID, TargetType: targetType, TargetID: targetID})
		if models.IsUniqueViolation(err, "") {
			return models.ErrAlreadyLiked.Wrap(err)
		}
		if err != nil {
			return err
		}

		bumped, err := s.adjust(ctx, targetType, targetID, 1)
		if err != nil {
			return err
		}
		if !bumped {
			return models.ErrTargetNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	observability.LikeEvents.WithLabelValues(string(targetType), "like").Inc()
	return like, nil
}

// Unlike removes the like and decrements the counter only when a row was
// removed. Unliking something that was never liked reports false.
func (s *LikeService) Unlike(ctx context.Context, userID uint, targetType models.TargetType, targetID uint) (removed bool, err error) {
	ctx, c := begin(ctx, "like", "unlike", likeAttrs(userID, targetType, targetID)...)
	defer c.end(&err)

	if !targetType.Valid() {
		return false, models.ErrInvalidTargetType
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		removed, err = s.likes.Delete(ctx, userID, targetType, targetID)
		if err != nil || !removed {
			return err
		}
		// The counter is already zero or the target is gone; either way there is nothing to correct.
		_, err = s.adjust(ctx, targetType, targetID, -1)
		return err
	})
	if err != nil {
		return false, err
	}
	if removed {
		observability.LikeEvents.WithLabelValues(string(targetType), "unlike").Inc()
	}
	return removed, nil
}

// ReleaseByUser withdraws every like the user gave, decrementing each target's
// counter in the same transaction. Targets that are already gone are skipped.
func (s *LikeService) ReleaseByUser(ctx context.Context, userID uint) (released int, err error) {
	ctx, c := begin(ctx, "like", "release_by_user", attribute.Int("user.id", int(userID)))
	defer c.end(&err)

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		given, err := s.likes.List(ctx, repository.LikeFilter{UserID: &userID})
		if err != nil {
			return err
		}
		for _, l := range given {
			removed, err := s.likes.Delete(ctx, userID, l.TargetType, l.TargetID)
			if err != nil {
				return err
			}
			if !removed {
				continue
			}
			if _, err := s.adjust(ctx, l.TargetType, l.TargetID, -1); err != nil {
				return err
			}
			released++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if released > 0 {
		observability.LikeEvents.WithLabelValues("any", "release").Add(float64(released))
	}
	return released, nil
}

func (s *LikeService) IsLiked(ctx context.Context, userID uint, targetType models.TargetType, targetID uint) (liked bool, err error) {
	ctx, c := begin(ctx, "like", "is_liked", likeAttrs(userID, targetType, targetID)...)
	defer c.end(&err)

	if !targetType.Valid() {
		return false, models.ErrInvalidTargetType
	}
	return s.likes.Exists(ctx, userID, targetType, targetID)
}

// Count returns the number of like rows for the target.
func (s *LikeService) Count(ctx context.Context, targetType models.TargetType, targetID uint) (n int64, err error) {
	ctx, c := begin(ctx, "like", "count",
		attribute.String("like.target_type", string(targetType)),
		attribute.Int("like.target_id", int(targetID)),
	)
	defer c.end(&err)

	if !targetType.Valid() {
		return 0, models.ErrInvalidTargetType
	}
	return s.likes.CountByTarget(ctx, targetType, targetID)
}

// ListByUser returns the user's likes, newest first.
func (s *LikeService) ListByUser(ctx context.Context, userID uint, limit, offset int) (likes []models.Like, err error) {
	ctx, c := begin(ctx, "like", "list_by_user", attribute.Int("user.id", int(userID)))
	defer c.end(&err)
	return s.likes.List(ctx, repository.LikeFilter{UserID: &userID, Limit: limit, Offset: offset})
}

package service

import (
	"context"

	"agora/internal/models"
	"agora/internal/repository"
)

// inlineTx runs fn directly; unit tests have no storage to roll back.
type inlineTx struct{}

func (inlineTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// userRepoStub is a stub for repository.UserRepository. Methods without a
// func field panic through the nil embedded interface.
type userRepoStub struct {
	repository.UserRepository
	findByIDFn         func(context.Context, uint) (*models.User, error)
	findByEmailFn      func(context.Context, string) (*models.User, error)
	existsByEmailFn    func(context.Context, string, uint) (bool, error)
	existsByNicknameFn func(context.Context, string, uint) (bool, error)
	createFn           func(context.Context, *models.User) (*models.User, error)
	updateFn           func(context.Context, uint, repository.UserPatch) (*models.User, error)
}

func (s *userRepoStub) FindByID(ctx context.Context, id uint) (*models.User, error) {
	return s.findByIDFn(ctx, id)
}
func (s *userRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findByEmailFn(ctx, email)
}
func (s *userRepoStub) ExistsByEmail(ctx context.Context, email string, excludeID uint) (bool, error) {
	return s.existsByEmailFn(ctx, email, excludeID)
}
func (s *userRepoStub) ExistsByNickname(ctx context.Context, nickname string, excludeID uint) (bool, error) {
	return s.existsByNicknameFn(ctx, nickname, excludeID)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) (*models.User, error) {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Update(ctx context.Context, id uint, patch repository.UserPatch) (*models.User, error) {
	return s.updateFn(ctx, id, patch)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		findByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Nickname: "u", Status: models.StatusActive, Role: models.RoleUser}, nil
		},
		findByEmailFn:      func(context.Context, string) (*models.User, error) { return nil, nil },
		existsByEmailFn:    func(context.Context, string, uint) (bool, error) { return false, nil },
		existsByNicknameFn: func(context.Context, string, uint) (bool, error) { return false, nil },
		createFn: func(_ context.Context, u *models.User) (*models.User, error) {
			u.ID = 1
			return u, nil
		},
		updateFn: func(_ context.Context, id uint, _ repository.UserPatch) (*models.User, error) {
			return &models.User{ID: id}, nil
		},
	}
}

type postRepoStub struct {
	repository.PostRepository
	findByIDFn func(context.Context, uint) (*models.Post, error)
	adjustFn   func(context.Context, uint, int) (bool, error)
}

func (s *postRepoStub) FindByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.findByIDFn(ctx, id)
}
func (s *postRepoStub) AdjustLikesCount(ctx context.Context, id uint, delta int) (bool, error) {
	return s.adjustFn(ctx, id, delta)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		findByIDFn: func(_ context.Context, id uint) (*models.Post, error) { return &models.Post{ID: id, UserID: 1}, nil },
		adjustFn:   func(context.Context, uint, int) (bool, error) { return true, nil },
	}
}

type commentRepoStub struct {
	repository.CommentRepository
	findByIDFn func(context.Context, uint) (*models.Comment, error)
	createFn   func(context.Context, *models.Comment) (*models.Comment, error)
	adjustFn   func(context.Context, uint, int) (bool, error)
}

func (s *commentRepoStub) FindByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.findByIDFn(ctx, id)
}
func (s *commentRepoStub) Create(ctx context.Context, c *models.Comment) (*models.Comment, error) {
	return s.createFn(ctx, c)
}
func (s *commentRepoStub) AdjustLikesCount(ctx context.Context, id uint, delta int) (bool, error) {
	return s.adjustFn(ctx, id, delta)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		findByIDFn: func(context.Context, uint) (*models.Comment, error) { return nil, nil },
		createFn: func(_ context.Context, c *models.Comment) (*models.Comment, error) {
			c.ID = 1
			return c, nil
		},
		adjustFn: func(context.Context, uint, int) (bool, error) { return true, nil },
	}
}

type likeRepoStub struct {
	repository.LikeRepository
	createFn func(context.Context, *models.Like) (*models.Like, error)
	deleteFn func(context.Context, uint, models.TargetType, uint) (bool, error)
	listFn   func(context.Context, repository.LikeFilter) ([]models.Like, error)
}

func (s *likeRepoStub) List(ctx context.Context, f repository.LikeFilter) ([]models.Like, error) {
	return s.listFn(ctx, f)
}

func (s *likeRepoStub) Create(ctx context.Context, l *models.Like) (*models.Like, error) {
	return s.createFn(ctx, l)
}
func (s *likeRepoStub) Delete(ctx context.Context, userID uint, tt models.TargetType, targetID uint) (bool, error) {
	return s.deleteFn(ctx, userID, tt, targetID)
}

func noopLikeRepo() *likeRepoStub {
	return &likeRepoStub{
		createFn: func(_ context.Context, l *models.Like) (*models.Like, error) {
			l.ID = 1
			return l, nil
		},
		deleteFn: func(context.Context, uint, models.TargetType, uint) (bool, error) { return true, nil },
		listFn:   func(context.Context, repository.LikeFilter) ([]models.Like, error) { return nil, nil },
	}
}

package repository

import (
	"context"
	"fmt"
	"testing"

	"agora/internal/models"
	"agora/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixtures struct {
	t        *testing.T
	db       *gorm.DB
	users    UserRepository
	cats     CategoryRepository
	posts    PostRepository
	comments CommentRepository
	tags     TagRepository
	postTags PostTagRepository
	likes    LikeRepository
}

func newFixtures(t *testing.T) *fixtures {
	t.Helper()
	db := testutil.OpenDB(t)
	return &fixtures{
		t:        t,
		db:       db,
		users:    NewUserRepository(db),
		cats:     NewCategoryRepository(db, nil),
		posts:    NewPostRepository(db),
		comments: NewCommentRepository(db),
		tags:     NewTagRepository(db, nil),
		postTags: NewPostTagRepository(db),
		likes:    NewLikeRepository(db),
	}
}

func (f *fixtures) user(nickname string) *models.User {
	f.t.Helper()
	u, err := f.users.Create(context.Background(), &models.User{
		Email:    fmt.Sprintf("%s@example.com", nickname),
		Nickname: nickname,
		Password: "hash",
		Role:     models.RoleUser,
		Status:   models.StatusActive,
	})
	require.NoError(f.t, err)
	return u
}

func (f *fixtures) category(name string) *models.Category {
	f.t.Helper()
	c, err := f.cats.Create(context.Background(), &models.Category{Name: name})
	require.NoError(f.t, err)
	return c
}

func (f *fixtures) post(author *models.User, category *models.Category, title string) *models.Post {
	f.t.Helper()
	p, err := f.posts.Create(context.Background(), &models.Post{
		Title:      title,
		Content:    "body of " + title,
		UserID:     author.ID,
		CategoryID: category.ID,
	})
	require.NoError(f.t, err)
	return p
}

func (f *fixtures) comment(author *models.User, post *models.Post, parent *models.Comment) *models.Comment {
	f.t.Helper()
	c := &models.Comment{Content: "a comment", PostID: post.ID, UserID: author.ID}
	if parent != nil {
		c.ParentID = &parent.ID
	}
	out, err := f.comments.Create(context.Background(), c)
	require.NoError(f.t, err)
	return out
}

func (f *fixtures) like(user *models.User, targetType models.TargetType, targetID uint) *models.Like {
	f.t.Helper()
	l, err := f.likes.Create(context.Background(), &models.Like{UserID: user.ID, TargetType: targetType, TargetID: targetID})
	require.NoError(f.t, err)
	return l
}

func ptr[T any](v T) *T {
	return &v
}

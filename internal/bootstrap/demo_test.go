package bootstrap

import (
	"context"
	"testing"

	"agora/internal/config"
	"agora/internal/models"
	"agora/internal/repository"
	"agora/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPopulateDemo(t *testing.T) {
	db, _ := testutil.OpenSeededDB(t)
	svc := NewServices(db, nil, &config.Config{JWTSecret: "demo-secret", JWTTTLHours: 1, BcryptCost: 4})
	ctx := context.Background()

	sum, err := PopulateDemo(ctx, svc, DemoOptions{
		Users: 4, Posts: 3, CommentsPerPost: 4, LikesPerPost: 2, MaxTags: 2, Seed: 7,
	})
	require.NoError(t, err)
	assert.Equal(t, DemoSummary{Users: 4, Posts: 3, Comments: 12, Likes: 6}, sum)

	posts, err := svc.Posts.List(ctx, repository.PostFilter{})
	require.NoError(t, err)
	require.Len(t, posts, 3)
	for _, p := range posts {
		assert.Equal(t, 2, p.LikesCount)
		n, err := svc.Likes.Count(ctx, models.TargetPost, p.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		threads, err := svc.Comments.ListByPost(ctx, p.ID)
		require.NoError(t, err)
		total := 0
		for _, c := range threads {
			assert.Nil(t, c.ParentID)
			total += 1 + len(c.Replies)
			for _, r := range c.Replies {
				assert.Empty(t, r.Replies)
			}
		}
		assert.Equal(t, 4, total)
	}
}

func TestPopulateDemo_NeedsCategories(t *testing.T) {
	db := testutil.OpenDB(t)
	svc := NewServices(db, nil, &config.Config{JWTSecret: "demo-secret", JWTTTLHours: 1, BcryptCost: 4})

	_, err := PopulateDemo(context.Background(), svc, DemoOptions{Users: 1})
	assert.ErrorContains(t, err, "baseline")
}

func TestPopulateDemo_NeedsUsers(t *testing.T) {
	db := testutil.OpenDB(t)
	svc := NewServices(db, nil, &config.Config{JWTSecret: "demo-secret", BcryptCost: 4})

	_, err := PopulateDemo(context.Background(), svc, DemoOptions{})
	assert.Error(t, err)
}

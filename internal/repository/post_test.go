package repository

import (
	"context"
	"testing"

	"agora/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository_CreateRequiresReferences(t *testing.T) {
	f := newFixtures(t)
	alice := f.user("alice")

	_, err := f.posts.Create(context.Background(), &models.Post{
		Title: "t", Content: "c", UserID: alice.ID, CategoryID: 404,
	})
	require.Error(t, err)
	assert.True(t, models.IsForeignKeyViolation(err))
}

func TestPostRepository_UpdateAndFilters(t *testing.T) {
	f := newFixtures(t)
	ctx := context.Background()
	alice := f.user("alice")
	bob := f.user("bob")
	general := f.category("General")
	news := f.category("News")

	p1 := f.post(alice, general, "first")
	p2 := f.post(bob, news, "second")
	f.post(alice, news, "third")

	updated, err := f.posts.Update(ctx, p1.ID, PostPatch{Title: ptr("first!"), CategoryID: &news.ID})
	require.NoError(t, err)
	assert.Equal(t, "first!", updated.Title)
	assert.Equal(t, news.ID, updated.CategoryID)
	assert.Equal(t, p1.Content, updated.Content)

	byAlice, err := f.posts.Count(ctx, PostFilter{UserID: &alice.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, byAlice)

	inNews, err := f.posts.List(ctx, PostFilter{CategoryID: &news.ID})
	require.NoError(t, err)
	assert.Len(t, inNews, 3)

	tag, _, err := f.tags.FindOrCreate(ctx, "go")
	require.NoError(t, err)
	_, err = f.postTags.Create(ctx, p2.ID, tag.ID)
	require.NoError(t, err)

	tagged, err := f.posts.List(ctx, PostFilter{TagID: &tag.ID})
	require.NoError(t, err)
	require.Len(t, tagged, 1)
	assert.Equal(t, p2.ID, tagged[0].ID)

	none, err := f.posts.Update(ctx, 999, PostPatch{Title: ptr("x")})
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestPostRepository_ListNewestFirst(t *testing.T) {
	f := newFixtures(t)
	ctx := context.Background()
	alice := f.user("alice")
	general := f.category("General")
	first := f.post(alice, general, "one")
	second := f.post(alice, general, "two")

	list, err := f.posts.List(ctx, PostFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestPostRepository_AdjustLikesCountNeverNegative(t *testing.T) {
	f := newFixtures(t)
	ctx := context.Background()
	p := f.post(f.user("alice"), f.category("General"), "hello")

	ok, err := f.posts.AdjustLikesCount(ctx, p.ID, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.posts.AdjustLikesCount(ctx, p.ID, -2)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.posts.AdjustLikesCount(ctx, p.ID, -1)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := f.posts.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, got.LikesCount)

	ok, err = f.posts.AdjustLikesCount(ctx, 999, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPostRepository_DeleteRemovesDependents(t *testing.T) {
	f := newFixtures(t)
	ctx := context.Background()
	alice := f.user("alice")
	p := f.post(alice, f.category("General"), "hello")
	c1 := f.comment(alice, p, nil)
	f.comment(alice, p, c1)
	f.like(alice, models.TargetPost, p.ID)
	f.like(alice, models.TargetComment, c1.ID)
	tag, _, err := f.tags.FindOrCreate(ctx, "go")
	require.NoError(t, err)
	_, err = f.postTags.Create(ctx, p.ID, tag.ID)
	require.NoError(t, err)

	ok, err := f.posts.Delete(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	comments, err := f.comments.Count(ctx, CommentFilter{PostID: &p.ID})
	require.NoError(t, err)
	assert.Zero(t, comments)

	likes, err := f.likes.Count(ctx, LikeFilter{})
	require.NoError(t, err)
	assert.Zero(t, likes)

	links, err := f.postTags.CountByPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, links)

	stillTagged, err := f.tags.FindByID(ctx, tag.ID)
	require.NoError(t, err)
	assert.NotNil(t, stillTagged)
}

package repository

import (
	"context"
	"testing"

	"agora/internal/cache"
	"agora/internal/database"
	"agora/internal/models"
	"agora/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagRepository_FindOrCreate(t *testing.T) {
	f := newFixtures(t)
	ctx := context.Background()

	first, created, err := f.tags.FindOrCreate(ctx, "go")
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := f.tags.FindOrCreate(ctx, "go")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	n, err := f.tags.Count(ctx, TagFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestTagRepository_FindOrCreateInsideTransaction(t *testing.T) {
	f := newFixtures(t)
	err := database.NewTxManager(f.db).WithinTransaction(context.Background(), func(ctx context.Context) error {
		_, err := f.tags.Create(ctx, &models.Tag{Name: "sql"})
		require.NoError(t, err)
		tag, created, err := f.tags.FindOrCreate(ctx, "sql")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "sql", tag.Name)
		return nil
	})
	require.NoError(t, err)
}

func TestTagRepository_DuplicateCreate(t *testing.T) {
	f := newFixtures(t)
	ctx := context.Background()
	_, err := f.tags.Create(ctx, &models.Tag{Name: "go"})
	require.NoError(t, err)

	_, err = f.tags.Create(ctx, &models.Tag{Name: "go"})
	require.Error(t, err)
	assert.True(t, models.IsUniqueViolation(err, "name"))

	found, err := f.tags.ExistsByName(ctx, "go", 0)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestTagRepository_DeleteUnlinksPosts(t *testing.T) {
	f := newFixtures(t)
	ctx := context.Background()
	p := f.post(f.user("alice"), f.category("General"), "hello")
	tag, _, err := f.tags.FindOrCreate(ctx, "go")
	require.NoError(t, err)
	_, err = f.postTags.Create(ctx, p.ID, tag.ID)
	require.NoError(t, err)

	ok, err := f.tags.Delete(ctx, tag.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := f.postTags.CountByPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	ok, err = f.tags.Delete(ctx, tag.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTagRepository_CachedLookups(t *testing.T) {
	db := testutil.OpenDB(t)
	c, mr := newTestRedis(t)
	repo := NewTagRepository(db, c)
	ctx := context.Background()

	tag, _, err := repo.FindOrCreate(ctx, "go")
	require.NoError(t, err)

	got, err := repo.FindByName(ctx, "go")
	require.NoError(t, err)
	assert.Equal(t, tag.ID, got.ID)
	assert.True(t, mr.Exists(cache.TagNameKey("go")))

	_, err = repo.FindByID(ctx, tag.ID)
	require.NoError(t, err)
	assert.True(t, mr.Exists(cache.TagIDKey(tag.ID)))

	_, err = repo.Delete(ctx, tag.ID)
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.TagNameKey("go")))
	assert.False(t, mr.Exists(cache.TagIDKey(tag.ID)))

	gone, err := repo.FindByName(ctx, "go")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestTagRepository_Update(t *testing.T) {
	db := testutil.OpenDB(t)
	c, mr := newTestRedis(t)
	repo := NewTagRepository(db, c)
	ctx := context.Background()

	tag, _, err := repo.FindOrCreate(ctx, "go")
	require.NoError(t, err)
	_, _, err = repo.FindOrCreate(ctx, "rust")
	require.NoError(t, err)
	_, err = repo.FindByName(ctx, "go")
	require.NoError(t, err)
	_, err = repo.FindByID(ctx, tag.ID)
	require.NoError(t, err)

	renamed, err := repo.Update(ctx, tag.ID, TagPatch{Name: ptr("golang")})
	require.NoError(t, err)
	assert.Equal(t, "golang", renamed.Name)
	assert.False(t, mr.Exists(cache.TagNameKey("go")))
	assert.False(t, mr.Exists(cache.TagIDKey(tag.ID)))

	old, err := repo.FindByName(ctx, "go")
	require.NoError(t, err)
	assert.Nil(t, old)
	byID, err := repo.FindByID(ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, "golang", byID.Name)

	same, err := repo.Update(ctx, tag.ID, TagPatch{})
	require.NoError(t, err)
	assert.Equal(t, "golang", same.Name)

	_, err = repo.Update(ctx, tag.ID, TagPatch{Name: ptr("rust")})
	assert.True(t, models.IsUniqueViolation(err, "name"), "got %v", err)

	missing, err := repo.Update(ctx, 9999, TagPatch{Name: ptr("zig")})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPostTagRepository_Idempotent(t *testing.T) {
	f := newFixtures(t)
	ctx := context.Background()
	p := f.post(f.user("alice"), f.category("General"), "hello")
	goTag, _, err := f.tags.FindOrCreate(ctx, "go")
	require.NoError(t, err)
	dbTag, _, err := f.tags.FindOrCreate(ctx, "databases")
	require.NoError(t, err)

	created, err := f.postTags.Create(ctx, p.ID, goTag.ID)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = f.postTags.Create(ctx, p.ID, goTag.ID)
	require.NoError(t, err)
	assert.False(t, created)
	_, err = f.postTags.Create(ctx, p.ID, dbTag.ID)
	require.NoError(t, err)

	tags, err := f.postTags.ListTagsForPost(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "databases", tags[0].Name)
	assert.Equal(t, "go", tags[1].Name)

	ids, err := f.postTags.ListPostIDsForTag(ctx, goTag.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{p.ID}, ids)

	found, err := f.postTags.Exists(ctx, p.ID, dbTag.ID)
	require.NoError(t, err)
	assert.True(t, found)

	removed, err := f.postTags.Delete(ctx, p.ID, dbTag.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = f.postTags.Delete(ctx, p.ID, dbTag.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestPostTagRepository_MissingReferences(t *testing.T) {
	f := newFixtures(t)
	_, err := f.postTags.Create(context.Background(), 404, 405)
	require.Error(t, err)
	assert.True(t, models.IsForeignKeyViolation(err))
}

package repository

import (
	"context"
	"regexp"
	"testing"

	"agora/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return gormDB, mock
}

func TestUserRepository_CreateAndFind(t *testing.T) {
	f := newFixtures(t)
	ctx := context.Background()

	u := f.user("alice")
	assert.NotZero(t, u.ID)
	assert.Equal(t, models.StatusActive, u.Status)
	assert.False(t, u.CreatedAt.IsZero())

	byEmail, err := f.users.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	byNick, err := f.users.FindByNickname(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byNick.ID)

	missing, err := f.users.FindByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUserRepository_ExistsExcludesSelf(t *testing.T) {
	f := newFixtures(t)
	ctx := context.Background()
	alice := f.user("alice")
	bob := f.user("bob")

	found, err := f.users.ExistsByEmail(ctx, "alice@example.com", 0)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = f.users.ExistsByEmail(ctx, "alice@example.com", alice.ID)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = f.users.ExistsByNickname(ctx, "alice", bob.ID)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestUserRepository_DuplicateEmailNamesColumn(t *testing.T) {
	f := newFixtures(t)
	f.user("alice")

	_, err := f.users.Create(context.Background(), &models.User{
		Email: "alice@example.com", Nickname: "other", Password: "hash",
		Role: models.RoleUser, Status: models.StatusActive,
	})
	require.Error(t, err)
	assert.True(t, models.IsUniqueViolation(err, "email"))
	assert.False(t, models.IsUniqueViolation(err, "nickname"))
}

func TestUserRepository_Update(t *testing.T) {
	f := newFixtures(t)
	ctx := context.Background()
	u := f.user("alice")

	updated, err := f.users.Update(ctx, u.ID, UserPatch{
		Nickname:   ptr("alicia"),
		ProfileURL: ptr("https://example.com/a.png"),
	})
	require.NoError(t, err)
	assert.Equal(t, "alicia", updated.Nickname)
	require.NotNil(t, updated.ProfileURL)
	assert.Equal(t, "alice@example.com", updated.Email)

	cleared, err := f.users.Update(ctx, u.ID, UserPatch{ProfileURL: ptr("")})
	require.NoError(t, err)
	assert.Nil(t, cleared.ProfileURL)

	same, err := f.users.Update(ctx, u.ID, UserPatch{})
	require.NoError(t, err)
	assert.Equal(t, "alicia", same.Nickname)

	none, err := f.users.Update(ctx, 999, UserPatch{Nickname: ptr("x")})
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestUserRepository_ListHidesDeleted(t *testing.T) {
	f := newFixtures(t)
	ctx := context.Background()
	f.user("alice")
	bob := f.user("bob")
	f.user("carol")

	_, err := f.users.Update(ctx, bob.ID, UserPatch{Status: ptr(models.StatusDeleted)})
	require.NoError(t, err)

	users, err := f.users.List(ctx, UserFilter{})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Nickname)

	deleted, err := f.users.Count(ctx, UserFilter{Status: ptr(models.StatusDeleted)})
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	page, err := f.users.List(ctx, UserFilter{Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "carol", page[0].Nickname)
}

func TestUserRepository_DeleteCascadesContent(t *testing.T) {
	f := newFixtures(t)
	ctx := context.Background()
	alice := f.user("alice")
	post := f.post(alice, f.category("General"), "hello")
	f.comment(alice, post, nil)

	ok, err := f.users.Delete(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := f.posts.Count(ctx, PostFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)

	ok, err = f.users.Delete(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUserRepository_PostgresUniqueViolation(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uq_users_nickname", TableName: "users"})
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), &models.User{Email: "a@x.com", Nickname: "a", Password: "h"})
	require.Error(t, err)
	assert.True(t, models.IsUniqueViolation(err, "nickname"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_PostgresFindByEmail(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	rows := sqlmock.NewRows([]string{"id", "email", "nickname", "password", "role", "status"}).
		AddRow(7, "a@x.com", "a", "h", "user", "active")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE email = $1 LIMIT $2`)).
		WithArgs("a@x.com", 1).
		WillReturnRows(rows)

	u, err := repo.FindByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.EqualValues(t, 7, u.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_PostgresInternalError(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users"`)).
		WillReturnError(&pgconn.PgError{Code: "57014", Message: "canceling statement"})

	_, err := repo.FindByID(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindInternal))
}

package bootstrap

import (
	"context"
	"testing"

	"agora/internal/config"
	"agora/internal/database"
	"agora/internal/models"
	"agora/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(redisAddr string) *config.Config {
	return &config.Config{
		Env:            "test",
		LogLevel:       "error",
		DBDriver:       database.DialectSQLite,
		DBSQLitePath:   "file:bootstrap_test?mode=memory&cache=shared",
		DBMaxOpenConns: 1,
		DBMaxIdleConns: 1,
		RedisURL:       redisAddr,
		JWTSecret:      "bootstrap-test-secret-long-enough!!",
		JWTTTLHours:    1,
		BcryptCost:     4,
	}
}

func TestInitRuntime_WiresServices(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	ctx := context.Background()
	rt, err := InitRuntime(ctx, testConfig(mr.Addr()))
	require.NoError(t, err)
	defer func() { assert.NoError(t, rt.Close(ctx)) }()
	assert.True(t, rt.Cache.Enabled())

	m, err := database.NewMigrator(rt.DB)
	require.NoError(t, err)
	_, err = m.Apply(ctx, 0)
	require.NoError(t, err)

	user, err := rt.Services.Users.Register(ctx, service.RegisterInput{
		Email: "a@x.com", Nickname: "nick-a", Password: "password1",
	})
	require.NoError(t, err)

	token, _, err := rt.Services.Users.Login(ctx, "a@x.com", "password1")
	require.NoError(t, err)
	who, err := rt.Services.Users.Identify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, who.ID)

	category, err := rt.Services.Categories.Create(ctx, service.CreateCategoryInput{Name: "General"})
	require.NoError(t, err)
	_, err = rt.Services.Categories.Get(ctx, category.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, mr.Keys(), "category lookups populate the cache")

	_, err = rt.Services.Categories.Create(ctx, service.CreateCategoryInput{Name: "General"})
	assert.ErrorIs(t, err, models.ErrDuplicateCategoryName)
}

func TestInitRuntime_WithoutRedis(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig("")
	cfg.DBSQLitePath = "file:bootstrap_noredis?mode=memory&cache=shared"

	rt, err := InitRuntime(ctx, cfg)
	require.NoError(t, err)
	assert.False(t, rt.Cache.Enabled())
	assert.NoError(t, rt.Close(ctx))
}

func TestInitRuntime_BadDriver(t *testing.T) {
	cfg := testConfig("")
	cfg.DBDriver = "oracle"
	_, err := InitRuntime(context.Background(), cfg)
	assert.Error(t, err)
}

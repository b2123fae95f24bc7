// Package bootstrap wires configuration, storage and services for the commands.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agora/internal/auth"
	"agora/internal/cache"
	"agora/internal/config"
	"agora/internal/database"
	"agora/internal/observability"
	"agora/internal/repository"
	"agora/internal/service"

	"gorm.io/gorm"
)

// Services holds one instance of every domain service, sharing one pool.
type Services struct {
	Users      *service.UserService
	Categories *service.CategoryService
	Posts      *service.PostService
	Tags       *service.TagService
	Comments   *service.CommentService
	Likes      *service.LikeService
}

// Runtime is everything a command needs after startup.
type Runtime struct {
	Config   *config.Config
	DB       *gorm.DB
	Cache    *cache.Cache
	Services *Services

	shutdownTracing func(context.Context) error
}

// NewServices builds the repositories and services over db. c may be nil.
func NewServices(db *gorm.DB, c *cache.Cache, cfg *config.Config) *Services {
	tx := database.NewTxManager(db)

	users := repository.NewUserRepository(db)
	categories := repository.NewCategoryRepository(db, c)
	posts := repository.NewPostRepository(db)
	comments := repository.NewCommentRepository(db)
	tags := repository.NewTagRepository(db, c)
	postTags := repository.NewPostTagRepository(db)
	likes := repository.NewLikeRepository(db)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour)

	likeService := service.NewLikeService(likes, posts, comments, users, tx)

	return &Services{
		Users:      service.NewUserService(users, likeService, tx, tokens, cfg.BcryptCost),
		Categories: service.NewCategoryService(categories, tx),
		Posts:      service.NewPostService(posts, postTags, tags, categories, users, tx),
		Tags:       service.NewTagService(tags),
		Comments:   service.NewCommentService(comments, posts, users, tx),
		Likes:      likeService,
	}
}

// InitRuntime sets up logging and tracing, then connects to the database and Redis.
// Redis is optional: without it lookups go straight to the database.
func InitRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	observability.SetLogger(observability.NewLogger(cfg.Env, cfg.LogLevel))

	shutdown, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "agora",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSamplerRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing init failed: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	c := cache.Connect(ctx, cfg.RedisURL)

	return &Runtime{
		Config:          cfg,
		DB:              db,
		Cache:           c,
		Services:        NewServices(db, c, cfg),
		shutdownTracing: shutdown,
	}, nil
}

// Close releases the cache, the pool and the tracer.
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error
	if err := r.Cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close cache: %w", err))
	}
	if err := database.Close(r.DB); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	if r.shutdownTracing != nil {
		if err := r.shutdownTracing(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
	}
	return errors.Join(errs...)
}

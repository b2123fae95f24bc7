package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"agora/internal/models"
	"agora/internal/observability"
	"agora/internal/repository"
	"agora/internal/seed"
	"agora/internal/service"
)

// DemoOptions sizes a generated demo dataset.
type DemoOptions struct {
	Users           int
	Posts           int
	CommentsPerPost int
	LikesPerPost    int
	MaxTags         int
	Seed            int64
}

// DemoSummary counts what PopulateDemo created.
type DemoSummary struct {
	Users    int
	Posts    int
	Comments int
	Likes    int
}

// PopulateDemo fills the store with generated users, posts, comments and likes.
// Everything goes through the services, so the same rules apply as for real traffic.
// The baseline categories must already exist.
func PopulateDemo(ctx context.Context, svc *Services, opts DemoOptions) (DemoSummary, error) {
	var sum DemoSummary
	if opts.Users < 1 {
		return sum, errors.New("demo data needs at least one user")
	}

	categories, err := svc.Categories.List(ctx, repository.CategoryFilter{})
	if err != nil {
		return sum, fmt.Errorf("list categories: %w", err)
	}
	if len(categories) == 0 {
		return sum, errors.New("no categories found; run the baseline seed first")
	}

	f := seed.NewFactory(opts.Seed)

	userIDs := make([]uint, 0, opts.Users)
	for len(userIDs) < opts.Users {
		fx := f.User()
		in := service.RegisterInput{Email: fx.Email, Nickname: fx.Nickname, Password: fx.Password}
		if fx.ProfileURL != "" {
			in.ProfileURL = &fx.ProfileURL
		}
		u, err := svc.Users.Register(ctx, in)
		if errors.Is(err, models.ErrEmailTaken) || errors.Is(err, models.ErrNicknameTaken) {
			continue
		}
		if err != nil {
			return sum, fmt.Errorf("register demo user: %w", err)
		}
		userIDs = append(userIDs, u.ID)
	}
	sum.Users = len(userIDs)

	for i := 0; i < opts.Posts; i++ {
		fx := f.Post(opts.MaxTags)
		post, err := svc.Posts.Create(ctx, service.CreatePostInput{
			UserID:     userIDs[f.Pick(len(userIDs))],
			CategoryID: categories[f.Pick(len(categories))].ID,
			Title:      fx.Title,
			Content:    fx.Content,
			Tags:       fx.Tags,
		})
		if err != nil {
			return sum, fmt.Errorf("create demo post: %w", err)
		}
		sum.Posts++

		var topLevel []uint
		for j := 0; j < opts.CommentsPerPost; j++ {
			in := service.CreateCommentInput{
				PostID:  post.ID,
				UserID:  userIDs[f.Pick(len(userIDs))],
				Content: f.Comment(),
			}
			// Roughly a third of comments answer an earlier one.
			if len(topLevel) > 0 && f.Pick(3) == 0 {
				parent := topLevel[f.Pick(len(topLevel))]
				in.ParentID = &parent
			}
			comment, err := svc.Comments.Create(ctx, in)
			if err != nil {
				return sum, fmt.Errorf("create demo comment: %w", err)
			}
			if comment.ParentID == nil {
				topLevel = append(topLevel, comment.ID)
			}
			sum.Comments++
		}

		likes := opts.LikesPerPost
		if likes > len(userIDs) {
			likes = len(userIDs)
		}
		start := f.Pick(len(userIDs))
		for k := 0; k < likes; k++ {
			uid := userIDs[(start+k)%len(userIDs)]
			if _, err := svc.Likes.Like(ctx, uid, models.TargetPost, post.ID); err != nil {
				return sum, fmt.Errorf("like demo post: %w", err)
			}
			sum.Likes++
		}
	}

	observability.Logger.InfoContext(ctx, "Demo data created",
		slog.Int("users", sum.Users),
		slog.Int("posts", sum.Posts),
		slog.Int("comments", sum.Comments),
		slog.Int("likes", sum.Likes),
	)
	return sum, nil
}

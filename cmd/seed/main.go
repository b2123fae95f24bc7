// Command seed migrates the schema, installs the baseline rows and optionally
// generates demo content.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"agora/internal/bootstrap"
	"agora/internal/config"
	"agora/internal/database"
	"agora/internal/seed"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	numUsers := flag.Int("demo-users", 0, "Number of demo users to create (0 skips demo data)")
	numPosts := flag.Int("demo-posts", 20, "Number of demo posts to create")
	comments := flag.Int("demo-comments", 3, "Comments per demo post")
	likes := flag.Int("demo-likes", 2, "Likes per demo post")
	seedValue := flag.Int64("demo-seed", 1, "Random seed for demo data")
	skipMigrate := flag.Bool("skip-migrate", false, "Do not apply pending migrations first")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(ctx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	if !*skipMigrate {
		m, err := database.NewMigrator(rt.DB)
		if err != nil {
			return err
		}
		res, err := m.Apply(ctx, 0)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		if len(res.Versions) > 0 {
			log.Printf("applied migrations %v", res.Versions)
		}
	}

	summary, err := seed.Baseline(ctx, rt.DB, seed.BaselineOptions{
		AdminEmail:    cfg.SeedAdminEmail,
		AdminNickname: cfg.SeedAdminNickname,
		AdminPassword: cfg.SeedAdminPassword,
		BcryptCost:    cfg.BcryptCost,
	})
	if err != nil {
		return fmt.Errorf("baseline seed: %w", err)
	}
	log.Printf("baseline ready: %d categories, %d tags, %d admins", summary.Categories, summary.Tags, summary.Admins)

	if *numUsers == 0 {
		return nil
	}

	demo, err := bootstrap.PopulateDemo(ctx, rt.Services, bootstrap.DemoOptions{
		Users:           *numUsers,
		Posts:           *numPosts,
		CommentsPerPost: *comments,
		LikesPerPost:    *likes,
		MaxTags:         3,
		Seed:            *seedValue,
	})
	if err != nil {
		return fmt.Errorf("demo data: %w", err)
	}
	log.Printf("demo data: %d users, %d posts, %d comments, %d likes", demo.Users, demo.Posts, demo.Comments, demo.Likes)
	return nil
}

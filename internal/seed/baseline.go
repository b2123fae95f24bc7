// Package seed populates the baseline rows every environment needs and
// generates demo fixtures.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"agora/internal/auth"
	"agora/internal/database"
	"agora/internal/models"
	"agora/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BaselineCategory is a category every installation starts with.
type BaselineCategory struct {
	Name        string
	Description string
}

// BaselineCategories defines the permanent categories.
var BaselineCategories = []BaselineCategory{
	{Name: "General", Description: "Anything that does not fit elsewhere."},
	{Name: "Announcements", Description: "News and platform updates."},
	{Name: "Technology", Description: "Software, hardware and the web."},
	{Name: "Science", Description: "Research, discoveries and questions."},
	{Name: "Culture", Description: "Books, film, music and art."},
	{Name: "Help", Description: "Questions about using the forum."},
}

// BaselineTags defines the permanent tags.
var BaselineTags = []string{"discussion", "question", "guide", "news", "meta"}

// BaselineOptions configures the admin account.
type BaselineOptions struct {
	AdminEmail    string
	AdminNickname string
	AdminPassword string
	BcryptCost    int
}

// Summary reports row counts after seeding.
type Summary struct {
	Categories int64
	Tags       int64
	Admins     int64
}

// Baseline upserts the baseline categories, tags and admin account by their
// natural keys in one transaction. Running it again leaves row counts unchanged.
func Baseline(ctx context.Context, db *gorm.DB, opts BaselineOptions) (Summary, error) {
	if opts.AdminEmail == "" || opts.AdminNickname == "" || opts.AdminPassword == "" {
		return Summary{}, fmt.Errorf("seed admin email, nickname and password are required")
	}

	hash, err := auth.HashPassword(opts.AdminPassword, opts.BcryptCost)
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	err = database.NewTxManager(db).WithinTransaction(ctx, func(ctx context.Context) error {
		tx := database.Conn(ctx, db)

		for _, item := range BaselineCategories {
			description := item.Description
			category := models.Category{Name: item.Name, Description: &description}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoUpdates: clause.AssignmentColumns([]string{"description", "updated_at"}),
			}).Create(&category).Error; err != nil {
				return fmt.Errorf("seed category %q: %w", item.Name, err)
			}
		}

		for _, name := range BaselineTags {
			tag := models.Tag{Name: name}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoNothing: true,
			}).Create(&tag).Error; err != nil {
				return fmt.Errorf("seed tag %q: %w", name, err)
			}
		}

		admin := models.User{
			Email:    strings.ToLower(strings.TrimSpace(opts.AdminEmail)),
			Nickname: strings.TrimSpace(opts.AdminNickname),
			Password: hash,
			Role:     models.RoleAdmin,
			Status:   models.StatusActive,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "email"}},
			DoUpdates: clause.Assignments(map[string]any{
				"role":       string(models.RoleAdmin),
				"status":     string(models.StatusActive),
				"updated_at": time.Now().UTC(),
			}),
		}).Create(&admin).Error; err != nil {
			return fmt.Errorf("seed admin %q: %w", opts.AdminEmail, err)
		}

		if err := tx.Model(&models.Category{}).Count(&summary.Categories).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Tag{}).Count(&summary.Tags).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("role = ?", string(models.RoleAdmin)).Count(&summary.Admins).Error
	})
	if err != nil {
		return Summary{}, err
	}

	observability.Logger.InfoContext(ctx, "Baseline seed applied",
		slog.Int64("categories", summary.Categories),
		slog.Int64("tags", summary.Tags),
		slog.Int64("admins", summary.Admins),
	)
	return summary, nil
}

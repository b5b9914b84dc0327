package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/catalogman/internal/config"
	"github.com/hitoshi/catalogman/internal/database"
	"github.com/hitoshi/catalogman/internal/model"
	"github.com/hitoshi/catalogman/internal/repository"
)

// seedItem はサンプルアイテムの定義。
type seedItem struct {
	name        string
	description string
	category    string
	image       string
}

var seedCategories = []string{
	"Breakfast", "Appetizer", "Soup", "Snack", "Main Course", "Dessert",
}

var seedItems = []seedItem{
	{
		name: "Jalapeno Poppers",
		description: "<p>Jalapeno peppers that have been hollowed out, " +
			"stuffed with a mixture of cheese and spices, breaded and deep fried.</p>",
		category: "Appetizer",
		image:    "jalapeno_poppers.jpg",
	},
	{
		name: "Buffalo Wings",
		description: "<p>Deep-fried unbreaded chicken wings coated in " +
			"vinegar-based cayenne pepper hot sauce and butter, served with " +
			"celery sticks and blue cheese dressing.</p>",
		category: "Appetizer",
		image:    "buffalo_wings.jpg",
	},
	{
		name: "French Onion Soup",
		description: "<p>A soup based on caramelized onions and meat stock, " +
			"usually served gratineed with croutons and melted cheese on top.</p>",
		category: "Soup",
		image:    "french_onion_soup.jpg",
	},
	{
		name: "Pancakes",
		description: "<p>A flat cake prepared from a starch-based batter and " +
			"cooked on a hot griddle, commonly served with butter and maple syrup.</p>",
		category: "Breakfast",
		image:    "pancakes.jpg",
	},
	{
		name: "Tiramisu",
		description: "<p>A coffee-flavoured Italian dessert made of ladyfingers " +
			"dipped in coffee, layered with a whipped mixture of eggs, sugar and " +
			"mascarpone cheese.</p>",
		category: "Dessert",
		image:    "tiramisu.jpg",
	},
}

// runSeed はサンプルデータを投入する。
// 投入済みの場合（シードユーザーが存在する場合）は何もせず終了する。
func runSeed(cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	userRepo := repository.NewPostgresUserRepo(db)
	categoryRepo := repository.NewPostgresCategoryRepo(db)
	itemRepo := repository.NewPostgresItemRepo(db)

	const seedEmail = "galileo@example.com"

	existing, err := userRepo.FindByEmail(ctx, seedEmail)
	if err != nil {
		return fmt.Errorf("failed to check seed user: %w", err)
	}
	if existing != nil {
		slog.Info("seed data already present, skipping")
		return nil
	}

	now := time.Now()
	user := &model.User{
		ID:        uuid.New().String(),
		Name:      "galileo",
		Email:     seedEmail,
		Picture:   "https://example.com/galileo.jpg",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := userRepo.Create(ctx, user); err != nil {
		return fmt.Errorf("failed to create seed user: %w", err)
	}

	categoryIDs := make(map[string]string, len(seedCategories))
	for _, name := range seedCategories {
		category := &model.Category{
			ID:        uuid.New().String(),
			Name:      name,
			UserID:    user.ID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := categoryRepo.Create(ctx, category); err != nil {
			return fmt.Errorf("failed to create seed category %q: %w", name, err)
		}
		categoryIDs[name] = category.ID
	}

	for _, s := range seedItems {
		item := &model.Item{
			ID:          uuid.New().String(),
			Name:        s.name,
			Description: s.description,
			CategoryID:  categoryIDs[s.category],
			Image:       s.image,
			UserID:      user.ID,
			PubDate:     now,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := itemRepo.Create(ctx, item); err != nil {
			return fmt.Errorf("failed to create seed item %q: %w", s.name, err)
		}
	}

	slog.Info("seed data created",
		slog.Int("categories", len(seedCategories)),
		slog.Int("items", len(seedItems)),
	)
	return nil
}

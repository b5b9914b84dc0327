// Package catalog はカタログ（カテゴリ・アイテム）のドメインロジックを提供する。
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/catalogman/internal/model"
	"github.com/hitoshi/catalogman/internal/repository"
)

// reservedName はルーティング（/catalog/{category}/new 等）と衝突するため
// カテゴリ名・アイテム名として使用できない予約語。
const reservedName = "new"

// recentItemLimit はカタログトップとAtomフィードに表示する最新アイテム数。
const recentItemLimit = 10

// CategoryService はカテゴリのCRUD操作を提供する。
type CategoryService struct {
	categories repository.CategoryRepository
	items      repository.ItemRepository
}

// NewCategoryService はCategoryServiceの新しいインスタンスを生成する。
func NewCategoryService(categories repository.CategoryRepository, items repository.ItemRepository) *CategoryService {
	return &CategoryService{
		categories: categories,
		items:      items,
	}
}

// List は全カテゴリをname昇順で返す。
func (s *CategoryService) List(ctx context.Context) ([]*model.Category, error) {
	return s.categories.List(ctx)
}

// Get はカテゴリ名でカテゴリを取得する。
func (s *CategoryService) Get(ctx context.Context, name string) (*model.Category, error) {
	category, err := s.categories.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to find category: %w", err)
	}
	if category == nil {
		return nil, model.NewCategoryNotFoundError(name)
	}
	return category, nil
}

// GetWithItems はカテゴリとその所属アイテムを取得する。
func (s *CategoryService) GetWithItems(ctx context.Context, name string) (*model.CategoryWithItems, error) {
	category, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	items, err := s.items.ListByCategoryID(ctx, category.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list category items: %w", err)
	}

	return &model.CategoryWithItems{Category: *category, Items: items}, nil
}

// Overview はカタログトップ用に全カテゴリと最新アイテムを返す。
func (s *CategoryService) Overview(ctx context.Context) ([]*model.Category, []*model.ItemWithOwner, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list categories: %w", err)
	}

	recent, err := s.items.ListRecent(ctx, recentItemLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list recent items: %w", err)
	}

	return categories, recent, nil
}

// FullCatalog は全カテゴリとその所属アイテムを返す。
// /catalog/json のシリアライズで使用される。
func (s *CategoryService) FullCatalog(ctx context.Context) ([]*model.CategoryWithItems, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	result := make([]*model.CategoryWithItems, 0, len(categories))
	for _, category := range categories {
		items, err := s.items.ListByCategoryID(ctx, category.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list category items: %w", err)
		}
		result = append(result, &model.CategoryWithItems{Category: *category, Items: items})
	}

	return result, nil
}

// Create はカテゴリを新規作成する。
// "new" は予約語のため使用できず、名前の重複はCATEGORY_EXISTSとなる。
func (s *CategoryService) Create(ctx context.Context, userID, name string) (*model.Category, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	now := time.Now()
	category := &model.Category{
		ID:        uuid.New().String(),
		Name:      name,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.categories.Create(ctx, category); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, model.NewCategoryExistsError(name)
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	slog.Info("category created", "category_id", category.ID, "name", name, "user_id", userID)
	return category, nil
}

// Rename はカテゴリ名を変更する。所有者のみが実行できる。
func (s *CategoryService) Rename(ctx context.Context, userID, name, newName string) (*model.Category, error) {
	if err := validateName(newName); err != nil {
		return nil, err
	}

	category, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if category.UserID != userID {
		return nil, model.NewNotOwnerError()
	}

	category.Name = newName
	category.UpdatedAt = time.Now()

	if err := s.categories.Update(ctx, category); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, model.NewCategoryExistsError(newName)
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}

	slog.Info("category renamed", "category_id", category.ID, "name", newName)
	return category, nil
}

// Delete はカテゴリを削除する。所有者のみが実行でき、
// 所属アイテムはCASCADE削除される。
func (s *CategoryService) Delete(ctx context.Context, userID, name string) error {
	category, err := s.Get(ctx, name)
	if err != nil {
		return err
	}
	if category.UserID != userID {
		return model.NewNotOwnerError()
	}

	if err := s.categories.DeleteByID(ctx, category.ID); err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	slog.Info("category deleted", "category_id", category.ID, "name", name)
	return nil
}

// validateName はカテゴリ名・アイテム名の共通検証を行う。
func validateName(name string) error {
	if name == "" {
		return model.NewValidationError("名前を入力してください")
	}
	if name == reservedName {
		return model.NewReservedNameError(name)
	}
	return nil
}

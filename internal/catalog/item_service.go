package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/catalogman/internal/model"
	"github.com/hitoshi/catalogman/internal/repository"
	"github.com/hitoshi/catalogman/internal/security"
)

// ItemInput はアイテム作成・更新の入力を表す。
type ItemInput struct {
	Name         string
	Description  string // 生HTML。保存前にサニタイズされる
	CategoryName string
	Image        string // uploadsディレクトリ内の保存ファイル名（任意）
}

// ImageStore はアイテム画像の削除インターフェース。
// upload.Storeを抽象化してテスタビリティを向上させる。
type ImageStore interface {
	Remove(storedName string) error
}

// ItemService はアイテムのCRUD操作を提供する。
// 説明文は保存前に必ずコンテンツサニタイザを通過する。
type ItemService struct {
	items      repository.ItemRepository
	categories repository.CategoryRepository
	sanitizer  security.ContentSanitizerService
	images     ImageStore
}

// NewItemService はItemServiceの新しいインスタンスを生成する。
func NewItemService(
	items repository.ItemRepository,
	categories repository.CategoryRepository,
	sanitizer security.ContentSanitizerService,
	images ImageStore,
) *ItemService {
	return &ItemService{
		items:      items,
		categories: categories,
		sanitizer:  sanitizer,
		images:     images,
	}
}

// Get はアイテム名でアイテムと所有者名を取得する。
func (s *ItemService) Get(ctx context.Context, name string) (*model.ItemWithOwner, error) {
	item, err := s.items.FindByNameWithOwner(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to find item: %w", err)
	}
	if item == nil {
		return nil, model.NewItemNotFoundError(name)
	}
	return item, nil
}

// ListRecent は最新アイテムをpub_date降順で返す。
func (s *ItemService) ListRecent(ctx context.Context) ([]*model.ItemWithOwner, error) {
	return s.items.ListRecent(ctx, recentItemLimit)
}

// Create はアイテムを新規作成する。
// "new" は予約語のため使用できず、名前の重複はITEM_EXISTSとなる。
// 説明文はサニタイズされてから保存される。
func (s *ItemService) Create(ctx context.Context, userID string, input ItemInput) (*model.Item, error) {
	if err := validateName(input.Name); err != nil {
		return nil, err
	}

	category, err := s.findCategory(ctx, input.CategoryName)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	item := &model.Item{
		ID:          uuid.New().String(),
		Name:        input.Name,
		Description: s.sanitizer.Sanitize(input.Description),
		CategoryID:  category.ID,
		Image:       input.Image,
		UserID:      userID,
		PubDate:     now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.items.Create(ctx, item); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, model.NewItemExistsError(input.Name)
		}
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	slog.Info("item created", "item_id", item.ID, "name", item.Name, "user_id", userID)
	return item, nil
}

// Update はアイテムを更新する。所有者のみが実行できる。
// 空でないフィールドのみが反映される。
func (s *ItemService) Update(ctx context.Context, userID, name string, input ItemInput) (*model.Item, error) {
	item, err := s.findOwned(ctx, userID, name)
	if err != nil {
		return nil, err
	}

	if input.Name != "" && input.Name != item.Name {
		if err := validateName(input.Name); err != nil {
			return nil, err
		}
		item.Name = input.Name
	}
	if input.Description != "" {
		item.Description = s.sanitizer.Sanitize(input.Description)
	}
	if input.CategoryName != "" {
		category, err := s.findCategory(ctx, input.CategoryName)
		if err != nil {
			return nil, err
		}
		item.CategoryID = category.ID
	}
	if input.Image != "" && input.Image != item.Image {
		s.removeImage(item.Image)
		item.Image = input.Image
	}
	item.UpdatedAt = time.Now()

	if err := s.items.Update(ctx, item); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, model.NewItemExistsError(input.Name)
		}
		return nil, fmt.Errorf("failed to update item: %w", err)
	}

	slog.Info("item updated", "item_id", item.ID, "name", item.Name)
	return item, nil
}

// Delete はアイテムを削除する。所有者のみが実行できる。
// 保存済み画像ファイルも削除される（失敗してもエラーとしない）。
func (s *ItemService) Delete(ctx context.Context, userID, name string) error {
	item, err := s.findOwned(ctx, userID, name)
	if err != nil {
		return err
	}

	if err := s.items.DeleteByID(ctx, item.ID); err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	s.removeImage(item.Image)

	slog.Info("item deleted", "item_id", item.ID, "name", name)
	return nil
}

// findOwned はアイテムを取得し、所有者を検証する。
func (s *ItemService) findOwned(ctx context.Context, userID, name string) (*model.Item, error) {
	item, err := s.items.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to find item: %w", err)
	}
	if item == nil {
		return nil, model.NewItemNotFoundError(name)
	}
	if item.UserID != userID {
		return nil, model.NewNotOwnerError()
	}
	return item, nil
}

// findCategory はカテゴリ名でカテゴリを取得する。
func (s *ItemService) findCategory(ctx context.Context, name string) (*model.Category, error) {
	if name == "" {
		return nil, model.NewValidationError("カテゴリを指定してください")
	}
	category, err := s.categories.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to find category: %w", err)
	}
	if category == nil {
		return nil, model.NewCategoryNotFoundError(name)
	}
	return category, nil
}

// removeImage は保存済み画像をベストエフォートで削除する。
func (s *ItemService) removeImage(storedName string) {
	if storedName == "" || s.images == nil {
		return
	}
	if err := s.images.Remove(storedName); err != nil {
		slog.Warn("failed to remove item image", "image", storedName, "error", err)
	}
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/catalogman/internal/model"
)

// mockCatalogService はCatalogServiceInterfaceのテスト用モック。
type mockCatalogService struct {
	overviewFn    func(ctx context.Context) ([]*model.Category, []*model.ItemWithOwner, error)
	fullCatalogFn func(ctx context.Context) ([]*model.CategoryWithItems, error)
}

func (m *mockCatalogService) Overview(ctx context.Context) ([]*model.Category, []*model.ItemWithOwner, error) {
	return m.overviewFn(ctx)
}

func (m *mockCatalogService) FullCatalog(ctx context.Context) ([]*model.CategoryWithItems, error) {
	return m.fullCatalogFn(ctx)
}

// mockRecentItemLister はRecentItemListerのテスト用モック。
type mockRecentItemLister struct {
	listRecentFn func(ctx context.Context) ([]*model.ItemWithOwner, error)
}

func (m *mockRecentItemLister) ListRecent(ctx context.Context) ([]*model.ItemWithOwner, error) {
	return m.listRecentFn(ctx)
}

var (
	_ CatalogServiceInterface = (*mockCatalogService)(nil)
	_ RecentItemLister        = (*mockRecentItemLister)(nil)
)

func TestCatalogHandler_Overview(t *testing.T) {
	t.Run("カテゴリ一覧と最新アイテムを返す", func(t *testing.T) {
		now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		service := &mockCatalogService{
			overviewFn: func(ctx context.Context) ([]*model.Category, []*model.ItemWithOwner, error) {
				return []*model.Category{
						{ID: "cat-1", Name: "文房具", CreatedAt: now, UpdatedAt: now},
						{ID: "cat-2", Name: "家具", CreatedAt: now, UpdatedAt: now},
					}, []*model.ItemWithOwner{
						{
							Item:      model.Item{ID: "item-1", Name: "万年筆", CategoryID: "cat-1", PubDate: now},
							OwnerName: "田中太郎",
						},
					}, nil
			},
		}
		h := NewCatalogHandler(service, &mockRecentItemLister{}, "https://catalog.example.com")

		req := httptest.NewRequest(http.MethodGet, "/catalog", nil)
		rec := httptest.NewRecorder()
		h.Overview(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}

		var body struct {
			Categories  []categoryResponse `json:"categories"`
			LatestItems []itemResponse     `json:"latest_items"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(body.Categories) != 2 {
			t.Errorf("len(categories) = %d, want 2", len(body.Categories))
		}
		if len(body.LatestItems) != 1 {
			t.Fatalf("len(latest_items) = %d, want 1", len(body.LatestItems))
		}
		if body.LatestItems[0].OwnerName != "田中太郎" {
			t.Errorf("owner_name = %q, want %q", body.LatestItems[0].OwnerName, "田中太郎")
		}
	})

	t.Run("サービスエラー時は500を返す", func(t *testing.T) {
		service := &mockCatalogService{
			overviewFn: func(ctx context.Context) ([]*model.Category, []*model.ItemWithOwner, error) {
				return nil, nil, context.DeadlineExceeded
			},
		}
		h := NewCatalogHandler(service, &mockRecentItemLister{}, "https://catalog.example.com")

		req := httptest.NewRequest(http.MethodGet, "/catalog", nil)
		rec := httptest.NewRecorder()
		h.Overview(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
		}
	})
}

func TestCatalogHandler_FullCatalog(t *testing.T) {
	t.Run("全カテゴリとアイテムのネスト構造を返す", func(t *testing.T) {
		now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		service := &mockCatalogService{
			fullCatalogFn: func(ctx context.Context) ([]*model.CategoryWithItems, error) {
				return []*model.CategoryWithItems{
					{
						Category: model.Category{ID: "cat-1", Name: "文房具", CreatedAt: now, UpdatedAt: now},
						Items: []*model.Item{
							{ID: "item-1", Name: "万年筆", CategoryID: "cat-1", PubDate: now},
							{ID: "item-2", Name: "ノート", CategoryID: "cat-1", PubDate: now},
						},
					},
					{
						Category: model.Category{ID: "cat-2", Name: "家具", CreatedAt: now, UpdatedAt: now},
						Items:    []*model.Item{},
					},
				}, nil
			},
		}
		h := NewCatalogHandler(service, &mockRecentItemLister{}, "https://catalog.example.com")

		req := httptest.NewRequest(http.MethodGet, "/catalog/json", nil)
		rec := httptest.NewRecorder()
		h.FullCatalog(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}

		var body struct {
			Categories []categoryWithItemsResponse `json:"categories"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(body.Categories) != 2 {
			t.Fatalf("len(categories) = %d, want 2", len(body.Categories))
		}
		if len(body.Categories[0].Items) != 2 {
			t.Errorf("len(categories[0].items) = %d, want 2", len(body.Categories[0].Items))
		}
		if len(body.Categories[1].Items) != 0 {
			t.Errorf("len(categories[1].items) = %d, want 0", len(body.Categories[1].Items))
		}
	})
}

func TestCatalogHandler_RecentAtom(t *testing.T) {
	t.Run("最新アイテムのAtomフィードを返す", func(t *testing.T) {
		now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		lister := &mockRecentItemLister{
			listRecentFn: func(ctx context.Context) ([]*model.ItemWithOwner, error) {
				return []*model.ItemWithOwner{
					{
						Item:      model.Item{ID: "item-1", Name: "万年筆", Description: "<p>手作りの万年筆</p>", PubDate: now},
						OwnerName: "田中太郎",
					},
				}, nil
			},
		}
		h := NewCatalogHandler(&mockCatalogService{}, lister, "https://catalog.example.com")

		req := httptest.NewRequest(http.MethodGet, "/catalog/recent.atom", nil)
		rec := httptest.NewRecorder()
		h.RecentAtom(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/atom+xml") {
			t.Errorf("Content-Type = %q, want application/atom+xml", ct)
		}

		feed, err := gofeed.NewParser().Parse(rec.Body)
		if err != nil {
			t.Fatalf("response should be a parseable feed: %v", err)
		}
		if feed.FeedType != "atom" {
			t.Errorf("feed type = %q, want %q", feed.FeedType, "atom")
		}
		if len(feed.Items) != 1 {
			t.Fatalf("len(feed.Items) = %d, want 1", len(feed.Items))
		}
		if feed.Items[0].Title != "万年筆" {
			t.Errorf("item title = %q, want %q", feed.Items[0].Title, "万年筆")
		}
	})

	t.Run("一覧取得エラー時は500を返す", func(t *testing.T) {
		lister := &mockRecentItemLister{
			listRecentFn: func(ctx context.Context) ([]*model.ItemWithOwner, error) {
				return nil, context.DeadlineExceeded
			},
		}
		h := NewCatalogHandler(&mockCatalogService{}, lister, "https://catalog.example.com")

		req := httptest.NewRequest(http.MethodGet, "/catalog/recent.atom", nil)
		rec := httptest.NewRecorder()
		h.RecentAtom(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
		}
	})
}

package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/catalogman/internal/catalog"
	"github.com/hitoshi/catalogman/internal/middleware"
	"github.com/hitoshi/catalogman/internal/model"
)

// CatalogServiceInterface はカタログ閲覧ハンドラーが必要とするサービスインターフェース。
type CatalogServiceInterface interface {
	Overview(ctx context.Context) ([]*model.Category, []*model.ItemWithOwner, error)
	FullCatalog(ctx context.Context) ([]*model.CategoryWithItems, error)
}

// RecentItemLister はAtomフィード生成が必要とするサービスインターフェース。
type RecentItemLister interface {
	ListRecent(ctx context.Context) ([]*model.ItemWithOwner, error)
}

// CatalogHandler はカタログ閲覧のHTTPハンドラー。
type CatalogHandler struct {
	catalogs CatalogServiceInterface
	items    RecentItemLister
	baseURL  string
}

// NewCatalogHandler はCatalogHandlerを生成する。
func NewCatalogHandler(catalogs CatalogServiceInterface, items RecentItemLister, baseURL string) *CatalogHandler {
	return &CatalogHandler{
		catalogs: catalogs,
		items:    items,
		baseURL:  baseURL,
	}
}

// categoryResponse はカテゴリのJSON表現。
type categoryResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// itemResponse はアイテムのJSON表現。
type itemResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CategoryID  string    `json:"category_id"`
	Image       string    `json:"image,omitempty"`
	OwnerName   string    `json:"owner_name,omitempty"`
	PubDate     time.Time `json:"pub_date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// categoryWithItemsResponse はカテゴリと所属アイテムのJSON表現。
type categoryWithItemsResponse struct {
	categoryResponse
	Items []itemResponse `json:"items"`
}

func toCategoryResponse(c *model.Category) categoryResponse {
	return categoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func toItemResponse(item *model.Item, ownerName string) itemResponse {
	return itemResponse{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		CategoryID:  item.CategoryID,
		Image:       item.Image,
		OwnerName:   ownerName,
		PubDate:     item.PubDate,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
}

// Overview はカタログトップの情報を返す。
// GET /catalog
func (h *CatalogHandler) Overview(w http.ResponseWriter, r *http.Request) {
	categories, recent, err := h.catalogs.Overview(r.Context())
	if err != nil {
		slog.Error("failed to load catalog overview", slog.String("error", err.Error()))
		middleware.WriteAPIError(w, err)
		return
	}

	categoryList := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		categoryList = append(categoryList, toCategoryResponse(c))
	}
	itemList := make([]itemResponse, 0, len(recent))
	for _, item := range recent {
		itemList = append(itemList, toItemResponse(&item.Item, item.OwnerName))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"categories":   categoryList,
		"latest_items": itemList,
	})
}

// FullCatalog は全カテゴリとアイテムのシリアライズ結果を返す。
// GET /catalog/json
func (h *CatalogHandler) FullCatalog(w http.ResponseWriter, r *http.Request) {
	full, err := h.catalogs.FullCatalog(r.Context())
	if err != nil {
		slog.Error("failed to serialize catalog", slog.String("error", err.Error()))
		middleware.WriteAPIError(w, err)
		return
	}

	result := make([]categoryWithItemsResponse, 0, len(full))
	for _, c := range full {
		entry := categoryWithItemsResponse{
			categoryResponse: toCategoryResponse(&c.Category),
			Items:            make([]itemResponse, 0, len(c.Items)),
		}
		for _, item := range c.Items {
			entry.Items = append(entry.Items, toItemResponse(item, ""))
		}
		result = append(result, entry)
	}

	writeJSON(w, http.StatusOK, map[string]any{"categories": result})
}

// RecentAtom は最新アイテムのAtomフィードを返す。
// GET /catalog/recent.atom
func (h *CatalogHandler) RecentAtom(w http.ResponseWriter, r *http.Request) {
	recent, err := h.items.ListRecent(r.Context())
	if err != nil {
		slog.Error("failed to list recent items", slog.String("error", err.Error()))
		middleware.WriteAPIError(w, err)
		return
	}

	body, err := catalog.BuildAtomFeed(recent, h.baseURL, time.Now())
	if err != nil {
		slog.Error("failed to build atom feed", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	w.Header().Set("Content-Type", "application/atom+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// writeJSON はJSONレスポンスを書き込む共通ヘルパー。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

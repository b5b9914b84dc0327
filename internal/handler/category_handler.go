package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/catalogman/internal/middleware"
	"github.com/hitoshi/catalogman/internal/model"
)

// CategoryServiceInterface はカテゴリハンドラーが必要とするサービスインターフェース。
type CategoryServiceInterface interface {
	Get(ctx context.Context, name string) (*model.Category, error)
	GetWithItems(ctx context.Context, name string) (*model.CategoryWithItems, error)
	Create(ctx context.Context, userID, name string) (*model.Category, error)
	Rename(ctx context.Context, userID, name, newName string) (*model.Category, error)
	Delete(ctx context.Context, userID, name string) error
}

// CategoryHandler はカテゴリCRUDのHTTPハンドラー。
type CategoryHandler struct {
	service CategoryServiceInterface
}

// NewCategoryHandler はCategoryHandlerを生成する。
func NewCategoryHandler(service CategoryServiceInterface) *CategoryHandler {
	return &CategoryHandler{service: service}
}

// categoryRequest はカテゴリ作成・更新のリクエストボディ。
type categoryRequest struct {
	Name string `json:"name"`
}

// Create はカテゴリを作成する。
// POST /api/categories
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("リクエストボディが不正です"))
		return
	}

	category, err := h.service.Create(r.Context(), userID, req.Name)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCategoryResponse(category))
}

// Get はカテゴリと所属アイテムを返す。
// GET /api/categories/{name}
func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	category, err := h.service.GetWithItems(r.Context(), name)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	resp := categoryWithItemsResponse{
		categoryResponse: toCategoryResponse(&category.Category),
		Items:            make([]itemResponse, 0, len(category.Items)),
	}
	for _, item := range category.Items {
		resp.Items = append(resp.Items, toItemResponse(item, ""))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Rename はカテゴリ名を変更する。
// PATCH /api/categories/{name}
func (h *CategoryHandler) Rename(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	name := chi.URLParam(r, "name")

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("リクエストボディが不正です"))
		return
	}

	category, err := h.service.Rename(r.Context(), userID, name, req.Name)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCategoryResponse(category))
}

// Delete はカテゴリを削除する。所属アイテムもCASCADE削除される。
// DELETE /api/categories/{name}
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	name := chi.URLParam(r, "name")

	if err := h.service.Delete(r.Context(), userID, name); err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/catalogman/internal/catalog"
	"github.com/hitoshi/catalogman/internal/middleware"
	"github.com/hitoshi/catalogman/internal/model"
)

// maxUploadSize はmultipartアップロードの最大サイズ（10MB）。
const maxUploadSize = 10 * 1024 * 1024

// ItemServiceInterface はアイテムハンドラーが必要とするサービスインターフェース。
type ItemServiceInterface interface {
	Get(ctx context.Context, name string) (*model.ItemWithOwner, error)
	Create(ctx context.Context, userID string, input catalog.ItemInput) (*model.Item, error)
	Update(ctx context.Context, userID, name string, input catalog.ItemInput) (*model.Item, error)
	Delete(ctx context.Context, userID, name string) error
}

// ImageSaver はアップロードされた画像の保存インターフェース。
// upload.Storeを抽象化してテスタビリティを向上させる。
type ImageSaver interface {
	Save(originalName string, r io.Reader) (string, error)
}

// ImageFetcherInterface はリモート画像URLの取得インターフェース。
type ImageFetcherInterface interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// ItemHandler はアイテムCRUDのHTTPハンドラー。
// 作成・更新はJSONボディとmultipart/form-dataの両方を受け付ける。
type ItemHandler struct {
	service ItemServiceInterface
	images  ImageSaver
	fetcher ImageFetcherInterface
}

// NewItemHandler はItemHandlerを生成する。
func NewItemHandler(service ItemServiceInterface, images ImageSaver, fetcher ImageFetcherInterface) *ItemHandler {
	return &ItemHandler{
		service: service,
		images:  images,
		fetcher: fetcher,
	}
}

// itemRequest はアイテム作成・更新のJSONリクエストボディ。
// ImageURLが指定された場合はSSRF防止付きクライアントでリモート取得される。
type itemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	ImageURL    string `json:"image_url"`
}

// Get はアイテムの詳細を返す。
// GET /api/items/{name}
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	item, err := h.service.Get(r.Context(), name)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toItemResponse(&item.Item, item.OwnerName))
}

// Create はアイテムを作成する。
// POST /api/items
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	input, err := h.parseItemInput(r)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	item, err := h.service.Create(r.Context(), userID, input)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toItemResponse(item, ""))
}

// Update はアイテムを更新する。
// PATCH /api/items/{name}
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	name := chi.URLParam(r, "name")

	input, err := h.parseItemInput(r)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	item, err := h.service.Update(r.Context(), userID, name, input)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toItemResponse(item, ""))
}

// Delete はアイテムを削除する。
// DELETE /api/items/{name}
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

// parseItemInput はリクエストからItemInputを構築する。
// multipart/form-dataの場合はimageフィールドのファイルを保存し、
// JSONの場合はimage_urlがあればリモート取得する。
func (h *ItemHandler) parseItemInput(r *http.Request) (catalog.ItemInput, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		return h.parseMultipartInput(r)
	}
	return h.parseJSONInput(r)
}

// parseJSONInput はJSONボディからItemInputを構築する。
func (h *ItemHandler) parseJSONInput(r *http.Request) (catalog.ItemInput, error) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return catalog.ItemInput{}, model.NewValidationError("リクエストボディが不正です")
	}

	input := catalog.ItemInput{
		Name:         req.Name,
		Description:  req.Description,
		CategoryName: req.Category,
	}

	if req.ImageURL != "" {
		stored, err := h.fetcher.Fetch(r.Context(), req.ImageURL)
		if err != nil {
			return catalog.ItemInput{}, err
		}
		input.Image = stored
	}

	return input, nil
}

// parseMultipartInput はmultipartフォームからItemInputを構築する。
func (h *ItemHandler) parseMultipartInput(r *http.Request) (catalog.ItemInput, error) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return catalog.ItemInput{}, model.NewValidationError("multipartフォームの解析に失敗しました")
	}

	input := catalog.ItemInput{
		Name:         r.FormValue("name"),
		Description:  r.FormValue("description"),
		CategoryName: r.FormValue("category"),
	}

	file, header, err := r.FormFile("image")
	if err == nil {
		defer file.Close()
		stored, saveErr := h.images.Save(header.Filename, file)
		if saveErr != nil {
			return catalog.ItemInput{}, model.NewValidationError("画像の保存に失敗しました")
		}
		input.Image = stored
	} else if imageURL := r.FormValue("image_url"); imageURL != "" {
		stored, fetchErr := h.fetcher.Fetch(r.Context(), imageURL)
		if fetchErr != nil {
			return catalog.ItemInput{}, fetchErr
		}
		input.Image = stored
	}

	return input, nil
}

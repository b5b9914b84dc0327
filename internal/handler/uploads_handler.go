package handler

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
)

// ImageOpener は保存済み画像ファイルを開くインターフェース。
type ImageOpener interface {
	Open(storedName string) (*os.File, error)
}

// UploadsHandler はアップロード済み画像の配信ハンドラー。
type UploadsHandler struct {
	images ImageOpener
}

// NewUploadsHandler はUploadsHandlerを生成する。
func NewUploadsHandler(images ImageOpener) *UploadsHandler {
	return &UploadsHandler{images: images}
}

// Serve は保存済み画像を返す。
// GET /uploads/{filename}
func (h *UploadsHandler) Serve(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	f, err := h.images.Open(filename)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		http.NotFound(w, r)
		return
	}

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

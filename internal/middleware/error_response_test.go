package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/catalogman/internal/model"
)

// TestWriteErrorResponse は統一エラーフォーマットの書き込みを検証する。
func TestWriteErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()

	WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidStateError())

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var body ErrorResponseBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body.Code != model.ErrCodeInvalidState {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeInvalidState)
	}
	if body.Message != "Invalid state parameter." {
		t.Errorf("message = %q, want Invalid state parameter.", body.Message)
	}
	if body.Category == "" || body.Action == "" {
		t.Error("expected category and action to be populated")
	}
}

// TestStatusForAPIError はエラーコードとHTTPステータスの対応を検証する。
func TestStatusForAPIError(t *testing.T) {
	tests := []struct {
		name string
		err  *model.APIError
		want int
	}{
		{name: "stateトークン不一致は401", err: model.NewInvalidStateError(), want: http.StatusUnauthorized},
		{name: "交換失敗は401", err: model.NewExchangeFailedError(), want: http.StatusUnauthorized},
		{name: "未接続は401", err: model.NewNotConnectedError(), want: http.StatusUnauthorized},
		{name: "revoke失敗は400", err: model.NewRevokeFailedError(), want: http.StatusBadRequest},
		{name: "未知のプロバイダーは400", err: model.NewUnknownProviderError("x"), want: http.StatusBadRequest},
		{name: "予約語は400", err: model.NewReservedNameError("new"), want: http.StatusBadRequest},
		{name: "所有者以外は403", err: model.NewNotOwnerError(), want: http.StatusForbidden},
		{name: "カテゴリ未検出は404", err: model.NewCategoryNotFoundError("x"), want: http.StatusNotFound},
		{name: "アイテム未検出は404", err: model.NewItemNotFoundError("x"), want: http.StatusNotFound},
		{name: "カテゴリ重複は409", err: model.NewCategoryExistsError("x"), want: http.StatusConflict},
		{name: "アイテム重複は409", err: model.NewItemExistsError("x"), want: http.StatusConflict},
		{name: "未知のコードは500", err: &model.APIError{Code: "SOMETHING_ELSE"}, want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusForAPIError(tt.err); got != tt.want {
				t.Errorf("StatusForAPIError(%s) = %d, want %d", tt.err.Code, got, tt.want)
			}
		})
	}
}

// TestWriteAPIError はAPIErrorと一般エラーの書き分けを検証する。
func TestWriteAPIError(t *testing.T) {
	// APIErrorはコードに応じたステータスで返す
	w := httptest.NewRecorder()
	WriteAPIError(w, model.NewItemExistsError("万年筆"))
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}

	// ラップされたAPIErrorも解決される
	w2 := httptest.NewRecorder()
	WriteAPIError(w2, fmt.Errorf("handler: %w", model.NewNotOwnerError()))
	if w2.Code != http.StatusForbidden {
		t.Errorf("wrapped status = %d, want 403", w2.Code)
	}

	// 一般エラーは500
	w3 := httptest.NewRecorder()
	WriteAPIError(w3, errors.New("db down"))
	if w3.Code != http.StatusInternalServerError {
		t.Errorf("generic status = %d, want 500", w3.Code)
	}

	var body ErrorResponseBody
	if err := json.Unmarshal(w3.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body.Code != "INTERNAL_ERROR" {
		t.Errorf("generic code = %q, want INTERNAL_ERROR", body.Code)
	}
}

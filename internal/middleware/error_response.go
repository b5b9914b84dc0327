package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/catalogman/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// WriteAPIError はエラーをAPIErrorとして解釈してレスポンスを書き込む。
// APIErrorでない場合は詳細をログに記録して500を返す。
func WriteAPIError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		WriteErrorResponse(w, StatusForAPIError(apiErr), apiErr)
		return
	}
	slog.Error("unexpected error", slog.String("error", err.Error()))
	WriteInternalServerError(w)
}

// StatusForAPIError はエラーコードに対応するHTTPステータスコードを返す。
func StatusForAPIError(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidState,
		model.ErrCodeExchangeFailed,
		model.ErrCodeIdentityMismatch,
		model.ErrCodeAudienceMismatch,
		model.ErrCodeMalformedProvider,
		model.ErrCodeNotConnected,
		model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeRevokeFailed,
		model.ErrCodeUnknownProvider,
		model.ErrCodeReservedName,
		model.ErrCodeValidationFailed,
		model.ErrCodeImageFetchFailed:
		return http.StatusBadRequest
	case model.ErrCodeNotOwner:
		return http.StatusForbidden
	case model.ErrCodeCategoryNotFound, model.ErrCodeItemNotFound:
		return http.StatusNotFound
	case model.ErrCodeCategoryExists, model.ErrCodeItemExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, catalog, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
//
// 認証系のMessage文字列は移行前アプリケーションのクライアントSDK
// ブートストラップページがそのまま表示に使うため、当時の英語文面を維持する。
const (
	ErrCodeInvalidState        = "INVALID_STATE"
	ErrCodeExchangeFailed      = "EXCHANGE_FAILED"
	ErrCodeIdentityMismatch    = "IDENTITY_MISMATCH"
	ErrCodeAudienceMismatch    = "AUDIENCE_MISMATCH"
	ErrCodeMalformedProvider   = "MALFORMED_PROVIDER_RESPONSE"
	ErrCodeRevokeFailed        = "REVOKE_FAILED"
	ErrCodeNotConnected        = "NOT_CONNECTED"
	ErrCodeUnknownProvider     = "UNKNOWN_PROVIDER"
	ErrCodeCategoryNotFound    = "CATEGORY_NOT_FOUND"
	ErrCodeCategoryExists      = "CATEGORY_EXISTS"
	ErrCodeItemNotFound        = "ITEM_NOT_FOUND"
	ErrCodeItemExists          = "ITEM_EXISTS"
	ErrCodeReservedName        = "RESERVED_NAME"
	ErrCodeNotOwner            = "NOT_OWNER"
	ErrCodeImageFetchFailed    = "IMAGE_FETCH_FAILED"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
)

// NewInvalidStateError はstateトークン不一致エラーを生成する。
func NewInvalidStateError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidState,
		Message:  "Invalid state parameter.",
		Category: "auth",
		Action:   "ログインページから再度やり直してください。",
	}
}

// NewExchangeFailedError は認可アーティファクトの交換失敗エラーを生成する。
func NewExchangeFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeExchangeFailed,
		Message:  "Failed to upgrade the authorization code.",
		Category: "auth",
		Action:   "ログインページから再度やり直してください。",
	}
}

// NewIdentityMismatchError はトークンのsubjectと検証結果の不一致エラーを生成する。
func NewIdentityMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodeIdentityMismatch,
		Message:  "Token's user ID doesn't match given user ID.",
		Category: "auth",
		Action:   "ログインページから再度やり直してください。",
	}
}

// NewAudienceMismatchError はトークン発行先クライアントの不一致エラーを生成する。
func NewAudienceMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodeAudienceMismatch,
		Message:  "Token's client ID does not match app's.",
		Category: "auth",
		Action:   "ログインページから再度やり直してください。",
	}
}

// NewMalformedProviderResponseError はプロバイダー応答の欠損エラーを生成する。
func NewMalformedProviderResponseError() *APIError {
	return &APIError{
		Code:     ErrCodeMalformedProvider,
		Message:  "Provider returned a malformed response.",
		Category: "auth",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewRevokeFailedError はトークン失効失敗エラーを生成する。
func NewRevokeFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeRevokeFailed,
		Message:  "Failed to revoke token for given user.",
		Category: "auth",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewNotConnectedError は未接続状態でのdisconnect要求エラーを生成する。
func NewNotConnectedError() *APIError {
	return &APIError{
		Code:     ErrCodeNotConnected,
		Message:  "Current user not connected.",
		Category: "auth",
		Action:   "ログインしてから再度お試しください。",
	}
}

// NewUnknownProviderError は未登録プロバイダー指定エラーを生成する。
func NewUnknownProviderError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeUnknownProvider,
		Message:  fmt.Sprintf("unknown provider: %s", name),
		Category: "auth",
		Action:   "対応しているプロバイダーを指定してください。",
	}
}

// NewUnauthorizedError は認証必須エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewCategoryNotFoundError はカテゴリ未検出エラーを生成する。
func NewCategoryNotFoundError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeCategoryNotFound,
		Message:  fmt.Sprintf("指定されたカテゴリが見つかりません: %s", name),
		Category: "catalog",
		Action:   "カテゴリ名を確認してください。",
	}
}

// NewCategoryExistsError はカテゴリ名重複エラーを生成する。
func NewCategoryExistsError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeCategoryExists,
		Message:  fmt.Sprintf("同名のカテゴリが既に存在します: %s", name),
		Category: "catalog",
		Action:   "別のカテゴリ名を指定してください。",
	}
}

// NewItemNotFoundError はアイテム未検出エラーを生成する。
func NewItemNotFoundError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeItemNotFound,
		Message:  fmt.Sprintf("指定されたアイテムが見つかりません: %s", name),
		Category: "catalog",
		Action:   "アイテム名を確認してください。",
	}
}

// NewItemExistsError はアイテム名重複エラーを生成する。
func NewItemExistsError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeItemExists,
		Message:  fmt.Sprintf("同名のアイテムが既に存在します: %s", name),
		Category: "catalog",
		Action:   "別のアイテム名を指定してください。",
	}
}

// NewReservedNameError は予約語を名前に使用した場合のエラーを生成する。
func NewReservedNameError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeReservedName,
		Message:  fmt.Sprintf("'%s' は予約語のため名前に使用できません。", name),
		Category: "validation",
		Action:   "別の名前を指定してください。",
	}
}

// NewNotOwnerError は所有者以外による変更操作のエラーを生成する。
func NewNotOwnerError() *APIError {
	return &APIError{
		Code:     ErrCodeNotOwner,
		Message:  "この操作は作成者のみが実行できます。",
		Category: "auth",
		Action:   "作成者のアカウントでログインしてください。",
	}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewImageFetchFailedError は画像URL取得失敗エラーを生成する。
func NewImageFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeImageFetchFailed,
		Message:  fmt.Sprintf("画像の取得に失敗しました: %s", reason),
		Category: "validation",
		Action:   "公開されている画像URLを指定してください。",
	}
}

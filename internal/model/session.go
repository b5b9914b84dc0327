// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"time"
)

// Provider は外部認証プロバイダーの種別を表す。
type Provider string

const (
	// ProviderNone は未認証状態を示す。
	ProviderNone Provider = ""
	// ProviderGoogle はGoogleによる認証を示す。
	ProviderGoogle Provider = "google"
	// ProviderFacebook はFacebookによる認証を示す。
	ProviderFacebook Provider = "facebook"
)

// SessionState はセッションの状態機械上の状態を表す。
type SessionState string

const (
	// SessionAnonymous は未認証かつstateトークン未発行の状態。初期状態かつ終端状態。
	SessionAnonymous SessionState = "anonymous"
	// SessionPendingLogin はstateトークンが発行されコールバック待ちの状態。
	SessionPendingLogin SessionState = "pending_login"
	// SessionAuthenticated はプロバイダー認証が完了した状態。
	SessionAuthenticated SessionState = "authenticated"
)

// ErrInvalidTransition はセッション状態機械で許可されない遷移を示す。
var ErrInvalidTransition = errors.New("invalid session state transition")

// Session はブラウザ1つに対応するサーバーサイドセッションを表す。
//
// 認証アイデンティティのフィールド群（AccessToken, ProviderIdentity,
// Username, Email, Picture, UserID）は全て同時に設定されるか全て空である。
// この不変条件は遷移メソッド（IssueStateToken / Authenticate / ClearIdentity）
// 経由でのみフィールドを変更することで構造的に保証される。
type Session struct {
	ID string

	// StateToken はログインページ描画からコールバック受信までの間のみ
	// 存在するリクエスト偽造防止トークン。検証で1回消費される。
	StateToken string

	// Provider が ProviderNone 以外であることと認証済みであることは同値。
	Provider Provider

	// AccessToken はプロバイダー固有のdisconnect処理に必要な資格情報。
	AccessToken string

	// ProviderIdentity はプロバイダースコープの識別子（Googleのsub、
	// Facebookのid）。再ログイン時の「接続済み」判定に使用する。
	ProviderIdentity string

	// Username / Email / Picture はログイン時点のプロフィールスナップショット。
	// 以後再同期されない。
	Username string
	Email    string
	Picture  string

	// UserID はローカルUserエンティティへの外部参照。
	UserID string

	ExpiresAt time.Time
	CreatedAt time.Time
}

// State は現在のセッション状態を返す。
func (s *Session) State() SessionState {
	if s.Provider != ProviderNone {
		return SessionAuthenticated
	}
	if s.StateToken != "" {
		return SessionPendingLogin
	}
	return SessionAnonymous
}

// Authenticated はセッションが認証済みかどうかを返す。
func (s *Session) Authenticated() bool {
	return s.Provider != ProviderNone
}

// IssueStateToken はstateトークンを発行しPendingLogin状態に遷移する。
// 既存のトークンは上書きされ、古いトークンは以後永久に使用不能になる。
func (s *Session) IssueStateToken(token string) {
	s.StateToken = token
}

// ConsumeStateToken は受信したstateパラメータをトークンと照合する。
// 一致した場合はトークンを消費し（2度目の検証は必ず失敗する）trueを返す。
// 不一致の場合はセッションを変更せずfalseを返す。
func (s *Session) ConsumeStateToken(state string) bool {
	if s.StateToken == "" || state != s.StateToken {
		return false
	}
	s.StateToken = ""
	return true
}

// Authenticate は認証アイデンティティのフィールド群を一括で設定し
// Authenticated状態に遷移する。UserIDは後続のResolveで設定されるため
// ここでは受け取らない（SetUserID参照）。
func (s *Session) Authenticate(provider Provider, accessToken, providerIdentity, username, email, picture string) error {
	if provider == ProviderNone {
		return ErrInvalidTransition
	}
	s.Provider = provider
	s.AccessToken = accessToken
	s.ProviderIdentity = providerIdentity
	s.Username = username
	s.Email = email
	s.Picture = picture
	return nil
}

// SetUserID はアイデンティティ解決後のローカルユーザーIDを設定する。
// 未認証セッションに対しては不正な遷移となる。
func (s *Session) SetUserID(userID string) error {
	if !s.Authenticated() {
		return ErrInvalidTransition
	}
	s.UserID = userID
	return nil
}

// ClearIdentity は全ての認証アイデンティティフィールドを消去し
// Anonymous状態に戻す。disconnect結果に関わらずログアウトで必ず呼ばれる。
func (s *Session) ClearIdentity() {
	s.Provider = ProviderNone
	s.AccessToken = ""
	s.ProviderIdentity = ""
	s.Username = ""
	s.Email = ""
	s.Picture = ""
	s.UserID = ""
	s.StateToken = ""
}

// Package auth はOAuth認証フロー、アイデンティティ解決、セッション遷移を提供する。
package auth

import (
	"context"

	"github.com/hitoshi/catalogman/internal/model"
)

// Profile は交換処理で得られた検証済みプロフィールを表す。
// 全フィールドがセッションに一括でコミットされる。
type Profile struct {
	// AccessToken はdisconnect処理に必要なプロバイダー資格情報。
	AccessToken string
	// ProviderIdentity はプロバイダースコープの識別子（Googleのsub、Facebookのid）。
	ProviderIdentity string
	Username         string
	Email            string
	Picture          string
}

// Provider は外部認証プロバイダーのインターフェース。
// 各プロバイダーは固有のワイヤープロトコルで認可アーティファクト
// （Googleは一回限りの認可コード、Facebookは短命トークン）を
// アクセストークンと検証済みプロフィールに交換する。
type Provider interface {
	// Name はプロバイダー種別を返す。
	Name() model.Provider

	// Exchange は認可アーティファクトを交換し、検証済みプロフィールを返す。
	// 失敗は*model.APIError（EXCHANGE_FAILED / IDENTITY_MISMATCH /
	// AUDIENCE_MISMATCH / MALFORMED_PROVIDER_RESPONSE）として返す。
	Exchange(ctx context.Context, artifact string) (*Profile, error)

	// Revoke は発行済みアクセストークンを失効させる。
	// providerIdentityはFacebookのpermissions削除エンドポイントで必要となる。
	Revoke(ctx context.Context, providerIdentity, accessToken string) error
}

// Registry はプロバイダー種別からProviderを引くレジストリ。
type Registry struct {
	providers map[model.Provider]Provider
}

// NewRegistry は指定されたプロバイダー群からRegistryを生成する。
func NewRegistry(providers ...Provider) *Registry {
	m := make(map[model.Provider]Provider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	return &Registry{providers: m}
}

// Get は指定種別のプロバイダーを返す。
// 未登録の場合はUNKNOWN_PROVIDERエラーを返す。
func (r *Registry) Get(name model.Provider) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, model.NewUnknownProviderError(string(name))
	}
	return p, nil
}

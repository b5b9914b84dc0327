// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/catalogman/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	// メールアドレスはプロバイダ横断の名寄せキーとして使用される。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。emailの重複はunique_violationとして
	// 呼び出し側に伝播する（IsUniqueViolationで判定可能）。
	Create(ctx context.Context, user *model.User) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error

	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)

	// Update はセッションの全フィールド（stateトークン・認証アイデンティティ）を保存する。
	Update(ctx context.Context, session *model.Session) error

	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error

	// DeleteExpired は期限切れセッションを一括削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// CategoryRepository はカテゴリデータの永続化インターフェース。
type CategoryRepository interface {
	// List は全カテゴリをname昇順で返す。
	List(ctx context.Context) ([]*model.Category, error)

	// FindByID は指定IDのカテゴリを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Category, error)

	// FindByName はカテゴリ名でカテゴリを検索する。見つからない場合はnilを返す。
	FindByName(ctx context.Context, name string) (*model.Category, error)

	// Create はカテゴリを作成する。nameの重複はunique_violationとして伝播する。
	Create(ctx context.Context, category *model.Category) error

	// Update はカテゴリ名を更新する。
	Update(ctx context.Context, category *model.Category) error

	// DeleteByID は指定IDのカテゴリを削除する。所属アイテムはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// ItemRepository はアイテムデータの永続化インターフェース。
type ItemRepository interface {
	// FindByName はアイテム名でアイテムを検索する。見つからない場合はnilを返す。
	FindByName(ctx context.Context, name string) (*model.Item, error)

	// FindByNameWithOwner はアイテム名でアイテムと所有者名を取得する。
	// 見つからない場合はnilを返す。
	FindByNameWithOwner(ctx context.Context, name string) (*model.ItemWithOwner, error)

	// ListByCategoryID は指定カテゴリのアイテムをname昇順で返す。
	ListByCategoryID(ctx context.Context, categoryID string) ([]*model.Item, error)

	// ListRecent は最新アイテムをpub_date降順でlimit件返す。
	ListRecent(ctx context.Context, limit int) ([]*model.ItemWithOwner, error)

	// Create はアイテムを作成する。nameの重複はunique_violationとして伝播する。
	Create(ctx context.Context, item *model.Item) error

	// Update はアイテムを上書き更新する。
	Update(ctx context.Context, item *model.Item) error

	// DeleteByID は指定IDのアイテムを削除する。
	DeleteByID(ctx context.Context, id string) error
}

// Package model はドメインモデルを定義する。
package model

import "time"

// Category はカタログのカテゴリを表す。
// nameはシステム全体で一意。"new" はルーティング用の予約語のため使用できない。
type Category struct {
	ID        string
	Name      string
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CategoryWithItems はカテゴリと所属アイテムを結合したモデル。
// /catalog/json のシリアライズで使用される。
type CategoryWithItems struct {
	Category
	Items []*Item
}

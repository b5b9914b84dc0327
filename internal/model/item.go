// Package model はドメインモデルを定義する。
package model

import "time"

// Item はカタログのアイテムを表す。
// nameはシステム全体で一意。"new" はルーティング用の予約語のため使用できない。
type Item struct {
	ID          string
	Name        string
	Description string // サニタイズ済みHTML
	CategoryID  string
	Image       string // uploadsディレクトリ内の保存ファイル名（任意）
	UserID      string
	PubDate     time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ItemWithOwner はアイテムと所有者情報を結合したモデル。
// アイテム詳細表示とAtomフィード生成で使用される。
type ItemWithOwner struct {
	Item
	OwnerName string
}

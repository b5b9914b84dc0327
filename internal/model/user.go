// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// メールアドレスがプロバイダー横断の結合キーとなる（同一メールアドレスで
// GoogleとFacebookの両方からログインしても同一ユーザーに解決される）。
// 作成後、name/pictureはログインフローでは更新されない。
type User struct {
	ID        string
	Name      string
	Email     string
	Picture   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

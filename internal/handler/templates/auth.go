// Package templates は認証フローのHTMLをtemplコンポーネントとして提供する。
package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// LoginPageParams はログインページの描画パラメータ。
type LoginPageParams struct {
	State          string
	GoogleClientID string
	FacebookAppID  string
}

// LoginPage はログインページのコンポーネントを返す。
// stateトークンとプロバイダーのクライアントIDを埋め込み、
// クライアント側SDKがコールバック時にstateをそのまま返送する。
func LoginPage(p LoginPageParams) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return writeAll(w,
			"<!DOCTYPE html>\n<html>\n<head>\n  <title>ログイン - Catalogman</title>\n  <meta name=\"google-signin-client_id\" content=\"",
			templ.EscapeString(p.GoogleClientID),
			"\">\n</head>\n<body>\n  <h1>ログイン</h1>\n  <div id=\"signin-buttons\"\n       data-state=\"",
			templ.EscapeString(p.State),
			"\"\n       data-google-client-id=\"",
			templ.EscapeString(p.GoogleClientID),
			"\"\n       data-facebook-app-id=\"",
			templ.EscapeString(p.FacebookAppID),
			"\">\n    <button id=\"google-signin\">Googleでログイン</button>\n    <button id=\"facebook-signin\">Facebookでログイン</button>\n  </div>\n</body>\n</html>\n",
		)
	})
}

// Greeting はログイン成功時に返すあいさつフラグメントのコンポーネントを返す。
func Greeting(username, picture string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return writeAll(w,
			"<h1>ようこそ、",
			templ.EscapeString(username),
			"さん！</h1>\n<img src=\"",
			templ.EscapeString(string(templ.URL(picture))),
			"\" alt=\"",
			templ.EscapeString(username),
			"\" style=\"width: 200px; height: 200px; border-radius: 100px;\">\n",
		)
	})
}

func writeAll(w io.Writer, parts ...string) error {
	for _, s := range parts {
		if _, err := io.WriteString(w, s); err != nil {
			return err
		}
	}
	return nil
}

package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/hitoshi/catalogman/internal/model"
	"golang.org/x/net/html"
)

// SSRFValidator はSSRF検証のインターフェース。
// security.SSRFGuardServiceを抽象化してテスタビリティを向上させる。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration) *http.Client
}

// ImageFetcher はリモートURLからアイテム画像を取得して保存する。
// URLが画像を直接指す場合はそのまま保存し、HTMLページを指す場合は
// og:image メタタグまたは link rel="image_src" から画像URLを検出する。
type ImageFetcher struct {
	store     *Store
	ssrfGuard SSRFValidator

	// Timeout は外部リクエストのタイムアウト（デフォルト: 10秒）。
	Timeout time.Duration
	// MaxSize は取得する画像の最大サイズ（デフォルト: 5MB）。
	MaxSize int64
}

// NewImageFetcher はImageFetcherの新しいインスタンスを生成する。
func NewImageFetcher(store *Store, ssrfGuard SSRFValidator) *ImageFetcher {
	return &ImageFetcher{
		store:     store,
		ssrfGuard: ssrfGuard,
		Timeout:   10 * time.Second,
		MaxSize:   5 * 1024 * 1024,
	}
}

// Fetch は画像URLを取得して保存し、保存されたファイル名を返す。
// 1. SSRF検証を実行
// 2. URLにHTTPリクエストを送信
// 3. Content-Typeが画像の場合はそのまま保存
// 4. HTMLの場合は og:image / link rel="image_src" から画像URLを検出して再取得
// 5. 画像が見つからない場合はIMAGE_FETCH_FAILEDエラーを返す
func (f *ImageFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if rawURL == "" {
		return "", model.NewImageFetchFailedError("URLが入力されていません")
	}

	contentType, body, err := f.get(ctx, rawURL)
	if err != nil {
		return "", err
	}

	if isImageContentType(contentType) {
		return f.save(rawURL, body)
	}

	if !strings.Contains(strings.ToLower(contentType), "html") {
		return "", model.NewImageFetchFailedError("画像でもHTMLでもないコンテンツです")
	}

	// HTMLページ: メタタグから画像URLを検出
	imageURL := ParseImageURLFromHTML(body, rawURL)
	if imageURL == "" {
		return "", model.NewImageFetchFailedError("ページ内に画像が見つかりません")
	}

	contentType, body, err = f.get(ctx, imageURL)
	if err != nil {
		return "", err
	}
	if !isImageContentType(contentType) {
		return "", model.NewImageFetchFailedError("検出されたURLが画像ではありません")
	}

	return f.save(imageURL, body)
}

// get はSSRF検証付きでURLを取得し、Content-Typeとボディを返す。
func (f *ImageFetcher) get(ctx context.Context, rawURL string) (string, []byte, error) {
	if f.ssrfGuard != nil {
		if err := f.ssrfGuard.ValidateURL(rawURL); err != nil {
			return "", nil, model.NewImageFetchFailedError("アクセスが許可されていないURLです")
		}
	}

	client := f.httpClient()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", nil, model.NewImageFetchFailedError(err.Error())
	}
	req.Header.Set("User-Agent", "Catalogman/1.0")
	req.Header.Set("Accept", "image/*, text/html, */*")

	resp, err := client.Do(req)
	if err != nil {
		return "", nil, model.NewImageFetchFailedError(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, model.NewImageFetchFailedError(fmt.Sprintf("HTTPステータス %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.MaxSize))
	if err != nil {
		return "", nil, model.NewImageFetchFailedError(fmt.Sprintf("レスポンスの読み取りに失敗: %v", err))
	}

	return resp.Header.Get("Content-Type"), body, nil
}

// save はURLのパス末尾をファイル名として画像を保存する。
func (f *ImageFetcher) save(rawURL string, body []byte) (string, error) {
	name := filenameFromURL(rawURL)
	stored, err := f.store.Save(name, bytes.NewReader(body))
	if err != nil {
		return "", model.NewImageFetchFailedError(err.Error())
	}
	return stored, nil
}

// httpClient はHTTPクライアントを取得する。
// SSRFGuardが設定されている場合はSSRF防止付きクライアントを返す。
func (f *ImageFetcher) httpClient() *http.Client {
	if f.ssrfGuard != nil {
		return f.ssrfGuard.NewSafeClient(f.Timeout)
	}
	return &http.Client{Timeout: f.Timeout}
}

// isImageContentType はContent-Typeが画像かどうかを判定する。
func isImageContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.Split(contentType, ";")[0])
	}
	return strings.HasPrefix(strings.ToLower(mediaType), "image/")
}

// filenameFromURL はURLのパス末尾からファイル名を取り出す。
// 取り出せない場合は汎用名を返す。
func filenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "image"
	}
	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		return "image"
	}
	return name
}

// ParseImageURLFromHTML はHTMLのheadタグから代表画像のURLを解析・検出する。
// og:image メタタグを優先し、なければ link rel="image_src" を使用する。
// 相対URLはbaseURLを基準に絶対URLに解決される。
func ParseImageURLFromHTML(htmlBody []byte, baseURL string) string {
	baseU, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}

	var ogImage, linkImage string

	tokenizer := html.NewTokenizer(bytes.NewReader(htmlBody))
	inHead := false

loop:
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			break loop

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := tokenizer.TagName()
			tagName := string(tn)

			if tagName == "head" {
				inHead = true
				continue
			}

			if tagName == "body" {
				// bodyに入ったらheadの解析を終了
				break loop
			}

			if !inHead || !hasAttr {
				continue
			}

			switch tagName {
			case "meta":
				var property, content string
				for {
					key, val, more := tokenizer.TagAttr()
					switch strings.ToLower(string(key)) {
					case "property", "name":
						property = strings.ToLower(string(val))
					case "content":
						content = string(val)
					}
					if !more {
						break
					}
				}
				if property == "og:image" && content != "" && ogImage == "" {
					ogImage = content
				}

			case "link":
				var rel, href string
				for {
					key, val, more := tokenizer.TagAttr()
					switch strings.ToLower(string(key)) {
					case "rel":
						rel = strings.ToLower(string(val))
					case "href":
						href = string(val)
					}
					if !more {
						break
					}
				}
				if rel == "image_src" && href != "" && linkImage == "" {
					linkImage = href
				}
			}

		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "head" {
				break loop
			}
		}
	}

	// og:image を優先
	candidate := ogImage
	if candidate == "" {
		candidate = linkImage
	}
	if candidate == "" {
		return ""
	}

	ref, err := url.Parse(candidate)
	if err != nil {
		return ""
	}
	return baseU.ResolveReference(ref).String()
}

package catalog

import (
	"bytes"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/feeds"

	"github.com/hitoshi/catalogman/internal/model"
)

// BuildAtomFeed は最新アイテムからAtom 1.0フィードのXMLバイト列を生成する。
// baseURLはリンクとID生成の基準となるサイトのルートURL。
func BuildAtomFeed(items []*model.ItemWithOwner, baseURL string, now time.Time) ([]byte, error) {
	updated := now
	if len(items) > 0 {
		updated = items[0].PubDate
	}

	feed := &feeds.Feed{
		Title:   "Catalogman - Recent Items",
		Link:    &feeds.Link{Href: baseURL + "/catalog"},
		Id:      baseURL + "/catalog/recent.atom",
		Updated: updated.UTC(),
	}

	for _, item := range items {
		// アイテム名は空白や予約文字を含みうるためIRIとしてエスケープする
		itemURL := fmt.Sprintf("%s/api/items/%s", baseURL, url.PathEscape(item.Name))
		feed.Items = append(feed.Items, &feeds.Item{
			Title:   item.Name,
			Link:    &feeds.Link{Href: itemURL},
			Id:      itemURL,
			Author:  &feeds.Author{Name: item.OwnerName},
			Updated: item.PubDate.UTC(),
			// 説明文はサニタイズ済みHTML
			Content: item.Description,
		})
	}

	var buf bytes.Buffer
	if err := feed.WriteAtom(&buf); err != nil {
		return nil, fmt.Errorf("failed to write atom feed: %w", err)
	}
	return buf.Bytes(), nil
}

package catalog

import (
	"bytes"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/catalogman/internal/model"
	"github.com/mmcdole/gofeed"
)

// TestBuildAtomFeed は生成されたAtomフィードがパース可能で
// アイテム情報を含むことをテストする。
func TestBuildAtomFeed(t *testing.T) {
	pubDate := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	items := []*model.ItemWithOwner{
		{
			Item: model.Item{
				ID: "item-1", Name: "万年筆",
				Description: "<p>手作りの万年筆です</p>",
				PubDate:     pubDate,
			},
			OwnerName: "Hitoshi",
		},
		{
			Item: model.Item{
				ID: "item-2", Name: "ガラスペン",
				PubDate: pubDate.Add(-time.Hour),
			},
			OwnerName: "Hanako",
		},
	}

	body, err := BuildAtomFeed(items, "https://catalog.example.com", time.Now())
	if err != nil {
		t.Fatalf("BuildAtomFeed() error = %v", err)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("generated feed failed to parse: %v", err)
	}

	if feed.FeedType != "atom" {
		t.Errorf("FeedType = %q, want atom", feed.FeedType)
	}
	if feed.Title != "Catalogman - Recent Items" {
		t.Errorf("Title = %q, want Catalogman - Recent Items", feed.Title)
	}
	if len(feed.Items) != 2 {
		t.Fatalf("feed items = %d, want 2", len(feed.Items))
	}

	first := feed.Items[0]
	if first.Title != "万年筆" {
		t.Errorf("first item title = %q, want 万年筆", first.Title)
	}
	wantLink := "https://catalog.example.com/api/items/" + url.PathEscape("万年筆")
	if first.Link != wantLink {
		t.Errorf("first item link = %q, want %q", first.Link, wantLink)
	}
	if first.Author == nil || first.Author.Name != "Hitoshi" {
		t.Errorf("first item author = %+v, want Hitoshi", first.Author)
	}
	if first.PublishedParsed == nil || !first.PublishedParsed.Equal(pubDate) {
		// gofeedはAtomのupdatedをPublishedにマッピングしないためUpdatedで検証
		if first.UpdatedParsed == nil || !first.UpdatedParsed.Equal(pubDate) {
			t.Errorf("first item updated = %v, want %v", first.UpdatedParsed, pubDate)
		}
	}
}

// TestBuildAtomFeed_EscapesEntryID は空白や予約文字を含むアイテム名でも
// エントリIDとリンクが有効なIRIになることをテストする。
func TestBuildAtomFeed_EscapesEntryID(t *testing.T) {
	items := []*model.ItemWithOwner{
		{
			Item: model.Item{
				Name:    "Buffalo Wings & Fries",
				PubDate: time.Now(),
			},
			OwnerName: "Hitoshi",
		},
	}

	body, err := BuildAtomFeed(items, "https://catalog.example.com", time.Now())
	if err != nil {
		t.Fatalf("BuildAtomFeed() error = %v", err)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("generated feed failed to parse: %v", err)
	}

	want := "https://catalog.example.com/api/items/" + url.PathEscape("Buffalo Wings & Fries")
	if feed.Items[0].Link != want {
		t.Errorf("item link = %q, want %q", feed.Items[0].Link, want)
	}
	if feed.Items[0].GUID != want {
		t.Errorf("item id = %q, want %q", feed.Items[0].GUID, want)
	}
	if strings.Contains(feed.Items[0].Link, " ") {
		t.Errorf("item link contains unescaped space: %q", feed.Items[0].Link)
	}
}

// TestBuildAtomFeed_Empty はアイテムがない場合でも有効なフィードを生成することをテストする。
func TestBuildAtomFeed_Empty(t *testing.T) {
	now := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	body, err := BuildAtomFeed(nil, "https://catalog.example.com", now)
	if err != nil {
		t.Fatalf("BuildAtomFeed() error = %v", err)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("generated feed failed to parse: %v", err)
	}
	if len(feed.Items) != 0 {
		t.Errorf("feed items = %d, want 0", len(feed.Items))
	}
	if feed.UpdatedParsed == nil || !feed.UpdatedParsed.Equal(now) {
		t.Errorf("feed updated = %v, want %v", feed.UpdatedParsed, now)
	}
}

// TestBuildAtomFeed_EscapesContent は説明文HTMLがXMLとして
// エスケープされて埋め込まれることをテストする。
func TestBuildAtomFeed_EscapesContent(t *testing.T) {
	items := []*model.ItemWithOwner{
		{
			Item: model.Item{
				Name:        "万年筆",
				Description: "<p>説明</p>",
				PubDate:     time.Now(),
			},
			OwnerName: "Hitoshi",
		},
	}

	body, err := BuildAtomFeed(items, "https://catalog.example.com", time.Now())
	if err != nil {
		t.Fatalf("BuildAtomFeed() error = %v", err)
	}

	if bytes.Contains(body, []byte("<content type=\"html\"><p>")) {
		t.Error("expected description HTML to be XML-escaped in content element")
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("generated feed failed to parse: %v", err)
	}
	if feed.Items[0].Content != "<p>説明</p>" {
		t.Errorf("parsed content = %q, want unescaped HTML", feed.Items[0].Content)
	}
}

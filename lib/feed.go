package lib

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/carlmjohnson/requests"
	"github.com/fiffu/feedsync/lib/models"
	"github.com/mmcdole/gofeed"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Fetcher retrieves the raw document behind a feed URL. Retries are the
// caller's concern.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Parser maps a raw feed document into normalized source metadata and
// items. Item links are resolved against baseURL here, before identity
// derivation ever sees them.
type Parser interface {
	Parse(raw string, baseURL string) (*models.FeedDocument, error)
}

type httpFetcher struct {
	transport http.RoundTripper
}

func NewFetcher(lc fx.Lifecycle, transport http.RoundTripper) Fetcher {
	return &httpFetcher{transport}
}

func (f *httpFetcher) Fetch(ctx context.Context, endpoint string) (string, error) {
	var body string
	err := requests.URL(endpoint).
		Transport(f.transport).
		ToString(&body).
		Fetch(ctx)
	return body, models.Fail(models.FetchFailure, err)
}

type feedParser struct {
	parser *gofeed.Parser
	log    *zap.Logger
}

func NewParser(lc fx.Lifecycle, log *zap.Logger) Parser {
	return &feedParser{gofeed.NewParser(), log}
}

func (p *feedParser) Parse(raw string, baseURL string) (*models.FeedDocument, error) {
	feed, err := p.parser.ParseString(raw)
	if err != nil {
		return nil, models.Fail(models.ParseFailure, err)
	}

	doc := &models.FeedDocument{
		Title:       feed.Title,
		Description: feed.Description,
		SiteURL:     ResolveLink(baseURL, feed.Link),
	}
	if feed.Image != nil {
		doc.ImageURL = ResolveLink(baseURL, feed.Image.URL)
	}

	for _, entry := range feed.Items {
		doc.Items = append(doc.Items, p.normalize(baseURL, entry))
	}
	return doc, nil
}

func (p *feedParser) normalize(baseURL string, entry *gofeed.Item) models.NormalizedItem {
	item := models.NormalizedItem{
		IdentifierHint: entry.GUID,
		Title:          entry.Title,
		Description:    entry.Description,
		Link:           ResolveLink(baseURL, entry.Link),
	}
	if item.Description == "" {
		item.Description = entry.Content
	}
	if len(entry.Authors) > 0 {
		item.Author = entry.Authors[0].Name
	}
	if entry.PublishedParsed != nil {
		millis := entry.PublishedParsed.UTC().UnixMilli()
		item.PublishedAt = &millis
	}
	if entry.Image != nil {
		item.ThumbnailURL = ResolveLink(baseURL, entry.Image.URL)
	}
	return item
}

// ResolveLink makes link absolute against base: absolute links pass
// through, leading-slash links are host-relative, anything else is
// path-relative.
func ResolveLink(base, link string) string {
	if link == "" {
		return ""
	}
	baseU, err := url.Parse(base)
	if err != nil {
		return link
	}
	if strings.Contains(link, "://") {
		return link
	}
	linkU, err := url.Parse(link)
	if err != nil {
		return link
	}
	return baseU.ResolveReference(linkU).String()
}

package collect

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/mmcdole/gofeed"

	"github.com/yuzuwvle/yuzuwhale/internal/config"
)

const maxFeedBytes = 10 * 1024 * 1024

// HTTPClient is the subset of *http.Client the fetchers need.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Entry is one feed item that carries a link.
type Entry struct {
	Link      string
	Title     string
	Published *time.Time
	// HTML is the first non-empty of content:encoded, content and summary.
	HTML string
}

// FeedParser downloads and parses RSS/Atom feeds.
type FeedParser struct {
	client   HTTPClient
	maxItems int
}

// NewFeedParser creates a FeedParser that keeps at most maxItems per feed.
func NewFeedParser(client HTTPClient, maxItems int) *FeedParser {
	return &FeedParser{client: client, maxItems: maxItems}
}

// Parse fetches one source and returns its first maxItems items, minus any
// without a link.
func (fp *FeedParser) Parse(ctx context.Context, src config.Source) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := fp.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := feed.Items
	if fp.maxItems > 0 && len(items) > fp.maxItems {
		items = items[:fp.maxItems]
	}

	var entries []Entry
	for _, item := range items {
		entry := parseItem(item)
		if entry == nil {
			continue
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

func parseItem(item *gofeed.Item) *Entry {
	link := strings.TrimSpace(item.Link)
	if link == "" {
		return nil
	}

	var published *time.Time
	if item.PublishedParsed != nil {
		published = item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = item.UpdatedParsed
	}

	return &Entry{
		Link:      link,
		Title:     strings.TrimSpace(item.Title),
		Published: published,
		HTML:      itemHTML(item),
	}
}

func itemHTML(item *gofeed.Item) string {
	if encoded := extensionValue(item, "content", "encoded"); encoded != "" {
		return encoded
	}
	if strings.TrimSpace(item.Content) != "" {
		return item.Content
	}
	if strings.TrimSpace(item.Description) != "" {
		return item.Description
	}
	return ""
}

func extensionValue(item *gofeed.Item, ns, name string) string {
	if item.Extensions == nil {
		return ""
	}
	for _, ext := range item.Extensions[ns][name] {
		if strings.TrimSpace(ext.Value) != "" {
			return ext.Value
		}
	}
	return ""
}

// SourceName returns the configured name or one derived from the feed host.
func SourceName(src config.Source) string {
	if src.Name != "" {
		return src.Name
	}
	return extractSourceName(src.URL)
}

// extractSourceName derives a display name from the second-level label of the
// feed host, falling back to the raw host when nothing usable remains.
func extractSourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Hostname() == "" {
		return feedURL
	}
	raw := strings.ToLower(u.Hostname())

	host := raw
	for _, prefix := range []string{"www.", "blog.", "blogs.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}

	var labels []string
	for _, l := range strings.Split(host, ".") {
		if l != "" {
			labels = append(labels, l)
		}
	}

	var name string
	switch len(labels) {
	case 0:
		return raw
	case 1:
		name = labels[0]
	default:
		name = labels[len(labels)-2]
	}
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + name[size:]
}

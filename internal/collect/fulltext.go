package collect

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

const userAgent = "YuzuWhale/1.0 (news sync)"

// FullTextFetcher extracts the article body from an entry's web page for
// entries whose feed carries no content.
type FullTextFetcher struct {
	client HTTPClient
}

// NewFullTextFetcher creates a new full text fetcher.
func NewFullTextFetcher(client HTTPClient) *FullTextFetcher {
	return &FullTextFetcher{client: client}
}

// FetchHTML returns the readable article HTML, or "" when nothing usable was
// extracted.
func (f *FullTextFetcher) FetchHTML(ctx context.Context, articleURL string) (string, error) {
	parsedURL, err := url.Parse(articleURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	article, err := readability.FromReader(strings.NewReader(string(body)), parsedURL)
	if err != nil {
		return "", fmt.Errorf("extract content: %w", err)
	}

	if len(strings.TrimSpace(article.TextContent)) <= 100 {
		return "", nil
	}
	return article.Content, nil
}

package collect

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/yuzuwvle/yuzuwhale/internal/config"
)

// SourceEntries is the outcome of fetching one source. Err is set when the
// feed could not be fetched or parsed; Entries is then empty.
type SourceEntries struct {
	Source  config.Source
	Entries []Entry
	Err     error
}

// Collector fetches every configured source in order.
type Collector struct {
	sources  []config.Source
	parser   *FeedParser
	fullText *FullTextFetcher
}

// NewCollector builds a collector from configuration.
func NewCollector(cfg *config.Config) *Collector {
	client := &http.Client{
		Timeout: time.Duration(cfg.FeedTimeout) * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
	return NewCollectorWithClient(cfg, client)
}

// NewCollectorWithClient builds a collector that uses the given HTTP client.
func NewCollectorWithClient(cfg *config.Config, client HTTPClient) *Collector {
	c := &Collector{
		sources: cfg.Sources,
		parser:  NewFeedParser(client, cfg.ItemsPerFeed),
	}
	if cfg.FetchFullText {
		c.fullText = NewFullTextFetcher(client)
	}
	return c
}

// Collect fetches all sources sequentially. A failing source is logged and
// reported in its SourceEntries; it never stops the others.
func (c *Collector) Collect(ctx context.Context) []SourceEntries {
	results := make([]SourceEntries, 0, len(c.sources))
	for _, src := range c.sources {
		src.Name = SourceName(src)

		entries, err := c.parser.Parse(ctx, src)
		if err != nil {
			log.Printf("Failed to parse %s: %v", src.URL, err)
			results = append(results, SourceEntries{Source: src, Err: err})
			continue
		}

		if c.fullText != nil {
			c.fillMissingContent(ctx, entries)
		}

		log.Printf("Parsed %d entries from %s", len(entries), src.Name)
		results = append(results, SourceEntries{Source: src, Entries: entries})
	}
	return results
}

func (c *Collector) fillMissingContent(ctx context.Context, entries []Entry) {
	for i := range entries {
		if entries[i].HTML != "" {
			continue
		}
		html, err := c.fullText.FetchHTML(ctx, entries[i].Link)
		if err != nil {
			log.Printf("Full text fetch failed for %s: %v", entries[i].Link, err)
			continue
		}
		if html == "" {
			log.Printf("No extractable content from: %s", entries[i].Link)
			continue
		}
		entries[i].HTML = html
	}
}

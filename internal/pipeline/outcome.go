package pipeline

import (
	"fmt"
	"time"

	"github.com/yuzuwvle/yuzuwhale/internal/collect"
	"github.com/yuzuwvle/yuzuwhale/internal/config"
	"github.com/yuzuwvle/yuzuwhale/internal/store"
	"github.com/yuzuwvle/yuzuwhale/internal/summarize"
)

// Outcome is the result of processing one entry: exactly one of Record and
// Skip is set.
type Outcome struct {
	Record *store.Record
	Skip   *Skip
}

// Skip records an entry that was dropped from the run.
type Skip struct {
	URL    string
	Source string
	Reason error
}

// Fold splits outcomes into the records to write and the entries skipped,
// preserving feed order.
func Fold(outcomes []Outcome) ([]store.Record, []Skip) {
	records := make([]store.Record, 0, len(outcomes))
	var skipped []Skip
	for _, o := range outcomes {
		switch {
		case o.Record != nil:
			records = append(records, *o.Record)
		case o.Skip != nil:
			skipped = append(skipped, *o.Skip)
		}
	}
	return records, skipped
}

// BuildRecord assembles the row for a summarized entry.
func BuildRecord(src config.Source, entry collect.Entry, res *summarize.Result, loc *time.Location) store.Record {
	rec := store.Record{
		Emoji:       src.Emoji,
		Title:       entry.Title,
		Summary:     res.Summary,
		Content:     res.Summary,
		Source:      src.Name,
		URL:         entry.Link,
		ContentMD:   res.Markdown,
		ContentHTML: entry.HTML,
	}
	if entry.Published != nil {
		rec.Date = FormatDate(*entry.Published, loc)
		published := entry.Published.UTC().Format(time.RFC3339)
		rec.PublishedAt = &published
	}
	return rec
}

// FormatDate renders a short Chinese month/day label such as "1月15日".
func FormatDate(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return fmt.Sprintf("%d月%d日", int(t.Month()), t.Day())
}

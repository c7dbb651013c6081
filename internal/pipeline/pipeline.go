package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/yuzuwvle/yuzuwhale/internal/collect"
	"github.com/yuzuwvle/yuzuwhale/internal/config"
	"github.com/yuzuwvle/yuzuwhale/internal/llm"
	"github.com/yuzuwvle/yuzuwhale/internal/normalize"
	"github.com/yuzuwvle/yuzuwhale/internal/store"
	"github.com/yuzuwvle/yuzuwhale/internal/summarize"
)

// Collector yields the entries of every configured source.
type Collector interface {
	Collect(ctx context.Context) []collect.SourceEntries
}

// Summarizer produces a summary for one entry or a soft failure.
type Summarizer interface {
	Summarize(ctx context.Context, in summarize.Input) (*summarize.Result, error)
}

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a sync run.
type Result struct {
	RunID       string
	Steps       []StepResult
	FeedsOK     int
	FeedsFailed int
	Records     []store.Record
	Skipped     []Skip
	Written     bool
}

// Pipeline runs fetch, normalize, summarize and a single upsert, strictly in
// that order and one entry at a time.
type Pipeline struct {
	collector  Collector
	summarizer Summarizer
	sink       store.Sink
	loc        *time.Location
}

// New creates a pipeline from explicit collaborators.
func New(collector Collector, summarizer Summarizer, sink store.Sink) *Pipeline {
	return &Pipeline{
		collector:  collector,
		summarizer: summarizer,
		sink:       sink,
		loc:        time.Local,
	}
}

// FromConfig wires the production collector and summarizer.
func FromConfig(cfg *config.Config, sink store.Sink) *Pipeline {
	summ := cfg.Summarization
	provider := llm.NewOpenAIProvider(summ.BaseURL, summ.APIKey, summ.Model,
		time.Duration(summ.TimeoutSeconds)*time.Second)
	log.Printf("Using %s at %s", summ.Model, summ.BaseURL)

	return New(collect.NewCollector(cfg), summarize.NewSummarizer(provider), sink)
}

// WithLocation sets the time zone used for the display date.
func (p *Pipeline) WithLocation(loc *time.Location) *Pipeline {
	p.loc = loc
	return p
}

// Run executes one sync. The returned error is non-nil only when the final
// upsert fails; every per-feed and per-entry failure is logged and skipped.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	return p.run(ctx, false)
}

// DryRun does everything except the upsert.
func (p *Pipeline) DryRun(ctx context.Context) *Result {
	r, _ := p.run(ctx, true)
	return r
}

func (p *Pipeline) run(ctx context.Context, dryRun bool) (*Result, error) {
	r := &Result{RunID: uuid.NewString()}
	log.Printf("[%s] Sync started", r.RunID)

	sources := p.collector.Collect(ctx)
	var entryCount int
	for _, s := range sources {
		if s.Err != nil {
			r.FeedsFailed++
			continue
		}
		r.FeedsOK++
		entryCount += len(s.Entries)
	}
	r.Steps = append(r.Steps, StepResult{
		Name:    "Collect",
		Summary: fmt.Sprintf("%d entries from %d feeds (%d feeds failed)", entryCount, r.FeedsOK, r.FeedsFailed),
	})

	var outcomes []Outcome
	for _, s := range sources {
		for _, entry := range s.Entries {
			outcomes = append(outcomes, p.process(ctx, s.Source, entry))
		}
	}
	r.Records, r.Skipped = Fold(outcomes)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Summarize",
		Summary: fmt.Sprintf("%d summarized, %d skipped", len(r.Records), len(r.Skipped)),
	})

	if dryRun {
		r.Steps = append(r.Steps, StepResult{
			Name:    "Upsert",
			Summary: fmt.Sprintf("[dry-run] would upsert %d items", len(r.Records)),
		})
		return r, nil
	}

	if err := p.sink.Upsert(ctx, r.Records); err != nil {
		err = fmt.Errorf("upsert failed: %w", err)
		log.Printf("[%s] %v", r.RunID, err)
		r.Steps = append(r.Steps, StepResult{Name: "Upsert", Err: err})
		return r, err
	}
	r.Written = true
	r.Steps = append(r.Steps, StepResult{
		Name:    "Upsert",
		Summary: fmt.Sprintf("Upserted %d items.", len(r.Records)),
	})
	log.Printf("[%s] Upserted %d items.", r.RunID, len(r.Records))
	return r, nil
}

func (p *Pipeline) process(ctx context.Context, src config.Source, entry collect.Entry) Outcome {
	res, err := p.summarizer.Summarize(ctx, summarize.Input{
		Title:  entry.Title,
		Text:   normalize.Excerpt(entry.HTML),
		Source: src.Name,
		URL:    entry.Link,
	})
	if err != nil {
		log.Printf("Skipping %s: %v", entry.Link, err)
		return Outcome{Skip: &Skip{URL: entry.Link, Source: src.Name, Reason: err}}
	}

	rec := BuildRecord(src, entry, res, p.loc)
	return Outcome{Record: &rec}
}

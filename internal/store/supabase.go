package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/supabase-community/postgrest-go"
)

const supabaseSelect = "id,date,emoji,title,summary,content,source,url,content_md,content_html,published_at"

// Supabase talks to the news table through the project's PostgREST endpoint
// using the service role key.
type Supabase struct {
	restURL   string
	key       string
	table     string
	timeout   time.Duration
	transport http.RoundTripper
}

// NewSupabase creates a client for {projectURL}/rest/v1/news.
func NewSupabase(projectURL, serviceKey string) *Supabase {
	return &Supabase{
		restURL:   strings.TrimRight(projectURL, "/") + "/rest/v1",
		key:       serviceKey,
		table:     "news",
		timeout:   60 * time.Second,
		transport: http.DefaultTransport,
	}
}

// Close is a no-op; the HTTP client holds no resources worth releasing.
func (s *Supabase) Close() error { return nil }

// contextTransport binds every request of one postgrest client to ctx.
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}

// client builds a postgrest client scoped to one call.
func (s *Supabase) client(ctx context.Context) *postgrest.Client {
	c := postgrest.NewClient(s.restURL, "", nil)
	if c.ClientError != nil {
		return c
	}
	c.SetApiKey(s.key).SetAuthToken(s.key)
	c.Transport.Parent = contextTransport{ctx: ctx, base: s.transport}
	return c
}

// Upsert sends the batch as a single bulk insert resolved on the url column.
// PostgREST runs the statement in one transaction, so the batch either lands
// entirely or not at all.
func (s *Supabase) Upsert(ctx context.Context, records []Record) error {
	if err := validate(records); err != nil {
		return err
	}
	records = Dedupe(records)
	if len(records) == 0 {
		log.Println("Nothing to upsert")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, _, err := s.client(ctx).From(s.table).Upsert(records, "url", "minimal", "").Execute(); err != nil {
		return fmt.Errorf("supabase upsert: %w", err)
	}
	return nil
}

// List returns the newest records.
func (s *Supabase) List(ctx context.Context, limit int) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	q := s.client(ctx).From(s.table).Select(supabaseSelect, "", false).
		Order("published_at", &postgrest.OrderOpts{Ascending: false, NullsFirst: false}).
		Order("id", &postgrest.OrderOpts{Ascending: false}).
		Limit(limit, "")
	return s.execute(q)
}

// Get returns a single record by ID.
func (s *Supabase) Get(ctx context.Context, id int64) (*Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	q := s.client(ctx).From(s.table).Select(supabaseSelect, "", false).
		Eq("id", strconv.FormatInt(id, 10))
	records, err := s.execute(q)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

func (s *Supabase) execute(q *postgrest.FilterBuilder) ([]Record, error) {
	data, _, err := q.Execute()
	if err != nil {
		return nil, fmt.Errorf("supabase query: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding records: %w", err)
	}
	return records, nil
}

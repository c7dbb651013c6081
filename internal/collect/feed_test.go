package collect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/yuzuwvle/yuzuwhale/internal/config"
)

func loadFixture(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture %s: %v", path, err)
	}
	return string(data)
}

func feedServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestParseRSS(t *testing.T) {
	srv := feedServer(t, map[string]string{"/rss": loadFixture(t, "testdata/rss.xml")})

	fp := NewFeedParser(srv.Client(), 4)
	entries, err := fp.Parse(context.Background(), config.Source{Name: "DeepSeek News", URL: srv.URL + "/rss"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	var links []string
	for _, e := range entries {
		links = append(links, e.Link)
	}
	// The first four items are considered; the one without a link is dropped.
	if diff := cmp.Diff([]string{"https://x.com/a", "https://x.com/b", "https://x.com/c"}, links); diff != "" {
		t.Errorf("links mismatch (-want +got):\n%s", diff)
	}

	first := entries[0]
	if first.Title != "Model X released" {
		t.Errorf("unexpected title %q", first.Title)
	}
	if !strings.Contains(first.HTML, "Model X launched today.") {
		t.Errorf("expected content:encoded body, got %q", first.HTML)
	}
	if first.Published == nil || !first.Published.Equal(time.Date(2026, 1, 5, 8, 30, 0, 0, time.UTC)) {
		t.Errorf("unexpected published time %v", first.Published)
	}

	if !strings.Contains(entries[1].HTML, "Summary <b>body</b>") {
		t.Errorf("expected description fallback, got %q", entries[1].HTML)
	}
	if entries[2].HTML != "" {
		t.Errorf("expected empty body, got %q", entries[2].HTML)
	}
	if entries[2].Published != nil {
		t.Errorf("expected nil published time, got %v", entries[2].Published)
	}
}

func TestParseAtom(t *testing.T) {
	srv := feedServer(t, map[string]string{"/atom": loadFixture(t, "testdata/atom.xml")})

	entries, err := NewFeedParser(srv.Client(), 6).Parse(context.Background(), config.Source{URL: srv.URL + "/atom"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Link != "https://atom.example.com/post" {
		t.Errorf("unexpected link %q", entries[0].Link)
	}
	if !strings.Contains(entries[0].HTML, "Atom content") {
		t.Errorf("expected atom content to win over summary, got %q", entries[0].HTML)
	}
	if entries[0].Published == nil {
		t.Error("expected updated time as published fallback")
	}
}

func TestParseErrors(t *testing.T) {
	srv := feedServer(t, map[string]string{"/bad": "not xml at all"})

	tests := []struct {
		name string
		url  string
	}{
		{name: "http error status", url: srv.URL + "/missing"},
		{name: "invalid xml", url: srv.URL + "/bad"},
		{name: "network error", url: "http://127.0.0.1:1/rss"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFeedParser(srv.Client(), 6).Parse(context.Background(), config.Source{URL: tt.url})
			if err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestSourceName(t *testing.T) {
	tests := []struct {
		src  config.Source
		want string
	}{
		{src: config.Source{Name: "Meta AI", URL: "https://ai.meta.com/blog/rss/"}, want: "Meta AI"},
		{src: config.Source{URL: "https://www.anthropic.com/news/rss.xml"}, want: "Anthropic"},
		{src: config.Source{URL: "https://blog.openai.com/rss.xml"}, want: "Openai"},
		{src: config.Source{URL: "https://www./feed"}, want: "www."},
		{src: config.Source{URL: "https://feeds./rss"}, want: "feeds."},
		{src: config.Source{URL: "https://.com/feed"}, want: "Com"},
		{src: config.Source{URL: "https://localhost:8080/rss"}, want: "Localhost"},
		{src: config.Source{URL: "not a url"}, want: "not a url"},
	}
	for _, tt := range tests {
		if got := SourceName(tt.src); got != tt.want {
			t.Errorf("SourceName(%+v) = %q, want %q", tt.src, got, tt.want)
		}
	}
}

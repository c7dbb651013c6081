package server

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/feeds"
	"github.com/yuin/goldmark"

	"github.com/yuzuwvle/yuzuwhale/internal/normalize"
	"github.com/yuzuwvle/yuzuwhale/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

const (
	listLimit = 50
	feedLimit = 50
)

// Server is the read-only news site.
type Server struct {
	reader     store.Reader
	normalizer *normalize.Normalizer
	available  func(ctx context.Context) bool
	pages      map[string]*template.Template
	mux        *http.ServeMux
}

// New creates a new Server. available reports whether the store can be
// reached at all; when it returns false the pages render as empty. A nil
// available means always.
func New(reader store.Reader, available func(ctx context.Context) bool) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone of base so {{define "content"}} does not clash.
	pageNames := []string{"index.html", "news.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	if available == nil {
		available = func(context.Context) bool { return true }
	}

	s := &Server{
		reader:     reader,
		normalizer: normalize.New(),
		available:  available,
		pages:      pages,
		mux:        http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/news/", s.handleNews)
	s.mux.HandleFunc("/feed.xml", s.handleFeed)
	s.mux.HandleFunc("/healthz", s.handleHealth)
}

// latest never fails: an unreachable or failing store yields an empty list.
func (s *Server) latest(ctx context.Context, limit int) []store.Record {
	if !s.available(ctx) {
		return nil
	}
	records, err := s.reader.List(ctx, limit)
	if err != nil {
		log.Printf("Error listing news: %v", err)
		return nil
	}
	return records
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.render(w, http.StatusOK, "index.html", map[string]any{
		"News": s.latest(r.Context(), listLimit),
	})
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/news/"), 10, 64)
	if err != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	var rec *store.Record
	if s.available(r.Context()) {
		rec, err = s.reader.Get(r.Context(), id)
		if err != nil {
			log.Printf("Error loading news %d: %v", id, err)
		}
	}
	if rec == nil {
		s.render(w, http.StatusNotFound, "news.html", map[string]any{"News": nil})
		return
	}

	body, err := s.normalizer.Normalize(rec.ContentHTML)
	if err != nil {
		log.Printf("Error converting news %d body: %v", id, err)
	}

	s.render(w, http.StatusOK, "news.html", map[string]any{
		"News":     rec,
		"Original": body.Markdown,
		"Excerpt":  normalize.Truncate(body.Excerpt, 160),
	})
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	base := "http://" + r.Host
	feed := &feeds.Feed{
		Title:       "Yuzu Whale AI News",
		Link:        &feeds.Link{Href: base + "/"},
		Description: "AI news, summarized",
		Created:     time.Now(),
	}

	for _, rec := range s.latest(r.Context(), feedLimit) {
		item := &feeds.Item{
			Id:          rec.URL,
			Title:       strings.TrimSpace(rec.Emoji + " " + rec.Title),
			Link:        &feeds.Link{Href: fmt.Sprintf("%s/news/%d", base, rec.ID)},
			Source:      &feeds.Link{Href: rec.URL},
			Description: rec.Summary,
			Author:      &feeds.Author{Name: rec.Source},
		}
		if rec.PublishedAt != nil {
			if t, err := time.Parse(time.RFC3339, *rec.PublishedAt); err == nil {
				item.Created = t
			}
		}
		feed.Items = append(feed.Items, item)
	}

	rss, err := feed.ToRss()
	if err != nil {
		log.Printf("Error generating RSS: %v", err)
		http.Error(w, "Failed to generate RSS", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Write([]byte(rss))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
	}
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve starts the HTTP server on the given port.
func Serve(reader store.Reader, available func(ctx context.Context) bool, port int) error {
	srv, err := New(reader, available)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}

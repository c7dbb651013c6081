package normalize

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestMarkdownStripsImages(t *testing.T) {
	n := New()
	got, err := n.Markdown(`<h2>Launch</h2><p>Model X launched <strong>today</strong>.</p><p><img src="https://x.com/a.png" alt="chart"></p>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Contains(got, "a.png") || strings.Contains(got, "![") {
		t.Errorf("expected images to be stripped, got %q", got)
	}
	if !strings.Contains(got, "## Launch") {
		t.Errorf("expected atx heading, got %q", got)
	}
	if !strings.Contains(got, "**today**") {
		t.Errorf("expected bold text, got %q", got)
	}
}

func TestMarkdownFencedCode(t *testing.T) {
	got, err := New().Markdown(`<pre><code>print("hi")</code></pre>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "```") {
		t.Errorf("expected fenced code block, got %q", got)
	}
}

func TestNormalizeEmpty(t *testing.T) {
	got, err := New().Normalize("   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Markdown != "" || got.Excerpt != "" {
		t.Errorf("expected empty outputs, got %+v", got)
	}
}

func TestNormalize(t *testing.T) {
	got, err := New().Normalize("<p>Model X launched today.</p>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Markdown != "Model X launched today." {
		t.Errorf("unexpected markdown %q", got.Markdown)
	}
	if got.Excerpt != "Model X launched today." {
		t.Errorf("unexpected excerpt %q", got.Excerpt)
	}
}

func TestExcerpt(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "tags become spaces", in: "<p>One</p><p>Two</p>", want: "One Two"},
		{name: "whitespace collapsed", in: "  a \n\n\t b  ", want: "a b"},
		{name: "attributes removed", in: `<a href="https://x.com">link</a> text`, want: "link text"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Excerpt(tt.in); got != tt.want {
				t.Errorf("Excerpt(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExcerptTruncatesByCharacter(t *testing.T) {
	long := "<p>" + strings.Repeat("模型", 1500) + "</p>"
	got := Excerpt(long)
	if n := utf8.RuneCountInString(got); n != MaxExcerptChars {
		t.Errorf("expected %d characters, got %d", MaxExcerptChars, n)
	}
	if !utf8.ValidString(got) {
		t.Error("expected valid utf-8 after truncation")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("abc", 5); got != "abc" {
		t.Errorf("got %q", got)
	}
	if got := Truncate("柚子鲸鱼", 2); got != "柚子" {
		t.Errorf("got %q", got)
	}
	if got := Truncate("abc", 0); got != "" {
		t.Errorf("got %q", got)
	}
}

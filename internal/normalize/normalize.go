// Package normalize turns feed entry HTML into the Markdown stored with each
// news record and the plain-text excerpt sent to the summarizer.
package normalize

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// MaxExcerptChars bounds the summarizer input.
const MaxExcerptChars = 2000

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Normalized is the output of Normalize.
type Normalized struct {
	Markdown string
	Excerpt  string
}

// Normalizer holds a configured HTML to Markdown converter. Not safe for
// concurrent use.
type Normalizer struct {
	converter *md.Converter
}

// New creates a Normalizer that renders ATX headings, fenced code blocks and
// drops every <img>.
func New() *Normalizer {
	conv := md.NewConverter("", true, &md.Options{
		HeadingStyle:   "atx",
		CodeBlockStyle: "fenced",
	})
	conv.AddRules(md.Rule{
		Filter: []string{"img"},
		Replacement: func(_ string, _ *goquery.Selection, _ *md.Options) *string {
			return md.String("")
		},
	})
	return &Normalizer{converter: conv}
}

// Normalize converts an entry body. An empty body yields empty outputs.
func (n *Normalizer) Normalize(html string) (Normalized, error) {
	if strings.TrimSpace(html) == "" {
		return Normalized{}, nil
	}

	markdown, err := n.Markdown(html)
	if err != nil {
		return Normalized{}, err
	}
	return Normalized{Markdown: markdown, Excerpt: Excerpt(html)}, nil
}

// Markdown converts HTML to Markdown without images.
func (n *Normalizer) Markdown(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}
	return n.converter.ConvertString(html)
}

// Excerpt strips tags, collapses whitespace and truncates to MaxExcerptChars
// characters.
func Excerpt(html string) string {
	text := tagPattern.ReplaceAllString(html, " ")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return Truncate(strings.TrimSpace(text), MaxExcerptChars)
}

// Truncate keeps at most n characters (runes) of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

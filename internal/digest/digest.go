package digest

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/yuzuwvle/yuzuwhale/internal/llm"
	"github.com/yuzuwvle/yuzuwhale/internal/store"
)

// MaxItems is how many of the newest records feed the digest.
const MaxItems = 10

const digestPrompt = `You are Yuzu, a tech trend analyst.
Summarize the following latest AI news into a "Daily Focus" briefing.
Style: energetic, concise, tech-savvy, with a few emoji.
Write in Simplified Chinese and keep it under 150 characters.
Focus on the most impactful updates.

News:
%s`

// Generator writes the daily focus paragraph.
type Generator struct {
	provider llm.Provider
}

// NewGenerator creates a digest generator. A nil provider disables it.
func NewGenerator(provider llm.Provider) *Generator {
	return &Generator{provider: provider}
}

// Generate returns the digest for the newest records, or "" when there is
// nothing to summarize or the LLM call fails.
func (g *Generator) Generate(ctx context.Context, records []store.Record) string {
	if g.provider == nil {
		log.Println("Missing OPENAI_API_KEY, skipping digest")
		return ""
	}
	if len(records) == 0 {
		return ""
	}

	text, err := g.provider.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: "You are a helpful AI news assistant."},
			{Role: "user", Content: fmt.Sprintf(digestPrompt, FormatNews(records))},
		},
		MaxTokens:   300,
		Temperature: 0.7,
	})
	if err != nil {
		log.Printf("Digest generation failed: %v", err)
		return ""
	}
	return strings.TrimSpace(text)
}

// FormatNews renders up to MaxItems records as numbered
// "[source] title: summary" lines.
func FormatNews(records []store.Record) string {
	if len(records) > MaxItems {
		records = records[:MaxItems]
	}
	var b strings.Builder
	for i, r := range records {
		source := r.Source
		if source == "" {
			source = "Unknown"
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. [%s] %s: %s", i+1, source, r.Title, r.Summary)
	}
	return b.String()
}

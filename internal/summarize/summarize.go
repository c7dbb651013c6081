package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yuzuwvle/yuzuwhale/internal/llm"
	"github.com/yuzuwvle/yuzuwhale/internal/normalize"
)

const (
	MaxSummaryChars = 120
	MaxBullets      = 3
)

// Soft failures. The caller drops the entry and moves on.
var (
	ErrRequest      = errors.New("summarizer request failed")
	ErrMalformed    = errors.New("summarizer returned malformed JSON")
	ErrEmptySummary = errors.New("summarizer returned empty summary")
	ErrNoBullets    = errors.New("summarizer returned no bullets")
)

const systemPrompt = `你是一名 AI 资讯编辑。阅读给定的文章信息,用简体中文输出 JSON 对象,且只包含两个字段:
{
  "summary": "一句话摘要,不超过 120 字",
  "bullets": ["要点 1", "要点 2", "要点 3"]
}
要求:
- summary 客观、具体,说明发生了什么以及为什么重要
- bullets 为 1 到 3 条,每条一句话,不要重复 summary
- 不要输出 JSON 以外的任何内容`

const userPrompt = `标题:%s
来源:%s
链接:%s

正文:
%s`

// Input is what the summarizer sees of one entry.
type Input struct {
	Title  string
	Text   string
	Source string
	URL    string
}

// Result is a successful, normalized summary.
type Result struct {
	Summary  string
	Bullets  []string
	Markdown string
}

// Summarizer asks the LLM for a {summary, bullets} object per entry.
type Summarizer struct {
	provider llm.Provider
}

// NewSummarizer creates a new summarizer.
func NewSummarizer(provider llm.Provider) *Summarizer {
	return &Summarizer{provider: provider}
}

type reply struct {
	Summary string   `json:"summary"`
	Bullets []string `json:"bullets"`
}

// Summarize makes exactly one request for in. Every failure is one of the
// package's sentinel errors, possibly wrapped with detail.
func (s *Summarizer) Summarize(ctx context.Context, in Input) (*Result, error) {
	text, err := s.provider.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf(userPrompt, in.Title, in.Source, in.URL,
				normalize.Truncate(in.Text, normalize.MaxExcerptChars))},
		},
		Temperature: 0.3,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}

	var r reply
	if err := llm.DecodeJSON(text, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return normalizeReply(r, in)
}

func normalizeReply(r reply, in Input) (*Result, error) {
	summary := strings.TrimSpace(r.Summary)
	if summary == "" {
		return nil, ErrEmptySummary
	}

	var bullets []string
	for _, b := range r.Bullets {
		if b = strings.TrimSpace(b); b != "" {
			bullets = append(bullets, b)
		}
	}
	if len(bullets) == 0 {
		return nil, ErrNoBullets
	}
	if len(bullets) > MaxBullets {
		bullets = bullets[:MaxBullets]
	}

	summary = normalize.Truncate(summary, MaxSummaryChars)
	return &Result{
		Summary:  summary,
		Bullets:  bullets,
		Markdown: RenderMarkdown(summary, bullets, in.Source, in.URL),
	}, nil
}

// RenderMarkdown builds the stored content_md document. The section headings
// and line layout are read by the site and must stay stable.
func RenderMarkdown(summary string, bullets []string, source, url string) string {
	var b strings.Builder
	b.WriteString("## 摘要\n\n")
	b.WriteString(summary)
	b.WriteString("\n\n## 要点\n\n")
	for _, bullet := range bullets {
		b.WriteString("- ")
		b.WriteString(bullet)
		b.WriteString("\n")
	}
	b.WriteString("\n## 引用\n\n")
	b.WriteString("- 来源:")
	b.WriteString(source)
	b.WriteString("\n- 原文:")
	b.WriteString(url)
	b.WriteString("\n")
	return b.String()
}

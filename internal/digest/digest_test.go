package digest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/yuzuwvle/yuzuwhale/internal/llm"
	"github.com/yuzuwvle/yuzuwhale/internal/store"
)

type mockProvider struct {
	response string
	err      error
	calls    int
	prompt   string
}

func (m *mockProvider) Complete(_ context.Context, req llm.Request) (string, error) {
	m.calls++
	m.prompt = req.Messages[len(req.Messages)-1].Content
	return m.response, m.err
}

func records(n int) []store.Record {
	out := make([]store.Record, n)
	for i := range out {
		out[i] = store.Record{Title: fmt.Sprintf("title %d", i), Summary: "s", Source: "DeepSeek News"}
	}
	return out
}

func TestGenerate(t *testing.T) {
	mock := &mockProvider{response: "  🐋 今日焦点:Model X 发布  "}
	got := NewGenerator(mock).Generate(context.Background(), records(12))

	if got != "🐋 今日焦点:Model X 发布" {
		t.Errorf("unexpected digest %q", got)
	}
	if !strings.Contains(mock.prompt, "10. [DeepSeek News] title 9: s") {
		t.Errorf("expected tenth item in prompt, got %q", mock.prompt)
	}
	if strings.Contains(mock.prompt, "title 10") {
		t.Error("expected only the first 10 records in prompt")
	}
}

func TestGenerateEmpty(t *testing.T) {
	tests := []struct {
		name     string
		provider llm.Provider
		records  []store.Record
	}{
		{name: "no provider", provider: nil, records: records(1)},
		{name: "no news", provider: &mockProvider{response: "x"}, records: nil},
		{name: "provider error", provider: &mockProvider{err: errors.New("boom")}, records: records(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewGenerator(tt.provider).Generate(context.Background(), tt.records); got != "" {
				t.Errorf("expected empty digest, got %q", got)
			}
		})
	}
}

func TestFormatNewsUnknownSource(t *testing.T) {
	got := FormatNews([]store.Record{{Title: "t", Summary: "s"}})
	if got != "1. [Unknown] t: s" {
		t.Errorf("got %q", got)
	}
}

package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

func TestSyncRefusesToStartWithoutCredentials(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing openai key",
			env:     map[string]string{"NEWS_SINK": "sqlite", "OPENAI_API_KEY": ""},
			wantErr: "OPENAI_API_KEY",
		},
		{
			name:    "missing supabase credentials",
			env:     map[string]string{"NEWS_SINK": "supabase", "OPENAI_API_KEY": "sk-test"},
			wantErr: "SUPABASE_URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dataDir := t.TempDir()
			t.Setenv("HOME", t.TempDir())
			t.Setenv("YUZU_DATA_DIR", dataDir)
			t.Setenv("SUPABASE_URL", "")
			t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "")
			t.Setenv("DATABASE_URL", "")
			t.Setenv("OPENAI_BASE_URL", srv.URL)
			t.Setenv("RSS_SOURCES", `[{"name":"Test","url":"`+srv.URL+`/rss","emoji":"🐋"}]`)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			rootCmd.SetArgs([]string{"sync"})
			rootCmd.SetOut(io.Discard)
			rootCmd.SetErr(io.Discard)
			err := rootCmd.Execute()

			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
			if n := calls.Load(); n != 0 {
				t.Errorf("expected no HTTP calls, got %d", n)
			}
			if _, err := os.Stat(filepath.Join(dataDir, "news.db")); !os.IsNotExist(err) {
				t.Errorf("expected no database to be created, stat err = %v", err)
			}
		})
	}
}

package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestReachabilityCachesWithinTTL(t *testing.T) {
	calls := 0
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	r := NewReachability(time.Minute)
	r.now = func() time.Time { return now }
	r.lookup = func(_ context.Context, host string) ([]string, error) {
		calls++
		if host != "abc.supabase.co" {
			t.Errorf("unexpected host %q", host)
		}
		return nil, errors.New("no such host")
	}

	ctx := context.Background()
	if r.Reachable(ctx, "https://abc.supabase.co") {
		t.Error("expected unreachable")
	}
	r.Reachable(ctx, "https://abc.supabase.co/rest/v1")
	if calls != 1 {
		t.Errorf("expected cached result, got %d lookups", calls)
	}

	// A transient failure expires after the TTL.
	now = now.Add(2 * time.Minute)
	r.lookup = func(context.Context, string) ([]string, error) {
		calls++
		return []string{"1.2.3.4"}, nil
	}
	if !r.Reachable(ctx, "https://abc.supabase.co") {
		t.Error("expected reachable after ttl expiry")
	}
	if calls != 2 {
		t.Errorf("expected 2 lookups, got %d", calls)
	}
}

func TestReachabilityInvalidURL(t *testing.T) {
	r := NewReachability(time.Minute)
	r.lookup = func(context.Context, string) ([]string, error) {
		t.Error("lookup should not be called")
		return nil, nil
	}
	if r.Reachable(context.Background(), "") {
		t.Error("expected false for empty url")
	}
	if r.Reachable(context.Background(), "not a url") {
		t.Error("expected false for url without host")
	}
}

func TestReachabilitySlowLookupDoesNotBlockCachedHosts(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	r := NewReachability(time.Minute)
	r.lookup = func(_ context.Context, host string) ([]string, error) {
		if host == "slow.supabase.co" {
			close(entered)
			<-release
		}
		return []string{"1.2.3.4"}, nil
	}

	ctx := context.Background()
	if !r.Reachable(ctx, "https://fast.supabase.co") {
		t.Fatal("expected fast host reachable")
	}

	done := make(chan bool)
	go func() { done <- r.Reachable(ctx, "https://slow.supabase.co") }()
	<-entered

	cached := make(chan bool)
	go func() { cached <- r.Reachable(ctx, "https://fast.supabase.co") }()
	select {
	case ok := <-cached:
		if !ok {
			t.Error("expected cached fast host reachable")
		}
	case <-time.After(time.Second):
		t.Fatal("cached lookup blocked behind a slow resolve")
	}

	close(release)
	if !<-done {
		t.Error("expected slow host reachable")
	}
}

package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/everstacklabs/pricehub/internal/cache"
)

type recordingObserver struct {
	mu    sync.Mutex
	calls []observation
}

type observation struct {
	host      string
	status    int
	fromCache bool
}

func (o *recordingObserver) ObserveHTTP(host string, status int, fromCache bool, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, observation{host, status, fromCache})
}

func TestGetCachesAndRevalidates(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	store, err := cache.NewFile(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	c := New(WithCache(store))
	ctx := context.Background()

	first, err := c.Get(ctx, srv.URL, nil)
	if err != nil {
		t.Fatalf("first Get: %v", err)
	}
	if first.FromCache {
		t.Error("first response should not come from cache")
	}

	second, err := c.Get(ctx, srv.URL, nil)
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if !second.FromCache || string(second.Body) != `{"ok":true}` {
		t.Errorf("expected cached body, got %+v", second)
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1", hits.Load())
	}

	stale, err := cache.NewFile(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}
	c = New(WithCache(stale))
	if _, err := c.Get(ctx, srv.URL, nil); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)
	third, err := c.Get(ctx, srv.URL, nil)
	if err != nil {
		t.Fatalf("revalidated Get: %v", err)
	}
	if !third.FromCache || string(third.Body) != `{"ok":true}` {
		t.Errorf("expected 304 to serve stale body, got %+v", third)
	}
}

func TestGetStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	c := New(WithMetrics(obs))
	_, err := c.Get(context.Background(), srv.URL, nil)

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d", se.StatusCode)
	}
	if len(obs.calls) != 1 || obs.calls[0].status != http.StatusBadGateway {
		t.Errorf("observer calls = %+v", obs.calls)
	}
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		_, _ = w.Write([]byte(`{"data":[{"name":"gpt-4o"}]}`))
	}))
	defer srv.Close()

	var out struct {
		Data []struct {
			Name string `json:"name"`
		} `json:"data"`
	}
	c := New(WithUserAgent("test-agent"))
	if err := c.GetJSON(context.Background(), srv.URL, nil, &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Data) != 1 || out.Data[0].Name != "gpt-4o" {
		t.Errorf("decoded = %+v", out)
	}
}

func TestGetJSONDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	var out map[string]any
	if err := New().GetJSON(context.Background(), srv.URL, nil, &out); err == nil {
		t.Error("expected decode error")
	}
}

func TestRateLimitHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := New(WithRateLimit(0.001))
	if _, err := c.Get(context.Background(), srv.URL, nil); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := c.Get(ctx, srv.URL, nil); err == nil {
		t.Error("expected rate limit wait to fail")
	}
}

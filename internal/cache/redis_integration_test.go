//go:build integration

package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestRedisCacheIntegration(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := NewRedis(ctx, url, time.Minute)
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	defer c.Close()

	key := "integration-" + time.Now().Format(time.RFC3339Nano)
	if err := c.Set(ctx, key, &Entry{Body: []byte("hello"), StatusCode: 200}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	e, fresh := c.Get(ctx, key)
	if !fresh || string(e.Body) != "hello" {
		t.Errorf("Get = %+v, %v", e, fresh)
	}
}

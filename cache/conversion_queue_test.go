package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

// unreachableClient points at a port nothing listens on.
func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestReleaseLock_ReportsServerError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := releaseLock(ctx, unreachableClient(t), conversionLockKey+"1", "host:1/0"); err == nil {
		t.Fatal("expected an error from an unreachable server")
	}
}

func TestAcquire_ServerErrorIsNotErrLocked(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	lock := NewConversionLock(unreachableClient(t), time.Minute)
	release, err := lock.Acquire(ctx, 1, "host:1/0")
	if err == nil || errors.Is(err, ErrLocked) {
		t.Fatalf("err = %v, want a connection error", err)
	}
	if release != nil {
		t.Error("release func returned without a lock")
	}
}

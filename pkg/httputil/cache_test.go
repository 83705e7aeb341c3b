package httputil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCacheSetGet(t *testing.T) {
	cache, err := NewCache(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	type payload struct {
		Name string   `json:"name"`
		Deps []string `json:"deps"`
	}

	want := payload{Name: "kotlin-browser-js", Deps: []string{"org.example:core-js:1.0"}}
	if err := cache.Set("pom:org.example:lib-js:1.0", want); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	var got payload
	ok, err := cache.Get("pom:org.example:lib-js:1.0", &got)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !ok {
		t.Fatal("Get() = miss, want hit")
	}
	if got.Name != want.Name || len(got.Deps) != 1 || got.Deps[0] != want.Deps[0] {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
}

func TestCacheMiss(t *testing.T) {
	cache, err := NewCache(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	var v string
	ok, err := cache.Get("absent", &v)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if ok {
		t.Error("Get() = hit, want miss")
	}
}

func TestCacheExpiry(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewCache(dir, time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	if err := cache.Set("key", "value"); err != nil {
		t.Fatal(err)
	}

	// Age the entry past its TTL by rewinding the file mtime.
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected 1 cache file, got %d (err %v)", len(entries), err)
	}
	old := time.Now().Add(-2 * time.Minute)
	if err := os.Chtimes(filepath.Join(dir, entries[0].Name()), old, old); err != nil {
		t.Fatal(err)
	}

	var v string
	ok, err := cache.Get("key", &v)
	if ok {
		t.Error("Get() = hit, want expired")
	}
	if !errors.Is(err, ErrExpired) {
		t.Errorf("Get() error = %v, want ErrExpired", err)
	}
}

func TestCacheZeroTTLNeverExpires(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewCache(dir, 0)
	if err != nil {
		t.Fatal(err)
	}

	if err := cache.Set("key", 42); err != nil {
		t.Fatal(err)
	}

	entries, _ := os.ReadDir(dir)
	old := time.Now().Add(-24 * 365 * time.Hour)
	_ = os.Chtimes(filepath.Join(dir, entries[0].Name()), old, old)

	var v int
	ok, err := cache.Get("key", &v)
	if err != nil || !ok || v != 42 {
		t.Errorf("Get() = (%v, %v), v = %d; want hit with 42", ok, err, v)
	}
}

func TestCacheNamespace(t *testing.T) {
	cache, err := NewCache(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}

	a := cache.Namespace("pom:")
	b := cache.Namespace("meta:")

	if err := a.Set("key", "from-pom"); err != nil {
		t.Fatal(err)
	}
	if err := b.Set("key", "from-meta"); err != nil {
		t.Fatal(err)
	}

	var v string
	if ok, _ := a.Get("key", &v); !ok || v != "from-pom" {
		t.Errorf("namespaced Get() = %q, want %q", v, "from-pom")
	}
	if ok, _ := b.Get("key", &v); !ok || v != "from-meta" {
		t.Errorf("namespaced Get() = %q, want %q", v, "from-meta")
	}

	// Un-prefixed key must not collide with namespaced ones.
	if ok, _ := cache.Get("key", &v); ok {
		t.Error("root cache Get() = hit, want miss")
	}
}

func TestRetryOnlyRetryable(t *testing.T) {
	calls := 0
	err := Retry(t.Context(), 3, time.Millisecond, func() error {
		calls++
		return errors.New("permanent")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (non-retryable errors must not retry)", calls)
	}
}

func TestRetryRetryableSucceeds(t *testing.T) {
	calls := 0
	err := Retry(t.Context(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return &RetryableError{Err: errors.New("transient")}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry() error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryExhausted(t *testing.T) {
	calls := 0
	err := Retry(t.Context(), 2, time.Millisecond, func() error {
		calls++
		return &RetryableError{Err: errors.New("transient")}
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

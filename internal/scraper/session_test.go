package scraper

import (
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"
)

func TestSessionValid(t *testing.T) {
	now := time.Now()

	var nilSession *Session
	if nilSession.Valid(now) {
		t.Fatalf("nil session must be invalid")
	}

	empty := &Session{AcquiredAt: now}
	if empty.Valid(now) {
		t.Fatalf("session without cookies must be invalid")
	}

	s := &Session{
		Cookies:    []*proto.NetworkCookieParam{{Name: "sid", Value: "x"}},
		AcquiredAt: now.Add(-10 * time.Minute),
	}
	if !s.Valid(now) {
		t.Fatalf("recent session must be valid")
	}

	stale := &Session{
		Cookies:    s.Cookies,
		AcquiredAt: now.Add(-2 * time.Hour),
	}
	if stale.Valid(now) {
		t.Fatalf("stale session must be invalid")
	}
}

func TestSessionStore_RoundTrip(t *testing.T) {
	store := NewSessionStore(t.TempDir())

	// 无文件时返回 nil 会话且不报错
	s, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s != nil {
		t.Fatalf("expected nil session before first save")
	}

	saved := &Session{
		Cookies:    []*proto.NetworkCookieParam{{Name: "sid", Value: "abc", Domain: "avaris.example"}},
		AcquiredAt: time.Now().Truncate(time.Second),
	}
	if err := store.Save(saved); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded == nil || len(loaded.Cookies) != 1 || loaded.Cookies[0].Value != "abc" {
		t.Fatalf("loaded=%+v", loaded)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if s, _ := store.Load(); s != nil {
		t.Fatalf("session should be gone after Clear")
	}
}

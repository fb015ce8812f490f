package cache

import (
	"testing"
	"time"
)

func TestGetExpiresEntriesAfterTTL(t *testing.T) {
	m := NewTTLMap[string, string](10 * time.Millisecond)
	m.Put("16384", "16384")

	if got, ok := m.Get("16384"); !ok || got != "16384" {
		t.Fatalf("expected hit before expiry, got %q ok=%v", got, ok)
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := m.Get("16384"); ok {
		t.Fatalf("expected miss after expiry")
	}
	if m.Len() != 0 {
		t.Fatalf("expired entry must be dropped, len=%d", m.Len())
	}
}

func TestZeroTTLNeverExpires(t *testing.T) {
	m := NewTTLMap[string, string](0)
	m.Put("a", "1")
	time.Sleep(5 * time.Millisecond)
	if _, ok := m.Get("a"); !ok {
		t.Fatalf("zero TTL entries must not expire")
	}
}

func TestForgetDropsOneKey(t *testing.T) {
	m := NewTTLMap[string, string](time.Minute)
	m.Put("a", "1")
	m.Put("b", "2")
	m.Forget("a")
	if _, ok := m.Get("a"); ok {
		t.Fatalf("forgotten key must miss")
	}
	if _, ok := m.Get("b"); !ok {
		t.Fatalf("unrelated key must survive")
	}
}

func TestEvictDropsEveryKeyForValue(t *testing.T) {
	m := NewTTLMap[string, string](time.Minute)
	m.Put("16384", "500")
	m.Put("16,384-legacy", "500")
	m.Put("777", "600")

	m.Evict("500")

	if _, ok := m.Get("16384"); ok {
		t.Fatalf("evicted value must miss under every key")
	}
	if _, ok := m.Get("16,384-legacy"); ok {
		t.Fatalf("evicted value must miss under every key")
	}
	if _, ok := m.Get("777"); !ok {
		t.Fatalf("other values must survive eviction")
	}
}

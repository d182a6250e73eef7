package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterAllowsBurstThenDenies(t *testing.T) {
	limiter := NewInMemoryLimiter(1, time.Minute, 3)

	for i := 0; i < 3; i++ {
		if !limiter.Allow("203.0.113.7") {
			t.Fatalf("request %d inside the burst was denied", i+1)
		}
	}
	if limiter.Allow("203.0.113.7") {
		t.Fatal("request beyond the burst was allowed")
	}
}

func TestLimiterTracksKeysIndependently(t *testing.T) {
	limiter := NewInMemoryLimiter(1, time.Minute, 1)

	if !limiter.Allow("203.0.113.7") {
		t.Fatal("first key's first request was denied")
	}
	if limiter.Allow("203.0.113.7") {
		t.Fatal("first key's second request was allowed")
	}
	if !limiter.Allow("198.51.100.9") {
		t.Fatal("a fresh key was denied")
	}
}

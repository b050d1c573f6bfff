package services

import (
	"testing"
	"time"
)

func TestSlidingWindowBurst(t *testing.T) {
	limiter := NewSlidingWindowLimiter(100, time.Hour)

	allowed := 0
	for i := 0; i < 150; i++ {
		ok, _ := limiter.Allow("1.2.3.4")
		if ok {
			allowed++
		}
	}

	if allowed != 100 {
		t.Errorf("allowed %d of 150, want exactly 100", allowed)
	}
}

func TestSlidingWindowRejectionNotRecorded(t *testing.T) {
	limiter := NewSlidingWindowLimiter(3, time.Hour)
	base := time.Now()
	limiter.now = func() time.Time { return base }

	for i := 0; i < 10; i++ {
		limiter.Allow("1.2.3.4")
	}

	if got := limiter.entries["1.2.3.4"].Sum(); got != 3 {
		t.Errorf("recorded %d requests, want 3; rejections must not count", got)
	}
}

func TestSlidingWindowReset(t *testing.T) {
	limiter := NewSlidingWindowLimiter(3, time.Hour)
	base := time.Now()
	limiter.now = func() time.Time { return base }

	for i := 0; i < 3; i++ {
		if ok, _ := limiter.Allow("1.2.3.4"); !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if ok, _ := limiter.Allow("1.2.3.4"); ok {
		t.Fatal("request over the limit should be rejected")
	}

	// Once the window slides past the old buckets the IP is clean again.
	limiter.now = func() time.Time { return base.Add(time.Hour + time.Minute) }
	if ok, _ := limiter.Allow("1.2.3.4"); !ok {
		t.Error("request after window reset should be allowed")
	}
}

func TestSlidingWindowPerIP(t *testing.T) {
	limiter := NewSlidingWindowLimiter(2, time.Hour)

	limiter.Allow("1.2.3.4")
	limiter.Allow("1.2.3.4")
	if ok, _ := limiter.Allow("1.2.3.4"); ok {
		t.Fatal("first IP should be exhausted")
	}

	if ok, _ := limiter.Allow("5.6.7.8"); !ok {
		t.Error("second IP should have its own window")
	}
}

func TestSlidingWindowRemaining(t *testing.T) {
	limiter := NewSlidingWindowLimiter(5, time.Hour)

	ok, info := limiter.Allow("1.2.3.4")
	if !ok {
		t.Fatal("first request should be allowed")
	}
	if info.Remaining != 4 {
		t.Errorf("Remaining = %d, want 4", info.Remaining)
	}

	for i := 0; i < 4; i++ {
		limiter.Allow("1.2.3.4")
	}
	ok, info = limiter.Allow("1.2.3.4")
	if ok {
		t.Fatal("sixth request should be rejected")
	}
	if info.Remaining != 0 {
		t.Errorf("Remaining = %d, want 0 on rejection", info.Remaining)
	}
	if info.ResetTime == nil {
		t.Error("rejection should carry a reset time")
	}
}

func TestDropIdle(t *testing.T) {
	limiter := NewSlidingWindowLimiter(10, time.Hour)
	base := time.Now()
	limiter.now = func() time.Time { return base }

	limiter.Allow("1.2.3.4")
	limiter.Allow("5.6.7.8")

	limiter.now = func() time.Time { return base.Add(2 * time.Hour) }
	if removed := limiter.DropIdle(); removed != 2 {
		t.Errorf("DropIdle removed %d, want 2", removed)
	}
	if len(limiter.entries) != 0 {
		t.Errorf("entries not emptied: %d left", len(limiter.entries))
	}
}

func TestEnvIntFallback(t *testing.T) {
	t.Setenv("RATE_LIMIT_TEST_KEY", "not-a-number")
	if got := envInt("RATE_LIMIT_TEST_KEY", 42); got != 42 {
		t.Errorf("envInt = %d, want fallback 42", got)
	}

	t.Setenv("RATE_LIMIT_TEST_KEY", "7")
	if got := envInt("RATE_LIMIT_TEST_KEY", 42); got != 7 {
		t.Errorf("envInt = %d, want 7", got)
	}
}

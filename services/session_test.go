package services

import (
	"strings"
	"testing"
	"time"
)

func TestIssueKeyFormat(t *testing.T) {
	store := NewMemorySessionStore()

	key, err := store.Issue("1.2.3.4", "Mozilla/5.0")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if !strings.HasPrefix(key, sessionKeyPrefix) {
		t.Errorf("key %q missing %q prefix", key, sessionKeyPrefix)
	}

	token := strings.TrimPrefix(key, sessionKeyPrefix)
	if len(token) < 43 { // 32 raw bytes base64url, unpadded
		t.Errorf("token too short: %d chars", len(token))
	}
	for _, r := range token {
		if !strings.ContainsRune("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_", r) {
			t.Errorf("token contains non URL-safe character %q", r)
		}
	}
}

func TestIssueKeysUnique(t *testing.T) {
	store := NewMemorySessionStore()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key, err := store.Issue("1.2.3.4", "ua")
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		if seen[key] {
			t.Fatalf("duplicate key issued: %s", key)
		}
		seen[key] = true
	}
}

func TestValidateHappyPath(t *testing.T) {
	store := NewMemorySessionStore()

	key, _ := store.Issue("1.2.3.4", "ua")
	if !store.Validate(key, "1.2.3.4", "ua") {
		t.Error("fresh session should validate")
	}
}

func TestValidateUnknownKey(t *testing.T) {
	store := NewMemorySessionStore()

	if store.Validate("sess_nope", "1.2.3.4", "ua") {
		t.Error("unknown key should not validate")
	}
	if store.Validate("", "1.2.3.4", "ua") {
		t.Error("empty key should not validate")
	}
}

func TestValidateExpiry(t *testing.T) {
	store := NewMemorySessionStore()
	base := time.Now()
	store.now = func() time.Time { return base }

	key, _ := store.Issue("1.2.3.4", "ua")

	store.now = func() time.Time { return base.Add(sessionTTL + time.Second) }
	if store.Validate(key, "1.2.3.4", "ua") {
		t.Error("expired session should not validate")
	}
	if store.ActiveCount() != 0 {
		t.Error("expired session should be evicted on validation")
	}
}

// Expiry is checked before the quota: a session with requests left still
// dies at the TTL.
func TestExpiryBeatsQuota(t *testing.T) {
	store := NewMemorySessionStore()
	base := time.Now()
	store.now = func() time.Time { return base }

	key, _ := store.Issue("1.2.3.4", "ua")
	if !store.Validate(key, "1.2.3.4", "ua") {
		t.Fatal("fresh session should validate")
	}

	store.now = func() time.Time { return base.Add(sessionTTL + time.Minute) }
	if store.Validate(key, "1.2.3.4", "ua") {
		t.Error("session past TTL should fail even with quota remaining")
	}
}

func TestValidateQuota(t *testing.T) {
	store := NewMemorySessionStore()

	key, _ := store.Issue("1.2.3.4", "ua")

	for i := 1; i <= sessionMaxRequests; i++ {
		if !store.Validate(key, "1.2.3.4", "ua") {
			t.Fatalf("validation %d should succeed", i)
		}
	}

	if store.Validate(key, "1.2.3.4", "ua") {
		t.Errorf("validation %d should fail, quota is %d", sessionMaxRequests+1, sessionMaxRequests)
	}

	// The exhausted session is retained, not evicted.
	if store.ActiveCount() != 1 {
		t.Error("quota-exhausted session should stay in the store")
	}
}

func TestValidateIPMismatch(t *testing.T) {
	store := NewMemorySessionStore()

	key, _ := store.Issue("1.2.3.4", "ua")

	if store.Validate(key, "5.6.7.8", "ua") {
		t.Error("different IP should not validate")
	}

	// The mismatch must not consume quota or kill the session.
	if !store.Validate(key, "1.2.3.4", "ua") {
		t.Error("original IP should still validate after a mismatch")
	}
}

func TestValidateUserAgentNotEnforced(t *testing.T) {
	store := NewMemorySessionStore()

	key, _ := store.Issue("1.2.3.4", "Mozilla/5.0")
	if !store.Validate(key, "1.2.3.4", "Mozilla/6.0") {
		t.Error("user agent drift should not invalidate the session")
	}
}

func TestSweepEvictsExpired(t *testing.T) {
	store := NewMemorySessionStore()
	base := time.Now()
	store.now = func() time.Time { return base }
	store.lastCleanup = base

	store.Issue("1.2.3.4", "ua")
	store.Issue("1.2.3.5", "ua")

	// Past both the TTL and the cleanup interval; the next issue sweeps.
	store.now = func() time.Time { return base.Add(sessionTTL + cleanupInterval + time.Second) }
	store.Issue("1.2.3.6", "ua")

	if got := store.ActiveCount(); got != 1 {
		t.Errorf("ActiveCount = %d, want 1 after sweep", got)
	}
}

func TestSweepAmortized(t *testing.T) {
	store := NewMemorySessionStore()
	base := time.Now()
	store.now = func() time.Time { return base }
	store.lastCleanup = base

	store.Issue("1.2.3.4", "ua")

	// Inside the cleanup interval nothing is swept, even though a later
	// issue walks the same path.
	store.now = func() time.Time { return base.Add(time.Minute) }
	store.Issue("1.2.3.5", "ua")

	if got := store.ActiveCount(); got != 2 {
		t.Errorf("ActiveCount = %d, want 2", got)
	}
	if !store.lastCleanup.Equal(base) {
		t.Error("sweep ran inside the cleanup interval")
	}
}

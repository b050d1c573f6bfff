package services

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"

	"github.com/ezyba/payment_api/model"
)

const (
	sessionTTL         = 30 * time.Minute
	sessionMaxRequests = 50
	sessionKeyPrefix   = "sess_"
	sessionKeyEntropy  = 32 // bytes

	cleanupInterval = 5 * time.Minute
)

// SessionBackend is the store contract. The default backend is the
// in-process map below; the redis backend satisfies the same contract so a
// multi-process deployment swaps backends without touching any caller.
type SessionBackend interface {
	Issue(clientIP, userAgent string) (string, error)
	Validate(key, clientIP, userAgent string) bool
	ActiveCount() int
}

// SessionService issues and validates the short-lived session keys that
// protect the payment endpoints.
type SessionService struct {
	context.DefaultService

	backend  SessionBackend
	useRedis bool
}

const SESSION_SVC = "session_svc"

func (svc SessionService) Id() string {
	return SESSION_SVC
}

func (svc *SessionService) Configure(ctx *context.Context) error {
	svc.useRedis = os.Getenv("SESSION_BACKEND") == "redis"
	return svc.DefaultService.Configure(ctx)
}

func (svc *SessionService) Start() error {
	if svc.useRedis {
		redisSvc := svc.Service(REDIS_SVC).(*RedisService)
		svc.backend = NewRedisSessionStore(redisSvc.GetClient())
		log.Info("Session store backed by redis")
		return nil
	}

	svc.backend = NewMemorySessionStore()
	return nil
}

// Issue always succeeds barring an entropy failure; the new key is the only
// credential the caller ever sees.
func (svc *SessionService) Issue(clientIP, userAgent string) (string, error) {
	key, err := svc.backend.Issue(clientIP, userAgent)
	if err != nil {
		return "", err
	}

	sessionsIssuedTotal.Inc()
	log.WithField("ip", SanitizeLogValue(clientIP)).Info("Issued session key")
	return key, nil
}

func (svc *SessionService) Validate(key, clientIP, userAgent string) bool {
	return svc.backend.Validate(key, clientIP, userAgent)
}

func (svc *SessionService) ActiveCount() int {
	return svc.backend.ActiveCount()
}

// MemorySessionStore is the process-local backend. One mutex guards every
// read-modify-write so issue, validate-and-increment and the sweep never
// interleave.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*model.Session

	lastCleanup time.Time
	now         func() time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions:    make(map[string]*model.Session),
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

func (s *MemorySessionStore) Issue(clientIP, userAgent string) (string, error) {
	key, err := generateSessionKey()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)

	s.sessions[key] = &model.Session{
		Key:          key,
		CreatedAt:    now,
		ExpiresAt:    now.Add(sessionTTL),
		ClientIP:     clientIP,
		UserAgent:    userAgent,
		RequestCount: 0,
		MaxRequests:  sessionMaxRequests,
	}

	return key, nil
}

func (s *MemorySessionStore) Validate(key, clientIP, userAgent string) bool {
	if key == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[key]
	if !ok {
		return false
	}

	now := s.now()
	if session.Expired(now) {
		delete(s.sessions, key)
		return false
	}

	// A mismatched IP is treated as a possibly spoofed request, not a dead
	// session: the entry stays usable for the original client.
	if session.ClientIP != clientIP {
		log.WithFields(log.Fields{
			"stored_ip":  SanitizeLogValue(session.ClientIP),
			"request_ip": SanitizeLogValue(clientIP),
		}).Warn("Session IP mismatch")
		return false
	}

	// The user agent is bound at issuance but intentionally not enforced
	// here; browsers and proxies rewrite it too freely.
	if session.UserAgent != userAgent {
		log.Debug("Session user agent drift")
	}

	if session.QuotaExhausted() {
		log.WithField("ip", SanitizeLogValue(clientIP)).Warn("Session request quota exhausted")
		return false
	}

	session.RequestCount++
	return true
}

func (s *MemorySessionStore) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// sweepLocked drops expired entries, amortized to at most once per
// cleanupInterval. Caller holds the mutex.
func (s *MemorySessionStore) sweepLocked(now time.Time) {
	if now.Sub(s.lastCleanup) < cleanupInterval {
		return
	}

	removed := 0
	for key, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, key)
			removed++
		}
	}
	s.lastCleanup = now

	if removed > 0 {
		log.WithField("count", removed).Info("Cleaned up expired sessions")
	}
}

func generateSessionKey() (string, error) {
	buf := make([]byte, sessionKeyEntropy)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session key: %w", err)
	}
	return sessionKeyPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

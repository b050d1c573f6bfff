package services

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"

	"github.com/ezyba/payment_api/dto"
	"github.com/ezyba/payment_api/model"
	"github.com/ezyba/payment_api/shared"
)

const (
	defaultRateLimitRequests = 100
	defaultRateLimitWindow   = 3600 // seconds

	idleEntryCleanupPeriod = time.Hour
)

// RateLimitBackend mirrors SessionBackend: the in-process window below by
// default, redis when horizontal scaling needs shared counters.
type RateLimitBackend interface {
	Allow(clientIP string) (bool, *dto.RateLimitInfo)
}

// RateLimitService enforces the per-IP sliding window applied ahead of every
// non-exempt endpoint, independent of sessions.
type RateLimitService struct {
	context.DefaultService

	backend  RateLimitBackend
	useRedis bool

	maxRequests int
	window      time.Duration

	securitySvc *SecurityService

	stop chan struct{}
}

const RATE_LIMIT_SVC = "rate_limit_svc"

func (svc RateLimitService) Id() string {
	return RATE_LIMIT_SVC
}

func (svc *RateLimitService) Configure(ctx *context.Context) error {
	svc.maxRequests = envInt("RATE_LIMIT_REQUESTS", defaultRateLimitRequests)
	svc.window = time.Duration(envInt("RATE_LIMIT_WINDOW", defaultRateLimitWindow)) * time.Second
	svc.useRedis = os.Getenv("RATE_LIMIT_BACKEND") == "redis"
	svc.stop = make(chan struct{})

	return svc.DefaultService.Configure(ctx)
}

func (svc *RateLimitService) Start() error {
	svc.securitySvc = svc.Service(SECURITY_SVC).(*SecurityService)

	if svc.useRedis {
		redisSvc := svc.Service(REDIS_SVC).(*RedisService)
		svc.backend = NewRedisRateLimiter(redisSvc.GetClient(), svc.maxRequests, svc.window)
		log.Info("Rate limiter backed by redis")
	} else {
		limiter := NewSlidingWindowLimiter(svc.maxRequests, svc.window)
		svc.backend = limiter
		go svc.cleanupJob(limiter)
	}

	return nil
}

func (svc *RateLimitService) Shutdown() {
	close(svc.stop)
}

// Allow reports whether clientIP may make another request. Rejected
// requests are never recorded against the window.
func (svc *RateLimitService) Allow(clientIP string) (bool, *dto.RateLimitInfo) {
	allowed, info := svc.backend.Allow(clientIP)
	if !allowed {
		rateLimitRejectedTotal.Inc()
		svc.securitySvc.LogSecurityEvent(shared.EventRateLimitExceeded, clientIP,
			"Requests: "+strconv.Itoa(svc.maxRequests))
	}
	return allowed, info
}

func (svc *RateLimitService) cleanupJob(limiter *SlidingWindowLimiter) {
	ticker := time.NewTicker(idleEntryCleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := limiter.DropIdle()
			if removed > 0 {
				log.WithField("count", removed).Info("Dropped idle rate limit entries")
			}
		case <-svc.stop:
			return
		}
	}
}

// SlidingWindowLimiter counts requests per IP in one-minute buckets over a
// trailing window. One mutex guards the whole table.
type SlidingWindowLimiter struct {
	mu      sync.Mutex
	entries map[string]*model.RateWindowBucket

	maxRequests int
	window      time.Duration

	now func() time.Time
}

func NewSlidingWindowLimiter(maxRequests int, window time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		entries:     make(map[string]*model.RateWindowBucket),
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

func (l *SlidingWindowLimiter) Allow(clientIP string) (bool, *dto.RateLimitInfo) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	windowStart := now.Unix() - int64(l.window.Seconds())

	entry, ok := l.entries[clientIP]
	if !ok {
		entry = model.NewRateWindowBucket()
		l.entries[clientIP] = entry
	}

	entry.Prune(windowStart)

	total := entry.Sum()
	if total >= l.maxRequests {
		resetTime := now.Add(time.Minute)
		return false, &dto.RateLimitInfo{
			Allowed:   false,
			Remaining: 0,
			ResetTime: &resetTime,
		}
	}

	entry.Increment(now.Unix() / 60)

	return true, &dto.RateLimitInfo{
		Allowed:   true,
		Remaining: l.maxRequests - total - 1,
	}
}

// DropIdle removes IPs whose buckets all fell out of the window.
func (l *SlidingWindowLimiter) DropIdle() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	windowStart := l.now().Unix() - int64(l.window.Seconds())
	removed := 0
	for ip, entry := range l.entries {
		entry.Prune(windowStart)
		if len(entry.Buckets) == 0 {
			delete(l.entries, ip)
			removed++
		}
	}
	return removed
}

func envInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
		log.WithField("key", key).Warn("Invalid integer in environment, using default")
	}
	return fallback
}

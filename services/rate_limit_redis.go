package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/ezyba/payment_api/dto"
)

// RedisRateLimiter keeps one counter per (ip, minute) with a TTL just past
// the window, so pruning is redis's problem. The window sum is an MGet over
// the minutes still inside the window.
type RedisRateLimiter struct {
	client      *redis.Client
	maxRequests int
	window      time.Duration
}

func NewRedisRateLimiter(client *redis.Client, maxRequests int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:      client,
		maxRequests: maxRequests,
		window:      window,
	}
}

func (l *RedisRateLimiter) Allow(clientIP string) (bool, *dto.RateLimitInfo) {
	ctx := context.Background()
	now := time.Now()
	currentMinute := now.Unix() / 60
	windowMinutes := int64(l.window.Seconds()) / 60

	keys := make([]string, 0, windowMinutes+1)
	for m := currentMinute - windowMinutes; m < currentMinute; m++ {
		if m*60 > now.Unix()-int64(l.window.Seconds()) {
			keys = append(keys, l.bucketKey(clientIP, m))
		}
	}
	keys = append(keys, l.bucketKey(clientIP, currentMinute))

	values, err := l.client.MGet(ctx, keys...).Result()
	if err != nil {
		// Fail open; redis outages must not take payments down with them.
		log.WithError(err).Error("Rate limit lookup failed")
		return true, &dto.RateLimitInfo{Allowed: true, Remaining: -1}
	}

	total := 0
	for _, v := range values {
		if raw, ok := v.(string); ok {
			if n, convErr := strconv.Atoi(raw); convErr == nil {
				total += n
			}
		}
	}

	if total >= l.maxRequests {
		resetTime := now.Add(time.Minute)
		return false, &dto.RateLimitInfo{
			Allowed:   false,
			Remaining: 0,
			ResetTime: &resetTime,
		}
	}

	key := l.bucketKey(clientIP, currentMinute)
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		log.WithError(err).Error("Rate limit counter update failed")
		return true, &dto.RateLimitInfo{Allowed: true, Remaining: -1}
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window+time.Minute).Err(); err != nil {
			log.WithError(err).Error("Rate limit bucket expiry failed")
		}
	}

	return true, &dto.RateLimitInfo{
		Allowed:   true,
		Remaining: l.maxRequests - total - 1,
	}
}

func (l *RedisRateLimiter) bucketKey(clientIP string, minute int64) string {
	return fmt.Sprintf("ratelimit:%s:%d", clientIP, minute)
}

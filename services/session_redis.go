package services

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const redisSessionPrefix = "session:"

// RedisSessionStore keeps one hash per session key with the native TTL
// standing in for the in-memory sweep. Same observable contract as
// MemorySessionStore: quota counting rides on HIncrBy so concurrent
// validators never lose an update.
type RedisSessionStore struct {
	client *redis.Client
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func (s *RedisSessionStore) Issue(clientIP, userAgent string) (string, error) {
	key, err := generateSessionKey()
	if err != nil {
		return "", err
	}

	ctx := context.Background()
	now := time.Now()

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, redisSessionPrefix+key,
		"client_ip", clientIP,
		"user_agent", userAgent,
		"request_count", 0,
		"created_at", now.Unix(),
	)
	pipe.Expire(ctx, redisSessionPrefix+key, sessionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}

	return key, nil
}

func (s *RedisSessionStore) Validate(key, clientIP, userAgent string) bool {
	if key == "" {
		return false
	}

	ctx := context.Background()
	storedIP, err := s.client.HGet(ctx, redisSessionPrefix+key, "client_ip").Result()
	if err == redis.Nil {
		// Unknown key or expired; redis already evicted it either way.
		return false
	}
	if err != nil {
		log.WithError(err).Error("Session lookup failed")
		return false
	}

	if storedIP != clientIP {
		log.WithFields(log.Fields{
			"stored_ip":  SanitizeLogValue(storedIP),
			"request_ip": SanitizeLogValue(clientIP),
		}).Warn("Session IP mismatch")
		return false
	}

	count, err := s.client.HIncrBy(ctx, redisSessionPrefix+key, "request_count", 1).Result()
	if err != nil {
		log.WithError(err).Error("Session counter update failed")
		return false
	}

	if count > sessionMaxRequests {
		log.WithField("ip", SanitizeLogValue(clientIP)).Warn("Session request quota exhausted")
		return false
	}

	return true
}

func (s *RedisSessionStore) ActiveCount() int {
	ctx := context.Background()

	var count int
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, redisSessionPrefix+"*", 500).Result()
		if err != nil {
			log.WithError(err).Error("Session scan failed")
			return count
		}
		count += len(keys)
		if next == 0 {
			break
		}
		cursor = next
	}

	return count
}

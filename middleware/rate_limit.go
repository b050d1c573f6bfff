package middleware

import (
	"strconv"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"

	"github.com/ezyba/payment_api/services"
	"github.com/ezyba/payment_api/shared"
)

// RateLimitMiddleware applies the per-IP sliding window ahead of every
// non-exempt route.
type RateLimitMiddleware struct {
	context.DefaultService

	rateLimitSvc *services.RateLimitService
}

func (svc RateLimitMiddleware) Id() string {
	return services.RATE_LIMIT_MIDDLEWARE_SVC
}

func (svc *RateLimitMiddleware) Start() error {
	svc.rateLimitSvc = svc.Service(services.RATE_LIMIT_SVC).(*services.RateLimitService)
	return nil
}

func (svc *RateLimitMiddleware) IPRateLimit() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Liveness probes must stay reachable no matter how noisy an IP is.
		if c.Path() == "/health" {
			return c.Next()
		}

		ip := services.GetClientIP(c)
		c.Locals(shared.ClientIP, ip)

		allowed, info := svc.rateLimitSvc.Allow(ip)

		if info != nil {
			if info.Remaining >= 0 {
				c.Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			}
			if info.ResetTime != nil {
				c.Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
				if !allowed {
					retryAfter := int(time.Until(*info.ResetTime).Seconds())
					if retryAfter > 0 {
						c.Set("Retry-After", strconv.Itoa(retryAfter))
					}
				}
			}
		}

		if !allowed {
			return shared.NewRateLimitError("Rate limit exceeded. Try again later.", nil)
		}

		return c.Next()
	}
}

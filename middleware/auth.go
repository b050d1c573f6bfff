package middleware

import (
	"strings"

	"github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"

	"github.com/ezyba/payment_api/services"
	"github.com/ezyba/payment_api/shared"
)

// AuthMiddleware implements the per-route gate chain: origin trust,
// session validation and API key checks.
type AuthMiddleware struct {
	context.DefaultService

	securitySvc *services.SecurityService
	sessionSvc  *services.SessionService
}

func (svc AuthMiddleware) Id() string {
	return services.AUTH_MIDDLEWARE_SVC
}

func (svc *AuthMiddleware) Start() error {
	svc.securitySvc = svc.Service(services.SECURITY_SVC).(*services.SecurityService)
	svc.sessionSvc = svc.Service(services.SESSION_SVC).(*services.SessionService)
	return nil
}

// TrustedOrigin rejects requests whose Origin/Referer pair does not
// resolve to an allowed host, and stamps client identity into locals
// for the handlers further down the chain.
func (svc *AuthMiddleware) TrustedOrigin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.securitySvc.ValidateRequest(c); err != nil {
			return err
		}

		if c.Locals(shared.ClientIP) == nil {
			c.Locals(shared.ClientIP, services.GetClientIP(c))
		}
		c.Locals(shared.UserAgent, c.Get(fiber.HeaderUserAgent))

		return c.Next()
	}
}

// RequireSession validates the session key minted by the config
// endpoint. The key travels in the X-Session-Key header.
func (svc *AuthMiddleware) RequireSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get(shared.SessionKeyHeader)
		ip := clientIP(c)

		if key == "" {
			svc.securitySvc.LogSecurityEvent(shared.EventInvalidSession, ip, "Missing session key")
			return shared.NewUnauthorizedError("Session required")
		}

		if !svc.sessionSvc.Validate(key, ip, c.Get(fiber.HeaderUserAgent)) {
			svc.securitySvc.LogSecurityEvent(shared.EventInvalidSession, ip, "Key: "+key)
			return shared.NewUnauthorizedError("Invalid or expired session")
		}

		return c.Next()
	}
}

// RequireAPIKey guards operator endpoints with a bearer token compared
// against the configured API key.
func (svc *AuthMiddleware) RequireAPIKey() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := clientIP(c)

		auth := c.Get(fiber.HeaderAuthorization)
		token := strings.TrimPrefix(auth, "Bearer ")
		if auth == "" || token == auth {
			svc.securitySvc.LogSecurityEvent(shared.EventInvalidAPIKey, ip, "Missing bearer token")
			return shared.NewUnauthorizedError("API key required")
		}

		if !svc.securitySvc.VerifyAPIKey(token, ip) {
			return shared.NewForbiddenError("Invalid API key")
		}

		return c.Next()
	}
}

func clientIP(c *fiber.Ctx) string {
	if v, ok := c.Locals(shared.ClientIP).(string); ok && v != "" {
		return v
	}
	return services.GetClientIP(c)
}

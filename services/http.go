package services

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	log "github.com/sirupsen/logrus"

	"github.com/ezyba/payment_api/dto"
	"github.com/ezyba/payment_api/services/handlers"
	"github.com/ezyba/payment_api/shared"
)

// Middleware service ids, implemented in the middleware package.
const (
	AUTH_MIDDLEWARE_SVC       = "auth"
	RATE_LIMIT_MIDDLEWARE_SVC = "rate_limit"
)

// GateMiddleware is the per-endpoint authorization surface the http layer
// mounts. The middleware package implements it on top of the security,
// session and rate-limit services.
type GateMiddleware interface {
	TrustedOrigin() fiber.Handler
	RequireSession() fiber.Handler
	RequireAPIKey() fiber.Handler
}

type RateLimitGate interface {
	IPRateLimit() fiber.Handler
}

type HttpService struct {
	context.DefaultService

	stripeSvc    *StripeService
	sessionSvc   *SessionService
	turnstileSvc *TurnstileService
	emailSvc     *EmailService
	postgresSvc  *PostgresService
	monitorSvc   *MonitoringService

	environment string
	port        int
	server      *fiber.App
}

const HTTP_SVC = "http_svc"

func (svc HttpService) Id() string {
	return HTTP_SVC
}

func (svc *HttpService) Configure(ctx *context.Context) error {
	if port := os.Getenv("HTTP_PORT"); port != "" {
		var err error
		if svc.port, err = strconv.Atoi(port); err != nil {
			return err
		}
	} else {
		svc.port = 8000
	}

	svc.environment = os.Getenv("ENVIRONMENT")
	if svc.environment == "" {
		svc.environment = "development"
	}

	return svc.DefaultService.Configure(ctx)
}

func (svc *HttpService) Start() error {
	svc.stripeSvc = svc.Service(STRIPE_SVC).(*StripeService)
	svc.sessionSvc = svc.Service(SESSION_SVC).(*SessionService)
	svc.turnstileSvc = svc.Service(TURNSTILE_SVC).(*TurnstileService)
	svc.emailSvc = svc.Service(EMAIL_SVC).(*EmailService)
	svc.postgresSvc = svc.Service(POSTGRES_SVC).(*PostgresService)
	svc.monitorSvc = svc.Service(MONITORING_SVC).(*MonitoringService)

	gate := svc.Service(AUTH_MIDDLEWARE_SVC).(GateMiddleware)
	rateLimit := svc.Service(RATE_LIMIT_MIDDLEWARE_SVC).(RateLimitGate)

	r := fiber.New(fiber.Config{
		AppName:      SERVICE_NAME,
		ErrorHandler: svc.handleError,
	})

	r.Use(recover.New())
	r.Use(svc.securityHeaders)
	r.Use(svc.requestMetrics)

	corsOrigins := os.Getenv("CORS_ORIGINS")
	if corsOrigins != "" {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     corsOrigins,
			AllowMethods:     "GET,POST",
			AllowHeaders:     "Content-Type,Authorization," + shared.SessionKeyHeader,
			AllowCredentials: true,
		}))
	}

	// Rate limiting fronts everything; the middleware exempts the liveness
	// probe itself.
	r.Use(rateLimit.IPRateLimit())

	r.Get("/health", svc.health)

	paymentHandler := handlers.NewPaymentHandler(
		svc.stripeSvc,
		svc.sessionSvc,
		svc.turnstileSvc,
		svc.emailSvc,
		svc.postgresSvc,
		svc.monitorSvc,
	)

	v1 := r.Group("/api/v1")
	payments := v1.Group("/payments")

	payments.Get("/config", gate.TrustedOrigin(), paymentHandler.GetConfig)
	payments.Post("/create", gate.TrustedOrigin(), gate.RequireSession(), paymentHandler.CreatePayment)
	payments.Post("/customer-portal", gate.TrustedOrigin(), gate.RequireSession(), paymentHandler.CustomerPortal)

	// Internal, server-to-server only.
	payments.Get("/history", gate.RequireAPIKey(), paymentHandler.GetPaymentHistory)

	r.Use(func(c *fiber.Ctx) error {
		return shared.ResponseJSON(c, fiber.StatusNotFound, "Not Found", nil)
	})

	log.WithField("port", svc.port).Info("HTTP server starting")
	svc.server = r
	return r.Listen(fmt.Sprintf(":%v", svc.port))
}

func (svc *HttpService) Shutdown() {
	if svc.server != nil {
		_ = svc.server.Shutdown()
	}
}

// @Summary Health
// @Description Liveness probe, exempt from rate limiting
// @Tags health
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Router /health [get]
func (svc *HttpService) health(c *fiber.Ctx) error {
	c.Set("Cache-Control", "max-age=10")

	return c.Status(fiber.StatusOK).JSON(dto.HealthResponse{
		Status:      "healthy",
		Environment: svc.environment,
	})
}

func (svc *HttpService) securityHeaders(c *fiber.Ctx) error {
	err := c.Next()

	c.Set("X-Content-Type-Options", "nosniff")
	c.Set("X-Frame-Options", "DENY")
	c.Set("X-XSS-Protection", "1; mode=block")
	c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	c.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

	return err
}

func (svc *HttpService) requestMetrics(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		if appErr, ok := shared.GetAppError(err); ok {
			status = appErr.StatusCode
		} else if fiberErr, ok := err.(*fiber.Error); ok {
			status = fiberErr.Code
		} else {
			status = fiber.StatusInternalServerError
		}
	}

	ObserveRequest(c.Route().Path, c.Method(), status, time.Since(start))
	return err
}

// handleError is the central error mapper: AppError carries its status and a
// caller-safe message, anything else becomes a generic 500 logged with full
// context server-side only.
func (svc *HttpService) handleError(c *fiber.Ctx, err error) error {
	if appErr, ok := shared.GetAppError(err); ok {
		return shared.ResponseJSON(c, appErr.StatusCode, appErr.Message, appErr.Data)
	}

	if fiberErr, ok := err.(*fiber.Error); ok {
		return shared.ResponseJSON(c, fiberErr.Code, fiberErr.Message, nil)
	}

	log.WithError(err).WithField("path", c.Path()).Error("Unhandled error")
	return shared.ResponseInternalError(c)
}

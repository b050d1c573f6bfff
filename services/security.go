package services

import (
	"crypto/subtle"
	"net"
	"net/url"
	"os"
	"strings"

	"github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/ezyba/payment_api/shared"
)

// SecurityService owns the origin/referer trust decision, client identity
// extraction and the security event log. It holds no mutable state after
// Configure and is safe for concurrent use.
type SecurityService struct {
	context.DefaultService

	allowedHosts map[string]bool
	development  bool
	apiKey       string
}

const SECURITY_SVC = "security_svc"

// Obvious bots and API tooling; payment pages are browser-only.
var suspiciousAgents = []string{
	"curl", "wget", "python-requests", "postman",
	"insomnia", "bot", "crawler", "spider",
}

func (svc SecurityService) Id() string {
	return SECURITY_SVC
}

func (svc *SecurityService) Configure(ctx *context.Context) error {
	svc.allowedHosts = make(map[string]bool)
	for _, host := range strings.Split(os.Getenv("ALLOWED_HOSTS"), ",") {
		host = strings.TrimSpace(host)
		if host != "" {
			svc.allowedHosts[host] = true
		}
	}

	svc.development = os.Getenv("ENVIRONMENT") == "development"
	svc.apiKey = os.Getenv("API_KEY")

	return svc.DefaultService.Configure(ctx)
}

func (svc *SecurityService) Start() error {
	if len(svc.allowedHosts) == 0 && !svc.development {
		log.Warn("ALLOWED_HOSTS is empty; all cross-origin requests will be rejected")
	}
	return nil
}

// IsTrusted classifies a request from its Origin/Referer headers. Requests
// with neither header are trusted only in development mode. Any parse
// failure is untrusted.
func (svc *SecurityService) IsTrusted(origin, referer string) bool {
	return originTrusted(origin, referer, svc.allowedHosts, svc.development)
}

func originTrusted(origin, referer string, allowedHosts map[string]bool, development bool) bool {
	if origin == "" && referer == "" {
		return development
	}

	if origin != "" {
		return hostAllowed(origin, allowedHosts)
	}

	return hostAllowed(referer, allowedHosts)
}

func hostAllowed(rawURL string, allowedHosts map[string]bool) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := parsed.Hostname()
	if host == "" {
		return false
	}
	return allowedHosts[host]
}

// ValidateRequest runs the layered origin checks: Origin membership, then
// Referer when one is present, then the user-agent heuristic. Each failure
// is logged as its own security event.
func (svc *SecurityService) ValidateRequest(c *fiber.Ctx) error {
	ip := GetClientIP(c)
	origin := c.Get(fiber.HeaderOrigin)
	referer := c.Get(fiber.HeaderReferer)

	if !svc.IsTrusted(origin, referer) {
		svc.LogSecurityEvent(shared.EventInvalidOrigin, ip, "Origin: "+headerOrNone(origin))
		return shared.NewForbiddenError("Invalid origin")
	}

	// A trusted Origin does not excuse a referer pointing elsewhere.
	if referer != "" && !hostAllowed(referer, svc.allowedHosts) {
		svc.LogSecurityEvent(shared.EventInvalidReferer, ip, "Referer: "+headerOrNone(referer))
		return shared.NewForbiddenError("Invalid referer")
	}

	if isSuspiciousAgent(c.Get(fiber.HeaderUserAgent)) {
		svc.LogSecurityEvent(shared.EventSuspiciousRequest, ip, "Pattern detected")
		return shared.NewForbiddenError("Forbidden")
	}

	return nil
}

func isSuspiciousAgent(userAgent string) bool {
	lowered := strings.ToLower(userAgent)
	for _, agent := range suspiciousAgents {
		if strings.Contains(lowered, agent) {
			return true
		}
	}
	return false
}

// VerifyAPIKey is the internal server-to-server check. Constant-time to keep
// the key length and contents unobservable.
func (svc *SecurityService) VerifyAPIKey(candidate string, clientIP string) bool {
	if svc.apiKey == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(candidate), []byte(svc.apiKey)) == 1 {
		return true
	}

	prefix := candidate
	if len(prefix) > 10 {
		prefix = prefix[:10]
	}
	svc.LogSecurityEvent(shared.EventInvalidAPIKey, clientIP, "Key: "+prefix+"...")
	return false
}

// LogSecurityEvent writes one append-only security log line. The free-text
// context is capped at 100 chars with CR/LF stripped so a hostile header
// cannot forge log records.
func (svc *SecurityService) LogSecurityEvent(kind, ip, context string) {
	log.WithFields(log.Fields{
		"security": true,
		"event":    kind,
		"ip":       SanitizeLogValue(ip),
	}).Warn(SanitizeLogValue(context))

	securityEventsTotal.WithLabelValues(kind).Inc()
}

func SanitizeLogValue(value string) string {
	value = strings.ReplaceAll(value, "\n", "")
	value = strings.ReplaceAll(value, "\r", "")
	if len(value) > 100 {
		value = value[:100]
	}
	return value
}

func headerOrNone(value string) string {
	if value == "" {
		return "none"
	}
	return value
}

// GetClientIP resolves the client address. The first X-Forwarded-For hop is
// trusted because the deployment terminates TLS at a reverse proxy that
// overwrites the header; without that proxy this value is client-controlled.
func GetClientIP(c *fiber.Ctx) string {
	forwarded := c.Get("X-Forwarded-For")
	if forwarded != "" {
		ips := strings.Split(forwarded, ",")
		if len(ips) > 0 {
			ip := strings.TrimSpace(ips[0])
			if ip != "" {
				return ip
			}
		}
	}

	realIP := c.Get("X-Real-IP")
	if realIP != "" {
		return realIP
	}

	remote := c.Context().RemoteAddr().String()
	ip, _, err := net.SplitHostPort(remote)
	if err != nil {
		if remote != "" {
			return remote
		}
		return "unknown"
	}
	if ip == "" {
		return "unknown"
	}

	return ip
}

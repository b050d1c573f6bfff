package services

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func allowedSet(hosts ...string) map[string]bool {
	m := make(map[string]bool)
	for _, h := range hosts {
		m[h] = true
	}
	return m
}

func TestOriginTrusted(t *testing.T) {
	hosts := allowedSet("ezyba.com", "www.ezyba.com", "localhost")

	cases := []struct {
		name        string
		origin      string
		referer     string
		development bool
		want        bool
	}{
		{"allowed origin", "https://ezyba.com", "", false, true},
		{"allowed origin with path", "https://www.ezyba.com/checkout", "", false, true},
		{"unlisted origin", "https://evil.com", "", false, false},
		{"subdomain is not the listed host", "https://ezyba.com.evil.com", "", false, false},
		{"referer fallback", "", "https://ezyba.com/pay", false, true},
		{"referer fallback unlisted", "", "https://evil.com/", false, false},
		{"origin wins over referer", "https://evil.com", "https://ezyba.com", false, false},
		{"no headers in production", "", "", false, false},
		{"no headers in development", "", "", true, true},
		{"localhost with port", "http://localhost:3000", "", false, true},
		{"schemeless garbage", "not a url", "", false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := originTrusted(tc.origin, tc.referer, hosts, tc.development)
			if got != tc.want {
				t.Errorf("originTrusted(%q, %q, dev=%v) = %v, want %v",
					tc.origin, tc.referer, tc.development, got, tc.want)
			}
		})
	}
}

func TestHostAllowedMalformed(t *testing.T) {
	hosts := allowedSet("ezyba.com")

	for _, raw := range []string{"", "://bad", "https://", "%zz"} {
		if hostAllowed(raw, hosts) {
			t.Errorf("hostAllowed(%q) = true, want false", raw)
		}
	}
}

func TestIsSuspiciousAgent(t *testing.T) {
	suspicious := []string{
		"curl/8.4.0",
		"Wget/1.21",
		"python-requests/2.31",
		"PostmanRuntime/7.36",
		"Googlebot/2.1",
		"my-crawler v2",
	}
	for _, ua := range suspicious {
		if !isSuspiciousAgent(ua) {
			t.Errorf("isSuspiciousAgent(%q) = false, want true", ua)
		}
	}

	legit := []string{
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
		"",
	}
	for _, ua := range legit {
		if isSuspiciousAgent(ua) {
			t.Errorf("isSuspiciousAgent(%q) = true, want false", ua)
		}
	}
}

func TestSanitizeLogValue(t *testing.T) {
	if got := SanitizeLogValue("line1\nline2\rline3"); got != "line1line2line3" {
		t.Errorf("newlines not stripped: %q", got)
	}

	long := strings.Repeat("a", 150)
	if got := SanitizeLogValue(long); len(got) != 100 {
		t.Errorf("len = %d, want 100", len(got))
	}
}

func TestVerifyAPIKey(t *testing.T) {
	svc := &SecurityService{apiKey: "secret-key"}

	if !svc.VerifyAPIKey("secret-key", "1.2.3.4") {
		t.Error("matching key should verify")
	}
	if svc.VerifyAPIKey("wrong-key", "1.2.3.4") {
		t.Error("wrong key should not verify")
	}

	unset := &SecurityService{}
	if unset.VerifyAPIKey("", "1.2.3.4") {
		t.Error("empty configured key should reject everything")
	}
}

func TestGetClientIP(t *testing.T) {
	app := fiber.New()

	var got string
	app.Get("/", func(c *fiber.Ctx) error {
		got = GetClientIP(c)
		return c.SendString("ok")
	})

	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"forwarded first hop", map[string]string{"X-Forwarded-For": "9.9.9.9, 10.0.0.1"}, "9.9.9.9"},
		{"forwarded trims spaces", map[string]string{"X-Forwarded-For": "  9.9.9.9  "}, "9.9.9.9"},
		{"real ip fallback", map[string]string{"X-Real-IP": "8.8.8.8"}, "8.8.8.8"},
		{"forwarded wins over real ip", map[string]string{"X-Forwarded-For": "9.9.9.9", "X-Real-IP": "8.8.8.8"}, "9.9.9.9"},
		{"peer address fallback", nil, "0.0.0.0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			if _, err := app.Test(req); err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if got != tc.want {
				t.Errorf("GetClientIP = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestValidateRequest(t *testing.T) {
	svc := &SecurityService{
		allowedHosts: allowedSet("ezyba.com"),
	}

	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		if err := svc.ValidateRequest(c); err != nil {
			return c.SendStatus(fiber.StatusForbidden)
		}
		return c.SendStatus(fiber.StatusOK)
	})

	cases := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"trusted origin", map[string]string{"Origin": "https://ezyba.com"}, 200},
		{"untrusted origin", map[string]string{"Origin": "https://evil.com"}, 403},
		{"no headers in production", nil, 403},
		{"trusted origin bad referer", map[string]string{
			"Origin": "https://ezyba.com", "Referer": "https://evil.com/x"}, 403},
		{"suspicious agent", map[string]string{
			"Origin": "https://ezyba.com", "User-Agent": "curl/8.4.0"}, 403},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != tc.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}
}

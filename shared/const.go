package shared

const (
	ClientIP  = "client_ip"
	UserAgent = "user_agent"
	RequestID = "request_id"

	SessionKeyHeader = "X-Session-Key"

	EventInvalidOrigin     = "INVALID_ORIGIN"
	EventInvalidReferer    = "INVALID_REFERER"
	EventSuspiciousRequest = "SUSPICIOUS_REQUEST"
	EventRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	EventInvalidAPIKey     = "INVALID_API_KEY"
	EventInvalidSession    = "INVALID_SESSION"

	PaymentTypeOneTime = "one_time"
	PaymentTypeMonthly = "monthly"
	PaymentTypeYearly  = "yearly"

	CurrencyBRL = "brl"
	CurrencyUSD = "usd"
)

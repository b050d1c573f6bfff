package model

import "time"

// Session is one authorized browsing session, keyed by its opaque token.
// Owned exclusively by the session store; nothing else mutates it.
type Session struct {
	Key          string    `json:"key"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	ClientIP     string    `json:"client_ip"`
	UserAgent    string    `json:"user_agent"`
	RequestCount int       `json:"request_count"`
	MaxRequests  int       `json:"max_requests"`
}

func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

func (s *Session) QuotaExhausted() bool {
	return s.RequestCount >= s.MaxRequests
}

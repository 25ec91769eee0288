package models

import "strings"

// ClearSentinel is the cookie value the tracker emits to clear a session.
// Persisting it as a token permanently breaks the integration, so every
// rotation goes through ValidToken first.
const ClearSentinel = "deleted"

// Credentials holds everything needed to talk to the tracker for one account.
// SessionToken and DonationCookie are the only fields mutated after creation;
// both are rewritten from Set-Cookie rotation via the orchestrator.
type Credentials struct {
	BaseURL        string `json:"base_url"`
	AccountID      string `json:"account_id"`
	SessionToken   string `json:"session_token"`
	DonationCookie string `json:"donation_cookie"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	UpdatedAt      int64  `json:"updated_at"`
}

// HasSession reports whether a session token is present.
func (c *Credentials) HasSession() bool {
	return strings.TrimSpace(c.SessionToken) != ""
}

// HasLogin reports whether a full username/password pair is configured.
// Vault donation requires it; a bare session token is not enough.
func (c *Credentials) HasLogin() bool {
	return strings.TrimSpace(c.Username) != "" && c.Password != ""
}

// ValidToken reports whether a rotated cookie value may replace a stored
// token: syntactically non-empty and not the server's clear sentinel.
func ValidToken(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	return !strings.EqualFold(v, ClearSentinel)
}

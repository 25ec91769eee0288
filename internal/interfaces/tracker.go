package interfaces

import (
	"context"
	"net/url"

	"github.com/ternarybob/seedkeeper/internal/models"
)

// ErrorKind is the coarse error taxonomy surfaced by the tracker client.
// Business-rule skips are not errors and never appear here.
type ErrorKind string

const (
	KindNone               ErrorKind = ""
	KindMissingCredentials ErrorKind = "missing_credentials"
	KindInvalidUserID      ErrorKind = "invalid_user_id"
	KindInvalidUsername    ErrorKind = "invalid_username"
	KindCannotConnect      ErrorKind = "cannot_connect"
	KindInvalidAuth        ErrorKind = "invalid_auth"
)

// ActionRequest describes one authenticated request against the tracker.
type ActionRequest struct {
	// Path relative to the base URL, may carry query parameters.
	Path string

	// Method is "GET" or "POST". GET succeeds on 200; POST on 200/201/204.
	Method string

	// CookieName is the credential cookie to send and to scan for in the
	// response (the donation endpoint rotates a different cookie than the
	// session one).
	CookieName string

	// Token is the current value of that cookie.
	Token string

	// Form, when set, is sent as application/x-www-form-urlencoded.
	Form url.Values

	// JSONBody, when set (and Form is nil), is sent as a JSON body.
	JSONBody interface{}

	// BrowserHeaders adds the fixed browser-shaped header set plus
	// Origin/Referer; the donation endpoint rejects requests without them.
	BrowserHeaders bool

	// Referer overrides the default Referer when BrowserHeaders is set.
	Referer string
}

// TrackerClient issues authenticated HTTP requests against the tracker site.
// Every method extracts rotated cookies from the response so callers can keep
// tokens fresh; callers must gate rotation through models.ValidToken.
type TrackerClient interface {
	// FetchStats fetches account statistics. Nil stats without an error means
	// the payload indicates a logged-out session. The rotated token is
	// returned regardless of fetch success.
	FetchStats(ctx context.Context, token string) (*models.AccountStats, string, error)

	// Do executes a generic authenticated action. Transport failures are
	// reported as ok=false with no rotated token; errors never propagate.
	Do(ctx context.Context, req ActionRequest) (bool, string)

	// Login performs the two-step login handshake and returns a fresh
	// session cookie value, or an ErrorKind describing the failure.
	Login(ctx context.Context, username, password string) (string, ErrorKind)

	// ValidateCredentials checks base URL, account id, and token by fetching
	// stats; KindNone means the credentials work.
	ValidateCredentials(ctx context.Context, token string) ErrorKind
}

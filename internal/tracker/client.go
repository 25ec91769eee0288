package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/seedkeeper/internal/common"
	"github.com/ternarybob/seedkeeper/internal/interfaces"
	"github.com/ternarybob/seedkeeper/internal/models"
	"golang.org/x/time/rate"
)

const (
	defaultRequestTimeout = 15 * time.Second
	defaultLoginTimeout   = 20 * time.Second
	defaultRateLimit      = 2 // requests per second

	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Client talks to the tracker site over HTTP. Data calls share one client
// with a short timeout; the login handshake uses a separate client that does
// not follow redirects, so rotated cookies on the submit response stay
// visible.
type Client struct {
	baseURL     string
	userID      string
	tracker     common.TrackerConfig
	httpClient  *http.Client
	loginClient *http.Client
	rateLimiter *rate.Limiter
	logger      arbor.ILogger
}

// ClientOption is a function that configures the client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client for data and action calls
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithLoginClient sets a custom HTTP client for the login handshake
func WithLoginClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.loginClient = client
	}
}

// WithLogger sets the logger
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit in requests per second
func WithRateLimit(rps int) ClientOption {
	return func(c *Client) {
		if rps > 0 {
			c.rateLimiter = rate.NewLimiter(rate.Limit(rps), rps)
		}
	}
}

// NewClient creates a tracker client from the account and tracker config
func NewClient(cfg *common.Config, opts ...ClientOption) *Client {
	requestTimeout := cfg.Tracker.ParsedRequestTimeout()
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	loginTimeout := cfg.Tracker.ParsedLoginTimeout()
	if loginTimeout <= 0 {
		loginTimeout = defaultLoginTimeout
	}

	rps := cfg.Tracker.RateLimit
	if rps <= 0 {
		rps = defaultRateLimit
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.Account.BaseURL, "/"),
		userID:  cfg.Account.UserID,
		tracker: cfg.Tracker,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		loginClient: &http.Client{
			Timeout: loginTimeout,
			// The login submit answers with a redirect carrying the rotated
			// cookies; following it would discard them.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		rateLimiter: rate.NewLimiter(rate.Limit(rps), rps),
		logger:      common.GetLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// FetchStats fetches account statistics from the JSON stats endpoint. A nil
// result without an error means the response carried no username, i.e. the
// session is logged out. The rotated session cookie (possibly empty) is
// returned in either case.
func (c *Client) FetchStats(ctx context.Context, token string) (*models.AccountStats, string, error) {
	params := url.Values{}
	params.Set("id", c.userID)
	// Empty-valued flags select the payload shape the site expects.
	params.Set("pretty", "")
	params.Set("notif", "")
	params.Set("clientStats", "")
	params.Set("snatch_summary", "")

	endpoint := c.baseURL + c.tracker.StatsPath + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create stats request: %w", err)
	}
	req.AddCookie(&http.Cookie{Name: c.tracker.SessionCookie, Value: token})

	resp, err := c.execute(ctx, c.httpClient, req)
	if err != nil {
		return nil, "", fmt.Errorf("stats request failed: %w", err)
	}
	defer resp.Body.Close()

	rotated := cookieValue(resp, c.tracker.SessionCookie)

	if resp.StatusCode != http.StatusOK {
		return nil, rotated, fmt.Errorf("stats request returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, rotated, fmt.Errorf("failed to read stats response: %w", err)
	}

	stats, err := models.ParseAccountStats(body)
	if err != nil {
		return nil, rotated, fmt.Errorf("failed to parse stats response: %w", err)
	}

	if stats == nil {
		c.logger.Debug().Msg("Stats response carries no username, session is logged out")
		return nil, rotated, nil
	}

	return stats, rotated, nil
}

// Do executes one authenticated action request. Transport failures yield
// ok=false with an empty rotated token; HTTP failures still surface whatever
// cookie the response rotated.
func (c *Client) Do(ctx context.Context, req interfaces.ActionRequest) (bool, string) {
	endpoint := c.baseURL + req.Path

	var body io.Reader
	contentType := ""
	switch {
	case req.Form != nil:
		body = strings.NewReader(req.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case req.JSONBody != nil:
		data, err := json.Marshal(req.JSONBody)
		if err != nil {
			c.logger.Warn().Err(err).Str("path", req.Path).Msg("Failed to encode request body")
			return false, ""
		}
		body = strings.NewReader(string(data))
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, endpoint, body)
	if err != nil {
		c.logger.Warn().Err(err).Str("path", req.Path).Msg("Failed to create action request")
		return false, ""
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.AddCookie(&http.Cookie{Name: req.CookieName, Value: req.Token})

	if req.BrowserHeaders {
		c.setBrowserHeaders(httpReq, req.Referer)
	}

	resp, err := c.execute(ctx, c.httpClient, httpReq)
	if err != nil {
		c.logger.Warn().Err(err).Str("path", req.Path).Msg("Action request failed")
		return false, ""
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	rotated := cookieValue(resp, req.CookieName)
	ok := statusOK(req.Method, resp.StatusCode)
	if !ok {
		c.logger.Warn().
			Str("path", req.Path).
			Int("status", resp.StatusCode).
			Msg("Action request returned failure status")
	}

	return ok, rotated
}

// Login performs the two-step login handshake: fetch the login page, collect
// the form fields of the form posting to the submit path, then post them with
// the account email and password. Returns the fresh session cookie value.
func (c *Client) Login(ctx context.Context, username, password string) (string, interfaces.ErrorKind) {
	if strings.TrimSpace(username) == "" {
		return "", interfaces.KindInvalidUsername
	}

	pageURL := c.baseURL + c.tracker.LoginPath

	pageReq, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", interfaces.KindCannotConnect
	}
	c.setBrowserHeaders(pageReq, c.baseURL+"/")

	pageResp, err := c.execute(ctx, c.loginClient, pageReq)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Login page request failed")
		return "", interfaces.KindCannotConnect
	}
	defer pageResp.Body.Close()

	if pageResp.StatusCode != http.StatusOK {
		c.logger.Warn().Int("status", pageResp.StatusCode).Msg("Login page returned failure status")
		return "", interfaces.KindCannotConnect
	}

	action, fields, err := c.parseLoginForm(pageResp.Body)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to parse login form")
		return "", interfaces.KindCannotConnect
	}

	fields.Set("email", username)
	fields.Set("password", password)

	submitURL, err := c.resolveURL(action)
	if err != nil {
		c.logger.Warn().Err(err).Str("action", action).Msg("Failed to resolve login submit URL")
		return "", interfaces.KindCannotConnect
	}

	submitReq, err := http.NewRequestWithContext(ctx, http.MethodPost, submitURL, strings.NewReader(fields.Encode()))
	if err != nil {
		return "", interfaces.KindCannotConnect
	}
	submitReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.setBrowserHeaders(submitReq, pageURL)

	submitResp, err := c.execute(ctx, c.loginClient, submitReq)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Login submit request failed")
		return "", interfaces.KindCannotConnect
	}
	defer submitResp.Body.Close()
	io.Copy(io.Discard, submitResp.Body)

	// A successful login rotates the session cookie; some responses set the
	// donation cookie instead, which works as a session token too.
	for _, name := range []string{c.tracker.SessionCookie, c.tracker.DonationCookie} {
		if token := cookieValue(submitResp, name); models.ValidToken(token) {
			c.logger.Debug().Str("cookie", name).Msg("Login succeeded")
			return token, interfaces.KindNone
		}
	}

	c.logger.Warn().Int("status", submitResp.StatusCode).Msg("Login response carried no usable session cookie")
	return "", interfaces.KindInvalidAuth
}

// ValidateCredentials checks that the configured account id and the given
// token actually work by fetching stats once.
func (c *Client) ValidateCredentials(ctx context.Context, token string) interfaces.ErrorKind {
	if strings.TrimSpace(c.userID) == "" {
		return interfaces.KindInvalidUserID
	}
	if !models.ValidToken(token) {
		return interfaces.KindMissingCredentials
	}

	stats, _, err := c.FetchStats(ctx, token)
	if err != nil {
		return interfaces.KindCannotConnect
	}
	if stats == nil {
		return interfaces.KindInvalidAuth
	}
	return interfaces.KindNone
}

// execute waits for the rate limiter and performs the request
func (c *Client) execute(ctx context.Context, client *http.Client, req *http.Request) (*http.Response, error) {
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}
	return client.Do(req)
}

// parseLoginForm finds the form posting to the login submit path and collects
// its pre-filled input fields (hidden tokens included).
func (c *Client) parseLoginForm(body io.Reader) (string, url.Values, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", nil, fmt.Errorf("failed to parse login page: %w", err)
	}

	submitMarker := strings.TrimPrefix(c.tracker.LoginSubmitPath, "/")

	var action string
	fields := url.Values{}
	found := false

	doc.Find("form").EachWithBreak(func(_ int, form *goquery.Selection) bool {
		a, ok := form.Attr("action")
		if !ok || !strings.Contains(a, submitMarker) {
			return true
		}
		action = a
		found = true
		form.Find("input").Each(func(_ int, input *goquery.Selection) {
			name, ok := input.Attr("name")
			if !ok || name == "" {
				return
			}
			value := input.AttrOr("value", "")
			fields.Set(name, value)
		})
		return false
	})

	if !found {
		return "", nil, fmt.Errorf("login page has no form posting to %s", c.tracker.LoginSubmitPath)
	}

	return action, fields, nil
}

// resolveURL resolves a possibly relative form action against the base URL
func (c *Client) resolveURL(action string) (string, error) {
	base, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(action)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

// setBrowserHeaders adds the browser-shaped header set the site expects on
// form endpoints
func (c *Client) setBrowserHeaders(req *http.Request, referer string) {
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Origin", c.baseURL)
	if referer == "" {
		referer = c.baseURL + "/"
	}
	req.Header.Set("Referer", referer)
}

// statusOK applies the per-method success codes: GET succeeds only on 200,
// POST on 200, 201, or 204.
func statusOK(method string, status int) bool {
	if method == http.MethodPost {
		return status == http.StatusOK || status == http.StatusCreated || status == http.StatusNoContent
	}
	return status == http.StatusOK
}

// cookieValue scans every Set-Cookie header on the response for the named
// cookie and returns its raw value, empty when absent.
func cookieValue(resp *http.Response, name string) string {
	for _, ck := range resp.Cookies() {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

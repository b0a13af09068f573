// Package client is the Go SDK of the fintrack REST API. AuthRepository
// makes it a session source for authstate.Manager.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-fintrack/authstate"
	"github.com/goliatone/go-fintrack/logging"
	"github.com/goliatone/go-fintrack/pagination"
	"github.com/goliatone/go-fintrack/report"
	"github.com/goliatone/go-fintrack/transaction"
)

const apiPrefix = "/api/v1"

// APIError is a non 2xx reply of the API.
type APIError struct {
	Status  int
	Message string
	Path    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("fintrack api: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("fintrack api: %d %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// AuthResponse is returned by the sign-in endpoints.
type AuthResponse struct {
	Token     string           `json:"token"`
	User      authstate.Record `json:"user"`
	IsNewUser bool             `json:"isNewUser,omitempty"`
}

// SocialRedirect starts an OAuth flow.
type SocialRedirect struct {
	URL      string `json:"url"`
	State    string `json:"state"`
	Provider string `json:"provider"`
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client makes REST calls to a fintrack server.
type Client struct {
	baseURL string
	http    *http.Client
	logger  logging.Logger

	mu    sync.RWMutex
	token string
}

// New creates a client for baseURL, e.g. "http://127.0.0.1:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  logging.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// SetToken sets the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Register creates a password account.
func (c *Client) Register(ctx context.Context, displayName, email, password string) (*AuthResponse, error) {
	body := map[string]string{"displayName": displayName, "email": email, "password": password}
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	body := map[string]string{"email": email, "password": password}
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes the current token.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
}

// Me returns the user behind the current token.
func (c *Client) Me(ctx context.Context) (authstate.Record, error) {
	return c.MeWithToken(ctx, c.Token())
}

// MeWithToken checks token against the API without adopting it.
func (c *Client) MeWithToken(ctx context.Context, token string) (authstate.Record, error) {
	var out authstate.Record
	err := c.send(ctx, token, http.MethodGet, "/auth/me", nil, nil, &out)
	return out, err
}

// SocialProviders lists the configured OAuth providers.
func (c *Client) SocialProviders(ctx context.Context) ([]string, error) {
	var out struct {
		Providers []string `json:"providers"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/social/providers", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Providers, nil
}

// BeginSocial starts an OAuth flow with provider.
func (c *Client) BeginSocial(ctx context.Context, provider string) (*SocialRedirect, error) {
	var out SocialRedirect
	if err := c.do(ctx, http.MethodGet, "/auth/social/"+url.PathEscape(provider), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CompleteSocial finishes an OAuth flow.
func (c *Client) CompleteSocial(ctx context.Context, provider, code, state string) (*AuthResponse, error) {
	query := url.Values{"code": {code}, "state": {state}}
	var out AuthResponse
	if err := c.do(ctx, http.MethodGet, "/auth/social/"+url.PathEscape(provider)+"/callback", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTransaction stores a transaction for the signed in user.
func (c *Client) CreateTransaction(ctx context.Context, req transaction.Request) (*transaction.Transaction, error) {
	var out transaction.Transaction
	if err := c.do(ctx, http.MethodPost, "/transactions", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTransaction replaces a transaction.
func (c *Client) UpdateTransaction(ctx context.Context, id int64, req transaction.Request) (*transaction.Transaction, error) {
	var out transaction.Transaction
	if err := c.do(ctx, http.MethodPut, "/transactions/"+strconv.FormatInt(id, 10), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTransaction loads a transaction.
func (c *Client) GetTransaction(ctx context.Context, id int64) (*transaction.Transaction, error) {
	var out transaction.Transaction
	if err := c.do(ctx, http.MethodGet, "/transactions/"+strconv.FormatInt(id, 10), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTransactions pages through transactions, optionally in one period.
func (c *Client) ListTransactions(ctx context.Context, period string, page pagination.Request) (pagination.Page[transaction.Transaction], error) {
	query := pageQuery(page)
	if period != "" {
		query.Set("period", period)
	}
	var out pagination.Page[transaction.Transaction]
	err := c.do(ctx, http.MethodGet, "/transactions", query, nil, &out)
	return out, err
}

// Report loads the report of period.
func (c *Client) Report(ctx context.Context, userID, period string) (*report.Report, error) {
	var out report.Report
	if err := c.do(ctx, http.MethodGet, reportPath(userID, ""), url.Values{"period": {period}}, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reports pages through reports, latest first.
func (c *Client) Reports(ctx context.Context, userID string, page pagination.Request) (pagination.Page[report.Report], error) {
	var out pagination.Page[report.Report]
	err := c.do(ctx, http.MethodGet, reportPath(userID, "/all"), pageQuery(page), nil, &out)
	return out, err
}

// Summary aggregates the reports from start to end.
func (c *Client) Summary(ctx context.Context, userID, start, end string) (*report.Summary, error) {
	query := url.Values{"startPeriod": {start}, "endPeriod": {end}}
	var out report.Summary
	if err := c.do(ctx, http.MethodGet, reportPath(userID, "/summary"), query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteReport removes the report of period.
func (c *Client) DeleteReport(ctx context.Context, userID, period string) error {
	return c.do(ctx, http.MethodDelete, reportPath(userID, ""), url.Values{"period": {period}}, nil, nil)
}

// RecalculateReport rebuilds the report of period from transactions.
func (c *Client) RecalculateReport(ctx context.Context, userID, period string) (*report.Report, error) {
	var out report.Report
	if err := c.do(ctx, http.MethodPost, reportPath(userID, "/recalculate"), url.Values{"period": {period}}, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func reportPath(userID, suffix string) string {
	return "/reports/" + url.PathEscape(userID) + suffix
}

func pageQuery(page pagination.Request) url.Values {
	page = page.Normalize()
	return url.Values{
		"page": {strconv.Itoa(page.Page)},
		"size": {strconv.Itoa(page.Size)},
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	return c.send(ctx, c.Token(), method, path, query, body, out)
}

func (c *Client) send(ctx context.Context, token, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + apiPrefix + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Message string `json:"message"`
		Path    string `json:"path"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		apiErr.Message = body.Message
		apiErr.Path = body.Path
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}

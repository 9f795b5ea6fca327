// Package client is a typed Go client for the reelprompt HTTP API, plus the
// per-user session state a front end keeps around it.
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
	"time"

	"github.com/reelprompt/reelprompt/internal/handler/dto"
)

// DefaultTimeout bounds each non-streaming request.
const DefaultTimeout = 30 * time.Second

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 4 << 10

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("reelprompt: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("reelprompt: %d: %s", e.Status, e.Message)
}

// IsInsufficientCredits reports whether err means the caller must top up.
func IsInsufficientCredits(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusPaymentRequired ||
		apiErr.Code == "INSUFFICIENT_CREDITS" ||
		apiErr.Message == "Insufficient credits"
}

// IsUnauthenticated reports whether err means the session is missing or expired.
func IsUnauthenticated(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// Client calls the reelprompt API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	stream     *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends token as the bearer session.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the client used for regular requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	// Streams stay open indefinitely, so they must not inherit a timeout.
	stream := *c.httpClient
	stream.Timeout = 0
	c.stream = &stream
	return c
}

// Initialize reconciles the caller's account and returns the profile.
func (c *Client) Initialize(ctx context.Context) (*dto.ProfileResponse, error) {
	var out dto.ProfileResponse
	if err := c.do(ctx, http.MethodPost, "/api/user/initialize", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile returns the caller's balance and admin flag.
func (c *Client) Profile(ctx context.Context) (*dto.ProfileResponse, error) {
	var out dto.ProfileResponse
	if err := c.do(ctx, http.MethodGet, "/api/user/profile", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ledger returns up to limit recent balance changes.
func (c *Client) Ledger(ctx context.Context, limit int) (*dto.LedgerResponse, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out dto.LedgerResponse
	if err := c.do(ctx, http.MethodGet, "/api/user/ledger", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Enhance turns a short idea into a structured prompt.
func (c *Client) Enhance(ctx context.Context, req dto.EnhanceRequest) (*dto.EnhanceResponse, error) {
	var out dto.EnhanceResponse
	if err := c.do(ctx, http.MethodPost, "/api/enhance-prompt", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPrompts returns the catalog filtered by category and search text.
func (c *Client) ListPrompts(ctx context.Context, category, query string) (*dto.PromptListResponse, error) {
	q := url.Values{}
	if category != "" {
		q.Set("category", category)
	}
	if query != "" {
		q.Set("q", query)
	}
	var out dto.PromptListResponse
	if err := c.do(ctx, http.MethodGet, "/api/prompts", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPrompt returns one catalog prompt.
func (c *Client) GetPrompt(ctx context.Context, id string) (*dto.PromptResponse, error) {
	var out dto.PromptResponse
	if err := c.do(ctx, http.MethodGet, "/api/prompt", url.Values{"id": {id}}, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckOwnership reports whether the caller owns promptID.
func (c *Client) CheckOwnership(ctx context.Context, promptID string) (bool, error) {
	var out dto.OwnershipResponse
	err := c.do(ctx, http.MethodGet, "/api/purchases/check", url.Values{"promptId": {promptID}}, nil, &out)
	return out.Owned, err
}

// Purchase buys promptID for one credit.
func (c *Client) Purchase(ctx context.Context, promptID string) (*dto.PurchaseResponse, error) {
	var out dto.PurchaseResponse
	if err := c.do(ctx, http.MethodPost, "/api/prompts/purchase", nil, dto.PurchaseRequest{PromptID: promptID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DownloadLink returns a fresh signed link for an owned prompt.
func (c *Client) DownloadLink(ctx context.Context, promptID string) (string, error) {
	var out dto.DownloadLinkResponse
	err := c.do(ctx, http.MethodGet, "/api/prompts/download-link", url.Values{"promptId": {promptID}}, nil, &out)
	return out.URL, err
}

// Library lists the caller's purchases.
func (c *Client) Library(ctx context.Context) (*dto.LibraryResponse, error) {
	var out dto.LibraryResponse
	if err := c.do(ctx, http.MethodGet, "/api/purchases", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Packs lists the credit packs on sale.
func (c *Client) Packs(ctx context.Context) (*dto.PackListResponse, error) {
	var out dto.PackListResponse
	if err := c.do(ctx, http.MethodGet, "/api/billing/packs", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Checkout starts a payment for pack and returns the hosted checkout URL.
func (c *Client) Checkout(ctx context.Context, pack string) (string, error) {
	var out dto.CheckoutResponse
	err := c.do(ctx, http.MethodPost, "/api/billing/checkout", nil, dto.CheckoutRequest{Pack: pack}, &out)
	return out.URL, err
}

// do sends one JSON request and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	req, err := c.newRequest(ctx, method, path, query, in)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		// Drain body to allow connection reuse
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, in any) (*http.Request, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body dto.ErrorResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		apiErr.Code = body.Code
		apiErr.Message = body.Error
	} else {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

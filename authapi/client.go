package authapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const (
	LoginPath   = "/api/accounts/token/"
	RefreshPath = "/api/accounts/token/refresh/"

	defaultTimeout = 10 * time.Second
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	Email   string `json:"email,omitempty"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access string `json:"access"`
}

// Client is a goSession.Authenticator backed by fasthttp.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *fasthttp.Client
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each request. The context deadline applies when it is sooner.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithDial replaces the dialer, e.g. with an in-memory listener.
func WithDial(dial fasthttp.DialFunc) Option {
	return func(c *Client) {
		c.http.Dial = dial
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a Client for the backend at baseURL, e.g. "http://localhost:9191".
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("authapi: base url %q must start with http:// or https://", baseURL)
	}

	c := &Client{
		baseURL: baseURL,
		timeout: defaultTimeout,
		http: &fasthttp.Client{
			Name:                     "gosession",
			NoDefaultUserAgentHeader: true,
			MaxIdleConnDuration:      30 * time.Second,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, username, password string) (goSession.TokenPair, error) {
	var out loginResponse
	err := c.post(ctx, LoginPath, loginRequest{Username: username, Password: password}, &out, goSession.ErrInvalidCredentials)
	if err != nil {
		return goSession.TokenPair{}, err
	}
	if out.Access == "" {
		return goSession.TokenPair{}, fmt.Errorf("%w: login response without access token", goSession.ErrAuthUnavailable)
	}
	return goSession.TokenPair{Access: out.Access, Refresh: out.Refresh, Email: out.Email}, nil
}

// Refresh exchanges a refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (string, error) {
	var out refreshResponse
	if err := c.post(ctx, RefreshPath, refreshRequest{Refresh: refreshToken}, &out, goSession.ErrTokenRejected); err != nil {
		return "", err
	}
	if out.Access == "" {
		return "", fmt.Errorf("%w: refresh response without access token", goSession.ErrAuthUnavailable)
	}
	return out.Access, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any, rejected error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", goSession.ErrAuthUnavailable, err)
	}

	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	req.SetBodyRaw(body)

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	start := time.Now()
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		c.logger.Warn("auth request failed", zap.String("path", path), zap.Error(err))
		if errors.Is(err, fasthttp.ErrTimeout) {
			return fmt.Errorf("%w: %s timed out", goSession.ErrAuthUnavailable, path)
		}
		return fmt.Errorf("%w: %v", goSession.ErrAuthUnavailable, err)
	}

	status := resp.StatusCode()
	c.logger.Debug("auth request", zap.String("path", path), zap.Int("status", status), zap.Duration("took", time.Since(start)))

	switch {
	case status >= 200 && status < 300:
	case status == fasthttp.StatusBadRequest, status == fasthttp.StatusUnauthorized, status == fasthttp.StatusForbidden:
		return fmt.Errorf("%w: status %d", rejected, status)
	default:
		return fmt.Errorf("%w: status %d", goSession.ErrAuthUnavailable, status)
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%w: decode response: %v", goSession.ErrAuthUnavailable, err)
	}
	return nil
}

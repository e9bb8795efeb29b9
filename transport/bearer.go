package transport

import (
	"context"
	"errors"
	"net/http"
)

// ErrNoSession is returned when no usable access token is available. The caller
// should treat it as a logout and ask for credentials.
var ErrNoSession = errors.New("transport: no authenticated session")

// TokenSource hands out usable access tokens.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, bool)
}

// Bearer is an http.RoundTripper that sets "Authorization: Bearer <token>".
type Bearer struct {
	Source TokenSource
	// Base performs the request. Defaults to http.DefaultTransport.
	Base http.RoundTripper
}

// NewClient returns an http.Client whose transport is a Bearer over base.
func NewClient(src TokenSource, base http.RoundTripper) *http.Client {
	return &http.Client{Transport: &Bearer{Source: src, Base: base}}
}

func (b *Bearer) RoundTrip(req *http.Request) (*http.Response, error) {
	if b.Source == nil {
		closeBody(req)
		return nil, ErrNoSession
	}

	tok, ok := b.Source.AccessToken(req.Context())
	if !ok || tok == "" {
		closeBody(req)
		return nil, ErrNoSession
	}

	// RoundTrippers must not modify the caller's request.
	out := req.Clone(req.Context())
	out.Header.Set("Authorization", "Bearer "+tok)

	return b.base().RoundTrip(out)
}

func (b *Bearer) base() http.RoundTripper {
	if b.Base != nil {
		return b.Base
	}
	return http.DefaultTransport
}

func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) <= len(bearer) || value[:len(bearer)] != bearer {
		return "", false
	}
	return value[len(bearer):], true
}

package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

type staticSource struct {
	token string
	calls atomic.Int32
}

func (s *staticSource) AccessToken(context.Context) (string, bool) {
	s.calls.Add(1)
	return s.token, s.token != ""
}

func TestBearerSetsAuthorization(t *testing.T) {
	var seen atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.Store(r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	src := &staticSource{token: "abc.def.ghi"}
	client := NewClient(src, srv.Client().Transport)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/channels/", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()

	if got := seen.Load(); got != "Bearer abc.def.ghi" {
		t.Fatalf("unexpected authorization header %v", got)
	}
	if req.Header.Get("Authorization") != "" {
		t.Fatalf("caller request was modified")
	}
	tok, ok := BearerToken(seen.Load().(string))
	if !ok || tok != "abc.def.ghi" {
		t.Fatalf("BearerToken round trip failed: %q", tok)
	}
}

func TestBearerWithoutSessionDoesNotSend(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	client := NewClient(&staticSource{}, srv.Client().Transport)
	_, err := client.Get(srv.URL)
	if !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if hits.Load() != 0 {
		t.Fatalf("request reached the server without a token")
	}
}

func TestBearerTokenRejectsOtherSchemes(t *testing.T) {
	for _, v := range []string{"", "Bearer ", "Basic abc", "bearer abc"} {
		if _, ok := BearerToken(v); ok {
			t.Fatalf("%q should not parse as a bearer token", v)
		}
	}
}

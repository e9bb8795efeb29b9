package token

import (
	"encoding/base64"
	"errors"
	"strconv"
	"testing"
	"time"
)

func rawToken(payload string) string {
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`)) + "." +
		enc.EncodeToString([]byte(payload)) + ".c2ln"
}

func TestDecodeExpirationReturnsExpClaim(t *testing.T) {
	for _, exp := range []int64{0, 1, 1700000000, 4102444800} {
		tok := rawToken(`{"exp":` + strconv.FormatInt(exp, 10) + `}`)
		got, err := DecodeExpiration(tok)
		if err != nil {
			t.Fatalf("exp %d: unexpected error: %v", exp, err)
		}
		if got.Unix() != exp {
			t.Fatalf("exp %d: got %d", exp, got.Unix())
		}
	}
}

func TestDecodeExpirationIgnoresHeaderAndSignature(t *testing.T) {
	enc := base64.RawURLEncoding
	tok := "garbage." + enc.EncodeToString([]byte(`{"exp":1700000000,"token_type":"access"}`)) + "."
	got, err := DecodeExpiration(tok)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Unix() != 1700000000 {
		t.Fatalf("got %d", got.Unix())
	}
}

func TestDecodeExpirationAcceptsPaddedPayload(t *testing.T) {
	payload := base64.URLEncoding.EncodeToString([]byte(`{"exp":1700000000}`))
	got, err := DecodeExpiration("h." + payload + ".s")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Unix() != 1700000000 {
		t.Fatalf("got %d", got.Unix())
	}
}

func TestDecodeExpirationMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"one segment":    "abc",
		"two segments":   "abc.def",
		"four segments":  "a.b.c.d",
		"bad base64":     "h.!!!.s",
		"not json":       "h." + base64.RawURLEncoding.EncodeToString([]byte("not-json")) + ".s",
		"json array":     "h." + base64.RawURLEncoding.EncodeToString([]byte(`[1,2]`)) + ".s",
		"missing exp":    rawToken(`{"sub":"alice"}`),
		"string exp":     rawToken(`{"exp":"soon"}`),
		"null payload":   rawToken(`null`),
		"empty segments": "..",
	}
	for name, tok := range cases {
		_, err := DecodeExpiration(tok)
		if !errors.Is(err, ErrMalformedToken) {
			t.Fatalf("%s: expected ErrMalformedToken, got %v", name, err)
		}
	}
}

func TestIsExpiredAbsentAlwaysExpired(t *testing.T) {
	for _, now := range []time.Time{{}, time.Unix(0, 0), time.Now(), time.Now().Add(-100 * 365 * 24 * time.Hour)} {
		if !IsExpired(time.Time{}, now) {
			t.Fatalf("absent expiration must be expired at %v", now)
		}
	}
}

func TestIsExpiredBoundary(t *testing.T) {
	exp := time.Unix(1700000000, 0)

	if IsExpired(exp, exp.Add(-time.Nanosecond)) {
		t.Fatal("token must be usable before exp")
	}
	if !IsExpired(exp, exp) {
		t.Fatal("now == exp must be expired")
	}
	if !IsExpired(exp, exp.Add(time.Second)) {
		t.Fatal("token must be expired after exp")
	}
}

func TestUsable(t *testing.T) {
	now := time.Unix(1700000000, 0)
	fresh := rawToken(`{"exp":1700003600}`)
	stale := rawToken(`{"exp":1699999999}`)

	if exp, ok := Usable(fresh, now); !ok || exp.Unix() != 1700003600 {
		t.Fatalf("expected fresh token usable, got %v %v", exp, ok)
	}
	if _, ok := Usable(stale, now); ok {
		t.Fatal("expected stale token unusable")
	}
	if _, ok := Usable("bogus", now); ok {
		t.Fatal("expected malformed token unusable")
	}
}

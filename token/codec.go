package token

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedToken is returned when a token cannot be decoded into an expiration.
var ErrMalformedToken = errors.New("malformed token")

// Only the segment decoder of the parser is used; header and signature are never read.
var parser = jwt.NewParser(jwt.WithPaddingAllowed())

// DecodeExpiration returns the expiration instant carried in the exp claim of tok.
//
// The token must be three dot-separated base64url segments whose middle segment is
// a JSON object with a numeric exp (seconds since epoch). The signature is not
// checked. Every failure wraps [ErrMalformedToken].
func DecodeExpiration(tok string) (time.Time, error) {
	if tok == "" {
		return time.Time{}, fmt.Errorf("%w: empty token", ErrMalformedToken)
	}
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("%w: expected 3 segments, got %d", ErrMalformedToken, len(parts))
	}

	payload, err := parser.DecodeSegment(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: payload encoding: %v", ErrMalformedToken, err)
	}

	claims := jwt.MapClaims{}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: payload json: %v", ErrMalformedToken, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if exp == nil {
		return time.Time{}, fmt.Errorf("%w: missing exp claim", ErrMalformedToken)
	}

	return exp.Time, nil
}

// IsExpired reports whether a token expiring at exp is unusable at now.
//
// A zero exp means the expiration is unknown and is always expired. The boundary
// now == exp is expired.
func IsExpired(exp, now time.Time) bool {
	if exp.IsZero() {
		return true
	}
	return !now.Before(exp)
}

// Usable decodes tok and reports whether it is still usable at now.
func Usable(tok string, now time.Time) (time.Time, bool) {
	exp, err := DecodeExpiration(tok)
	if err != nil {
		return time.Time{}, false
	}
	return exp, !IsExpired(exp, now)
}

package flows

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/goSession/storage"
)

// PersistTokens writes the access token, its expiration and, when non-empty, the
// refresh token. Every write is attempted; failures are joined.
func PersistTokens(ctx context.Context, st storage.Storage, access, refresh string, exp time.Time) error {
	var errs []error
	if err := st.Set(ctx, storage.KeyAccessToken, access); err != nil {
		errs = append(errs, fmt.Errorf("persist %s: %w", storage.KeyAccessToken, err))
	}
	if refresh != "" {
		if err := st.Set(ctx, storage.KeyRefreshToken, refresh); err != nil {
			errs = append(errs, fmt.Errorf("persist %s: %w", storage.KeyRefreshToken, err))
		}
	}
	if err := st.Set(ctx, storage.KeyTokenExpiration, FormatExpiration(exp)); err != nil {
		errs = append(errs, fmt.Errorf("persist %s: %w", storage.KeyTokenExpiration, err))
	}
	return errors.Join(errs...)
}

// ClearTokens removes every session key.
func ClearTokens(ctx context.Context, st storage.Storage) error {
	return st.Remove(ctx, storage.SessionKeys...)
}

// FormatExpiration renders exp as unix seconds, the format stored under
// storage.KeyTokenExpiration.
func FormatExpiration(exp time.Time) string {
	if exp.IsZero() {
		return ""
	}
	return strconv.FormatInt(exp.Unix(), 10)
}

// ParseExpiration is the inverse of FormatExpiration. Unparseable input yields the
// zero time, which the expiration policy treats as expired.
func ParseExpiration(v string) time.Time {
	sec, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}

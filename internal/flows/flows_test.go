package flows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/storage"
	"github.com/MrEthical07/goSession/token"
)

var flowNow = time.Unix(1700000000, 0)

func loginDeps(pair LoginPair, err error) LoginDeps {
	return LoginDeps{
		Authenticate: func(context.Context, string, string) (LoginPair, error) {
			return pair, err
		},
		DecodeExpiration: func(s string) (time.Time, error) {
			switch s {
			case "fresh":
				return flowNow.Add(time.Hour), nil
			case "stale":
				return flowNow.Add(-time.Second), nil
			}
			return time.Time{}, token.ErrMalformedToken
		},
		IsExpired: token.IsExpired,
		Now:       func() time.Time { return flowNow },
	}
}

func TestRunLoginSuccess(t *testing.T) {
	res := RunLogin(context.Background(), " alice ", "pw", loginDeps(LoginPair{Access: "fresh", Refresh: "r", Email: "a@x"}, nil))
	if res.Failure != LoginFailureNone {
		t.Fatalf("unexpected failure %v: %v", res.Failure, res.Err)
	}
	if res.Username != "alice" || res.Email != "a@x" || !res.Expiration.Equal(flowNow.Add(time.Hour)) {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestRunLoginFailures(t *testing.T) {
	backendErr := errors.New("401")
	cases := []struct {
		name     string
		user, pw string
		pair     LoginPair
		err      error
		want     LoginFailureKind
	}{
		{"empty user", "", "pw", LoginPair{}, nil, LoginFailureInput},
		{"empty password", "alice", "", LoginPair{}, nil, LoginFailureInput},
		{"backend", "alice", "pw", LoginPair{}, backendErr, LoginFailureBackend},
		{"malformed", "alice", "pw", LoginPair{Access: "junk", Refresh: "r"}, nil, LoginFailureMalformedToken},
		{"expired", "alice", "pw", LoginPair{Access: "stale", Refresh: "r"}, nil, LoginFailureExpiredToken},
		{"no refresh", "alice", "pw", LoginPair{Access: "fresh"}, nil, LoginFailureMissingRefresh},
	}
	for _, tc := range cases {
		res := RunLogin(context.Background(), tc.user, tc.pw, loginDeps(tc.pair, tc.err))
		if res.Failure != tc.want {
			t.Fatalf("%s: expected failure %v, got %v", tc.name, tc.want, res.Failure)
		}
		if res.Err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func hydrateDeps(st storage.Storage) HydrateDeps {
	return HydrateDeps{
		Storage:          st,
		DecodeExpiration: loginDeps(LoginPair{}, nil).DecodeExpiration,
		IsExpired:        token.IsExpired,
		Now:              func() time.Time { return flowNow },
	}
}

func TestRunHydrateOutcomes(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemory()

	if res := RunHydrate(ctx, hydrateDeps(st)); res.Outcome != HydrateNoToken {
		t.Fatalf("expected HydrateNoToken, got %v", res.Outcome)
	}

	_ = st.Set(ctx, storage.KeyRefreshToken, "stale")
	if res := RunHydrate(ctx, hydrateDeps(st)); res.Outcome != HydrateStale {
		t.Fatalf("expected HydrateStale, got %v", res.Outcome)
	}

	_ = st.Set(ctx, storage.KeyRefreshToken, "fresh")
	if res := RunHydrate(ctx, hydrateDeps(st)); res.Outcome != HydrateRefresh || res.RefreshToken != "fresh" {
		t.Fatalf("expected HydrateRefresh, got %+v", res)
	}

	_ = st.Set(ctx, storage.KeyRefreshToken, "opaque-refresh-token")
	if res := RunHydrate(ctx, hydrateDeps(st)); res.Outcome != HydrateRefresh {
		t.Fatalf("opaque refresh tokens must be left to the backend, got %v", res.Outcome)
	}
}

type failingStorage struct{ storage.Storage }

func (failingStorage) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("disk gone")
}

func TestRunHydrateStorageError(t *testing.T) {
	res := RunHydrate(context.Background(), hydrateDeps(failingStorage{storage.NewMemory()}))
	if res.Outcome != HydrateStorageError || res.Err == nil {
		t.Fatalf("expected storage error, got %+v", res)
	}
}

func TestPersistAndClearTokens(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemory()
	exp := time.Unix(1700003600, 0)

	if err := PersistTokens(ctx, st, "a", "r", exp); err != nil {
		t.Fatalf("persist failed: %v", err)
	}
	if v, _, _ := st.Get(ctx, storage.KeyTokenExpiration); v != "1700003600" {
		t.Fatalf("unexpected stored expiration %q", v)
	}
	if got := ParseExpiration("1700003600"); !got.Equal(exp) {
		t.Fatalf("expected %v, got %v", exp, got)
	}

	// An access-only rotation keeps the stored refresh token.
	if err := PersistTokens(ctx, st, "a2", "", exp.Add(time.Hour)); err != nil {
		t.Fatalf("persist failed: %v", err)
	}
	if v, _, _ := st.Get(ctx, storage.KeyRefreshToken); v != "r" {
		t.Fatalf("refresh token must survive an access rotation, got %q", v)
	}

	if err := ClearTokens(ctx, st); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if st.Len() != 0 {
		t.Fatalf("expected empty storage, got %d keys", st.Len())
	}
}

func TestParseExpirationInvalid(t *testing.T) {
	if got := ParseExpiration("soon"); !got.IsZero() {
		t.Fatalf("expected zero time, got %v", got)
	}
	if FormatExpiration(time.Time{}) != "" {
		t.Fatal("zero expiration must format as empty")
	}
}

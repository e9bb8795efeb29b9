package authapi

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/MrEthical07/goSession/token"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Account is a user known to a Backend.
type Account struct {
	Password string
	Email    string
}

type account struct {
	digest string
	email  string
}

// Backend serves the token endpoints with tokens minted by a token.Issuer.
type Backend struct {
	issuer *token.Issuer
	logger *zap.Logger

	mu       sync.RWMutex
	accounts map[string]account

	logins    atomic.Uint64
	refreshes atomic.Uint64
	rejected  atomic.Uint64
}

func NewBackend(issuer *token.Issuer, logger *zap.Logger) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{
		issuer:   issuer,
		logger:   logger,
		accounts: make(map[string]account),
	}
}

// AddAccount registers or replaces a user. Only a digest of the password is kept.
func (b *Backend) AddAccount(username string, acct Account) error {
	digest, err := hashPassword(acct.Password)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.accounts[username] = account{digest: digest, email: acct.Email}
	b.mu.Unlock()
	return nil
}

// Handler returns the fasthttp handler for the token endpoints.
func (b *Backend) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if !ctx.IsPost() {
			ctx.Error("method not allowed", fasthttp.StatusMethodNotAllowed)
			return
		}
		switch string(ctx.Path()) {
		case LoginPath:
			b.login(ctx)
		case RefreshPath:
			b.refresh(ctx)
		default:
			ctx.Error("not found", fasthttp.StatusNotFound)
		}
	}
}

func (b *Backend) login(ctx *fasthttp.RequestCtx) {
	var req loginRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || req.Username == "" {
		b.reject(ctx, fasthttp.StatusBadRequest, "invalid payload")
		return
	}

	b.mu.RLock()
	acct, ok := b.accounts[req.Username]
	b.mu.RUnlock()
	if !ok {
		b.reject(ctx, fasthttp.StatusUnauthorized, "no active account found with the given credentials")
		return
	}
	match, err := verifyPassword(req.Password, acct.digest)
	if err != nil {
		b.internalError(ctx, err)
		return
	}
	if !match {
		b.reject(ctx, fasthttp.StatusUnauthorized, "no active account found with the given credentials")
		return
	}

	access, err := b.issuer.Issue(token.KindAccess, req.Username, acct.email)
	if err != nil {
		b.internalError(ctx, err)
		return
	}
	refresh, err := b.issuer.Issue(token.KindRefresh, req.Username, acct.email)
	if err != nil {
		b.internalError(ctx, err)
		return
	}

	b.logins.Add(1)
	b.respond(ctx, loginResponse{Access: access, Refresh: refresh, Email: acct.email})
}

func (b *Backend) refresh(ctx *fasthttp.RequestCtx) {
	var req refreshRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || req.Refresh == "" {
		b.reject(ctx, fasthttp.StatusBadRequest, "invalid payload")
		return
	}

	claims, err := b.issuer.Verify(req.Refresh, token.KindRefresh)
	if err != nil {
		b.reject(ctx, fasthttp.StatusUnauthorized, "token is invalid or expired")
		return
	}

	access, err := b.issuer.Issue(token.KindAccess, claims.Username, claims.Email)
	if err != nil {
		b.internalError(ctx, err)
		return
	}

	b.refreshes.Add(1)
	b.respond(ctx, refreshResponse{Access: access})
}

func (b *Backend) respond(ctx *fasthttp.RequestCtx, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		b.internalError(ctx, err)
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBody(body)
}

func (b *Backend) reject(ctx *fasthttp.RequestCtx, status int, detail string) {
	b.rejected.Add(1)
	body, _ := json.Marshal(map[string]string{"detail": detail})
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(body)
}

func (b *Backend) internalError(ctx *fasthttp.RequestCtx, err error) {
	b.logger.Error("token endpoint failed", zap.Error(err))
	ctx.Error("internal error", fasthttp.StatusInternalServerError)
}

// Logins reports successful logins served.
func (b *Backend) Logins() uint64 { return b.logins.Load() }

// Refreshes reports successful refreshes served.
func (b *Backend) Refreshes() uint64 { return b.refreshes.Load() }

// Rejected reports requests answered with a 4xx rejection.
func (b *Backend) Rejected() uint64 { return b.rejected.Load() }

package goSession

import (
	"errors"
	"time"

	"github.com/MrEthical07/goSession/bootstrap"
	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/storage"
	"go.uber.org/zap"
)

// Builder assembles a Manager. A Builder can be used for exactly one Build.
type Builder struct {
	config Config

	auth      Authenticator
	store     storage.Storage
	logger    *zap.Logger
	auditSink AuditSink
	clock     Clock

	settings    Loader
	collections []namedLoader

	built bool
}

type namedLoader struct {
	name   string
	loader Loader
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithAuthenticator sets the backend used for login and refresh. Required.
func (b *Builder) WithAuthenticator(a Authenticator) *Builder {
	b.auth = a
	return b
}

// WithStorage sets durable token storage. Defaults to process memory.
func (b *Builder) WithStorage(s storage.Storage) *Builder {
	b.store = s
	return b
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.logger = l
	return b
}

// WithAuditSink sets the audit sink and enables the dispatcher.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithClock overrides the wall clock used for expiration decisions.
func (b *Builder) WithClock(c Clock) *Builder {
	b.clock = c
	return b
}

// WithSettingsLoader registers the loader that runs before every collection.
func (b *Builder) WithSettingsLoader(l Loader) *Builder {
	b.settings = l
	return b
}

// WithCollection registers a dependent collection loaded after authentication.
func (b *Builder) WithCollection(name string, l Loader) *Builder {
	b.collections = append(b.collections, namedLoader{name: name, loader: l})
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Manager. Build performs no
// I/O; call Manager.Hydrate to restore a stored session.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.auth == nil {
		return nil, errors.New("authenticator required")
	}
	for _, c := range b.collections {
		if c.name == "" || c.loader == nil {
			return nil, errors.New("collections require a name and a loader")
		}
	}

	store := b.store
	if store == nil {
		store = storage.NewMemory()
	}
	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	boot := bootstrap.NewCoordinator(logger.Named("bootstrap"))
	if b.settings != nil {
		boot.SetSettings(b.settings)
	}
	for _, c := range b.collections {
		boot.Add(c.name, c.loader)
	}

	m := &Manager{
		config:    cfg,
		auth:      b.auth,
		store:     store,
		logger:    logger,
		now:       clock,
		bootstrap: boot,
		metrics:   NewMetrics(cfg.Metrics),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
			Logger:     logger.Named("audit"),
		}, b.auditSink),
		observers: make(map[uint64]chan SessionState),
	}
	m.initRefresher()

	b.built = true

	return m, nil
}

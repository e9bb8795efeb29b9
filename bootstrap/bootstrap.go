package bootstrap

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Standard collection names loaded after settings.
const (
	Settings       = "settings"
	Channels       = "channels"
	ChannelGroups  = "channel_groups"
	Playlists      = "playlists"
	EPGSources     = "epg_sources"
	EPGData        = "epg_data"
	Logos          = "logos"
	StreamProfiles = "stream_profiles"
	UserAgents     = "user_agents"
)

// Loader loads one data collection.
type Loader interface {
	LoadAll(ctx context.Context) error
}

// LoaderFunc adapts a function to [Loader].
type LoaderFunc func(ctx context.Context) error

func (f LoaderFunc) LoadAll(ctx context.Context) error { return f(ctx) }

// PartialInitializationError reports one collection that failed to load.
type PartialInitializationError struct {
	Collection string
	Err        error
}

func (e *PartialInitializationError) Error() string {
	return fmt.Sprintf("bootstrap: load %s: %v", e.Collection, e.Err)
}

func (e *PartialInitializationError) Unwrap() error { return e.Err }

// Report summarizes one run.
type Report struct {
	Loaded   []string
	Failures []*PartialInitializationError
	Duration time.Duration
}

// OK reports whether every collection loaded.
func (r Report) OK() bool { return len(r.Failures) == 0 }

// Failed reports whether the named collection failed.
func (r Report) Failed(name string) bool {
	for _, f := range r.Failures {
		if f.Collection == name {
			return true
		}
	}
	return false
}

type namedLoader struct {
	name   string
	loader Loader
}

// Coordinator runs the post-authentication load sequence.
type Coordinator struct {
	settings    Loader
	collections []namedLoader
	logger      *zap.Logger
}

func NewCoordinator(logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{logger: logger}
}

// SetSettings registers the loader that must complete before any collection starts.
func (c *Coordinator) SetSettings(l Loader) *Coordinator {
	c.settings = l
	return c
}

// Add registers a collection loaded concurrently after settings. Registering the
// same name twice replaces the earlier loader.
func (c *Coordinator) Add(name string, l Loader) *Coordinator {
	for i := range c.collections {
		if c.collections[i].name == name {
			c.collections[i].loader = l
			return c
		}
	}
	c.collections = append(c.collections, namedLoader{name: name, loader: l})
	return c
}

// Collections returns the registered collection names in registration order.
func (c *Coordinator) Collections() []string {
	out := make([]string, 0, len(c.collections))
	for _, nl := range c.collections {
		out = append(out, nl.name)
	}
	return out
}

// Run loads settings, then every collection concurrently, and waits for all of them
// to settle. One collection failing never stops its siblings. Collections depend on
// settings: when the settings loader fails, the failure is recorded and no
// collection is loaded.
func (c *Coordinator) Run(ctx context.Context) Report {
	start := time.Now()
	var (
		mu     sync.Mutex
		report Report
	)
	record := func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			report.Failures = append(report.Failures, &PartialInitializationError{Collection: name, Err: err})
			return
		}
		report.Loaded = append(report.Loaded, name)
	}

	if c.settings != nil {
		if err := c.load(ctx, Settings, c.settings); err != nil {
			record(Settings, err)
			report.Duration = time.Since(start)
			c.logger.Warn("settings unavailable, collections skipped",
				zap.Int("skipped", len(c.collections)),
				zap.Duration("duration", report.Duration),
			)
			return report
		}
		record(Settings, nil)
	}

	// A plain errgroup (no WithContext): one failure must not cancel siblings.
	var g errgroup.Group
	for _, nl := range c.collections {
		nl := nl
		g.Go(func() error {
			record(nl.name, c.load(ctx, nl.name, nl.loader))
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = time.Since(start)
	if !report.OK() {
		c.logger.Warn("bootstrap finished with failures",
			zap.Int("failed", len(report.Failures)),
			zap.Int("loaded", len(report.Loaded)),
			zap.Duration("duration", report.Duration),
		)
	} else {
		c.logger.Debug("bootstrap finished", zap.Int("loaded", len(report.Loaded)), zap.Duration("duration", report.Duration))
	}
	return report
}

func (c *Coordinator) load(ctx context.Context, name string, l Loader) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			c.logger.Error("collection load failed", zap.String("collection", name), zap.Error(err))
		}
	}()
	if l == nil {
		return nil
	}
	return l.LoadAll(ctx)
}

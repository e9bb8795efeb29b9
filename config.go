package goSession

import (
	"errors"
	"time"
)

// Config controls Manager behavior. The zero value is not usable; start from
// DefaultConfig.
type Config struct {
	Bootstrap BootstrapConfig
	Observer  ObserverConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
BOOTSTRAP CONFIG
====================================
*/

// BootstrapConfig controls when the dependent data loads run.
type BootstrapConfig struct {
	// RunOnLogin runs the load sequence after every successful Login.
	RunOnLogin bool
	// RunOnHydrate runs the load sequence after a successful Hydrate.
	RunOnHydrate bool
}

/*
====================================
OBSERVER CONFIG
====================================
*/

// ObserverConfig controls Subscribe channels.
type ObserverConfig struct {
	// BufferSize is the per-subscriber channel capacity. Snapshots are dropped for
	// subscribers whose buffer is full.
	BufferSize int
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls in-process counters and the refresh latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration used by New.
func DefaultConfig() Config {
	return Config{
		Bootstrap: BootstrapConfig{
			RunOnLogin:   true,
			RunOnHydrate: true,
		},
		Observer: ObserverConfig{
			BufferSize: 8,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

const maxBufferSize = 1 << 16

// Validate reports configuration errors.
func (c *Config) Validate() error {
	if c.Observer.BufferSize < 0 || c.Observer.BufferSize > maxBufferSize {
		return errors.New("observer buffer size out of range")
	}
	if c.Audit.Enabled && (c.Audit.BufferSize <= 0 || c.Audit.BufferSize > maxBufferSize) {
		return errors.New("audit buffer size out of range")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("latency histograms require metrics to be enabled")
	}
	return nil
}

// Clock returns the current time. Tests replace it to move across expirations.
type Clock func() time.Time

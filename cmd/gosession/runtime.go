package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/authapi"
	"github.com/MrEthical07/goSession/internal/config"
	"github.com/MrEthical07/goSession/logging"
	"github.com/MrEthical07/goSession/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// runtime owns everything a command needs and releases it in reverse order.
type runtime struct {
	cfg     *config.Config
	logger  *zap.Logger
	manager *goSession.Manager
	closers []func() error
}

type runtimeOptions struct {
	envFile   string
	baseURL   string
	bootstrap bool
}

func openRuntime(opts runtimeOptions) (*runtime, error) {
	var files []string
	if opts.envFile != "" {
		files = append(files, opts.envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return nil, err
	}
	if opts.baseURL != "" {
		cfg.Auth.BaseURL = opts.baseURL
	}

	logger, err := logging.New(logging.Config{Level: cfg.Logger.Level, Encoding: cfg.Logger.Encoding})
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, logger: logger}
	rt.closers = append(rt.closers, func() error {
		_ = logger.Sync()
		return nil
	})

	store, err := rt.openStorage()
	if err != nil {
		rt.Close()
		return nil, err
	}

	api, err := authapi.New(cfg.Auth.BaseURL,
		authapi.WithTimeout(cfg.Auth.RequestTimeout),
		authapi.WithLogger(logger.Named("authapi")),
	)
	if err != nil {
		rt.Close()
		return nil, err
	}

	mcfg := goSession.DefaultConfig()
	mcfg.Bootstrap.RunOnLogin = opts.bootstrap
	mcfg.Bootstrap.RunOnHydrate = opts.bootstrap

	b := goSession.New().
		WithConfig(mcfg).
		WithAuthenticator(api).
		WithStorage(store).
		WithLogger(logger.Named("session"))
	var src *lateSource
	if opts.bootstrap {
		src = registerCollections(b, cfg.Auth.BaseURL, cfg.Auth.RequestTimeout, logger.Named("collections"))
	}

	m, err := b.Build()
	if err != nil {
		rt.Close()
		return nil, err
	}
	if src != nil {
		src.bind(m)
	}
	rt.manager = m
	rt.closers = append(rt.closers, func() error {
		m.Close()
		return nil
	})
	return rt, nil
}

func (rt *runtime) openStorage() (storage.Storage, error) {
	switch rt.cfg.Storage.Driver {
	case "memory":
		return storage.NewMemory(), nil
	case "redis":
		opts, err := redis.ParseURL(rt.cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("redis url: %w", err)
		}
		if rt.cfg.Redis.Password != "" {
			opts.Password = rt.cfg.Redis.Password
		}
		if rt.cfg.Redis.DB != 0 {
			opts.DB = rt.cfg.Redis.DB
		}
		client := redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		rt.closers = append(rt.closers, client.Close)
		return storage.NewRedis(client, rt.cfg.Redis.Prefix, rt.cfg.Redis.TTL), nil
	default:
		if err := os.MkdirAll(filepath.Dir(rt.cfg.Storage.Path), 0o700); err != nil {
			return nil, err
		}
		db, err := storage.OpenBolt(rt.cfg.Storage.Path, rt.cfg.Storage.Bucket)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, db.Close)
		return db, nil
	}
}

// Close releases resources in reverse order of acquisition.
func (rt *runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

// restore hydrates the stored session and fails when there is none.
func (rt *runtime) restore(ctx context.Context) error {
	if !rt.manager.Hydrate(ctx) {
		return errors.New("not logged in; run `gosession login`")
	}
	return nil
}

package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/authapi"
	"github.com/MrEthical07/goSession/logging"
	"github.com/MrEthical07/goSession/storage"
	"github.com/MrEthical07/goSession/token"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
	"go.uber.org/zap"
)

func main() {
	var (
		sessions    = flag.Int("sessions", 16, "number of independent session managers")
		concurrency = flag.Int("concurrency", 64, "workers per session calling AccessToken")
		duration    = flag.Duration("duration", 10*time.Second, "how long workers hammer AccessToken")
		accessTTL   = flag.Duration("access-ttl", 2*time.Second, "lifetime of issued access tokens (whole seconds)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "gsl", "storage key prefix")
		logLevel    = flag.String("log-level", "warn", "log level")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *duration <= 0 || *accessTTL < time.Second {
		fmt.Fprintln(os.Stderr, "sessions, concurrency and duration must be > 0; access-ttl must be at least 1s")
		os.Exit(2)
	}

	logger, err := logging.New(logging.Config{Level: *logLevel, Encoding: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	issuer, err := token.NewIssuer(token.IssuerConfig{
		AccessTTL:     *accessTTL,
		RefreshTTL:    *duration + time.Hour,
		SigningMethod: token.MethodHS256,
		PrivateKey:    []byte("gosession-loadtest"),
		Issuer:        "gosession-loadtest",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "issuer: %v\n", err)
		os.Exit(1)
	}
	backend := authapi.NewBackend(issuer, logger.Named("backend"))

	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: backend.Handler()}
	go func() { _ = srv.Serve(ln) }()
	defer ln.Close()

	api, err := authapi.New("http://loadtest.local",
		authapi.WithDial(func(string) (net.Conn, error) { return ln.Dial() }),
		authapi.WithLogger(logger.Named("authapi")),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "auth client: %v\n", err)
		os.Exit(1)
	}

	managers := make([]*goSession.Manager, *sessions)
	fmt.Printf("logging in %d sessions...\n", *sessions)
	startLogin := time.Now()
	for i := range managers {
		user := fmt.Sprintf("user-%d", i)
		if err := backend.AddAccount(user, authapi.Account{Password: "pw-" + user, Email: user + "@loadtest.local"}); err != nil {
			fmt.Fprintf(os.Stderr, "add account: %v\n", err)
			os.Exit(1)
		}

		m, err := goSession.New().
			WithAuthenticator(api).
			WithStorage(storage.NewRedis(client, fmt.Sprintf("%s:%d", *prefix, i), *duration+time.Hour)).
			WithLogger(logger.Named("session")).
			WithLatencyHistograms(true).
			Build()
		if err != nil {
			fmt.Fprintf(os.Stderr, "build manager: %v\n", err)
			os.Exit(1)
		}
		defer m.Close()

		if err := m.Login(ctx, user, "pw-"+user); err != nil {
			fmt.Fprintf(os.Stderr, "login %s: %v\n", user, err)
			os.Exit(1)
		}
		managers[i] = m
	}
	fmt.Printf("logged in in %s\n", time.Since(startLogin).Round(time.Millisecond))

	stats := runTokenPhase(ctx, managers, *concurrency, *duration)

	var flights, shared uint64
	for _, m := range managers {
		flights += m.RefreshFlights()
		shared += m.MetricsSnapshot().Counters[goSession.MetricRefreshShared]
	}
	expiries := uint64(*duration / *accessTTL)

	fmt.Println("---- results ----")
	printStats("access_token", stats)
	fmt.Printf("backend refreshes=%d manager flights=%d shared waits=%d rejected=%d\n",
		backend.Refreshes(), flights, shared, backend.Rejected())
	fmt.Printf("expected at most ~%d refreshes per session (%d total)\n", expiries+1, (expiries+1)*uint64(*sessions))

	if stats.failures > 0 {
		logger.Warn("access token requests failed", zap.Int64("failures", stats.failures))
		os.Exit(1)
	}
}

func runTokenPhase(ctx context.Context, managers []*goSession.Manager, concurrency int, duration time.Duration) phaseStats {
	var (
		wg        sync.WaitGroup
		failures  int64
		latencies []time.Duration
		mu        sync.Mutex
	)

	deadline := time.Now().Add(duration)
	start := time.Now()
	for mi, m := range managers {
		for w := 0; w < concurrency; w++ {
			wg.Add(1)
			go func(m *goSession.Manager, worker int) {
				defer wg.Done()
				r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
				local := make([]time.Duration, 0, 1024)
				for time.Now().Before(deadline) {
					t0 := time.Now()
					_, ok := m.AccessToken(ctx)
					local = append(local, time.Since(t0))
					if !ok {
						atomic.AddInt64(&failures, 1)
					}
					time.Sleep(time.Duration(r.Intn(2000)) * time.Microsecond)
				}
				mu.Lock()
				latencies = append(latencies, local...)
				mu.Unlock()
			}(m, mi*concurrency+w)
		}
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total, failures: failures}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/nwaycache/cache"
	pmet "github.com/IvanBrykalov/nwaycache/metrics/prom"
	"github.com/IvanBrykalov/nwaycache/metrics/zaplog"
)

type benchResult struct {
	ops, reads, writes, hits, misses uint64
	elapsed                          time.Duration
	entries                          int
	stats                            cache.Stats
}

func newBenchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run a synthetic Zipf workload and expose Prometheus metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := a.v
			log := a.log

			reg := prometheus.NewRegistry()
			var metrics cache.Metrics = pmet.New(reg, "nwaycache", "bench", nil)
			if v.GetBool("log-metrics") {
				metrics = zaplog.New(log.Named("metrics"))
			}

			if addr := v.GetString("http"); addr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
				srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
				go func() {
					log.Info("metrics: serving", zap.String("addr", addr))
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Warn("metrics server stopped", zap.Error(err))
					}
				}()
				defer srv.Close()
			}
			if addr := v.GetString("pprof"); addr != "" {
				go func() {
					log.Info("pprof: serving", zap.String("addr", addr))
					log.Warn("pprof server stopped", zap.Error(http.ListenAndServe(addr, nil)))
				}()
			}

			c, err := cache.New(cache.Options[string, string]{
				Strategy: a.cfg.kind(),
				Shards:   a.cfg.Shards,
				Capacity: a.cfg.Capacity,
				Hasher:   hasherFor[string](a.cfg.Hasher),
				Metrics:  metrics,
				Logger:   log,
			})
			if err != nil {
				return err
			}

			res, err := runBench(cmd.Context(), c, benchParams{
				workers:  v.GetInt("workers"),
				duration: v.GetDuration("duration"),
				readPct:  v.GetInt("reads"),
				keys:     v.GetInt("keys"),
				zipfS:    v.GetFloat64("zipf-s"),
				zipfV:    v.GetFloat64("zipf-v"),
				seed:     v.GetInt64("seed"),
				preload:  v.GetInt("preload"),
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			hitRate := 0.0
			if res.reads > 0 {
				hitRate = float64(res.hits) / float64(res.reads) * 100
			}
			fmt.Fprintf(out, "strategy=%s shards=%d cap/shard=%d hasher=%s dur=%v\n",
				c.Strategy(), c.NumShards(), c.Capacity(), a.cfg.Hasher, res.elapsed)
			fmt.Fprintf(out, "ops=%d (%.0f ops/s)  reads=%d  writes=%d\n",
				res.ops, float64(res.ops)/res.elapsed.Seconds(), res.reads, res.writes)
			fmt.Fprintf(out, "hits=%d  misses=%d  hit-rate=%.2f%%  evictions=%d\n",
				res.hits, res.misses, hitRate, res.stats.Evictions)
			fmt.Fprintf(out, "Len()=%d\n", res.entries)
			return nil
		},
	}

	f := cmd.Flags()
	f.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
	f.Duration("duration", 10*time.Second, "benchmark duration")
	f.Int("reads", 80, "read percentage [0..100]")
	f.Int("keys", 1_000_000, "keyspace size")
	f.Float64("zipf-s", 1.1, "Zipf s > 1 (skew)")
	f.Float64("zipf-v", 1.0, "Zipf v >= 1")
	f.Int64("seed", time.Now().UnixNano(), "random seed")
	f.Int("preload", -1, "preload entries (-1 = half the total capacity)")
	f.String("http", ":8080", "serve Prometheus metrics at addr; empty = disabled")
	f.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
	f.Bool("log-metrics", false, "log every metrics signal at debug level instead of exporting to Prometheus")
	return cmd
}

type benchParams struct {
	workers  int
	duration time.Duration
	readPct  int
	keys     int
	zipfS    float64
	zipfV    float64
	seed     int64
	preload  int
}

func (p benchParams) validate() error {
	var errs []error
	if p.keys < 1 {
		errs = append(errs, fmt.Errorf("keys must be >= 1, got %d", p.keys))
	}
	if p.readPct < 0 || p.readPct > 100 {
		errs = append(errs, fmt.Errorf("reads must be in [0,100], got %d", p.readPct))
	}
	if p.zipfS <= 1 || p.zipfV < 1 {
		errs = append(errs, fmt.Errorf("zipf needs s > 1 and v >= 1, got s=%v v=%v", p.zipfS, p.zipfV))
	}
	if p.duration <= 0 {
		errs = append(errs, fmt.Errorf("duration must be > 0, got %v", p.duration))
	}
	return errors.Join(errs...)
}

// runBench preloads c and hammers it with a Zipf-distributed read/write mix
// from p.workers goroutines until p.duration elapses or ctx is done.
func runBench(ctx context.Context, c *cache.Cache[string, string], p benchParams) (benchResult, error) {
	if err := p.validate(); err != nil {
		return benchResult{}, err
	}
	if p.workers <= 0 {
		p.workers = 1
	}

	// ---- Preload to get a realistic hit-rate ----
	pl := p.preload
	if pl < 0 {
		pl = c.NumShards() * c.Capacity() / 2
	}
	for i := 0; i < pl; i++ {
		if err := c.Put("k:"+strconv.Itoa(i), "v"+strconv.Itoa(i)); err != nil {
			return benchResult{}, err
		}
	}

	var reads, writes, hits, misses, total atomic.Uint64
	ctx, cancel := context.WithTimeout(ctx, p.duration)
	defer cancel()

	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	keysMax := uint64(p.keys - 1)
	for w := 0; w < p.workers; w++ {
		g.Go(func() error {
			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			localR := rand.New(rand.NewSource(p.seed + int64(w)*9973))
			localZipf := rand.NewZipf(localR, p.zipfS, p.zipfV, keysMax)
			keyByZipf := func() string {
				return "k:" + strconv.FormatUint(localZipf.Uint64(), 10)
			}

			for ctx.Err() == nil {
				total.Add(1)
				if int(localR.Int31n(100)) < p.readPct {
					reads.Add(1)
					if _, err := c.Get(keyByZipf()); err == nil {
						hits.Add(1)
					} else {
						misses.Add(1)
					}
					continue
				}
				writes.Add(1)
				if err := c.Put(keyByZipf(), "v"+strconv.Itoa(localR.Int())); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return benchResult{}, err
	}

	return benchResult{
		ops:     total.Load(),
		reads:   reads.Load(),
		writes:  writes.Load(),
		hits:    hits.Load(),
		misses:  misses.Load(),
		elapsed: time.Since(start),
		entries: c.Len(),
		stats:   c.Stats(),
	}, nil
}

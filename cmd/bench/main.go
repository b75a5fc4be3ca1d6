// Command bench runs a synthetic workload against a memoized function and
// exposes optional pprof/Prometheus endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/IvanBrykalov/memoize/memoize"
	pmet "github.com/IvanBrykalov/memoize/metrics/prom"
)

func main() {
	// ---- Flags ----
	var (
		maxSize = flag.Int("maxsize", 100_000, "cache capacity in entries (-1 = unbounded)")
		typed   = flag.Bool("typed", false, "separate cache entries per argument type")
		ttl     = flag.Duration("ttl", 0, "per-entry TTL (0 = no expiration)")

		workers  = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")

		keys  = flag.Int("keys", 1_000_000, "keyspace size")
		zipfS = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		zipfV = flag.Float64("zipf_v", 1.0, "Zipf v")
		seed  = flag.Int64("seed", time.Now().UnixNano(), "random seed")
		cost  = flag.Duration("cost", 0, "simulated compute cost per miss")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr")
	)
	flag.Parse()

	// ---- pprof server (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			log.Printf("pprof: serving at %s", *pprofAddr)
			log.Println(http.ListenAndServe(*pprofAddr, nil))
		}()
	}

	// ---- Prometheus metrics (on DefaultServeMux) ----
	metrics := pmet.New(nil, "memoize", "bench", nil)
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Printf("metrics: serving at %s", *metricsAddr)
		log.Println(http.ListenAndServe(*metricsAddr, nil))
	}()

	// ---- Build the wrapper ----
	var executions atomic.Int64
	costVal := *cost
	opts := []memoize.Option{memoize.WithMetrics(metrics)}
	if *maxSize >= 0 {
		opts = append(opts, memoize.WithMaxSize(*maxSize))
	}
	if *typed {
		opts = append(opts, memoize.WithTyped())
	}
	if *ttl > 0 {
		opts = append(opts, memoize.WithTTL(*ttl))
	}
	m, err := memoize.Wrap(func(args ...any) (uint64, error) {
		executions.Add(1)
		if costVal > 0 {
			time.Sleep(costVal)
		}
		return args[0].(uint64) * 2, nil
	}, opts...)
	if err != nil {
		log.Fatal(err)
	}

	// ---- Snapshot flags for goroutines ----
	keysMax := uint64(*keys - 1)
	seedBase := *seed
	zipfSVal := *zipfS
	zipfVVal := *zipfV
	workersN := *workers
	if workersN <= 0 {
		workersN = 1
	}

	// ---- Load generation ----
	var total uint64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(workersN)
	for w := 0; w < workersN; w++ {
		go func(id int) {
			defer wg.Done()

			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			localR := rand.New(rand.NewSource(seedBase + int64(id)*9973))
			localZipf := rand.NewZipf(localR, zipfSVal, zipfVVal, keysMax)

			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				atomic.AddUint64(&total, 1)
				if _, err := m.Call(localZipf.Uint64()); err != nil {
					log.Printf("call: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	// ---- Report ----
	ops := atomic.LoadUint64(&total)
	st := m.Stats()

	hitRate := 0.0
	if st.Hits+st.Misses > 0 {
		hitRate = float64(st.Hits) / float64(st.Hits+st.Misses) * 100
	}

	fmt.Printf("maxsize=%d typed=%v ttl=%v workers=%d keys=%d dur=%v seed=%d\n",
		*maxSize, *typed, *ttl, workersN, *keys, elapsed, seedBase)
	fmt.Printf("ops=%d (%.0f ops/s)  executions=%d\n",
		ops, float64(ops)/elapsed.Seconds(), executions.Load())
	fmt.Printf("hits=%d  misses=%d  hit-rate=%.2f%%  size=%d\n",
		st.Hits, st.Misses, hitRate, st.Size)
}

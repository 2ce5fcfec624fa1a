// Command bench replays a synthetic image-lookup workload against the
// dimension cache and exposes optional pprof/Prometheus endpoints.
//
// Keys follow a Zipf distribution over a URI keyspace. Each lookup goes
// through GetOrLoad, so a miss pays a simulated probe latency and the
// result is stored, the same path imagedims.Resolver takes.
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
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IvanBrykalov/dimcache/cache"
	"github.com/IvanBrykalov/dimcache/imagedims"
	pmet "github.com/IvanBrykalov/dimcache/metrics/prom"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// ---- Flags ----
	var (
		capacity = flag.Int("cap", 10_000, "cache capacity (entries)")

		workers  = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")
		probe    = flag.Duration("probe", 200*time.Microsecond, "simulated measurement latency on a miss")
		failPct  = flag.Int("fail", 0, "percentage of probes that fail [0..100]")

		keys    = flag.Int("keys", 100_000, "keyspace size (distinct images)")
		zipfS   = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		zipfV   = flag.Float64("zipf_v", 1.0, "Zipf v")
		seed    = flag.Int64("seed", time.Now().UnixNano(), "random seed")
		preload = flag.Int("preload", 0, "preload entries (0 = cap/2)")

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
	metrics := pmet.New(nil, "dimcache", "bench", nil)
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Printf("metrics: serving at %s", *metricsAddr)
		log.Println(http.ListenAndServe(*metricsAddr, nil))
	}()

	// ---- Build cache ----
	c, err := cache.New[string, imagedims.Dimensions](cache.Options[string, imagedims.Dimensions]{
		Capacity: *capacity,
		Metrics:  metrics,
	})
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	metrics.SetCapacity(c.Cap())

	// ---- Preload half capacity to get a realistic hit-rate ----
	pl := *preload
	if pl == 0 {
		pl = *capacity / 2
	}
	for i := 0; i < pl; i++ {
		c.Set(uri(uint64(i)), dimsFor(uint64(i)))
	}

	// ---- Snapshot flags for goroutines ----
	keysMax := uint64(*keys - 1)
	seedBase := *seed
	zipfSVal := *zipfS
	zipfVVal := *zipfV
	probeVal := *probe
	failVal := *failPct
	workersN := *workers
	if workersN <= 0 {
		workersN = 1
	}

	// ---- Load generation ----
	var lookups, probes, failures uint64
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

			load := func(ctx context.Context, k string) (imagedims.Dimensions, error) {
				atomic.AddUint64(&probes, 1)
				time.Sleep(probeVal)
				// load runs on the flight's goroutine, not this worker's:
				// use the goroutine-safe global source here, not localR.
				if failVal > 0 && rand.Intn(100) < failVal {
					return imagedims.Dimensions{}, fmt.Errorf("probe %s: simulated failure", k)
				}
				n, _ := strconv.ParseUint(k[len(uriPrefix):len(k)-len(uriSuffix)], 10, 64)
				return dimsFor(n), nil
			}

			for {
				select {
				case <-ctx.Done():
					return
				default:
				}
				atomic.AddUint64(&lookups, 1)
				if _, err := c.GetOrLoad(ctx, uri(localZipf.Uint64()), load); err != nil {
					atomic.AddUint64(&failures, 1)
				}
			}
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	// ---- Report ----
	st := c.Stats()
	fmt.Printf("cap=%d workers=%d keys=%d probe=%v fail=%d%% dur=%v seed=%d\n",
		*capacity, workersN, *keys, probeVal, failVal, elapsed, seedBase)
	fmt.Printf("lookups=%d (%.0f ops/s)  probes=%d  failures=%d\n",
		lookups, float64(lookups)/elapsed.Seconds(), probes, failures)
	fmt.Printf("hits=%d  misses=%d  hit-rate=%.2f%%  evictions=%d\n",
		st.Hits, st.Misses, st.HitRatio()*100, st.Evictions)
	fmt.Printf("Len()=%d\n", c.Len())
}

const (
	uriPrefix = "https://img.example/"
	uriSuffix = ".png"
)

func uri(n uint64) string { return uriPrefix + strconv.FormatUint(n, 10) + uriSuffix }

// dimsFor derives stable fake dimensions from an image number.
func dimsFor(n uint64) imagedims.Dimensions {
	return imagedims.Dimensions{Width: float64(64 + n%1920), Height: float64(64 + n%1080)}
}

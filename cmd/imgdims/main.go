// Command imgdims prints the pixel dimensions of bundled assets and remote
// images, memoizing lookups in an LRU cache. It can expose Prometheus
// metrics and pprof while it runs.
//
// Usage:
//
//	imgdims [flags] SOURCE...
//
// A SOURCE that parses as an integer is an asset id (see -asset);
// anything else is fetched as a URI.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/IvanBrykalov/dimcache/imagedims"
	"github.com/IvanBrykalov/dimcache/imagedims/measure"
	pmet "github.com/IvanBrykalov/dimcache/metrics/prom"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// listFlag collects repeated string flags.
type listFlag []string

func (l *listFlag) String() string     { return strings.Join(*l, ",") }
func (l *listFlag) Set(v string) error { *l = append(*l, v); return nil }

func main() {
	// ---- Flags ----
	var (
		assets  listFlag
		headers listFlag
	)
	var (
		cacheSize = flag.Int("cache", imagedims.DefaultCacheSize, "dimension cache capacity (entries, > 0)")
		assetRoot = flag.String("assets", ".", "directory asset paths are relative to")
		timeout   = flag.Duration("timeout", measure.DefaultTimeout, "per-request timeout for remote probes")
		parallel  = flag.Int("parallel", 4, "max concurrent probes")
		rounds    = flag.Int("rounds", 1, "resolve every source this many times (later rounds hit the cache)")
		noHeaders = flag.Bool("no-headers", false, "probe remote images without the -header values")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", "", "serve Prometheus metrics at addr; empty = disabled")
		linger      = flag.Bool("linger", false, "keep serving -http/-pprof after resolving until interrupted")
	)
	flag.Var(&assets, "asset", "register an asset as ID=PATH (repeatable)")
	flag.Var(&headers, "header", "request header for remote probes as 'Name: value' (repeatable)")
	flag.Parse()

	if err := checkCacheSize(*cacheSize); err != nil {
		fmt.Fprintln(os.Stderr, "imgdims:", err)
		os.Exit(2)
	}
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: imgdims [flags] SOURCE...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- pprof / metrics (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			log.Printf("pprof: serving at %s", *pprofAddr)
			log.Println(http.ListenAndServe(*pprofAddr, nil))
		}()
	}
	var metrics *pmet.Adapter
	if *metricsAddr != "" {
		metrics = pmet.New(nil, "dimcache", "imgdims", nil)
		http.Handle("/metrics", promhttp.Handler())
		go func() {
			log.Printf("metrics: serving at %s", *metricsAddr)
			log.Println(http.ListenAndServe(*metricsAddr, nil))
		}()
	}

	// ---- Measurers ----
	reg := measure.NewAssets(os.DirFS(*assetRoot))
	for _, a := range assets {
		id, path, ok := strings.Cut(a, "=")
		n, err := strconv.Atoi(id)
		if !ok || err != nil {
			log.Fatalf("bad -asset %q: want ID=PATH", a)
		}
		reg.Register(n, path)
	}
	hdr, err := parseHeaders(headers)
	if err != nil {
		log.Fatal(err)
	}

	cfg := imagedims.Config{
		CacheSize: *cacheSize,
		Measurer: measure.Mux{
			Assets: reg,
			Remote: &measure.HTTP{
				Client:        &http.Client{Timeout: *timeout},
				IgnoreHeaders: *noHeaders,
				UserAgent:     "imgdims/1",
			},
		},
		Logger: log.New(os.Stderr, "", log.LstdFlags),
	}
	if metrics != nil {
		cfg.Metrics = metrics
	}
	r, err := imagedims.NewResolver(cfg)
	if err != nil {
		log.Fatal(err)
	}
	if metrics != nil {
		metrics.SetCapacity(r.Cache().Cap())
	}

	// ---- Resolve ----
	sources := make([]imagedims.Source, flag.NArg())
	for i, arg := range flag.Args() {
		sources[i] = parseSource(arg, hdr)
	}

	start := time.Now()
	var failed atomic.Bool
	for round := 1; round <= *rounds; round++ {
		results := make([]string, len(sources))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(*parallel, 1))
		for i, src := range sources {
			g.Go(func() error {
				d, err := r.Resolve(gctx, src)
				if err != nil {
					results[i] = fmt.Sprintf("%s\terror: %v", flag.Arg(i), err)
					failed.Store(true)
					return nil
				}
				results[i] = fmt.Sprintf("%s\t%gx%g", flag.Arg(i), d.Width, d.Height)
				return nil
			})
		}
		_ = g.Wait()
		for _, line := range results {
			fmt.Println(line)
		}
	}

	st := r.Cache().Stats()
	log.Printf("resolved %d source(s) x %d round(s) in %v: hits=%d misses=%d evictions=%d cached=%d/%d",
		len(sources), *rounds, time.Since(start), st.Hits, st.Misses, st.Evictions, r.Cache().Len(), r.Cache().Cap())

	if *linger && (*metricsAddr != "" || *pprofAddr != "") {
		log.Println("lingering; press Ctrl+C to exit")
		<-ctx.Done()
	}
	if failed.Load() {
		os.Exit(1)
	}
}

// checkCacheSize rejects capacities the cache would refuse. Zero is
// rejected too, so it is never mistaken for the resolver's default.
func checkCacheSize(n int) error {
	if n <= 0 {
		return fmt.Errorf("-cache must be > 0, got %d", n)
	}
	return nil
}

// parseSource treats integers as asset ids and everything else as a URI.
func parseSource(arg string, headers map[string]string) imagedims.Source {
	if id, err := strconv.Atoi(arg); err == nil {
		return imagedims.Asset(id)
	}
	src := imagedims.URI(arg)
	if len(headers) > 0 {
		src = src.WithHeaders(headers)
	}
	return src
}

// parseHeaders turns "Name: value" pairs into a map.
func parseHeaders(raw []string) (map[string]string, error) {
	h := make(map[string]string, len(raw))
	for _, kv := range raw {
		k, v, ok := strings.Cut(kv, ":")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("bad -header %q: want 'Name: value'", kv)
		}
		h[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return h, nil
}

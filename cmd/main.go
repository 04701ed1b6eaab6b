package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sync/atomic"
	"text/tabwriter"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	cache "github.com/krisalay/cached-provider"
	promadapter "github.com/krisalay/cached-provider/adapters/prometheus"
	"github.com/krisalay/cached-provider/expiration"
	"github.com/krisalay/cached-provider/observer"
	"github.com/krisalay/cached-provider/types"
)

var (
	configPath  = flag.String("config", "", "optional INI file with a [demo] section")
	metricsAddr = flag.String("metrics", "", "serve Prometheus metrics on this address, e.g. :9090")
	verbose     = flag.Bool("verbose", false, "log every request and event")
)

// ================= SCENARIOS =================

type scenario struct {
	label  string
	warmup bool
	eager  bool
}

var scenarios = []scenario{
	{label: "Lazy Cache"},
	{label: "Lazy Cache with warmup", warmup: true},
	{label: "Eager Cache", eager: true},
	{label: "Eager Cache with warmup", warmup: true, eager: true},
}

// ================= MAIN =================

func main() {
	flag.Parse()
	defer glog.Flush()

	cfg, err := loadSettings(*configPath)
	if err != nil {
		glog.Exitf("reading %s: %v", *configPath, err)
	}

	reg := prometheus.NewRegistry()
	if *metricsAddr != "" {
		go func() {
			err := http.ListenAndServe(*metricsAddr, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			glog.Errorf("metrics server: %v", err)
		}()
	}

	// Every eager provider polls this; flipping it stops all auto updaters.
	var keepGoing atomic.Bool
	keepGoing.Store(true)

	for i, sc := range scenarios {
		stats := observer.NewStatistics()
		obs := []types.Observer{stats, promadapter.NewObserver(reg, fmt.Sprintf("scenario_%d", i))}
		if *verbose {
			obs = append(obs, observer.Logger{Level: 0})
		}

		if err := run(cfg, sc, observer.Multi(obs...), stats, keepGoing.Load); err != nil {
			glog.Errorf("%s: %v", sc.label, err)
		}
	}

	keepGoing.Store(false)
}

func run(cfg settings, sc scenario, obs types.Observer, stats *observer.Statistics, shouldContinue func() bool) error {
	opts := cache.Options[string]{
		TTL: expiration.Fixed[string](cfg.TTL),
		Producer: func(ctx context.Context) (string, error) {
			select {
			case <-time.After(cfg.ProducerDelay):
				return "data which takes long time to calc", nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		},
		OnEvent: obs,
	}
	if sc.eager {
		opts.AutoUpdater = &cache.AutoUpdater[string]{
			Interval:       cfg.Interval,
			TTL:            expiration.Fixed[string](cfg.UpdateTTL),
			ShouldContinue: shouldContinue,
			OnError: func(err error) {
				glog.Warningf("%s: background refresh: %v", sc.label, err)
			},
		}
	}

	p, err := cache.New(opts)
	if err != nil {
		return err
	}
	defer p.Close()

	fmt.Printf("Sample: %s\n", sc.label)

	ctx := context.Background()
	if sc.warmup {
		if _, err := p.Get(ctx); err != nil {
			return err
		}
		stats.Reset()
	}

	// Requests are fired without waiting for the previous one, like a busy server.
	var g errgroup.Group
	for i := 0; i < cfg.Runs; i++ {
		g.Go(func() error {
			if *verbose {
				glog.Infof("request:%d", i)
			}
			_, err := p.Get(ctx)
			if *verbose {
				glog.Infof("response:%d", i)
			}
			return err
		})
		time.Sleep(cfg.RequestEvery)
	}
	if err := g.Wait(); err != nil {
		return err
	}

	printTable(stats.Table())
	return nil
}

func printTable(rows []observer.Row) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "methodType\teventType\tcount\tmin\tavg\tmax\t")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t\n",
			r.Method, r.Event, r.Count,
			r.Min.Milliseconds(), r.Avg().Milliseconds(), r.Max.Milliseconds())
	}
	w.Flush()
	fmt.Println()
}

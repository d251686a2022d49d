// Package metrics exposes cramfuse's runtime counters through
// github.com/prometheus/client_golang, the one metrics dependency the
// teacher's own stack and this package share. The rest of the teacher's
// observability chain (OpenCensus, OpenTelemetry, the Cloud Monitoring
// exporter) assumes a GCP project to publish to; cramfuse has no such
// backend, so it serves a plain Prometheus /metrics endpoint instead — see
// DESIGN.md.
package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wtsi-hgi/cramfuse/internal/logger"
)

// Collector holds cramfuse's Prometheus instruments. The zero value is not
// usable; construct with New.
type Collector struct {
	registry *prometheus.Registry

	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	transcodesStarted  prometheus.Counter
	transcodesFailed   prometheus.Counter
	transcodedBytes    prometheus.Counter
}

// New builds a Collector with its own registry, independent of the global
// default so tests never collide with each other or with a process-wide
// registerer.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cramfuse",
			Name:      "stat_cache_hits_total",
			Help:      "Stat cache lookups resolved from a fresh cached record.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cramfuse",
			Name:      "stat_cache_misses_total",
			Help:      "Stat cache lookups that fell back to the placeholder size.",
		}),
		transcodesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cramfuse",
			Name:      "transcodes_total",
			Help:      "Virtual BAM reads that triggered a CRAM transcode.",
		}),
		transcodesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cramfuse",
			Name:      "transcode_failures_total",
			Help:      "Transcodes that returned an error.",
		}),
		transcodedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cramfuse",
			Name:      "transcoded_bytes_total",
			Help:      "Bytes of transcoded BAM data delivered to readers.",
		}),
	}

	c.registry.MustRegister(
		c.cacheHits,
		c.cacheMisses,
		c.transcodesStarted,
		c.transcodesFailed,
		c.transcodedBytes,
	)
	return c
}

// CacheHit records a stat cache lookup that resolved to a fresh record.
func (c *Collector) CacheHit() { c.cacheHits.Inc() }

// CacheMiss records a stat cache lookup that fell back to the placeholder.
func (c *Collector) CacheMiss() { c.cacheMisses.Inc() }

// TranscodeSucceeded records a completed transcode of n bytes.
func (c *Collector) TranscodeSucceeded(n int64) {
	c.transcodesStarted.Inc()
	c.transcodedBytes.Add(float64(n))
}

// TranscodeFailed records a transcode that returned an error.
func (c *Collector) TranscodeFailed() {
	c.transcodesStarted.Inc()
	c.transcodesFailed.Inc()
}

// Server serves c's registry on addr until ctx is cancelled. A zero value
// addr means metrics are disabled; Serve then blocks until ctx is done
// without opening a listener, so callers can launch it unconditionally
// from a goroutine.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	if addr == "" {
		<-ctx.Done()
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Serving metrics on %s/metrics", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

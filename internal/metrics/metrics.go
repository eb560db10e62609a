// Package metrics exposes prometheus collectors for session formation,
// results and the RPC surface.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"aram-scrim/internal/domain"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scrim"

// Collector owns a private registry. It also acts as a session publisher so
// every formation and result is counted.
type Collector struct {
	registry *prometheus.Registry

	teamsFormed  *prometheus.CounterVec
	difference   prometheus.Histogram
	results      *prometheus.CounterVec
	ratingDeltas prometheus.Histogram
	rpcRequests  *prometheus.CounterVec
	rpcDuration  *prometheus.HistogramVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		teamsFormed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "teams_formed_total",
			Help:      "Team formations and rebalances by balance quality.",
		}, []string{"quality", "exhaustive"}),
		difference: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "team_score_difference",
			Help:      "Absolute balance score difference between the two sides.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_reported_total",
			Help:      "Reported match results by winning side.",
		}, []string{"winner"}),
		ratingDeltas: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rating_delta",
			Help:      "Per-player rating change applied by a result.",
			Buckets:   prometheus.LinearBuckets(-30, 5, 13),
		}),
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "RPC calls by procedure and result code.",
		}, []string{"procedure", "code"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "RPC latency by procedure.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
	}

	c.registry.MustRegister(
		c.teamsFormed,
		c.difference,
		c.results,
		c.ratingDeltas,
		c.rpcRequests,
		c.rpcDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) PublishTeams(_ context.Context, _ *domain.Session, t *domain.FormedTeams) {
	exhaustive := "false"
	if t.Exhaustive {
		exhaustive = "true"
	}
	c.teamsFormed.WithLabelValues(t.Quality, exhaustive).Inc()
	c.difference.Observe(t.Difference)
}

func (c *Collector) PublishResult(_ context.Context, rec *domain.MatchRecord) {
	c.results.WithLabelValues(string(rec.Winner)).Inc()
	for _, d := range rec.Deltas {
		c.ratingDeltas.Observe(float64(d.Delta))
	}
}

// Interceptor records count and latency of every unary RPC.
func (c *Collector) Interceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			code := "ok"
			if err != nil {
				code = connect.CodeUnknown.String()
				var cerr *connect.Error
				if errors.As(err, &cerr) {
					code = cerr.Code().String()
				}
			}
			procedure := req.Spec().Procedure
			c.rpcRequests.WithLabelValues(procedure, code).Inc()
			c.rpcDuration.WithLabelValues(procedure).Observe(time.Since(start).Seconds())
			return resp, err
		}
	}
}

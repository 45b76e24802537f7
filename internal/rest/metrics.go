// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mlnoga/rainbow/internal/batch"
	"github.com/mlnoga/rainbow/internal/rainbow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus instrumentation of the server, on its own registry
type Metrics struct {
	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	fits        *prometheus.CounterVec
	fitDuration prometheus.Histogram
	iterations  prometheus.Histogram
	chi2        prometheus.Histogram
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rainbow_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "code"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rainbow_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		fits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rainbow_fits_total",
				Help: "Total number of light curve fits by outcome",
			},
			[]string{"outcome"},
		),
		fitDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "rainbow_fit_duration_seconds",
			Help:    "Duration of single light curve fits in seconds",
			Buckets: prometheus.ExponentialBuckets(1e-4, 4, 10),
		}),
		iterations: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "rainbow_fit_iterations",
			Help:    "Optimizer iterations of successful fits",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		chi2: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "rainbow_fit_reduced_chi2",
			Help:    "Reduced chi-square of successful fits",
			Buckets: []float64{0.25, 0.5, 0.8, 1, 1.25, 2, 5, 10, 100},
		}),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Counts requests and observes their latency by route
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// Records one fit outcome. Safe on a nil receiver.
func (m *Metrics) observeFit(out batch.Outcome, d time.Duration) {
	if m == nil {
		return
	}
	label := outcomeLabel(out.Err)
	if out.Filled {
		label = "filled"
	}
	m.fits.WithLabelValues(label).Inc()
	m.fitDuration.Observe(d.Seconds())
	if out.Result != nil && !out.Filled {
		m.iterations.Observe(float64(out.Result.Iterations))
		m.chi2.Observe(out.Result.ReducedChi2)
	}
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case rainbow.IsFitFailure(err):
		return "failed"
	default:
		return "invalid"
	}
}

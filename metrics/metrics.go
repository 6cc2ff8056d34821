/*
 * Copyright (c) 2024. Shuojiang Liu.
 * Licensed under the MIT License (the "License");
 * you may not use this file except in compliance with the License.
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package metrics exposes the server's Prometheus collectors: per-command
// counters and latency histograms, engine Stat() gauges, and sweeper
// reclaim counters.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redisdb/redisdb"
)

// Registry owns every collector the server publishes.
type Registry struct {
	reg *prometheus.Registry

	commandsTotal     *prometheus.CounterVec
	commandErrors     *prometheus.CounterVec
	commandLatency    *prometheus.HistogramVec
	engineKeys        prometheus.Gauge
	engineDataFiles   prometheus.Gauge
	engineReclaimable prometheus.Gauge
	engineDiskBytes   prometheus.Gauge
	sweeperReclaimed  prometheus.Counter
}

// New builds a Registry with every collector registered.
func New() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Registry{
		reg: reg,
		commandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "redisdb",
			Name:      "commands_total",
			Help:      "Total number of commands dispatched, by command name.",
		}, []string{"command"}),
		commandErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "redisdb",
			Name:      "command_errors_total",
			Help:      "Total number of commands that returned an error, by command name.",
		}, []string{"command"}),
		commandLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "redisdb",
			Name:      "command_latency_seconds",
			Help:      "Command handling latency, by command name.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
		engineKeys: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "redisdb",
			Name:      "engine_keys",
			Help:      "Number of logical keys currently held by the engine.",
		}),
		engineDataFiles: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "redisdb",
			Name:      "engine_data_files",
			Help:      "Number of on-disk data files.",
		}),
		engineReclaimable: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "redisdb",
			Name:      "engine_reclaimable_bytes",
			Help:      "Bytes of stale data eligible for merge reclamation.",
		}),
		engineDiskBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "redisdb",
			Name:      "engine_disk_bytes",
			Help:      "Size of the data directory on disk.",
		}),
		sweeperReclaimed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "redisdb",
			Name:      "sweeper_keys_reclaimed_total",
			Help:      "Total number of keys the active expiry sweeper has reclaimed.",
		}),
	}
}

// ObserveCommand records one dispatched command's outcome and latency.
func (r *Registry) ObserveCommand(name string, took time.Duration, err error) {
	r.commandsTotal.WithLabelValues(name).Inc()
	if err != nil {
		r.commandErrors.WithLabelValues(name).Inc()
	}
	r.commandLatency.WithLabelValues(name).Observe(took.Seconds())
}

// ObserveSweep records how many keys one sweeper tick reclaimed.
func (r *Registry) ObserveSweep(reclaimed int) {
	r.sweeperReclaimed.Add(float64(reclaimed))
}

// CollectEngineStat refreshes the engine gauges from db.Stat().
func (r *Registry) CollectEngineStat(db *redisdb.Database) {
	stat := db.Stat()
	r.engineKeys.Set(float64(stat.KeyNum))
	r.engineDataFiles.Set(float64(stat.DataFileNum))
	r.engineReclaimable.Set(float64(stat.ReclaimableSize))
	r.engineDiskBytes.Set(float64(stat.DiskSize))
}

// WatchEngineStat polls CollectEngineStat every interval until ctx is
// cancelled, so /metrics reflects engine size without a gauge callback per
// scrape.
func (r *Registry) WatchEngineStat(ctx context.Context, db *redisdb.Database, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.CollectEngineStat(db)
		}
	}
}

// Handler serves the registry in the Prometheus text exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// ListenAndServe runs a dedicated HTTP server for /metrics until ctx is
// cancelled.
func (r *Registry) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DownloadBytesTotal, RunningInstances, and AuthFailuresTotal are the
// metrics SPEC_FULL names explicitly: download throughput, a
// running-instance gauge, and an auth failures counter. DownloadTasksTotal
// and RPCRequestDuration are additional.
var (
	DownloadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "launchcore_download_bytes_total",
			Help: "Total bytes downloaded across all fetch tasks.",
		},
	)

	DownloadTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "launchcore_download_tasks_total",
			Help: "Total fetch tasks completed, by outcome.",
		},
		[]string{"outcome"}, // "ok" or "failed"
	)

	RunningInstances = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "launchcore_running_instances",
			Help: "Number of instances currently running.",
		},
	)

	AuthFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "launchcore_auth_failures_total",
			Help: "Total authentication failures, by kind.",
		},
		[]string{"kind"},
	)

	RPCRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "launchcore_rpc_request_duration_seconds",
			Help:    "RPC command handler duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command", "status"},
	)
)

// Package metrics exposes Prometheus instrumentation for the download
// pipeline. The collectors are registered on the default registry and served
// via the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DownloadsStarted counts transfers handed to the engine, inline or queued.
	DownloadsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "modelfetch_downloads_started_total",
		Help: "Number of model downloads started.",
	})

	// DownloadsSucceeded counts transfers that committed successfully.
	DownloadsSucceeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "modelfetch_downloads_succeeded_total",
		Help: "Number of model downloads that completed successfully.",
	})

	// DownloadsFailed counts transfers that ended in a terminal error.
	DownloadsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "modelfetch_downloads_failed_total",
		Help: "Number of model downloads that failed.",
	})

	// BytesTransferred sums the bytes written by completed transfers.
	BytesTransferred = promauto.NewCounter(prometheus.CounterOpts{
		Name: "modelfetch_bytes_transferred_total",
		Help: "Total bytes written by completed model downloads.",
	})

	// QueueDepth tracks the number of descriptors waiting in the job queue.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "modelfetch_queue_depth",
		Help: "Number of transfer jobs waiting in the queue.",
	})
)

package logs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	logsFetched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "somnia",
		Subsystem: "logs",
		Name:      "fetched_total",
		Help:      "Total number of event logs returned by chunked fetches",
	})

	chunksSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "somnia",
		Subsystem: "logs",
		Name:      "chunks_skipped_total",
		Help:      "Total number of log sub-range queries skipped after a provider failure",
	})
)

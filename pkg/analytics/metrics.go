package analytics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transfersDecoded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "somnia",
		Subsystem: "analytics",
		Name:      "transfers_decoded_total",
		Help:      "Total number of Transfer events folded into balance ledgers",
	})

	blocksProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "somnia",
		Subsystem: "analytics",
		Name:      "blocks_processed_total",
		Help:      "Total number of blocks walked by the volume calculators",
	})
)

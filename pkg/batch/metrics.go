package batch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsExecuted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "somnia",
		Subsystem: "batch",
		Name:      "operations_executed_total",
		Help:      "Batch operations that broadcast successfully",
	})

	operationsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "somnia",
		Subsystem: "batch",
		Name:      "operations_failed_total",
		Help:      "Batch operations that failed before or during broadcast",
	})
)

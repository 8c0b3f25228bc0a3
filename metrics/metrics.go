package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// InvocationsTotal tracks tool invocations per tool and outcome
	InvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbxmcp_tool_invocations_total",
			Help: "Total number of tool invocations",
		},
		[]string{"tool", "outcome"},
	)

	// InvocationDuration tracks tool invocation latency
	InvocationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dbxmcp_tool_invocation_seconds",
			Help:    "Tool invocation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	// RetryAttemptsTotal tracks retried API failures by error kind
	RetryAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbxmcp_retry_attempts_total",
			Help: "Total number of retried API call failures",
		},
		[]string{"kind"},
	)

	// ErrorsTotal tracks terminal tool errors by classified kind
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbxmcp_tool_errors_total",
			Help: "Total number of tool invocations that ended in an error",
		},
		[]string{"tool", "kind"},
	)

	// AssembledRows tracks rows assembled from statement results
	AssembledRows = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dbxmcp_assembled_rows_total",
			Help: "Total number of result rows assembled across chunk fetches",
		},
	)
)

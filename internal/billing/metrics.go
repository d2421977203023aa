package billing

import "expvar"

// counters published under /debug/vars as "payments"
var metrics = expvar.NewMap("payments")

const (
	metricGenerated         = "generated"
	metricReused            = "reused"
	metricWebhooks          = "webhooks"
	metricSignatureRejected = "signature_rejected"
	metricTransitions       = "transitions"
	metricRefreshFailures   = "refresh_failures"
)

// RecordSignatureRejected is called by the HTTP layer, which owns the check.
func RecordSignatureRejected() { metrics.Add(metricSignatureRejected, 1) }

// Package metrics provides Prometheus instrumentation for veriforge.
package metrics

// VerificationSubmit records one verification submission outcome.
func VerificationSubmit(status string) {
	if !enabled {
		return
	}
	verificationSubmitTotal.WithLabelValues(status).Inc()
}

// VerificationResult records the terminal result of one polled session.
func VerificationResult(result string) {
	if !enabled {
		return
	}
	verificationResultTotal.WithLabelValues(result).Inc()
}

// Package metrics provides Prometheus instrumentation for veriforge.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	enabled     bool
	serviceName string

	// HTTP metrics
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec

	// Contract domain metrics
	contractRegisterTotal *prometheus.CounterVec
	contractDeleteTotal   *prometheus.CounterVec

	// Deployment domain metrics
	deploymentDeployTotal *prometheus.CounterVec
	deploymentRecordTotal *prometheus.CounterVec
	batchExecuteTotal     *prometheus.CounterVec

	// Verification domain metrics
	verificationSubmitTotal *prometheus.CounterVec
	verificationResultTotal *prometheus.CounterVec
)

// Init initializes the metrics system.
func Init(enabledFlag bool, svcName string) {
	enabled = enabledFlag
	serviceName = svcName

	if !enabled {
		return
	}

	// HTTP request counter
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTP request duration histogram
	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Contract register counter
	contractRegisterTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contract_register_total",
			Help: "Total number of contracts registered",
		},
		[]string{"status"},
	)

	// Contract delete counter
	contractDeleteTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contract_delete_total",
			Help: "Total number of contracts deleted",
		},
		[]string{"status"},
	)

	// Deployment deploy counter
	deploymentDeployTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deployment_deploy_total",
			Help: "Total number of contract deployments sent",
		},
		[]string{"chain", "status"},
	)

	// Deployment record counter
	deploymentRecordTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deployment_record_total",
			Help: "Total number of deployments recorded",
		},
		[]string{"chain", "status"},
	)

	// Batch execute counter
	batchExecuteTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batch_execute_total",
			Help: "Total number of call batches submitted",
		},
		[]string{"status"},
	)

	// Verification submission counter
	verificationSubmitTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_submit_total",
			Help: "Total number of verification submissions",
		},
		[]string{"status"},
	)

	// Verification terminal result counter
	verificationResultTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_result_total",
			Help: "Total number of completed verification sessions by result",
		},
		[]string{"result"},
	)

	// Note: Go runtime metrics (goroutines, memory, GC) are automatically
	// collected by prometheus/client_golang - no custom collector needed
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	if !enabled {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
	}
	return promhttp.Handler()
}

// Enabled returns whether metrics are enabled.
func Enabled() bool {
	return enabled
}

// ServiceName returns the configured service name for metric labels.
func ServiceName() string {
	return serviceName
}

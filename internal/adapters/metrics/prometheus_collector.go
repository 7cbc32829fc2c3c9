package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/andrescamacho/coreloop-go/internal/domain/construction"
	"github.com/andrescamacho/coreloop-go/internal/domain/resources"
)

const (
	// Namespace for all metrics
	namespace = "coreloop"
	// Subsystem for daemon metrics
	subsystem = "daemon"
)

var (
	// Registry is the global Prometheus registry for all metrics
	Registry *prometheus.Registry

	// Set by the Set*Collector functions when metrics are enabled
	globalTickCollector         TickMetricsRecorder
	globalConstructionCollector ConstructionMetricsRecorder
	globalQueueCollector        QueueMetricsRecorder
)

// TickMetricsRecorder records scheduler firings
type TickMetricsRecorder interface {
	RecordTick(summary resources.TickSummary)
}

// ConstructionMetricsRecorder records task lifecycle events
type ConstructionMetricsRecorder interface {
	RecordTaskCreated(upgradeType construction.UpgradeType)
	RecordTaskRejected(reason string)
	RecordTaskTransition(from, to construction.TaskStatus)
}

// QueueMetricsRecorder records message deliveries
type QueueMetricsRecorder interface {
	RecordDelivery(job string, outcome string, duration time.Duration)
}

// InitRegistry initializes the Prometheus registry
// Should be called once at application startup if metrics are enabled
func InitRegistry() {
	Registry = prometheus.NewRegistry()
}

// GetRegistry returns the global Prometheus registry
// Returns nil if metrics are not initialized
func GetRegistry() *prometheus.Registry {
	return Registry
}

// IsEnabled returns true if metrics collection is enabled
func IsEnabled() bool {
	return Registry != nil
}

// ResetGlobals clears the registry and every global collector
func ResetGlobals() {
	Registry = nil
	globalTickCollector = nil
	globalConstructionCollector = nil
	globalQueueCollector = nil
}

// SetGlobalTickCollector sets the global tick metrics collector
func SetGlobalTickCollector(collector TickMetricsRecorder) {
	globalTickCollector = collector
}

// SetGlobalConstructionCollector sets the global construction metrics collector
func SetGlobalConstructionCollector(collector ConstructionMetricsRecorder) {
	globalConstructionCollector = collector
}

// SetGlobalQueueCollector sets the global queue metrics collector
func SetGlobalQueueCollector(collector QueueMetricsRecorder) {
	globalQueueCollector = collector
}

// RecordTick records a scheduler firing globally
func RecordTick(summary resources.TickSummary) {
	if globalTickCollector != nil {
		globalTickCollector.RecordTick(summary)
	}
}

// RecordTaskCreated records a successfully created task globally
func RecordTaskCreated(upgradeType construction.UpgradeType) {
	if globalConstructionCollector != nil {
		globalConstructionCollector.RecordTaskCreated(upgradeType)
	}
}

// RecordTaskRejected records a create request refused for reason globally
func RecordTaskRejected(reason string) {
	if globalConstructionCollector != nil {
		globalConstructionCollector.RecordTaskRejected(reason)
	}
}

// RecordTaskTransition records a persisted status change globally
func RecordTaskTransition(from, to construction.TaskStatus) {
	if globalConstructionCollector != nil {
		globalConstructionCollector.RecordTaskTransition(from, to)
	}
}

// RecordDelivery records one processed queue message globally
func RecordDelivery(job string, outcome string, duration time.Duration) {
	if globalQueueCollector != nil {
		globalQueueCollector.RecordDelivery(job, outcome, duration)
	}
}

package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/andrescamacho/coreloop-go/internal/domain/construction"
)

// ConstructionMetricsCollector handles construction task metrics.
// Event counters are recorded as they happen; the per-status gauge is
// refreshed from the database on an interval.
type ConstructionMetricsCollector struct {
	db     *gorm.DB
	logger *zap.Logger

	tasksCreatedTotal    *prometheus.CounterVec
	tasksRejectedTotal   *prometheus.CounterVec
	taskTransitionsTotal *prometheus.CounterVec
	tasksByStatus        *prometheus.GaugeVec

	ctx          context.Context
	cancelFunc   context.CancelFunc
	wg           sync.WaitGroup
	pollInterval time.Duration
}

// NewConstructionMetricsCollector creates a new construction metrics collector.
// db may be nil, in which case the status gauge is never refreshed.
func NewConstructionMetricsCollector(db *gorm.DB, logger *zap.Logger) *ConstructionMetricsCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConstructionMetricsCollector{
		db:     db,
		logger: logger,

		tasksCreatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "construction_tasks_created_total",
				Help:      "Construction tasks created by upgrade type",
			},
			[]string{"upgrade_type"},
		),

		tasksRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "construction_tasks_rejected_total",
				Help:      "Create requests refused by reason",
			},
			[]string{"reason"},
		),

		taskTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "construction_task_transitions_total",
				Help:      "Persisted task status changes",
			},
			[]string{"from", "to"},
		),

		tasksByStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "construction_tasks",
				Help:      "Construction tasks currently in each status",
			},
			[]string{"status"},
		),

		pollInterval: 30 * time.Second,
	}
}

// Register registers all construction metrics with the Prometheus registry
func (c *ConstructionMetricsCollector) Register() error {
	return register(c.tasksCreatedTotal, c.tasksRejectedTotal, c.taskTransitionsTotal, c.tasksByStatus)
}

// Start begins refreshing the status gauge
func (c *ConstructionMetricsCollector) Start(ctx context.Context) {
	c.ctx, c.cancelFunc = context.WithCancel(ctx)

	c.wg.Add(1)
	go c.poll()
}

// Stop stops refreshing and waits for the poller to exit
func (c *ConstructionMetricsCollector) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.wg.Wait()
}

func (c *ConstructionMetricsCollector) poll() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	c.RefreshStatusCounts(c.ctx)

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.RefreshStatusCounts(c.ctx)
		}
	}
}

// RefreshStatusCounts reloads the per-status task gauge
func (c *ConstructionMetricsCollector) RefreshStatusCounts(ctx context.Context) {
	if c.db == nil {
		return
	}

	var rows []struct {
		Status string
		Count  int64
	}
	err := c.db.WithContext(ctx).
		Table("construction_tasks").
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		c.logger.Warn("failed to refresh construction task counts", zap.Error(err))
		return
	}

	c.tasksByStatus.Reset()
	for _, status := range []construction.TaskStatus{
		construction.TaskStatusPending,
		construction.TaskStatusInProgress,
		construction.TaskStatusCompleted,
		construction.TaskStatusCancelled,
	} {
		c.tasksByStatus.WithLabelValues(string(status)).Set(0)
	}
	for _, row := range rows {
		c.tasksByStatus.WithLabelValues(row.Status).Set(float64(row.Count))
	}
}

// RecordTaskCreated records a created task
func (c *ConstructionMetricsCollector) RecordTaskCreated(upgradeType construction.UpgradeType) {
	c.tasksCreatedTotal.WithLabelValues(string(upgradeType)).Inc()
}

// RecordTaskRejected records a refused create request
func (c *ConstructionMetricsCollector) RecordTaskRejected(reason string) {
	c.tasksRejectedTotal.WithLabelValues(reason).Inc()
}

// RecordTaskTransition records a persisted status change
func (c *ConstructionMetricsCollector) RecordTaskTransition(from, to construction.TaskStatus) {
	c.taskTransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
}

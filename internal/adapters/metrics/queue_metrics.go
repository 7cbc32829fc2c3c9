package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/andrescamacho/coreloop-go/internal/domain/queue"
)

// QueueMetricsCollector handles task queue metrics
type QueueMetricsCollector struct {
	taskQueue queue.TaskQueue
	queueName string
	logger    *zap.Logger

	deliveriesTotal  *prometheus.CounterVec
	deliveryDuration *prometheus.HistogramVec
	depth            *prometheus.GaugeVec

	ctx          context.Context
	cancelFunc   context.CancelFunc
	wg           sync.WaitGroup
	pollInterval time.Duration
}

// NewQueueMetricsCollector creates a collector that reports the depth of queueName.
// taskQueue may be nil, in which case depth is never sampled.
func NewQueueMetricsCollector(taskQueue queue.TaskQueue, queueName string, logger *zap.Logger) *QueueMetricsCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueMetricsCollector{
		taskQueue: taskQueue,
		queueName: queueName,
		logger:    logger,

		deliveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "queue_deliveries_total",
				Help:      "Queue messages processed by job and outcome",
			},
			[]string{"job", "outcome"},
		),

		deliveryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "queue_delivery_duration_seconds",
				Help:      "Time spent handling one queue message",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"job"},
		),

		depth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "queue_messages",
				Help:      "Queue messages by state",
			},
			[]string{"queue", "state"},
		),

		pollInterval: 15 * time.Second,
	}
}

// Register registers all queue metrics with the Prometheus registry
func (c *QueueMetricsCollector) Register() error {
	return register(c.deliveriesTotal, c.deliveryDuration, c.depth)
}

// Start begins sampling queue depth
func (c *QueueMetricsCollector) Start(ctx context.Context) {
	c.ctx, c.cancelFunc = context.WithCancel(ctx)

	c.wg.Add(1)
	go c.poll()
}

// Stop stops sampling and waits for the poller to exit
func (c *QueueMetricsCollector) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.wg.Wait()
}

func (c *QueueMetricsCollector) poll() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	c.SampleDepth(c.ctx)

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.SampleDepth(c.ctx)
		}
	}
}

// SampleDepth reads the queue depth once
func (c *QueueMetricsCollector) SampleDepth(ctx context.Context) {
	if c.taskQueue == nil {
		return
	}

	depth, err := c.taskQueue.Depth(ctx, c.queueName)
	if err != nil {
		c.logger.Warn("failed to sample queue depth", zap.String("queue", c.queueName), zap.Error(err))
		return
	}

	c.depth.WithLabelValues(c.queueName, "waiting").Set(float64(depth.Waiting))
	c.depth.WithLabelValues(c.queueName, "in_flight").Set(float64(depth.InFlight))
	c.depth.WithLabelValues(c.queueName, "dead_lettered").Set(float64(depth.DeadLettered))
}

// RecordDelivery records one processed message
func (c *QueueMetricsCollector) RecordDelivery(job string, outcome string, duration time.Duration) {
	c.deliveriesTotal.WithLabelValues(job, outcome).Inc()
	c.deliveryDuration.WithLabelValues(job).Observe(duration.Seconds())
}

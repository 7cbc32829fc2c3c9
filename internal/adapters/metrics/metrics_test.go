package metrics_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/coreloop-go/internal/adapters/metrics"
	"github.com/andrescamacho/coreloop-go/internal/adapters/persistence"
	"github.com/andrescamacho/coreloop-go/internal/application/mediator"
	"github.com/andrescamacho/coreloop-go/internal/domain/construction"
	"github.com/andrescamacho/coreloop-go/internal/domain/queue"
	"github.com/andrescamacho/coreloop-go/internal/domain/resources"
	"github.com/andrescamacho/coreloop-go/internal/domain/shared"
	"github.com/andrescamacho/coreloop-go/test/helpers"
)

type pingQuery struct{}

// enableMetrics gives the test a fresh registry and clears it afterwards
func enableMetrics(t *testing.T) {
	t.Helper()
	metrics.InitRegistry()
	t.Cleanup(metrics.ResetGlobals)
}

func TestTickMetrics_RecordsSummary(t *testing.T) {
	// Arrange
	enableMetrics(t)
	collector := metrics.NewTickMetricsCollector()
	require.NoError(t, collector.Register())
	metrics.SetGlobalTickCollector(collector)

	// Act
	metrics.RecordTick(resources.TickSummary{
		TickedAt:  time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Total:     3,
		Succeeded: 2,
		Failed:    1,
		Duration:  20 * time.Millisecond,
	})

	// Assert
	expected := `
# HELP coreloop_daemon_tick_user_outcomes_total Per-user tick outcomes
# TYPE coreloop_daemon_tick_user_outcomes_total counter
coreloop_daemon_tick_user_outcomes_total{outcome="failure"} 1
coreloop_daemon_tick_user_outcomes_total{outcome="success"} 2
# HELP coreloop_daemon_ticks_total Number of resource tick firings
# TYPE coreloop_daemon_ticks_total counter
coreloop_daemon_ticks_total 1
`
	err := testutil.GatherAndCompare(metrics.Registry, strings.NewReader(expected),
		"coreloop_daemon_tick_user_outcomes_total", "coreloop_daemon_ticks_total")
	assert.NoError(t, err)
}

func TestGlobalRecorders_NoopWithoutCollectors(t *testing.T) {
	metrics.ResetGlobals()

	assert.NotPanics(t, func() {
		metrics.RecordTick(resources.TickSummary{Total: 1, Succeeded: 1})
		metrics.RecordTaskCreated(construction.UpgradeTypeBuilding)
		metrics.RecordTaskRejected("insufficient_resources")
		metrics.RecordTaskTransition(construction.TaskStatusPending, construction.TaskStatusInProgress)
		metrics.RecordDelivery(queue.JobConstruct, "started", time.Millisecond)
	})
	assert.False(t, metrics.IsEnabled())
}

func TestRegister_NoopWhenDisabled(t *testing.T) {
	metrics.ResetGlobals()

	assert.NoError(t, metrics.NewTickMetricsCollector().Register())
	assert.NoError(t, metrics.NewCommandMetricsCollector().Register())
}

func TestRegister_RejectsDuplicates(t *testing.T) {
	enableMetrics(t)
	require.NoError(t, metrics.NewCommandMetricsCollector().Register())

	err := metrics.NewCommandMetricsCollector().Register()

	assert.Error(t, err)
}

func TestPrometheusMiddleware_RecordsOutcome(t *testing.T) {
	// Arrange
	enableMetrics(t)
	collector := metrics.NewCommandMetricsCollector()
	require.NoError(t, collector.Register())
	mw := metrics.PrometheusMiddleware(collector)

	ok := func(ctx context.Context, request mediator.Request) (mediator.Response, error) {
		return "pong", nil
	}
	failing := func(ctx context.Context, request mediator.Request) (mediator.Response, error) {
		return nil, errors.New("boom")
	}

	// Act
	resp, err := mw(context.Background(), &pingQuery{}, ok)
	require.NoError(t, err)
	assert.Equal(t, "pong", resp)

	_, err = mw(context.Background(), &pingQuery{}, failing)
	require.Error(t, err)
	_, _ = mw(context.Background(), &pingQuery{}, failing)

	// Assert
	expected := `
# HELP coreloop_daemon_commands_total Total number of commands and queries executed by type and status
# TYPE coreloop_daemon_commands_total counter
coreloop_daemon_commands_total{command="pingQuery",status="error"} 2
coreloop_daemon_commands_total{command="pingQuery",status="success"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(metrics.Registry, strings.NewReader(expected), "coreloop_daemon_commands_total"))
}

func TestPrometheusMiddleware_NilCollectorPassesThrough(t *testing.T) {
	mw := metrics.PrometheusMiddleware(nil)

	resp, err := mw(context.Background(), &pingQuery{}, func(ctx context.Context, request mediator.Request) (mediator.Response, error) {
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, resp)
}

func TestRequestName(t *testing.T) {
	assert.Equal(t, "pingQuery", metrics.RequestName(&pingQuery{}))
	assert.Equal(t, "pingQuery", metrics.RequestName(pingQuery{}))
	assert.Equal(t, "UnknownCommand", metrics.RequestName(nil))
}

func TestConstructionMetrics_RefreshStatusCounts(t *testing.T) {
	// Arrange
	enableMetrics(t)
	db := helpers.NewTestDB(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tasks := persistence.NewGormConstructionTaskRepository(db)

	for i, name := range []string{"Sawmill", "Granary", "Forge"} {
		task, err := construction.NewTask("user-1", construction.UpgradeSpec{
			Type:            construction.UpgradeTypeBuilding,
			Name:            name,
			Cost:            resources.Cost{Wood: 10},
			DurationSeconds: 60,
		}, now.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		require.NoError(t, tasks.Create(ctx, task))

		if i == 0 {
			require.NoError(t, task.Start(now))
			require.NoError(t, tasks.SaveTransition(ctx, task, construction.TaskStatusPending))
		}
	}

	collector := metrics.NewConstructionMetricsCollector(db, nil)
	require.NoError(t, collector.Register())

	// Act
	collector.RefreshStatusCounts(ctx)

	// Assert
	expected := `
# HELP coreloop_daemon_construction_tasks Construction tasks currently in each status
# TYPE coreloop_daemon_construction_tasks gauge
coreloop_daemon_construction_tasks{status="cancelled"} 0
coreloop_daemon_construction_tasks{status="completed"} 0
coreloop_daemon_construction_tasks{status="in_progress"} 1
coreloop_daemon_construction_tasks{status="pending"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(metrics.Registry, strings.NewReader(expected), "coreloop_daemon_construction_tasks"))
}

func TestQueueMetrics_SampleDepth(t *testing.T) {
	// Arrange
	enableMetrics(t)
	db := helpers.NewTestDB(t)
	ctx := context.Background()
	clock := shared.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	taskQueue := persistence.NewGormTaskQueue(db, clock, 3)

	for _, taskID := range []string{"task-1", "task-2"} {
		msg, err := queue.NewConstructMessage(taskID, 60, clock.Now())
		require.NoError(t, err)
		require.NoError(t, taskQueue.Enqueue(ctx, msg))
	}
	leased, err := taskQueue.Receive(ctx, queue.UpgradesQueue, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, leased)

	collector := metrics.NewQueueMetricsCollector(taskQueue, queue.UpgradesQueue, nil)
	require.NoError(t, collector.Register())

	// Act
	collector.SampleDepth(ctx)

	// Assert
	expected := `
# HELP coreloop_daemon_queue_messages Queue messages by state
# TYPE coreloop_daemon_queue_messages gauge
coreloop_daemon_queue_messages{queue="upgrades",state="dead_lettered"} 0
coreloop_daemon_queue_messages{queue="upgrades",state="in_flight"} 1
coreloop_daemon_queue_messages{queue="upgrades",state="waiting"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(metrics.Registry, strings.NewReader(expected), "coreloop_daemon_queue_messages"))
}

func TestHandler_DisabledReturnsNotFound(t *testing.T) {
	metrics.ResetGlobals()
	rec := httptest.NewRecorder()

	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_ServesRegistry(t *testing.T) {
	// Arrange
	enableMetrics(t)
	collector := metrics.NewQueueMetricsCollector(nil, queue.UpgradesQueue, nil)
	require.NoError(t, collector.Register())
	collector.RecordDelivery(queue.JobConstruct, "started", 5*time.Millisecond)

	srv := httptest.NewServer(metrics.Handler())
	defer srv.Close()

	// Act
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `coreloop_daemon_queue_deliveries_total{job="construct",outcome="started"} 1`)
}

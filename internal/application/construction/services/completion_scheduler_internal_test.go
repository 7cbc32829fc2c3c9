package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/coreloop-go/internal/domain/construction"
	"github.com/andrescamacho/coreloop-go/internal/domain/shared"
)

// blockingTaskRepository holds FindByID until released, so a completion
// can be caught mid-flight
type blockingTaskRepository struct {
	construction.TaskRepository
	entered chan struct{}
	release chan struct{}
}

func (r *blockingTaskRepository) FindByID(ctx context.Context, id string) (*construction.Task, error) {
	r.entered <- struct{}{}
	<-r.release
	return nil, &construction.ErrTaskNotFound{TaskID: id}
}

func newBlockingTaskRepository() *blockingTaskRepository {
	return &blockingTaskRepository{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func newTestScheduler(tasks construction.TaskRepository) *CompletionScheduler {
	clock := shared.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	return NewCompletionScheduler(tasks, clock, nil, time.Hour)
}

func TestCompletionScheduler_LateFireKeepsNewerTimer(t *testing.T) {
	// Arrange: an armed timer plus a fire from an earlier arming of the same task
	repo := newBlockingTaskRepository()
	close(repo.release)
	s := newTestScheduler(repo)
	defer s.Stop()
	s.arm("task-1", time.Hour)
	superseded := &pendingCompletion{}

	// Act
	s.fire("task-1", superseded)

	// Assert
	assert.Equal(t, 1, s.PendingCount())
}

func TestCompletionScheduler_FireRemovesOwnTimer(t *testing.T) {
	// Arrange
	repo := newBlockingTaskRepository()
	close(repo.release)
	s := newTestScheduler(repo)
	defer s.Stop()
	s.arm("task-1", time.Hour)

	s.mu.Lock()
	entry := s.timers["task-1"]
	s.mu.Unlock()
	entry.timer.Stop()

	// Act
	s.fire("task-1", entry)

	// Assert
	assert.Equal(t, 0, s.PendingCount())
}

func TestCompletionScheduler_StopWaitsForRunningCompletion(t *testing.T) {
	// Arrange: a timer that fires at once and blocks inside the repository
	repo := newBlockingTaskRepository()
	s := newTestScheduler(repo)
	s.arm("task-1", 0)

	select {
	case <-repo.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("completion never started")
	}

	// Act
	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	// Assert
	require.Never(t, func() bool {
		select {
		case <-stopped:
			return true
		default:
			return false
		}
	}, 100*time.Millisecond, 10*time.Millisecond)

	close(repo.release)
	assert.Eventually(t, func() bool {
		select {
		case <-stopped:
			return true
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCompletionScheduler_NoFireAfterStop(t *testing.T) {
	repo := newBlockingTaskRepository()
	s := newTestScheduler(repo)
	s.arm("task-1", time.Hour)

	s.mu.Lock()
	entry := s.timers["task-1"]
	s.mu.Unlock()
	s.Stop()

	s.fire("task-1", entry)

	assert.Empty(t, repo.entered)
}

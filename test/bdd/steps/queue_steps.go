package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/cucumber/godog"

	"github.com/andrescamacho/coreloop-go/internal/adapters/persistence"
	"github.com/andrescamacho/coreloop-go/internal/domain/construction"
	"github.com/andrescamacho/coreloop-go/internal/domain/queue"
)

const (
	abandonedLease = 30 * time.Second
	eventualWait   = 2 * time.Second
	eventualPoll   = 10 * time.Millisecond
)

func registerQueueSteps(sc *godog.ScenarioContext, c *coreLoopContext) {
	sc.Step(`^the worker processes the next message$`, c.theWorkerProcessesTheNextMessage)
	sc.Step(`^the worker has started the task$`, c.theWorkerHasStartedTheTask)
	sc.Step(`^the construct message for the task is delivered$`, c.theConstructMessageIsDelivered)
	sc.Step(`^the delivery outcome should be "([^"]*)"$`, c.theDeliveryOutcomeShouldBe)
	sc.Step(`^the completion sweep runs$`, c.theCompletionSweepRuns)
	sc.Step(`^the sweep should have completed (\d+) tasks?$`, c.theSweepShouldHaveCompleted)
	sc.Step(`^the stored task should be due (\d+) seconds after it started$`, c.theStoredTaskShouldBeDueAfterStart)
	sc.Step(`^a consumer leased the construct message and stopped responding$`, c.aConsumerLeasedTheMessageAndStoppedResponding)
	sc.Step(`^the construct message should have been delivered (\d+) times$`, c.theConstructMessageShouldHaveBeenDelivered)
	sc.Step(`^the daemon restarts$`, c.theDaemonRestarts)
	sc.Step(`^the completion scheduler recovers in-progress tasks$`, c.theCompletionSchedulerRecoversInProgressTasks)
	sc.Step(`^the task should eventually be "([^"]*)"$`, c.theTaskShouldEventuallyBe)
}

func (c *coreLoopContext) theWorkerProcessesTheNextMessage() error {
	processed, err := c.worker.ProcessNext(context.Background())
	if err != nil {
		return err
	}
	if !processed {
		return fmt.Errorf("expected a message to process, queue was empty")
	}
	return nil
}

func (c *coreLoopContext) theWorkerHasStartedTheTask() error {
	if err := c.theWorkerProcessesTheNextMessage(); err != nil {
		return err
	}
	return c.theTaskShouldBe(string(construction.TaskStatusInProgress))
}

// theConstructMessageIsDelivered hands the worker a copy of the task's
// message, as a broker would on redelivery. Armed timers are dropped so
// only the sweep can complete the task.
func (c *coreLoopContext) theConstructMessageIsDelivered() error {
	if c.task == nil {
		return fmt.Errorf("no task in this scenario")
	}

	msg, err := queue.NewConstructMessage(c.task.ID(), c.task.DurationSeconds(), c.clock.Now())
	if err != nil {
		return err
	}

	c.delivery, err = c.worker.HandleConstruct(context.Background(), msg)
	if err != nil {
		return err
	}
	c.scheduler.CancelAll()
	return nil
}

func (c *coreLoopContext) theDeliveryOutcomeShouldBe(expected string) error {
	if c.delivery == nil {
		return fmt.Errorf("no delivery in this scenario")
	}
	if c.delivery.Outcome != expected {
		return fmt.Errorf("expected outcome %s, got %s", expected, c.delivery.Outcome)
	}
	return nil
}

func (c *coreLoopContext) theCompletionSweepRuns() error {
	completed, err := c.scheduler.CompleteOverdue(context.Background())
	if err != nil {
		return err
	}
	c.sweepCount = completed
	return nil
}

func (c *coreLoopContext) theSweepShouldHaveCompleted(expected int) error {
	if c.sweepCount != expected {
		return fmt.Errorf("expected the sweep to complete %d tasks, got %d", expected, c.sweepCount)
	}
	return nil
}

func (c *coreLoopContext) theStoredTaskShouldBeDueAfterStart(seconds int) error {
	if c.task == nil {
		return fmt.Errorf("no task in this scenario")
	}

	stored, err := c.tasks.FindByID(context.Background(), c.task.ID())
	if err != nil {
		return err
	}
	if stored.StartedAt() == nil || stored.DueAt() == nil {
		return fmt.Errorf("task has no start or due time")
	}
	if got := stored.DueAt().Sub(*stored.StartedAt()); got != time.Duration(seconds)*time.Second {
		return fmt.Errorf("expected due %ds after start, got %s", seconds, got)
	}
	return nil
}

func (c *coreLoopContext) aConsumerLeasedTheMessageAndStoppedResponding() error {
	msg, err := c.queue.Receive(context.Background(), queue.UpgradesQueue, abandonedLease)
	if err != nil {
		return err
	}
	if msg == nil {
		return fmt.Errorf("expected a message to lease")
	}
	return nil
}

func (c *coreLoopContext) theConstructMessageShouldHaveBeenDelivered(expected int) error {
	var model persistence.QueueMessageModel
	err := c.db.Where("queue = ? AND task_id = ?", queue.UpgradesQueue, c.task.ID()).First(&model).Error
	if err != nil {
		return err
	}
	if model.Attempts != expected {
		return fmt.Errorf("expected %d deliveries, got %d", expected, model.Attempts)
	}
	if model.AckedAt == nil {
		return fmt.Errorf("expected the message to be acknowledged")
	}
	return nil
}

func (c *coreLoopContext) theDaemonRestarts() error {
	c.stopServices()
	c.startServices()
	return nil
}

func (c *coreLoopContext) theCompletionSchedulerRecoversInProgressTasks() error {
	recovered, err := c.scheduler.ScheduleAllPending(context.Background())
	if err != nil {
		return err
	}
	if recovered == 0 {
		return fmt.Errorf("expected in-progress tasks to recover")
	}
	return nil
}

func (c *coreLoopContext) theTaskShouldEventuallyBe(expected string) error {
	deadline := time.Now().Add(eventualWait)
	for {
		status, err := c.currentStatus()
		if err == nil && string(status) == expected {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("task did not become %s within %s (last status %s, err %v)", expected, eventualWait, status, err)
		}
		time.Sleep(eventualPoll)
	}
}

package steps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cucumber/godog"

	"github.com/andrescamacho/coreloop-go/internal/domain/construction"
	"github.com/andrescamacho/coreloop-go/internal/domain/resources"
	"github.com/andrescamacho/coreloop-go/internal/domain/shared"
)

// taskStateMachineContext exercises the Task aggregate without storage
type taskStateMachineContext struct {
	clock   *shared.MockClock
	task    *construction.Task
	from    construction.TaskStatus
	to      construction.TaskStatus
	moveErr error
}

// InitializeTaskStateMachineScenario registers the task state machine steps
func InitializeTaskStateMachineScenario(sc *godog.ScenarioContext) {
	c := &taskStateMachineContext{}

	sc.Before(func(ctx context.Context, s *godog.Scenario) (context.Context, error) {
		c.clock = shared.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
		c.task = nil
		c.moveErr = nil
		return ctx, nil
	})

	sc.Step(`^a construction task in status "([^"]*)"$`, c.aConstructionTaskInStatus)
	sc.Step(`^a (\d+) second construction task in status "([^"]*)"$`, c.aSecondConstructionTaskInStatus)
	sc.Step(`^the task moves to "([^"]*)"$`, c.theTaskMovesTo)
	sc.Step(`^(\d+) seconds pass on the task clock$`, c.secondsPassOnTheTaskClock)
	sc.Step(`^the move should be (allowed|rejected)$`, c.theMoveShouldBe)
	sc.Step(`^the task status should be "([^"]*)"$`, c.theTaskStatusShouldBe)
	sc.Step(`^the task should be due (\d+) seconds after it started$`, c.theTaskShouldBeDueAfterStart)
	sc.Step(`^the task should (not )?be overdue$`, c.theTaskShouldBeOverdue)
	sc.Step(`^the task should have no completion time$`, c.theTaskShouldHaveNoCompletionTime)
	sc.Step(`^the task should have a completion time$`, c.theTaskShouldHaveACompletionTime)
}

func (c *taskStateMachineContext) aConstructionTaskInStatus(status string) error {
	return c.aSecondConstructionTaskInStatus(60, status)
}

func (c *taskStateMachineContext) aSecondConstructionTaskInStatus(seconds int, status string) error {
	task, err := construction.NewTask("user-1", construction.UpgradeSpec{
		Type:            construction.UpgradeTypeBuilding,
		Name:            "Granary",
		Cost:            resources.Cost{Wood: 10, Food: 10},
		DurationSeconds: seconds,
	}, c.clock.Now())
	if err != nil {
		return err
	}

	// Walk the task forward along legal edges to reach the requested status
	now := c.clock.Now()
	switch construction.TaskStatus(status) {
	case construction.TaskStatusPending:
	case construction.TaskStatusInProgress:
		err = task.Start(now)
	case construction.TaskStatusCompleted:
		if err = task.Start(now); err == nil {
			err = task.Complete(now.Add(task.Duration()))
		}
	case construction.TaskStatusCancelled:
		err = task.Cancel(now)
	default:
		return fmt.Errorf("unknown status %q", status)
	}
	if err != nil {
		return err
	}

	c.task = task
	return nil
}

func (c *taskStateMachineContext) theTaskMovesTo(status string) error {
	c.from = c.task.Status()
	c.to = construction.TaskStatus(status)
	c.moveErr = c.task.TransitionTo(c.to, c.clock.Now())
	return nil
}

func (c *taskStateMachineContext) secondsPassOnTheTaskClock(seconds int) error {
	c.clock.Advance(time.Duration(seconds) * time.Second)
	return nil
}

func (c *taskStateMachineContext) theMoveShouldBe(result string) error {
	allowed := result == "allowed"

	if got := construction.CanTransition(c.from, c.to); got != allowed {
		return fmt.Errorf("CanTransition(%s, %s) = %t, expected %t", c.from, c.to, got, allowed)
	}

	if allowed {
		if c.moveErr != nil {
			return fmt.Errorf("expected %s -> %s to succeed, got %v", c.from, c.to, c.moveErr)
		}
		return nil
	}

	var invalid *construction.ErrInvalidTaskTransition
	if !errors.As(c.moveErr, &invalid) {
		return fmt.Errorf("expected an invalid transition error for %s -> %s, got %v", c.from, c.to, c.moveErr)
	}
	if invalid.From != c.from || invalid.To != c.to {
		return fmt.Errorf("error reports %s -> %s, expected %s -> %s", invalid.From, invalid.To, c.from, c.to)
	}
	return nil
}

func (c *taskStateMachineContext) theTaskStatusShouldBe(status string) error {
	if string(c.task.Status()) != status {
		return fmt.Errorf("expected status %s, got %s", status, c.task.Status())
	}
	return nil
}

func (c *taskStateMachineContext) theTaskShouldBeDueAfterStart(seconds int) error {
	if c.task.StartedAt() == nil || c.task.DueAt() == nil {
		return fmt.Errorf("task has no start or due time")
	}
	if got := c.task.DueAt().Sub(*c.task.StartedAt()); got != time.Duration(seconds)*time.Second {
		return fmt.Errorf("expected due %ds after start, got %s", seconds, got)
	}
	return nil
}

func (c *taskStateMachineContext) theTaskShouldBeOverdue(not string) error {
	expected := not == ""
	if got := c.task.IsOverdue(c.clock.Now()); got != expected {
		return fmt.Errorf("expected overdue=%t, got %t", expected, got)
	}
	return nil
}

func (c *taskStateMachineContext) theTaskShouldHaveNoCompletionTime() error {
	if c.task.CompletedAt() != nil {
		return fmt.Errorf("expected no completion time, got %s", c.task.CompletedAt())
	}
	return nil
}

func (c *taskStateMachineContext) theTaskShouldHaveACompletionTime() error {
	if c.task.CompletedAt() == nil {
		return fmt.Errorf("expected a completion time")
	}
	return nil
}

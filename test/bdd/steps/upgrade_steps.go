package steps

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"

	"github.com/andrescamacho/coreloop-go/internal/adapters/persistence"
	"github.com/andrescamacho/coreloop-go/internal/application/construction/commands"
	"github.com/andrescamacho/coreloop-go/internal/application/construction/queries"
	"github.com/andrescamacho/coreloop-go/internal/domain/construction"
)

func registerUpgradeSteps(sc *godog.ScenarioContext, c *coreLoopContext) {
	sc.Step(`^"([^"]*)" creates a (\w+) upgrade "([^"]*)" costing (-?\d+) wood and (-?\d+) food$`, c.userCreatesUpgrade)
	sc.Step(`^"([^"]*)" has created a (\w+) upgrade "([^"]*)" costing (\d+) wood and (\d+) food$`, c.userHasCreatedUpgrade)
	sc.Step(`^"([^"]*)" has created a (\w+) upgrade "([^"]*)" costing (\d+) wood and (\d+) food taking (\d+) seconds$`, c.userHasCreatedUpgradeTaking)
	sc.Step(`^the construction task table is unavailable$`, c.theConstructionTaskTableIsUnavailable)
	sc.Step(`^I move the task to "([^"]*)"$`, c.iMoveTheTaskTo)
	sc.Step(`^I cancel the task$`, c.iCancelTheTask)
	sc.Step(`^the task should be "([^"]*)"$`, c.theTaskShouldBe)
	sc.Step(`^"([^"]*)" should have (\d+) upgrade tasks?$`, c.userShouldHaveUpgradeTasks)
	sc.Step(`^the upgrades queue should hold (\d+) waiting messages?$`, c.theUpgradesQueueShouldHoldWaitingMessages)
}

func (c *coreLoopContext) createUpgrade(username, upgradeType, name string, wood, food, duration int) error {
	id, err := c.userID(username)
	if err != nil {
		return err
	}

	resp, err := c.mediator.Send(context.Background(), &commands.CreateUpgradeCommand{
		UserID:          id,
		UpgradeType:     upgradeType,
		UpgradeName:     name,
		WoodCost:        wood,
		FoodCost:        food,
		DurationSeconds: duration,
	})
	c.err = err
	if err == nil {
		c.task = resp.(*commands.CreateUpgradeResponse).Task
	}
	return nil
}

func (c *coreLoopContext) userCreatesUpgrade(username, upgradeType, name string, wood, food int) error {
	return c.createUpgrade(username, upgradeType, name, wood, food, 0)
}

func (c *coreLoopContext) userHasCreatedUpgrade(username, upgradeType, name string, wood, food int) error {
	return c.userHasCreatedUpgradeTaking(username, upgradeType, name, wood, food, 0)
}

func (c *coreLoopContext) userHasCreatedUpgradeTaking(username, upgradeType, name string, wood, food, duration int) error {
	if err := c.createUpgrade(username, upgradeType, name, wood, food, duration); err != nil {
		return err
	}
	if c.err != nil {
		return fmt.Errorf("failed to create upgrade: %w", c.err)
	}
	return nil
}

func (c *coreLoopContext) theConstructionTaskTableIsUnavailable() error {
	return c.db.Migrator().DropTable(&persistence.ConstructionTaskModel{})
}

func (c *coreLoopContext) iMoveTheTaskTo(status string) error {
	if c.task == nil {
		return fmt.Errorf("no task in this scenario")
	}

	resp, err := c.mediator.Send(context.Background(), &commands.TransitionTaskCommand{
		TaskID: c.task.ID(),
		Status: construction.TaskStatus(status),
	})
	c.err = err
	if err == nil {
		c.task = resp.(*commands.TransitionTaskResponse).Task
	}
	return nil
}

func (c *coreLoopContext) iCancelTheTask() error {
	if c.task == nil {
		return fmt.Errorf("no task in this scenario")
	}

	resp, err := c.mediator.Send(context.Background(), &commands.CancelTaskCommand{TaskID: c.task.ID()})
	c.err = err
	if err == nil {
		c.task = resp.(*commands.CancelTaskResponse).Task
	}
	return nil
}

func (c *coreLoopContext) currentStatus() (construction.TaskStatus, error) {
	if c.task == nil {
		return "", fmt.Errorf("no task in this scenario")
	}

	resp, err := c.mediator.Send(context.Background(), &queries.GetTaskQuery{TaskID: c.task.ID()})
	if err != nil {
		return "", err
	}
	return resp.(*queries.GetTaskResponse).Task.Status(), nil
}

func (c *coreLoopContext) theTaskShouldBe(expected string) error {
	status, err := c.currentStatus()
	if err != nil {
		return err
	}
	if string(status) != expected {
		return fmt.Errorf("expected task to be %s, got %s", expected, status)
	}
	return nil
}

func (c *coreLoopContext) userShouldHaveUpgradeTasks(username string, expected int) error {
	id, err := c.userID(username)
	if err != nil {
		return err
	}

	resp, err := c.mediator.Send(context.Background(), &queries.GetUserTasksQuery{UserID: id})
	if err != nil {
		return err
	}
	if got := len(resp.(*queries.GetUserTasksResponse).Tasks); got != expected {
		return fmt.Errorf("expected %s to have %d tasks, got %d", username, expected, got)
	}
	return nil
}

func (c *coreLoopContext) theUpgradesQueueShouldHoldWaitingMessages(expected int) error {
	waiting, err := c.waitingMessages()
	if err != nil {
		return err
	}
	if waiting != int64(expected) {
		return fmt.Errorf("expected %d waiting messages, got %d", expected, waiting)
	}
	return nil
}

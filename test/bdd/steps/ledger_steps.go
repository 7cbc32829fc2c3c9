package steps

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cucumber/godog"

	"github.com/andrescamacho/coreloop-go/internal/domain/resources"
)

func registerLedgerSteps(sc *godog.ScenarioContext, c *coreLoopContext) {
	sc.Step(`^(\d+) concurrent deductions of (\d+) wood and (\d+) food are made for "([^"]*)"$`, c.concurrentDeductionsAreMade)
	sc.Step(`^(\d+) concurrent credits of (\d+) wood and (\d+) food are made for "([^"]*)"$`, c.concurrentCreditsAreMade)
	sc.Step(`^I deduct (-?\d+) wood and (-?\d+) food from "([^"]*)"$`, c.iDeductFrom)
	sc.Step(`^(\d+) deductions should succeed$`, c.deductionsShouldSucceed)
	sc.Step(`^(\d+) deductions should fail with insufficient resources$`, c.deductionsShouldFailWithInsufficientResources)
}

func (c *coreLoopContext) concurrentDeductionsAreMade(count, wood, food int, username string) error {
	id, err := c.userID(username)
	if err != nil {
		return err
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		unknown   error
		start     = make(chan struct{})
		cost      = resources.Cost{Wood: wood, Food: food}
		succeeded int
		short     int
	)

	for i := 0; i < count; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start

			_, err := c.ledger.Deduct(context.Background(), id, cost)

			mu.Lock()
			defer mu.Unlock()

			var insufficient *resources.ErrInsufficientResources
			switch {
			case err == nil:
				succeeded++
			case errors.As(err, &insufficient):
				short++
			default:
				unknown = err
			}
		}()
	}
	close(start)
	wg.Wait()

	c.deductSuccess = succeeded
	c.deductFailure = short
	return unknown
}

func (c *coreLoopContext) concurrentCreditsAreMade(count, wood, food int, username string) error {
	id, err := c.userID(username)
	if err != nil {
		return err
	}

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make(chan error, count)
	)

	for i := 0; i < count; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := c.ledger.Add(context.Background(), id, resources.Cost{Wood: wood, Food: food}); err != nil {
				errs <- err
			}
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		return err
	}
	return nil
}

func (c *coreLoopContext) iDeductFrom(wood, food int, username string) error {
	id, err := c.userID(username)
	if err != nil {
		return err
	}

	_, c.err = c.ledger.Deduct(context.Background(), id, resources.Cost{Wood: wood, Food: food})
	return nil
}

func (c *coreLoopContext) deductionsShouldSucceed(expected int) error {
	if c.deductSuccess != expected {
		return fmt.Errorf("expected %d successful deductions, got %d", expected, c.deductSuccess)
	}
	return nil
}

func (c *coreLoopContext) deductionsShouldFailWithInsufficientResources(expected int) error {
	if c.deductFailure != expected {
		return fmt.Errorf("expected %d insufficient-resource failures, got %d", expected, c.deductFailure)
	}
	return nil
}

package steps

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cucumber/godog"

	resourceCommands "github.com/andrescamacho/coreloop-go/internal/application/resources/commands"
	resourceQueries "github.com/andrescamacho/coreloop-go/internal/application/resources/queries"
	"github.com/andrescamacho/coreloop-go/internal/domain/resources"
)

func registerTickSteps(sc *godog.ScenarioContext, c *coreLoopContext) {
	sc.Step(`^crediting "([^"]*)" fails$`, c.creditingFails)
	sc.Step(`^a tick runs$`, c.aTickRuns)
	sc.Step(`^(\d+) ticks run$`, c.ticksRun)
	sc.Step(`^the tick summary should report (\d+) of (\d+) users credited$`, c.theTickSummaryShouldReport)
	sc.Step(`^the tick log should contain:$`, c.theTickLogShouldContain)
	sc.Step(`^the tick stats for "([^"]*)" should be:$`, c.theTickStatsShouldBe)
	sc.Step(`^the tick stats for "([^"]*)" should match its tick log$`, c.theTickStatsShouldMatchItsTickLog)
}

func (c *coreLoopContext) creditingFails(username string) error {
	id, err := c.userID(username)
	if err != nil {
		return err
	}
	c.flaky.fail(id)
	return nil
}

func (c *coreLoopContext) aTickRuns() error {
	c.clock.Advance(time.Minute)

	resp, err := c.mediator.Send(context.Background(), &resourceCommands.RunTickCommand{})
	if err != nil {
		return fmt.Errorf("tick failed: %w", err)
	}
	c.summary = resp.(*resourceCommands.RunTickResponse).Summary
	return nil
}

func (c *coreLoopContext) ticksRun(count int) error {
	for i := 0; i < count; i++ {
		if err := c.aTickRuns(); err != nil {
			return err
		}
	}
	return nil
}

func (c *coreLoopContext) theTickSummaryShouldReport(succeeded, total int) error {
	if c.summary == nil {
		return fmt.Errorf("no tick has run")
	}
	if c.summary.Succeeded != succeeded || c.summary.Total != total {
		return fmt.Errorf("expected %d of %d users credited, got %d of %d (failed %d)",
			succeeded, total, c.summary.Succeeded, c.summary.Total, c.summary.Failed)
	}
	if c.summary.Failed != total-succeeded {
		return fmt.Errorf("expected %d failures, got %d", total-succeeded, c.summary.Failed)
	}
	return nil
}

func (c *coreLoopContext) tickLogFor(userID *string) ([]*resources.TickLogEntry, error) {
	resp, err := c.mediator.Send(context.Background(), &resourceQueries.GetTickLogsQuery{
		UserID: userID,
		Limit:  resources.DefaultTickLogLimit,
	})
	if err != nil {
		return nil, err
	}
	return resp.(*resourceQueries.GetTickLogsResponse).Entries, nil
}

func (c *coreLoopContext) theTickLogShouldContain(table *godog.Table) error {
	entries, err := c.tickLogFor(nil)
	if err != nil {
		return err
	}
	if len(entries) != len(table.Rows)-1 {
		return fmt.Errorf("expected %d tick log entries, got %d", len(table.Rows)-1, len(entries))
	}

	byUsername := make(map[string]*resources.TickLogEntry, len(entries))
	for _, e := range entries {
		byUsername[e.Username()] = e
	}

	for _, row := range table.Rows[1:] {
		username := getCellValueFromTable(table, row, "username")
		entry, ok := byUsername[username]
		if !ok {
			return fmt.Errorf("no tick log entry for %s", username)
		}

		success, err := strconv.ParseBool(getCellValueFromTable(table, row, "success"))
		if err != nil {
			return err
		}
		if entry.Success() != success {
			return fmt.Errorf("%s: expected success=%t, got %t", username, success, entry.Success())
		}
		if !success && entry.ErrorMessage() == "" {
			return fmt.Errorf("%s: failed entry has no error message", username)
		}

		checks := []struct {
			column string
			got    int
		}{
			{"wood_added", entry.WoodAdded()},
			{"food_added", entry.FoodAdded()},
			{"total_wood_after", entry.TotalWoodAfter()},
			{"total_food_after", entry.TotalFoodAfter()},
		}
		for _, check := range checks {
			want, err := parseIntCell(table, row, check.column)
			if err != nil {
				return err
			}
			if check.got != want {
				return fmt.Errorf("%s: expected %s=%d, got %d", username, check.column, want, check.got)
			}
		}
	}
	return nil
}

func (c *coreLoopContext) statsFor(username string) (*resources.TickStats, string, error) {
	id, err := c.userID(username)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.mediator.Send(context.Background(), &resourceQueries.GetUserTickStatsQuery{UserID: id})
	if err != nil {
		return nil, "", err
	}
	return resp.(*resourceQueries.GetUserTickStatsResponse).Stats, id, nil
}

func (c *coreLoopContext) theTickStatsShouldBe(username string, table *godog.Table) error {
	stats, _, err := c.statsFor(username)
	if err != nil {
		return err
	}

	row := table.Rows[1]
	checks := []struct {
		column string
		got    int
	}{
		{"total_ticks", stats.TotalTicks},
		{"successful_ticks", stats.SuccessfulTicks},
		{"failed_ticks", stats.FailedTicks},
		{"total_wood_earned", stats.TotalWoodEarned},
		{"total_food_earned", stats.TotalFoodEarned},
	}
	for _, check := range checks {
		want, err := parseIntCell(table, row, check.column)
		if err != nil {
			return err
		}
		if check.got != want {
			return fmt.Errorf("expected %s=%d, got %d", check.column, want, check.got)
		}
	}
	return nil
}

func (c *coreLoopContext) theTickStatsShouldMatchItsTickLog(username string) error {
	stats, id, err := c.statsFor(username)
	if err != nil {
		return err
	}

	entries, err := c.tickLogFor(&id)
	if err != nil {
		return err
	}

	var wood, food, ok int
	for _, e := range entries {
		wood += e.WoodAdded()
		food += e.FoodAdded()
		if e.Success() {
			ok++
		}
	}

	if stats.TotalTicks != len(entries) || stats.SuccessfulTicks != ok ||
		stats.TotalWoodEarned != wood || stats.TotalFoodEarned != food {
		return fmt.Errorf("stats %+v do not match the log sums (ticks %d, ok %d, wood %d, food %d)",
			*stats, len(entries), ok, wood, food)
	}
	if stats.FailedTicks != stats.TotalTicks-stats.SuccessfulTicks {
		return fmt.Errorf("failed ticks %d is not total minus successful", stats.FailedTicks)
	}
	if stats.Username != username {
		return fmt.Errorf("expected username %s in stats, got %s", username, stats.Username)
	}
	return nil
}

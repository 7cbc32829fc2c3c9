package bdd

import (
	"fmt"
	"os"
	"testing"

	"github.com/cucumber/godog"

	"github.com/andrescamacho/coreloop-go/test/bdd/steps"
	"github.com/andrescamacho/coreloop-go/test/helpers"
)

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/domain", "features/application"},
			Strict:   true,
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

func InitializeScenario(sc *godog.ScenarioContext) {
	// Domain scenarios first so their in-memory task steps take precedence
	steps.InitializeTaskStateMachineScenario(sc)
	steps.InitializeCoreLoopScenario(sc)
}

func TestMain(m *testing.M) {
	if err := helpers.InitializeSharedTestDB(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize shared test database: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	helpers.CloseSharedTestDB()
	os.Exit(code)
}

package cli_test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/coreloop-go/internal/adapters/cli"
)

type cliHarness struct {
	t          *testing.T
	configPath string
}

func newHarness(t *testing.T) *cliHarness {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	configPath := filepath.Join(dir, "config.yaml")
	yaml := fmt.Sprintf("database:\n  type: sqlite\n  path: %s\nlogging:\n  level: error\n",
		filepath.Join(dir, "coreloop.db"))
	require.NoError(t, os.WriteFile(configPath, []byte(yaml), 0644))

	h := &cliHarness{t: t, configPath: configPath}
	h.mustRun("db", "migrate")
	return h
}

func (h *cliHarness) run(args ...string) (string, error) {
	root := cli.NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", h.configPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func (h *cliHarness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, out)
	return out
}

var idPattern = regexp.MustCompile(`(?m)^\s*(?:User|Task) ID:\s+(\S+)`)

func firstID(t *testing.T, out string) string {
	t.Helper()
	m := idPattern.FindStringSubmatch(out)
	require.NotNil(t, m, out)
	return m[1]
}

func TestCLI_SeedIsIdempotent(t *testing.T) {
	h := newHarness(t)

	first := h.mustRun("db", "seed")
	second := h.mustRun("db", "seed")

	assert.Contains(t, first, "Seeded 5 user(s)")
	assert.Contains(t, second, "Seeded 0 user(s)")
	assert.Contains(t, second, "player1")

	list := h.mustRun("user", "list")
	assert.Contains(t, list, "veteran5")
	assert.Contains(t, list, "500")
}

func TestCLI_UserCreateAndGet(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("user", "create", "player9", "player9@game.com")
	id := firstID(t, out)

	got := h.mustRun("user", "get", id)
	assert.Contains(t, got, "player9@game.com")
	assert.Contains(t, got, "Wood:       0")

	byName := h.mustRun("user", "get", "--username", "player9")
	assert.Contains(t, byName, id)

	_, err := h.run("user", "create", "player9", "other@game.com")
	assert.Error(t, err)
}

func TestCLI_UpgradeLifecycle(t *testing.T) {
	// Arrange
	h := newHarness(t)
	h.mustRun("db", "seed")
	userID := firstID(t, h.mustRun("user", "get", "--username", "player1"))
	h.mustRun("config", "set-user", userID)

	// Act
	created := h.mustRun("upgrade", "create", "--type", "building", "--name", "Woodcutter Hut", "--wood", "50", "--food", "30")

	// Assert
	assert.Contains(t, created, "Remaining:  100 wood, 90 food")
	assert.Contains(t, created, "Status:     pending")
	taskID := firstTaskID(t, created)

	assert.Contains(t, h.mustRun("upgrade", "pending"), "Woodcutter Hut")
	assert.Contains(t, h.mustRun("upgrade", "list"), taskID)
	assert.Contains(t, h.mustRun("upgrade", "get", taskID), "Cost:       50 wood, 30 food")

	cancelled := h.mustRun("upgrade", "cancel", taskID)
	assert.Contains(t, cancelled, "Status:     cancelled")
	assert.Contains(t, cancelled, "Balance:    150 wood, 120 food")

	_, err := h.run("upgrade", "cancel", taskID)
	assert.Error(t, err)
}

func TestCLI_UpgradeInsufficientResources(t *testing.T) {
	h := newHarness(t)
	h.mustRun("db", "seed")
	userID := firstID(t, h.mustRun("user", "get", "--username", "newbie4"))

	_, err := h.run("--user", userID, "upgrade", "create", "--type", "unit", "--name", "Knight", "--wood", "50", "--food", "10")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Insufficient wood. Required: 50, Available: 20")
	assert.Contains(t, h.mustRun("resources", "get", userID), "Wood:      20")
}

func TestCLI_TickRunLogsStats(t *testing.T) {
	h := newHarness(t)
	h.mustRun("db", "seed")
	userID := firstID(t, h.mustRun("user", "get", "--username", "builder3"))

	run := h.mustRun("tick", "run")
	h.mustRun("tick", "run")

	assert.Contains(t, run, "5/5 users credited (0 failed)")
	assert.Contains(t, h.mustRun("resources", "get", userID), "Wood:      70")

	logs := h.mustRun("--user", userID, "tick", "logs")
	assert.Contains(t, logs, "builder3")
	assert.Contains(t, logs, "ok")

	stats := h.mustRun("tick", "stats", userID)
	assert.Contains(t, stats, "Ticks:       2 (2 ok, 0 failed)")
	assert.Contains(t, stats, "Wood earned: 20")
}

func TestCLI_NoUserSelected(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("resources", "get")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no user specified")
}

func TestCLI_ConfigShow(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("config", "show")

	assert.Contains(t, out, "Type:             sqlite")
	assert.Contains(t, out, "Default User:     (not set)")
}

var taskIDPattern = regexp.MustCompile(`(?m)^Task ID:\s+(\S+)`)

func firstTaskID(t *testing.T, out string) string {
	t.Helper()
	m := taskIDPattern.FindStringSubmatch(out)
	require.NotNil(t, m, out)
	return m[1]
}

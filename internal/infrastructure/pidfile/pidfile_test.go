package pidfile_test

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/coreloop-go/internal/infrastructure/pidfile"
)

func TestAcquire_WritesCurrentPID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.pid")
	pf := pidfile.New(path)

	require.NoError(t, pf.Acquire())

	pid, err := pf.Read()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	running, ok := pf.Running()
	assert.True(t, ok)
	assert.Equal(t, os.Getpid(), running)
}

func TestAcquire_RefusesWhenProcessAlive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.pid")
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644))

	err := pidfile.New(path).Acquire()

	var already *pidfile.ErrAlreadyRunning
	require.ErrorAs(t, err, &already)
	assert.Equal(t, os.Getpid(), already.PID)
}

func TestAcquire_ReplacesGarbageFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.pid")
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid"), 0644))
	pf := pidfile.New(path)

	require.NoError(t, pf.Acquire())

	pid, err := pf.Read()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestRelease_IsIdempotent(t *testing.T) {
	pf := pidfile.New(filepath.Join(t.TempDir(), "daemon.pid"))
	require.NoError(t, pf.Acquire())

	require.NoError(t, pf.Release())
	require.NoError(t, pf.Release())

	_, ok := pf.Running()
	assert.False(t, ok)
}

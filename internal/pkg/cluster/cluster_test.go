package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearClusterEnv blanks every env key the package reads so each test starts
// from a bare (non-clustered) process.
func clearClusterEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvRole, EnvWorkerID, EnvWorkerAddr, "NODE_APP_INSTANCE", "pm_id", "INSTANCE_ID"} {
		t.Setenv(key, "")
	}
}

func TestIsWorker(t *testing.T) {
	clearClusterEnv(t)
	assert.False(t, IsWorker())

	t.Setenv(EnvRole, "worker")
	assert.True(t, IsWorker())

	t.Setenv(EnvRole, " WORKER ")
	assert.True(t, IsWorker())

	t.Setenv(EnvRole, "master")
	assert.False(t, IsWorker())
}

func TestWorkerID(t *testing.T) {
	clearClusterEnv(t)
	assert.Equal(t, 0, WorkerID())

	t.Setenv(EnvWorkerID, "3")
	assert.Equal(t, 3, WorkerID())

	t.Setenv(EnvWorkerID, "0")
	assert.Equal(t, 0, WorkerID())

	t.Setenv(EnvWorkerID, "-2")
	assert.Equal(t, 0, WorkerID())

	t.Setenv(EnvWorkerID, "abc")
	assert.Equal(t, 0, WorkerID())
}

func TestWorkerListenAddr(t *testing.T) {
	clearClusterEnv(t)
	assert.Empty(t, WorkerListenAddr())

	t.Setenv(EnvWorkerAddr, "  :8001  ")
	assert.Equal(t, ":8001", WorkerListenAddr())
}

func TestIsMainClusterInstance(t *testing.T) {
	clearClusterEnv(t)
	main, ok := IsMainClusterInstance()
	assert.False(t, main)
	assert.False(t, ok)

	t.Setenv("NODE_APP_INSTANCE", "0")
	main, ok = IsMainClusterInstance()
	assert.True(t, main)
	assert.True(t, ok)

	t.Setenv("NODE_APP_INSTANCE", "")
	t.Setenv("pm_id", "2")
	main, ok = IsMainClusterInstance()
	assert.False(t, main)
	assert.True(t, ok)

	t.Setenv("pm_id", "not-a-number")
	main, ok = IsMainClusterInstance()
	assert.False(t, main)
	assert.True(t, ok)
}

func TestShouldRunCron(t *testing.T) {
	clearClusterEnv(t)
	assert.True(t, ShouldRunCron())

	t.Setenv(EnvRole, "worker")
	t.Setenv(EnvWorkerID, "1")
	assert.True(t, ShouldRunCron())

	t.Setenv(EnvWorkerID, "2")
	assert.False(t, ShouldRunCron())

	clearClusterEnv(t)
	t.Setenv("NODE_APP_INSTANCE", "1")
	assert.False(t, ShouldRunCron())
}

func TestShouldLogBootstrap(t *testing.T) {
	clearClusterEnv(t)
	assert.True(t, ShouldLogBootstrap())

	t.Setenv(EnvRole, "worker")
	t.Setenv(EnvWorkerID, "1")
	assert.False(t, ShouldLogBootstrap())

	clearClusterEnv(t)
	t.Setenv("NODE_APP_INSTANCE", "0")
	assert.True(t, ShouldLogBootstrap())
}

func TestShouldLogDevDiagnostics(t *testing.T) {
	clearClusterEnv(t)
	assert.True(t, ShouldLogDevDiagnostics())

	t.Setenv(EnvRole, "worker")
	t.Setenv(EnvWorkerID, "1")
	assert.True(t, ShouldLogDevDiagnostics())

	t.Setenv(EnvWorkerID, "4")
	assert.False(t, ShouldLogDevDiagnostics())
}

func TestValidateOptions(t *testing.T) {
	require.NoError(t, validateOptions(Options{}))
	require.NoError(t, validateOptions(Options{Enable: true, Workers: 0}))
	require.NoError(t, validateOptions(Options{Enable: false, Workers: -5}))
	assert.Error(t, validateOptions(Options{Enable: true, Workers: -1}))
}

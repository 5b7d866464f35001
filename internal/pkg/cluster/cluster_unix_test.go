//go:build !windows

package cluster

import (
	"net"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenTCP(t *testing.T) {
	plain, err := ListenTCP("127.0.0.1:0", false)
	require.NoError(t, err)
	defer plain.Close()

	shared, err := ListenTCP("127.0.0.1:0", true)
	require.NoError(t, err)
	defer shared.Close()

	// SO_REUSEPORT lets a second listener bind the same address.
	addr := shared.Addr().(*net.TCPAddr)
	second, err := ListenTCP(addr.String(), true)
	require.NoError(t, err)
	defer second.Close()
}

func TestNormalizedWorkers(t *testing.T) {
	cpus := runtime.NumCPU()
	assert.Equal(t, cpus, normalizedWorkers(0))
	assert.Equal(t, cpus, normalizedWorkers(-1))
	assert.Equal(t, cpus, normalizedWorkers(cpus+10))
	assert.Equal(t, 1, normalizedWorkers(1))
}

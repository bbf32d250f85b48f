package transport

import (
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadProcStatusReportsLiveProcess(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("/proc is Linux-only")
	}

	mem, cpu, err := readProcStatus(os.Getpid())
	require.NoError(t, err)
	assert.Greater(t, mem, uint64(0))
	assert.GreaterOrEqual(t, cpu, 0.0)
}


package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoschematic-sh/autoschematic/internal/config"
)

func TestBinaryPathResolvesBinarySpec(t *testing.T) {
	path, err := binaryPath(config.Spec{Kind: config.SpecBinary, Path: "/usr/local/bin/aws-connector"})
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/aws-connector", path)
}

func TestBinaryPathResolvesCargoLocalSpec(t *testing.T) {
	path, err := binaryPath(config.Spec{Kind: config.SpecCargoLocal, LocalPath: "/work/target/debug/fs-connector"})
	require.NoError(t, err)
	assert.Equal(t, "/work/target/debug/fs-connector", path)
}

func TestBinaryPathRejectsUnresolvedCargoAndLockfileRefs(t *testing.T) {
	_, err := binaryPath(config.Spec{Kind: config.SpecCargo, Crate: "autoschematic-aws"})
	assert.Error(t, err)

	_, err = binaryPath(config.Spec{Kind: config.SpecLockfileRef, Owner: "autoschematic-sh", Repo: "aws"})
	assert.Error(t, err)
}

func TestBroadcastWriterDropsWhenChannelFull(t *testing.T) {
	logs := make(chan LogLine, 1)
	w := newBroadcastWriter("aws", logs)

	n, err := w.Write([]byte("first line"))
	require.NoError(t, err)
	assert.Equal(t, len("first line"), n)

	// Channel is now full; this write must not block.
	n, err = w.Write([]byte("second line, dropped"))
	require.NoError(t, err)
	assert.Equal(t, len("second line, dropped"), n)

	got := <-logs
	assert.Equal(t, "aws", got.Shortname)
	assert.Equal(t, "first line", got.Line)

	select {
	case <-logs:
		t.Fatal("second line should have been dropped, not queued")
	default:
	}
}

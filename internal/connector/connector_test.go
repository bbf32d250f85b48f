package connector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoschematic-sh/autoschematic/internal/taxonomy"
)

func TestFilterResponseBits(t *testing.T) {
	assert.Equal(t, FilterResponse(1), FilterConfig)
	assert.Equal(t, FilterResponse(2), FilterResource)
	assert.Equal(t, FilterResponse(4), FilterBundle)
	assert.Equal(t, FilterResponse(8), FilterTask)

	combo := FilterConfig | FilterTask
	assert.True(t, combo.Has(FilterConfig))
	assert.True(t, combo.Has(FilterTask))
	assert.False(t, combo.Has(FilterResource))
}

func TestFilterResponseString(t *testing.T) {
	assert.Equal(t, "None", FilterNone.String())
	assert.Equal(t, "Config", FilterConfig.String())
	assert.Equal(t, "Config|Resource", (FilterConfig | FilterResource).String())
}

func TestNullConnectorAnswersZeroValues(t *testing.T) {
	ctx := context.Background()
	var n Connector = Null{}

	resp, err := n.Filter(ctx, "anything")
	require.NoError(t, err)
	assert.Equal(t, FilterNone, resp)

	list, err := n.List(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, list)

	out, err := n.Get(ctx, "anything")
	require.NoError(t, err)
	assert.Nil(t, out)

	v2p, err := n.AddrVirtToPhy(ctx, "anything")
	require.NoError(t, err)
	assert.Equal(t, VirtToPhyNotPresent, v2p.Kind)

	task, err := n.TaskExec(ctx, "addr", nil, nil, nil)
	require.NoError(t, err)
	assert.True(t, task.Done)
}

func TestNullConnectorOpExecIsInvalidOp(t *testing.T) {
	ctx := context.Background()
	var n Connector = Null{}

	_, err := n.OpExec(ctx, "aws/vpc/main.ron", "create")
	require.Error(t, err)
	kind, ok := taxonomy.Of(err)
	require.True(t, ok)
	assert.Equal(t, taxonomy.InvalidOp, kind)
}

func TestNullConnectorEqComparesBytes(t *testing.T) {
	ctx := context.Background()
	var n Connector = Null{}

	eq, err := n.Eq(ctx, "addr", []byte("a"), []byte("a"))
	require.NoError(t, err)
	assert.True(t, eq)

	eq, err = n.Eq(ctx, "addr", []byte("a"), []byte("b"))
	require.NoError(t, err)
	assert.False(t, eq)
}

package template

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoschematic-sh/autoschematic/internal/outputs"
)

func TestGetReadOutputsNoMatchInsideMustache(t *testing.T) {
	assert.Empty(t, GetReadOutputs("name = {{ out://db.ron[host] }}"))
}

func TestGetReadOutputsSingleMatch(t *testing.T) {
	got := GetReadOutputs("name = out://db.ron[host]")
	require.Len(t, got, 1)
	assert.Equal(t, "db.ron", got[0].Path)
	assert.Equal(t, "host", got[0].Key)
}

func TestExpandSubstitutesAndReportsMissing(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := outputs.New(fs)
	strp := func(s string) *string { return &s }
	_, err := store.WriteVirtOutput("db", "primary.ron", outputs.Map{"host": strp("10.0.0.1")}, true)
	require.NoError(t, err)

	res, err := Expand(store, "db", "connect = out://primary.ron[host] port = out://primary.ron[port]")
	require.NoError(t, err)

	assert.True(t, strings.Contains(res.Body, "10.0.0.1"))
	assert.True(t, strings.Contains(res.Body, "out://primary.ron[port]"), "missing placeholder left intact")
	assert.Len(t, res.Missing, 1)
	assert.True(t, res.Missing[ReadOutput{Path: "primary.ron", Key: "port"}])
}

func TestExpandLeavesMustacheWrappedPlaceholderUntouched(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := outputs.New(fs)
	strp := func(s string) *string { return &s }
	_, err := store.WriteVirtOutput("db", "db.ron", outputs.Map{"host": strp("10.0.0.1")}, true)
	require.NoError(t, err)

	res, err := Expand(store, "db", "name = {{ out://db.ron[host] }}")
	require.NoError(t, err)
	assert.Equal(t, "name = {{ out://db.ron[host] }}", res.Body)
	assert.Empty(t, res.Missing)
}

func TestExpandNoMissingLeavesNoPlaceholder(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := outputs.New(fs)
	strp := func(s string) *string { return &s }
	_, err := store.WriteVirtOutput("db", "primary.ron", outputs.Map{"host": strp("10.0.0.1")}, true)
	require.NoError(t, err)

	res, err := Expand(store, "db", "connect = out://primary.ron[host]")
	require.NoError(t, err)
	assert.Empty(t, res.Missing)
	assert.False(t, strings.Contains(res.Body, "out://"))
}

package connlock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoschematic-sh/autoschematic/internal/config"
	"github.com/autoschematic-sh/autoschematic/internal/taxonomy"
)

func TestResolvePinsLockfileRefToBinary(t *testing.T) {
	idx := NewIndex(&Lockfile{Entries: []Entry{
		{Owner: "acme", Repo: "aws-connector", Manifest: "autoschematic.ron", Version: "1.2.3", Path: "/opt/connectors/aws", Protocol: config.ProtocolTarpc},
	}})

	resolved, err := idx.Resolve(config.Spec{
		Kind: config.SpecLockfileRef, Owner: "acme", Repo: "aws-connector", Manifest: "autoschematic.ron",
	})
	require.NoError(t, err)
	assert.Equal(t, config.SpecBinary, resolved.Kind)
	assert.Equal(t, "/opt/connectors/aws", resolved.Path)
	assert.Equal(t, config.ProtocolTarpc, resolved.Protocol)
}

func TestResolvePassesThroughNonLockfileSpecs(t *testing.T) {
	idx := NewIndex(&Lockfile{})

	spec := config.Spec{Kind: config.SpecBinary, Path: "/bin/aws-connector"}
	resolved, err := idx.Resolve(spec)
	require.NoError(t, err)
	assert.Equal(t, spec, resolved)
}

func TestResolveErrorsOnMissingEntry(t *testing.T) {
	idx := NewIndex(&Lockfile{})

	_, err := idx.Resolve(config.Spec{Kind: config.SpecLockfileRef, Owner: "acme", Repo: "missing", Manifest: "autoschematic.ron"})
	require.Error(t, err)
	kind, ok := taxonomy.Of(err)
	require.True(t, ok)
	assert.Equal(t, taxonomy.InvalidConnectorSpec, kind)
}

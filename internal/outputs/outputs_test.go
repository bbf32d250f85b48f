package outputs

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func TestWriteVirtOutputMergeAndDelete(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs)

	path, err := s.WriteVirtOutput("aws", "iam/user/jon.ron", Map{"arn": strp("arn:aws:iam::1:user/jon")}, true)
	require.NoError(t, err)
	require.NotEmpty(t, path)

	v, ok, err := s.LoadOutput("aws", "iam/user/jon.ron", "arn")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "arn:aws:iam::1:user/jon", v)

	_, err = s.WriteVirtOutput("aws", "iam/user/jon.ron", Map{"tag": strp("prod")}, true)
	require.NoError(t, err)

	v, ok, err = s.LoadOutput("aws", "iam/user/jon.ron", "arn")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "arn:aws:iam::1:user/jon", v, "existing key retained across merge")

	path, err = s.WriteVirtOutput("aws", "iam/user/jon.ron", Map{"arn": nil, "tag": nil}, true)
	require.NoError(t, err)
	assert.Empty(t, path, "file deleted when resulting map is empty")

	exists, err := afero.Exists(fs, outPath("aws", "iam/user/jon.ron"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestWriteVirtOutputRefusesOverwriteWithoutMerge(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs)

	_, err := s.WriteVirtOutput("aws", "iam/user/jon.ron", Map{"arn": strp("a")}, true)
	require.NoError(t, err)

	_, err = s.WriteVirtOutput("aws", "iam/user/jon.ron", Map{"arn": strp("b")}, false)
	assert.Error(t, err)
}

func TestLinkAndUnlinkPhyOutput(t *testing.T) {
	fs := afero.NewOsFs()
	dir := t.TempDir()
	s := New(afero.NewBasePathFs(fs, dir))

	_, err := s.WriteVirtOutput("iam", "user/jon.ron", Map{"arn": strp("arn:aws:iam::1:user/AIDA123")}, true)
	require.NoError(t, err)

	path, err := s.LinkPhyOutput("iam", "user/jon.ron", "user/AIDA123")
	require.NoError(t, err)
	assert.NotEmpty(t, path)

	m, ok, err := s.ReadRecurse("iam", "user/AIDA123")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "arn:aws:iam::1:user/AIDA123", m["arn"])

	// Re-linking an already-correct link is a no-op (idempotent).
	again, err := s.LinkPhyOutput("iam", "user/jon.ron", "user/AIDA123")
	require.NoError(t, err)
	assert.Empty(t, again)

	unlinked, err := s.UnlinkPhyOutput("iam", "user/AIDA123")
	require.NoError(t, err)
	assert.NotEmpty(t, unlinked)

	exists, err := afero.Exists(s.FS, outPath("iam", "user/AIDA123"))
	require.NoError(t, err)
	assert.False(t, exists)
}

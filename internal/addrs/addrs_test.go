package addrs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitPrefixAddr(t *testing.T) {
	prefixes := []string{"aws", "aws/iam"}

	prefix, virt, ok := SplitPrefixAddr(prefixes, "aws/iam/user/jon.ron")
	require.True(t, ok)
	assert.Equal(t, "aws/iam", prefix)
	assert.Equal(t, "user/jon.ron", virt)

	prefix, virt, ok = SplitPrefixAddr(prefixes, "aws/vpc/main.ron")
	require.True(t, ok)
	assert.Equal(t, "aws", prefix)
	assert.Equal(t, "vpc/main.ron", virt)

	_, _, ok = SplitPrefixAddr(prefixes, "gcp/vpc/main.ron")
	assert.False(t, ok)
}

func TestValidatePrefixes(t *testing.T) {
	assert.NoError(t, ValidatePrefixes([]string{"a", "b"}))
	assert.Error(t, ValidatePrefixes([]string{"a", "a/inner"}))
	assert.NoError(t, ValidatePrefixes([]string{"/"}))
	assert.Error(t, ValidatePrefixes([]string{"/", "a"}))
}

func TestMatchesFilter(t *testing.T) {
	cases := []struct {
		addr, filter string
		want         bool
	}{
		{"aws/iam/user/jon.ron", "./aws/iam/user/jon.ron", true},
		{"aws/iam/user/jon.ron", "./", true},
		{"aws/iam/user/jon.ron", "./aws/*", true},
		{"aws/iam/user/jon.ron", "./aws/", true},
		{"./aws/vpc/us-east-1/vpcs/main.ron", "aws/vpc/us-east-1", true},
		{"aws/vpc/us-east-1/vpcs/main.ron", "./aws/vpc/us-east-2", false},
		{"./aws/vpc/us-east-1/vpcs/main.ron", "aws/vpc/*/vpcs", true},
		{"aws/iam/user/jon.ron", "aws/vpc/./", false},
		{"aws/iam/user/jon.ron", "*/*/user", true},
		{"aws/iam/user/jon.ron", "*/iam/user/other", false},
		{"aws/iam/user/jon.ron", "*/*/user/jon.ron", true},
		{"aws/vpc/us-east-1/vpcs/main.ron", "aws/vpc/*/vpcs", true},
		{"aws/vpc/us-east-1/vpcs/main.ron", "aws/vpc/us-east-2", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, MatchesFilter(c.addr, c.filter), "addr=%q filter=%q", c.addr, c.filter)
	}
}

func TestMatchesFilterImplicitSuffix(t *testing.T) {
	assert.True(t, MatchesFilter("any/nonempty/addr.ron", "**/*"))
}

func TestMatchesFilterWildcardMonotone(t *testing.T) {
	// Replacing any one filter component with "*" never turns a true
	// match into a false one.
	addr := "aws/iam/user/jon.ron"
	filter := "aws/iam/user/jon.ron"
	parts := []string{"aws", "iam", "user", "jon.ron"}
	for i := range parts {
		mutated := append([]string{}, parts...)
		mutated[i] = "*"
		wildcarded := joinSlash(mutated)
		if MatchesFilter(addr, filter) {
			assert.True(t, MatchesFilter(addr, wildcarded))
		}
	}
}

func joinSlash(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += "/" + p
	}
	return out
}

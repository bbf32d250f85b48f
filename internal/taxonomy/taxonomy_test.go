package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServerTagFormat(t *testing.T) {
	assert.Equal(t, "<!--- [Configuration] -->", ServerTag(New(Configuration, "bad prefix")))
	assert.Equal(t, "<!--- [Transport] -->", ServerTag(Wrap(Transport, nil, "handshake failed")))
}

func TestServerTagDefaultsToIOForUntaggedError(t *testing.T) {
	assert.Equal(t, "<!--- [IO] -->", ServerTag(assertErr{}))
}

type assertErr struct{}

func (assertErr) Error() string { return "plain error" }

func TestCLILineIncludesKindPrefix(t *testing.T) {
	err := New(InvalidAddress, "no connector claims %s", "aws/vpc/x")
	assert.Equal(t, "[InvalidAddress] InvalidAddress: no connector claims aws/vpc/x", CLILine(err))
}

func TestOfUnwrapsWrappedKind(t *testing.T) {
	kind, ok := Of(Wrap(Crypto, assertErr{}, "seal failed"))
	assert.True(t, ok)
	assert.Equal(t, Crypto, kind)
}

func TestIsDeferredOnlyTrueForDeferredKind(t *testing.T) {
	assert.True(t, IsDeferred(New(Deferred, "waiting on missing outputs")))
	assert.False(t, IsDeferred(New(IO, "disk full")))
	assert.False(t, IsDeferred(assertErr{}))
}

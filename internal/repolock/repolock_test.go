package repolock

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInmemLockerRejectsDoubleAcquire(t *testing.T) {
	ctx := context.Background()
	l := NewInmem()

	lock, err := l.TryLock(ctx, "aws")
	require.NoError(t, err)

	_, err = l.TryLock(ctx, "aws")
	assert.Error(t, err)

	require.NoError(t, lock.Unlock())

	lock2, err := l.TryLock(ctx, "aws")
	require.NoError(t, err)
	require.NoError(t, lock2.Unlock())
}

func TestInmemLockerUnlockIsIdempotent(t *testing.T) {
	ctx := context.Background()
	l := NewInmem()

	lock, err := l.TryLock(ctx, "aws")
	require.NoError(t, err)

	assert.NoError(t, lock.Unlock())
	assert.NoError(t, lock.Unlock())
	assert.NoError(t, lock.Unlock())
}

func TestInmemLockerIndependentPathsDoNotContend(t *testing.T) {
	ctx := context.Background()
	l := NewInmem()

	awsLock, err := l.TryLock(ctx, "aws")
	require.NoError(t, err)
	defer awsLock.Unlock()

	gcpLock, err := l.TryLock(ctx, "gcp")
	require.NoError(t, err)
	defer gcpLock.Unlock()
}

func TestOndiskLockerCreatesLockFileUnderLocksDir(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	l := NewOndisk(dir, nil)

	lock, err := l.TryLock(ctx, "aws/vpc")
	require.NoError(t, err)
	defer lock.Unlock()

	_, statErr := os.Stat(l.lockFilePath("aws/vpc"))
	assert.NoError(t, statErr)
}

func TestOndiskLockerUnlockThenReacquire(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	l := NewOndisk(dir, nil)

	lock, err := l.TryLock(ctx, "aws")
	require.NoError(t, err)
	require.NoError(t, lock.Unlock())
	require.NoError(t, lock.Unlock(), "idempotent unlock")

	lock2, err := l.TryLock(ctx, "aws")
	require.NoError(t, err)
	require.NoError(t, lock2.Unlock())
}

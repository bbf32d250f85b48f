package task

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoTask struct {
	fail bool
}

func (t *echoTask) Run(ctx context.Context, inbox <-chan RegistryMessage, outbox chan<- Message, arg []byte) error {
	outbox <- Message{StateChange: &StateChange{State: StateRunning}}
	for msg := range inbox {
		if msg.ShutDown {
			break
		}
		if msg.IssueComment != nil {
			outbox <- Message{IssueComment: msg.IssueComment}
		}
	}
	if t.fail {
		return fmt.Errorf("boom")
	}
	return nil
}

func testKey() Key {
	return Key{Owner: "acme", Repo: "infra", Prefix: "aws", TaskName: "pr-task"}
}

func TestSpawnRejectsDuplicateKey(t *testing.T) {
	r := NewRegistry(nil)
	key := testKey()
	require.NoError(t, r.Spawn(context.Background(), key, &echoTask{}, nil))

	err := r.Spawn(context.Background(), key, &echoTask{}, nil)
	assert.Error(t, err)

	require.NoError(t, r.TrySend(key, RegistryMessage{ShutDown: true}))
	require.NoError(t, r.Wait(key))
}

func TestStateTransitionsToRunningThenReapedByWait(t *testing.T) {
	r := NewRegistry(nil)
	key := testKey()
	require.NoError(t, r.Spawn(context.Background(), key, &echoTask{}, nil))

	require.Eventually(t, func() bool {
		s, _, err := r.State(key)
		return err == nil && s == StateRunning
	}, time.Second, time.Millisecond)

	require.NoError(t, r.TrySend(key, RegistryMessage{ShutDown: true}))
	require.NoError(t, r.Wait(key))

	_, _, err := r.State(key)
	assert.Error(t, err, "task should be reaped after Wait")
}

func TestStateTransitionsToErrorOnFailure(t *testing.T) {
	r := NewRegistry(nil)
	key := testKey()
	require.NoError(t, r.Spawn(context.Background(), key, &echoTask{fail: true}, nil))

	require.NoError(t, r.TrySend(key, RegistryMessage{ShutDown: true}))

	require.Eventually(t, func() bool {
		s, _, err := r.State(key)
		return err == nil && s == StateError
	}, time.Second, time.Millisecond)

	require.NoError(t, r.Wait(key))
}

func TestSubscribeReceivesIssueCommentBroadcast(t *testing.T) {
	r := NewRegistry(nil)
	key := testKey()
	require.NoError(t, r.Spawn(context.Background(), key, &echoTask{}, nil))

	ch, cancel, err := r.Subscribe(key)
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, r.TrySend(key, RegistryMessage{IssueComment: &IssueComment{Owner: "acme", Repo: "infra", Issue: 7, User: "jon", Body: "plan"}}))

	select {
	case m := <-ch:
		if m.IssueComment == nil {
			m = <-ch
		}
		require.NotNil(t, m.IssueComment)
		assert.Equal(t, "plan", m.IssueComment.Body)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast")
	}

	require.NoError(t, r.TrySend(key, RegistryMessage{ShutDown: true}))
	require.NoError(t, r.Wait(key))
}

func TestRunIDIsAssignedAndStableAcrossCalls(t *testing.T) {
	r := NewRegistry(nil)
	key := testKey()
	require.NoError(t, r.Spawn(context.Background(), key, &echoTask{}, nil))

	id1, err := r.RunID(key)
	require.NoError(t, err)
	id2, err := r.RunID(key)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
	assert.NotEqual(t, id1.String(), "00000000-0000-0000-0000-000000000000")

	require.NoError(t, r.TrySend(key, RegistryMessage{ShutDown: true}))
	require.NoError(t, r.Wait(key))
}

func TestTrySendUnknownKeyErrors(t *testing.T) {
	r := NewRegistry(nil)
	err := r.TrySend(testKey(), RegistryMessage{ShutDown: true})
	assert.Error(t, err)
}

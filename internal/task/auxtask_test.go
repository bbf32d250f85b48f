package task

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuxTaskRegistryResolvesClaimedIssue(t *testing.T) {
	a := NewAuxTaskRegistry()
	a.Claim("acme", "infra", "aws", 7, "pr-task")

	name, err := a.Resolve("aws", IssueComment{Owner: "acme", Repo: "infra", Issue: 7})
	require.NoError(t, err)
	assert.Equal(t, "pr-task", name)
}

func TestAuxTaskRegistryResolveErrorsOnUnclaimedIssue(t *testing.T) {
	a := NewAuxTaskRegistry()
	_, err := a.Resolve("aws", IssueComment{Owner: "acme", Repo: "infra", Issue: 99})
	assert.Error(t, err)
}

func TestAuxTaskRegistryReleaseForgetsClaim(t *testing.T) {
	a := NewAuxTaskRegistry()
	a.Claim("acme", "infra", "aws", 7, "pr-task")
	a.Release("acme", "infra", "aws", 7)

	_, err := a.Resolve("aws", IssueComment{Owner: "acme", Repo: "infra", Issue: 7})
	assert.Error(t, err)
}

func TestAuxTaskRegistryRouteDeliversToRegistry(t *testing.T) {
	r := NewRegistry(nil)
	key := testKey()
	require.NoError(t, r.Spawn(context.Background(), key, &echoTask{}, nil))

	ch, cancel, err := r.Subscribe(key)
	require.NoError(t, err)
	defer cancel()

	a := NewAuxTaskRegistry()
	a.Claim(key.Owner, key.Repo, key.Prefix, 7, key.TaskName)

	require.NoError(t, a.Route(r, key.Prefix, IssueComment{Owner: key.Owner, Repo: key.Repo, Issue: 7, Body: "plan"}))

	m := <-ch
	if m.IssueComment == nil {
		m = <-ch
	}
	require.NotNil(t, m.IssueComment)
	assert.Equal(t, "plan", m.IssueComment.Body)

	require.NoError(t, r.TrySend(key, RegistryMessage{ShutDown: true}))
	require.NoError(t, r.Wait(key))
}

func TestAuxTaskRegistryRouteErrorsWhenUnclaimed(t *testing.T) {
	r := NewRegistry(nil)
	a := NewAuxTaskRegistry()
	err := a.Route(r, "aws", IssueComment{Owner: "acme", Repo: "infra", Issue: 1})
	assert.Error(t, err)
}

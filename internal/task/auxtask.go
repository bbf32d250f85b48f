package task

import (
	"fmt"
	"sync"

	"github.com/autoschematic-sh/autoschematic/internal/taxonomy"
)

// issueKey identifies one GitHub issue or pull request under a prefix.
type issueKey struct {
	Owner  string
	Repo   string
	Prefix string
	Issue  uint64
}

// AuxTaskRegistry correlates an inbound IssueComment to the task name
// that claimed its issue/PR number, so a webhook handler can route a
// comment to Registry.TrySend without tracking task names itself. A
// task claims an issue by calling Claim once it has opened (or taken
// over) the pull request it will drive; the claim stays in place until
// Release is called, and the Registry does not release it when the
// task finishes.
type AuxTaskRegistry struct {
	mu     sync.RWMutex
	byShow map[issueKey]string
}

// NewAuxTaskRegistry returns an empty AuxTaskRegistry.
func NewAuxTaskRegistry() *AuxTaskRegistry {
	return &AuxTaskRegistry{byShow: make(map[issueKey]string)}
}

// Claim records that taskName under prefix is driving issue/PR number
// issue in owner/repo. A second Claim for the same issue overwrites the
// previous task name, matching the case where a new run takes over an
// existing pull request.
func (a *AuxTaskRegistry) Claim(owner, repo, prefix string, issue uint64, taskName string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.byShow[issueKey{owner, repo, prefix, issue}] = taskName
}

// Release forgets the claim on an issue/PR, if any.
func (a *AuxTaskRegistry) Release(owner, repo, prefix string, issue uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.byShow, issueKey{owner, repo, prefix, issue})
}

// Resolve returns the task name claiming comment's issue/PR under
// prefix, or an error if nothing has claimed it.
func (a *AuxTaskRegistry) Resolve(prefix string, comment IssueComment) (string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	name, ok := a.byShow[issueKey{comment.Owner, comment.Repo, prefix, comment.Issue}]
	if !ok {
		return "", taxonomy.New(taxonomy.Configuration, "no task claims %s/%s#%d under prefix %q",
			comment.Owner, comment.Repo, comment.Issue, prefix)
	}
	return name, nil
}

// Route resolves comment's claiming task under prefix and forwards it
// to reg via TrySend, a one-call convenience for webhook dispatch.
func (a *AuxTaskRegistry) Route(reg *Registry, prefix string, comment IssueComment) error {
	name, err := a.Resolve(prefix, comment)
	if err != nil {
		return err
	}
	key := Key{Owner: comment.Owner, Repo: comment.Repo, Prefix: prefix, TaskName: name}
	if err := reg.TrySend(key, RegistryMessage{IssueComment: &comment}); err != nil {
		return fmt.Errorf("routing comment on %s to task %s: %w", key, name, err)
	}
	return nil
}

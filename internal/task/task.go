// Package task implements the auxiliary task subsystem: a registry of
// long-running, message-driven background tasks (e.g. "open a pull
// request and drive it through plan/apply/merge") keyed by (owner,
// repo, prefix, task name), each with a bidirectional channel pair and
// a small state machine.
//
// The message-passing design, channels rather than a polling loop,
// follows the same channel-driven hook style used elsewhere for
// long-lived worker supervision in this module.
package task

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/autoschematic-sh/autoschematic/internal/taxonomy"
)

// State is a task's lifecycle state.
type State int

const (
	StateStopped State = iota
	StateRunning
	StateSucceeded
	StateError
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateRunning:
		return "Running"
	case StateSucceeded:
		return "Succeeded"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// StateChange pairs a State with the failure detail Error carries.
type StateChange struct {
	State   State
	Message string
}

// IssueComment is a single issue/PR comment a task is notified of or
// emits.
type IssueComment struct {
	Owner string
	Repo  string
	Issue uint64
	User  string
	Body  string
}

// RegistryMessage is sent from the registry down to a running task.
type RegistryMessage struct {
	IssueComment *IssueComment
	ShutDown     bool
}

// Message is sent from a running task up to the registry and any
// broadcast subscribers.
type Message struct {
	StateChange *StateChange
	IssueComment *IssueComment
	LogLine     string
}

// Key identifies one running task instance.
type Key struct {
	Owner    string
	Repo     string
	Prefix   string
	TaskName string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s:%s/%s", k.Owner, k.Repo, k.Prefix, k.TaskName)
}

// Handle is a Task implementation's entry point: Run is invoked once on
// a fresh goroutine, with inbox delivering RegistryMessages and outbox
// accepting Messages the task wants broadcast. Run must return promptly
// after inbox is closed or a ShutDown message arrives.
type Handle interface {
	Run(ctx context.Context, inbox <-chan RegistryMessage, outbox chan<- Message, arg []byte) error
}

// entry is the registry's bookkeeping for one running task.
type entry struct {
	runID     uuid.UUID
	outbox    chan RegistryMessage
	broadcast *broadcaster
	state     State
	message   string
	done      chan struct{}
}

// Registry tracks every running task instance, keyed by (owner, repo,
// prefix, task name).
type Registry struct {
	logger  hclog.Logger
	mu      sync.RWMutex
	entries map[Key]*entry
}

// NewRegistry returns an empty Registry. A nil logger is replaced with
// hclog.NewNullLogger(), the way cache.New does.
func NewRegistry(logger hclog.Logger) *Registry {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Registry{logger: logger, entries: make(map[Key]*entry)}
}

// Spawn starts h.Run on a new goroutine under key, registering it so
// TrySend/SubscribeState/Wait can reach it. It is an error to Spawn a
// key that is already registered and not yet reaped by Wait.
func (r *Registry) Spawn(ctx context.Context, key Key, h Handle, arg []byte) error {
	r.mu.Lock()
	if _, exists := r.entries[key]; exists {
		r.mu.Unlock()
		return taxonomy.New(taxonomy.Configuration, "task %s is already running", key)
	}
	e := &entry{
		runID:     uuid.New(),
		outbox:    make(chan RegistryMessage, 8),
		broadcast: newBroadcaster(),
		state:     StateStopped,
		done:      make(chan struct{}),
	}
	r.entries[key] = e
	r.mu.Unlock()

	r.logger.Debug("spawning task", "key", key, "run_id", e.runID)

	go func() {
		defer close(e.done)
		up := make(chan Message, 8)
		go func() {
			for m := range up {
				if m.StateChange != nil {
					r.mu.Lock()
					e.state = m.StateChange.State
					e.message = m.StateChange.Message
					r.mu.Unlock()
				}
				e.broadcast.publish(m)
			}
		}()

		err := h.Run(ctx, e.outbox, up, arg)
		close(up)

		r.mu.Lock()
		if err != nil {
			e.state = StateError
			e.message = err.Error()
		} else if e.state != StateError {
			e.state = StateSucceeded
		}
		r.mu.Unlock()

		if err != nil {
			r.logger.Error("task run failed", "key", key, "run_id", e.runID, "error", err)
		} else {
			r.logger.Debug("task run finished", "key", key, "run_id", e.runID)
		}
	}()
	return nil
}

// TrySend delivers message to the running task at key without
// blocking.
func (r *Registry) TrySend(key Key, message RegistryMessage) error {
	r.mu.RLock()
	e, ok := r.entries[key]
	r.mu.RUnlock()
	if !ok {
		return taxonomy.New(taxonomy.Configuration, "task not found for key %s", key)
	}
	select {
	case e.outbox <- message:
		return nil
	default:
		return taxonomy.New(taxonomy.IO, "task %s inbox is full", key)
	}
}

// State returns the current lifecycle state and detail message for key.
func (r *Registry) State(key Key) (State, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[key]
	if !ok {
		return 0, "", taxonomy.New(taxonomy.Configuration, "task not found for key %s", key)
	}
	return e.state, e.message, nil
}

// RunID returns the unique identifier assigned to key's current run,
// distinguishing successive Spawn calls against the same Key (e.g. two
// separate PR-driving runs of the same task name) in logs and traces.
func (r *Registry) RunID(key Key) (uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[key]
	if !ok {
		return uuid.Nil, taxonomy.New(taxonomy.Configuration, "task not found for key %s", key)
	}
	return e.runID, nil
}

// Subscribe returns a channel of every Message the task at key
// broadcasts from this point on; it does not replay history. The
// caller must drain it or call the returned cancel func to avoid
// leaking the subscription.
func (r *Registry) Subscribe(key Key) (ch <-chan Message, cancel func(), err error) {
	r.mu.RLock()
	e, ok := r.entries[key]
	r.mu.RUnlock()
	if !ok {
		return nil, nil, taxonomy.New(taxonomy.Configuration, "task not found for key %s", key)
	}
	return e.broadcast.subscribe()
}

// Wait blocks until the task at key's goroutine has exited, then
// removes it from the registry so the key can be reused.
func (r *Registry) Wait(key Key) error {
	r.mu.RLock()
	e, ok := r.entries[key]
	r.mu.RUnlock()
	if !ok {
		return taxonomy.New(taxonomy.Configuration, "task not found for key %s", key)
	}
	<-e.done
	r.mu.Lock()
	delete(r.entries, key)
	r.mu.Unlock()
	return nil
}

// Package transport implements the out-of-process connector transport:
// launching a connector binary under hashicorp/go-plugin, performing
// its magic-cookie handshake, dispensing a connector.Connector bound
// to it, and supervising the worker for crashes.
//
// The go-plugin client lifecycle used here is NewClient, Client,
// Dispense and Kill.
package transport

import (
	"context"
	"fmt"
	"os/exec"

	goplugin "github.com/hashicorp/go-plugin"
	"github.com/hashicorp/go-hclog"

	"github.com/autoschematic-sh/autoschematic/internal/config"
	"github.com/autoschematic-sh/autoschematic/internal/connector"
	connrpc "github.com/autoschematic-sh/autoschematic/internal/connector/rpc"
	"github.com/autoschematic-sh/autoschematic/internal/keystore"
	"github.com/autoschematic-sh/autoschematic/internal/taxonomy"
)

// LogLine is one line of a connector worker's stderr, broadcast to
// every subscriber.
type LogLine struct {
	Shortname string
	Line      string
}

// Worker is a live, out-of-process connector plus the go-plugin client
// that owns its subprocess.
type Worker struct {
	connector.Connector
	shortname string
	client    *goplugin.Client
	pid       int
	logs      chan LogLine
}

// Kill terminates the subprocess. Safe to call multiple times.
func (w *Worker) Kill() {
	w.client.Kill()
}

// Logs returns the channel onto which the worker's stderr lines are
// broadcast. The channel is not closed when the worker exits.
func (w *Worker) Logs() <-chan LogLine {
	return w.logs
}

// binaryPath resolves the executable path for spec: a Binary spec
// names its path directly, except that a path pointing at a directory
// is resolved against that directory's manifest (see resolveBinary);
// a CargoLocal spec is resolved the same way from LocalPath (nothing
// is built from source; an already-built executable is expected).
// Cargo and LockfileRef specs are rejected with an error.
func binaryPath(spec config.Spec) (string, error) {
	switch spec.Kind {
	case config.SpecBinary:
		return resolveBinary(spec.Path)
	case config.SpecCargoLocal:
		return resolveBinary(spec.LocalPath)
	case config.SpecCargo:
		return "", taxonomy.New(taxonomy.InvalidConnectorSpec, "cargo-registry connector specs must be resolved by a lockfile before spawning")
	case config.SpecLockfileRef:
		return "", taxonomy.New(taxonomy.InvalidConnectorSpec, "lockfile-ref connector specs must be resolved via connlock.Index before spawning")
	default:
		return "", taxonomy.New(taxonomy.InvalidConnectorSpec, "unknown connector spec kind %d", spec.Kind)
	}
}

// Spawn launches the connector binary named by spec as a child
// process, performs the go-plugin handshake, and returns a live Worker
// whose Connector methods proxy to the child over net/rpc. prefix and
// env are injected into the child's environment so the connector can
// see which filesystem subtree it is scoped to.
func Spawn(ctx context.Context, shortname string, spec config.Spec, prefix string, env map[string]string, ks keystore.KeyStore) (connector.Connector, error) {
	w, err := SpawnWorker(ctx, shortname, spec, prefix, env, ks)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// SpawnWorker is Spawn but returns the concrete *Worker, giving the
// caller access to Status/Kill/Logs for supervision.
func SpawnWorker(ctx context.Context, shortname string, spec config.Spec, prefix string, env map[string]string, ks keystore.KeyStore) (*Worker, error) {
	path, err := binaryPath(spec)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, path)
	cmd.Env = append(cmd.Env, fmt.Sprintf("AUTOSCHEMATIC_PREFIX=%s", prefix))
	for k, v := range env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	logs := make(chan LogLine, 64)

	client := goplugin.NewClient(&goplugin.ClientConfig{
		HandshakeConfig:  connrpc.Handshake,
		Plugins:          connrpc.PluginMap,
		Cmd:              cmd,
		AllowedProtocols: []goplugin.Protocol{goplugin.ProtocolNetRPC},
		Logger:           hclog.NewNullLogger(),
		SyncStderr:       newBroadcastWriter(shortname, logs),
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		close(logs)
		return nil, taxonomy.Wrap(taxonomy.Transport, err, "handshake with connector %s", shortname)
	}

	raw, err := rpcClient.Dispense("connector")
	if err != nil {
		client.Kill()
		close(logs)
		return nil, taxonomy.Wrap(taxonomy.Transport, err, "dispensing connector %s", shortname)
	}

	conn, ok := raw.(connector.Connector)
	if !ok {
		client.Kill()
		close(logs)
		return nil, taxonomy.New(taxonomy.Transport, "connector %s did not dispense a Connector", shortname)
	}

	pid := 0
	if cmd.Process != nil {
		pid = cmd.Process.Pid
	}

	return &Worker{Connector: conn, shortname: shortname, client: client, pid: pid, logs: logs}, nil
}

// broadcastWriter adapts a connector worker's stderr into LogLine
// messages on a channel, one per written chunk. It never blocks the
// child process: a full channel drops the line rather than stalling
// the subprocess's stderr pipe.
type broadcastWriter struct {
	shortname string
	logs      chan LogLine
}

func newBroadcastWriter(shortname string, logs chan LogLine) *broadcastWriter {
	return &broadcastWriter{shortname: shortname, logs: logs}
}

func (w *broadcastWriter) Write(p []byte) (int, error) {
	line := LogLine{Shortname: w.shortname, Line: string(p)}
	select {
	case w.logs <- line:
	default:
	}
	return len(p), nil
}

// Package annex wraps the git-annex executable. It batches the many
// small administrative commands a content-tracking workflow issues into
// few physical invocations, resolves content keys from symlink chains
// into the object store, and reconstructs keys from raw attributes.
package annex

import "path/filepath"

// ToolName is the external content store executable.
const ToolName = "git-annex"

// GitName is the plain git executable, used for repository-level
// commands (init, commit, config).
const GitName = "git"

// Config holds the static settings of a Tool.
type Config struct {
	// BinDir is the directory containing the git-annex and git
	// binaries. Empty means resolve through PATH.
	BinDir string

	// RemotesDir is the directory holding external special remote
	// helper executables; it is prepended to PATH for every
	// invocation so git-annex can spawn them.
	RemotesDir string

	// RepoDir is the repository the commands operate on. It becomes
	// the working directory of every invocation that does not
	// override it.
	RepoDir string
}

// Tool issues git and git-annex commands against one repository.
//
// A Tool created by New executes every command immediately. Batching
// returns a derived Tool holding its own pending-command set: commands
// submitted to it as deferred may be delayed, grouped by invocation
// signature, and executed together when Flush drains the scope. Scopes
// nest; each derived Tool is independent of its parent.
type Tool struct {
	cfg     Config
	runner  Runner
	pending *pendingBatches
}

// New creates a Tool that shells out to the real executables.
func New(cfg Config) *Tool {
	if cfg.RepoDir == "" {
		cfg.RepoDir = "."
	}
	return &Tool{
		cfg:    cfg,
		runner: newExecRunner(cfg.BinDir, cfg.RemotesDir),
	}
}

// NewWithRunner creates a Tool with a caller-supplied Runner.
// Tests use this to substitute a fake process.
func NewWithRunner(cfg Config, runner Runner) *Tool {
	if cfg.RepoDir == "" {
		cfg.RepoDir = "."
	}
	return &Tool{cfg: cfg, runner: runner}
}

// RepoDir returns the repository directory commands run in.
func (t *Tool) RepoDir() string {
	return t.cfg.RepoDir
}

// toolPath resolves the executable path for a command.
func (t *Tool) toolPath(git bool) string {
	name := ToolName
	if git {
		name = GitName
	}
	if t.cfg.BinDir == "" {
		return name
	}
	return filepath.Join(t.cfg.BinDir, name)
}

// CallOption adjusts how a single command submission behaves.
type CallOption func(*callOptions)

type callOptions struct {
	deferred bool
}

// Deferred marks a command as eligible for batching: when the Tool is a
// batching scope, the command runs at Flush rather than right away.
// Without an active scope the option has no effect.
func Deferred() CallOption {
	return func(o *callOptions) { o.deferred = true }
}

func applyCallOptions(opts []CallOption) callOptions {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

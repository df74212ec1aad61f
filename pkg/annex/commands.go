package annex

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// checkPresentPriority pushes presence checks to the end of a scope so
// they observe the effect of any registrations drained before them.
const checkPresentPriority = -100

// executeOutput runs a command immediately and returns its output with
// trailing newlines stripped.
func (t *Tool) executeOutput(ctx context.Context, req execRequest) (string, error) {
	var out string
	req.output = func(s string) { out = s }
	req.now = true
	if err := t.execute(ctx, req); err != nil {
		return "", err
	}
	return out, nil
}

// Version returns the git-annex version report.
func (t *Tool) Version(ctx context.Context) (string, error) {
	return t.executeOutput(ctx, execRequest{args: []string{"version"}})
}

// InitRepo initializes a git repository with annex support in RepoDir.
func (t *Tool) InitRepo(ctx context.Context) error {
	if err := t.execute(ctx, execRequest{git: true, args: []string{"init"}, now: true}); err != nil {
		return err
	}
	return t.execute(ctx, execRequest{args: []string{"init"}, now: true})
}

// Commit records staged changes with the given message.
func (t *Tool) Commit(ctx context.Context, msg string) error {
	return t.execute(ctx, execRequest{git: true, args: []string{"commit", "-m", msg}, now: true})
}

// InitRemote initializes a git-annex special remote. Unless the params
// say otherwise, encryption is disabled.
func (t *Tool) InitRemote(ctx context.Context, name, remoteType string, params map[string]string) error {
	args := []string{"initremote", name, "type=" + remoteType}
	if _, ok := params["encryption"]; !ok {
		args = append(args, "encryption=none")
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, k+"="+params[k])
	}
	return t.execute(ctx, execRequest{args: args, now: true})
}

// InitRemoteExternal initializes an external special remote of the
// given type.
func (t *Tool) InitRemoteExternal(ctx context.Context, name, externalType string) error {
	return t.InitRemote(ctx, name, "external", map[string]string{"externaltype": externalType})
}

// Add puts a file under annex control.
func (t *Tool) Add(ctx context.Context, path string, opts ...CallOption) error {
	o := applyCallOptions(opts)
	return t.execute(ctx, execRequest{
		args:      []string{"add"},
		batchArgs: []string{path},
		now:       !o.deferred,
	})
}

// FromKey sets up path as a link to the given key. Submissions for a
// path that already links to the key are dropped at drain time;
// conflicting submissions for one path fail the scope.
func (t *Tool) FromKey(ctx context.Context, key, path string, opts ...CallOption) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	o := applyCallOptions(opts)
	return t.execute(ctx, execRequest{
		args:      []string{"fromkey", "--force"},
		batchArgs: []string{key, abs},
		now:       !o.deferred,
		preproc:   fromKeyPreproc,
	})
}

// fromKeyPreproc eliminates duplicate attempts to point one file at the
// same key, drops submissions already satisfied on disk, and rejects
// conflicting submissions.
func fromKeyPreproc(calls []batchedCall) ([]batchedCall, error) {
	seen := make(map[string]string, len(calls))
	kept := calls[:0:0]
	for _, call := range calls {
		key, fname := call.args[0], call.args[1]
		if prev, ok := seen[fname]; ok {
			if prev != key {
				return nil, fmt.Errorf("conflicting keys for %s: %s vs %s", fname, prev, key)
			}
			continue
		}
		seen[fname] = key
		if _, err := os.Lstat(fname); err == nil {
			existing, err := KeyOf(fname)
			if err != nil || existing != key {
				return nil, fmt.Errorf("%s exists and does not link to key %s", fname, key)
			}
			continue
		}
		kept = append(kept, call)
	}
	return kept, nil
}

// Get ensures the file's content exists in the local annex, fetching it
// from a remote if necessary. Unlike plain git-annex-get it follows the
// symlink chain first and runs against the terminal link's directory.
func (t *Tool) Get(ctx context.Context, path string, opts ...CallOption) error {
	terminal, target := ResolveIntoStore(path)
	if target == "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		return NewNotTrackedError(abs)
	}
	if info, err := os.Stat(terminal); err == nil && info.Mode().IsRegular() {
		return nil // already present
	}
	abs, err := filepath.Abs(terminal)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", terminal, err)
	}
	o := applyCallOptions(opts)
	return t.execute(ctx, execRequest{
		args:      []string{"get"},
		batchArgs: []string{filepath.Base(abs)},
		now:       !o.deferred,
		dir:       filepath.Dir(abs),
	})
}

// Drop removes the file's content from the local annex, keeping the
// link.
func (t *Tool) Drop(ctx context.Context, path string) error {
	terminal, target := ResolveIntoStore(path)
	if target == "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		return NewNotTrackedError(abs)
	}
	info, err := os.Stat(terminal)
	if err != nil || !info.Mode().IsRegular() {
		return nil // not present locally
	}
	abs, err := filepath.Abs(terminal)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", terminal, err)
	}
	return t.execute(ctx, execRequest{
		args: []string{"drop", filepath.Base(abs)},
		now:  true,
		dir:  filepath.Dir(abs),
	})
}

// Move moves a file's content from the local repo to a remote.
func (t *Tool) Move(ctx context.Context, path, toRemote string) error {
	return t.execute(ctx, execRequest{
		args: []string{"move", path, "--to", toRemote},
		now:  true,
	})
}

// CalcKey computes the content key git-annex would assign to the file.
// The store's own content-addressing primitive is used rather than a
// reimplementation, so the result always agrees with what add would do.
func (t *Tool) CalcKey(ctx context.Context, path string) (string, error) {
	return t.executeOutput(ctx, execRequest{
		args:      []string{"calckey"},
		batchArgs: []string{path},
	})
}

// CalcKeyTo is the deferred form of CalcKey: the computed key is fed to
// sink when the enclosing batching scope drains.
func (t *Tool) CalcKeyTo(ctx context.Context, path string, sink func(string)) error {
	return t.execute(ctx, execRequest{
		args:      []string{"calckey"},
		batchArgs: []string{path},
		output:    sink,
	})
}

// RegisterURL records that key can be fetched from url. Identical
// registrations within one scope collapse to a single call.
func (t *Tool) RegisterURL(ctx context.Context, key, url string, opts ...CallOption) error {
	o := applyCallOptions(opts)
	return t.execute(ctx, execRequest{
		args:      []string{"registerurl"},
		batchArgs: []string{key, url},
		now:       !o.deferred,
		preproc:   dedupeIdenticalCalls,
	})
}

// SetPresentKey records whether key is present in the remote identified
// by uuid.
func (t *Tool) SetPresentKey(ctx context.Context, key, uuid string, present bool, opts ...CallOption) error {
	flag := "0"
	if present {
		flag = "1"
	}
	o := applyCallOptions(opts)
	return t.execute(ctx, execRequest{
		args:      []string{"setpresentkey"},
		batchArgs: []string{key, uuid, flag},
		now:       !o.deferred,
		preproc:   dedupeIdenticalCalls,
	})
}

// RegisterKeyInRemoteAtURL records that key is present in the remote
// identified by uuid and obtainable from url: the registerurl and
// setpresentkey pair, both deferred into the caller's scope so an
// import registers many keys in two invocations.
func (t *Tool) RegisterKeyInRemoteAtURL(ctx context.Context, key, url, uuid string) error {
	if err := t.RegisterURL(ctx, key, url, Deferred()); err != nil {
		return err
	}
	return t.SetPresentKey(ctx, key, uuid, true, Deferred())
}

// CheckPresentKey asks whether key is present in some remote. The tool
// answers "1" or "0".
func (t *Tool) CheckPresentKey(ctx context.Context, key string) (string, error) {
	return t.executeOutput(ctx, execRequest{
		args:      []string{"checkpresentkey"},
		batchArgs: []string{key},
		priority:  checkPresentPriority,
	})
}

// CheckPresentKeyTo is the deferred form of CheckPresentKey. The checks
// run at low priority so they drain after any registrations queued in
// the same scope.
func (t *Tool) CheckPresentKeyTo(ctx context.Context, key string, sink func(string)) error {
	return t.execute(ctx, execRequest{
		args:      []string{"checkpresentkey"},
		batchArgs: []string{key},
		output:    sink,
		priority:  checkPresentPriority,
	})
}

// GitConfig returns the repository's git configuration as a map.
func (t *Tool) GitConfig(ctx context.Context) (map[string]string, error) {
	out, err := t.executeOutput(ctx, execRequest{git: true, args: []string{"config", "-l"}})
	if err != nil {
		return nil, err
	}
	cfg := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		k, v, _ := strings.Cut(line, "=")
		cfg[k] = v
	}
	return cfg, nil
}

// RepoRoot returns the root of the repository the Tool operates on.
func (t *Tool) RepoRoot(ctx context.Context) (string, error) {
	return t.executeOutput(ctx, execRequest{git: true, args: []string{"rev-parse", "--show-toplevel"}})
}

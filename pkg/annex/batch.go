package annex

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/annexport/annexport/internal/logger"
	"github.com/annexport/annexport/internal/metrics"
)

// batchFlag tells git-annex to read one line of arguments per logical
// call from stdin and answer with one line per call on stdout.
const batchFlag = "--batch"

// groupKey is the value-equality grouping key for pending commands: two
// submissions with the same priority, argument vector, and working
// directory merge into one physical invocation. The argv slice is
// joined with NUL so the key stays comparable.
type groupKey struct {
	priority int
	argv     string
	dir      string
}

// batchedCall is one logical call inside a group: its variable
// arguments (nil for commands without batch input) and an optional sink
// that receives the call's output line.
type batchedCall struct {
	args   []string
	output func(string)
}

// preprocFunc filters or deduplicates a group's accumulated calls just
// before execution. Returning an empty slice skips the invocation.
type preprocFunc func(calls []batchedCall) ([]batchedCall, error)

// batchGroup accumulates the calls sharing one invocation signature.
type batchGroup struct {
	argv     []string
	dir      string
	priority int
	seq      int // first-submission order, breaks priority ties
	preproc  preprocFunc
	calls    []batchedCall
}

// pendingBatches is the per-scope descriptor→calls map.
type pendingBatches struct {
	groups  map[groupKey]*batchGroup
	nextSeq int
}

// execRequest carries everything one command submission needs.
type execRequest struct {
	git       bool
	args      []string
	batchArgs []string
	output    func(string)
	now       bool
	priority  int
	preproc   preprocFunc
	dir       string // overrides the repo dir when set
}

// IsBatching reports whether this Tool is a batching scope.
func (t *Tool) IsBatching() bool {
	return t.pending != nil
}

// Batching begins a new batching scope: the returned Tool shares the
// runner and configuration but owns a fresh pending-command set, so
// deferred commands issued against it never leak into an enclosing
// scope. The caller must Flush the scope (or use WithBatch).
func (t *Tool) Batching() *Tool {
	scope := *t
	scope.pending = &pendingBatches{groups: make(map[groupKey]*batchGroup)}
	return &scope
}

// WithBatch runs fn against a new batching scope and drains the scope
// when fn returns without error. This is the usual way to bound a
// batching context:
//
//	err := tool.WithBatch(ctx, func(bt *annex.Tool) error {
//		for _, f := range files {
//			if err := bt.Add(ctx, f, annex.Deferred()); err != nil {
//				return err
//			}
//		}
//		return nil
//	})
func (t *Tool) WithBatch(ctx context.Context, fn func(*Tool) error) error {
	scope := t.Batching()
	if err := fn(scope); err != nil {
		return err
	}
	return scope.Flush(ctx)
}

// execute submits one command. When the submission is not deferred, the
// command carries no batch input, or no scope is active, it executes as
// a singleton batch right away; otherwise it queues on this scope.
func (t *Tool) execute(ctx context.Context, req execRequest) error {
	if req.now || len(req.batchArgs) == 0 || !t.IsBatching() {
		scope := t.Batching()
		scope.add(req)
		return scope.Flush(ctx)
	}
	t.add(req)
	return nil
}

// add appends a call to the scope's group for the request's invocation
// signature, creating the group on first use.
func (t *Tool) add(req execRequest) {
	args := req.args
	if len(req.batchArgs) > 0 {
		args = append(append([]string{}, req.args...), batchFlag)
	}
	argv := append([]string{t.toolPath(req.git)}, args...)

	dir := req.dir
	if dir == "" {
		dir = t.cfg.RepoDir
	}

	key := groupKey{
		priority: req.priority,
		argv:     strings.Join(argv, "\x00"),
		dir:      dir,
	}

	group := t.pending.groups[key]
	if group == nil {
		group = &batchGroup{
			argv:     argv,
			dir:      dir,
			priority: req.priority,
			seq:      t.pending.nextSeq,
			preproc:  req.preproc,
		}
		t.pending.nextSeq++
		t.pending.groups[key] = group
	}
	group.calls = append(group.calls, batchedCall{args: req.batchArgs, output: req.output})
}

// Flush drains the scope: every pending group runs exactly once, in
// descending priority order with ties broken by first-submission order.
// If an invocation fails, the remaining groups are not run and the
// scope must be considered consumed; there is no retry.
func (t *Tool) Flush(ctx context.Context) error {
	if t.pending == nil {
		return nil
	}

	groups := make([]*batchGroup, 0, len(t.pending.groups))
	for _, g := range t.pending.groups {
		groups = append(groups, g)
	}
	t.pending.groups = make(map[groupKey]*batchGroup)

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].priority != groups[j].priority {
			return groups[i].priority > groups[j].priority
		}
		return groups[i].seq < groups[j].seq
	})

	for _, group := range groups {
		if err := t.runGroup(ctx, group); err != nil {
			return err
		}
	}
	return nil
}

// runGroup executes one group and distributes output back to the
// originating calls.
func (t *Tool) runGroup(ctx context.Context, group *batchGroup) error {
	calls := group.calls
	if group.preproc != nil {
		var err error
		calls, err = group.preproc(calls)
		if err != nil {
			return err
		}
	}
	if len(calls) == 0 {
		return nil
	}

	hasBatchInput := len(calls[0].args) > 0
	wantOutput := calls[0].output != nil

	inv := Invocation{
		Argv:          group.argv,
		Dir:           group.dir,
		CaptureOutput: wantOutput,
	}
	if hasBatchInput {
		var stdin strings.Builder
		for _, call := range calls {
			stdin.WriteString(strings.Join(call.args, " "))
			stdin.WriteByte('\n')
		}
		inv.Stdin = stdin.String()
	}

	logger.Debug("running batch group",
		logger.KeyArgs, strings.Join(group.argv, " "),
		logger.KeyDir, group.dir,
		logger.KeyPriority, group.priority,
		logger.KeyCalls, len(calls))

	metrics.RecordBatchGroup(group.argv[0], len(calls))

	out, err := t.runner.Run(ctx, inv)
	if err != nil {
		metrics.RecordProcessFailure(group.argv[0])
		return err
	}

	if !wantOutput {
		return nil
	}

	trimmed := strings.TrimRight(out, "\n")
	var lines []string
	if hasBatchInput {
		lines = strings.Split(trimmed, "\n")
	} else {
		lines = []string{trimmed}
	}
	if len(lines) != len(calls) {
		return NewBatchConsistencyError(fmt.Sprintf(
			"%s: %d output lines for %d calls", group.argv[0], len(lines), len(calls)))
	}

	for i, call := range calls {
		if call.output != nil {
			call.output(lines[i])
		}
	}
	return nil
}

// dedupeIdenticalCalls drops calls whose variable arguments repeat an
// earlier call exactly. Registration commands use it so that re-running
// an import does not re-issue identical registrations within one scope.
func dedupeIdenticalCalls(calls []batchedCall) ([]batchedCall, error) {
	seen := make(map[string]struct{}, len(calls))
	kept := calls[:0:0]
	for _, call := range calls {
		sig := strings.Join(call.args, "\x00")
		if _, ok := seen[sig]; ok {
			continue
		}
		seen[sig] = struct{}{}
		kept = append(kept, call)
	}
	return kept, nil
}

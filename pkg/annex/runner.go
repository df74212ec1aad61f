package annex

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
)

// Invocation describes one physical run of the external tool: a full
// argument vector, an explicit working directory, optional batched
// stdin, and whether stdout should be captured. Commands never depend
// on ambient process state such as the current directory.
type Invocation struct {
	// Argv is the complete argument vector; Argv[0] is the executable.
	Argv []string

	// Dir is the working directory for the invocation.
	Dir string

	// Stdin is batch input, one newline-terminated line per logical
	// call, or empty when the command takes no batch input.
	Stdin string

	// CaptureOutput requests that stdout be captured and returned.
	CaptureOutput bool
}

// Runner executes external tool invocations. The production
// implementation shells out; tests substitute a recording fake.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (string, error)
}

// execRunner runs invocations through os/exec with the annex tool's
// install directory and the plugin-remote helper directory prepended
// to PATH, so git-annex can find both git and external special remote
// executables.
type execRunner struct {
	env []string
}

func newExecRunner(pathDirs ...string) *execRunner {
	return &execRunner{env: buildEnv(pathDirs)}
}

func (r *execRunner) Run(ctx context.Context, inv Invocation) (string, error) {
	cmd := exec.CommandContext(ctx, inv.Argv[0], inv.Argv[1:]...)
	cmd.Dir = inv.Dir
	cmd.Env = r.env

	if inv.Stdin != "" {
		cmd.Stdin = strings.NewReader(inv.Stdin)
	}

	var stdout, stderr bytes.Buffer
	if inv.CaptureOutput {
		cmd.Stdout = &stdout
	}
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.Join(inv.Argv, " ") + ": " + err.Error()
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			detail += " (stderr: " + msg + ")"
		}
		return "", NewProcessFailureError(detail)
	}

	return stdout.String(), nil
}

// buildEnv returns the process environment with pathDirs prepended to
// PATH. Empty entries are skipped.
func buildEnv(pathDirs []string) []string {
	var prefix []string
	for _, dir := range pathDirs {
		if dir != "" {
			prefix = append(prefix, dir)
		}
	}

	env := os.Environ()
	if len(prefix) == 0 {
		return env
	}

	joined := strings.Join(prefix, string(os.PathListSeparator))
	for i, kv := range env {
		if strings.HasPrefix(kv, "PATH=") {
			env[i] = "PATH=" + joined + string(os.PathListSeparator) + strings.TrimPrefix(kv, "PATH=")
			return env
		}
	}
	return append(env, "PATH="+joined)
}

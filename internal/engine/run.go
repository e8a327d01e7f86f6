package engine

import (
	"bytes"
	"context"
	"os/exec"
	"time"
)

// waitDelay bounds how long Wait blocks on output pipes after the process
// has been killed by a cancelled context.
const waitDelay = 2 * time.Second

type runResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

func runCommand(ctx context.Context, binary string, args []string) (runResult, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec // invoking the configured engine is the point
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	started := time.Now()
	err := cmd.Run()

	return runResult{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: cmd.ProcessState.ExitCode(),
		Duration: time.Since(started),
	}, err
}

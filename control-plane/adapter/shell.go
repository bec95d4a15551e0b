package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/semaphore"
	kexec "k8s.io/utils/exec"

	"github.com/saintparish4/fedsdn/shared/models"
)

// ShellOptions configures a ShellDriver.
type ShellOptions struct {
	// Root is the directory holding one sub directory per site kind.
	Root string
	// MaxConcurrent caps the adapter processes running at once. 0 means no
	// limit.
	MaxConcurrent int64
	// Timeout bounds a single invocation. 0 means the adapter may run for as
	// long as the request context allows.
	Timeout time.Duration
}

// ShellDriver runs adapters as subprocesses.
type ShellDriver struct {
	opts    ShellOptions
	exec    kexec.Interface
	sem     *semaphore.Weighted
	monitor *Monitor
	logger  *slog.Logger

	// checkExecutable is swapped in tests that run without real files.
	checkExecutable func(path string) error
}

// NewShellDriver creates a driver running the executables below opts.Root
// through runner.
func NewShellDriver(opts ShellOptions, runner kexec.Interface, monitor *Monitor, logger *slog.Logger) *ShellDriver {
	d := &ShellDriver{
		opts:            opts,
		exec:            runner,
		monitor:         monitor,
		logger:          logger,
		checkExecutable: checkExecutable,
	}
	if opts.MaxConcurrent > 0 {
		d.sem = semaphore.NewWeighted(opts.MaxConcurrent)
	}
	return d
}

// Path returns the executable serving op for kind.
func (d *ShellDriver) Path(kind models.SiteKind, op Operation) string {
	return filepath.Join(d.opts.Root, kind.AdapterDir(), string(op))
}

func (d *ShellDriver) Invoke(ctx context.Context, kind models.SiteKind, op Operation, req any) (*Result, error) {
	path := d.Path(kind, op)
	if err := d.checkExecutable(path); err != nil {
		d.monitor.observe(kind, op, resultNotInstalled, 0)
		return nil, fmt.Errorf("%w: %s: %v", ErrNotInstalled, path, err)
	}
	payload, err := EncodePayload(req)
	if err != nil {
		return nil, err
	}

	if d.sem != nil {
		if err := d.sem.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("waiting for adapter slot: %w", err)
		}
		defer d.sem.Release(1)
	}
	if d.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := d.exec.CommandContext(ctx, path)
	cmd.SetStdin(bytes.NewReader(payload))
	cmd.SetStdout(&stdout)
	cmd.SetStderr(&stderr)

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	res := &Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	var exitErr kexec.ExitError
	switch {
	case runErr == nil:
	case ctx.Err() != nil:
		d.monitor.observe(kind, op, resultError, elapsed)
		d.logger.Warn("adapter interrupted",
			"site_type", kind, "operation", op, "duration", elapsed, "error", ctx.Err())
		return nil, fmt.Errorf("adapter %s/%s: %w", kind, op, ctx.Err())
	case errors.As(runErr, &exitErr):
		res.ExitCode = exitErr.ExitStatus()
	default:
		d.monitor.observe(kind, op, resultError, elapsed)
		return nil, fmt.Errorf("failed to run adapter %s: %w", path, runErr)
	}

	outcome := resultSuccess
	if !res.Success() {
		outcome = resultFailure
		d.logger.Warn("adapter failed",
			"site_type", kind,
			"operation", op,
			"exit_code", res.ExitCode,
			"duration", elapsed,
			"output", res.Output())
	} else {
		d.logger.Info("adapter finished",
			"site_type", kind,
			"operation", op,
			"exit_code", res.ExitCode,
			"duration", elapsed)
	}
	d.monitor.observe(kind, op, outcome, elapsed)
	return res, nil
}

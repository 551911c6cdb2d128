package process

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"time"

	"InterviewConv/logger"
	"InterviewConv/model"
)

// Executor runs one external tool and reports how it went.
// Implementations never retry and never return a Go error: every failure
// is folded into the ProcessResult.
type Executor interface {
	Execute(ctx context.Context, process string, args []string, errorsOnly bool) model.ProcessResult
}

// ExecExecutor is the os/exec backed Executor.
type ExecExecutor struct {
	// Timeout bounds a single invocation; 0 means wait forever.
	Timeout time.Duration
}

// NewExecExecutor creates a new ExecExecutor.
func NewExecExecutor(timeout time.Duration) *ExecExecutor {
	return &ExecExecutor{Timeout: timeout}
}

// Execute runs args[0] with args[1:]. With errorsOnly stdout is discarded and
// only stderr is kept.
func (e *ExecExecutor) Execute(ctx context.Context, process string, args []string, errorsOnly bool) model.ProcessResult {
	res := model.ProcessResult{
		Process: process,
		Command: append([]string(nil), args...),
		Started: time.Now(),
	}
	if len(args) == 0 {
		res.ExitCode = -1
		res.Error = "empty command"
		return res
	}

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	logger.Debug("Executing process",
		logger.String("process", process),
		logger.String("command", strings.Join(args, " ")))

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	var stdout, stderr bytes.Buffer
	if errorsOnly {
		cmd.Stdout = io.Discard
	} else {
		cmd.Stdout = &stdout
	}
	cmd.Stderr = &stderr

	err := cmd.Run()
	res.Elapsed = time.Since(res.Started)
	res.Out = stdout.String()
	res.Error = stderr.String()

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
			res.ExitCode = exitErr.ExitCode()
		} else {
			// killed, not found, or context expired
			res.ExitCode = -1
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			res.Error = strings.TrimSpace(res.Error + "\n" + ctxErr.Error())
		} else if res.Error == "" {
			res.Error = err.Error()
		}
		logger.Warn("Process failed",
			logger.String("process", process),
			logger.Int("exitCode", res.ExitCode),
			logger.Duration("elapsed", res.Elapsed),
			logger.String("stderr", tail(res.Error, 2000)))
		return res
	}

	logger.Debug("Process finished",
		logger.String("process", process),
		logger.Duration("elapsed", res.Elapsed))
	return res
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

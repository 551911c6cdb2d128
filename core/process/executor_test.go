package process

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func requireSh(t *testing.T) string {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	return sh
}

func TestExecute_Success(t *testing.T) {
	sh := requireSh(t)
	res := NewExecExecutor(0).Execute(context.Background(), "echo", []string{sh, "-c", "echo hello"}, false)
	if !res.IsOK() {
		t.Fatalf("exit %d: %s", res.ExitCode, res.Error)
	}
	if strings.TrimSpace(res.Out) != "hello" {
		t.Errorf("Out = %q", res.Out)
	}
	if res.Process != "echo" {
		t.Errorf("Process = %q", res.Process)
	}
}

func TestExecute_ErrorsOnlyDropsStdout(t *testing.T) {
	sh := requireSh(t)
	res := NewExecExecutor(0).Execute(context.Background(), "check", []string{sh, "-c", "echo out; echo err >&2"}, true)
	if res.Out != "" {
		t.Errorf("Out = %q, want empty", res.Out)
	}
	if strings.TrimSpace(res.Error) != "err" {
		t.Errorf("Error = %q", res.Error)
	}
}

func TestExecute_NonZeroExit(t *testing.T) {
	sh := requireSh(t)
	res := NewExecExecutor(0).Execute(context.Background(), "fail", []string{sh, "-c", "echo bad >&2; exit 3"}, false)
	if res.IsOK() || res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if !strings.Contains(res.Error, "bad") {
		t.Errorf("Error = %q", res.Error)
	}
}

func TestExecute_MissingBinary(t *testing.T) {
	res := NewExecExecutor(0).Execute(context.Background(), "missing", []string{"/nonexistent/tool-xyz"}, false)
	if res.ExitCode != -1 || res.Error == "" {
		t.Errorf("got exit %d err %q, want -1 with message", res.ExitCode, res.Error)
	}
}

func TestExecute_Timeout(t *testing.T) {
	sh := requireSh(t)
	res := NewExecExecutor(50*time.Millisecond).Execute(context.Background(), "hang", []string{sh, "-c", "exec sleep 5"}, false)
	if res.IsOK() {
		t.Fatal("expected timeout failure")
	}
	if !strings.Contains(res.Error, "deadline") {
		t.Errorf("Error = %q, want deadline mention", res.Error)
	}
}

func TestExecute_EmptyCommand(t *testing.T) {
	res := NewExecExecutor(0).Execute(context.Background(), "none", nil, false)
	if res.IsOK() {
		t.Error("empty command reported ok")
	}
}

package converter

import (
	"errors"
	"fmt"
	"strings"

	"InterviewConv/model"
)

var (
	// ErrMissingAsset is returned when a required shared asset is absent.
	ErrMissingAsset = errors.New("required asset does not exist")
	// ErrNoValidPods means neither pod slot produced usable video.
	ErrNoValidPods = errors.New("no valid pods found")
)

// NoValidPodsProcess names the synthetic log entry closing a run that found
// no usable video.
const NoValidPodsProcess = "CheckFlvFilesExists"

// ToolError 外部工具调用失败，携带失败的调用结果
type ToolError struct {
	Result model.ProcessResult
}

func (e *ToolError) Error() string {
	msg := strings.TrimSpace(e.Result.Error)
	if len(msg) > 300 {
		msg = "..." + msg[len(msg)-300:]
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Result.Process, e.Result.ExitCode, msg)
}

func toolError(res model.ProcessResult) error {
	if res.IsOK() {
		return nil
	}
	return &ToolError{Result: res}
}

package pymod

import (
	"context"
	"encoding/json"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"autoskip/internal/errors"
)

// DefaultInterpreterTimeout bounds the sys.path query
const DefaultInterpreterTimeout = 10 * time.Second

const sysPathScript = "import json, sys; print(json.dumps(sys.path))"

// InterpreterPaths asks a Python interpreter for its sys.path. command is the
// interpreter invocation, e.g. ["python3"] or ["uv", "run", "python"]. Only
// existing directories are returned, made absolute against dir.
func InterpreterPaths(ctx context.Context, command []string, dir string) ([]string, error) {
	if len(command) == 0 {
		return nil, errors.New(errors.InterpreterUnavailable, "No interpreter command configured", nil, nil)
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultInterpreterTimeout)
	defer cancel()

	args := append(append([]string{}, command[1:]...), "-c", sysPathScript)
	cmd := exec.CommandContext(ctx, command[0], args...)
	cmd.Dir = dir

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.New(errors.Timeout, "Interpreter query timed out", err, nil)
		}
		details := map[string]interface{}{"command": command}
		if exitErr, ok := err.(*exec.ExitError); ok {
			details["stderr"] = strings.TrimSpace(string(exitErr.Stderr))
		}
		return nil, errors.New(errors.InterpreterUnavailable, "Failed to query interpreter sys.path", err, nil).WithDetails(details)
	}

	var entries []string
	if err := json.Unmarshal([]byte(lastLine(string(out))), &entries); err != nil {
		return nil, errors.New(errors.InterpreterUnavailable, "Unexpected interpreter output", err, nil)
	}

	result := make([]string, 0, len(entries))
	for _, e := range entries {
		// "" stands for the interpreter's working directory, which the
		// caller already covers with its own roots.
		if e == "" {
			continue
		}
		if !filepath.IsAbs(e) {
			e = filepath.Join(dir, e)
		}
		if isDir(e) {
			result = append(result, filepath.Clean(e))
		}
	}
	return result, nil
}

// lastLine skips anything a sitecustomize hook printed before our output
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}

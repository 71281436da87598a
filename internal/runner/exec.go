package runner

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"autoskip/internal/errors"
)

// IO carries the streams handed to pytest
type IO struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// ReportSkipped writes one line per skipped test module to w
func ReportSkipped(w io.Writer, plan *Plan) {
	for _, t := range plan.Tests {
		if !t.Run {
			fmt.Fprintf(w, "SKIPPED %s (no changes in import closure since %s)\n", t.Path, plan.Base)
		}
	}
}

// Execute reports the skipped modules and runs pytest on the rest, followed by
// extraArgs. It returns pytest's exit code. When nothing must run pytest is
// not started and the exit code is 0.
func (r *Runner) Execute(ctx context.Context, plan *Plan, extraArgs []string, stdio IO) (int, error) {
	ReportSkipped(stdio.Stdout, plan)

	toRun := plan.ToRun()
	if len(toRun) == 0 {
		fmt.Fprintf(stdio.Stdout, "autoskip: all %d test modules skipped, nothing to run\n", plan.Summary.Total)
		return 0, nil
	}

	command := r.cfg.Pytest.Command
	if len(command) == 0 {
		return 1, errors.New(errors.ConfigInvalid, "pytest.command is empty", nil,
			[]errors.FixAction{{
				Type:        errors.EditConfig,
				Key:         "pytest.command",
				Description: "Set pytest.command, e.g. [\"python\", \"-m\", \"pytest\"]",
			}})
	}
	args := make([]string, 0, len(command)-1+len(extraArgs)+len(toRun))
	args = append(args, command[1:]...)
	args = append(args, extraArgs...)
	args = append(args, toRun...)

	cmd := exec.CommandContext(ctx, command[0], args...)
	cmd.Dir = r.repoRoot
	cmd.Stdin = stdio.Stdin
	cmd.Stdout = stdio.Stdout
	cmd.Stderr = stdio.Stderr
	cmd.Env = os.Environ()

	r.logger.Info("Running pytest",
		"command", command[0],
		"modules", len(toRun),
		"skipped", plan.Summary.Skipped,
	)

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code, nil
		}
		// Killed by a signal
		return 1, nil
	}
	return 1, errors.New(errors.InternalError,
		fmt.Sprintf("failed to start %s", command[0]), err,
		[]errors.FixAction{{
			Type:        errors.EditConfig,
			Key:         "pytest.command",
			Description: "Point pytest.command at a working pytest invocation",
		}})
}

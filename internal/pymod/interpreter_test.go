package pymod

import (
	"context"
	"os/exec"
	"path/filepath"
	"reflect"
	"testing"

	"autoskip/internal/errors"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestInterpreterPaths(t *testing.T) {
	requireShell(t)
	root := realDir(t)
	site := filepath.Join(root, "site-packages")
	touch(t, filepath.Join(site, "pkg", "__init__.py"))

	// sh runs the first operand; our -c script lands in $0/$1 and is ignored.
	script := `echo "noise from sitecustomize"; echo '["", "site-packages", "` + root + `", "/does/not/exist"]'`
	got, err := InterpreterPaths(context.Background(), []string{"sh", "-c", script}, root)
	if err != nil {
		t.Fatalf("InterpreterPaths() error = %v", err)
	}

	want := []string{site, root}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("InterpreterPaths() = %v, want %v", got, want)
	}
}

func TestInterpreterPaths_Failures(t *testing.T) {
	requireShell(t)
	root := realDir(t)

	tests := []struct {
		name    string
		command []string
		code    errors.ErrorCode
	}{
		{"no command", nil, errors.InterpreterUnavailable},
		{"non-zero exit", []string{"sh", "-c", "echo boom >&2; exit 3"}, errors.InterpreterUnavailable},
		{"not json", []string{"sh", "-c", "echo hello"}, errors.InterpreterUnavailable},
		{"missing binary", []string{"definitely-not-a-python-binary"}, errors.InterpreterUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := InterpreterPaths(context.Background(), tt.command, root)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.CodeOf(err); got != tt.code {
				t.Errorf("CodeOf() = %q, want %q", got, tt.code)
			}
		})
	}
}

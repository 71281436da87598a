package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// GitUnavailable indicates git is missing or the directory is not a repository
	GitUnavailable ErrorCode = "GIT_UNAVAILABLE"
	// ChangedSetUnavailable indicates the changed-file set could not be computed
	ChangedSetUnavailable ErrorCode = "CHANGED_SET_UNAVAILABLE"
	// MalformedSource indicates a source file could not be parsed for imports
	MalformedSource ErrorCode = "MALFORMED_SOURCE"
	// ConfigInvalid indicates a configuration file or value is invalid
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// InterpreterUnavailable indicates the Python interpreter could not be queried
	InterpreterUnavailable ErrorCode = "INTERPRETER_UNAVAILABLE"
	// Timeout indicates an external command timed out
	Timeout ErrorCode = "TIMEOUT"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// EditConfig suggests changing a configuration value
	EditConfig FixActionType = "edit-config"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	Key         string        `json:"key,omitempty"`
}

// Error is an autoskip error with a stable code, message and suggested fixes
type Error struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error
}

// New creates a new Error. When fixes is nil the default fixes registered
// for code are attached.
func New(code ErrorCode, message string, cause error, fixes []FixAction) *Error {
	if fixes == nil {
		fixes = GetSuggestedFixes(code)
	}
	return &Error{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: fixes,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	GitUnavailable: {
		{
			Type:        RunCommand,
			Command:     "git status",
			Safe:        true,
			Description: "Verify you're in a git repository",
		},
	},
	ChangedSetUnavailable: {
		{
			Type:        RunCommand,
			Command:     "git fetch origin",
			Safe:        true,
			Description: "Fetch the baseline branch so a merge base can be found",
		},
		{
			Type:        EditConfig,
			Key:         "base_ref",
			Description: "Point base_ref at a reference that exists locally",
		},
	},
	MalformedSource: {
		{
			Type:        RunCommand,
			Command:     "python -m py_compile <file>",
			Safe:        true,
			Description: "Show the syntax error in the offending file",
		},
	},
	InterpreterUnavailable: {
		{
			Type:        EditConfig,
			Key:         "interpreter.command",
			Description: "Point interpreter.command at a working Python interpreter",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}

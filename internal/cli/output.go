package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/roach88/flowreg/internal/flow"
	"github.com/roach88/flowreg/internal/manifest"
	"github.com/roach88/flowreg/internal/queryir"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // The operation ran but did not succeed (not found, name taken)
	ExitCommandError = 2 // Command error (bad input, unreachable store, unreadable manifest)
)

// Error codes reported in the error envelope.
const (
	ErrCodeGeneric        = "E001" // Generic/unknown error
	ErrCodeInvalidInput   = "E002" // Flow or query rejected by validation
	ErrCodeConflict       = "E003" // Name or id already registered
	ErrCodeStoreFailed    = "E004" // Store could not be opened or queried
	ErrCodeNotFound       = "E005" // No flow with that id or name
	ErrCodeManifestFailed = "E006" // Manifest could not be read or parsed
	ErrCodeWriteFailed    = "E007" // Metrics file write error
	ErrCodeConfigFailed   = "E008" // Config file or overrides rejected
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitSuccess for nil and ExitFailure if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// classify maps a registry or store error onto an error code and exit code.
func classify(err error) (string, int) {
	var manifestErr *manifest.Error
	switch {
	case flow.IsConflict(err):
		return ErrCodeConflict, ExitFailure
	case flow.IsInvalid(err), errors.Is(err, queryir.ErrInvalidQuery):
		return ErrCodeInvalidInput, ExitCommandError
	case errors.As(err, &manifestErr):
		return ErrCodeManifestFailed, ExitCommandError
	default:
		return ErrCodeStoreFailed, ExitCommandError
	}
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string      `json:"status"`          // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`  // success payload
	Error  *CLIError   `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`              // "E001", "E002", etc.
	Message string      `json:"message"`           // human-readable message
	Details interface{} `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports message, followed by err when set, under code and returns
// the ExitError the command should return.
func (f *OutputFormatter) Fail(code string, exitCode int, message string, err error) error {
	shown := message
	if err != nil {
		shown = message + ": " + err.Error()
	}
	_ = f.Error(code, shown, nil)
	return WrapExitError(exitCode, code+": "+message, err)
}

// FailOn classifies err and reports it under message.
func (f *OutputFormatter) FailOn(message string, err error) error {
	code, exitCode := classify(err)
	return f.Fail(code, exitCode, message, err)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// writeFlow renders one flow as labelled lines.
func writeFlow(w io.Writer, fl flow.Flow) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", fl.ID)
	fmt.Fprintf(tw, "Name:\t%s\n", fl.Name)
	fmt.Fprintf(tw, "Tags:\t%s\n", formatTags(fl.Tags))
	fmt.Fprintf(tw, "Created:\t%s\n", fl.Created.UTC().Format(time.RFC3339))
	fmt.Fprintf(tw, "Updated:\t%s\n", fl.Updated.UTC().Format(time.RFC3339))
	_ = tw.Flush()
}

// writeFlowTable renders flows one per row.
func writeFlowTable(w io.Writer, flows []flow.Flow) {
	if len(flows) == 0 {
		fmt.Fprintln(w, "No flows found")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTAGS")
	for _, fl := range flows {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", fl.ID, fl.Name, formatTags(fl.Tags))
	}
	_ = tw.Flush()
}

func formatTags(tags flow.TagSet) string {
	if len(tags) == 0 {
		return "-"
	}
	return strings.Join(tags, ",")
}

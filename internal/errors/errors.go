// Package errors provides structured error types for dashexport.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
)

// Code represents a unique error code.
type Code string

// Error codes for dashexport.
const (
	// Store errors
	CodeStoreNotFound     Code = "STORE_NOT_FOUND"
	CodeStoreFormat       Code = "STORE_FORMAT"
	CodeDashboardNotFound Code = "DASHBOARD_NOT_FOUND"
	CodeInvalidName       Code = "INVALID_NAME"

	// Output errors
	CodeWriteFailed  Code = "WRITE_FAILED"
	CodeExportLocked Code = "EXPORT_LOCKED"

	// Config errors
	CodeConfigInvalid Code = "CONFIG_INVALID"
	CodeConfigMissing Code = "CONFIG_MISSING"
)

// Category groups error codes for exit status mapping.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryNothingToDo
	CategoryNotFound
	CategoryBadInput
	CategoryConflict
	CategoryIO
)

// codeCategories maps error codes to their categories.
var codeCategories = map[Code]Category{
	CodeStoreNotFound:     CategoryNothingToDo,
	CodeStoreFormat:       CategoryBadInput,
	CodeDashboardNotFound: CategoryNotFound,
	CodeInvalidName:       CategoryBadInput,
	CodeWriteFailed:       CategoryIO,
	CodeExportLocked:      CategoryConflict,
	CodeConfigInvalid:     CategoryBadInput,
	CodeConfigMissing:     CategoryBadInput,
}

// ExitCode returns the process exit status for a category. Only "nothing to
// do" exits cleanly.
func (c Category) ExitCode() int {
	if c == CategoryNothingToDo {
		return 0
	}
	return 1
}

// Sentinels for errors.Is. Matching is by code.
var (
	ErrStoreNotFound     = &ExportError{Code: CodeStoreNotFound}
	ErrStoreFormat       = &ExportError{Code: CodeStoreFormat}
	ErrDashboardNotFound = &ExportError{Code: CodeDashboardNotFound}
	ErrInvalidName       = &ExportError{Code: CodeInvalidName}
	ErrWriteFailed       = &ExportError{Code: CodeWriteFailed}
	ErrExportLocked      = &ExportError{Code: CodeExportLocked}
	ErrConfig            = &ExportError{Code: CodeConfigInvalid}
)

// ExportError is the structured error type for dashexport.
type ExportError struct {
	Code  Code   `json:"code"`
	What  string `json:"what"`
	Why   string `json:"why,omitempty"`
	Fix   string `json:"fix,omitempty"`
	Cause error  `json:"-"`
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	var b strings.Builder
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString(": ")
		b.WriteString(e.Why)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *ExportError) Unwrap() error {
	return e.Cause
}

// UserMessage returns a user-friendly message for CLI output.
func (e *ExportError) UserMessage() string {
	var b strings.Builder
	b.WriteString("Error: ")
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString("\n\nWhy: ")
		b.WriteString(e.Why)
	}
	if e.Fix != "" {
		b.WriteString("\n\nFix: ")
		b.WriteString(e.Fix)
	}
	return b.String()
}

// Category returns the error category.
func (e *ExportError) Category() Category {
	if cat, ok := codeCategories[e.Code]; ok {
		return cat
	}
	return CategoryUnknown
}

// MarshalJSON implements json.Marshaler.
func (e *ExportError) MarshalJSON() ([]byte, error) {
	type alias ExportError
	aux := struct {
		*alias
		CauseMsg string `json:"cause,omitempty"`
	}{
		alias: (*alias)(e),
	}
	if e.Cause != nil {
		aux.CauseMsg = e.Cause.Error()
	}
	return json.Marshal(aux)
}

// Is reports whether target is an ExportError with the same code.
func (e *ExportError) Is(target error) bool {
	t, ok := target.(*ExportError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy of the error with the given cause.
func (e *ExportError) WithCause(err error) *ExportError {
	return &ExportError{
		Code:  e.Code,
		What:  e.What,
		Why:   e.Why,
		Fix:   e.Fix,
		Cause: err,
	}
}

// --- Error constructors ---

// ErrNoStore returns the "nothing to do" condition for a missing store file.
func ErrNoStore(user, path string) *ExportError {
	return &ExportError{
		Code: CodeStoreNotFound,
		What: "No customized dashboards found. Nothing to do.",
		Why:  fmt.Sprintf("user %s has no dashboard store at %s", user, path),
	}
}

// ErrBadStore returns an error for a store that is not a literal mapping.
func ErrBadStore(path string, cause error) *ExportError {
	return &ExportError{
		Code:  CodeStoreFormat,
		What:  fmt.Sprintf("cannot parse dashboard store %s", path),
		Why:   "The file must contain a single literal dict of dashboard name to definition",
		Fix:   "Re-save the dashboards in the web GUI, or repair the file by hand",
		Cause: cause,
	}
}

// ErrNoDashboard returns an error when the requested dashboard is not in the store.
// An empty user yields a message without the user part.
func ErrNoDashboard(user, name string) *ExportError {
	if user == "" {
		return &ExportError{
			Code: CodeDashboardNotFound,
			What: fmt.Sprintf("dashboard %s not found", name),
		}
	}
	return &ExportError{
		Code: CodeDashboardNotFound,
		What: fmt.Sprintf("dashboard %s not found for user %s", name, user),
		Fix:  fmt.Sprintf("Run 'dashexport list -u %s' to see available dashboards", user),
	}
}

// ErrBadName returns an error for a user or dashboard name unusable in a file name.
func ErrBadName(kind, name string) *ExportError {
	return &ExportError{
		Code: CodeInvalidName,
		What: fmt.Sprintf("invalid %s name %q", kind, name),
		Why:  "Names must not be empty or contain path separators or '..'",
	}
}

// ErrWrite returns an I/O error for the given path.
func ErrWrite(path string, cause error) *ExportError {
	return &ExportError{
		Code:  CodeWriteFailed,
		What:  fmt.Sprintf("cannot write %s", path),
		Fix:   "Check permissions and free space of the site's local directory",
		Cause: cause,
	}
}

// ErrLocked returns an error when another export for the same user is running.
func ErrLocked(user, owner string, pid int) *ExportError {
	return &ExportError{
		Code: CodeExportLocked,
		What: fmt.Sprintf("another export for user %s is running", user),
		Why:  fmt.Sprintf("lock held by %s (pid %d)", owner, pid),
		Fix:  "Wait for the other export to finish, or remove the stale lock file",
	}
}

// ErrConfigInvalid returns an error for invalid configuration.
func ErrConfigInvalid(field, reason string) *ExportError {
	return &ExportError{
		Code: CodeConfigInvalid,
		What: fmt.Sprintf("invalid configuration: %s", field),
		Why:  reason,
		Fix:  "Check dashexport.yaml and DASHEXPORT_* environment variables",
	}
}

// ErrConfigMissing returns an error for missing configuration.
func ErrConfigMissing(field, fix string) *ExportError {
	return &ExportError{
		Code: CodeConfigMissing,
		What: fmt.Sprintf("missing required configuration: %s", field),
		Why:  "This value is required but not set",
		Fix:  fix,
	}
}

// AsExportError attempts to convert an error to an ExportError.
// Returns nil if the error is not an ExportError.
func AsExportError(err error) *ExportError {
	var exErr *ExportError
	if stderrors.As(err, &exErr) {
		return exErr
	}
	return nil
}

// Is is a convenience wrapper for errors.Is.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// Wrap wraps a generic error into an ExportError with unknown code.
func Wrap(err error, what string) *ExportError {
	return &ExportError{
		Code:  Code("UNKNOWN"),
		What:  what,
		Cause: err,
	}
}

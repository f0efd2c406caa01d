package cli

import (
	"fmt"
	"io"

	exerrors "github.com/randalmurphal/dashexport/internal/errors"
)

// PrintError prints err to w. ExportErrors use their user-facing format;
// "nothing to do" conditions print only their message.
func PrintError(w io.Writer, err error, verbose bool) {
	exErr := exerrors.AsExportError(err)
	if exErr == nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}

	if exErr.Category() == exerrors.CategoryNothingToDo {
		fmt.Fprintln(w, exErr.What)
		if verbose && exErr.Why != "" {
			fmt.Fprintln(w, exErr.Why)
		}
		return
	}

	fmt.Fprintln(w, exErr.UserMessage())
	if verbose {
		fmt.Fprintf(w, "\nCode: %s\n", exErr.Code)
		if exErr.Cause != nil {
			fmt.Fprintf(w, "Cause: %v\n", exErr.Cause)
		}
	}
}

// ExitCode returns the process exit status for an error returned by Execute.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if exErr := exerrors.AsExportError(err); exErr != nil {
		return exErr.Category().ExitCode()
	}
	return 1
}

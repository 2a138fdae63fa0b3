// Package output handles CLI output formatting shared across cmd/jobs
// subcommands.
package output

import (
	"fmt"
	"os"
)

// PrintErrorf prints an error message to stderr with formatting.
func PrintErrorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

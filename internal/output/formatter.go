// Package output renders Plugin Store listings for the admin CLI in the
// operator's chosen format.
package output

import (
	"fmt"
	"io"

	"github.com/goagain/reglet-host/internal/store"
)

// Formatter renders a set of plugin records to the given writer.
type Formatter interface {
	Format(w io.Writer, records []store.Record) error
}

// NewFormatter returns a Formatter for the given format name.
// Supported formats: "json", "table", "yaml", "quiet".
func NewFormatter(format string) (Formatter, error) {
	switch format {
	case "json":
		return &JSONFormatter{}, nil
	case "table":
		return &TableFormatter{}, nil
	case "yaml":
		return &YAMLFormatter{}, nil
	case "quiet":
		return &QuietFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %q (supported: json, table, yaml, quiet)", format)
	}
}

// QuietFormatter produces no output. The exit code conveys the result.
type QuietFormatter struct{}

func (f *QuietFormatter) Format(w io.Writer, records []store.Record) error {
	return nil
}

package cli

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/goagain/reglet-host/internal/output"
)

// outputFormatValue is a pflag.Value that rejects an invalid --output
// argument at parse time rather than deferring to output.NewFormatter at
// render time, so a typo surfaces as a usage error instead of an error from
// whichever subcommand happened to run first.
type outputFormatValue struct {
	format string
}

var _ pflag.Value = (*outputFormatValue)(nil)

func (v *outputFormatValue) String() string { return v.format }

func (v *outputFormatValue) Type() string { return "format" }

func (v *outputFormatValue) Set(s string) error {
	if _, err := output.NewFormatter(s); err != nil {
		return fmt.Errorf("invalid --output %q: %w", s, err)
	}
	v.format = s
	return nil
}

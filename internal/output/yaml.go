package output

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/goagain/reglet-host/internal/store"
)

// YAMLFormatter outputs plugin records as YAML.
type YAMLFormatter struct{}

func (f *YAMLFormatter) Format(w io.Writer, records []store.Record) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()
	return enc.Encode(records)
}

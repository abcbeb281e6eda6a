package output

import (
	"encoding/json"
	"io"

	"github.com/goagain/reglet-host/internal/store"
)

// JSONFormatter outputs plugin records as pretty-printed JSON.
type JSONFormatter struct{}

func (f *JSONFormatter) Format(w io.Writer, records []store.Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/goagain/reglet-host/internal/store"
)

// TableFormatter outputs plugin records as a human-readable table.
type TableFormatter struct{}

func (f *TableFormatter) Format(w io.Writer, records []store.Record) error {
	if len(records) == 0 {
		_, _ = fmt.Fprintln(w, "(no plugins installed)")
		return nil
	}

	table := tablewriter.NewTable(w,
		tablewriter.WithHeaderAutoFormat(tw.Off),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.Border{Top: tw.On, Bottom: tw.On, Left: tw.On, Right: tw.On},
		}),
	)
	table.Header("Plugin ID", "Version", "Name", "Status", "Granted Capabilities")

	for _, rec := range records {
		table.Append(
			rec.PluginID,
			rec.Version,
			rec.Name,
			string(rec.Status),
			strings.Join(rec.GrantedCapabilities, ", "),
		)
	}

	return table.Render()
}

package export

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/gendb/internal/synth"
)

// TableView renders the table as a standalone HTML document.
func TableView(t *synth.Table) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString("<!DOCTYPE html>\n<html lang=\"en\"><head><meta charset=\"utf-8\"><title>gendb export</title></head><body>\n")
		b.WriteString("<table>\n<thead><tr>")
		for _, name := range synth.ColumnNames() {
			b.WriteString("<th>")
			b.WriteString(templ.EscapeString(name))
			b.WriteString("</th>")
		}
		b.WriteString("</tr></thead>\n<tbody>\n")
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}

		for i := range t.Len() {
			if err := checkCtx(ctx, i); err != nil {
				return err
			}
			b.Reset()
			b.WriteString("<tr>")
			for _, cell := range t.Strings(i) {
				b.WriteString("<td>")
				b.WriteString(templ.EscapeString(cell))
				b.WriteString("</td>")
			}
			b.WriteString("</tr>\n")
			if _, err := io.WriteString(w, b.String()); err != nil {
				return err
			}
		}

		_, err := io.WriteString(w, "</tbody>\n</table>\n</body></html>\n")
		return err
	})
}

func writeHTML(ctx context.Context, w io.Writer, t *synth.Table) error {
	return TableView(t).Render(ctx, w)
}

package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/gendb/internal/core"
	"github.com/JonMunkholm/gendb/internal/export"
	"github.com/JonMunkholm/gendb/internal/synth"
)

// handleIndex renders the landing page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := indexPage(s.service.Reference(), s.service.Defaults(), s.service.Runs())
	if err := page.Render(r.Context(), w); err != nil {
		s.respondError(w, r, err)
	}
}

// handlePreviewPage renders preview rows as an HTML table.
func (s *Server) handlePreviewPage(w http.ResponseWriter, r *http.Request) {
	cfg, err := configFromQuery(r.URL.Query(), s.service.Defaults())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	table, err := s.service.Preview(r.Context(), cfg, parseIntParam(r, "rows", 20))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := export.TableView(table).Render(r.Context(), w); err != nil {
		s.respondError(w, r, err)
	}
}

// indexPage lists the loaded reference data, the defaults and recent runs.
func indexPage(ref core.ReferenceSummary, defaults synth.Config, runs []*core.Run) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString("<!DOCTYPE html>\n<html lang=\"en\"><head><meta charset=\"utf-8\"><title>gendb</title></head><body>\n")
		b.WriteString("<h1>gendb</h1>\n")

		b.WriteString("<h2>Reference data</h2>\n<ul>")
		fmt.Fprintf(&b, "<li>%d localities</li>", ref.Localities)
		fmt.Fprintf(&b, "<li>%d name rows covering %d&ndash;%d</li>", ref.NameRows, ref.MinYear, ref.MaxYear)
		fmt.Fprintf(&b, "<li>%d surnames</li>", ref.Surnames)
		fmt.Fprintf(&b, "<li>%d PIDs issued</li>", ref.IssuedPIDs)
		b.WriteString("</ul>\n")

		b.WriteString("<h2>Preview</h2>\n<form method=\"get\" action=\"/preview\">")
		field := func(name, label, value string) {
			fmt.Fprintf(&b, "<label>%s <input name=\"%s\" value=\"%s\"></label> ",
				templ.EscapeString(label), name, templ.EscapeString(value))
		}
		field("rows", "Rows", "20")
		field("female_chance", "Female %", fmt.Sprint(defaults.FemaleChance))
		field("second_name_chance", "Second name %", fmt.Sprint(defaults.SecondNameChance))
		field("birth_year_from", "Born from", fmt.Sprint(defaults.BirthYearFrom))
		field("birth_year_to", "to", fmt.Sprint(defaults.BirthYearTo))
		b.WriteString("<button type=\"submit\">Preview</button></form>\n")

		b.WriteString("<h2>Recent runs</h2>\n")
		if len(runs) == 0 {
			b.WriteString("<p>No runs yet.</p>\n")
		} else {
			b.WriteString("<table>\n<thead><tr><th>Run</th><th>Started</th><th>Rows</th><th>Targets</th><th>Status</th></tr></thead>\n<tbody>\n")
			for _, run := range runs {
				fmt.Fprintf(&b, "<tr><td><a href=\"/api/runs/%s\">%s</a></td><td>%s</td><td>%d</td><td>%d</td><td>%s</td></tr>\n",
					templ.EscapeString(run.ID),
					templ.EscapeString(run.ID[:8]),
					run.Started.Format("2006-01-02 15:04:05"),
					run.Rows,
					len(run.Results),
					templ.EscapeString(runStatus(run)),
				)
			}
			b.WriteString("</tbody>\n</table>\n")
		}

		b.WriteString("</body></html>\n")
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func runStatus(run *core.Run) string {
	switch {
	case run.Error != nil:
		return "failed: " + run.Error.Code
	case run.Failed():
		return "partial"
	default:
		return "ok"
	}
}

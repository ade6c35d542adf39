package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"mediasort/internal/preflight"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

var statusStyles = map[statusKind]struct {
	tag   string
	color text.Colors
}{
	statusInfo:  {"INFO", text.Colors{text.FgBlue}},
	statusOK:    {"OK", text.Colors{text.FgGreen}},
	statusWarn:  {"WARN", text.Colors{text.FgYellow}},
	statusError: {"ERROR", text.Colors{text.FgRed}},
}

// labelColumn is wide enough for the longest report label.
const labelColumn = 22

// reportWriter prints the human-facing output of the CLI: labelled status
// lines, section headings and tables. Counts get thousands separators and
// color is only used on a terminal.
type reportWriter struct {
	out   io.Writer
	color bool
	p     *message.Printer
}

func newReportWriter(out io.Writer) *reportWriter {
	return &reportWriter{out: out, color: isTerminal(out), p: message.NewPrinter(language.English)}
}

func (r *reportWriter) status(label string, kind statusKind, msg string) {
	fmt.Fprintln(r.out, r.statusLine(label, kind, msg))
}

func (r *reportWriter) statusLine(label string, kind statusKind, msg string) string {
	style := statusStyles[kind]
	line := fmt.Sprintf("  %-*s [%s]", labelColumn, label+":", style.tag)
	if msg != "" {
		line += " " + msg
	}
	if r.color {
		return style.color.Sprint(line)
	}
	return line
}

func (r *reportWriter) section(title string) {
	rule := strings.Repeat("─", utf8.RuneCountInString(title))
	if r.color {
		title = text.Bold.Sprint(title)
	}
	fmt.Fprintln(r.out, title)
	fmt.Fprintln(r.out, rule)
}

func (r *reportWriter) blank() { fmt.Fprintln(r.out) }

func (r *reportWriter) count(n int) string { return r.p.Sprintf("%d", n) }

// column describes one table column. Numeric columns are right aligned.
type column struct {
	title   string
	numeric bool
}

func (r *reportWriter) table(columns []column, rows [][]string) {
	if out := renderTable(columns, rows); out != "" {
		fmt.Fprintln(r.out, out)
	}
}

func renderTable(columns []column, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, col := range columns {
		header[i] = col.title
		configs[i] = table.ColumnConfig{Number: i + 1, AlignHeader: text.AlignLeft, Align: text.AlignLeft}
		if col.numeric {
			configs[i].Align = text.AlignRight
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, cells := range rows {
		row := make(table.Row, len(columns))
		for i := range row {
			row[i] = ""
			if i < len(cells) {
				row[i] = cells[i]
			}
		}
		tw.AppendRow(row)
	}
	return tw.Render()
}

// preflight prints one line per check plus a verdict.
func (r *reportWriter) preflight(results []preflight.Result) {
	var blocking, warnings int
	for _, result := range results {
		kind := statusOK
		if !result.Passed {
			if result.Advisory {
				kind = statusWarn
				warnings++
			} else {
				kind = statusError
				blocking++
			}
		}
		r.status(result.Name, kind, result.Detail)
	}
	switch {
	case blocking > 0:
		r.status("Summary", statusError, fmt.Sprintf("%d blocking problem(s)", blocking))
	case warnings > 0:
		r.status("Summary", statusWarn, fmt.Sprintf("ready to run, %d warning(s)", warnings))
	default:
		r.status("Summary", statusOK, "ready to run")
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "0s"
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(100 * time.Millisecond).String()
	}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

// Package reporting renders run results for the terminal: the per-context
// summary table, verification results and the dry-run diff.
package reporting

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"kubeconfig-updater/internal/color"
	"kubeconfig-updater/internal/kube"
	"kubeconfig-updater/internal/reconcile"
)

// Icons used in front of table rows.
const (
	IconCheck   = "✔"
	IconCross   = "✘"
	IconWarning = "⚠"
	IconDot     = "·"
)

// Level picks the style of a row.
type Level int

const (
	LevelOK Level = iota
	LevelUnchanged
	LevelWarn
	LevelError
)

// Row is one line of a result table.
type Row struct {
	Level  Level
	Name   string
	Status string
	Detail string
}

// maxDetailWidth bounds the detail column so long error chains stay on one
// line.
const maxDetailWidth = 72

// ConsoleReporter writes human readable output to a terminal.
type ConsoleReporter struct {
	out io.Writer
}

// NewConsoleReporter returns a reporter writing to out.
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: out}
}

// Header prints the run banner.
func (r *ConsoleReporter) Header(kubeconfigPath string, dryRun bool) {
	title := "Refreshing credentials in " + kubeconfigPath
	if dryRun {
		title += " (dry run)"
	}
	fmt.Fprintln(r.out, color.BannerStyle.Render(title))
}

// Progress prints one progress line, e.g. "Processing context 2/5: prod".
func (r *ConsoleReporter) Progress(line string) {
	fmt.Fprintln(r.out, color.InfoStyle.Render(line))
}

// ProgressWriter returns a writer that prints every line written to it as a
// progress line.
func (r *ConsoleReporter) ProgressWriter() io.Writer {
	return progressWriter{r}
}

type progressWriter struct {
	r *ConsoleReporter
}

func (w progressWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line != "" {
			w.r.Progress(line)
		}
	}
	return len(p), nil
}

// Summary prints the outcome table of a reconciliation pass followed by a
// one-line verdict.
func (r *ConsoleReporter) Summary(s *reconcile.Summary) {
	if len(s.Outcomes) == 0 {
		fmt.Fprintln(r.out, color.WarningStyle.Render("No contexts found in kubeconfig"))
		return
	}

	rows := make([]Row, 0, len(s.Outcomes))
	for _, o := range s.Outcomes {
		rows = append(rows, outcomeRow(o))
	}
	fmt.Fprintln(r.out)
	r.Table(rows)
	fmt.Fprintln(r.out)

	counts := fmt.Sprintf("%d merged, %d skipped, %d failed", s.Merged(), s.Skipped(), s.Failed())
	switch {
	case s.Updated() == 0 && s.ExitCode() == reconcile.ExitOK:
		fmt.Fprintln(r.out, color.SuccessStyle.Render(IconText(IconCheck, "All credentials are up-to-date")))
	case s.Updated() > 0 && s.DryRun:
		fmt.Fprintln(r.out, color.InfoStyle.Render(fmt.Sprintf("%d context(s) would be updated", s.Updated())))
	case s.Updated() > 0:
		fmt.Fprintln(r.out, color.SuccessStyle.Render(fmt.Sprintf("%d context(s) updated", s.Updated())))
	}
	if s.ExitCode() == reconcile.ExitOK {
		fmt.Fprintln(r.out, color.MutedStyle.Render(counts))
	} else {
		fmt.Fprintln(r.out, color.WarningStyle.Render(IconText(IconWarning, "Partial success: "+counts)))
	}
}

// Table prints rows with aligned name and status columns.
func (r *ConsoleReporter) Table(rows []Row) {
	nameWidth, statusWidth := 0, 0
	for _, row := range rows {
		nameWidth = max(nameWidth, runewidth.StringWidth(row.Name))
		statusWidth = max(statusWidth, runewidth.StringWidth(row.Status))
	}

	for _, row := range rows {
		icon, style := rowDecoration(row.Level)
		line := IconText(icon, runewidth.FillRight(row.Name, nameWidth)) + "  " +
			style.Render(runewidth.FillRight(row.Status, statusWidth))
		if row.Detail != "" {
			line += "  " + color.MutedStyle.Render(Truncate(row.Detail, maxDetailWidth))
		}
		fmt.Fprintln(r.out, strings.TrimRight(line, " "))
	}
}

// Verification prints one row per probed context.
func (r *ConsoleReporter) Verification(results []kube.ProbeResult) {
	if len(results) == 0 {
		fmt.Fprintln(r.out, color.MutedStyle.Render("No contexts to verify"))
		return
	}

	rows := make([]Row, 0, len(results))
	failed := 0
	for _, res := range results {
		if !res.OK() {
			failed++
			rows = append(rows, Row{Level: LevelError, Name: res.Context, Status: "unreachable", Detail: res.Err.Error()})
			continue
		}
		detail := fmt.Sprintf("%s, %d/%d nodes ready", res.Version, res.Nodes.ReadyNodes, res.Nodes.TotalNodes)
		if res.Provider != "" && res.Provider != "unknown" {
			detail += ", " + res.Provider
		}
		rows = append(rows, Row{Level: LevelOK, Name: res.Context, Status: "verified", Detail: detail})
	}

	fmt.Fprintln(r.out, color.TitleStyle.Render("Verification"))
	r.Table(rows)
	if failed > 0 {
		fmt.Fprintln(r.out, color.WarningStyle.Render(IconText(IconWarning, fmt.Sprintf("%d of %d context(s) failed verification", failed, len(results)))))
	}
}

// Fatal prints an error that ended the run.
func (r *ConsoleReporter) Fatal(err error) {
	fmt.Fprintln(r.out, color.ErrorStyle.Render(IconText(IconCross, "Error: "+err.Error())))
}

func outcomeRow(o reconcile.Outcome) Row {
	row := Row{Name: o.Context}
	switch {
	case o.Kind == reconcile.KindMerged && o.Updated():
		row.Level, row.Status = LevelOK, "updated"
		row.Detail = strings.Join(o.Changed, ", ")
	case o.Kind == reconcile.KindMerged:
		row.Level, row.Status = LevelUnchanged, "up-to-date"
	case o.Kind.Skipped():
		row.Level, row.Status = LevelWarn, "skipped"
	default:
		row.Level, row.Status = LevelError, "failed"
	}
	if o.Err != nil {
		row.Detail = o.Err.Error()
	}
	if o.UsernameCached {
		note := "login cached"
		if row.Detail != "" {
			note = row.Detail + "; " + note
		}
		row.Detail = note
	}
	return row
}

func rowDecoration(l Level) (string, lipgloss.Style) {
	switch l {
	case LevelOK:
		return IconCheck, color.SuccessStyle
	case LevelUnchanged:
		return IconDot, color.MutedStyle
	case LevelWarn:
		return IconWarning, color.WarningStyle
	default:
		return IconCross, color.ErrorStyle
	}
}

// SafeIcon pads an icon so wide glyphs do not swallow the following
// character.
func SafeIcon(icon string) string {
	spaces := 1
	if runewidth.StringWidth(icon) >= 2 {
		spaces = 2
	}
	return icon + strings.Repeat(" ", spaces)
}

// IconText prefixes text with a padded icon.
func IconText(icon, text string) string {
	return SafeIcon(icon) + text
}

// Truncate shortens s to at most width display cells, ending in "…" when cut.
func Truncate(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width-1, "") + "…"
}

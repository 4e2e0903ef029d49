package reporting

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"kubeconfig-updater/internal/color"
)

// UnifiedDiff returns the unified diff between the kubeconfig at path as
// loaded (before) and as it would be saved (after). Identical content gives
// an empty string.
func UnifiedDiff(path string, before, after []byte) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: path,
		ToFile:   path + " (updated)",
		Context:  2,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("computing diff for %s: %w", path, err)
	}
	return text, nil
}

// Diff prints a unified diff with added and removed lines coloured.
func (r *ConsoleReporter) Diff(text string) {
	if text == "" {
		fmt.Fprintln(r.out, color.MutedStyle.Render("No changes to write"))
		return
	}
	for _, line := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		line = strings.TrimSuffix(line, "\r")
		switch {
		case len(line) >= 3 && (line[:3] == "---" || line[:3] == "+++"):
			fmt.Fprintln(r.out, color.TitleStyle.Render(line))
		case len(line) > 0 && line[0] == '+':
			fmt.Fprintln(r.out, color.SuccessStyle.Render(line))
		case len(line) > 0 && line[0] == '-':
			fmt.Fprintln(r.out, color.ErrorStyle.Render(line))
		case len(line) >= 2 && line[:2] == "@@":
			fmt.Fprintln(r.out, color.InfoStyle.Render(line))
		default:
			fmt.Fprintln(r.out, line)
		}
	}
}

// Package color provides the console styles used by kubeconfig-updater.
//
// Styles are grouped by meaning rather than by hue, matching the levels the
// updater reports on:
//   - Title: banners and prompt titles
//   - Info: progress lines
//   - Success: contexts whose credentials were refreshed
//   - Warning: skipped contexts
//   - Error: failed contexts and fatal errors
//   - Muted: de-emphasized detail such as hostnames
//
// # Usage Example
//
//	color.Initialize(true)
//	fmt.Println(color.SuccessStyle.Render("✓ credentials updated"))
//	fmt.Println(color.ErrorStyle.Render("✗ unreachable"))
//
// lipgloss downgrades the palette to whatever the terminal supports and
// honours NO_COLOR, so callers never branch on terminal capabilities.
package color

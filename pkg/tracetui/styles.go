// Package tracetui implements a terminal viewer for stepping through one
// captured execution trace frame by frame, with the scope tree alongside.
//
// Grounded on pkg/tui/{app.go,keys.go,styles.go,markdown.go}: the same
// Bubble Tea model/keybinding/palette/glamour shape, adapted from
// stepping through runbook steps over JSON-RPC to stepping through
// pkg/tracemodel rows already captured in memory — no client/server
// split is needed here, so pkg/tui/client.go's RPC plumbing has no
// counterpart.
package tracetui

import "github.com/charmbracelet/lipgloss"

// Frame status glyphs, matching pkg/tui/styles.go's convey-without-color
// convention — a loop/branch/call frame reads differently once its
// EndExecutionID is set.
const (
	GlyphOpen     = "▸"
	GlyphClosed   = "✓"
	GlyphVariable = "·"
	GlyphLoop     = "⟳"
	GlyphBranch   = "◆"
)

var (
	colorCyan    = lipgloss.Color("51")
	colorYellow  = lipgloss.Color("214")
	colorGreen   = lipgloss.Color("42")
	colorDim     = lipgloss.Color("240")
	colorWhite   = lipgloss.Color("255")
	colorMagenta = lipgloss.Color("201")
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan).
			Padding(0, 1)

	rowNormal = lipgloss.NewStyle().
			Foreground(colorWhite)

	rowSelected = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorYellow)

	rowVariable = lipgloss.NewStyle().
			Foreground(colorDim)

	rowClosed = lipgloss.NewStyle().
			Foreground(colorGreen)

	scopeStyle = lipgloss.NewStyle().
			Foreground(colorMagenta)

	panelBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim)

	keyStyle = lipgloss.NewStyle().
			Foreground(colorCyan).
			Bold(true)

	keyDescStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	keyBarStyle = lipgloss.NewStyle().
			Padding(0, 1)
)

package tracetui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the viewer's key bindings, the same shape as pkg/tui's
// keyMap but with the runbook-advance/retry/skip verbs replaced by
// trace-browsing ones.
type keyMap struct {
	Next   key.Binding
	Prev   key.Binding
	Scope  key.Binding
	Quit   key.Binding
	Help   key.Binding
	PgUp   key.Binding
	PgDown key.Binding
}

var keys = keyMap{
	Next: key.NewBinding(
		key.WithKeys("down", "j", "enter"),
		key.WithHelp("↓/j/enter", "next frame"),
	),
	Prev: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "previous frame"),
	),
	Scope: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "toggle scope tree"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	PgUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("PgUp", "page up"),
	),
	PgDown: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("PgDn", "page down"),
	),
}

func keyBarText(scopeVisible bool) string {
	scopeHint := "show scope"
	if scopeVisible {
		scopeHint = "hide scope"
	}
	return keyStyle.Render("↑↓/j/k") + keyDescStyle.Render(":browse") + "  " +
		keyStyle.Render("s") + keyDescStyle.Render(":"+scopeHint) + "  " +
		keyStyle.Render("PgUp/Dn") + keyDescStyle.Render(":page") + "  " +
		keyStyle.Render("q") + keyDescStyle.Render(":quit") + "  " +
		keyStyle.Render("?") + keyDescStyle.Render(":help")
}

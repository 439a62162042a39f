package tracetui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/algotrace/tracequery/pkg/langvalue"
	"github.com/algotrace/tracequery/pkg/tracemodel"
)

// Config holds the parameters needed to launch the viewer.
type Config struct {
	// Items is a captured run's trace ++ variables relation, in recorded
	// order — (*execctx.Context).AllItems().
	Items []any
	// Question, if set, is rendered as a markdown preview above the
	// frame list (the generated question text for this run).
	Question string
	// Scopes is the run's root scope, for the side-by-side scope tree.
	Scopes *tracemodel.Scope
}

// Model is the top-level Bubble Tea model.
type Model struct {
	items        []any
	question     string
	root         *tracemodel.Scope
	cursor       int
	scopeVisible bool
	width        int
	height       int
	quitting     bool
}

// New builds the initial model for cfg.
func New(cfg Config) Model {
	return Model{
		items:    cfg.Items,
		question: cfg.Question,
		root:     cfg.Scopes,
	}
}

// Run launches the viewer as a full-screen Bubble Tea program.
func Run(cfg Config) error {
	p := tea.NewProgram(New(cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Next):
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.Prev):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.PgDown):
			m.cursor = minInt(m.cursor+10, maxInt(len(m.items)-1, 0))
		case key.Matches(msg, keys.PgUp):
			m.cursor = maxInt(m.cursor-10, 0)
		case key.Matches(msg, keys.Scope):
			m.scopeVisible = !m.scopeVisible
		}
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("trace viewer — frame %d/%d", min1(m.cursor+1, len(m.items)), len(m.items))))
	b.WriteString("\n\n")

	if m.question != "" {
		b.WriteString(renderMarkdown(m.question))
		b.WriteString("\n\n")
	}

	list := m.renderList()
	if m.scopeVisible && m.root != nil {
		tree := scopeStyle.Render(renderScopeTree(m.root, 0))
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, list, "  ", tree))
	} else {
		b.WriteString(list)
	}

	b.WriteString("\n\n")
	if m.cursor >= 0 && m.cursor < len(m.items) {
		b.WriteString(panelBorder.Render(renderDetail(m.items[m.cursor])))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(keyBarStyle.Render(keyBarText(m.scopeVisible)))
	return b.String()
}

// renderList draws every frame as a one-line glyph+summary, highlighting
// the cursor row.
func (m Model) renderList() string {
	var b strings.Builder
	lo, hi := windowAround(m.cursor, len(m.items), 12)
	for i := lo; i < hi; i++ {
		line := frameSummary(m.items[i])
		style := rowNormal
		if i == m.cursor {
			style = rowSelected
			line = "> " + line
		} else {
			line = "  " + line
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

// windowAround returns a [lo, hi) slice window of size around cursor,
// clamped to [0, n).
func windowAround(cursor, n, size int) (int, int) {
	if n <= size {
		return 0, n
	}
	lo := cursor - size/2
	if lo < 0 {
		lo = 0
	}
	hi := lo + size
	if hi > n {
		hi = n
		lo = hi - size
	}
	return lo, hi
}

// frameSummary renders one row's list entry, e.g.
// "⟳ loop for (line 4) [2..19]" or "· x = 3 (line 5)".
func frameSummary(row any) string {
	switch r := row.(type) {
	case *tracemodel.LoopExecution:
		return fmt.Sprintf("%s loop %s (line %d) %s", GlyphLoop, r.LoopType, r.LineNumber, rangeSuffix(r.ExecutionID, r.EndExecutionID))
	case *tracemodel.LoopIteration:
		return fmt.Sprintf("%s iteration #%d (line %d) %s", GlyphOpen, r.IterationNum, r.LineNumber, rangeSuffix(r.ExecutionID, r.EndExecutionID))
	case *tracemodel.FunctionCall:
		return fmt.Sprintf("%s call %s() (line %d) %s", GlyphOpen, r.FuncFullName, r.LineNumber, rangeSuffix(r.ExecutionID, r.EndExecutionID))
	case *tracemodel.BranchExecution:
		return fmt.Sprintf("%s if %s -> %v (line %d) %s", GlyphBranch, r.ConditionStr, r.ConditionResult, r.LineNumber, rangeSuffix(r.ExecutionID, r.EndExecutionID))
	case *tracemodel.VariableSnapshot:
		return fmt.Sprintf("%s %s = %s (line %d)", GlyphVariable, r.Name, formatValue(r.Value), r.LineNumber)
	default:
		return fmt.Sprintf("? %v", row)
	}
}

func rangeSuffix(start int, end *int) string {
	if end == nil {
		return fmt.Sprintf("[%d..open]", start)
	}
	return fmt.Sprintf("[%d..%d]", start, *end)
}

// renderDetail renders one row's full field dump as markdown, the detail
// panel's content.
func renderDetail(row any) string {
	var b strings.Builder
	switch r := row.(type) {
	case *tracemodel.LoopExecution:
		fmt.Fprintf(&b, "### Loop execution\n- type: %s\n- line: %d\n- iterations so far: %d\n", r.LoopType, r.LineNumber, r.NumIterations)
	case *tracemodel.LoopIteration:
		fmt.Fprintf(&b, "### Loop iteration\n- loop execution id: %d\n- iteration: %d\n- line: %d\n", r.LoopExecutionID, r.IterationNum, r.LineNumber)
	case *tracemodel.FunctionCall:
		fmt.Fprintf(&b, "### Function call `%s`\n- line: %d\n- arguments:\n", r.FuncFullName, r.LineNumber)
		if r.Arguments != nil {
			for p := r.Arguments.Oldest(); p != nil; p = p.Next() {
				fmt.Fprintf(&b, "  - %s = %s\n", p.Key, formatValue(p.Value))
			}
		}
		if r.HasReturnValue {
			fmt.Fprintf(&b, "- return value: %s\n", formatValue(r.ReturnValue))
		}
	case *tracemodel.BranchExecution:
		fmt.Fprintf(&b, "### Branch\n- condition: `%s`\n- result: %v\n- line: %d\n", r.ConditionStr, r.ConditionResult, r.LineNumber)
	case *tracemodel.VariableSnapshot:
		fmt.Fprintf(&b, "### Variable `%s`\n- value: %s\n- line: %d\n", r.Name, formatValue(r.Value), r.LineNumber)
	}
	return renderMarkdown(b.String())
}

func formatValue(v langvalue.Value) string {
	switch t := v.(type) {
	case *langvalue.Dict:
		var parts []string
		for p := t.Oldest(); p != nil; p = p.Next() {
			parts = append(parts, fmt.Sprintf("%s: %v", p.Key, p.Value))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case []langvalue.Value:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = formatValue(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("%v", t)
	}
}

func renderScopeTree(s *tracemodel.Scope, depth int) string {
	if s == nil {
		return ""
	}
	name := s.Name
	if name == "" {
		name = string(s.Type)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s%s (#%d)\n", strings.Repeat("  ", depth), name, s.ID)
	for _, c := range s.Children {
		b.WriteString(renderScopeTree(c, depth+1))
	}
	return b.String()
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min1(a, b int) int {
	if a < b {
		return a
	}
	return b
}

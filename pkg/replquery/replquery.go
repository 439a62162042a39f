// Package replquery implements an interactive line-editor REPL for
// running ad hoc pipeline queries against one captured execution trace.
//
// Grounded on pkg/debugger/debugger.go's chzyer/readline REPL shape
// (NewEx with a prefix completer, a command-word switch, a buildPrompt
// helper) adapted from stepping through a runbook to building up a
// pkg/query.Query pipeline one verb at a time. The `expr` command is the
// escape hatch for predicates the fixed where/select/order_by vocabulary
// can't express, using expr-lang/expr the way pkg/distractor evaluates
// small per-candidate expressions.
package replquery

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/algotrace/tracequery/pkg/query"
)

// REPL holds the fixed row set (one captured trace's trace ++ variables
// relation) and the pipeline built up across commands.
type REPL struct {
	items       []any
	output      io.Writer
	steps       []step
	exprFilters []*vm.Program
}

// step is one pending pipeline operation, applied in order when the user
// types "run".
type step func(*query.Query) *query.Query

// New builds a REPL over items — typically (*execctx.Context).AllItems().
func New(items []any) *REPL {
	return &REPL{items: items, output: os.Stdout}
}

// Run starts the interactive loop; returns nil on a clean "quit"/EOF/^D.
func (r *REPL) Run() error {
	commands := []string{"where", "select", "distinct", "order_by", "limit", "offset", "expr", "run", "reset", "help", "quit"}
	completer := readline.NewPrefixCompleter()
	for _, cmd := range commands {
		completer.Children = append(completer.Children, readline.PcItem(cmd))
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          r.buildPrompt(),
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("replquery: init readline: %w", err)
	}
	defer rl.Close()

	fmt.Fprintf(r.output, "query repl — %d rows loaded. Type 'help' for commands.\n\n", len(r.items))

	for {
		rl.SetPrompt(r.buildPrompt())
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		cmd := fields[0]
		args := fields[1:]

		switch cmd {
		case "where":
			if err := r.addWhere(args); err != nil {
				fmt.Fprintf(r.output, "error: %v\n", err)
			}
		case "select":
			r.steps = append(r.steps, func(q *query.Query) *query.Query { return q.Select(args...) })
		case "distinct":
			r.steps = append(r.steps, func(q *query.Query) *query.Query { return q.Distinct() })
		case "order_by":
			if err := r.addOrderBy(args); err != nil {
				fmt.Fprintf(r.output, "error: %v\n", err)
			}
		case "limit":
			n, err := strconv.Atoi(firstOr(args, ""))
			if err != nil {
				fmt.Fprintf(r.output, "error: limit needs an integer argument\n")
				continue
			}
			r.steps = append(r.steps, func(q *query.Query) *query.Query { return q.Limit(n) })
		case "offset":
			n, err := strconv.Atoi(firstOr(args, ""))
			if err != nil {
				fmt.Fprintf(r.output, "error: offset needs an integer argument\n")
				continue
			}
			r.steps = append(r.steps, func(q *query.Query) *query.Query { return q.Offset(n) })
		case "expr":
			if err := r.addExpr(strings.Join(args, " ")); err != nil {
				fmt.Fprintf(r.output, "error: %v\n", err)
			}
		case "run", "r":
			r.execute()
		case "reset":
			r.steps = nil
			r.exprFilters = nil
			fmt.Fprintln(r.output, "pipeline cleared.")
		case "help", "?":
			r.printHelp()
		case "quit", "q", "exit":
			return nil
		default:
			fmt.Fprintf(r.output, "unknown command %q. Type 'help' for available commands.\n", cmd)
		}
	}
}

// addWhere appends a `where field op value` step. value is parsed as an
// int64, then a float64, then a bool, falling back to a bare string.
func (r *REPL) addWhere(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: where <field> <op> <value>")
	}
	field, op, raw := args[0], args[1], args[2]
	value := parseValue(raw)
	r.steps = append(r.steps, func(q *query.Query) *query.Query {
		return q.Where(query.Condition{Field: field, Op: op, Value: value})
	})
	return nil
}

func (r *REPL) addOrderBy(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: order_by <field> [asc|desc]")
	}
	field := args[0]
	ascending := true
	if len(args) > 1 && strings.EqualFold(args[1], "desc") {
		ascending = false
	}
	r.steps = append(r.steps, func(q *query.Query) *query.Query { return q.OrderBy(field, ascending) })
	return nil
}

// addExpr compiles src once up front so a typo is reported immediately
// rather than on every row when "run" executes. expr predicates run
// ahead of the query.Query pipeline (query.Condition has no hook for an
// arbitrary closure), filtering the row set itself before where/select/
// order_by see it.
func (r *REPL) addExpr(src string) error {
	if src == "" {
		return fmt.Errorf("usage: expr <expr-lang boolean expression over `row`>")
	}
	program, err := expr.Compile(src, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return fmt.Errorf("compiling expression: %w", err)
	}
	r.exprFilters = append(r.exprFilters, program)
	return nil
}

func (r *REPL) execute() {
	items := r.items
	for _, program := range r.exprFilters {
		var filtered []any
		for _, row := range items {
			keep, err := expr.Run(program, map[string]any{"row": row})
			if err == nil {
				if b, ok := keep.(bool); ok && b {
					filtered = append(filtered, row)
				}
			}
		}
		items = filtered
	}

	q := query.New(items)
	for _, s := range r.steps {
		q = s(q)
	}
	rows, err := q.Execute()
	if err != nil {
		fmt.Fprintf(r.output, "error: %v\n", err)
		return
	}
	for i, row := range rows {
		fmt.Fprintf(r.output, "[%d] %+v\n", i, row)
	}
	fmt.Fprintf(r.output, "(%d rows)\n", len(rows))
}

func (r *REPL) buildPrompt() string {
	return fmt.Sprintf("query[%d steps]> ", len(r.steps))
}

func (r *REPL) printHelp() {
	fmt.Fprint(r.output, `commands:
  where <field> <op> <value>   filter rows (op: == != < <= > >= in not_in)
  select <f1> [f2 ...]         project one or more dotted field paths
  distinct                     drop duplicate rows
  order_by <field> [desc]      sort by a field, ascending unless "desc"
  limit <n>                    keep the first n rows
  offset <n>                   skip the first n rows
  expr <predicate>             filter with an expr-lang predicate over "row"
  run                          execute the pipeline built so far and print it
  reset                        clear the pipeline
  quit                         exit
`)
}

func firstOr(args []string, fallback string) string {
	if len(args) == 0 {
		return fallback
	}
	return args[0]
}

func parseValue(raw string) any {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return strings.Trim(raw, `"`)
}

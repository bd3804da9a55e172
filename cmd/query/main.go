// Command query opens an existing database and runs SELECT/DESCRIBE
// queries against it, either once from a file or interactively from
// stdin (spec §6's "query DB [QUERYFILE]").
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/intellect4all/triplecore"
	"github.com/intellect4all/triplecore/codegen"
	"github.com/intellect4all/triplecore/common"
	"github.com/intellect4all/triplecore/operator"
	"github.com/intellect4all/triplecore/refquery"
	"github.com/intellect4all/triplecore/runtime"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query DB [QUERYFILE]",
		Short: "Run SELECT/DESCRIBE queries against a triple database",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args)
		},
	}
	return cmd
}

func run(args []string) error {
	opts := triplecore.DefaultOptions(args[0])
	opts.Logger = zap.NewNop()
	store, err := triplecore.Open(opts)
	if err != nil {
		return fmt.Errorf("open %s: %w", args[0], err)
	}
	defer store.Close()

	if !store.Built() {
		return fmt.Errorf("%s has no built database; run bulkload first", args[0])
	}

	sess := newSession(store)

	if len(args) == 2 {
		text, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[1], err)
		}
		return sess.runOne(string(text), os.Stdout)
	}

	return sess.repl(os.Stdin, os.Stdout)
}

// session carries the pieces a query needs across repeated calls: the
// planner (with its constant-cardinality statistics), and the resolve
// closure turning a query's string terms into dictionary ids.
type session struct {
	store   *triplecore.Store
	planner *refquery.Planner
}

func newSession(store *triplecore.Store) *session {
	return &session{store: store, planner: refquery.NewPlanner(refquery.NewConstantStatistics())}
}

func (s *session) resolve(text string) common.ID {
	id, ok, err := s.store.Dict.Lookup(text)
	if err != nil || !ok {
		return common.Unbound
	}
	return id
}

// runOne parses, plans and executes one query, writing its results to w.
func (s *session) runOne(text string, w io.Writer) error {
	parsed, err := refquery.Parse(text)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	plan, err := s.planner.Plan(parsed, s.resolve)
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}

	rt := runtime.New(s.store, s.store.Overlay)
	n, err := refquery.Execute(rt, s.store.Database(), s.store.Dict, plan, s.resolve, w, operator.ExpandDuplicates)
	if err != nil {
		return fmt.Errorf("execute: %w", err)
	}
	if n == 0 {
		fmt.Fprintln(w, "(empty result)")
	}
	return nil
}

// explain parses and plans a query without executing it, printing each
// branch's root operator label (Operator.Print writes only the root's own
// label, not its children) instead of any tuples.
func (s *session) explain(text string, w io.Writer) error {
	parsed, err := refquery.Parse(text)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	plan, err := s.planner.Plan(parsed, s.resolve)
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}
	rt := runtime.New(s.store, s.store.Overlay)
	for i, qg := range plan.Branches {
		if len(plan.Branches) > 1 {
			fmt.Fprintf(w, "branch %d:\n", i)
		}
		op, _, err := codegen.Translate(rt, s.store.Database(), qg)
		if err != nil {
			return fmt.Errorf("translate: %w", err)
		}
		op.Print(w, s.store.Dict, 1)
	}
	return nil
}

const helpText = `commands:
  help             show this message
  exit             quit
  explain <query>  print the plan for <query> instead of running it
  <query>          run a SELECT or DESCRIBE query
`

// repl runs an interactive read-eval-print loop: one query (or command)
// per line, matching spec §6's "help/exit" interactive commands.
func (s *session) repl(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	fmt.Fprint(w, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case strings.EqualFold(line, "exit"), strings.EqualFold(line, "quit"):
			return nil
		case strings.EqualFold(line, "help"):
			fmt.Fprint(w, helpText)
		case strings.HasPrefix(line, "explain "):
			if err := s.explain(strings.TrimPrefix(line, "explain "), w); err != nil {
				fmt.Fprintln(w, "error:", err)
			}
		default:
			if err := s.runOne(line, w); err != nil {
				fmt.Fprintln(w, "error:", err)
			}
		}
		fmt.Fprint(w, "> ")
	}
	fmt.Fprintln(w)
	return scanner.Err()
}

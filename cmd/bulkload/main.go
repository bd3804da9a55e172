// Command bulkload builds a fresh database from a Turtle file: it parses
// every triple, interns the distinct terms into the dictionary, and
// bulk-loads all six permuted indices in one pass (spec §6's "bulkload DB
// INPUT.ttl").
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/intellect4all/triplecore"
	"github.com/intellect4all/triplecore/refquery"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "bulkload:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "bulkload DB INPUT.ttl",
		Short: "Bulk-load a Turtle file into a fresh triple database",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], args[1], verbose)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
	return cmd
}

func run(dbPath, inputPath string, verbose bool) error {
	logger := newLogger(verbose)
	defer logger.Sync()

	text, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", inputPath, err)
	}

	raws, err := refquery.ParseTurtleRaw(string(text))
	if err != nil {
		return fmt.Errorf("parse %s: %w", inputPath, err)
	}

	opts := triplecore.DefaultOptions(dbPath)
	opts.Logger = logger
	store, err := triplecore.Open(opts)
	if err != nil {
		return fmt.Errorf("open %s: %w", dbPath, err)
	}
	defer store.Close()

	if store.Built() {
		return fmt.Errorf("%s already holds a built database", dbPath)
	}

	triples := make([]triplecore.RawTriple, len(raws))
	for i, r := range raws {
		triples[i] = triplecore.RawTriple{S: r.S, P: r.P, O: r.O}
	}

	start := time.Now()
	report, err := store.BulkLoad(triples)
	if err != nil {
		return fmt.Errorf("bulk load: %w", err)
	}
	elapsed := time.Since(start)

	fmt.Printf("loaded %d triples, %d distinct terms, in %s\n", report.Triples, report.Terms, elapsed)
	return nil
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// Command updatetest measures the differential overlay's write
// throughput: it bulk-loads a prefix of a Turtle file through the normal
// loader, then replays the remaining triples in fixed-size chunks
// through concurrent workers calling overlay.DifferentialIndex.Load,
// timing the replay (spec §6's "updatetest INPUT.ttl").
package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/intellect4all/triplecore"
	"github.com/intellect4all/triplecore/common"
	"github.com/intellect4all/triplecore/refquery"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "updatetest:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		chunkSize int
		workers   int
		prefix    float64
	)
	cmd := &cobra.Command{
		Use:   "updatetest DB INPUT.ttl",
		Short: "Measure overlay write throughput by replaying a Turtle file's tail concurrently",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], args[1], chunkSize, workers, prefix)
		},
	}
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 500, "triples per replay chunk")
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent replay workers")
	cmd.Flags().Float64Var(&prefix, "prefix", 0.5, "fraction of triples loaded by the initial bulk load")
	return cmd
}

func run(dbPath, inputPath string, chunkSize, workers int, prefixFrac float64) error {
	text, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", inputPath, err)
	}
	raws, err := refquery.ParseTurtleRaw(string(text))
	if err != nil {
		return fmt.Errorf("parse %s: %w", inputPath, err)
	}
	if len(raws) == 0 {
		return fmt.Errorf("%s has no triples", inputPath)
	}

	split := int(float64(len(raws)) * prefixFrac)
	if split < 1 {
		split = 1
	}
	if split > len(raws) {
		split = len(raws)
	}
	prefix, tail := raws[:split], raws[split:]

	opts := triplecore.DefaultOptions(dbPath)
	opts.Logger = zap.NewNop()
	store, err := triplecore.Open(opts)
	if err != nil {
		return fmt.Errorf("open %s: %w", dbPath, err)
	}
	defer store.Close()
	if store.Built() {
		return fmt.Errorf("%s already holds a built database", dbPath)
	}

	prefixTriples := make([]triplecore.RawTriple, len(prefix))
	for i, r := range prefix {
		prefixTriples[i] = triplecore.RawTriple{S: r.S, P: r.P, O: r.O}
	}
	report, err := store.BulkLoad(prefixTriples)
	if err != nil {
		return fmt.Errorf("bulk load prefix: %w", err)
	}
	fmt.Printf("loaded prefix: %d triples, %d terms\n", report.Triples, report.Terms)

	if len(tail) == 0 {
		fmt.Println("no tail to replay (prefix fraction covers the whole input)")
		return nil
	}

	resolver := newTermResolver(store)
	chunks := chunkRaws(tail, chunkSize)

	var (
		loadMu sync.Mutex
		loaded int
	)
	start := time.Now()
	g := new(errgroup.Group)
	work := make(chan []refquery.RawStringTriple)
	g.Go(func() error {
		defer close(work)
		for _, c := range chunks {
			work <- c
		}
		return nil
	})
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for chunk := range work {
				triples := make([]common.Triple, len(chunk))
				for i, r := range chunk {
					triples[i] = common.Triple{S: resolver.resolve(r.S), P: resolver.resolve(r.P), O: resolver.resolve(r.O)}
				}
				loadMu.Lock()
				store.Overlay.Load(triples)
				loaded += len(triples)
				loadMu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	elapsed := time.Since(start)

	fmt.Printf("replayed %d triples in %d chunks across %d workers in %s (%.0f triples/sec)\n",
		loaded, len(chunks), workers, elapsed, float64(loaded)/elapsed.Seconds())

	syncStart := time.Now()
	if err := store.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	fmt.Printf("synced overlay into base indices in %s\n", time.Since(syncStart))
	return nil
}

func chunkRaws(raws []refquery.RawStringTriple, size int) [][]refquery.RawStringTriple {
	if size < 1 {
		size = 1
	}
	var chunks [][]refquery.RawStringTriple
	for i := 0; i < len(raws); i += size {
		end := i + size
		if end > len(raws) {
			end = len(raws)
		}
		chunks = append(chunks, raws[i:end])
	}
	return chunks
}

// termResolver maps a term's external string form to its dictionary id,
// consulting the on-disk dictionary first and minting a fresh overlay id
// (via DifferentialIndex.MapStrings) for anything the prefix load never
// saw. It is safe for concurrent use by replay workers.
type termResolver struct {
	store *triplecore.Store
	mu    sync.Mutex
	cache map[string]common.ID
}

func newTermResolver(store *triplecore.Store) *termResolver {
	return &termResolver{store: store, cache: make(map[string]common.ID)}
}

func (r *termResolver) resolve(term string) common.ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.cache[term]; ok {
		return id
	}
	if id, ok, err := r.store.Dict.Lookup(term); err == nil && ok {
		r.cache[term] = id
		return id
	}
	ids := r.store.Overlay.MapStrings([]string{term})
	r.cache[term] = ids[0]
	return ids[0]
}

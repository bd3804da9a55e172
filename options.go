// Package triplecore wires storage/buffer, storage/facts, storage/dict,
// overlay and operator/codegen into one open/build/query entry point for
// cmd/bulkload, cmd/query and cmd/updatetest, the way the teacher's
// btree/hashindex/lsm packages each expose a Config/DefaultConfig pair
// around their engine.
package triplecore

import "go.uber.org/zap"

// Options collects every subsystem's tunables the CLIs need, per
// SPEC_FULL's "Config/DefaultConfig ... collected into one
// triplecore.Options" expansion. Only Go values are accepted; there is no
// environment-variable fallback (spec §6).
type Options struct {
	// Path is the on-disk database file.
	Path string

	// CacheSize is the number of 16 KiB pages the buffer manager keeps
	// resident, mirroring the teacher's btree.Config.CacheSize.
	CacheSize int

	// Logger is threaded from cmd/* down into every subsystem. Hot paths
	// (page fetch, scan advance) never log through it; only lifecycle and
	// error paths do.
	Logger *zap.Logger
}

// DefaultOptions returns sensible defaults for path, in the teacher's
// DefaultConfig(dataDir) idiom.
func DefaultOptions(path string) Options {
	return Options{
		Path:      path,
		CacheSize: 10000, // ~160MB of 16 KiB pages
		Logger:    zap.NewNop(),
	}
}

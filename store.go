package triplecore

import (
	"go.uber.org/zap"

	"github.com/intellect4all/triplecore/common"
	"github.com/intellect4all/triplecore/operator"
	"github.com/intellect4all/triplecore/overlay"
	"github.com/intellect4all/triplecore/queryerr"
	"github.com/intellect4all/triplecore/storage/buffer"
	"github.com/intellect4all/triplecore/storage/dict"
	"github.com/intellect4all/triplecore/storage/facts"
	"github.com/intellect4all/triplecore/storage/pagefile"
)

// Store is the open database: the buffer manager over the mapped file,
// the dictionary, the six base Facts/AggregatedFacts/FullyAggregatedFacts
// segments, and the differential overlay merged over them at query time.
type Store struct {
	opts Options
	log  *zap.Logger

	file *pagefile.File
	bm   *buffer.Manager
	Dict *dict.Dictionary

	base        map[common.Permutation]*facts.Facts
	baseAgg     map[common.Permutation]*facts.AggregatedFacts
	baseFullAgg map[common.Permutation]*facts.FullyAggregatedFacts

	Overlay *overlay.DifferentialIndex

	// pendingDir mirrors the directory page's content in memory between
	// writeDirectory calls, so the fields writeDirectory does not
	// recompute carry over; each call rewrites every root and the
	// dictionary triad.
	pendingDir pagefile.Directory

	// built reports whether the directory page describes a populated
	// database (false right after Open on a brand-new file, until
	// BulkLoad runs).
	built bool
}

// Open maps opts.Path, bringing up the buffer manager and, if the
// directory page already describes a built database, the dictionary and
// six base segments. A freshly created file opens with Store.Built()
// false; callers build it via BulkLoad.
func Open(opts Options) (*Store, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	file, err := pagefile.Open(opts.Path)
	if err != nil {
		return nil, queryerr.Wrap(queryerr.Storage, err, "open pagefile")
	}
	bm := buffer.New(file, opts.CacheSize)

	s := &Store{opts: opts, log: opts.Logger, file: file, bm: bm}

	ref, err := bm.ReadShared(0)
	if err != nil {
		return nil, queryerr.Wrap(queryerr.Storage, err, "read directory page")
	}
	buf := ref.Page.Data[:]
	magicErr := pagefile.CheckMagic(buf)
	if magicErr != nil {
		ref.Release()
		s.log.Debug("directory page not yet initialized", zap.Error(magicErr))
		return s, nil
	}
	dir, err := pagefile.ReadDirectory(buf)
	ref.Release()
	if err != nil {
		return nil, queryerr.Wrap(queryerr.Storage, err, "parse directory")
	}

	s.Dict = dict.Open(bm, dict.Header{
		StringsStart: dir.DictStringsStart,
		MappingRoot:  dir.DictMappingRoot,
		HashRoot:     dir.DictHashRoot,
		NextID:       dir.DictNextID,
	})
	s.base = make(map[common.Permutation]*facts.Facts, 6)
	s.baseAgg = make(map[common.Permutation]*facts.AggregatedFacts, 6)
	s.baseFullAgg = make(map[common.Permutation]*facts.FullyAggregatedFacts, 3)
	for i, p := range common.Permutations {
		rec := dir.Perms[i]
		s.base[p] = facts.OpenFacts(bm, rec.FactsRoot)
		s.baseAgg[p] = facts.OpenAggregatedFacts(bm, rec.AggRoot)
	}
	// The three fully-aggregated indices key on subject, predicate and
	// object respectively; SPO/SOP share the subject-keyed tree, PSO/POS
	// the predicate-keyed one, OSP/OPS the object-keyed one (spec §6's
	// three 8-byte directory records), since each pair agrees on v1.
	subjFullAgg := facts.OpenFullyAggregatedFacts(bm, dir.FullAggRoot[0])
	predFullAgg := facts.OpenFullyAggregatedFacts(bm, dir.FullAggRoot[1])
	objFullAgg := facts.OpenFullyAggregatedFacts(bm, dir.FullAggRoot[2])
	s.baseFullAgg[common.SPO] = subjFullAgg
	s.baseFullAgg[common.SOP] = subjFullAgg
	s.baseFullAgg[common.PSO] = predFullAgg
	s.baseFullAgg[common.POS] = predFullAgg
	s.baseFullAgg[common.OSP] = objFullAgg
	s.baseFullAgg[common.OPS] = objFullAgg

	s.Overlay = overlay.New(bm, s.Dict, s.base, s.baseAgg, s.baseFullAgg)
	s.pendingDir = dir
	s.built = true
	s.log.Info("opened database", zap.String("path", opts.Path), zap.Uint32("next_id", dir.DictNextID))
	return s, nil
}

// Built reports whether the store already holds a populated database.
func (s *Store) Built() bool { return s.built }

// Name satisfies runtime.Database, identifying the store by its backing
// file path for diagnostics and plan printing.
func (s *Store) Name() string { return s.opts.Path }

// Close flushes every dirty page and unmaps the file.
func (s *Store) Close() error {
	if err := s.bm.Flush(); err != nil {
		return queryerr.Wrap(queryerr.Storage, err, "flush")
	}
	return s.file.Close()
}

// Sync flushes the in-memory overlay into the six base segments and
// persists the resulting roots to the directory page.
func (s *Store) Sync() error {
	if err := s.Overlay.Sync(); err != nil {
		return queryerr.Wrap(queryerr.ConflictDuringUpdate, err, "overlay sync")
	}
	return s.writeDirectory()
}

// Database adapts the store's overlay as an operator.Database for codegen
// to translate query graphs against.
func (s *Store) Database() operator.Database { return s.Overlay }

// Stats reports the buffer manager's and paged file's cache/IO counters,
// in the teacher's common.Stats reporting idiom.
func (s *Store) Stats() common.Stats { return s.bm.Stats() }

package triplecore

import (
	"go.uber.org/zap"

	"github.com/intellect4all/triplecore/queryerr"

	"github.com/intellect4all/triplecore/common"
	"github.com/intellect4all/triplecore/overlay"
	"github.com/intellect4all/triplecore/storage/bptree"
	"github.com/intellect4all/triplecore/storage/dict"
	"github.com/intellect4all/triplecore/storage/facts"
	"github.com/intellect4all/triplecore/storage/pagefile"
)

// RawTriple is one (subject, predicate, object) triple in its external
// string form, as a Turtle/parser front-end hands it to the loader.
type RawTriple struct {
	S, P, O string
}

// BuildReport summarizes a BulkLoad run: how many distinct terms and
// triples it saw, in the teacher's stats-reporting idiom.
type BuildReport struct {
	Terms   int
	Triples int
}

// BulkLoad builds a dictionary and all six permuted indices from raws,
// writing the resulting roots to the directory page. It must be called
// on a Store opened over an empty (unbuilt) file.
func (s *Store) BulkLoad(raws []RawTriple) (BuildReport, error) {
	if s.built {
		return BuildReport{}, queryerr.New(queryerr.Storage, "BulkLoad called on an already-built store")
	}

	ids := make(map[string]common.ID)
	var uniq []string
	intern := func(term string) {
		if _, ok := ids[term]; !ok {
			ids[term] = common.ID(len(uniq))
			uniq = append(uniq, term)
		}
	}
	for _, r := range raws {
		intern(r.S)
		intern(r.P)
		intern(r.O)
	}

	d, err := dict.New(s.bm)
	if err != nil {
		return BuildReport{}, queryerr.Wrap(queryerr.Storage, err, "create dictionary")
	}
	assigned, err := d.AppendStrings(uniq)
	if err != nil {
		return BuildReport{}, queryerr.Wrap(queryerr.Storage, err, "populate dictionary")
	}
	for i, term := range uniq {
		ids[term] = assigned[i]
	}

	triples := make([]common.Triple, len(raws))
	for i, r := range raws {
		triples[i] = common.Triple{S: ids[r.S], P: ids[r.P], O: ids[r.O]}
	}

	s.base = make(map[common.Permutation]*facts.Facts, 6)
	s.baseAgg = make(map[common.Permutation]*facts.AggregatedFacts, 6)
	s.baseFullAgg = make(map[common.Permutation]*facts.FullyAggregatedFacts, 3)

	var dir pagefile.Directory
	var aggByPerm = make(map[common.Permutation][]facts.AggEntry, 6)

	for i, p := range common.Permutations {
		entries := facts.SortedEntries(triples, p)
		fseg, err := facts.BulkLoadFacts(s.bm, bptree.NewSliceSource(entries))
		if err != nil {
			return BuildReport{}, queryerr.Wrap(queryerr.Storage, err, "bulk-load "+p.String()+" facts")
		}
		aggEntries := facts.DeriveAggregated(entries)
		aggByPerm[p] = aggEntries
		aseg, err := facts.BulkLoadAggregatedFacts(s.bm, bptree.NewSliceSource(aggEntries))
		if err != nil {
			return BuildReport{}, queryerr.Wrap(queryerr.Storage, err, "bulk-load "+p.String()+" aggregated facts")
		}
		s.base[p] = fseg
		s.baseAgg[p] = aseg
		dir.Perms[i] = pagefile.PermRecord{
			FactsStart:  fseg.RootPage(),
			FactsRoot:   fseg.RootPage(),
			AggStart:    aseg.RootPage(),
			AggRoot:     aseg.RootPage(),
			FactPages:   0,
			AggPages:    0,
			Groups1:     0,
			Groups2:     0,
			Cardinality: uint32(len(entries)),
		}
	}

	// The three fully-aggregated indices derive from the permutation
	// whose v1 is the column they key on: SPO for subject, PSO for
	// predicate, OSP for object (see store.go's Open for the read side
	// of this pairing).
	subjFull, err := facts.BulkLoadFullyAggregatedFacts(s.bm, bptree.NewSliceSource(facts.DeriveFullyAggregated(aggByPerm[common.SPO])))
	if err != nil {
		return BuildReport{}, queryerr.Wrap(queryerr.Storage, err, "bulk-load subject fully-aggregated facts")
	}
	predFull, err := facts.BulkLoadFullyAggregatedFacts(s.bm, bptree.NewSliceSource(facts.DeriveFullyAggregated(aggByPerm[common.PSO])))
	if err != nil {
		return BuildReport{}, queryerr.Wrap(queryerr.Storage, err, "bulk-load predicate fully-aggregated facts")
	}
	objFull, err := facts.BulkLoadFullyAggregatedFacts(s.bm, bptree.NewSliceSource(facts.DeriveFullyAggregated(aggByPerm[common.OSP])))
	if err != nil {
		return BuildReport{}, queryerr.Wrap(queryerr.Storage, err, "bulk-load object fully-aggregated facts")
	}
	s.baseFullAgg[common.SPO] = subjFull
	s.baseFullAgg[common.SOP] = subjFull
	s.baseFullAgg[common.PSO] = predFull
	s.baseFullAgg[common.POS] = predFull
	s.baseFullAgg[common.OSP] = objFull
	s.baseFullAgg[common.OPS] = objFull

	dir.FullAggRoot[0] = subjFull.RootPage()
	dir.FullAggRoot[1] = predFull.RootPage()
	dir.FullAggRoot[2] = objFull.RootPage()

	hdr := d.Header()
	dir.DictStringsStart = hdr.StringsStart
	dir.DictMappingRoot = hdr.MappingRoot
	dir.DictHashRoot = hdr.HashRoot
	dir.DictNextID = hdr.NextID

	s.Dict = d
	s.Overlay = overlay.New(s.bm, s.Dict, s.base, s.baseAgg, s.baseFullAgg)
	s.built = true
	s.pendingDir = dir

	if err := s.writeDirectory(); err != nil {
		return BuildReport{}, err
	}
	s.log.Info("bulk-loaded database",
		zap.Int("terms", len(uniq)), zap.Int("triples", len(triples)))
	return BuildReport{Terms: len(uniq), Triples: len(triples)}, nil
}

// writeDirectory persists the store's current directory (roots plus the
// dictionary triad) to page 0.
func (s *Store) writeDirectory() error {
	dir := s.pendingDir
	hdr := s.Dict.Header()
	dir.DictStringsStart = hdr.StringsStart
	dir.DictMappingRoot = hdr.MappingRoot
	dir.DictHashRoot = hdr.HashRoot
	dir.DictNextID = hdr.NextID
	for i, p := range common.Permutations {
		dir.Perms[i].FactsRoot = s.base[p].RootPage()
		dir.Perms[i].FactsStart = dir.Perms[i].FactsRoot
		dir.Perms[i].AggRoot = s.baseAgg[p].RootPage()
		dir.Perms[i].AggStart = dir.Perms[i].AggRoot
	}
	dir.FullAggRoot[0] = s.baseFullAgg[common.SPO].RootPage()
	dir.FullAggRoot[1] = s.baseFullAgg[common.PSO].RootPage()
	dir.FullAggRoot[2] = s.baseFullAgg[common.OSP].RootPage()

	buf := pagefile.WriteDirectory(dir)
	ref, err := s.bm.ReadExclusive(0)
	if err != nil {
		return queryerr.Wrap(queryerr.Storage, err, "latch directory page")
	}
	copy(ref.Page.Data[:], buf)
	s.bm.Modify(ref)
	ref.Release()
	s.pendingDir = dir
	return s.bm.Flush()
}

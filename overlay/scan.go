package overlay

import (
	"github.com/intellect4all/triplecore/common"
	"github.com/intellect4all/triplecore/operator"
	"github.com/intellect4all/triplecore/storage/facts"
)

// mergedScan implements the merged-scan algorithm of spec §4.9: pull one
// tuple from the base segment D and maintain an iterator over the
// overlay's matching range, emitting the lesser of the two (by
// permuted-triple order) on each step, and collapsing ties into one
// emission.
type mergedScan struct {
	base    *facts.Scan
	baseOK  bool
	overlay []VersionedTriple
	oi      int
	set     *permSet

	v1, v2, v3 common.ID // the bound/filter columns this scan was opened with
}

// CreateScan opens a merged scan over perm honoring (v1, v2, v3) as a
// left-to-right bound prefix (common.Unbound in any position, and every
// position after it, means unconstrained).
func (d *DifferentialIndex) CreateScan(perm common.Permutation, v1, v2, v3 common.ID) (operator.Scan3, error) {
	set := d.sets[perm]
	set.rLock()

	var base *facts.Scan
	var err error
	if b := d.base[perm]; b != nil {
		base, err = b.First(v1, v2, v3)
		if err != nil {
			set.rUnlock()
			return nil, err
		}
	}

	from := minTriple(v1, v2, v3)
	overlay := set.rangeFrom(from, d.version)

	s := &mergedScan{base: base, baseOK: base != nil && base.Valid(), overlay: overlay, oi: 0, set: set, v1: v1, v2: v2, v3: v3}
	ok, err := s.step()
	if err != nil {
		set.rUnlock()
		return nil, err
	}
	if !ok {
		set.rUnlock()
	}
	return s, nil
}

func (s *mergedScan) overlayValid() bool { return s.oi < len(s.overlay) }

func (s *mergedScan) overlayCur() VersionedTriple { return s.overlay[s.oi] }

// step positions the scan at its next output tuple (base, overlay, or a
// collapsed tie), advancing whichever source(s) contributed, and reports
// whether a tuple is available. Callers that get false must release the
// scan's latch themselves (it won't be released again).
func (s *mergedScan) step() (bool, error) {
	for {
		if !s.baseOK && !s.overlayValid() {
			return false, nil
		}
		if !s.baseOK {
			// D exhausted: emit the overlay tuple and advance it.
			if !s.matchesBounds(s.overlayCur()) {
				s.oi++
				continue
			}
			return true, nil
		}
		if !s.overlayValid() {
			// overlay exhausted: emit from D.
			return true, nil
		}
		d := facts.Entry{V1: s.base.Value1(), V2: s.base.Value2(), V3: s.base.Value3()}
		o := s.overlayCur()
		switch compareEntry(d, o) {
		case -1:
			return true, nil
		case 1:
			if !s.matchesBounds(o) {
				s.oi++
				continue
			}
			return true, nil
		default:
			// equal: union semantics, emit once via the overlay side
			// (rangeFrom already dropped entries not visible at the
			// snapshot). Only the base is advanced here; Next moves the
			// overlay past the emitted tuple, so both sides end up past it.
			more, err := s.base.Next()
			if err != nil {
				return false, err
			}
			s.baseOK = more
			if !s.matchesBounds(o) {
				s.oi++
				continue
			}
			return true, nil
		}
	}
}

// matchesBounds applies the scan's own (v1,v2,v3) equality constraints
// to an overlay candidate; the snapshot visibility window was already
// applied when rangeFrom built s.overlay.
func (s *mergedScan) matchesBounds(o VersionedTriple) bool {
	if s.v1 != common.Unbound && o.V1 != s.v1 {
		return false
	}
	if s.v2 != common.Unbound && o.V2 != s.v2 {
		return false
	}
	if s.v3 != common.Unbound && o.V3 != s.v3 {
		return false
	}
	return true
}

func compareEntry(a, b facts.Entry) int {
	if a.V1 != b.V1 {
		if a.V1 < b.V1 {
			return -1
		}
		return 1
	}
	if a.V2 != b.V2 {
		if a.V2 < b.V2 {
			return -1
		}
		return 1
	}
	switch {
	case a.V3 < b.V3:
		return -1
	case a.V3 > b.V3:
		return 1
	default:
		return 0
	}
}

func (s *mergedScan) Valid() bool { return s.baseOK || s.overlayValid() }

func (s *mergedScan) Next() (bool, error) {
	// advance past whichever source is currently "at" the emitted tuple.
	if s.baseOK && (!s.overlayValid() || compareEntry(facts.Entry{V1: s.base.Value1(), V2: s.base.Value2(), V3: s.base.Value3()}, s.overlayCur()) <= 0) {
		more, err := s.base.Next()
		if err != nil {
			s.set.rUnlock()
			return false, err
		}
		s.baseOK = more
	} else if s.overlayValid() {
		s.oi++
	}
	ok, err := s.step()
	if err != nil {
		s.set.rUnlock()
		return false, err
	}
	if ok {
		return true, nil
	}
	s.set.rUnlock()
	return false, nil
}

func (s *mergedScan) Value1() common.ID {
	if s.baseOK && (!s.overlayValid() || compareEntry(entryOf(s), s.overlayCur()) <= 0) {
		return s.base.Value1()
	}
	return s.overlayCur().V1
}

func (s *mergedScan) Value2() common.ID {
	if s.baseOK && (!s.overlayValid() || compareEntry(entryOf(s), s.overlayCur()) <= 0) {
		return s.base.Value2()
	}
	return s.overlayCur().V2
}

func (s *mergedScan) Value3() common.ID {
	if s.baseOK && (!s.overlayValid() || compareEntry(entryOf(s), s.overlayCur()) <= 0) {
		return s.base.Value3()
	}
	return s.overlayCur().V3
}

func entryOf(s *mergedScan) facts.Entry {
	if !s.baseOK {
		return facts.Entry{V1: common.Unbound}
	}
	return facts.Entry{V1: s.base.Value1(), V2: s.base.Value2(), V3: s.base.Value3()}
}

package overlay

import (
	"github.com/intellect4all/triplecore/common"
	"github.com/intellect4all/triplecore/operator"
)

// Facts returns a FactsScanner for perm that merges the base segment
// with the in-memory overlay, satisfying operator.Database.
func (d *DifferentialIndex) Facts(perm common.Permutation) operator.FactsScanner {
	return factsScanner{d: d, perm: perm}
}

type factsScanner struct {
	d    *DifferentialIndex
	perm common.Permutation
}

func (f factsScanner) First(v1, v2, v3 common.ID) (operator.Scan3, error) {
	return f.d.CreateScan(f.perm, v1, v2, v3)
}

// Aggregated returns an AggScanner for perm. The aggregated projection
// is read straight from the base segment: Sync re-derives it from the
// merged Facts segment each time, so it always reflects every synced
// triple. A triple loaded but not yet synced doesn't show up here until
// the next sync(), matching spec §4.9's boundary between overlay and
// base visibility for the aggregated projections.
func (d *DifferentialIndex) Aggregated(perm common.Permutation) operator.AggScanner {
	return aggScanner{d: d, perm: perm}
}

type aggScanner struct {
	d    *DifferentialIndex
	perm common.Permutation
}

func (a aggScanner) First(v1, v2 common.ID) (operator.Scan2, error) {
	base := a.d.baseAgg[a.perm]
	return base.First(v1, v2)
}

// FullyAggregated returns a FullAggScanner for perm, same caveat as
// Aggregated.
func (d *DifferentialIndex) FullyAggregated(perm common.Permutation) operator.FullAggScanner {
	return fullAggScanner{d: d, perm: perm}
}

type fullAggScanner struct {
	d    *DifferentialIndex
	perm common.Permutation
}

func (a fullAggScanner) First(v1 common.ID) (operator.Scan1, error) {
	base := a.d.baseFullAgg[a.perm]
	return base.First(v1)
}

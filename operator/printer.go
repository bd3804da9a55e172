package operator

import (
	"fmt"
	"io"

	"github.com/intellect4all/triplecore/common"
)

// DuplicatePolicy names how ResultsPrinter handles a tuple's
// multiplicity when it's greater than one.
type DuplicatePolicy int

const (
	// ExpandDuplicates prints the tuple mult times.
	ExpandDuplicates DuplicatePolicy = iota
	// CountDuplicates prints the tuple once, annotated with its count.
	CountDuplicates
	// ReduceDuplicates prints the tuple once, discarding the count.
	ReduceDuplicates
	// ShowDuplicates prints the tuple once per distinct binding but flags
	// whether it repeated.
	ShowDuplicates
	// NoDuplicates prints the tuple once without checking its
	// multiplicity (for a query the planner has proven duplicate-free).
	NoDuplicates
)

const slotCacheSize = 65536

// slotCache is ResultsPrinter's direct-mapped id->(start,stop) cache:
// slot = value mod slotCacheSize. A miss is filled by one dictionary
// LookupByID for that id.
type slotCache struct {
	ids   [slotCacheSize]common.ID
	texts [slotCacheSize]string
	valid [slotCacheSize]bool
}

func (c *slotCache) get(id common.ID) (string, bool) {
	slot := id % slotCacheSize
	if c.valid[slot] && c.ids[slot] == id {
		return c.texts[slot], true
	}
	return "", false
}

func (c *slotCache) put(id common.ID, text string) {
	slot := id % slotCacheSize
	c.ids[slot], c.texts[slot], c.valid[slot] = id, text, true
}

// ResultsPrinter is the terminal operator: it pulls from child, resolves
// each output register through the dictionary, and writes rendered rows
// to w according to policy.
type ResultsPrinter struct {
	rt
	base
	child   Operator
	regs    []int
	dict    Dictionary
	cache   slotCache
	w       io.Writer
	policy  DuplicatePolicy
	printed int
	limit   int // 0 = unlimited, per a query's LIMIT clause
}

func NewResultsPrinter(o runtimeOf, child Operator, regs []int, dict Dictionary, w io.Writer, policy DuplicatePolicy) *ResultsPrinter {
	return &ResultsPrinter{rt: o.asRt(), base: base{label: "ResultsPrinter"}, child: child, regs: regs, dict: dict, w: w, policy: policy}
}

// SetLimit caps the number of rows Run prints; n <= 0 means unlimited.
func (p *ResultsPrinter) SetLimit(n int) { p.limit = n }

func (p *ResultsPrinter) resolve(id common.ID) (string, error) {
	if text, ok := p.cache.get(id); ok {
		return text, nil
	}
	text, ok, err := p.dict.LookupByID(id)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	p.cache.put(id, text)
	return text, nil
}

func (p *ResultsPrinter) row() ([]string, error) {
	out := make([]string, len(p.regs))
	for i, r := range p.regs {
		reg := p.reg(r)
		if !reg.Bound {
			out[i] = ""
			continue
		}
		text, err := p.resolve(reg.Value)
		if err != nil {
			return nil, err
		}
		out[i] = text
	}
	return out, nil
}

func (p *ResultsPrinter) emit(mult uint32) error {
	row, err := p.row()
	if err != nil {
		return err
	}
	switch p.policy {
	case ExpandDuplicates:
		for i := uint32(0); i < mult; i++ {
			if p.limit > 0 && p.printed >= p.limit {
				break
			}
			fmt.Fprintln(p.w, row)
			p.printed++
		}
	case CountDuplicates:
		fmt.Fprintf(p.w, "%v (x%d)\n", row, mult)
		p.printed++
	case ReduceDuplicates, NoDuplicates:
		fmt.Fprintln(p.w, row)
		p.printed++
	case ShowDuplicates:
		if mult > 1 {
			fmt.Fprintf(p.w, "%v *\n", row)
		} else {
			fmt.Fprintln(p.w, row)
		}
		p.printed++
	}
	return nil
}

// Run pulls every tuple from child, printing according to the
// configured duplicate policy, and returns the number of rows printed.
func (p *ResultsPrinter) Run() (int, error) {
	m, err := p.child.First()
	for ; m != 0; m, err = p.child.Next() {
		if err != nil {
			return p.printed, err
		}
		if err := p.emit(m); err != nil {
			return p.printed, err
		}
		if p.limit > 0 && p.printed >= p.limit {
			return p.printed, nil
		}
	}
	return p.printed, err
}

func (p *ResultsPrinter) First() (uint32, error) { return p.child.First() }
func (p *ResultsPrinter) Next() (uint32, error)  { return p.child.Next() }
func (p *ResultsPrinter) AddMergeHint(int, int)  {}

package operator

import "github.com/intellect4all/triplecore/runtime"

// DomainSync wraps child, refreshing a set of join-equivalence domains'
// Current value from their first member register after every tuple
// child produces. Spec §4.8 step 2 wires every register an equivalence
// class needs into one shared DomainDescription as codegen discovers
// it, regardless of which join level first established the class; this
// is where that wiring becomes observable at read time.
type DomainSync struct {
	rt
	base
	child   Operator
	domains []*runtime.DomainDescription
}

func NewDomainSync(o runtimeOf, child Operator, domains []*runtime.DomainDescription) *DomainSync {
	return &DomainSync{rt: o.asRt(), base: base{label: "DomainSync"}, child: child, domains: domains}
}

func (d *DomainSync) sync() {
	for _, dom := range d.domains {
		if len(dom.Members) == 0 {
			continue
		}
		dom.Set(d.reg(dom.Members[0]).Value)
	}
}

func (d *DomainSync) First() (uint32, error) {
	m, err := d.child.First()
	if err != nil || m == 0 {
		return m, err
	}
	d.sync()
	return m, nil
}

func (d *DomainSync) Next() (uint32, error) {
	m, err := d.child.Next()
	if err != nil || m == 0 {
		return m, err
	}
	d.sync()
	return m, nil
}

func (d *DomainSync) AddMergeHint(regA, regB int) { d.child.AddMergeHint(regA, regB) }

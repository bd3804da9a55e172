package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type stubDatabase struct{ name string }

func (d stubDatabase) Name() string { return d.name }

func TestAllocateRegistersReturnsStableStartIndex(t *testing.T) {
	rt := New(stubDatabase{name: "db"}, nil)
	first := rt.AllocateRegisters(3)
	second := rt.AllocateRegisters(2)

	require.Equal(t, 0, first)
	require.Equal(t, 3, second)
	require.Equal(t, 5, rt.NumRegisters())
}

func TestRegisterSetAndClear(t *testing.T) {
	rt := New(stubDatabase{name: "db"}, nil)
	rt.AllocateRegisters(1)
	reg := rt.GetRegister(0)

	require.False(t, reg.Bound)
	reg.Set(42)
	require.True(t, reg.Bound)
	require.Equal(t, uint32(42), reg.Value)

	reg.Clear()
	require.False(t, reg.Bound)
	require.Equal(t, uint32(42), reg.Value) // Clear doesn't zero the value
}

func TestVectorRegisterSetCopiesSlice(t *testing.T) {
	rt := New(stubDatabase{name: "db"}, nil)
	rt.AllocateVectorRegisters(1)
	vreg := rt.GetVectorRegister(0)

	src := []uint32{1, 2, 3}
	vreg.Set(src)
	src[0] = 99 // mutating the source must not affect the stored copy

	require.Equal(t, []uint32{1, 2, 3}, vreg.Values)
}

func TestDomainDescriptionSetAndClear(t *testing.T) {
	rt := New(stubDatabase{name: "db"}, nil)
	rt.AllocateDomainDescriptions(1)
	dom := rt.GetDomainDescription(0)

	dom.Set(7)
	require.True(t, dom.Bound)
	require.Equal(t, uint32(7), dom.Current)

	dom.Clear()
	require.False(t, dom.Bound)
}

func TestRuntimeExposesDatabaseAndOverlay(t *testing.T) {
	db := stubDatabase{name: "mydb"}
	overlay := "overlay-handle"
	rt := New(db, overlay)

	require.Equal(t, "mydb", rt.Database().Name())
	require.Equal(t, overlay, rt.Overlay())
}

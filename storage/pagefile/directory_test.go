package pagefile

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/intellect4all/triplecore/common"
)

func sampleDirectory() Directory {
	var d Directory
	for i := range d.Perms {
		d.Perms[i] = PermRecord{
			FactsStart:  uint32(i + 1),
			FactsRoot:   uint32(i + 10),
			AggStart:    uint32(i + 20),
			AggRoot:     uint32(i + 30),
			FactPages:   uint32(i + 40),
			AggPages:    uint32(i + 50),
			Groups1:     uint32(i + 60),
			Groups2:     uint32(i + 70),
			Cardinality: uint32(i + 80),
		}
	}
	d.FullAggRoot = [3]uint32{100, 200, 300}
	d.DictStringsStart = 5
	d.DictMappingRoot = 6
	d.DictHashRoot = 7
	d.DictNextID = common.ID(42)
	d.StatsPage = [6]uint32{1, 2, 3, 4, 5, 6}
	d.PathStatsPage = [2]uint32{7, 8}
	return d
}

func TestDirectoryRoundTrip(t *testing.T) {
	want := sampleDirectory()
	buf := WriteDirectory(want)

	require.NoError(t, CheckMagic(buf))

	got, err := ReadDirectory(buf)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestDirectoryNextIDSurvivesRoundTrip(t *testing.T) {
	d := sampleDirectory()
	d.DictNextID = common.ID(123456)
	buf := WriteDirectory(d)

	got, err := ReadDirectory(buf)
	require.NoError(t, err)
	require.Equal(t, common.ID(123456), got.DictNextID)
}

func TestCheckMagicRejectsGarbage(t *testing.T) {
	require.Error(t, CheckMagic([]byte{0, 0, 0, 0, 0, 0, 0, 0}))
	require.Error(t, CheckMagic([]byte{'R', 'D', 'F'}))
}

func TestCheckMagicRejectsWrongVersion(t *testing.T) {
	buf := WriteDirectory(sampleDirectory())
	// Corrupt the version field.
	buf[dirOffVersion] = 0xFF
	require.Error(t, CheckMagic(buf))
}

package testutil_test

import (
	"testing"
	"time"

	"github.com/paveg/dftour"
	"github.com/paveg/dftour/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellsAndFloats(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)

	df, err := dftour.NewDataFrameWithAllocator(mem,
		dftour.NewSeries("birthdate", []time.Time{dftour.Date(1997, time.January, 10), dftour.Date(1985, time.February, 15)}, mem),
		dftour.NewNullableSeries("weight", []float64{57.9, 0}, []bool{true, false}, mem),
		dftour.NewListSeries("names", [][]string{{"Alice"}, {"Ben", "Chloe"}}, mem),
	)
	require.NoError(t, err)
	defer df.Release()

	assert.Equal(t, []string{"1997-01-10", "1985-02-15"}, testutil.Cells(t, df, "birthdate"))
	assert.Equal(t, []string{"57.9", "null"}, testutil.Cells(t, df, "weight"))
	assert.Equal(t, []string{`["Alice"]`, `["Ben", "Chloe"]`}, testutil.Cells(t, df, "names"))
	assert.Equal(t, []float64{57.9, 0}, testutil.Floats(t, df, "weight"))
}

func TestAssertDataFrameEqual(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)

	build := func() *dftour.DataFrame {
		df, err := dftour.NewDataFrameWithAllocator(mem,
			dftour.NewSeries("name", []string{"Alice Archer", "Ben Brown"}, mem),
			dftour.NewSeries("height", []float64{1.56, 1.77}, mem),
		)
		require.NoError(t, err)
		return df
	}

	a, b := build(), build()
	defer a.Release()
	defer b.Release()

	testutil.AssertDataFrameEqual(t, a, b)

	tall, err := b.Filter(dftour.Col("height").Gt(1.7))
	require.NoError(t, err)
	defer tall.Release()

	inner := &testing.T{}
	testutil.AssertDataFrameEqual(inner, a, tall)
	assert.True(t, inner.Failed())
}

package series

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTake(t *testing.T) {
	mem := memory.NewGoAllocator()

	tests := []struct {
		name    string
		series  *Series
		indices []int
		want    []string
	}{
		{
			name:    "reorder strings",
			series:  New("name", []string{"a", "b", "c"}, mem),
			indices: []int{2, 0},
			want:    []string{"c", "a"},
		},
		{
			name:    "null index",
			series:  New("n", []int64{10, 20}, mem),
			indices: []int{1, NullIndex, 0},
			want:    []string{"20", "null", "10"},
		},
		{
			name:    "repeat floats",
			series:  New("w", []float64{1.5, 2.5}, mem),
			indices: []int{0, 0, 1},
			want:    []string{"1.5", "1.5", "2.5"},
		},
		{
			name:    "bools",
			series:  New("p", []bool{true, false}, mem),
			indices: []int{1},
			want:    []string{"false"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer tt.series.Release()

			arr, err := Take(tt.series.array, tt.indices, mem)
			require.NoError(t, err)
			result := FromArray(tt.series.Name(), arr)
			defer result.Release()

			got := make([]string, result.Len())
			for i := range got {
				got[i] = result.GetAsString(i)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTakeOutOfBounds(t *testing.T) {
	mem := memory.NewGoAllocator()
	s := New("n", []int64{1}, mem)
	defer s.Release()

	_, err := Take(s.array, []int{3}, mem)
	require.Error(t, err)
}

func TestTakeList(t *testing.T) {
	mem := memory.NewGoAllocator()
	s := NewList("name", [][]string{{"Alice"}, {"Ben", "Chloe"}}, mem)
	defer s.Release()

	arr, err := Take(s.array, []int{1, NullIndex, 0}, mem)
	require.NoError(t, err)
	result := FromArray("name", arr)
	defer result.Release()

	assert.Equal(t, 3, result.Len())
	assert.True(t, result.IsNull(1))

	rows, err := ListValues[string](result)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ben", "Chloe"}, rows[0])
	assert.Nil(t, rows[1])
	assert.Equal(t, []string{"Alice"}, rows[2])
}

func TestImplode(t *testing.T) {
	mem := memory.NewGoAllocator()
	s := New("weight", []float64{57.9, 72.5, 53.6, 83.1}, mem)
	defer s.Release()

	arr, err := Implode(s.array, [][]int{{0}, {1, 2, 3}}, mem)
	require.NoError(t, err)
	defer arr.Release()

	list, ok := arr.(*array.List)
	require.True(t, ok)
	assert.Equal(t, 2, list.Len())

	result := FromArray("weight", arr)
	rows, err := ListValues[float64](result)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{57.9}, {72.5, 53.6, 83.1}}, rows)
}

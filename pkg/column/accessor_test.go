package column

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/strata/pkg/strataerrors"
)

func TestAccessorEmpty(t *testing.T) {
	acc := New[int64]()

	assert.Equal(t, 0, acc.Len())
	assert.True(t, acc.Empty())
	assert.Equal(t, 0, acc.NumChunks())

	_, err := acc.At(0)
	assert.True(t, strataerrors.IsType(err, strataerrors.ErrorTypeOutOfRange))

	count := 0
	for range acc.Values() {
		count++
	}
	assert.Equal(t, 0, count)
}

func TestAccessorDropsEmptyChunks(t *testing.T) {
	acc := New([]int64{1, 2}, nil, []int64{}, []int64{3})

	assert.Equal(t, 3, acc.Len())
	assert.Equal(t, 2, acc.NumChunks())
	assert.Equal(t, []int64{1, 2}, acc.Chunk(0))
	assert.Equal(t, []int64{3}, acc.Chunk(1))
}

func TestAccessorRandomAccess(t *testing.T) {
	acc := New([]float64{1.5}, []float64{2.5, 3.5}, []float64{4.5, 5.5, 6.5})

	require.Equal(t, 6, acc.Len())
	want := []float64{1.5, 2.5, 3.5, 4.5, 5.5, 6.5}
	for i, w := range want {
		assert.Equal(t, w, acc.Value(i), "index %d", i)
	}
}

func TestAccessorAt(t *testing.T) {
	acc := New([]int32{10, 20}, []int32{30})

	for i := 0; i < acc.Len(); i++ {
		v, err := acc.At(i)
		require.NoError(t, err)
		assert.Equal(t, acc.Value(i), v)
	}

	_, err := acc.At(acc.Len())
	assert.True(t, strataerrors.IsType(err, strataerrors.ErrorTypeOutOfRange))
	_, err = acc.At(-1)
	assert.True(t, strataerrors.IsType(err, strataerrors.ErrorTypeOutOfRange))
}

func TestAccessorIterationMatchesIndexing(t *testing.T) {
	acc := New([]uint64{1}, []uint64{2, 3}, []uint64{4, 5, 6, 7})

	i := 0
	for v := range acc.Values() {
		assert.Equal(t, acc.Value(i), v, "index %d", i)
		i++
	}
	assert.Equal(t, acc.Len(), i)
}

func TestAccessorIterationRestartable(t *testing.T) {
	acc := New([]int64{1, 2}, []int64{3})

	var first, second []int64
	for v := range acc.Values() {
		first = append(first, v)
	}
	for v := range acc.Values() {
		second = append(second, v)
	}
	assert.Equal(t, first, second)
}

func TestAccessorIterationEarlyStop(t *testing.T) {
	acc := New([]int64{1, 2}, []int64{3, 4})

	var got []int64
	for v := range acc.Values() {
		got = append(got, v)
		if len(got) == 3 {
			break
		}
	}
	assert.Equal(t, []int64{1, 2, 3}, got)
}

func TestAccessorAll(t *testing.T) {
	acc := New([]int64{5}, []int64{6, 7})

	var idx []int
	var vals []int64
	for i, v := range acc.All() {
		idx = append(idx, i)
		vals = append(vals, v)
	}
	assert.Equal(t, []int{0, 1, 2}, idx)
	assert.Equal(t, []int64{5, 6, 7}, vals)
}

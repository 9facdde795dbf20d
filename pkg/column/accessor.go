// Package column provides chunked, zero-copy typed access to one column of a
// table.
//
// A column read from the storage engine arrives as an ordered list of chunks,
// one per physical row group. Accessor stitches those chunks together so the
// caller sees a single contiguous sequence: O(1) length, O(log k) random
// access over k chunks, and forward iteration that crosses chunk boundaries
// transparently.
//
//	col, _ := frame.Column[float64](f, "score")
//	for v := range col.Values() {
//	    sum += v
//	}
//
// The chunk slices alias buffers owned by the frame the accessor came from.
// An Accessor must not be used after its frame is closed.
package column

import (
	"iter"
	"sort"

	"github.com/ajitpratap0/strata/pkg/strataerrors"
)

// Accessor provides flat access over an ordered sequence of column chunks.
// It is immutable after construction and safe for concurrent reads.
type Accessor[T any] struct {
	chunks  [][]T
	offsets []int // prefix sums, offsets[i] = elements through chunk i
	total   int
}

// New builds an accessor from the given chunks. Empty chunks are dropped.
func New[T any](chunks ...[]T) *Accessor[T] {
	a := &Accessor[T]{}
	for _, c := range chunks {
		a.addChunk(c)
	}
	return a
}

// addChunk appends a chunk view. Zero-length chunks are not stored, keeping
// the prefix-sum search and iteration well-defined.
func (a *Accessor[T]) addChunk(chunk []T) {
	if len(chunk) == 0 {
		return
	}
	a.chunks = append(a.chunks, chunk)
	a.total += len(chunk)
	a.offsets = append(a.offsets, a.total)
}

// Len returns the total number of elements across all chunks.
func (a *Accessor[T]) Len() int {
	return a.total
}

// Empty reports whether the column has no elements.
func (a *Accessor[T]) Empty() bool {
	return a.total == 0
}

// Value returns the element at the global index i. It panics if i is out of
// range; use At for a checked variant.
func (a *Accessor[T]) Value(i int) T {
	// Binary search the prefix sums for the owning chunk.
	idx := sort.SearchInts(a.offsets, i+1)
	base := 0
	if idx > 0 {
		base = a.offsets[idx-1]
	}
	return a.chunks[idx][i-base]
}

// At returns the element at index i, or an OutOfRange error if i >= Len().
func (a *Accessor[T]) At(i int) (T, error) {
	if i < 0 || i >= a.total {
		var zero T
		return zero, strataerrors.Newf(strataerrors.ErrorTypeOutOfRange,
			"column index %d out of range [0, %d)", i, a.total)
	}
	return a.Value(i), nil
}

// Values iterates all elements in order, crossing chunk boundaries. Each call
// yields an independent iteration.
func (a *Accessor[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, chunk := range a.chunks {
			for _, v := range chunk {
				if !yield(v) {
					return
				}
			}
		}
	}
}

// All iterates (global index, element) pairs in order.
func (a *Accessor[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		i := 0
		for _, chunk := range a.chunks {
			for _, v := range chunk {
				if !yield(i, v) {
					return
				}
				i++
			}
		}
	}
}

// NumChunks returns the chunk count, usually the number of row groups the
// column was read from.
func (a *Accessor[T]) NumChunks() int {
	return len(a.chunks)
}

// Chunk returns the i-th chunk for chunk-aware processing. The returned slice
// is a borrowed view; callers must not mutate it.
func (a *Accessor[T]) Chunk(i int) []T {
	return a.chunks[i]
}

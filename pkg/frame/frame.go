// Package frame exposes an opened columnar table as typed column accessors.
//
// A Frame owns exactly one engine table. Accessors handed out by Column,
// DatetimeColumn and friends borrow the frame's buffers: they are valid until
// Close and must not outlive it. Ownership is exclusive; a Frame is not
// copied or shared between owners.
package frame

import (
	"time"

	"github.com/ajitpratap0/strata/pkg/column"
	"github.com/ajitpratap0/strata/pkg/engine"
	"github.com/ajitpratap0/strata/pkg/strataerrors"
)

// Scalar enumerates the fixed-width value types with a zero-copy column
// representation.
type Scalar interface {
	int32 | int64 | uint64 | float32 | float64
}

// Frame is a handle to an opened table.
type Frame struct {
	tbl *engine.Table
}

// Open reads all columns of the parquet file at path.
func Open(path string) (*Frame, error) {
	t, err := engine.Open(path)
	if err != nil {
		return nil, err
	}
	return &Frame{tbl: t}, nil
}

// OpenColumns reads only the named columns. Columns referenced by later
// filters must be included by the caller.
func OpenColumns(path string, columns ...string) (*Frame, error) {
	t, err := engine.OpenColumns(path, columns)
	if err != nil {
		return nil, err
	}
	return &Frame{tbl: t}, nil
}

// FromTable wraps an engine table already materialized by a query. The frame
// takes ownership.
func FromTable(t *engine.Table) *Frame {
	return &Frame{tbl: t}
}

// Close releases the underlying table. All accessors become invalid.
func (f *Frame) Close() {
	f.tbl.Close()
}

// NumRows returns the row count without re-issuing I/O.
func (f *Frame) NumRows() int {
	return f.tbl.NumRows()
}

// NumCols returns the column count without re-issuing I/O.
func (f *Frame) NumCols() int {
	return f.tbl.NumCols()
}

// Columns returns the column metadata in schema order.
func (f *Frame) Columns() []engine.ColumnInfo {
	return f.tbl.Columns()
}

// Rechunk coalesces chunked columns into single contiguous buffers. Purely a
// layout hint for accessors fetched afterwards; values and order are
// untouched. Reports whether anything was coalesced.
func (f *Frame) Rechunk() bool {
	return f.tbl.Rechunk()
}

// Path returns the file the frame was opened from, if any.
func (f *Frame) Path() string {
	return f.tbl.Path()
}

// Column returns a zero-copy typed accessor for a fixed-width column. It
// fails with NotFound if no such column exists and TypeMismatch if the
// declared type is not T. A fresh accessor is built per call.
func Column[T Scalar](f *Frame, name string) (*column.Accessor[T], error) {
	var zero T
	switch any(zero).(type) {
	case int32:
		chunks, err := f.tbl.Int32Chunks(name)
		if err != nil {
			return nil, err
		}
		return any(column.New(chunks...)).(*column.Accessor[T]), nil
	case int64:
		chunks, err := f.tbl.Int64Chunks(name)
		if err != nil {
			return nil, err
		}
		return any(column.New(chunks...)).(*column.Accessor[T]), nil
	case uint64:
		chunks, err := f.tbl.Uint64Chunks(name)
		if err != nil {
			return nil, err
		}
		return any(column.New(chunks...)).(*column.Accessor[T]), nil
	case float32:
		chunks, err := f.tbl.Float32Chunks(name)
		if err != nil {
			return nil, err
		}
		return any(column.New(chunks...)).(*column.Accessor[T]), nil
	case float64:
		chunks, err := f.tbl.Float64Chunks(name)
		if err != nil {
			return nil, err
		}
		return any(column.New(chunks...)).(*column.Accessor[T]), nil
	default:
		return nil, strataerrors.Newf(strataerrors.ErrorTypeInternal,
			"unsupported accessor type %T", zero)
	}
}

// DatetimeColumn returns an accessor over a datetime column as milliseconds
// since the Unix epoch.
func (f *Frame) DatetimeColumn(name string) (*column.Accessor[int64], error) {
	chunks, err := f.tbl.DatetimeChunks(name)
	if err != nil {
		return nil, err
	}
	return column.New(chunks...), nil
}

// TimeColumn returns a datetime column as freshly allocated time.Time values
// in UTC.
func (f *Frame) TimeColumn(name string) ([]time.Time, error) {
	acc, err := f.DatetimeColumn(name)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, 0, acc.Len())
	for ms := range acc.Values() {
		out = append(out, time.UnixMilli(ms).UTC())
	}
	return out, nil
}

// StringColumn returns a string column as freshly allocated owned strings.
// Text has no fixed-width layout, so there is no zero-copy path.
func (f *Frame) StringColumn(name string) ([]string, error) {
	return f.tbl.StringColumn(name)
}

// BoolColumn returns a boolean column. Boolean storage is bit-packed, so the
// values are always unpacked into a fresh slice.
func (f *Frame) BoolColumn(name string) ([]bool, error) {
	return f.tbl.BoolColumn(name)
}

package engine

import (
	"context"
	"os"
	"strings"
	"unsafe"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"go.uber.org/zap"

	"github.com/ajitpratap0/strata/pkg/logger"
	"github.com/ajitpratap0/strata/pkg/strataerrors"
)

// Table is a fully materialized columnar table read from a parquet file.
// It has exclusive ownership of the backing arrow buffers; chunk slices
// handed out by the getters are invalidated by Close. A Table is safe for
// concurrent reads but Close and Rechunk must not race with readers.
type Table struct {
	path string
	tbl  arrow.Table
}

// Open reads all columns of the parquet file at path.
func Open(path string) (*Table, error) {
	return openTable(path, nil)
}

// OpenColumns reads only the named columns. Filter columns a caller intends
// to use later must be listed explicitly; no inference happens here.
func OpenColumns(path string, columns []string) (*Table, error) {
	return openTable(path, columns)
}

func openTable(path string, columns []string) (*Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, strataerrors.Wrap(err, strataerrors.ErrorTypeNotFound, "parquet file not found").
			WithDetail("path", path)
	}

	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, strataerrors.Wrap(err, strataerrors.ErrorTypeEngine, "failed to open parquet file").
			WithDetail("path", path)
	}
	defer rdr.Close()

	ar, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, strataerrors.Wrap(err, strataerrors.ErrorTypeEngine, "failed to create arrow reader").
			WithDetail("path", path)
	}

	var tbl arrow.Table
	if len(columns) == 0 {
		tbl, err = ar.ReadTable(context.Background())
	} else {
		var indices []int
		indices, err = projectionIndices(ar, columns)
		if err != nil {
			return nil, err
		}
		rowGroups := make([]int, rdr.NumRowGroups())
		for i := range rowGroups {
			rowGroups[i] = i
		}
		tbl, err = ar.ReadRowGroups(context.Background(), indices, rowGroups)
	}
	if err != nil {
		return nil, strataerrors.Wrap(err, strataerrors.ErrorTypeEngine, "failed to read parquet table").
			WithDetail("path", path)
	}

	logger.Get().Debug("opened parquet table",
		zap.String("path", path),
		zap.Int64("rows", tbl.NumRows()),
		zap.Int64("cols", tbl.NumCols()))

	return &Table{path: path, tbl: tbl}, nil
}

// projectionIndices resolves column names to schema field indices.
func projectionIndices(ar *pqarrow.FileReader, columns []string) ([]int, error) {
	schema, err := ar.Schema()
	if err != nil {
		return nil, strataerrors.Wrap(err, strataerrors.ErrorTypeEngine, "failed to read parquet schema")
	}

	indices := make([]int, 0, len(columns))
	for _, name := range columns {
		idx := schema.FieldIndices(name)
		if len(idx) == 0 {
			return nil, strataerrors.Newf(strataerrors.ErrorTypeNotFound,
				"column %q not found in file", name)
		}
		indices = append(indices, idx[0])
	}
	return indices, nil
}

// fromArrow wraps an already materialized arrow table.
func fromArrow(path string, tbl arrow.Table) *Table {
	return &Table{path: path, tbl: tbl}
}

// Close releases the backing arrow buffers. All chunk slices obtained from
// this table become invalid.
func (t *Table) Close() {
	if t.tbl != nil {
		t.tbl.Release()
		t.tbl = nil
	}
}

// Path returns the file this table was read from.
func (t *Table) Path() string {
	return t.path
}

// NumRows returns the row count. No I/O is performed.
func (t *Table) NumRows() int {
	return int(t.tbl.NumRows())
}

// NumCols returns the column count. No I/O is performed.
func (t *Table) NumCols() int {
	return int(t.tbl.NumCols())
}

// Columns returns name and declared type for every column, in schema order.
func (t *Table) Columns() []ColumnInfo {
	schema := t.tbl.Schema()
	infos := make([]ColumnInfo, 0, schema.NumFields())
	for i := 0; i < schema.NumFields(); i++ {
		f := schema.Field(i)
		infos = append(infos, ColumnInfo{Name: f.Name, Type: columnTypeOf(f.Type)})
	}
	return infos
}

// Rechunk coalesces every multi-chunk column into a single chunk so that
// later chunk getters return one contiguous slice per column. Row order and
// values are unchanged. Returns whether any coalescing happened.
func (t *Table) Rechunk() bool {
	needed := false
	for i := 0; i < int(t.tbl.NumCols()); i++ {
		if len(t.tbl.Column(i).Data().Chunks()) > 1 {
			needed = true
			break
		}
	}
	if !needed {
		return false
	}

	mem := memory.DefaultAllocator
	schema := t.tbl.Schema()
	arrs := make([]arrow.Array, 0, int(t.tbl.NumCols()))
	release := func() {
		for _, a := range arrs {
			a.Release()
		}
	}

	for i := 0; i < int(t.tbl.NumCols()); i++ {
		chunks := t.tbl.Column(i).Data().Chunks()
		switch len(chunks) {
		case 0:
			b := array.NewBuilder(mem, schema.Field(i).Type)
			arrs = append(arrs, b.NewArray())
			b.Release()
		case 1:
			chunks[0].Retain()
			arrs = append(arrs, chunks[0])
		default:
			merged, err := array.Concatenate(chunks, mem)
			if err != nil {
				logger.Get().Warn("rechunk failed", zap.String("path", t.path), zap.Error(err))
				release()
				return false
			}
			arrs = append(arrs, merged)
		}
	}

	rec := array.NewRecord(schema, arrs, t.tbl.NumRows())
	merged := array.NewTableFromRecords(schema, []arrow.Record{rec})
	rec.Release()
	release()

	t.tbl.Release()
	t.tbl = merged
	return true
}

// Head materializes the first n rows into a new table. The receiver is left
// untouched.
func (t *Table) Head(n int) (*Table, error) {
	if n < 0 {
		n = 0
	}
	if n > t.NumRows() {
		n = t.NumRows()
	}
	mask := make([]bool, t.NumRows())
	for i := 0; i < n; i++ {
		mask[i] = true
	}
	return t.filterRows(mask)
}

// column returns the chunked data of a named column after verifying its
// declared type.
func (t *Table) column(name string, want ColumnType) (*arrow.Chunked, error) {
	schema := t.tbl.Schema()
	idx := schema.FieldIndices(name)
	if len(idx) == 0 {
		return nil, strataerrors.Newf(strataerrors.ErrorTypeNotFound,
			"column %q not found", name).WithDetail("path", t.path)
	}
	got := columnTypeOf(schema.Field(idx[0]).Type)
	if got != want {
		return nil, strataerrors.Newf(strataerrors.ErrorTypeTypeMismatch,
			"column %q holds %s, requested %s", name, got, want).
			WithDetail("path", t.path)
	}
	return t.tbl.Column(idx[0]).Data(), nil
}

// Int32Chunks returns zero-copy chunk views of an int32 column.
func (t *Table) Int32Chunks(name string) ([][]int32, error) {
	chunked, err := t.column(name, TypeInt32)
	if err != nil {
		return nil, err
	}
	out := make([][]int32, 0, len(chunked.Chunks()))
	for _, c := range chunked.Chunks() {
		out = append(out, c.(*array.Int32).Int32Values())
	}
	return out, nil
}

// Int64Chunks returns zero-copy chunk views of an int64 column.
func (t *Table) Int64Chunks(name string) ([][]int64, error) {
	chunked, err := t.column(name, TypeInt64)
	if err != nil {
		return nil, err
	}
	out := make([][]int64, 0, len(chunked.Chunks()))
	for _, c := range chunked.Chunks() {
		out = append(out, c.(*array.Int64).Int64Values())
	}
	return out, nil
}

// Uint64Chunks returns zero-copy chunk views of a uint64 column.
func (t *Table) Uint64Chunks(name string) ([][]uint64, error) {
	chunked, err := t.column(name, TypeUint64)
	if err != nil {
		return nil, err
	}
	out := make([][]uint64, 0, len(chunked.Chunks()))
	for _, c := range chunked.Chunks() {
		out = append(out, c.(*array.Uint64).Uint64Values())
	}
	return out, nil
}

// Float32Chunks returns zero-copy chunk views of a float32 column.
func (t *Table) Float32Chunks(name string) ([][]float32, error) {
	chunked, err := t.column(name, TypeFloat32)
	if err != nil {
		return nil, err
	}
	out := make([][]float32, 0, len(chunked.Chunks()))
	for _, c := range chunked.Chunks() {
		out = append(out, c.(*array.Float32).Float32Values())
	}
	return out, nil
}

// Float64Chunks returns zero-copy chunk views of a float64 column.
func (t *Table) Float64Chunks(name string) ([][]float64, error) {
	chunked, err := t.column(name, TypeFloat64)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, 0, len(chunked.Chunks()))
	for _, c := range chunked.Chunks() {
		out = append(out, c.(*array.Float64).Float64Values())
	}
	return out, nil
}

// DatetimeChunks returns chunk views of a datetime column as milliseconds
// since the Unix epoch. Millisecond-unit timestamps are zero-copy; other
// units are converted into freshly allocated chunks.
func (t *Table) DatetimeChunks(name string) ([][]int64, error) {
	chunked, err := t.column(name, TypeDatetime)
	if err != nil {
		return nil, err
	}
	out := make([][]int64, 0, len(chunked.Chunks()))
	for _, c := range chunked.Chunks() {
		ts := c.(*array.Timestamp)
		vals := ts.TimestampValues()
		if len(vals) == 0 {
			continue
		}
		unit := ts.DataType().(*arrow.TimestampType).Unit
		if unit == arrow.Millisecond {
			// arrow.Timestamp is an int64 with identical layout.
			out = append(out, unsafe.Slice((*int64)(unsafe.Pointer(unsafe.SliceData(vals))), len(vals)))
			continue
		}
		conv := make([]int64, len(vals))
		for i, v := range vals {
			conv[i] = scaleToMillis(int64(v), unit)
		}
		out = append(out, conv)
	}
	return out, nil
}

func scaleToMillis(v int64, unit arrow.TimeUnit) int64 {
	switch unit {
	case arrow.Second:
		return v * 1000
	case arrow.Millisecond:
		return v
	case arrow.Microsecond:
		return v / 1000
	case arrow.Nanosecond:
		return v / 1000000
	default:
		return v
	}
}

// StringColumn returns the values of a string column as freshly allocated
// owned strings. Variable-width values have no zero-copy representation.
func (t *Table) StringColumn(name string) ([]string, error) {
	chunked, err := t.column(name, TypeString)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, chunked.Len())
	for _, c := range chunked.Chunks() {
		sa := c.(*array.String)
		for i := 0; i < sa.Len(); i++ {
			out = append(out, strings.Clone(sa.Value(i)))
		}
	}
	return out, nil
}

// BoolColumn returns the values of a boolean column. Boolean storage is
// bit-packed, so values are always unpacked into a fresh slice.
func (t *Table) BoolColumn(name string) ([]bool, error) {
	chunked, err := t.column(name, TypeBool)
	if err != nil {
		return nil, err
	}
	out := make([]bool, 0, chunked.Len())
	for _, c := range chunked.Chunks() {
		ba := c.(*array.Boolean)
		for i := 0; i < ba.Len(); i++ {
			out = append(out, ba.Value(i))
		}
	}
	return out, nil
}

package engine

import (
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"go.uber.org/zap"

	"github.com/ajitpratap0/strata/pkg/logger"
	"github.com/ajitpratap0/strata/pkg/strataerrors"
)

// WriterOption configures a Writer.
type WriterOption func(*writerOptions)

type writerOptions struct {
	compression  compress.Compression
	rowGroupSize int64
	dataPageSize int64
	dictionary   bool
}

func defaultWriterOptions() writerOptions {
	return writerOptions{
		compression:  compress.Codecs.Zstd,
		rowGroupSize: 1 << 20,
		dataPageSize: 1 << 20,
		dictionary:   true,
	}
}

// WithCompression sets the parquet compression codec. Default is zstd.
func WithCompression(c compress.Compression) WriterOption {
	return func(o *writerOptions) { o.compression = c }
}

// WithRowGroupSize caps the number of rows per row group. Smaller values
// produce more chunks when the file is read back.
func WithRowGroupSize(rows int64) WriterOption {
	return func(o *writerOptions) { o.rowGroupSize = rows }
}

// WithDataPageSize sets the parquet data page size in bytes.
func WithDataPageSize(bytes int64) WriterOption {
	return func(o *writerOptions) { o.dataPageSize = bytes }
}

// WithDictionary toggles dictionary encoding. Default on.
func WithDictionary(enabled bool) WriterOption {
	return func(o *writerOptions) { o.dictionary = enabled }
}

// Writer accumulates whole columns and writes them as one parquet file.
// Columns are emitted in the order they were added; every column must have
// the same length. Nothing touches the filesystem until Finish.
//
// A Writer is single-use and not safe for concurrent use.
type Writer struct {
	path     string
	opts     writerOptions
	fields   []arrow.Field
	arrays   []arrow.Array
	numRows  int64
	finished bool
}

// NewWriter creates a writer targeting path.
func NewWriter(path string, opts ...WriterOption) *Writer {
	o := defaultWriterOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Writer{path: path, opts: o, numRows: -1}
}

func (w *Writer) addColumn(name string, dt arrow.DataType, arr arrow.Array, n int) error {
	if w.finished {
		arr.Release()
		return strataerrors.New(strataerrors.ErrorTypeValidation, "writer already finished")
	}
	for _, f := range w.fields {
		if f.Name == name {
			arr.Release()
			return strataerrors.Newf(strataerrors.ErrorTypeValidation,
				"column %q added twice", name)
		}
	}
	if w.numRows >= 0 && w.numRows != int64(n) {
		arr.Release()
		return strataerrors.Newf(strataerrors.ErrorTypeValidation,
			"column %q has %d rows, previous columns have %d", name, n, w.numRows)
	}
	w.numRows = int64(n)
	w.fields = append(w.fields, arrow.Field{Name: name, Type: dt})
	w.arrays = append(w.arrays, arr)
	return nil
}

// AddInt32Column appends an int32 column.
func (w *Writer) AddInt32Column(name string, values []int32) error {
	b := array.NewInt32Builder(memory.DefaultAllocator)
	defer b.Release()
	b.AppendValues(values, nil)
	return w.addColumn(name, arrow.PrimitiveTypes.Int32, b.NewArray(), len(values))
}

// AddInt64Column appends an int64 column.
func (w *Writer) AddInt64Column(name string, values []int64) error {
	b := array.NewInt64Builder(memory.DefaultAllocator)
	defer b.Release()
	b.AppendValues(values, nil)
	return w.addColumn(name, arrow.PrimitiveTypes.Int64, b.NewArray(), len(values))
}

// AddUint64Column appends a uint64 column.
func (w *Writer) AddUint64Column(name string, values []uint64) error {
	b := array.NewUint64Builder(memory.DefaultAllocator)
	defer b.Release()
	b.AppendValues(values, nil)
	return w.addColumn(name, arrow.PrimitiveTypes.Uint64, b.NewArray(), len(values))
}

// AddFloat32Column appends a float32 column.
func (w *Writer) AddFloat32Column(name string, values []float32) error {
	b := array.NewFloat32Builder(memory.DefaultAllocator)
	defer b.Release()
	b.AppendValues(values, nil)
	return w.addColumn(name, arrow.PrimitiveTypes.Float32, b.NewArray(), len(values))
}

// AddFloat64Column appends a float64 column.
func (w *Writer) AddFloat64Column(name string, values []float64) error {
	b := array.NewFloat64Builder(memory.DefaultAllocator)
	defer b.Release()
	b.AppendValues(values, nil)
	return w.addColumn(name, arrow.PrimitiveTypes.Float64, b.NewArray(), len(values))
}

// AddStringColumn appends a string column.
func (w *Writer) AddStringColumn(name string, values []string) error {
	b := array.NewStringBuilder(memory.DefaultAllocator)
	defer b.Release()
	b.AppendValues(values, nil)
	return w.addColumn(name, arrow.BinaryTypes.String, b.NewArray(), len(values))
}

// AddBoolColumn appends a boolean column.
func (w *Writer) AddBoolColumn(name string, values []bool) error {
	b := array.NewBooleanBuilder(memory.DefaultAllocator)
	defer b.Release()
	b.AppendValues(values, nil)
	return w.addColumn(name, arrow.FixedWidthTypes.Boolean, b.NewArray(), len(values))
}

// AddDatetimeColumn appends a datetime column from milliseconds since the
// Unix epoch, stored as a millisecond timestamp.
func (w *Writer) AddDatetimeColumn(name string, millis []int64) error {
	dt := &arrow.TimestampType{Unit: arrow.Millisecond, TimeZone: "UTC"}
	b := array.NewTimestampBuilder(memory.DefaultAllocator, dt)
	defer b.Release()
	for _, ms := range millis {
		b.Append(arrow.Timestamp(ms))
	}
	return w.addColumn(name, dt, b.NewArray(), len(millis))
}

// Finish writes all accumulated columns to the target file and releases the
// buffers. Finishing twice is an error at this level; the buffered record
// writer above maps its idempotent Finish onto a single call here.
func (w *Writer) Finish() error {
	if w.finished {
		return strataerrors.New(strataerrors.ErrorTypeValidation, "writer already finished")
	}
	w.finished = true
	defer w.releaseArrays()

	if len(w.fields) == 0 {
		return strataerrors.New(strataerrors.ErrorTypeValidation, "no columns to write")
	}

	schema := arrow.NewSchema(w.fields, nil)
	rec := array.NewRecord(schema, w.arrays, w.numRows)
	defer rec.Release()
	tbl := array.NewTableFromRecords(schema, []arrow.Record{rec})
	defer tbl.Release()

	f, err := os.Create(w.path)
	if err != nil {
		return strataerrors.Wrap(err, strataerrors.ErrorTypeEngine, "failed to create parquet file").
			WithDetail("path", w.path)
	}

	props := parquet.NewWriterProperties(
		parquet.WithCompression(w.opts.compression),
		parquet.WithDictionaryDefault(w.opts.dictionary),
		parquet.WithDataPageSize(w.opts.dataPageSize),
		parquet.WithMaxRowGroupLength(w.opts.rowGroupSize),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithAllocator(memory.DefaultAllocator),
	)

	if err := pqarrow.WriteTable(tbl, f, w.opts.rowGroupSize, props, arrowProps); err != nil {
		f.Close()
		os.Remove(w.path)
		return strataerrors.Wrap(err, strataerrors.ErrorTypeEngine, "failed to write parquet table").
			WithDetail("path", w.path)
	}
	if err := f.Close(); err != nil {
		return strataerrors.Wrap(err, strataerrors.ErrorTypeEngine, "failed to close parquet file").
			WithDetail("path", w.path)
	}

	logger.Get().Debug("wrote parquet table",
		zap.String("path", w.path),
		zap.Int64("rows", w.numRows),
		zap.Int("cols", len(w.fields)))
	return nil
}

func (w *Writer) releaseArrays() {
	for _, a := range w.arrays {
		a.Release()
	}
	w.arrays = nil
}

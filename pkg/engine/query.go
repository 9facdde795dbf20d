package engine

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"

	"github.com/ajitpratap0/strata/pkg/logger"
	"github.com/ajitpratap0/strata/pkg/strataerrors"
)

// Query accumulates a projection and conjunctive predicates against one
// parquet file and materializes the matching rows as a Table.
//
// The caller is responsible for including every predicate column in the
// projection; Select is taken literally.
type Query struct {
	path  string
	cols  []string // empty means all columns
	preds []predicate
}

type predicate struct {
	column string
	op     FilterOp
	kind   ColumnType
	value  interface{}
}

// NewQuery starts a query against the parquet file at path.
func NewQuery(path string) *Query {
	return &Query{path: path}
}

// Select sets the scan projection. Not calling Select scans all columns.
func (q *Query) Select(names ...string) *Query {
	q.cols = append(q.cols, names...)
	return q
}

// FilterInt32 adds an int32 comparison predicate.
func (q *Query) FilterInt32(column string, op FilterOp, value int32) *Query {
	return q.filter(column, op, TypeInt32, value)
}

// FilterInt64 adds an int64 comparison predicate.
func (q *Query) FilterInt64(column string, op FilterOp, value int64) *Query {
	return q.filter(column, op, TypeInt64, value)
}

// FilterUint64 adds a uint64 comparison predicate.
func (q *Query) FilterUint64(column string, op FilterOp, value uint64) *Query {
	return q.filter(column, op, TypeUint64, value)
}

// FilterFloat32 adds a float32 comparison predicate.
func (q *Query) FilterFloat32(column string, op FilterOp, value float32) *Query {
	return q.filter(column, op, TypeFloat32, value)
}

// FilterFloat64 adds a float64 comparison predicate.
func (q *Query) FilterFloat64(column string, op FilterOp, value float64) *Query {
	return q.filter(column, op, TypeFloat64, value)
}

// FilterString adds a string comparison predicate (lexicographic order).
func (q *Query) FilterString(column string, op FilterOp, value string) *Query {
	return q.filter(column, op, TypeString, value)
}

// FilterBool adds a boolean predicate. Only Eq and Ne are meaningful; other
// operators fail Collect with a validation error.
func (q *Query) FilterBool(column string, op FilterOp, value bool) *Query {
	return q.filter(column, op, TypeBool, value)
}

// FilterDatetime adds a datetime predicate on milliseconds since the epoch.
func (q *Query) FilterDatetime(column string, op FilterOp, millis int64) *Query {
	return q.filter(column, op, TypeDatetime, millis)
}

func (q *Query) filter(column string, op FilterOp, kind ColumnType, value interface{}) *Query {
	q.preds = append(q.preds, predicate{column: column, op: op, kind: kind, value: value})
	return q
}

// Collect executes the query. With no predicates this is a plain (projected)
// open; otherwise the scan columns are read, each predicate is evaluated into
// a shared row mask, and the surviving rows are materialized into a new Table
// in their original order.
func (q *Query) Collect() (*Table, error) {
	t, err := openTable(q.path, q.cols)
	if err != nil {
		return nil, err
	}
	if len(q.preds) == 0 {
		return t, nil
	}

	mask := make([]bool, t.NumRows())
	for i := range mask {
		mask[i] = true
	}
	for _, p := range q.preds {
		if err := t.narrowMask(p, mask); err != nil {
			t.Close()
			return nil, err
		}
	}

	filtered, err := t.filterRows(mask)
	t.Close()
	if err != nil {
		return nil, err
	}

	logger.Get().Debug("query collected",
		zap.String("path", q.path),
		zap.Int("predicates", len(q.preds)),
		zap.Int("rows", filtered.NumRows()))
	return filtered, nil
}

// narrowMask clears mask entries for rows not satisfying the predicate.
func (t *Table) narrowMask(p predicate, mask []bool) error {
	switch p.kind {
	case TypeInt32:
		chunks, err := t.Int32Chunks(p.column)
		if err != nil {
			return err
		}
		narrowOrdered(chunks, p.value.(int32), p.op, mask)
	case TypeInt64:
		chunks, err := t.Int64Chunks(p.column)
		if err != nil {
			return err
		}
		narrowOrdered(chunks, p.value.(int64), p.op, mask)
	case TypeUint64:
		chunks, err := t.Uint64Chunks(p.column)
		if err != nil {
			return err
		}
		narrowOrdered(chunks, p.value.(uint64), p.op, mask)
	case TypeFloat32:
		chunks, err := t.Float32Chunks(p.column)
		if err != nil {
			return err
		}
		narrowOrdered(chunks, p.value.(float32), p.op, mask)
	case TypeFloat64:
		chunks, err := t.Float64Chunks(p.column)
		if err != nil {
			return err
		}
		narrowOrdered(chunks, p.value.(float64), p.op, mask)
	case TypeDatetime:
		chunks, err := t.DatetimeChunks(p.column)
		if err != nil {
			return err
		}
		narrowOrdered(chunks, p.value.(int64), p.op, mask)
	case TypeString:
		chunked, err := t.column(p.column, TypeString)
		if err != nil {
			return err
		}
		want := p.value.(string)
		row := 0
		for _, c := range chunked.Chunks() {
			sa := c.(*array.String)
			for i := 0; i < sa.Len(); i++ {
				if mask[row] && !compare(sa.Value(i), want, p.op) {
					mask[row] = false
				}
				row++
			}
		}
	case TypeBool:
		if p.op != Eq && p.op != Ne {
			return strataerrors.Newf(strataerrors.ErrorTypeValidation,
				"operator %s not supported for boolean column %q", p.op, p.column)
		}
		vals, err := t.BoolColumn(p.column)
		if err != nil {
			return err
		}
		want := p.value.(bool)
		for i, v := range vals {
			match := v == want
			if p.op == Ne {
				match = !match
			}
			if mask[i] && !match {
				mask[i] = false
			}
		}
	default:
		return strataerrors.Newf(strataerrors.ErrorTypeInternal,
			"unsupported predicate type %s", p.kind)
	}
	return nil
}

func narrowOrdered[T interface {
	~int32 | ~int64 | ~uint64 | ~float32 | ~float64
}](chunks [][]T, want T, op FilterOp, mask []bool) {
	row := 0
	for _, c := range chunks {
		for _, v := range c {
			if mask[row] && !compare(v, want, op) {
				mask[row] = false
			}
			row++
		}
	}
}

// filterRows materializes the rows with a set mask bit into a fresh table,
// preserving order.
func (t *Table) filterRows(mask []bool) (*Table, error) {
	mem := memory.DefaultAllocator
	schema := t.tbl.Schema()
	bldr := array.NewRecordBuilder(mem, schema)
	defer bldr.Release()

	for col := 0; col < int(t.tbl.NumCols()); col++ {
		if err := appendMasked(bldr.Field(col), t.tbl.Column(col).Data(), mask); err != nil {
			return nil, err
		}
	}

	rec := bldr.NewRecord()
	defer rec.Release()
	filtered := array.NewTableFromRecords(schema, []arrow.Record{rec})
	return fromArrow(t.path, filtered), nil
}

// appendMasked copies the masked-in values of one chunked column into the
// matching builder. Value types mirror the ones the table getters support.
func appendMasked(b array.Builder, chunked *arrow.Chunked, mask []bool) error {
	row := 0
	for _, c := range chunked.Chunks() {
		for i := 0; i < c.Len(); i++ {
			if !mask[row] {
				row++
				continue
			}
			row++
			if c.IsNull(i) {
				b.AppendNull()
				continue
			}
			switch arr := c.(type) {
			case *array.Int32:
				b.(*array.Int32Builder).Append(arr.Value(i))
			case *array.Int64:
				b.(*array.Int64Builder).Append(arr.Value(i))
			case *array.Uint64:
				b.(*array.Uint64Builder).Append(arr.Value(i))
			case *array.Float32:
				b.(*array.Float32Builder).Append(arr.Value(i))
			case *array.Float64:
				b.(*array.Float64Builder).Append(arr.Value(i))
			case *array.String:
				b.(*array.StringBuilder).Append(arr.Value(i))
			case *array.Boolean:
				b.(*array.BooleanBuilder).Append(arr.Value(i))
			case *array.Timestamp:
				b.(*array.TimestampBuilder).Append(arr.Value(i))
			default:
				return strataerrors.Newf(strataerrors.ErrorTypeEngine,
					"unsupported column type %s in filter materialization", c.DataType())
			}
		}
	}
	return nil
}

package frame

import (
	"time"

	"github.com/ajitpratap0/strata/pkg/engine"
)

// Builder accumulates column selection and name-based filter predicates
// before opening a frame:
//
//	f, err := frame.Scan("ticks.parquet").
//	    Select("symbol", "price").
//	    FilterFloat64("price", engine.Gt, 10).
//	    Collect()
//
// With no filters, Collect degenerates to a plain (projected) open. With
// filters, the predicate columns are added to the scan set so filtering works
// even when they were not selected.
type Builder struct {
	path    string
	selects []string
	filters []namedFilter
	head    int // 0 means no limit
}

type namedFilter struct {
	apply  func(*engine.Query)
	column string
}

// Scan starts building a frame over the parquet file at path.
func Scan(path string) *Builder {
	return &Builder{path: path}
}

// Select requests specific output columns. Not calling Select reads all.
func (b *Builder) Select(names ...string) *Builder {
	b.selects = append(b.selects, names...)
	return b
}

// Head limits the frame to the first n rows, applied after filtering.
func (b *Builder) Head(n int) *Builder {
	b.head = n
	return b
}

// FilterInt32 keeps rows whose named int32 column satisfies op against value.
func (b *Builder) FilterInt32(column string, op engine.FilterOp, value int32) *Builder {
	return b.addFilter(column, func(q *engine.Query) { q.FilterInt32(column, op, value) })
}

// FilterInt64 keeps rows whose named int64 column satisfies op against value.
func (b *Builder) FilterInt64(column string, op engine.FilterOp, value int64) *Builder {
	return b.addFilter(column, func(q *engine.Query) { q.FilterInt64(column, op, value) })
}

// FilterUint64 keeps rows whose named uint64 column satisfies op against value.
func (b *Builder) FilterUint64(column string, op engine.FilterOp, value uint64) *Builder {
	return b.addFilter(column, func(q *engine.Query) { q.FilterUint64(column, op, value) })
}

// FilterFloat32 keeps rows whose named float32 column satisfies op against value.
func (b *Builder) FilterFloat32(column string, op engine.FilterOp, value float32) *Builder {
	return b.addFilter(column, func(q *engine.Query) { q.FilterFloat32(column, op, value) })
}

// FilterFloat64 keeps rows whose named float64 column satisfies op against value.
func (b *Builder) FilterFloat64(column string, op engine.FilterOp, value float64) *Builder {
	return b.addFilter(column, func(q *engine.Query) { q.FilterFloat64(column, op, value) })
}

// FilterString keeps rows whose named string column satisfies op against value.
func (b *Builder) FilterString(column string, op engine.FilterOp, value string) *Builder {
	return b.addFilter(column, func(q *engine.Query) { q.FilterString(column, op, value) })
}

// FilterBool keeps rows whose named boolean column equals (Eq) or differs
// from (Ne) value.
func (b *Builder) FilterBool(column string, op engine.FilterOp, value bool) *Builder {
	return b.addFilter(column, func(q *engine.Query) { q.FilterBool(column, op, value) })
}

// FilterTime keeps rows whose named datetime column satisfies op against value.
func (b *Builder) FilterTime(column string, op engine.FilterOp, value time.Time) *Builder {
	ms := value.UnixMilli()
	return b.addFilter(column, func(q *engine.Query) { q.FilterDatetime(column, op, ms) })
}

func (b *Builder) addFilter(column string, apply func(*engine.Query)) *Builder {
	b.filters = append(b.filters, namedFilter{apply: apply, column: column})
	return b
}

// Collect opens the frame. The query is executed exactly once.
func (b *Builder) Collect() (*Frame, error) {
	var (
		t   *engine.Table
		err error
	)
	if len(b.filters) == 0 {
		if len(b.selects) == 0 {
			t, err = engine.Open(b.path)
		} else {
			t, err = engine.OpenColumns(b.path, b.selects)
		}
	} else {
		q := engine.NewQuery(b.path)
		if len(b.selects) > 0 {
			q.Select(scanColumns(b.selects, b.filters)...)
		}
		for _, f := range b.filters {
			f.apply(q)
		}
		t, err = q.Collect()
	}
	if err != nil {
		return nil, err
	}

	if b.head > 0 && b.head < t.NumRows() {
		limited, err := t.Head(b.head)
		t.Close()
		if err != nil {
			return nil, err
		}
		t = limited
	}
	return FromTable(t), nil
}

// scanColumns is the selected set with filter-only columns appended, in
// first-seen order.
func scanColumns(selects []string, filters []namedFilter) []string {
	out := make([]string, 0, len(selects)+len(filters))
	seen := make(map[string]bool, len(selects)+len(filters))
	for _, name := range selects {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, f := range filters {
		if !seen[f.column] {
			seen[f.column] = true
			out = append(out, f.column)
		}
	}
	return out
}

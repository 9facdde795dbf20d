// Package query builds filtered, projected reads of record types.
//
// A Query accumulates column selections and typed predicates against the
// codec-registered fields of R, then executes exactly once:
//
//	recs, err := query.New[Tick]("ticks.parquet").
//	    Select(codec.F(func(t *Tick) *int64 { return &t.ID }),
//	        codec.F(func(t *Tick) *float64 { return &t.Score })).
//	    FilterFloat64(func(t *Tick) *float64 { return &t.Score }, engine.Gt, 80).
//	    Collect()
//
// The engine scans the union of the selected and predicate columns, so a
// filter works even when its column is not part of the output. Only the
// selected fields are decoded; the rest keep their zero values.
package query

import (
	"time"

	"github.com/ajitpratap0/strata/pkg/codec"
	"github.com/ajitpratap0/strata/pkg/engine"
	"github.com/ajitpratap0/strata/pkg/frame"
	"github.com/ajitpratap0/strata/pkg/strataerrors"
)

// Query accumulates selections and predicates for record type R.
type Query[R any] struct {
	path      string
	selectors []selector[R]
	filters   []filterEntry[R]
	collected bool
}

type selector[R any] struct {
	ref   codec.FieldRef[R]
	name  string
	byRef bool
}

type filterEntry[R any] struct {
	ref   codec.FieldRef[R]
	apply func(q *engine.Query, column string)
}

// New starts a query over the parquet file at path.
func New[R any](path string) *Query[R] {
	return &Query[R]{path: path}
}

// Select adds output fields by reference. With no Select calls, all columns
// registered in the codec are read, in registration order.
func (q *Query[R]) Select(refs ...codec.FieldRef[R]) *Query[R] {
	for _, ref := range refs {
		q.selectors = append(q.selectors, selector[R]{ref: ref, byRef: true})
	}
	return q
}

// SelectColumns adds output columns by raw name. The names must be
// registered in the codec.
func (q *Query[R]) SelectColumns(names ...string) *Query[R] {
	for _, name := range names {
		q.selectors = append(q.selectors, selector[R]{name: name})
	}
	return q
}

// FilterInt32 adds a predicate on an int32 field.
func (q *Query[R]) FilterInt32(field func(*R) *int32, op engine.FilterOp, value int32) *Query[R] {
	return q.addFilter(codec.F(field), func(eq *engine.Query, col string) {
		eq.FilterInt32(col, op, value)
	})
}

// FilterInt64 adds a predicate on an int64 field.
func (q *Query[R]) FilterInt64(field func(*R) *int64, op engine.FilterOp, value int64) *Query[R] {
	return q.addFilter(codec.F(field), func(eq *engine.Query, col string) {
		eq.FilterInt64(col, op, value)
	})
}

// FilterUint64 adds a predicate on a uint64 field.
func (q *Query[R]) FilterUint64(field func(*R) *uint64, op engine.FilterOp, value uint64) *Query[R] {
	return q.addFilter(codec.F(field), func(eq *engine.Query, col string) {
		eq.FilterUint64(col, op, value)
	})
}

// FilterFloat32 adds a predicate on a float32 field.
func (q *Query[R]) FilterFloat32(field func(*R) *float32, op engine.FilterOp, value float32) *Query[R] {
	return q.addFilter(codec.F(field), func(eq *engine.Query, col string) {
		eq.FilterFloat32(col, op, value)
	})
}

// FilterFloat64 adds a predicate on a float64 field.
func (q *Query[R]) FilterFloat64(field func(*R) *float64, op engine.FilterOp, value float64) *Query[R] {
	return q.addFilter(codec.F(field), func(eq *engine.Query, col string) {
		eq.FilterFloat64(col, op, value)
	})
}

// FilterString adds a predicate on a string field.
func (q *Query[R]) FilterString(field func(*R) *string, op engine.FilterOp, value string) *Query[R] {
	return q.addFilter(codec.F(field), func(eq *engine.Query, col string) {
		eq.FilterString(col, op, value)
	})
}

// FilterBool adds an equality predicate on a boolean field.
func (q *Query[R]) FilterBool(field func(*R) *bool, op engine.FilterOp, value bool) *Query[R] {
	return q.addFilter(codec.F(field), func(eq *engine.Query, col string) {
		eq.FilterBool(col, op, value)
	})
}

// FilterTime adds a predicate on a time.Time field.
func (q *Query[R]) FilterTime(field func(*R) *time.Time, op engine.FilterOp, value time.Time) *Query[R] {
	ms := value.UnixMilli()
	return q.addFilter(codec.F(field), func(eq *engine.Query, col string) {
		eq.FilterDatetime(col, op, ms)
	})
}

func (q *Query[R]) addFilter(ref codec.FieldRef[R], apply func(*engine.Query, string)) *Query[R] {
	q.filters = append(q.filters, filterEntry[R]{ref: ref, apply: apply})
	return q
}

// plan is the resolved form of the query: what to scan, what to decode.
type plan[R any] struct {
	c          *codec.Codec[R]
	scan       []string
	indices    []int
	filterCols []string
}

// resolve maps field references to column names before any I/O. Unregistered
// references or names fail here with a lookup error.
func (q *Query[R]) resolve() (*plan[R], error) {
	c, err := codec.For[R]()
	if err != nil {
		return nil, err
	}

	var selected []string
	var indices []int
	if len(q.selectors) == 0 {
		selected = c.ColumnNames()
		indices = make([]int, len(selected))
		for i := range indices {
			indices[i] = i
		}
	} else {
		for _, s := range q.selectors {
			name := s.name
			if s.byRef {
				name, err = c.FindColumnName(s.ref)
				if err != nil {
					return nil, err
				}
			}
			idx, err := c.IndexOf(name)
			if err != nil {
				return nil, err
			}
			selected = append(selected, name)
			indices = append(indices, idx)
		}
	}

	filterCols := make([]string, 0, len(q.filters))
	for _, f := range q.filters {
		name, err := c.FindColumnName(f.ref)
		if err != nil {
			return nil, err
		}
		filterCols = append(filterCols, name)
	}

	// Scan set: selected order preserved, filter-only columns appended.
	scan := make([]string, 0, len(selected)+len(filterCols))
	seen := make(map[string]bool, len(selected)+len(filterCols))
	for _, name := range selected {
		if !seen[name] {
			seen[name] = true
			scan = append(scan, name)
		}
	}
	for _, name := range filterCols {
		if !seen[name] {
			seen[name] = true
			scan = append(scan, name)
		}
	}

	return &plan[R]{c: c, scan: scan, indices: indices, filterCols: filterCols}, nil
}

// collectFrame runs the resolved query against the engine exactly once.
func (q *Query[R]) collectFrame(p *plan[R]) (*frame.Frame, error) {
	if len(q.filters) == 0 {
		return frame.OpenColumns(q.path, p.scan...)
	}

	eq := engine.NewQuery(q.path).Select(p.scan...)
	for i, f := range q.filters {
		f.apply(eq, p.filterCols[i])
	}
	tbl, err := eq.Collect()
	if err != nil {
		return nil, err
	}
	return frame.FromTable(tbl), nil
}

// Collect executes the query and decodes the selected fields into records.
// Unselected fields keep their zero values. A query can be collected once.
func (q *Query[R]) Collect() ([]R, error) {
	if q.collected {
		return nil, strataerrors.New(strataerrors.ErrorTypeValidation, "query already collected")
	}
	p, err := q.resolve()
	if err != nil {
		return nil, err
	}
	f, err := q.collectFrame(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	q.collected = true
	return p.c.ReadSelected(f, p.indices)
}

// CollectFrame executes the query and returns the scanned columns as a frame
// for zero-copy access. The caller owns the frame and must close it.
func (q *Query[R]) CollectFrame() (*frame.Frame, error) {
	if q.collected {
		return nil, strataerrors.New(strataerrors.ErrorTypeValidation, "query already collected")
	}
	p, err := q.resolve()
	if err != nil {
		return nil, err
	}
	f, err := q.collectFrame(p)
	if err != nil {
		return nil, err
	}
	q.collected = true
	return f, nil
}

// Package strata provides typed, zero-copy columnar access to parquet tables.
//
// Strata sits between application record types and an Apache Arrow backed
// storage engine. Numeric columns are exposed as chunk views that alias the
// engine's buffers directly; nothing is copied on the read path until a value
// crosses into a record.
//
// # Layers
//
// From the bottom up:
//
//  1. engine: parquet I/O on arrow-go — projected reads, predicate scans,
//     column-at-a-time writes.
//
//  2. column: Accessor[T], flat O(log chunks) random access and iteration over
//     the chunk lists a read produces.
//
//  3. frame: an opened table handle that hands out typed accessors, plus a
//     scan builder (Select / Filter / Head / Collect).
//
//  4. codec: static bindings from a record type's fields to named columns,
//     registered once per type and resolved by field identity.
//
//  5. query and writer: typed record-level reads and buffered record-level
//     writes on top of the codec.
//
// # Quick start
//
//	type Tick struct {
//	    ID    int64
//	    Name  string
//	    Score float64
//	}
//
//	func init() {
//	    codec.Register(func(c *codec.Codec[Tick]) {
//	        codec.Number(c, "id", func(t *Tick) *int64 { return &t.ID })
//	        codec.String(c, "name", func(t *Tick) *string { return &t.Name })
//	        codec.Number(c, "score", func(t *Tick) *float64 { return &t.Score })
//	    })
//	}
//
//	ticks, err := query.New[Tick]("ticks.parquet").
//	    FilterFloat64(func(t *Tick) *float64 { return &t.Score }, engine.Gt, 80).
//	    Collect()
//
// Columns referenced only by filters are scanned but not decoded; unselected
// fields keep their zero values.
package strata

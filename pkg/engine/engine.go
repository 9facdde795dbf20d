// Package engine implements the columnar storage engine on top of Apache
// Arrow's parquet support (arrow-go v18).
//
// The engine owns everything physical: parquet decoding, row-group layout,
// compression, and predicate evaluation during a scan. Callers above it
// (frame, codec, query, writer) only see the narrow surface in this package:
// open a table (optionally projected), inspect its columns, pull typed chunk
// lists, run a projected and filtered query, or write columns out.
//
// Chunk getters return slices that alias arrow buffers owned by the Table.
// They are valid until the Table is closed and must never be mutated.
package engine

import (
	"cmp"

	"github.com/apache/arrow-go/v18/arrow"
)

// ColumnType is the declared value type of a stored column.
type ColumnType int

const (
	// TypeUnknown marks a column whose physical type has no Strata mapping.
	TypeUnknown ColumnType = iota
	TypeInt32
	TypeInt64
	TypeUint64
	TypeFloat32
	TypeFloat64
	TypeString
	TypeBool
	// TypeDatetime is stored as milliseconds since the Unix epoch.
	TypeDatetime
)

// String returns the lowercase name of the column type.
func (t ColumnType) String() string {
	switch t {
	case TypeInt32:
		return "int32"
	case TypeInt64:
		return "int64"
	case TypeUint64:
		return "uint64"
	case TypeFloat32:
		return "float32"
	case TypeFloat64:
		return "float64"
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	case TypeDatetime:
		return "datetime"
	default:
		return "unknown"
	}
}

// ColumnInfo describes one column of an opened table.
type ColumnInfo struct {
	Name string
	Type ColumnType
}

// FilterOp is a comparison operator for predicate pushdown.
type FilterOp int

const (
	Eq FilterOp = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

// String returns the symbolic form of the operator.
func (op FilterOp) String() string {
	switch op {
	case Eq:
		return "=="
	case Ne:
		return "!="
	case Lt:
		return "<"
	case Le:
		return "<="
	case Gt:
		return ">"
	case Ge:
		return ">="
	default:
		return "?"
	}
}

// columnTypeOf maps an arrow data type onto the Strata column type.
func columnTypeOf(dt arrow.DataType) ColumnType {
	switch dt.ID() {
	case arrow.INT32:
		return TypeInt32
	case arrow.INT64:
		return TypeInt64
	case arrow.UINT64:
		return TypeUint64
	case arrow.FLOAT32:
		return TypeFloat32
	case arrow.FLOAT64:
		return TypeFloat64
	case arrow.STRING, arrow.LARGE_STRING:
		return TypeString
	case arrow.BOOL:
		return TypeBool
	case arrow.TIMESTAMP:
		return TypeDatetime
	default:
		return TypeUnknown
	}
}

// compare applies op to an ordered pair.
func compare[T cmp.Ordered](a, b T, op FilterOp) bool {
	switch op {
	case Eq:
		return a == b
	case Ne:
		return a != b
	case Lt:
		return a < b
	case Le:
		return a <= b
	case Gt:
		return a > b
	case Ge:
		return a >= b
	default:
		return false
	}
}

// Package codec maps native record types onto named, typed columns.
//
// A Codec[R] holds one binding per column: the column name, the bound field's
// byte offset inside R (its identity), and typed read/write closures. Fields
// are declared with accessor functions returning a pointer into the record:
//
//	type Tick struct {
//	    ID    int64
//	    Name  string
//	    Score float64
//	}
//
//	codec.Register(func(c *codec.Codec[Tick]) {
//	    codec.Number(c, "id", func(t *Tick) *int64 { return &t.ID })
//	    codec.String(c, "name", func(t *Tick) *string { return &t.Name })
//	    codec.Number(c, "score", func(t *Tick) *float64 { return &t.Score })
//	})
//
// The byte offset plays the role a member pointer plays in languages that
// have them: it is stable, injective across distinct fields, and lets a query
// builder resolve a field reference back to its column name. Binding the same
// column name or the same field twice panics at registration.
//
// Codecs are registered once per record type and built lazily on first use;
// after that they are read-only and safe for concurrent readers.
package codec

import (
	"fmt"
	"reflect"
	"sync"
	"time"
	"unsafe"

	"github.com/ajitpratap0/strata/pkg/engine"
	"github.com/ajitpratap0/strata/pkg/frame"
	"github.com/ajitpratap0/strata/pkg/strataerrors"
)

// Codec holds the ordered field bindings for one record type.
type Codec[R any] struct {
	bindings []binding[R]
}

type binding[R any] struct {
	name   string
	offset uintptr
	ctype  engine.ColumnType
	read   func(*frame.Frame, []R) error
	write  func(*engine.Writer, []R) error
}

// New creates an empty codec. Most callers go through Register instead and
// let the registry own the instance.
func New[R any]() *Codec[R] {
	return &Codec[R]{}
}

// FieldRef identifies a registered field of R by its byte offset.
type FieldRef[R any] struct {
	offset uintptr
}

// F builds a FieldRef from a field accessor. The accessor must return a
// pointer to a field of its argument.
func F[R any, T any](access func(*R) *T) FieldRef[R] {
	return FieldRef[R]{offset: fieldOffset(access)}
}

// fieldOffset computes the byte offset of the field the accessor points at,
// probing a zero-valued record.
func fieldOffset[R any, T any](access func(*R) *T) uintptr {
	var zero R
	off := uintptr(unsafe.Pointer(access(&zero))) - uintptr(unsafe.Pointer(&zero))
	if size := unsafe.Sizeof(zero); size > 0 && off >= size {
		panic(fmt.Sprintf("codec: accessor for %s does not point into the record", reflect.TypeFor[R]()))
	}
	return off
}

// add registers a binding, enforcing unique column names and unique field
// identities at construction time.
func (c *Codec[R]) add(b binding[R]) {
	for _, have := range c.bindings {
		if have.name == b.name {
			panic(fmt.Sprintf("codec: column %q bound twice for %s", b.name, reflect.TypeFor[R]()))
		}
		if have.offset == b.offset {
			panic(fmt.Sprintf("codec: field at offset %d of %s bound to both %q and %q",
				b.offset, reflect.TypeFor[R](), have.name, b.name))
		}
	}
	c.bindings = append(c.bindings, b)
}

// Number binds a fixed-width numeric field. Reads run a single pass over the
// column's zero-copy accessor straight into the record fields.
func Number[R any, T frame.Scalar](c *Codec[R], name string, access func(*R) *T) {
	c.add(binding[R]{
		name:   name,
		offset: fieldOffset(access),
		ctype:  numberType[T](),
		read: func(f *frame.Frame, out []R) error {
			col, err := frame.Column[T](f, name)
			if err != nil {
				return err
			}
			row := 0
			for v := range col.Values() {
				if row >= len(out) {
					break
				}
				*access(&out[row]) = v
				row++
			}
			return nil
		},
		write: func(w *engine.Writer, recs []R) error {
			vals := make([]T, 0, len(recs))
			for i := range recs {
				vals = append(vals, *access(&recs[i]))
			}
			return addNumberColumn(w, name, vals)
		},
	})
}

// String binds a text field. Text columns always allocate; each value is
// moved into its record.
func String[R any](c *Codec[R], name string, access func(*R) *string) {
	c.add(binding[R]{
		name:   name,
		offset: fieldOffset(access),
		ctype:  engine.TypeString,
		read: func(f *frame.Frame, out []R) error {
			vals, err := f.StringColumn(name)
			if err != nil {
				return err
			}
			for i := 0; i < len(vals) && i < len(out); i++ {
				*access(&out[i]) = vals[i]
			}
			return nil
		},
		write: func(w *engine.Writer, recs []R) error {
			vals := make([]string, 0, len(recs))
			for i := range recs {
				vals = append(vals, *access(&recs[i]))
			}
			return w.AddStringColumn(name, vals)
		},
	})
}

// Bool binds a boolean field. Boolean columns are bit-packed in storage and
// go through the allocating fetch, never a pointer cast.
func Bool[R any](c *Codec[R], name string, access func(*R) *bool) {
	c.add(binding[R]{
		name:   name,
		offset: fieldOffset(access),
		ctype:  engine.TypeBool,
		read: func(f *frame.Frame, out []R) error {
			vals, err := f.BoolColumn(name)
			if err != nil {
				return err
			}
			for i := 0; i < len(vals) && i < len(out); i++ {
				*access(&out[i]) = vals[i]
			}
			return nil
		},
		write: func(w *engine.Writer, recs []R) error {
			vals := make([]bool, 0, len(recs))
			for i := range recs {
				vals = append(vals, *access(&recs[i]))
			}
			return w.AddBoolColumn(name, vals)
		},
	})
}

// Time binds a time.Time field, stored as a millisecond timestamp. Values
// read back are in UTC.
func Time[R any](c *Codec[R], name string, access func(*R) *time.Time) {
	c.add(binding[R]{
		name:   name,
		offset: fieldOffset(access),
		ctype:  engine.TypeDatetime,
		read: func(f *frame.Frame, out []R) error {
			col, err := f.DatetimeColumn(name)
			if err != nil {
				return err
			}
			row := 0
			for ms := range col.Values() {
				if row >= len(out) {
					break
				}
				*access(&out[row]) = time.UnixMilli(ms).UTC()
				row++
			}
			return nil
		},
		write: func(w *engine.Writer, recs []R) error {
			millis := make([]int64, 0, len(recs))
			for i := range recs {
				millis = append(millis, access(&recs[i]).UnixMilli())
			}
			return w.AddDatetimeColumn(name, millis)
		},
	})
}

func numberType[T frame.Scalar]() engine.ColumnType {
	var zero T
	switch any(zero).(type) {
	case int32:
		return engine.TypeInt32
	case int64:
		return engine.TypeInt64
	case uint64:
		return engine.TypeUint64
	case float32:
		return engine.TypeFloat32
	case float64:
		return engine.TypeFloat64
	default:
		return engine.TypeUnknown
	}
}

func addNumberColumn[T frame.Scalar](w *engine.Writer, name string, vals []T) error {
	switch v := any(vals).(type) {
	case []int32:
		return w.AddInt32Column(name, v)
	case []int64:
		return w.AddInt64Column(name, v)
	case []uint64:
		return w.AddUint64Column(name, v)
	case []float32:
		return w.AddFloat32Column(name, v)
	case []float64:
		return w.AddFloat64Column(name, v)
	default:
		return strataerrors.Newf(strataerrors.ErrorTypeInternal,
			"unsupported numeric column type %T", vals)
	}
}

// ReadAll decodes every registered column of the frame into records, in
// registration order. The result is sized to the frame's row count; readers
// stop early if a column yields fewer values.
func (c *Codec[R]) ReadAll(f *frame.Frame) ([]R, error) {
	out := make([]R, f.NumRows())
	for _, b := range c.bindings {
		if err := b.read(f, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ReadSelected decodes only the bindings at the given indices. Fields of
// unselected bindings keep their zero value.
func (c *Codec[R]) ReadSelected(f *frame.Frame, indices []int) ([]R, error) {
	out := make([]R, f.NumRows())
	for _, idx := range indices {
		if idx < 0 || idx >= len(c.bindings) {
			return nil, strataerrors.Newf(strataerrors.ErrorTypeOutOfRange,
				"binding index %d out of range [0, %d)", idx, len(c.bindings))
		}
		if err := c.bindings[idx].read(f, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// WriteAll emits one column per binding, in registration order, mapping each
// binding's accessor over every record.
func (c *Codec[R]) WriteAll(w *engine.Writer, recs []R) error {
	for _, b := range c.bindings {
		if err := b.write(w, recs); err != nil {
			return err
		}
	}
	return nil
}

// ColumnNames returns the bound column names in registration order.
func (c *Codec[R]) ColumnNames() []string {
	names := make([]string, 0, len(c.bindings))
	for _, b := range c.bindings {
		names = append(names, b.name)
	}
	return names
}

// ColumnTypes returns the bound column types in registration order.
func (c *Codec[R]) ColumnTypes() []engine.ColumnInfo {
	infos := make([]engine.ColumnInfo, 0, len(c.bindings))
	for _, b := range c.bindings {
		infos = append(infos, engine.ColumnInfo{Name: b.name, Type: b.ctype})
	}
	return infos
}

// FindColumnName resolves a field reference to its bound column name by a
// linear scan over the bindings. Unregistered references fail with a lookup
// error.
func (c *Codec[R]) FindColumnName(ref FieldRef[R]) (string, error) {
	for _, b := range c.bindings {
		if b.offset == ref.offset {
			return b.name, nil
		}
	}
	return "", strataerrors.Newf(strataerrors.ErrorTypeLookup,
		"field at offset %d not registered in codec for %s", ref.offset, reflect.TypeFor[R]())
}

// IndexOf returns the binding index of a column name, or a lookup error.
func (c *Codec[R]) IndexOf(name string) (int, error) {
	for i, b := range c.bindings {
		if b.name == name {
			return i, nil
		}
	}
	return 0, strataerrors.Newf(strataerrors.ErrorTypeLookup,
		"column %q not registered in codec for %s", name, reflect.TypeFor[R]())
}

// registry is the process-wide codec table, keyed by record type. Builders
// registered up front run lazily on first use; the built codec is never
// mutated afterwards.
var registry sync.Map // reflect.Type -> *registryEntry

type registryEntry struct {
	once  sync.Once
	build func() interface{}
	codec interface{}
}

// Register stores the codec builder for record type R. Registering the same
// type twice panics. Typically called from an init function or a package
// level var block.
func Register[R any](build func(*Codec[R])) {
	t := reflect.TypeFor[R]()
	e := &registryEntry{}
	e.build = func() interface{} {
		c := New[R]()
		build(c)
		return c
	}
	if _, loaded := registry.LoadOrStore(t, e); loaded {
		panic(fmt.Sprintf("codec: record type %s registered twice", t))
	}
}

// For returns the codec for record type R, building it on first use. Fails
// with a lookup error if R was never registered.
func For[R any]() (*Codec[R], error) {
	t := reflect.TypeFor[R]()
	v, ok := registry.Load(t)
	if !ok {
		return nil, strataerrors.Newf(strataerrors.ErrorTypeLookup,
			"no codec registered for record type %s", t)
	}
	e := v.(*registryEntry)
	e.once.Do(func() {
		e.codec = e.build()
	})
	return e.codec.(*Codec[R]), nil
}

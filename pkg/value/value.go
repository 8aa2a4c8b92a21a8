// Package value implements the tagged, JSON-compatible polymorphic value
// used on the wire and internally by the channel, publisher and receiver.
//
// A Value is a small sum type (null, bool, the usual numeric widths,
// string, array, map, or an opaque object handle) plus a reference
// discipline tag describing who owns the underlying storage. Array and Map
// are reference types in Go already, so a Value carries its discipline
// explicitly rather than copying: Ref produces a const-borrow view that
// shares the same backing Array/Map without allocating, and Writable
// reports false for a const-borrowed Value. The discipline is a tag only:
// the Array and *Map returned by a view's accessors can still be written
// through.
package value

import "fmt"

// Kind identifies which variant a Value currently holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindString
	KindArray
	KindMap
	KindObjectHandle
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	case KindObjectHandle:
		return "objectHandle"
	default:
		return "unknown"
	}
}

// Borrow describes who is responsible for the lifetime of a Value's
// underlying container storage (Array/Map backing). Owned and
// mutable-borrow values may be written through; const-borrow values may
// not.
type Borrow int

const (
	// Owned means this Value (or its originating owner) is responsible
	// for the storage; the usual case for freshly constructed values.
	Owned Borrow = iota
	// MutableBorrow aliases another owner's storage but is still
	// writable, e.g. a value handed down to a callee that is allowed to
	// mutate it in place.
	MutableBorrow
	// ConstBorrow aliases another owner's storage and may only be read.
	ConstBorrow
)

// ObjectHandle is an opaque reference to a host object. It is never
// marshaled to JSON directly -- the Publisher always wraps it in a
// {__QObject__: true, id, data?} map before it reaches the wire (see
// package message).
type ObjectHandle interface{}

// Value is the sum type described by spec.md section 3.
type Value struct {
	kind   Kind
	borrow Borrow

	b   bool
	i32 int32
	i64 int64
	f32 float32
	f64 float64
	s   string
	arr Array
	m   *Map
	obj ObjectHandle
}

// Null is the zero Value.
var Null = Value{kind: KindNull}

func NewBool(b bool) Value       { return Value{kind: KindBool, b: b} }
func NewInt32(i int32) Value     { return Value{kind: KindInt32, i32: i} }
func NewInt64(i int64) Value     { return Value{kind: KindInt64, i64: i} }
func NewFloat32(f float32) Value { return Value{kind: KindFloat32, f32: f} }
func NewFloat64(f float64) Value { return Value{kind: KindFloat64, f64: f} }
func NewString(s string) Value   { return Value{kind: KindString, s: s} }

// NewArray takes ownership of arr.
func NewArray(arr Array) Value { return Value{kind: KindArray, arr: arr} }

// NewMap takes ownership of m.
func NewMap(m *Map) Value { return Value{kind: KindMap, m: m} }

// NewObjectHandle wraps an opaque host object pointer.
func NewObjectHandle(o ObjectHandle) Value {
	if o == nil {
		return Null
	}
	return Value{kind: KindObjectHandle, obj: o}
}

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the Null variant.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Bool extracts the bool content, or dft if v is not a Bool.
func (v Value) Bool(dft bool) bool {
	if v.kind != KindBool {
		return dft
	}
	return v.b
}

// Int32 extracts an int32, widening/narrowing numeric kinds, or returns dft.
func (v Value) Int32(dft int32) int32 {
	switch v.kind {
	case KindInt32:
		return v.i32
	case KindInt64:
		return int32(v.i64)
	case KindFloat32:
		return int32(v.f32)
	case KindFloat64:
		return int32(v.f64)
	default:
		return dft
	}
}

// Int64 extracts an int64, widening narrower numeric kinds, or returns dft.
func (v Value) Int64(dft int64) int64 {
	switch v.kind {
	case KindInt32:
		return int64(v.i32)
	case KindInt64:
		return v.i64
	case KindFloat32:
		return int64(v.f32)
	case KindFloat64:
		return int64(v.f64)
	default:
		return dft
	}
}

// Float64 extracts a float64 from any numeric kind, or returns dft.
func (v Value) Float64(dft float64) float64 {
	switch v.kind {
	case KindInt32:
		return float64(v.i32)
	case KindInt64:
		return float64(v.i64)
	case KindFloat32:
		return float64(v.f32)
	case KindFloat64:
		return v.f64
	default:
		return dft
	}
}

// String extracts the string content, or dft if v is not a String.
func (v Value) String(dft string) string {
	if v.kind != KindString {
		return dft
	}
	return v.s
}

// Array extracts the Array content, or dft if v is not an Array.
func (v Value) Array(dft Array) Array {
	if v.kind != KindArray {
		return dft
	}
	return v.arr
}

// Map extracts the Map content, or dft if v is not a Map.
func (v Value) Map(dft *Map) *Map {
	if v.kind != KindMap {
		return dft
	}
	return v.m
}

// ObjectHandle extracts the wrapped host object pointer, or nil if v is not
// an ObjectHandle.
func (v Value) ObjectHandle() ObjectHandle {
	if v.kind != KindObjectHandle {
		return nil
	}
	return v.obj
}

// Borrow reports the reference discipline currently tagged on v.
func (v Value) Borrow() Borrow { return v.borrow }

// Ref returns a shallow const-borrow view of v: Array/Map content is
// aliased, not copied. Scalars have no storage to alias, so Ref on a
// scalar just flips the borrow tag for bookkeeping purposes.
func (v Value) Ref() Value {
	r := v
	r.borrow = ConstBorrow
	return r
}

// RefMut returns a shallow mutable-borrow view of v, aliasing the same
// underlying storage but still permitting writes through it.
func (v Value) RefMut() Value {
	r := v
	r.borrow = MutableBorrow
	return r
}

// Writable reports whether mutation through v is permitted by its borrow
// discipline: owned and mutable-borrow values are writable, const-borrow
// values are not.
func (v Value) Writable() bool { return v.borrow != ConstBorrow }

// Clone produces a fully owned, deep copy of v, detaching it from any
// storage it was aliasing.
func (v Value) Clone() Value {
	switch v.kind {
	case KindArray:
		cp := make(Array, len(v.arr))
		for i, e := range v.arr {
			cp[i] = e.Clone()
		}
		return Value{kind: KindArray, arr: cp}
	case KindMap:
		cp := NewOrderedMap()
		for _, k := range v.m.Keys() {
			mv, _ := v.m.Get(k)
			cp.Set(k, mv.Clone())
		}
		return Value{kind: KindMap, m: cp}
	default:
		r := v
		r.borrow = Owned
		return r
	}
}

// Equal reports deep structural equality, ignoring borrow discipline.
// Used by the round-trip property test (spec.md section 8).
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindInt32:
		return a.i32 == b.i32
	case KindInt64:
		return a.i64 == b.i64
	case KindFloat32:
		return a.f32 == b.f32
	case KindFloat64:
		return a.f64 == b.f64
	case KindString:
		return a.s == b.s
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindMap:
		ak, bk := a.m.Keys(), b.m.Keys()
		if len(ak) != len(bk) {
			return false
		}
		for _, k := range ak {
			av, aok := a.m.Get(k)
			bv, bok := b.m.Get(k)
			if aok != bok || !Equal(av, bv) {
				return false
			}
		}
		return true
	case KindObjectHandle:
		return a.obj == b.obj
	default:
		return false
	}
}

// GoString supports %#v-style debugging output without leaking internal
// fields.
func (v Value) GoString() string {
	return fmt.Sprintf("value.Value{kind:%s}", v.kind)
}

// Package meta declares the reflective interfaces a host embedder
// implements to expose its native objects to the bridge runtime: classes,
// properties, methods, enums, and the signal connect/disconnect primitive.
// The bridge core only ever consumes these interfaces -- it never
// constructs or reflects over host objects itself (spec.md section 1, "the
// host's own reflection provider").
package meta

import "github.com/cmguo/hybridge/pkg/value"

// Object is an opaque handle to a host-managed object. The core never
// dereferences it; it only uses it as a map key and as the payload of
// value.ObjectHandle.
type Object = value.ObjectHandle

// TypeCode identifies the static type of a method parameter, return value,
// or property for wire purposes. It mirrors value.Kind but is kept as a
// separate type since a host's meta-model may describe types the core
// never materializes a Value for (e.g. void returns).
type TypeCode int

const (
	TypeVoid TypeCode = iota
	TypeBool
	TypeInt32
	TypeInt64
	TypeFloat32
	TypeFloat64
	TypeString
	TypeArray
	TypeMap
	TypeObject
)

// Method describes one callable or signal entry of a MetaObject.
//
// MethodIndex 0 is reserved for the synthetic "destroyed" signal on every
// object (spec.md section 3): IsSignal() must be true and ParameterCount()
// must be 1 (the destroyed object itself).
type Method interface {
	Name() string
	IsValid() bool
	IsSignal() bool
	IsPublic() bool
	MethodIndex() int
	ReturnType() TypeCode
	ParameterCount() int
	ParameterType(index int) TypeCode
	ParameterName(index int) string

	// Invoke calls the underlying host method with already-coerced args and
	// delivers the result to respond, asynchronously or otherwise (spec.md
	// section 5: "InvokeMethod is asynchronous"). Returns false if the
	// host rejected the call outright (e.g. argument count mismatch at the
	// binding layer); the Publisher still replies Null in that case.
	Invoke(object Object, args value.Array, respond func(value.Value)) bool
}

// InvalidMethod is returned by a MetaObject when asked to resolve an
// out-of-range or unknown method/signal index, so that callers can branch
// on IsValid() without a nil check at every call site -- the Go analogue
// of the original's static EmptyMetaMethod sentinel
// (original_source/core/metaobject.h).
var InvalidMethod Method = invalidMethod{}

type invalidMethod struct{}

func (invalidMethod) Name() string                 { return "" }
func (invalidMethod) IsValid() bool                { return false }
func (invalidMethod) IsSignal() bool               { return false }
func (invalidMethod) IsPublic() bool               { return false }
func (invalidMethod) MethodIndex() int             { return -1 }
func (invalidMethod) ReturnType() TypeCode         { return TypeVoid }
func (invalidMethod) ParameterCount() int          { return 0 }
func (invalidMethod) ParameterType(int) TypeCode   { return TypeVoid }
func (invalidMethod) ParameterName(int) string     { return "" }
func (invalidMethod) Invoke(Object, value.Array, func(value.Value)) bool { return false }

// Property describes one readable/writable slot of a MetaObject.
//
// Property indices must be stable and dense within an object (spec.md
// section 3).
type Property interface {
	Name() string
	IsValid() bool
	Type() TypeCode
	IsConstant() bool
	PropertyIndex() int
	HasNotifySignal() bool
	NotifySignalIndex() int
	NotifySignalName() string
	Read(object Object) value.Value
	// Write attempts to coerce and store v into the property, returning
	// false on coercion/write failure (spec.md section 7,
	// "argument coercion failure").
	Write(object Object, v value.Value) bool
}

// Enum describes one named enumeration exposed by a class.
type Enum interface {
	Name() string
	KeyCount() int
	Key(index int) string
	Value(index int) int
}

// ConnectHandler receives a dispatched signal emission. object is the
// emitting object, signalIndex its method index, and args its argument
// list in declared-parameter order.
type ConnectHandler func(object Object, signalIndex int, args value.Array)

// Connection is the (source object, signal index, receiver, handler)
// quadruple of spec.md section 3. Its func-typed Handler makes it
// non-comparable in Go, which is why SignalHandler keeps it as an opaque
// token returned by MetaObject.Connect and only ever hands it back,
// unexamined, to MetaObject.Disconnect.
type Connection struct {
	Object      Object
	SignalIndex int
	Receiver    interface{}
	Handler     ConnectHandler
}

// MetaObject is the reflective descriptor for one host class, plus the
// connect/disconnect primitive used to subscribe to its signals. A host
// embedder supplies one MetaObject per distinct class (not per instance);
// Binding.MetaObject(object) resolves an instance to its class's
// MetaObject.
type MetaObject interface {
	ClassName() string

	PropertyCount() int
	Property(index int) Property

	MethodCount() int
	Method(index int) Method

	EnumeratorCount() int
	Enumerator(index int) Enum

	// Connect establishes a native subscription described by c.Object and
	// c.SignalIndex, invoking c.Handler whenever the signal fires, and
	// returns the Connection to hand back to Disconnect later. Returns
	// ok=false if the signal could not be connected.
	Connect(c Connection) (Connection, bool)

	// Disconnect tears down a subscription previously returned by
	// Connect.
	Disconnect(c Connection) bool
}

// Binding is the thin per-runtime seam the Publisher/Receiver use to
// resolve an Object to its MetaObject. It stands in for the host's own
// reflection provider (spec.md section 1, out of scope) -- an embedder
// implements it by keying off the object's dynamic type.
type Binding interface {
	MetaObject(object Object) MetaObject
}

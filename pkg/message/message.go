// Package message defines the wire envelope shared by every component:
// a value.Map with a mandatory "type" key and the fixed key vocabulary of
// spec.md section 3/6. It intentionally does not grow a generic envelope
// abstraction (no trace ids, no hop counts) -- the spec is explicit that
// the core "does not perform schema negotiation or versioning", so the
// vocabulary below is closed, not extensible.
package message

import "github.com/cmguo/hybridge/pkg/value"

// Type enumerates the fixed message kinds of spec.md section 6. The zero
// value, Invalid, is also what an unrecognized wire integer decodes to.
type Type int

const (
	Invalid Type = iota
	Signal
	PropertyUpdate
	Init
	Idle
	Debug
	InvokeMethod
	ConnectToSignal
	DisconnectFromSignal
	SetProperty
	Response
)

func (t Type) String() string {
	switch t {
	case Signal:
		return "Signal"
	case PropertyUpdate:
		return "PropertyUpdate"
	case Init:
		return "Init"
	case Idle:
		return "Idle"
	case Debug:
		return "Debug"
	case InvokeMethod:
		return "InvokeMethod"
	case ConnectToSignal:
		return "ConnectToSignal"
	case DisconnectFromSignal:
		return "DisconnectFromSignal"
	case SetProperty:
		return "SetProperty"
	case Response:
		return "Response"
	default:
		return "Invalid"
	}
}

// Key names the fixed vocabulary of spec.md section 3.
const (
	KeyType       = "type"
	KeyID         = "id"
	KeyData       = "data"
	KeyObject     = "object"
	KeyDestroyed  = "destroyed"
	KeySignal     = "signal"
	KeyMethod     = "method"
	KeyArgs       = "args"
	KeyProperty   = "property"
	KeyValue      = "value"
	KeySignals    = "signals"
	KeyMethods    = "methods"
	KeyProperties = "properties"
	KeyEnums      = "enums"
	KeyClass      = "class"
)

// KeyObjectSentinel is the boolean field marking a wrapped-object
// reference embedded in args/return values/property values
// ({__QObject__: true, id, data?}), spec.md section 6.
const KeyObjectSentinel = "__QObject__"

// Message is a Map with a mandatory KeyType entry. It is a thin alias, not
// a distinct struct, so Publisher/Receiver code can build messages with
// the same value.NewOrderedMap API used for every other Map in the
// system.
type Message = *value.Map

// New returns an empty Message tagged with the given Type.
func New(t Type) Message {
	m := value.NewOrderedMap()
	m.Set(KeyType, value.NewInt32(int32(t)))
	return m
}

// TypeOf extracts the message's type, returning Invalid if the type key
// is missing or out of the valid range (spec.md section 3: "Any
// unknown/invalid type is dropped with a warning").
func TypeOf(m Message) Type {
	v, ok := m.Get(KeyType)
	if !ok {
		return Invalid
	}
	n := v.Int32(int32(Invalid))
	if n < int32(Signal) || n > int32(Response) {
		return Invalid
	}
	return Type(n)
}

// ToWireValue wraps m as a value.Value so it can be passed through
// anything that speaks value.Value (JSON encode, a Transport payload
// mailbox in tests, etc.).
func ToWireValue(m Message) value.Value {
	return value.NewMap(m)
}

// FromWireValue extracts a Message from v, or nil if v is not a Map.
func FromWireValue(v value.Value) Message {
	return v.Map(nil)
}

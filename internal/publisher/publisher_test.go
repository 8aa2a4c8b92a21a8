package publisher

import (
	"testing"

	"github.com/cmguo/hybridge/internal/logging"
	"github.com/cmguo/hybridge/internal/signalhandler"
	"github.com/cmguo/hybridge/pkg/message"
	"github.com/cmguo/hybridge/pkg/meta"
	"github.com/cmguo/hybridge/pkg/value"
)

// fakeTransport records every message it was sent, for assertions.
type fakeTransport struct {
	sent []message.Message
}

func (t *fakeTransport) SendMessage(msg message.Message) {
	t.sent = append(t.sent, msg)
}

// fakeMethod describes one callable or signal.
type fakeMethod struct {
	name       string
	index      int
	isSignal   bool
	isPublic   bool
	paramTypes []meta.TypeCode
	invoke     func(object meta.Object, args value.Array, respond func(value.Value)) bool
}

func (m fakeMethod) Name() string             { return m.name }
func (m fakeMethod) IsValid() bool            { return true }
func (m fakeMethod) IsSignal() bool           { return m.isSignal }
func (m fakeMethod) IsPublic() bool           { return m.isPublic }
func (m fakeMethod) MethodIndex() int         { return m.index }
func (m fakeMethod) ReturnType() meta.TypeCode { return meta.TypeInt32 }
func (m fakeMethod) ParameterCount() int      { return len(m.paramTypes) }
func (m fakeMethod) ParameterType(i int) meta.TypeCode { return m.paramTypes[i] }
func (m fakeMethod) ParameterName(int) string { return "" }
func (m fakeMethod) Invoke(object meta.Object, args value.Array, respond func(value.Value)) bool {
	if m.invoke == nil {
		return false
	}
	return m.invoke(object, args, respond)
}

// fakeProperty is a read/write slot backed by a pointer to its current
// Value, with an optional notify signal index.
type fakeProperty struct {
	name        string
	index       int
	notifyIndex int
	hasNotify   bool
	store       *value.Value
}

func (p fakeProperty) Name() string         { return p.name }
func (p fakeProperty) IsValid() bool        { return true }
func (p fakeProperty) Type() meta.TypeCode  { return meta.TypeInt32 }
func (p fakeProperty) IsConstant() bool     { return false }
func (p fakeProperty) PropertyIndex() int   { return p.index }
func (p fakeProperty) HasNotifySignal() bool { return p.hasNotify }
func (p fakeProperty) NotifySignalIndex() int { return p.notifyIndex }
func (p fakeProperty) NotifySignalName() string { return p.name + "Changed" }
func (p fakeProperty) Read(meta.Object) value.Value { return *p.store }
func (p fakeProperty) Write(object meta.Object, v value.Value) bool {
	*p.store = v
	return true
}

type fakeMetaObject struct {
	className  string
	methods    map[int]fakeMethod
	properties map[int]fakeProperty
	enums      []meta.Enum
	connected  map[int]meta.Connection
}

func (mo *fakeMetaObject) ClassName() string  { return mo.className }
func (mo *fakeMetaObject) PropertyCount() int { return len(mo.properties) }
func (mo *fakeMetaObject) Property(i int) meta.Property {
	if p, ok := mo.properties[i]; ok {
		return p
	}
	return nil
}
func (mo *fakeMetaObject) MethodCount() int { return len(mo.methods) }
func (mo *fakeMetaObject) Method(i int) meta.Method {
	if m, ok := mo.methods[i]; ok {
		return m
	}
	return meta.InvalidMethod
}
func (mo *fakeMetaObject) EnumeratorCount() int       { return len(mo.enums) }
func (mo *fakeMetaObject) Enumerator(i int) meta.Enum { return mo.enums[i] }
func (mo *fakeMetaObject) Connect(c meta.Connection) (meta.Connection, bool) {
	if mo.connected == nil {
		mo.connected = make(map[int]meta.Connection)
	}
	mo.connected[c.SignalIndex] = c
	return c, true
}
func (mo *fakeMetaObject) Disconnect(c meta.Connection) bool {
	delete(mo.connected, c.SignalIndex)
	return true
}

type fakeBinding struct {
	objects map[meta.Object]*fakeMetaObject
}

func (b *fakeBinding) MetaObject(object meta.Object) meta.MetaObject {
	mo, ok := b.objects[object]
	if !ok {
		return nil
	}
	return mo
}

// fixture wires a real signalhandler.Handler to a real Publisher, exactly
// as pkg/channel will, so tests exercise the signalEmitted round trip
// rather than a mock of it.
type fixture struct {
	pub       *Publisher
	binding   *fakeBinding
	mo        *fakeMetaObject
	timers    int
	timerStop int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	x := int32(7)
	xVal := value.NewInt32(x)
	mo := &fakeMetaObject{
		className: "Foo",
		methods: map[int]fakeMethod{
			0: {name: "destroyed", index: 0, isSignal: true, paramTypes: []meta.TypeCode{meta.TypeObject}},
			2: {name: "bar", index: 2, isPublic: true, invoke: func(object meta.Object, args value.Array, respond func(value.Value)) bool {
				respond(value.NewInt32(42))
				return true
			}},
			3: {name: "xChanged", index: 3, isSignal: true, paramTypes: []meta.TypeCode{meta.TypeInt32}},
		},
		properties: map[int]fakeProperty{
			0: {name: "x", index: 0, notifyIndex: 3, hasNotify: true, store: &xVal},
		},
	}
	binding := &fakeBinding{objects: map[meta.Object]*fakeMetaObject{"o": mo}}

	f := &fixture{binding: binding, mo: mo}

	// SignalHandler needs a Dispatcher at construction time, but the
	// Publisher it should forward to can't be built without a Handler
	// already in hand; wire the back-reference in with SetDispatcher.
	sh := signalhandler.New(binding, nil, logging.NewNop())
	pub := New(binding, sh, func() string { return "uuid-1" },
		func(ms int) { f.timers++ },
		func() { f.timerStop++ },
		50, logging.NewNop())
	sh.SetDispatcher(pub)

	f.pub = pub
	return f
}

func TestInitHandshakeProducesClassInfo(t *testing.T) {
	f := newFixture(t)
	f.pub.RegisterObject("o", "o")
	tr := &fakeTransport{}

	msg := message.New(message.Init)
	msg.Set(message.KeyID, value.NewString("0"))
	f.pub.HandleMessage(msg, tr)

	if len(tr.sent) != 1 {
		t.Fatalf("expected exactly one response, got %d", len(tr.sent))
	}
	resp := tr.sent[0]
	if message.TypeOf(resp) != message.Response {
		t.Fatalf("response type = %v, want Response", message.TypeOf(resp))
	}
	idVal, _ := resp.Get(message.KeyID)
	if idVal.String("") != "0" {
		t.Errorf("response id = %q, want %q", idVal.String(""), "0")
	}

	data, _ := resp.Get(message.KeyData)
	dataMap := data.Map(nil)
	oInfo, ok := dataMap.Get("o")
	if !ok {
		t.Fatal("expected classinfo for object \"o\"")
	}
	className, _ := oInfo.Map(nil).Get(message.KeyClass)
	if className.String("") != "Foo" {
		t.Errorf("class = %q, want Foo", className.String(""))
	}
}

func TestInvokeMethodReturnsResult(t *testing.T) {
	f := newFixture(t)
	f.pub.RegisterObject("o", "o")
	tr := &fakeTransport{}

	msg := message.New(message.InvokeMethod)
	msg.Set(message.KeyID, value.NewString("1"))
	msg.Set(message.KeyObject, value.NewString("o"))
	msg.Set(message.KeyMethod, value.NewInt32(2))
	msg.Set(message.KeyArgs, value.NewArray(nil))
	f.pub.HandleMessage(msg, tr)

	if len(tr.sent) != 1 {
		t.Fatalf("expected one response, got %d", len(tr.sent))
	}
	data, _ := tr.sent[0].Get(message.KeyData)
	if data.Int32(0) != 42 {
		t.Errorf("response data = %v, want 42", data.Int32(0))
	}
}

func TestInvokeMethodOnSignalReturnsNull(t *testing.T) {
	f := newFixture(t)
	f.pub.RegisterObject("o", "o")
	tr := &fakeTransport{}

	msg := message.New(message.InvokeMethod)
	msg.Set(message.KeyID, value.NewString("1"))
	msg.Set(message.KeyObject, value.NewString("o"))
	msg.Set(message.KeyMethod, value.NewInt32(3)) // xChanged, a signal
	msg.Set(message.KeyArgs, value.NewArray(nil))
	f.pub.HandleMessage(msg, tr)

	data, _ := tr.sent[0].Get(message.KeyData)
	if !data.IsNull() {
		t.Errorf("invoking a signal method should reply Null, got %#v", data)
	}
}

func TestPropertyNotifyCoalescesUnderBlockUpdates(t *testing.T) {
	f := newFixture(t)
	f.pub.RegisterObject("o", "o")
	tr := &fakeTransport{}
	f.pub.AddTransport(tr)
	// Drive the Init handshake so propertyUpdatesInitialized flips and the
	// SignalHandler is actually connected to the notify signal.
	init := message.New(message.Init)
	init.Set(message.KeyID, value.NewString("0"))
	f.pub.HandleMessage(init, tr)
	tr.sent = nil

	f.pub.SetBlockUpdates(true)
	f.pub.SetClientIsIdle(true)

	f.pub.SignalEmitted("o", 3, value.Array{value.NewInt32(1)})
	f.pub.SignalEmitted("o", 3, value.Array{value.NewInt32(2)})
	f.pub.SignalEmitted("o", 3, value.Array{value.NewInt32(3)})

	if len(tr.sent) != 0 {
		t.Fatalf("expected no flush while blocked, got %d messages", len(tr.sent))
	}

	f.pub.SetBlockUpdates(false)

	if len(tr.sent) != 1 {
		t.Fatalf("expected exactly one coalesced PropertyUpdate, got %d", len(tr.sent))
	}
	if message.TypeOf(tr.sent[0]) != message.PropertyUpdate {
		t.Fatalf("message type = %v, want PropertyUpdate", message.TypeOf(tr.sent[0]))
	}
	data, _ := tr.sent[0].Get(message.KeyData)
	entries := data.Array(nil)
	if len(entries) != 1 {
		t.Fatalf("expected one object entry, got %d", len(entries))
	}
	entry := entries[0].Map(nil)
	signals, _ := entry.Get(message.KeySignals)
	sigArgs, _ := signals.Map(nil).Get("3")
	if sigArgs.Array(nil)[0].Int32(0) != 3 {
		t.Errorf("coalesced signal args = %v, want final value 3", sigArgs.Array(nil))
	}
}

func TestClassInfoExcludesNotifySignalsAndCollapsesOverloads(t *testing.T) {
	x := value.NewInt32(7)
	mo := &fakeMetaObject{
		className: "Multi",
		methods: map[int]fakeMethod{
			0: {name: "destroyed", index: 0, isSignal: true, paramTypes: []meta.TypeCode{meta.TypeObject}},
			1: {name: "xChanged", index: 1, isSignal: true, paramTypes: []meta.TypeCode{meta.TypeInt32}},
			2: {name: "bar", index: 2, isPublic: true},
			3: {name: "bar", index: 3, isPublic: true, paramTypes: []meta.TypeCode{meta.TypeInt32}},
			4: {name: "x", index: 4, isSignal: true}, // collides with the property name "x"
		},
		properties: map[int]fakeProperty{
			0: {name: "x", index: 0, notifyIndex: 1, hasNotify: true, store: &x},
		},
	}
	binding := &fakeBinding{objects: map[meta.Object]*fakeMetaObject{"o": mo}}
	sh := signalhandler.New(binding, nil, logging.NewNop())
	pub := New(binding, sh, func() string { return "uuid-1" }, func(int) {}, func() {}, 50, logging.NewNop())
	sh.SetDispatcher(pub)

	info := pub.classInfoForObject("o", nil)
	infoMap := info.Map(nil)

	signalsVal, _ := infoMap.Get(message.KeySignals)
	signals := signalsVal.Array(nil)
	if len(signals) != 1 {
		t.Fatalf("expected exactly one signal (destroyed only; xChanged and the x-colliding signal excluded), got %d: %#v", len(signals), signals)
	}
	if name := signals[0].Array(nil)[0].String(""); name != "destroyed" {
		t.Errorf("surviving signal = %q, want %q", name, "destroyed")
	}

	methodsVal, _ := infoMap.Get(message.KeyMethods)
	methods := methodsVal.Array(nil)
	if len(methods) != 1 {
		t.Fatalf("expected the \"bar\" overload collapsed to one entry, got %d: %#v", len(methods), methods)
	}
	if name := methods[0].Array(nil)[0].String(""); name != "bar" {
		t.Errorf("surviving method = %q, want %q", name, "bar")
	}
}

func TestDestroyedSignalPurgesRegisteredObject(t *testing.T) {
	f := newFixture(t)
	f.pub.RegisterObject("o", "o")
	tr := &fakeTransport{}
	f.pub.AddTransport(tr)
	init := message.New(message.Init)
	init.Set(message.KeyID, value.NewString("0"))
	f.pub.HandleMessage(init, tr)
	tr.sent = nil

	f.pub.SignalEmitted("o", 0, value.Array{value.NewObjectHandle("o")})

	if len(tr.sent) != 1 {
		t.Fatalf("expected one broadcast Signal message, got %d", len(tr.sent))
	}
	if message.TypeOf(tr.sent[0]) != message.Signal {
		t.Fatalf("message type = %v, want Signal", message.TypeOf(tr.sent[0]))
	}
	if _, ok := f.pub.resolveObject("o"); ok {
		t.Error("object \"o\" should have been purged after its destroyed signal fired")
	}
}

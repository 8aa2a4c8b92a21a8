// Package receiver implements the client-side complement of the bridge:
// it issues init/invoke/connect/disconnect/setProperty messages,
// correlates responses by id, materializes proxy objects on demand, and
// dispatches inbound signals onto locally registered handlers.
//
// Grounded on original_source/priv/receiver.{h,cpp}. Response correlation
// by a monotonically increasing request id additionally follows
// tenzoki-agen/cellorg/internal/client/broker.go's responseChans pattern.
package receiver

import (
	"strconv"

	"github.com/cmguo/hybridge/internal/logging"
	"github.com/cmguo/hybridge/pkg/message"
	"github.com/cmguo/hybridge/pkg/value"
)

// Transport is the minimal capability the Receiver needs from its
// connected peer. pkg/channel.Transport is a superset that also satisfies
// this interface structurally.
type Transport interface {
	SendMessage(msg message.Message)
}

// ProxyObject is an opaque, embedder-constructed stand-in for a host
// object materialized on the client. The Receiver never looks inside it;
// it only keys it by wire id and hands it to the embedder's hooks.
type ProxyObject = interface{}

// Connection is a retained (object id, signal index, handler) record; it
// is returned by ConnectToSignal and passed back to DisconnectFromSignal
// to identify the subscription to tear down.
type Connection struct {
	ObjectID    string
	SignalIndex int
	Handler     func(args value.Array)

	token int64
}

// Receiver is the client-side state owner described by spec.md section
// 4.4: one Receiver per connected Transport (spec.md section 4.5), so
// unlike the original this never has to track which transport a pending
// response belongs to.
type Receiver struct {
	transport Transport
	log       *logging.Logger

	// createProxy asks the embedder to build a proxy object bound to id
	// from its class descriptor.
	createProxy func(id string, classinfo value.Value) ProxyObject

	// applyUpdate hands a PropertyUpdate entry's decoded signals/properties
	// to the embedder so it can update proxy-cached state and fire local
	// notify callbacks. The exact proxy-cache shape is left to the client
	// implementor (spec.md section 9, Open Questions).
	applyUpdate func(proxy ProxyObject, signals map[int]value.Array, properties map[int]value.Value)

	objects     map[string]ProxyObject
	responses   map[string]func(value.Value)
	connections []Connection
	connTokens  int64
	msgID       int64
}

// New builds a Receiver bound to one transport.
func New(
	transport Transport,
	createProxy func(id string, classinfo value.Value) ProxyObject,
	applyUpdate func(proxy ProxyObject, signals map[int]value.Array, properties map[int]value.Value),
	log *logging.Logger,
) *Receiver {
	if log == nil {
		log = logging.NewNop()
	}
	return &Receiver{
		transport:   transport,
		createProxy: createProxy,
		applyUpdate: applyUpdate,
		log:         log,
		objects:     make(map[string]ProxyObject),
		responses:   make(map[string]func(value.Value)),
	}
}

// Object returns the materialized proxy for id, if any.
func (r *Receiver) Object(id string) (ProxyObject, bool) {
	p, ok := r.objects[id]
	return p, ok
}

// SendMessage assigns a fresh correlation id, registers continuation (if
// non-nil) to run when the matching Response arrives, and sends msg.
func (r *Receiver) SendMessage(msg message.Message, continuation func(value.Value)) {
	r.msgID++
	id := strconv.FormatInt(r.msgID, 10)
	msg.Set(message.KeyID, value.NewString(id))
	if continuation != nil {
		r.responses[id] = continuation
	}
	r.transport.SendMessage(msg)
}

// Init sends the handshake message and, once the server replies with
// {id -> classInfo}, materializes a proxy for every entry and invokes
// response with the resolved id->proxy map.
func (r *Receiver) Init(response func(map[string]ProxyObject)) {
	r.SendMessage(message.New(message.Init), func(data value.Value) {
		result := make(map[string]ProxyObject)
		m := data.Map(nil)
		if m != nil {
			for _, id := range m.Keys() {
				classinfo, _ := m.Get(id)
				// Splice the id into the entry so it has the same
				// {id, data} shape as a wrapped-object reference, and
				// unwrapObject can treat both uniformly.
				synthetic := value.NewOrderedMap()
				synthetic.Set(message.KeyID, value.NewString(id))
				synthetic.Set(message.KeyData, classinfo)
				result[id] = r.unwrapObject(value.NewMap(synthetic))
			}
		}
		if response != nil {
			response(result)
		}
	})
}

// InvokeMethod calls a method on the proxy bound to objectID. If the
// server's reply is a wrapped-object reference, it is unwrapped into a
// proxy before response is invoked.
func (r *Receiver) InvokeMethod(objectID string, methodIndex int, args value.Array, response func(value.Value)) {
	msg := message.New(message.InvokeMethod)
	msg.Set(message.KeyObject, value.NewString(objectID))
	msg.Set(message.KeyMethod, value.NewInt32(int32(methodIndex)))
	msg.Set(message.KeyArgs, value.NewArray(args))
	r.SendMessage(msg, func(data value.Value) {
		if response != nil {
			response(r.maybeUnwrap(data))
		}
	})
}

// ConnectToSignal forwards a ConnectToSignal control message (no
// response expected) and retains the subscription locally so inbound
// Signal messages find their handler.
func (r *Receiver) ConnectToSignal(objectID string, signalIndex int, handler func(args value.Array)) Connection {
	r.connTokens++
	c := Connection{ObjectID: objectID, SignalIndex: signalIndex, Handler: handler, token: r.connTokens}
	r.connections = append(r.connections, c)

	msg := message.New(message.ConnectToSignal)
	msg.Set(message.KeyObject, value.NewString(objectID))
	msg.Set(message.KeySignal, value.NewInt32(int32(signalIndex)))
	r.transport.SendMessage(msg)
	return c
}

// DisconnectFromSignal forwards a DisconnectFromSignal control message and
// drops the retained subscription.
func (r *Receiver) DisconnectFromSignal(c Connection) {
	for i, e := range r.connections {
		if e.token == c.token {
			r.connections = append(r.connections[:i], r.connections[i+1:]...)
			break
		}
	}

	msg := message.New(message.DisconnectFromSignal)
	msg.Set(message.KeyObject, value.NewString(c.ObjectID))
	msg.Set(message.KeySignal, value.NewInt32(int32(c.SignalIndex)))
	r.transport.SendMessage(msg)
}

// SetProperty sends a SetProperty control message; the server does not
// reply.
func (r *Receiver) SetProperty(objectID string, propertyIndex int, v value.Value) {
	msg := message.New(message.SetProperty)
	msg.Set(message.KeyObject, value.NewString(objectID))
	msg.Set(message.KeyProperty, value.NewInt32(int32(propertyIndex)))
	msg.Set(message.KeyValue, v)
	r.transport.SendMessage(msg)
}

// SendIdle declares the client has drained the previous property-update
// batch and is ready for the next (spec.md section 6).
func (r *Receiver) SendIdle() {
	r.transport.SendMessage(message.New(message.Idle))
}

// HandleMessage dispatches one inbound message by type (spec.md section
// 4.4).
func (r *Receiver) HandleMessage(msg message.Message) {
	switch message.TypeOf(msg) {
	case message.Response:
		r.handleResponse(msg)
	case message.Signal:
		r.handleSignal(msg)
	case message.PropertyUpdate:
		r.handlePropertyUpdate(msg)
	default:
		r.log.Warn("receiver: dropping message of unexpected type")
	}
}

func (r *Receiver) handleResponse(msg message.Message) {
	idVal, ok := msg.Get(message.KeyID)
	if !ok {
		r.log.Warn("receiver: Response message missing id")
		return
	}
	id := idVal.String("")
	cont, ok := r.responses[id]
	if !ok {
		r.log.Warn("receiver: response for unknown or already-resolved request id", logging.String("id", id))
		return
	}
	delete(r.responses, id)
	data, _ := msg.Get(message.KeyData)
	cont(data)
}

func (r *Receiver) handleSignal(msg message.Message) {
	objVal, ok := msg.Get(message.KeyObject)
	if !ok {
		r.log.Warn("receiver: Signal message missing object")
		return
	}
	objID := objVal.String("")
	sigVal, _ := msg.Get(message.KeySignal)
	signalIndex := int(sigVal.Int32(0))
	argsVal, _ := msg.Get(message.KeyArgs)
	args := argsVal.Array(nil)

	unwrapped := make(value.Array, len(args))
	for i, a := range args {
		unwrapped[i] = r.maybeUnwrap(a)
	}

	for _, c := range r.connections {
		if c.ObjectID == objID && c.SignalIndex == signalIndex {
			c.Handler(unwrapped)
		}
	}
}

func (r *Receiver) handlePropertyUpdate(msg message.Message) {
	dataVal, _ := msg.Get(message.KeyData)
	for _, entryVal := range dataVal.Array(nil) {
		r.applyPropertyUpdateEntry(entryVal)
	}
}

func (r *Receiver) applyPropertyUpdateEntry(entryVal value.Value) {
	entry := entryVal.Map(nil)
	if entry == nil {
		return
	}
	objIDVal, ok := entry.Get(message.KeyObject)
	if !ok {
		return
	}
	objID := objIDVal.String("")
	proxy, ok := r.objects[objID]
	if !ok {
		r.log.Warn("receiver: PropertyUpdate for unknown object", logging.String("object", objID))
		return
	}

	signals := make(map[int]value.Array)
	if signalsVal, ok := entry.Get(message.KeySignals); ok {
		if sm := signalsVal.Map(nil); sm != nil {
			for _, k := range sm.Keys() {
				v, _ := sm.Get(k)
				idx, _ := strconv.Atoi(k)
				signals[idx] = v.Array(nil)
			}
		}
	}

	properties := make(map[int]value.Value)
	if propsVal, ok := entry.Get(message.KeyProperties); ok {
		if pm := propsVal.Map(nil); pm != nil {
			for _, k := range pm.Keys() {
				v, _ := pm.Get(k)
				idx, _ := strconv.Atoi(k)
				properties[idx] = r.maybeUnwrap(v)
			}
		}
	}

	if r.applyUpdate != nil {
		r.applyUpdate(proxy, signals, properties)
	}
}

// maybeUnwrap replaces a {__QObject__: true, ...} Value with an
// ObjectHandle wrapping its materialized proxy; any other Value passes
// through unchanged.
func (r *Receiver) maybeUnwrap(v value.Value) value.Value {
	m := v.Map(nil)
	if m == nil {
		return v
	}
	sentinel, ok := m.Get(message.KeyObjectSentinel)
	if !ok || !sentinel.Bool(false) {
		return v
	}
	return value.NewObjectHandle(r.unwrapObject(v))
}

// unwrapObject resolves a {id, data?} wire reference to its proxy,
// creating and registering one (and auto-subscribing to its destroyed
// signal, index 0) the first time this id is seen.
func (r *Receiver) unwrapObject(data value.Value) ProxyObject {
	m := data.Map(nil)
	if m == nil {
		return nil
	}
	idVal, ok := m.Get(message.KeyID)
	if !ok {
		r.log.Warn("receiver: object reference missing id")
		return nil
	}
	id := idVal.String("")
	if proxy, ok := r.objects[id]; ok {
		return proxy
	}

	classinfo, _ := m.Get(message.KeyData)
	proxy := r.createProxy(id, classinfo)
	r.objects[id] = proxy
	r.ConnectToSignal(id, 0, func(value.Array) {
		delete(r.objects, id)
	})
	return proxy
}

// Package publisher implements the server-side half of the bridge: the
// state machine that tracks registered and auto-wrapped objects, batches
// property updates against client idleness, multiplexes them across
// transports with per-transport visibility, resolves object references
// across messages, and dispatches method invocations including
// asynchronous responses.
//
// Grounded on original_source/priv/publisher.{h,cpp}; the wire-message
// dispatch-by-type shape additionally follows
// tenzoki-agen/cellorg/internal/broker/service.go's handleRequest switch.
package publisher

import (
	"strconv"

	"github.com/cmguo/hybridge/internal/logging"
	"github.com/cmguo/hybridge/pkg/message"
	"github.com/cmguo/hybridge/pkg/meta"
	"github.com/cmguo/hybridge/pkg/value"
)

// Transport is the minimal capability the Publisher needs from a
// connected peer. pkg/channel.Transport is a superset that also satisfies
// this interface structurally.
type Transport interface {
	SendMessage(msg message.Message)
}

// SignalHandler is the fan-in dispatcher capability the Publisher drives;
// internal/signalhandler.Handler satisfies it.
type SignalHandler interface {
	ConnectTo(object meta.Object, signalIndex int)
	DisconnectFrom(object meta.Object, signalIndex int)
	Remove(object meta.Object)
}

type wrappedObject struct {
	object     meta.Object
	classinfo  value.Value
	transports []Transport
}

// Publisher is the server-side state owner described by spec.md section
// 4.3.
type Publisher struct {
	binding       meta.Binding
	signalHandler SignalHandler
	idgen         func() string
	startTimer    func(ms int)
	stopTimer     func()
	log           *logging.Logger
	intervalMS    int

	registeredObjects   map[string]meta.Object
	registeredObjectIds map[meta.Object]string
	registeredOrder     []string

	wrappedObjects   map[string]*wrappedObject
	wrappedObjectIds map[meta.Object]string

	transportedWrappedObjects map[Transport]map[string]bool

	// signalToPropertyMap[object][signalIndex] is the set of property
	// indices whose notify signal is signalIndex.
	signalToPropertyMap map[meta.Object]map[int]map[int]bool

	pendingPropertyUpdates  map[meta.Object]map[int]value.Array
	pendingPropertyUpdates2 map[meta.Object]map[int]bool

	clientIsIdle               bool
	blockUpdates               bool
	propertyUpdatesInitialized bool

	// transports holds every transport currently connected to the
	// channel, used both as the broadcast set for registered-object
	// signals and as the final fallback when wrapResult has no narrower
	// transport scope to inherit.
	transports []Transport
}

// New builds a Publisher. idgen mints ids for newly wrapped objects;
// startTimer/stopTimer are the embedder's single periodic-timer hook
// (spec.md section 4.5); intervalMS is the property-update coalescing
// window (spec.md section 6, PROPERTY_UPDATE_INTERVAL).
func New(binding meta.Binding, sh SignalHandler, idgen func() string, startTimer func(ms int), stopTimer func(), intervalMS int, log *logging.Logger) *Publisher {
	if log == nil {
		log = logging.NewNop()
	}
	return &Publisher{
		binding:                   binding,
		signalHandler:             sh,
		idgen:                     idgen,
		startTimer:                startTimer,
		stopTimer:                 stopTimer,
		intervalMS:                intervalMS,
		log:                       log,
		registeredObjects:         make(map[string]meta.Object),
		registeredObjectIds:       make(map[meta.Object]string),
		wrappedObjects:            make(map[string]*wrappedObject),
		wrappedObjectIds:          make(map[meta.Object]string),
		transportedWrappedObjects: make(map[Transport]map[string]bool),
		signalToPropertyMap:       make(map[meta.Object]map[int]map[int]bool),
		pendingPropertyUpdates:    make(map[meta.Object]map[int]value.Array),
		pendingPropertyUpdates2:   make(map[meta.Object]map[int]bool),
	}
}

// AddTransport attaches a newly connected transport to the broadcast set.
func (p *Publisher) AddTransport(t Transport) {
	p.transports = append(p.transports, t)
}

// RegisterObject publishes object under the embedder-chosen id.
func (p *Publisher) RegisterObject(id string, object meta.Object) {
	p.registeredObjects[id] = object
	p.registeredObjectIds[object] = id
	p.registeredOrder = append(p.registeredOrder, id)

	if p.propertyUpdatesInitialized {
		p.log.Warn("publisher: object registered after property updates were initialized; existing clients will not see it",
			logging.String("object", id))
		info := p.classInfoForObject(object, nil)
		p.initializePropertyUpdates(object, info)
	}
}

// classInfoForObject walks object's properties and methods through the
// host meta-model, producing the classinfo Map described by spec.md
// section 4.3.
func (p *Publisher) classInfoForObject(object meta.Object, transport Transport) value.Value {
	mo := p.binding.MetaObject(object)
	if mo == nil {
		return value.Null
	}
	selfID := p.idFor(object)

	// identifiers is the single shared name set overload collapsing walks:
	// seeded with property names, then grown as signals and methods are
	// visited in index order, so a signal or method colliding with a
	// property name or an earlier signal/method is collapsed too.
	identifiers := make(map[string]bool)
	notifySignalIndexes := make(map[int]bool)

	var properties value.Array
	for i := 0; i < mo.PropertyCount(); i++ {
		prop := mo.Property(i)
		if !prop.IsValid() {
			continue
		}
		identifiers[prop.Name()] = true
		var signalInfo value.Value
		switch {
		case prop.IsConstant() || !prop.HasNotifySignal():
			signalInfo = value.NewArray(nil)
		case prop.NotifySignalName() == prop.Name()+"Changed":
			// Wire-size optimization: both sides must derive the signal
			// name from the property name identically (spec.md section 9).
			signalInfo = value.NewArray(value.Array{value.NewInt32(1), value.NewInt32(int32(prop.NotifySignalIndex()))})
			notifySignalIndexes[prop.NotifySignalIndex()] = true
		default:
			signalInfo = value.NewArray(value.Array{value.NewString(prop.NotifySignalName()), value.NewInt32(int32(prop.NotifySignalIndex()))})
			notifySignalIndexes[prop.NotifySignalIndex()] = true
		}
		current := p.wrapResult(prop.Read(object), transport, selfID)
		properties = append(properties, value.NewArray(value.Array{
			value.NewInt32(int32(prop.PropertyIndex())),
			value.NewString(prop.Name()),
			signalInfo,
			current,
		}))
	}

	var signals value.Array
	var methods value.Array
	for i := 0; i < mo.MethodCount(); i++ {
		m := mo.Method(i)
		if !m.IsValid() {
			continue
		}
		// A property's own notify signal is derivable from its signalInfo
		// entry above; it never also appears in the signals array.
		if m.IsSignal() && notifySignalIndexes[m.MethodIndex()] {
			continue
		}
		// Overload collapsing: clients can call only one, and a name
		// already claimed by a property or an earlier signal/method wins.
		if identifiers[m.Name()] {
			continue
		}
		identifiers[m.Name()] = true
		entry := methodEntry(m)
		if m.IsSignal() {
			signals = append(signals, entry)
			continue
		}
		methods = append(methods, entry)
	}

	enums := value.NewOrderedMap()
	for i := 0; i < mo.EnumeratorCount(); i++ {
		e := mo.Enumerator(i)
		keys := value.NewOrderedMap()
		for k := 0; k < e.KeyCount(); k++ {
			keys.Set(e.Key(k), value.NewInt32(int32(e.Value(k))))
		}
		enums.Set(e.Name(), value.NewMap(keys))
	}

	result := value.NewOrderedMap()
	result.Set(message.KeyClass, value.NewString(mo.ClassName()))
	result.Set(message.KeySignals, value.NewArray(signals))
	result.Set(message.KeyMethods, value.NewArray(methods))
	result.Set(message.KeyProperties, value.NewArray(properties))
	result.Set(message.KeyEnums, value.NewMap(enums))
	return value.NewMap(result)
}

func methodEntry(m meta.Method) value.Value {
	paramTypes := make(value.Array, m.ParameterCount())
	paramNames := make(value.Array, m.ParameterCount())
	for i := 0; i < m.ParameterCount(); i++ {
		paramTypes[i] = value.NewInt32(int32(m.ParameterType(i)))
		paramNames[i] = value.NewString(m.ParameterName(i))
	}
	return value.NewArray(value.Array{
		value.NewString(m.Name()),
		value.NewInt32(int32(m.MethodIndex())),
		value.NewInt32(int32(m.ReturnType())),
		value.NewArray(paramTypes),
		value.NewArray(paramNames),
	})
}

// initializePropertyUpdates connects the SignalHandler to every notify
// signal object exposes (plus the synthetic destroyed signal, index 0)
// and records which property indices ride along with each signal.
func (p *Publisher) initializePropertyUpdates(object meta.Object, info value.Value) {
	infoMap := info.Map(nil)
	if infoMap != nil {
		propsVal, _ := infoMap.Get(message.KeyProperties)
		for _, entry := range propsVal.Array(nil) {
			fields := entry.Array(nil)
			if len(fields) < 4 {
				continue
			}
			signalInfo := fields[2].Array(nil)
			if len(signalInfo) == 0 {
				continue
			}
			signalIndex := int(signalInfo[1].Int32(0))
			propIndex := int(fields[0].Int32(0))

			p.signalHandler.ConnectTo(object, signalIndex)

			bySignal := p.signalToPropertyMap[object]
			if bySignal == nil {
				bySignal = make(map[int]map[int]bool)
				p.signalToPropertyMap[object] = bySignal
			}
			if bySignal[signalIndex] == nil {
				bySignal[signalIndex] = make(map[int]bool)
			}
			bySignal[signalIndex][propIndex] = true
		}
	}
	p.signalHandler.ConnectTo(object, 0)
}

// InitializeClient produces classinfo for every registered object and, on
// the very first call across the Publisher's lifetime, wires up property
// update subscriptions for all of them.
func (p *Publisher) InitializeClient(transport Transport) value.Value {
	first := !p.propertyUpdatesInitialized
	result := value.NewOrderedMap()
	for _, id := range p.registeredOrder {
		object := p.registeredObjects[id]
		info := p.classInfoForObject(object, transport)
		result.Set(id, info)
		if first {
			p.initializePropertyUpdates(object, info)
		}
	}
	p.propertyUpdatesInitialized = true
	return value.NewMap(result)
}

// HandleMessage dispatches one inbound message by type (spec.md section
// 4.3).
func (p *Publisher) HandleMessage(msg message.Message, transport Transport) {
	switch message.TypeOf(msg) {
	case message.Idle:
		p.SetClientIsIdle(true)

	case message.Init:
		idVal, ok := msg.Get(message.KeyID)
		if !ok {
			p.log.Warn("publisher: Init message missing id")
			return
		}
		resp := message.New(message.Response)
		resp.Set(message.KeyID, idVal)
		resp.Set(message.KeyData, p.InitializeClient(transport))
		transport.SendMessage(resp)

	case message.Debug:
		data, _ := msg.Get(message.KeyData)
		text, _ := value.ToJSON(data)
		p.log.Debug("publisher: client debug message", logging.String("data", text))

	case message.Invalid:
		p.log.Warn("publisher: dropping message of unknown or invalid type")

	default:
		objVal, ok := msg.Get(message.KeyObject)
		if !ok {
			p.log.Warn("publisher: message missing object field")
			return
		}
		objID := objVal.String("")
		object, ok := p.resolveObject(objID)
		if !ok {
			p.log.Warn("publisher: unknown object reference", logging.String("object", objID))
			return
		}
		p.handleObjectMessage(msg, object, objID, transport)
	}
}

func (p *Publisher) handleObjectMessage(msg message.Message, object meta.Object, objID string, transport Transport) {
	switch message.TypeOf(msg) {
	case message.InvokeMethod:
		idVal, ok := msg.Get(message.KeyID)
		if !ok {
			p.log.Warn("publisher: InvokeMethod message missing id")
			return
		}
		methodVal, _ := msg.Get(message.KeyMethod)
		argsVal, _ := msg.Get(message.KeyArgs)
		p.invokeMethod(object, int(methodVal.Int32(0)), argsVal.Array(nil), func(result value.Value) {
			resp := message.New(message.Response)
			resp.Set(message.KeyID, idVal)
			resp.Set(message.KeyData, p.wrapResult(result, transport, objID))
			transport.SendMessage(resp)
		})

	case message.ConnectToSignal:
		sigVal, _ := msg.Get(message.KeySignal)
		p.signalHandler.ConnectTo(object, int(sigVal.Int32(0)))

	case message.DisconnectFromSignal:
		sigVal, _ := msg.Get(message.KeySignal)
		p.signalHandler.DisconnectFrom(object, int(sigVal.Int32(0)))

	case message.SetProperty:
		propVal, _ := msg.Get(message.KeyProperty)
		valVal, _ := msg.Get(message.KeyValue)
		p.setProperty(object, int(propVal.Int32(0)), valVal)

	default:
		p.log.Warn("publisher: unhandled message type for object", logging.String("object", objID))
	}
}

func (p *Publisher) resolveObject(id string) (meta.Object, bool) {
	if obj, ok := p.registeredObjects[id]; ok {
		return obj, true
	}
	if wo, ok := p.wrappedObjects[id]; ok {
		return wo.object, true
	}
	return nil, false
}

// invokeMethod resolves and calls a method, special-casing "deleteLater"
// and rejecting invalid/non-public/signal targets (spec.md section 4.3 and
// 7).
func (p *Publisher) invokeMethod(object meta.Object, methodIndex int, args value.Array, reply func(value.Value)) {
	mo := p.binding.MetaObject(object)
	if mo == nil {
		reply(value.Null)
		return
	}
	m := mo.Method(methodIndex)

	// deleteLater routes to deleteWrappedObject instead of the meta-method
	// table; preserve the name exactly (spec.md section 9).
	if m.Name() == "deleteLater" {
		p.deleteWrappedObject(object)
		reply(value.Null)
		return
	}

	if !m.IsValid() || !m.IsPublic() || m.IsSignal() {
		p.log.Warn("publisher: invokeMethod target is invalid, non-public, or a signal",
			logging.String("class", mo.ClassName()), logging.Int("method", methodIndex))
		reply(value.Null)
		return
	}

	if len(args) > m.ParameterCount() {
		p.log.Warn("publisher: excess arguments to invokeMethod; truncating",
			logging.String("method", m.Name()), logging.Int("got", len(args)), logging.Int("want", m.ParameterCount()))
		args = args[:m.ParameterCount()]
	}

	coerced := make(value.Array, len(args))
	for i, a := range args {
		coerced[i] = p.toVariant(a, m.ParameterType(i))
	}

	if ok := m.Invoke(object, coerced, reply); !ok {
		reply(value.Null)
	}
}

func (p *Publisher) setProperty(object meta.Object, propertyIndex int, v value.Value) {
	mo := p.binding.MetaObject(object)
	if mo == nil {
		return
	}
	prop := mo.Property(propertyIndex)
	if !prop.IsValid() {
		p.log.Warn("publisher: setProperty on invalid property index", logging.Int("property", propertyIndex))
		return
	}
	prop.Write(object, p.toVariant(v, prop.Type()))
}

// toVariant resolves an ObjectHandle-typed argument/property value from
// its wire {__QObject__, id} form; every other target type passes the
// value through unchanged, since the Value already self-describes its
// kind and the concrete meta-property owns its own narrower coercion.
func (p *Publisher) toVariant(v value.Value, targetType meta.TypeCode) value.Value {
	if targetType != meta.TypeObject {
		return v
	}
	m := v.Map(nil)
	if m == nil {
		p.log.Warn("publisher: expected an object reference value for an ObjectHandle target")
		return v
	}
	idVal, ok := m.Get(message.KeyID)
	if !ok {
		return v
	}
	id := idVal.String("")
	if wo, ok := p.wrappedObjects[id]; ok {
		return value.NewObjectHandle(wo.object)
	}
	if obj, ok := p.registeredObjects[id]; ok {
		return value.NewObjectHandle(obj)
	}
	p.log.Warn("publisher: toVariant could not resolve object reference", logging.String("object", id))
	return v
}

// SignalEmitted is the signalhandler.Dispatcher entry point: every signal
// that survived the SignalHandler's connected-or-drop check arrives here.
func (p *Publisher) SignalEmitted(object meta.Object, signalIndex int, args value.Array) {
	transports := p.liveTransportsFor(object)
	if len(transports) == 0 {
		if signalIndex == 0 {
			p.objectDestroyed(object)
		}
		return
	}

	if !p.isNotifySignal(object, signalIndex) {
		id := p.idFor(object)
		msg := message.New(message.Signal)
		msg.Set(message.KeyObject, value.NewString(id))
		msg.Set(message.KeySignal, value.NewInt32(int32(signalIndex)))
		msg.Set(message.KeyArgs, value.NewArray(p.wrapList(args, nil, id)))
		for _, t := range transports {
			t.SendMessage(msg)
		}
		if signalIndex == 0 {
			p.objectDestroyed(object)
		}
		return
	}

	bySignal := p.pendingPropertyUpdates[object]
	if bySignal == nil {
		bySignal = make(map[int]value.Array)
		p.pendingPropertyUpdates[object] = bySignal
	}
	bySignal[signalIndex] = args
	if p.clientIsIdle && !p.blockUpdates {
		p.startTimer(p.intervalMS)
	}
}

// PropertyChanged is the direct-change path for a property whose value
// changed without going through a notify signal (spec.md section 4.3).
func (p *Publisher) PropertyChanged(object meta.Object, propertyIndex int) {
	set := p.pendingPropertyUpdates2[object]
	if set == nil {
		set = make(map[int]bool)
		p.pendingPropertyUpdates2[object] = set
	}
	set[propertyIndex] = true
	if p.clientIsIdle && !p.blockUpdates {
		p.startTimer(p.intervalMS)
	}
}

// FlushPendingPropertyUpdates drains pendingPropertyUpdates and
// pendingPropertyUpdates2 into PropertyUpdate messages, split between a
// single broadcast (registered objects) and one message per transport
// (wrapped objects). Invoked from the timer tick and from
// SetBlockUpdates(false).
func (p *Publisher) FlushPendingPropertyUpdates() {
	if p.blockUpdates || !p.clientIsIdle {
		return
	}
	if len(p.pendingPropertyUpdates) == 0 && len(p.pendingPropertyUpdates2) == 0 {
		return
	}

	var broadcastEntries value.Array
	perTransport := make(map[Transport]value.Array)

	addEntry := func(object meta.Object, entry value.Value) {
		if p.isWrapped(object) {
			for _, t := range p.liveTransportsFor(object) {
				perTransport[t] = append(perTransport[t], entry)
			}
			return
		}
		broadcastEntries = append(broadcastEntries, entry)
	}

	for object, bySignal := range p.pendingPropertyUpdates {
		mo := p.binding.MetaObject(object)
		id := p.idFor(object)
		signalsMap := value.NewOrderedMap()
		propsMap := value.NewOrderedMap()
		seenProps := make(map[int]bool)
		for signalIndex, args := range bySignal {
			signalsMap.Set(strconv.Itoa(signalIndex), value.NewArray(args))
			for propIndex := range p.signalToPropertyMap[object][signalIndex] {
				if seenProps[propIndex] || mo == nil {
					continue
				}
				seenProps[propIndex] = true
				propsMap.Set(strconv.Itoa(propIndex), p.wrapResult(mo.Property(propIndex).Read(object), nil, id))
			}
		}
		entry := value.NewOrderedMap()
		entry.Set(message.KeyObject, value.NewString(id))
		entry.Set(message.KeySignals, value.NewMap(signalsMap))
		entry.Set(message.KeyProperties, value.NewMap(propsMap))
		addEntry(object, value.NewMap(entry))
	}
	p.pendingPropertyUpdates = make(map[meta.Object]map[int]value.Array)

	for object, props := range p.pendingPropertyUpdates2 {
		mo := p.binding.MetaObject(object)
		id := p.idFor(object)
		propsMap := value.NewOrderedMap()
		for propIndex := range props {
			if mo == nil {
				continue
			}
			propsMap.Set(strconv.Itoa(propIndex), p.wrapResult(mo.Property(propIndex).Read(object), nil, id))
		}
		entry := value.NewOrderedMap()
		entry.Set(message.KeyObject, value.NewString(id))
		entry.Set(message.KeyProperties, value.NewMap(propsMap))
		addEntry(object, value.NewMap(entry))
	}
	p.pendingPropertyUpdates2 = make(map[meta.Object]map[int]bool)

	didBroadcast := false
	if len(broadcastEntries) > 0 {
		msg := message.New(message.PropertyUpdate)
		msg.Set(message.KeyData, value.NewArray(broadcastEntries))
		for _, t := range p.transports {
			t.SendMessage(msg)
		}
		didBroadcast = true
	}
	for t, entries := range perTransport {
		msg := message.New(message.PropertyUpdate)
		msg.Set(message.KeyData, value.NewArray(entries))
		t.SendMessage(msg)
	}

	if didBroadcast {
		p.clientIsIdle = false
	}
}

// objectDestroyed removes object from whichever population it belongs to,
// drops its SignalHandler subscriptions and pending updates.
func (p *Publisher) objectDestroyed(object meta.Object) {
	var id string
	if rid, ok := p.registeredObjectIds[object]; ok {
		id = rid
		delete(p.registeredObjectIds, object)
		delete(p.registeredObjects, id)
		p.registeredOrder = removeString(p.registeredOrder, id)
	} else if wid, ok := p.wrappedObjectIds[object]; ok {
		id = wid
		delete(p.wrappedObjectIds, object)
		delete(p.wrappedObjects, id)
	} else {
		return
	}

	if p.propertyUpdatesInitialized {
		p.signalHandler.Remove(object)
	}
	delete(p.signalToPropertyMap, object)
	delete(p.pendingPropertyUpdates, object)
	delete(p.pendingPropertyUpdates2, object)
}

// deleteWrappedObject is "deleteLater"'s target. The original only warns
// when the target isn't actually a wrapped object, since the host
// reference-counts destruction itself and a real deleteLater() call is
// left for an ownership model this distillation doesn't have. Go has no
// such model to defer to either, so after the same guard this finalizes
// the object synchronously via objectDestroyed (documented REDESIGN,
// SPEC_FULL.md section C).
func (p *Publisher) deleteWrappedObject(object meta.Object) {
	if !p.isWrapped(object) {
		p.log.Warn("publisher: deleteLater invoked on an object that is not wrapped")
	}
	p.objectDestroyed(object)
}

// wrapResult turns an ObjectHandle-kind Value into its wire
// {__QObject__, id, data?} form, minting a UUID and computing classinfo
// the first time a given host object crosses the wire. Non-ObjectHandle
// values pass through unchanged.
func (p *Publisher) wrapResult(v value.Value, transport Transport, parentObjectID string) value.Value {
	if v.Kind() != value.KindObjectHandle {
		return v
	}
	object := v.ObjectHandle()
	if object == nil {
		return value.Null
	}

	if id, ok := p.registeredObjectIds[object]; ok {
		return objectHandleRef(id, value.Null)
	}

	if id, ok := p.wrappedObjectIds[object]; ok {
		wo := p.wrappedObjects[id]
		if transport != nil {
			p.ensureTransport(wo, id, transport)
		}
		return objectHandleRef(id, value.Null)
	}

	// Mint a new id and install it before computing classinfo, breaking
	// cycles through objects that reference each other (spec.md section 9).
	id := p.idgen()
	p.wrappedObjectIds[object] = id
	wo := &wrappedObject{object: object}
	p.wrappedObjects[id] = wo

	classinfo := p.classInfoForObject(object, transport)
	wo.classinfo = classinfo

	switch {
	case transport != nil:
		wo.transports = []Transport{transport}
	case parentObjectID != "" && len(p.transportsForID(parentObjectID)) > 0:
		wo.transports = append([]Transport(nil), p.transportsForID(parentObjectID)...)
	default:
		wo.transports = append([]Transport(nil), p.transports...)
	}
	for _, t := range wo.transports {
		p.associateTransport(id, t)
	}

	p.initializePropertyUpdates(object, classinfo)

	return objectHandleRef(id, classinfo)
}

// wrapList maps wrapResult across an Array.
func (p *Publisher) wrapList(arr value.Array, transport Transport, parentObjectID string) value.Array {
	out := make(value.Array, len(arr))
	for i, v := range arr {
		out[i] = p.wrapResult(v, transport, parentObjectID)
	}
	return out
}

func objectHandleRef(id string, data value.Value) value.Value {
	m := value.NewOrderedMap()
	m.Set(message.KeyObjectSentinel, value.NewBool(true))
	m.Set(message.KeyID, value.NewString(id))
	if data.Kind() != value.KindNull {
		m.Set(message.KeyData, data)
	}
	return value.NewMap(m)
}

// TransportRemoved reconciles Publisher state after the embedder tears
// down a transport: every wrapped object that transport was the last
// viewer of is destroyed. Objects are collected before any are destroyed,
// since objectDestroyed mutates the very maps this walk iterates.
func (p *Publisher) TransportRemoved(transport Transport) {
	ids := p.transportedWrappedObjects[transport]
	delete(p.transportedWrappedObjects, transport)

	var toDestroy []meta.Object
	for id := range ids {
		wo, ok := p.wrappedObjects[id]
		if !ok {
			continue
		}
		wo.transports = removeTransport(wo.transports, transport)
		if len(wo.transports) == 0 {
			toDestroy = append(toDestroy, wo.object)
		}
	}

	p.transports = removeTransport(p.transports, transport)

	for _, obj := range toDestroy {
		p.objectDestroyed(obj)
	}
}

// SetClientIsIdle starts or stops the periodic property-update timer on a
// false->true / true->false edge respectively.
func (p *Publisher) SetClientIsIdle(isIdle bool) {
	if isIdle == p.clientIsIdle {
		return
	}
	p.clientIsIdle = isIdle
	if isIdle {
		p.startTimer(p.intervalMS)
	} else {
		p.stopTimer()
	}
}

// SetBlockUpdates suppresses property-update flushing while true. Turning
// it off flushes immediately; turning it on stops the timer.
func (p *Publisher) SetBlockUpdates(block bool) {
	if block == p.blockUpdates {
		return
	}
	p.blockUpdates = block
	if block {
		p.stopTimer()
		return
	}
	p.FlushPendingPropertyUpdates()
}

func (p *Publisher) idFor(object meta.Object) string {
	if id, ok := p.registeredObjectIds[object]; ok {
		return id
	}
	if id, ok := p.wrappedObjectIds[object]; ok {
		return id
	}
	return ""
}

func (p *Publisher) isWrapped(object meta.Object) bool {
	_, ok := p.wrappedObjectIds[object]
	return ok
}

func (p *Publisher) isNotifySignal(object meta.Object, signalIndex int) bool {
	bySignal, ok := p.signalToPropertyMap[object]
	if !ok {
		return false
	}
	_, ok = bySignal[signalIndex]
	return ok
}

func (p *Publisher) liveTransportsFor(object meta.Object) []Transport {
	if id, ok := p.wrappedObjectIds[object]; ok {
		return p.wrappedObjects[id].transports
	}
	if _, ok := p.registeredObjectIds[object]; ok {
		return p.transports
	}
	return nil
}

func (p *Publisher) transportsForID(id string) []Transport {
	if wo, ok := p.wrappedObjects[id]; ok {
		return wo.transports
	}
	if _, ok := p.registeredObjects[id]; ok {
		return p.transports
	}
	return nil
}

func (p *Publisher) ensureTransport(wo *wrappedObject, id string, t Transport) {
	for _, existing := range wo.transports {
		if existing == t {
			return
		}
	}
	wo.transports = append(wo.transports, t)
	p.associateTransport(id, t)
}

func (p *Publisher) associateTransport(id string, t Transport) {
	set := p.transportedWrappedObjects[t]
	if set == nil {
		set = make(map[string]bool)
		p.transportedWrappedObjects[t] = set
	}
	set[id] = true
}

func removeString(s []string, v string) []string {
	for i, e := range s {
		if e == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

func removeTransport(s []Transport, t Transport) []Transport {
	for i, e := range s {
		if e == t {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

// Package signalhandler implements the fan-in signal dispatcher: it holds
// at most one native subscription per (object, signalIndex) pair no matter
// how many clients are interested, and routes every dispatched emission
// into the Publisher's pending-update machinery.
//
// Grounded on original_source/priv/signalhandler.{h,cpp}: connectTo is
// increment-or-connect, disconnectFrom is decrement-or-disconnect, dispatch
// drops anything the table has no record of ever having connected.
package signalhandler

import (
	"github.com/cmguo/hybridge/internal/logging"
	"github.com/cmguo/hybridge/pkg/meta"
	"github.com/cmguo/hybridge/pkg/value"
)

// Dispatcher receives emissions that passed the connected-or-drop check.
// Publisher implements this (Publisher.SignalEmitted, spec.md section 4.3).
type Dispatcher interface {
	SignalEmitted(object meta.Object, signalIndex int, args value.Array)
}

type key struct {
	object      meta.Object
	signalIndex int
}

type entry struct {
	count      int
	connection meta.Connection
	paramTypes []meta.TypeCode
}

// Handler is the fan-in dispatcher described by spec.md section 4.2.
//
// Object is used as a Go map key throughout; embedders must only hand the
// bridge Object values with a comparable dynamic type (a string id, a
// pointer, etc.) -- the same requirement the host's own MetaObject.Connect
// implementation already has to satisfy to track its own subscriptions.
type Handler struct {
	binding    meta.Binding
	dispatcher Dispatcher
	log        *logging.Logger

	entries map[key]*entry
}

// New builds a Handler. binding resolves objects to their MetaObject;
// dispatcher receives emissions that survive the connected-or-drop check.
// dispatcher may be nil at construction time and supplied later with
// SetDispatcher -- the Publisher that normally plays this role can only be
// constructed with a Handler already in hand, so callers otherwise face a
// construction cycle.
func New(binding meta.Binding, dispatcher Dispatcher, log *logging.Logger) *Handler {
	if log == nil {
		log = logging.NewNop()
	}
	return &Handler{
		binding:    binding,
		dispatcher: dispatcher,
		log:        log,
		entries:    make(map[key]*entry),
	}
}

// SetDispatcher assigns (or replaces) the Dispatcher emissions are
// forwarded to.
func (h *Handler) SetDispatcher(dispatcher Dispatcher) {
	h.dispatcher = dispatcher
}

// ConnectTo establishes (or references) the single native subscription for
// (object, signalIndex). Safe to call repeatedly; each call must be
// balanced by a DisconnectFrom.
func (h *Handler) ConnectTo(object meta.Object, signalIndex int) {
	k := key{object, signalIndex}
	if e, ok := h.entries[k]; ok {
		e.count++
		return
	}

	mo := h.binding.MetaObject(object)
	if mo == nil {
		h.log.Warn("signalhandler: connectTo on object with no MetaObject", logging.Int("signal", signalIndex))
		return
	}
	m := mo.Method(signalIndex)
	if !m.IsValid() || !m.IsSignal() {
		h.log.Warn("signalhandler: connectTo on invalid or non-signal method",
			logging.String("class", mo.ClassName()), logging.Int("signal", signalIndex))
		return
	}

	want := meta.Connection{Object: object, SignalIndex: signalIndex, Handler: h.dispatch}
	conn, ok := mo.Connect(want)
	if !ok {
		h.log.Warn("signalhandler: MetaObject refused Connect",
			logging.String("class", mo.ClassName()), logging.Int("signal", signalIndex))
		return
	}

	paramTypes := make([]meta.TypeCode, m.ParameterCount())
	for i := range paramTypes {
		paramTypes[i] = m.ParameterType(i)
	}

	h.entries[k] = &entry{count: 1, connection: conn, paramTypes: paramTypes}
}

// DisconnectFrom decrements the subscription count for (object,
// signalIndex), tearing down the native subscription once it reaches zero.
func (h *Handler) DisconnectFrom(object meta.Object, signalIndex int) {
	k := key{object, signalIndex}
	e, ok := h.entries[k]
	if !ok {
		return
	}
	e.count--
	if e.count > 0 {
		return
	}
	h.teardown(object, k, e)
}

// dispatch is installed as every Connection's Handler. It drops emissions
// for a pair the table has no record of (spec.md section 4.2: "if the
// argument-type table has no entry ... drop").
func (h *Handler) dispatch(object meta.Object, signalIndex int, args value.Array) {
	k := key{object, signalIndex}
	if _, ok := h.entries[k]; !ok {
		return
	}
	h.dispatcher.SignalEmitted(object, signalIndex, args)
}

// Clear disconnects every live subscription.
func (h *Handler) Clear() {
	for k, e := range h.entries {
		h.teardown(k.object, k, e)
	}
}

// Remove disconnects every signal subscription held for object.
func (h *Handler) Remove(object meta.Object) {
	for k, e := range h.entries {
		if k.object == object {
			h.teardown(object, k, e)
		}
	}
}

func (h *Handler) teardown(object meta.Object, k key, e *entry) {
	mo := h.binding.MetaObject(object)
	if mo != nil {
		mo.Disconnect(e.connection)
	}
	delete(h.entries, k)
}

// SubscriptionCount reports the current reference count for (object,
// signalIndex), or 0 if there is none -- exposed for the invariant test in
// spec.md section 8 ("the stored count equals the number of connectTo
// calls not yet balanced by disconnectFrom").
func (h *Handler) SubscriptionCount(object meta.Object, signalIndex int) int {
	if e, ok := h.entries[key{object, signalIndex}]; ok {
		return e.count
	}
	return 0
}

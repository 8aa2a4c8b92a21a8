// Package channel implements the facade described by spec.md section 4.5:
// it owns a Publisher, one Receiver per connected Transport, and the
// embedder hooks both depend on, wiring inbound messages to whichever side
// (Publisher or Receiver) the message type belongs to.
//
// Grounded on original_source/priv/channel.{h,cpp}.
package channel

import (
	"github.com/cmguo/hybridge/internal/idgen"
	"github.com/cmguo/hybridge/internal/logging"
	"github.com/cmguo/hybridge/internal/publisher"
	"github.com/cmguo/hybridge/internal/receiver"
	"github.com/cmguo/hybridge/internal/signalhandler"
	"github.com/cmguo/hybridge/pkg/message"
	"github.com/cmguo/hybridge/pkg/meta"
	"github.com/cmguo/hybridge/pkg/value"
)

// Transport is the full capability a connected peer must offer: sending a
// message and registering the handler invoked on every inbound one.
// internal/publisher.Transport and internal/receiver.Transport are
// narrower subsets any Transport satisfies structurally.
type Transport interface {
	SendMessage(msg message.Message)
	SetMessageHandler(handler func(msg message.Message))
}

// Hooks collects the embedder-supplied callbacks spec.md section 4.5
// requires: metaObject resolution (via binding), id generation, the single
// periodic timer, and client-side proxy construction/update application.
type Hooks struct {
	Binding meta.Binding

	CreateUUID func() string
	StartTimer func(ms int)
	StopTimer  func()

	// CreateProxy and ApplyPropertyUpdate are only needed on the client
	// side (a Channel with no live Receiver never calls them).
	CreateProxy         func(id string, classinfo value.Value) receiver.ProxyObject
	ApplyPropertyUpdate func(proxy receiver.ProxyObject, signals map[int]value.Array, properties map[int]value.Value)

	// OnBlockUpdatesChanged observes every SetBlockUpdates call (spec.md
	// section C, supplementing the original's commented-out
	// blockUpdatesChanged signal).
	OnBlockUpdatesChanged func(blocked bool)

	IntervalMS int
	Log        *logging.Logger
}

// Channel is the facade described by spec.md section 4.5.
type Channel struct {
	hooks Hooks

	signalHandler *signalhandler.Handler
	publisher     *publisher.Publisher
	receivers     map[Transport]*receiver.Receiver

	log *logging.Logger
}

// New builds a Channel wired per hooks. The Publisher/SignalHandler
// construction cycle is resolved the same way internal/publisher's tests
// resolve it: build the Handler with no Dispatcher, build the Publisher
// against it, then back-fill the Dispatcher.
func New(hooks Hooks) *Channel {
	log := hooks.Log
	if log == nil {
		log = logging.NewNop()
	}
	interval := hooks.IntervalMS
	if interval == 0 {
		interval = publisherDefaultIntervalMS
	}
	if hooks.CreateUUID == nil {
		hooks.CreateUUID = idgen.New
	}

	sh := signalhandler.New(hooks.Binding, nil, log)
	pub := publisher.New(hooks.Binding, sh, hooks.CreateUUID, hooks.StartTimer, hooks.StopTimer, interval, log)
	sh.SetDispatcher(pub)

	return &Channel{
		hooks:         hooks,
		signalHandler: sh,
		publisher:     pub,
		receivers:     make(map[Transport]*receiver.Receiver),
		log:           log,
	}
}

const publisherDefaultIntervalMS = 50

// RegisterObject publishes object under id for every connected transport.
func (c *Channel) RegisterObject(id string, object meta.Object) {
	c.publisher.RegisterObject(id, object)
}

// DeregisterObject tears object down by reusing the destruction plumbing:
// spec.md section 4.5 defines deregisterObject as
// signalEmitted(object, 0, [object]).
func (c *Channel) DeregisterObject(object meta.Object) {
	c.publisher.SignalEmitted(object, 0, value.Array{value.NewObjectHandle(object)})
}

// ConnectTo attaches a newly connected transport: it joins the Publisher's
// broadcast set and gets its own Receiver for client-side use.
func (c *Channel) ConnectTo(t Transport) {
	c.publisher.AddTransport(t)
	c.receivers[t] = receiver.New(t, c.hooks.CreateProxy, c.hooks.ApplyPropertyUpdate, c.log)
	t.SetMessageHandler(func(msg message.Message) {
		c.handleMessage(msg, t)
	})
}

// DisconnectFrom detaches t: the Publisher is notified so it can finalize
// any wrapped object t was the last viewer of, and t's Receiver (with
// whatever proxies it owns) is dropped.
func (c *Channel) DisconnectFrom(t Transport) {
	delete(c.receivers, t)
	c.publisher.TransportRemoved(t)
}

// Receiver exposes the per-transport Receiver so an embedder can drive
// client-side calls (Init, InvokeMethod, ConnectToSignal, SetProperty)
// against a specific connection.
func (c *Channel) Receiver(t Transport) (*receiver.Receiver, bool) {
	r, ok := c.receivers[t]
	return r, ok
}

// SetBlockUpdates forwards to the Publisher and notifies
// OnBlockUpdatesChanged, if supplied.
func (c *Channel) SetBlockUpdates(blocked bool) {
	c.publisher.SetBlockUpdates(blocked)
	if c.hooks.OnBlockUpdatesChanged != nil {
		c.hooks.OnBlockUpdatesChanged(blocked)
	}
}

// SetClientIsIdle forwards to the Publisher (spec.md section 6: the client
// signals idleness via the Idle message, which HandleMessage already
// routes here -- this is for an embedder driving idleness out of band).
func (c *Channel) SetClientIsIdle(idle bool) {
	c.publisher.SetClientIsIdle(idle)
}

// PropertyChanged forwards a direct (non-signal) property change to the
// Publisher's pending-update batching.
func (c *Channel) PropertyChanged(object meta.Object, propertyIndex int) {
	c.publisher.PropertyChanged(object, propertyIndex)
}

// OnTimerFired must be called by the embedder's StartTimer/StopTimer
// implementation when the periodic timer elapses; it drains whatever
// property updates have coalesced since the last flush.
func (c *Channel) OnTimerFired() {
	c.publisher.FlushPendingPropertyUpdates()
}

// Shutdown disconnects every transport and clears every native signal
// subscription (spec.md section C, item 2: SignalHandler.Clear's "full
// shutdown path").
func (c *Channel) Shutdown() {
	for t := range c.receivers {
		c.DisconnectFrom(t)
	}
	c.signalHandler.Clear()
}

// handleMessage routes one inbound message to the Publisher (every
// client-to-server type) or to t's Receiver (every server-to-client type),
// per the direction column of spec.md section 6's wire-protocol table.
func (c *Channel) handleMessage(msg message.Message, t Transport) {
	switch message.TypeOf(msg) {
	case message.Signal, message.PropertyUpdate, message.Response:
		r, ok := c.receivers[t]
		if !ok {
			c.log.Warn("channel: inbound client-bound message on a transport with no Receiver")
			return
		}
		r.HandleMessage(msg)
	default:
		c.publisher.HandleMessage(msg, t)
	}
}

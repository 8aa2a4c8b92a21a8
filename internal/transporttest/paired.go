// Package transporttest provides an in-memory, synchronous transport pair
// for exercising Publisher/Receiver/Channel without a real network. It is
// the Go analogue of original_source/tool/pairedtransport.cpp: two
// transports wired to each other so that sending on one delivers directly
// to the other's registered handler.
//
// Test-only: spec.md section 1 explicitly keeps the concrete transport
// implementation out of the core's scope, and the paired transport exists
// purely to drive the core's tests.
package transporttest

import "github.com/cmguo/hybridge/pkg/message"

// Paired is one half of a connected transport pair. It satisfies any
// Transport interface requiring SendMessage and SetMessageHandler (the
// richer shape pkg/channel.Transport declares); consumers needing only
// SendMessage (internal/publisher.Transport, internal/receiver.Transport)
// are satisfied automatically.
type Paired struct {
	peer    *Paired
	handler func(message.Message)

	// Sent records every message handed to SendMessage, in order, for
	// assertions that don't want to install a handler on the peer.
	Sent []message.Message
}

// NewPair returns two transports, each delivering what it sends to the
// other.
func NewPair() (*Paired, *Paired) {
	a := &Paired{}
	b := &Paired{}
	a.peer = b
	b.peer = a
	return a, b
}

// SendMessage delivers msg synchronously to the peer's registered handler,
// matching the original's direct anothor_->messageReceived call.
func (p *Paired) SendMessage(msg message.Message) {
	p.Sent = append(p.Sent, msg)
	if p.peer != nil && p.peer.handler != nil {
		p.peer.handler(msg)
	}
}

// SetMessageHandler registers the callback invoked when this transport's
// peer sends a message, mirroring Transport::setPublisher/setReceiver in
// the original (there expressed as two setters over one stored pointer;
// here collapsed to the one handler a Channel installs).
func (p *Paired) SetMessageHandler(handler func(message.Message)) {
	p.handler = handler
}

package api

import (
	"sync"
	"sync/atomic"

	"inputoverlay/internal/input"
	"inputoverlay/internal/protocol"

	"github.com/kataras/golog"
)

// DefaultQueueSize bounds each channel's queue.
const DefaultQueueSize = 256

// Forwarder delivers a message to consumers. The WebSocket hub and the UDP
// sender implement it.
type Forwarder interface {
	Forward(msg protocol.Message)
}

// Outbox holds one bounded FIFO per channel, each drained by its own
// goroutine, so a burst of mouse moves can never delay or reorder key events.
// A full queue drops the new message and counts it.
type Outbox struct {
	mu      sync.RWMutex
	closed  bool
	queues  map[protocol.Channel]chan protocol.Message
	dropped map[protocol.Channel]*atomic.Uint64
	fwd     []Forwarder
	wg      sync.WaitGroup
	logger  *golog.Logger
}

// NewOutbox starts one drain goroutine per channel. size <= 0 uses
// DefaultQueueSize.
func NewOutbox(size int, fwd ...Forwarder) *Outbox {
	if size <= 0 {
		size = DefaultQueueSize
	}
	o := &Outbox{
		queues:  make(map[protocol.Channel]chan protocol.Message, len(protocol.Channels)),
		dropped: make(map[protocol.Channel]*atomic.Uint64, len(protocol.Channels)),
		fwd:     fwd,
		logger:  golog.Child("[outbox]"),
	}
	for _, c := range protocol.Channels {
		q := make(chan protocol.Message, size)
		o.queues[c] = q
		o.dropped[c] = new(atomic.Uint64)
		o.wg.Add(1)
		go o.drain(q)
	}
	return o
}

func (o *Outbox) drain(q chan protocol.Message) {
	defer o.wg.Done()
	for msg := range q {
		for _, f := range o.fwd {
			f.Forward(msg)
		}
	}
}

// Push enqueues msg on its channel without blocking. It returns
// ErrTransportChannelClosed after Close.
func (o *Outbox) Push(msg protocol.Message) error {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.closed {
		return input.ErrTransportChannelClosed
	}
	q, ok := o.queues[msg.Channel]
	if !ok {
		return protocol.ErrInvalidPayload
	}
	select {
	case q <- msg:
	default:
		if n := o.dropped[msg.Channel].Add(1); n == 1 || n%1000 == 0 {
			o.logger.Warnf("%s queue full, %d message(s) dropped so far", msg.Channel, n)
		}
	}
	return nil
}

// Dropped returns the per-channel drop counters.
func (o *Outbox) Dropped() map[string]uint64 {
	out := make(map[string]uint64, len(o.dropped))
	for c, n := range o.dropped {
		out[string(c)] = n.Load()
	}
	return out
}

// Close stops accepting messages, flushes what is queued and waits for the
// drain goroutines. Calling Close twice is a no-op.
func (o *Outbox) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	for _, q := range o.queues {
		close(q)
	}
	o.mu.Unlock()
	o.wg.Wait()
}

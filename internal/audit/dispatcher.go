package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull makes Emit non-blocking; events that do not fit are counted
	// and discarded.
	DropIfFull bool
	// OnDrop, when set, runs once for every event dropped under backpressure.
	OnDrop func()
}

// Dispatcher hands audit events to a single worker goroutine that feeds the
// sink, so a slow sink never adds latency to verification.
//
// A nil *Dispatcher is valid and discards everything.
type Dispatcher struct {
	sink       Sink
	queue      chan Event
	stop       chan struct{}
	stopped    chan struct{}
	dropIfFull bool
	onDrop     func()

	closing   atomic.Bool
	closeOnce sync.Once

	delivered atomic.Uint64
	dropped   atomic.Uint64
	panicked  atomic.Uint64
}

// NewDispatcher starts a dispatcher, or returns nil when auditing is disabled.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	size := cfg.BufferSize
	if size < 1 {
		size = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		sink:       sink,
		queue:      make(chan Event, size),
		stop:       make(chan struct{}),
		stopped:    make(chan struct{}),
		dropIfFull: cfg.DropIfFull,
		onDrop:     cfg.OnDrop,
	}
	go d.work()
	return d
}

func (d *Dispatcher) work() {
	defer close(d.stopped)
	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
			continue
		case <-d.stop:
		}

		// Flush whatever was queued before Close.
		for {
			select {
			case event := <-d.queue:
				d.deliver(event)
			default:
				return
			}
		}
	}
}

// deliver shields the worker from a misbehaving sink.
func (d *Dispatcher) deliver(event Event) {
	defer func() {
		if recover() != nil {
			d.panicked.Add(1)
		}
	}()
	d.sink.Emit(context.Background(), event)
	d.delivered.Add(1)
}

// Emit queues event. With DropIfFull it never blocks; otherwise it waits
// for room until ctx is done or the dispatcher closes.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closing.Load() {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		case <-d.stop:
		default:
			d.dropped.Add(1)
			if d.onDrop != nil {
				d.onDrop()
			}
		}
		return
	}

	var done <-chan struct{}
	if ctx != nil {
		done = ctx.Done()
	}
	select {
	case d.queue <- event:
	case <-done:
	case <-d.stop:
	}
}

// Close stops accepting events, waits until queued events reach the sink,
// and is safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closing.Store(true)
		close(d.stop)
	})
	<-d.stopped
}

// Dropped returns the number of events dropped under backpressure.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Delivered returns the number of events the sink accepted.
func (d *Dispatcher) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.delivered.Load()
}

// SinkPanics returns how many sink calls panicked.
func (d *Dispatcher) SinkPanics() uint64 {
	if d == nil {
		return 0
	}
	return d.panicked.Load()
}

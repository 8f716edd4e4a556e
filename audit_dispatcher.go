package sessionkit

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditDispatcher moves audit events off the caller's goroutine. Session
// mutations never wait on a sink unless the queue is configured to block.
type auditDispatcher struct {
	sink       AuditSink
	queue      chan AuditEvent
	dropIfFull bool

	// sinkCtx is handed to the sink and cancelled by close, so a sink
	// blocked on its own consumer cannot hold close forever.
	sinkCtx    context.Context
	cancelSink context.CancelFunc

	stop     chan struct{}
	finished chan struct{}
	stopOnce sync.Once

	dropped atomic.Uint64
	failed  atomic.Uint64
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &auditDispatcher{
		sink:       sink,
		queue:      make(chan AuditEvent, size),
		dropIfFull: cfg.DropIfFull,
		sinkCtx:    ctx,
		cancelSink: cancel,
		stop:       make(chan struct{}),
		finished:   make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *auditDispatcher) run() {
	defer close(d.finished)

	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		case <-d.stop:
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
}

// deliver hands one event to the sink. A panicking sink loses that event
// only.
func (d *auditDispatcher) deliver(event AuditEvent) {
	defer func() {
		if recover() != nil {
			d.failed.Add(1)
		}
	}()
	d.sink.Emit(d.sinkCtx, event)
}

// Enqueue queues event and reports whether it was accepted. With dropIfFull
// a full queue drops and counts the event; otherwise Enqueue waits for room
// or for Close.
func (d *auditDispatcher) Enqueue(event AuditEvent) bool {
	if d == nil {
		return false
	}
	select {
	case <-d.stop:
		return false
	default:
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
			return true
		default:
			d.dropped.Add(1)
			return false
		}
	}

	select {
	case d.queue <- event:
		return true
	case <-d.stop:
		return false
	}
}

// Close stops intake, delivers what is already queued, and waits for the
// sink to return.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() {
		close(d.stop)
		d.cancelSink()
		<-d.finished
	})
}

// Dropped reports events lost to a full queue.
func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Failed reports events whose sink panicked.
func (d *auditDispatcher) Failed() uint64 {
	if d == nil {
		return 0
	}
	return d.failed.Load()
}

package logger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultShipQueueSize   = 1024
	defaultShipFlushWindow = 5 * time.Second
)

// teeHandler writes every record to the console handler and to the remote
// handler when it is enabled for the level.
type teeHandler struct {
	console slog.Handler
	remote  slog.Handler
}

func (h teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.console.Enabled(ctx, level) || h.remote.Enabled(ctx, level)
}

func (h teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var consoleErr, remoteErr error
	if h.console.Enabled(ctx, r.Level) {
		consoleErr = h.console.Handle(ctx, r.Clone())
	}
	if h.remote.Enabled(ctx, r.Level) {
		remoteErr = h.remote.Handle(ctx, r.Clone())
	}
	return errors.Join(consoleErr, remoteErr)
}

func (h teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return teeHandler{console: h.console.WithAttrs(attrs), remote: h.remote.WithAttrs(attrs)}
}

func (h teeHandler) WithGroup(name string) slog.Handler {
	return teeHandler{console: h.console.WithGroup(name), remote: h.remote.WithGroup(name)}
}

type shipment struct {
	ctx    context.Context
	record slog.Record
	sink   slog.Handler
}

// shipQueue is the single goroutine draining records to Better Stack. It is
// shared by every handler derived through WithAttrs/WithGroup.
type shipQueue struct {
	mu      sync.RWMutex // guards closed against sends on a closed channel
	closed  bool
	ch      chan shipment
	done    chan struct{}
	window  time.Duration
	dropped atomic.Uint64
}

func newShipQueue(size int, window time.Duration) *shipQueue {
	if size <= 0 {
		size = defaultShipQueueSize
	}
	if window <= 0 {
		window = defaultShipFlushWindow
	}
	q := &shipQueue{
		ch:     make(chan shipment, size),
		done:   make(chan struct{}),
		window: window,
	}
	go q.drain()
	return q
}

func (q *shipQueue) drain() {
	defer close(q.done)
	for s := range q.ch {
		_ = s.sink.Handle(s.ctx, s.record)
	}
}

// push never blocks a request: a full queue drops the record.
func (q *shipQueue) push(s shipment) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return
	}
	select {
	case q.ch <- s:
	default:
		q.dropped.Add(1)
	}
}

// close stops intake and waits for queued records, bounded by ctx or the
// flush window when ctx has no deadline.
func (q *shipQueue) close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.window)
		defer cancel()
	}
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shippingHandler hands records to a shipQueue so a slow log sink never
// delays a chat reply.
type shippingHandler struct {
	sink  slog.Handler
	queue *shipQueue
}

func newShippingHandler(sink slog.Handler, queueSize int) *shippingHandler {
	return &shippingHandler{sink: sink, queue: newShipQueue(queueSize, 0)}
}

func (h *shippingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.sink.Enabled(ctx, level)
}

func (h *shippingHandler) Handle(ctx context.Context, r slog.Record) error {
	// The request context may be cancelled before the record ships.
	h.queue.push(shipment{ctx: context.WithoutCancel(ctx), record: r.Clone(), sink: h.sink})
	return nil
}

func (h *shippingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &shippingHandler{sink: h.sink.WithAttrs(attrs), queue: h.queue}
}

func (h *shippingHandler) WithGroup(name string) slog.Handler {
	return &shippingHandler{sink: h.sink.WithGroup(name), queue: h.queue}
}

func (h *shippingHandler) shutdown(ctx context.Context) error {
	if h == nil {
		return nil
	}
	return h.queue.close(ctx)
}

func (h *shippingHandler) droppedCount() uint64 {
	if h == nil {
		return 0
	}
	return h.queue.dropped.Load()
}

// Package ctxutil carries per-request trace fields through a context.
package ctxutil

import (
	"context"
	"log/slog"
)

// Chat channels a request can arrive through.
const (
	ChannelWeb  = "web"
	ChannelLINE = "line"
)

// Trace identifies who a piece of work is for. The zero value is an
// anonymous request with no correlation ID.
type Trace struct {
	RequestID  string
	Channel    string
	StudentUID string
	LineUserID string
}

type traceKey struct{}

// From returns the trace stored in ctx.
func From(ctx context.Context) Trace {
	t, _ := ctx.Value(traceKey{}).(Trace)
	return t
}

func with(ctx context.Context, set func(*Trace)) context.Context {
	t := From(ctx)
	set(&t)
	return context.WithValue(ctx, traceKey{}, t)
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return with(ctx, func(t *Trace) { t.RequestID = id })
}

func WithChannel(ctx context.Context, channel string) context.Context {
	return with(ctx, func(t *Trace) { t.Channel = channel })
}

// WithStudentUID records the uid as the student typed it.
func WithStudentUID(ctx context.Context, uid string) context.Context {
	return with(ctx, func(t *Trace) { t.StudentUID = uid })
}

func WithLineUserID(ctx context.Context, id string) context.Context {
	return with(ctx, func(t *Trace) { t.LineUserID = id })
}

// Detach returns a fresh background context holding only ctx's trace, for
// work that outlives the request. The parent is not retained.
func Detach(ctx context.Context) context.Context {
	return context.WithValue(context.Background(), traceKey{}, From(ctx))
}

// Attrs returns the set fields as log attributes in a fixed order.
func (t Trace) Attrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, 4)
	for _, f := range [...]struct{ key, value string }{
		{"request_id", t.RequestID},
		{"channel", t.Channel},
		{"uid", t.StudentUID},
		{"line_user_id", t.LineUserID},
	} {
		if f.value != "" {
			attrs = append(attrs, slog.String(f.key, f.value))
		}
	}
	return attrs
}

package ctxutil

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrace(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Trace{}, From(context.Background()))
	assert.Empty(t, Trace{}.Attrs())

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithStudentUID(ctx, "24MCI10030")
	ctx = WithChannel(ctx, ChannelWeb)
	ctx = WithRequestID(ctx, "req-2")

	assert.Equal(t, Trace{RequestID: "req-2", Channel: "web", StudentUID: "24MCI10030"}, From(ctx))
	assert.Equal(t, []slog.Attr{
		slog.String("request_id", "req-2"),
		slog.String("channel", "web"),
		slog.String("uid", "24MCI10030"),
	}, From(ctx).Attrs())
}

func TestTraceDoesNotLeakToParent(t *testing.T) {
	t.Parallel()

	parent := WithChannel(context.Background(), ChannelLINE)
	_ = WithLineUserID(parent, "U123")
	assert.Empty(t, From(parent).LineUserID)
}

func TestDetach(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithTimeout(context.Background(), time.Minute)
	parent = WithLineUserID(WithChannel(parent, ChannelLINE), "U123")
	cancel()

	detached := Detach(parent)
	assert.NoError(t, detached.Err())
	_, hasDeadline := detached.Deadline()
	assert.False(t, hasDeadline)
	assert.Equal(t, From(parent), From(detached))
}

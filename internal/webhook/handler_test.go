package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campussathi/campussathi-go/internal/logger"
	"github.com/campussathi/campussathi-go/internal/metrics"
	"github.com/campussathi/campussathi-go/internal/ratelimit"
	"github.com/campussathi/campussathi-go/internal/router"
	"github.com/campussathi/campussathi-go/internal/storage"
)

const testSecret = "test_channel_secret"

type sentReply struct {
	token, text string
}

type fakeMessenger struct {
	mu      sync.Mutex
	replies []sentReply
	loading []string
}

func (m *fakeMessenger) Reply(_ context.Context, token, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, sentReply{token, text})
	return nil
}

func (m *fakeMessenger) ShowLoading(_ context.Context, chatID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = append(m.loading, chatID)
	return nil
}

func (m *fakeMessenger) sent() []sentReply {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentReply(nil), m.replies...)
}

type fakeRouter struct {
	mu       sync.Mutex
	requests []router.Request
}

func (r *fakeRouter) Route(_ context.Context, req router.Request) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	return "routed: " + req.Query
}

type fixture struct {
	handler   *Handler
	messenger *fakeMessenger
	router    *fakeRouter
	db        *storage.DB
}

func newFixture(t *testing.T, limiter *ratelimit.KeyedLimiter) *fixture {
	t.Helper()
	db, err := storage.New(context.Background(), filepath.Join(t.TempDir(), "campus.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.UpsertStudent(context.Background(), &storage.Student{UID: "S1", Name: "Asha", Section: "A"}))

	f := &fixture{messenger: &fakeMessenger{}, router: &fakeRouter{}, db: db}
	f.handler, err = NewHandler(HandlerConfig{
		ChannelSecret: testSecret,
		Messenger:     f.messenger,
		Router:        f.router,
		Store:         db,
		UserLimiter:   limiter,
		Logger:        logger.NewWithWriter("error", io.Discard),
		Metrics:       metrics.New(prometheus.NewRegistry()),
	})
	require.NoError(t, err)
	return f
}

func textEvent(userID, text string) webhook.MessageEvent {
	return webhook.MessageEvent{
		ReplyToken: "reply-token-0123456789",
		Source:     webhook.UserSource{UserId: userID},
		Message:    webhook.TextMessageContent{Text: text},
	}
}

func (f *fixture) say(t *testing.T, userID, text string) string {
	t.Helper()
	before := len(f.messenger.sent())
	f.handler.processEvent(context.Background(), textEvent(userID, text))
	sent := f.messenger.sent()
	require.Len(t, sent, before+1)
	return sent[len(sent)-1].text
}

func TestNewHandler_Validation(t *testing.T) {
	t.Parallel()
	_, err := NewHandler(HandlerConfig{Messenger: &fakeMessenger{}, Router: &fakeRouter{}})
	require.Error(t, err)
	_, err = NewHandler(HandlerConfig{ChannelSecret: testSecret})
	require.Error(t, err)
}

func TestLinkFlow(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	assert.Equal(t, notLinkedMessage, f.say(t, "U1", "whoami"))
	assert.Equal(t, linkUsage, f.say(t, "U1", "link"))
	assert.Equal(t, linkUnknownUID, f.say(t, "U1", "link S404"))
	assert.Equal(t, "🔗 Linked to S1 (Asha).", f.say(t, "U1", "Link S1"))
	assert.Equal(t, "🪪 Linked student ID: S1", f.say(t, "U1", "whoami"))

	assert.Equal(t, "routed: what is my fee status?", f.say(t, "U1", "what is my fee status?"))
	require.Len(t, f.router.requests, 1)
	assert.Equal(t, router.Request{Query: "what is my fee status?", UID: "S1"}, f.router.requests[0])

	assert.Equal(t, unlinkedMessage, f.say(t, "U1", "unlink"))
	assert.Equal(t, notLinkedMessage, f.say(t, "U1", "unlink"))

	f.say(t, "U1", "library hours")
	assert.Empty(t, f.router.requests[1].UID)
}

func TestCommandWordsInsideQuestionsAreRouted(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	assert.Equal(t, "routed: help me find the library", f.say(t, "U1", "help me find the library"))
	assert.Equal(t, helpMessage, f.say(t, "U1", "help"))
}

func TestGroupMessagesNeedMention(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	group := webhook.GroupSource{GroupId: "G1", UserId: "U1"}
	f.handler.processEvent(context.Background(), webhook.MessageEvent{
		ReplyToken: "reply-token-0123456789",
		Source:     group,
		Message:    webhook.TextMessageContent{Text: "library hours?"},
	})
	assert.Empty(t, f.messenger.sent())

	f.handler.processEvent(context.Background(), webhook.MessageEvent{
		ReplyToken: "reply-token-0123456789",
		Source:     group,
		Message: webhook.TextMessageContent{
			Text: "@Bot library hours?",
			Mention: &webhook.Mention{Mentionees: []webhook.MentioneeInterface{
				webhook.UserMentionee{Index: 0, Length: 4, IsSelf: true},
			}},
		},
	})
	sent := f.messenger.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "routed: library hours?", sent[0].text)
	assert.Equal(t, []string{"G1"}, f.messenger.loading)
}

func TestFollowSendsWelcome(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	f.handler.processEvent(context.Background(), webhook.FollowEvent{
		ReplyToken: "reply-token-0123456789",
		Source:     webhook.UserSource{UserId: "U1"},
	})
	sent := f.messenger.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, welcomeMessage, sent[0].text)
	assert.Empty(t, f.router.requests)
}

func TestUserRateLimit(t *testing.T) {
	t.Parallel()
	limiter := ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{Name: "line", Burst: 1, RefillRate: 0.0001})
	t.Cleanup(limiter.Stop)
	f := newFixture(t, limiter)

	assert.Equal(t, "routed: q1", f.say(t, "U1", "q1"))
	assert.Equal(t, rateLimitedBurst, f.say(t, "U1", "q2"))
	// Commands are not limited.
	assert.Equal(t, helpMessage, f.say(t, "U1", "help"))
	assert.Equal(t, "routed: q3", f.say(t, "U2", "q3"))
}

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestHandle(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)
	f := newFixture(t, nil)
	engine := gin.New()
	engine.POST("/webhook", f.handler.Handle)

	post := func(body []byte, signature string) int {
		req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Line-Signature", signature)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		return w.Code
	}

	t.Run("invalid signature", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, post([]byte(`{"destination":"U0","events":[]}`), "invalid"))
	})

	t.Run("text message is answered asynchronously", func(t *testing.T) {
		body := []byte(`{"destination":"U0","events":[{"type":"message","mode":"active","timestamp":1700000000000,` +
			`"webhookEventId":"01HEVENT","deliveryContext":{"isRedelivery":false},` +
			`"source":{"type":"user","userId":"U1"},"replyToken":"reply-token-0123456789",` +
			`"message":{"type":"text","id":"1","quoteToken":"q","text":"library hours"}}]}`)
		require.Equal(t, http.StatusOK, post(body, sign(body)))

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, f.handler.Shutdown(ctx))

		sent := f.messenger.sent()
		require.Len(t, sent, 1)
		assert.Equal(t, "routed: library hours", sent[0].text)
	})
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	short := "hello"
	assert.Equal(t, short, truncate(short))

	long := string(bytes.Repeat([]byte("अ"), maxTextRunes+10))
	got := []rune(truncate(long))
	assert.Len(t, got, maxTextRunes)
	assert.Equal(t, "...", string(got[len(got)-3:]))
}

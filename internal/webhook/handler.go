// Package webhook connects the LINE Messaging API to the chat router.
// A LINE user links a student uid once with "link <uid>"; later messages
// are routed with that uid so personal and timetable questions work.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/campussathi/campussathi-go/internal/config"
	"github.com/campussathi/campussathi-go/internal/ctxutil"
	"github.com/campussathi/campussathi-go/internal/logger"
	"github.com/campussathi/campussathi-go/internal/metrics"
	"github.com/campussathi/campussathi-go/internal/ratelimit"
	"github.com/campussathi/campussathi-go/internal/router"
	"github.com/campussathi/campussathi-go/internal/storage"
)

// maxEventsPerWebhook bounds one delivery; LINE sends far fewer in practice.
const maxEventsPerWebhook = 100

// Router answers a chat query.
type Router interface {
	Route(ctx context.Context, req router.Request) string
}

// Store holds LINE bindings and validates uids.
type Store interface {
	storage.BindingRepository
	GetStudent(ctx context.Context, uid string) (*storage.Student, error)
}

// HandlerConfig holds configuration for creating a new Handler.
type HandlerConfig struct {
	ChannelSecret string
	Messenger     Messenger
	Router        Router
	Store         Store
	UserLimiter   *ratelimit.KeyedLimiter // Optional per LINE user limit
	Logger        *logger.Logger
	Metrics       *metrics.Metrics
}

// Handler handles LINE webhook events.
type Handler struct {
	channelSecret string
	messenger     Messenger
	router        Router
	store         Store
	userLimiter   *ratelimit.KeyedLimiter
	logger        *logger.Logger
	metrics       *metrics.Metrics
	wg            sync.WaitGroup // async event processing
}

// NewHandler creates a webhook handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.ChannelSecret == "" {
		return nil, errors.New("webhook: channel secret is required")
	}
	if cfg.Messenger == nil || cfg.Router == nil || cfg.Store == nil {
		return nil, errors.New("webhook: messenger, router and store are required")
	}
	return &Handler{
		channelSecret: cfg.ChannelSecret,
		messenger:     cfg.Messenger,
		router:        cfg.Router,
		store:         cfg.Store,
		userLimiter:   cfg.UserLimiter,
		logger:        cfg.Logger.WithModule("webhook"),
		metrics:       cfg.Metrics,
	}, nil
}

// Handle is the Gin handler for the webhook endpoint. It acknowledges the
// delivery at once and processes the events in the background.
func (h *Handler) Handle(c *gin.Context) {
	cb, err := webhook.ParseRequest(h.channelSecret, c.Request)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			h.logger.WarnContext(c.Request.Context(), "Invalid webhook signature")
			c.Status(http.StatusBadRequest)
		} else {
			h.logger.WithError(err).ErrorContext(c.Request.Context(), "Failed to parse webhook request")
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	c.Status(http.StatusOK)

	events := cb.Events
	if len(events) > maxEventsPerWebhook {
		h.logger.WithField("event_count", len(events)).Warn("Too many events in webhook batch; truncating")
		events = events[:maxEventsPerWebhook]
	}
	events = append([]webhook.EventInterface(nil), events...)
	ctx := ctxutil.Detach(c.Request.Context())

	h.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				h.logger.WithField("panic", r).Error("Panic in async event processing")
			}
		}()
		for _, event := range events {
			h.processEvent(ctx, event)
		}
	})
}

func (h *Handler) processEvent(ctx context.Context, event webhook.EventInterface) {
	start := time.Now()

	var (
		eventType  string
		replyToken string
		source     webhook.SourceInterface
		text       string
	)
	switch e := event.(type) {
	case webhook.MessageEvent:
		eventType = "message"
		replyToken, source = e.ReplyToken, e.Source
		msg, ok := e.Message.(webhook.TextMessageContent)
		if !ok {
			h.metrics.RecordWebhook(eventType, "ignored", time.Since(start).Seconds())
			return
		}
		text = msg.Text
		if !isPersonalChat(source) {
			// Groups and rooms only get answers when the bot is mentioned.
			spans := selfMentions(msg.Mention)
			if len(spans) == 0 {
				h.metrics.RecordWebhook(eventType, "ignored", time.Since(start).Seconds())
				return
			}
			text = stripMentions(msg.Text, spans)
		}
		if eventID := e.WebhookEventId; eventID != "" {
			ctx = ctxutil.WithRequestID(ctx, eventID)
		}
	case webhook.FollowEvent:
		eventType = "follow"
		replyToken, source = e.ReplyToken, e.Source
	default:
		h.logger.WithField("event_type", fmt.Sprintf("%T", e)).Debug("Unsupported event type")
		return
	}

	lineUserID := userID(source)
	ctx = ctxutil.WithChannel(ctx, ctxutil.ChannelLINE)
	if lineUserID != "" {
		ctx = ctxutil.WithLineUserID(ctx, lineUserID)
	}
	ctx, cancel := context.WithTimeout(ctx, config.WebhookProcessing)
	defer cancel()

	var reply string
	if eventType == "follow" {
		reply = welcomeMessage
	} else {
		if chatID := chatID(source); chatID != "" {
			if err := h.messenger.ShowLoading(ctx, chatID); err != nil {
				h.logger.WithError(err).DebugContext(ctx, "Failed to show loading animation")
			}
		}
		reply = h.handleText(ctx, lineUserID, text)
	}

	status := "success"
	if replyToken == "" || reply == "" {
		status = "no_reply"
	} else if err := h.messenger.Reply(ctx, replyToken, reply); err != nil {
		status = "reply_error"
		h.logger.WithError(err).ErrorContext(ctx, "Failed to send reply")
	}

	h.metrics.RecordWebhook(eventType, status, time.Since(start).Seconds())
	h.logger.WithFields(map[string]any{
		"event_type":  eventType,
		"status":      status,
		"duration_ms": time.Since(start).Milliseconds(),
	}).InfoContext(ctx, "Event processed")
}

// Shutdown waits for async event processing to complete or ctx to end.
func (h *Handler) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.wg.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func isPersonalChat(source webhook.SourceInterface) bool {
	_, ok := source.(webhook.UserSource)
	return ok
}

func userID(source webhook.SourceInterface) string {
	switch s := source.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.UserId
	case webhook.RoomSource:
		return s.UserId
	}
	return ""
}

func chatID(source webhook.SourceInterface) string {
	switch s := source.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.GroupId
	case webhook.RoomSource:
		return s.RoomId
	}
	return ""
}

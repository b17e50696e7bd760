package app

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campussathi/campussathi-go/internal/config"
	"github.com/campussathi/campussathi-go/internal/ctxutil"
	"github.com/campussathi/campussathi-go/internal/ratelimit"
	"github.com/campussathi/campussathi-go/internal/router"
)

// Chat replies that are not produced by the router.
const (
	emptyMessageError = "Message is required."
	chatTooFast       = "Too many messages. Please wait a moment and try again."
	chatDailyLimit    = "Daily question limit reached. Please try again tomorrow."
)

// chatRouter answers one chat message.
type chatRouter interface {
	Route(ctx context.Context, req router.Request) string
}

type chatRequest struct {
	UID      string `json:"uid"`
	Message  string `json:"message"`
	Language string `json:"language"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

// handleChat answers POST /chat.
func (a *Application) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body."})
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": emptyMessageError})
		return
	}
	uid := strings.TrimSpace(req.UID)

	switch a.chatLimiter.Decide(chatLimitKey(uid, c.ClientIP())) {
	case ratelimit.DeniedBurst:
		c.JSON(http.StatusTooManyRequests, gin.H{"error": chatTooFast})
		return
	case ratelimit.DeniedDaily:
		c.JSON(http.StatusTooManyRequests, gin.H{"error": chatDailyLimit})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), config.ChatProcessing)
	defer cancel()
	ctx = ctxutil.WithChannel(ctx, ctxutil.ChannelWeb)
	if uid != "" {
		ctx = ctxutil.WithStudentUID(ctx, uid)
	}

	reply := a.chat.Route(ctx, router.Request{
		Query: withLanguage(message, req.Language),
		UID:   uid,
	})
	c.JSON(http.StatusOK, chatResponse{Reply: reply})
}

// withLanguage prefixes message with a reply language nudge.
func withLanguage(message, language string) string {
	language = strings.TrimSpace(language)
	if language == "" {
		return message
	}
	return "Please answer in " + language + ". " + message
}

// chatLimitKey limits students by uid and anonymous users by client IP.
func chatLimitKey(uid, clientIP string) string {
	if uid != "" {
		return "uid:" + uid
	}
	return "ip:" + clientIP
}

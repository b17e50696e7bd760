package webhook

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/campussathi/campussathi-go/internal/ratelimit"
)

// maxTextRunes is the LINE limit for one text message.
const maxTextRunes = 5000

// Messenger sends replies to LINE.
type Messenger interface {
	Reply(ctx context.Context, replyToken, text string) error
	ShowLoading(ctx context.Context, chatID string) error
}

// LineMessenger sends replies through the Messaging API, throttled by a
// global limiter so bursts stay under the channel's API quota.
type LineMessenger struct {
	api     *messaging_api.MessagingApiAPI
	limiter *ratelimit.Limiter
}

// NewLineMessenger creates a messenger for the channel access token.
// rps caps outbound calls per second.
func NewLineMessenger(channelToken string, rps float64) (*LineMessenger, error) {
	api, err := messaging_api.NewMessagingApiAPI(channelToken)
	if err != nil {
		return nil, fmt.Errorf("create messaging API client: %w", err)
	}
	return &LineMessenger{api: api, limiter: ratelimit.New(rps, rps)}, nil
}

// Reply sends text as a single message.
func (m *LineMessenger) Reply(ctx context.Context, replyToken, text string) error {
	if err := m.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := m.api.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   []messaging_api.MessageInterface{&messaging_api.TextMessage{Text: truncate(text)}},
	})
	if err != nil {
		return fmt.Errorf("reply message: %w", err)
	}
	return nil
}

// ShowLoading shows the typing indicator for up to a minute, matching
// the event processing timeout.
func (m *LineMessenger) ShowLoading(ctx context.Context, chatID string) error {
	if err := m.limiter.Wait(ctx); err != nil {
		return err
	}
	if _, err := m.api.ShowLoadingAnimation(&messaging_api.ShowLoadingAnimationRequest{
		ChatId:         chatID,
		LoadingSeconds: 60,
	}); err != nil {
		return fmt.Errorf("show loading animation: %w", err)
	}
	return nil
}

func truncate(text string) string {
	if utf8.RuneCountInString(text) <= maxTextRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxTextRunes-3]) + "..."
}

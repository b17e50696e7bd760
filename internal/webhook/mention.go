package webhook

import (
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

// span is a rune range of message text.
type span struct {
	start, end int
}

// selfMentions returns the spans where the message mentions this bot.
func selfMentions(m *webhook.Mention) []span {
	if m == nil {
		return nil
	}
	var spans []span
	for _, mentionee := range m.Mentionees {
		u, ok := mentionee.(webhook.UserMentionee)
		if !ok || !u.IsSelf {
			continue
		}
		spans = append(spans, span{start: int(u.Index), end: int(u.Index + u.Length)})
	}
	return spans
}

// stripMentions removes spans from text and collapses whitespace, so
// "@CampusSathi  what are the fees?" is routed as "what are the fees?".
// LINE indexes count runes. Out-of-range spans are clipped.
func stripMentions(text string, spans []span) string {
	if len(spans) == 0 {
		return text
	}
	runes := []rune(text)
	drop := make([]bool, len(runes))
	for _, s := range spans {
		for i := max(s.start, 0); i < min(s.end, len(runes)); i++ {
			drop[i] = true
		}
	}
	kept := make([]rune, 0, len(runes))
	for i, r := range runes {
		if !drop[i] {
			kept = append(kept, r)
		}
	}
	return strings.Join(strings.Fields(string(kept)), " ")
}

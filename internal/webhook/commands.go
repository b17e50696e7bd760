package webhook

import (
	"context"
	"strings"

	"github.com/campussathi/campussathi-go/internal/ratelimit"
	"github.com/campussathi/campussathi-go/internal/router"
)

const welcomeMessage = "👋 Hi, I'm CampusSathi, your college help desk.\n\n" +
	"Ask me anything about the college. To get your timetable or fee status, " +
	"link your student ID first:\n  link <your UID>\n\nSend \"help\" to see this again."

const helpMessage = "💡 Commands\n" +
	"  link <UID>  connect your student ID\n" +
	"  unlink      forget your student ID\n" +
	"  whoami      show the linked student ID\n\n" +
	"Anything else is answered as a question, e.g. \"What's my timetable on Monday?\""

// Command replies.
const (
	linkUsage        = "Usage: link <UID>"
	linkUnknownUID   = "❌ UID not found in student DB."
	unlinkedMessage  = "🔓 Your student ID was unlinked."
	notLinkedMessage = "You have not linked a student ID yet. Send: link <UID>"
	rateLimitedBurst = "⏳ You're sending messages too quickly. Please wait a moment."
	rateLimitedDaily = "⏳ You've reached today's question limit. Please try again tomorrow."
	commandFailed    = "⚠️ Something went wrong. Please try again later."
)

// handleText answers one text message from lineUserID.
func (h *Handler) handleText(ctx context.Context, lineUserID, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	fields := strings.Fields(text)
	switch strings.ToLower(fields[0]) {
	case "help", "/help":
		if len(fields) == 1 {
			return helpMessage
		}
	case "link", "/link":
		if len(fields) != 2 {
			return linkUsage
		}
		return h.link(ctx, lineUserID, fields[1])
	case "unlink", "/unlink":
		if len(fields) == 1 {
			return h.unlink(ctx, lineUserID)
		}
	case "whoami", "/whoami":
		if len(fields) == 1 {
			return h.whoami(ctx, lineUserID)
		}
	}

	if h.userLimiter != nil {
		switch h.userLimiter.Decide(lineUserID) {
		case ratelimit.DeniedBurst:
			return rateLimitedBurst
		case ratelimit.DeniedDaily:
			return rateLimitedDaily
		}
	}

	return h.router.Route(ctx, router.Request{Query: text, UID: h.boundUID(ctx, lineUserID)})
}

func (h *Handler) link(ctx context.Context, lineUserID, uid string) string {
	if lineUserID == "" {
		return commandFailed
	}
	student, err := h.store.GetStudent(ctx, uid)
	if err != nil {
		h.logger.WithError(err).ErrorContext(ctx, "Failed to look up student for link")
		return commandFailed
	}
	if student == nil {
		return linkUnknownUID
	}
	if err := h.store.BindLineUser(ctx, lineUserID, student.UID); err != nil {
		h.logger.WithError(err).ErrorContext(ctx, "Failed to bind LINE user")
		return commandFailed
	}
	h.logger.WithField("uid", student.UID).InfoContext(ctx, "LINE user linked")
	return "🔗 Linked to " + student.UID + " (" + student.Name + ")."
}

func (h *Handler) unlink(ctx context.Context, lineUserID string) string {
	removed, err := h.store.UnbindLineUser(ctx, lineUserID)
	if err != nil {
		h.logger.WithError(err).ErrorContext(ctx, "Failed to unbind LINE user")
		return commandFailed
	}
	if !removed {
		return notLinkedMessage
	}
	return unlinkedMessage
}

func (h *Handler) whoami(ctx context.Context, lineUserID string) string {
	uid := h.boundUID(ctx, lineUserID)
	if uid == "" {
		return notLinkedMessage
	}
	return "🪪 Linked student ID: " + uid
}

// boundUID returns the uid linked to lineUserID, or "" when none is.
// Lookup failures degrade to an anonymous request.
func (h *Handler) boundUID(ctx context.Context, lineUserID string) string {
	if lineUserID == "" {
		return ""
	}
	b, err := h.store.GetLineBinding(ctx, lineUserID)
	if err != nil {
		h.logger.WithError(err).WarnContext(ctx, "Failed to load LINE binding")
		return ""
	}
	if b == nil {
		return ""
	}
	return b.UID
}

package chat

import (
	"regexp"
	"strings"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is immutable once built; History copies on append.
type Message struct {
	Role Role
	Text string
}

// History is a session's conversation. Messages[0] is always the single
// system message; later entries are never system messages.
type History struct {
	SessionID string
	Messages  []Message
}

func NewHistory(sessionID, systemPrompt string) History {
	return History{
		SessionID: sessionID,
		Messages:  []Message{{Role: RoleSystem, Text: systemPrompt}},
	}
}

// Append returns a copy of h with msgs added; h is left untouched.
func (h History) Append(msgs ...Message) History {
	out := make([]Message, 0, len(h.Messages)+len(msgs))
	out = append(out, h.Messages...)
	out = append(out, msgs...)
	return History{SessionID: h.SessionID, Messages: out}
}

// System returns the leading system message, or a zero Message.
func (h History) System() Message {
	if len(h.Messages) > 0 && h.Messages[0].Role == RoleSystem {
		return h.Messages[0]
	}
	return Message{Role: RoleSystem}
}

// Fragment is one retrieved document excerpt.
type Fragment struct {
	Text   string
	Source string
}

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// ValidSessionID reports whether id is safe to use in a storage key.
func ValidSessionID(id string) bool {
	return sessionIDPattern.MatchString(strings.TrimSpace(id))
}

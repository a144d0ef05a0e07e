package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/casechat-backend/internal/platform/blob"
	"github.com/yungbote/casechat-backend/internal/platform/logger"
)

const (
	recordSystem = "SYSTEM"
	recordUser   = "USER"
	recordBot    = "BOT"
)

// record is one persisted history entry.
type record struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

// HistoryStore persists one JSON record per session in a blob store. Saves
// overwrite unconditionally; concurrent cycles on one session race unless
// the caller holds a session lock.
type HistoryStore struct {
	log          *logger.Logger
	blobs        blob.Store
	prefix       string
	systemPrompt string
}

func NewHistoryStore(log *logger.Logger, blobs blob.Store, keyPrefix, systemPrompt string) (*HistoryStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if blobs == nil {
		return nil, fmt.Errorf("blob store required")
	}
	return &HistoryStore{
		log:          log.With("service", "SessionHistoryStore"),
		blobs:        blobs,
		prefix:       keyPrefix,
		systemPrompt: systemPrompt,
	}, nil
}

func (s *HistoryStore) key(sessionID string) string {
	return s.prefix + sessionID + ".json"
}

// Load returns the persisted history, or a fresh one when nothing is stored
// or the record cannot be parsed. Only storage failures are errors.
func (s *HistoryStore) Load(ctx context.Context, sessionID string) (History, error) {
	raw, err := s.blobs.Get(ctx, s.key(sessionID))
	if errors.Is(err, blob.ErrNotFound) {
		return NewHistory(sessionID, s.systemPrompt), nil
	}
	if err != nil {
		return History{}, fmt.Errorf("load session history: %w", err)
	}

	msgs, err := decodeRecords(raw)
	if err != nil {
		s.log.Warn("Unreadable session history; starting fresh", "session_id", sessionID, "error", err)
		return NewHistory(sessionID, s.systemPrompt), nil
	}
	return s.normalize(sessionID, msgs), nil
}

// normalize keeps a leading system message and drops any later ones. When
// the record does not start with one, the configured prompt is prepended.
func (s *HistoryStore) normalize(sessionID string, msgs []Message) History {
	out := make([]Message, 0, len(msgs)+1)
	if len(msgs) > 0 && msgs[0].Role == RoleSystem {
		out = append(out, msgs[0])
		msgs = msgs[1:]
	} else {
		out = append(out, Message{Role: RoleSystem, Text: s.systemPrompt})
	}
	for _, m := range msgs {
		if m.Role == RoleSystem {
			continue
		}
		out = append(out, m)
	}
	return History{SessionID: sessionID, Messages: out}
}

func (s *HistoryStore) Save(ctx context.Context, h History) error {
	raw, err := encodeRecords(h.Messages)
	if err != nil {
		return fmt.Errorf("encode session history: %w", err)
	}
	if err := s.blobs.Put(ctx, s.key(h.SessionID), raw, "application/json"); err != nil {
		return fmt.Errorf("save session history: %w", err)
	}
	return nil
}

func encodeRecords(msgs []Message) ([]byte, error) {
	recs := make([]record, 0, len(msgs))
	for _, m := range msgs {
		var role string
		switch m.Role {
		case RoleSystem:
			role = recordSystem
		case RoleUser:
			role = recordUser
		case RoleAssistant:
			role = recordBot
		default:
			return nil, fmt.Errorf("unknown role %q", m.Role)
		}
		recs = append(recs, record{Role: role, Message: m.Text})
	}
	return json.Marshal(recs)
}

func decodeRecords(raw []byte) ([]Message, error) {
	var recs []record
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, err
	}
	msgs := make([]Message, 0, len(recs))
	for i, r := range recs {
		var role Role
		switch strings.ToUpper(strings.TrimSpace(r.Role)) {
		case recordSystem:
			role = RoleSystem
		case recordUser:
			role = RoleUser
		case recordBot:
			role = RoleAssistant
		default:
			return nil, fmt.Errorf("record %d: unknown role %q", i, r.Role)
		}
		msgs = append(msgs, Message{Role: role, Text: r.Message})
	}
	return msgs, nil
}

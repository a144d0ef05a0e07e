package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/casechat-backend/internal/observability"
	"github.com/yungbote/casechat-backend/internal/platform/logger"
)

var ErrEmptyQuery = errors.New("message is required")

type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]Fragment, error)
}

type Completer interface {
	Complete(ctx context.Context, prompt []Message) (string, error)
}

type HistoryLoadSaver interface {
	Load(ctx context.Context, sessionID string) (History, error)
	Save(ctx context.Context, h History) error
}

// SessionLocker serializes request cycles on one session. The returned func
// releases the lock.
type SessionLocker interface {
	Lock(ctx context.Context, sessionID string) (func(), error)
}

type Reply struct {
	SessionID string
	Text      string
	Fragments int
}

type OrchestratorConfig struct {
	TopK int `yaml:"top_k"`
}

type Orchestrator struct {
	log       *logger.Logger
	retriever Retriever
	completer Completer
	history   HistoryLoadSaver
	locker    SessionLocker
	topK      int
}

// NewOrchestrator wires one request cycle. locker may be nil, in which case
// same-session requests race on the history record.
func NewOrchestrator(log *logger.Logger, retriever Retriever, completer Completer, history HistoryLoadSaver, locker SessionLocker, cfg OrchestratorConfig) (*Orchestrator, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if retriever == nil || completer == nil || history == nil {
		return nil, fmt.Errorf("orchestrator: retriever, completer and history store are required")
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = 5
	}
	return &Orchestrator{
		log:       log.With("service", "ConversationOrchestrator"),
		retriever: retriever,
		completer: completer,
		history:   history,
		locker:    locker,
		topK:      topK,
	}, nil
}

// Respond runs retrieval and history load concurrently, assembles the
// prompt, completes it and persists the updated history. If completion
// fails, the history with only the user turn appended is saved and the
// completion error is returned.
func (o *Orchestrator) Respond(ctx context.Context, sessionID, query string) (Reply, error) {
	if strings.TrimSpace(query) == "" {
		return Reply{}, ErrEmptyQuery
	}
	ctx, span := observability.Tracer().Start(ctx, "chat.Respond")
	defer span.End()

	if o.locker != nil {
		unlock, err := o.locker.Lock(ctx, sessionID)
		if err != nil {
			span.RecordError(err)
			return Reply{}, fmt.Errorf("lock session: %w", err)
		}
		defer unlock()
	}

	var (
		fragments []Fragment
		history   History
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fs, err := o.retriever.Retrieve(gctx, query, o.topK)
		if err != nil {
			return fmt.Errorf("retrieve fragments: %w", err)
		}
		fragments = fs
		return nil
	})
	g.Go(func() error {
		h, err := o.history.Load(gctx, sessionID)
		if err != nil {
			return err
		}
		history = h
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "gather context")
		return Reply{}, err
	}
	span.SetAttributes(
		attribute.Int("chat.fragments", len(fragments)),
		attribute.Int("chat.history_messages", len(history.Messages)),
	)

	prompt, updated := Assemble(history, fragments, query)

	answer, err := o.completer.Complete(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "complete")
		if saveErr := o.history.Save(ctx, updated); saveErr != nil {
			o.log.Warn("Save after failed completion failed", "session_id", sessionID, "error", saveErr)
		}
		return Reply{}, fmt.Errorf("complete prompt: %w", err)
	}

	updated = updated.Append(Message{Role: RoleAssistant, Text: answer})
	if err := o.history.Save(ctx, updated); err != nil {
		span.RecordError(err)
		return Reply{}, err
	}

	o.log.Debug("Chat turn complete",
		"session_id", sessionID,
		"fragments", len(fragments),
		"history_messages", len(updated.Messages),
	)
	return Reply{SessionID: sessionID, Text: answer, Fragments: len(fragments)}, nil
}

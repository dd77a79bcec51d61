// Package chat handles room messages and reactions. Messages persist in the
// store so late joiners see recent history; the bus event only tells current
// members to refresh without waiting on the store watch.
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	logging "github.com/ipfs/go-log/v2"

	"github.com/auxroom/auxroom/internal/bus"
	"github.com/auxroom/auxroom/internal/core"
	auxerrors "github.com/auxroom/auxroom/internal/errors"
	"github.com/auxroom/auxroom/internal/store"
)

var log = logging.Logger("chat")

// HistoryLimit is how many messages a client shows by default.
const HistoryLimit = 50

// Service posts messages and reactions for one user.
type Service struct {
	store store.Store
	bus   bus.Bus
	clock func() time.Time
}

// NewService creates a chat service on the given transports.
func NewService(st store.Store, b bus.Bus) *Service {
	return &Service{store: st, bus: b, clock: time.Now}
}

// Send posts a message to the room. Empty and whitespace-only bodies are
// dropped without error.
func (s *Service) Send(ctx context.Context, roomID string, from core.User, body string) (*core.ChatMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, nil
	}
	msg := core.ChatMessage{
		ID:       uuid.NewString(),
		UserID:   from.ID,
		UserName: from.Name,
		Body:     body,
		SentAt:   s.clock().UnixMilli(),
	}
	if err := s.store.AppendMessage(ctx, roomID, msg); err != nil {
		return nil, auxerrors.WriteFailure("send message", err)
	}
	s.announce(ctx, bus.Event{
		Type:     bus.TypeNewMessage,
		RoomID:   roomID,
		UserID:   from.ID,
		UserName: from.Name,
		Message:  &msg,
	})
	return &msg, nil
}

// React bumps a room-wide reaction counter, the ambient "crowd noise"
// shown next to the player.
func (s *Service) React(ctx context.Context, roomID string, from core.User, emoji string) (int64, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return 0, nil
	}
	count, err := s.store.IncrReaction(ctx, roomID, emoji)
	if err != nil {
		return 0, auxerrors.WriteFailure("react", err)
	}
	s.announce(ctx, bus.Event{
		Type:     bus.TypeNewReaction,
		RoomID:   roomID,
		UserID:   from.ID,
		UserName: from.Name,
		Reaction: emoji,
	})
	return count, nil
}

// ReactToMessage attaches an emoji to a specific chat message.
func (s *Service) ReactToMessage(ctx context.Context, roomID string, from core.User, messageID, emoji string) error {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" || messageID == "" {
		return nil
	}
	r := core.MessageReaction{
		MessageID: messageID,
		Emoji:     emoji,
		UserID:    from.ID,
		UserName:  from.Name,
		Timestamp: s.clock().UnixMilli(),
	}
	if err := s.store.AddMessageReaction(ctx, roomID, r); err != nil {
		return auxerrors.WriteFailure("react to message", err)
	}
	s.announce(ctx, bus.Event{
		Type:            bus.TypeMessageReaction,
		RoomID:          roomID,
		UserID:          from.ID,
		UserName:        from.Name,
		MessageReaction: &r,
	})
	return nil
}

// History returns the most recent messages, oldest first.
func (s *Service) History(ctx context.Context, roomID string, limit int) ([]core.ChatMessage, error) {
	if limit <= 0 {
		limit = HistoryLimit
	}
	return s.store.Messages(ctx, roomID, limit)
}

// Reactions returns the room-wide reaction counters.
func (s *Service) Reactions(ctx context.Context, roomID string) (map[string]int64, error) {
	return s.store.Reactions(ctx, roomID)
}

func (s *Service) announce(ctx context.Context, evt bus.Event) {
	if err := s.bus.Publish(ctx, evt); err != nil {
		log.Debugw("announce failed", "room", evt.RoomID, "type", evt.Type, "err", err)
	}
}

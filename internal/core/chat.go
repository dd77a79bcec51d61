package core

// ChatMessage is one entry in a room's append-only message log.
type ChatMessage struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	Body     string `json:"body"`
	SentAt   int64  `json:"sent_at"` // unix milliseconds
}

// MessageReaction records one user's emoji reaction to a message.
type MessageReaction struct {
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	Timestamp int64  `json:"timestamp"`
}

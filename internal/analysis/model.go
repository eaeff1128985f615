package analysis

import (
	"time"

	"github.com/chatlens/cadence/internal/latency"
)

// Result statuses persisted alongside an analysis.
const (
	StatusOK               = "ok"
	StatusInsufficientData = "insufficient_data"
)

// Conversation is the stored metadata for an ingested message log.
type Conversation struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Participants []string  `json:"participants"`
	MessageCount int       `json:"messageCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IncomingMessage is one message of an ingest request. Indices are assigned
// server-side in arrival order; senders must come from the participant list.
type IncomingMessage struct {
	Sender      string `json:"sender"`
	TimestampMs int64  `json:"timestampMs"`
	Content     string `json:"content"`
}

// CreateConversationRequest starts a new conversation, optionally seeded
// with an initial message batch.
type CreateConversationRequest struct {
	Title        string            `json:"title"`
	Participants []string          `json:"participants"`
	Messages     []IncomingMessage `json:"messages,omitempty"`
}

// AppendMessagesRequest adds a batch to an existing conversation.
type AppendMessagesRequest struct {
	Messages []IncomingMessage `json:"messages"`
}

// MetricsDocument is what the metrics endpoint serves and the cache stores:
// either a populated metrics record or the insufficient-data marker, never a
// partial mix.
type MetricsDocument struct {
	ConversationID string           `json:"conversationId"`
	Status         string           `json:"status"`
	Metrics        *latency.Metrics `json:"metrics,omitempty"`
	AnalyzedAt     time.Time        `json:"analyzedAt"`
}

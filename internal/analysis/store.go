package analysis

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/chatlens/cadence/internal/latency"
)

// Store persists conversations, their message logs and analysis results to
// PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore creates a new store.
func NewStore(db *sql.DB) *Store {
	if db == nil {
		return nil
	}
	return &Store{db: db}
}

// CreateConversation inserts conversation metadata and returns the record.
func (s *Store) CreateConversation(ctx context.Context, title string, participants []string) (*Conversation, error) {
	now := time.Now().UTC()
	conv := &Conversation{
		ID:           uuid.NewString(),
		Title:        title,
		Participants: participants,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, title, participants, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)`,
		conv.ID, conv.Title, pq.Array(conv.Participants), now)
	if err != nil {
		return nil, fmt.Errorf("analysis: failed to insert conversation: %w", err)
	}
	return conv, nil
}

// GetConversation returns conversation metadata, or nil when unknown.
func (s *Store) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	var c Conversation
	err := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.title, c.participants, c.created_at, c.updated_at,
		       (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id)
		FROM conversations c WHERE c.id = $1`, id).Scan(
		&c.ID, &c.Title, pq.Array(&c.Participants), &c.CreatedAt, &c.UpdatedAt, &c.MessageCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("analysis: failed to load conversation: %w", err)
	}
	if c.Participants == nil {
		c.Participants = []string{}
	}
	return &c, nil
}

// AppendMessages inserts a batch, assigning indices after the current tail.
func (s *Store) AppendMessages(ctx context.Context, conversationID string, msgs []IncomingMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("analysis: failed to begin append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var next int
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(idx) + 1, 0) FROM messages WHERE conversation_id = $1`,
		conversationID).Scan(&next); err != nil {
		return fmt.Errorf("analysis: failed to read message tail: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (conversation_id, idx, sender, timestamp_ms, content)
		VALUES ($1, $2, $3, $4, $5)`)
	if err != nil {
		return fmt.Errorf("analysis: failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, m := range msgs {
		if _, err := stmt.ExecContext(ctx, conversationID, next+i, m.Sender, m.TimestampMs, m.Content); err != nil {
			return fmt.Errorf("analysis: failed to insert message %d: %w", next+i, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE conversations SET updated_at = $2 WHERE id = $1`,
		conversationID, time.Now().UTC()); err != nil {
		return fmt.Errorf("analysis: failed to touch conversation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("analysis: failed to commit append: %w", err)
	}
	return nil
}

// LoadMessages returns the full ordered message log for the engine.
func (s *Store) LoadMessages(ctx context.Context, conversationID string) ([]latency.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, sender, timestamp_ms, content
		FROM messages WHERE conversation_id = $1
		ORDER BY timestamp_ms ASC, idx ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("analysis: failed to load messages: %w", err)
	}
	defer rows.Close()

	var out []latency.Message
	for rows.Next() {
		var m latency.Message
		if err := rows.Scan(&m.Index, &m.Sender, &m.TimestampMs, &m.Content); err != nil {
			return nil, fmt.Errorf("analysis: failed to scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SaveResult upserts the latest analysis outcome for a conversation. Metrics
// may be nil when the status is the insufficient-data marker.
func (s *Store) SaveResult(ctx context.Context, doc *MetricsDocument) error {
	var payload []byte
	if doc.Metrics != nil {
		var err error
		payload, err = json.Marshal(doc.Metrics)
		if err != nil {
			return fmt.Errorf("analysis: failed to marshal metrics: %w", err)
		}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analysis_results (conversation_id, status, metrics, analyzed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (conversation_id) DO UPDATE SET
		    status = EXCLUDED.status, metrics = EXCLUDED.metrics,
		    analyzed_at = EXCLUDED.analyzed_at`,
		doc.ConversationID, doc.Status, payload, doc.AnalyzedAt)
	if err != nil {
		return fmt.Errorf("analysis: failed to save result: %w", err)
	}
	return nil
}

// GetResult returns the stored analysis outcome, or nil when the
// conversation was never analyzed.
func (s *Store) GetResult(ctx context.Context, conversationID string) (*MetricsDocument, error) {
	doc := &MetricsDocument{ConversationID: conversationID}
	var payload []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT status, metrics, analyzed_at
		FROM analysis_results WHERE conversation_id = $1`, conversationID).Scan(
		&doc.Status, &payload, &doc.AnalyzedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("analysis: failed to load result: %w", err)
	}
	if len(payload) > 0 {
		doc.Metrics = &latency.Metrics{}
		if err := json.Unmarshal(payload, doc.Metrics); err != nil {
			return nil, fmt.Errorf("analysis: failed to decode stored metrics: %w", err)
		}
	}
	return doc, nil
}

// DeleteConversation removes the conversation, its messages and any stored
// result.
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("analysis: failed to delete conversation: %w", err)
	}
	return nil
}

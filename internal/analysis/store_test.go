package analysis

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatlens/cadence/internal/latency"
)

func newStoreMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func TestStore_CreateConversation(t *testing.T) {
	store, mock := newStoreMock(t)

	mock.ExpectExec("INSERT INTO conversations").
		WithArgs(sqlmock.AnyArg(), "weekly sync", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	conv, err := store.CreateConversation(context.Background(), "weekly sync", []string{"alice", "bob"})
	require.NoError(t, err)
	assert.NotEmpty(t, conv.ID)
	assert.Equal(t, []string{"alice", "bob"}, conv.Participants)
	assert.False(t, conv.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetConversation_NotFound(t *testing.T) {
	store, mock := newStoreMock(t)

	mock.ExpectQuery("SELECT c.id, c.title").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	conv, err := store.GetConversation(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, conv)
}

func TestStore_GetConversation(t *testing.T) {
	store, mock := newStoreMock(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "title", "participants", "created_at", "updated_at", "count"}).
		AddRow("conv-1", "weekly sync", []byte("{alice,bob}"), now, now, 42)
	mock.ExpectQuery("SELECT c.id, c.title").
		WithArgs("conv-1").
		WillReturnRows(rows)

	conv, err := store.GetConversation(context.Background(), "conv-1")
	require.NoError(t, err)
	require.NotNil(t, conv)
	assert.Equal(t, "conv-1", conv.ID)
	assert.Equal(t, []string{"alice", "bob"}, conv.Participants)
	assert.Equal(t, 42, conv.MessageCount)
}

func TestStore_AppendMessages_AssignsIndicesAfterTail(t *testing.T) {
	store, mock := newStoreMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COALESCE").
		WithArgs("conv-1").
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(3))
	prep := mock.ExpectPrepare("INSERT INTO messages")
	prep.ExpectExec().
		WithArgs("conv-1", 3, "alice", int64(1000), "hi").
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs("conv-1", 4, "bob", int64(2000), "hello").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE conversations SET updated_at").
		WithArgs("conv-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.AppendMessages(context.Background(), "conv-1", []IncomingMessage{
		{Sender: "alice", TimestampMs: 1000, Content: "hi"},
		{Sender: "bob", TimestampMs: 2000, Content: "hello"},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_AppendMessages_EmptyBatch(t *testing.T) {
	store, mock := newStoreMock(t)

	require.NoError(t, store.AppendMessages(context.Background(), "conv-1", nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_LoadMessages(t *testing.T) {
	store, mock := newStoreMock(t)

	rows := sqlmock.NewRows([]string{"idx", "sender", "timestamp_ms", "content"}).
		AddRow(0, "alice", int64(1000), "hi").
		AddRow(1, "bob", int64(61000), "hello")
	mock.ExpectQuery("SELECT idx, sender, timestamp_ms, content").
		WithArgs("conv-1").
		WillReturnRows(rows)

	msgs, err := store.LoadMessages(context.Background(), "conv-1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "alice", msgs[0].Sender)
	assert.Equal(t, int64(61000), msgs[1].TimestampMs)
}

func TestStore_SaveAndGetResult(t *testing.T) {
	store, mock := newStoreMock(t)

	analyzedAt := time.Now().UTC()
	doc := &MetricsDocument{
		ConversationID: "conv-1",
		Status:         StatusOK,
		Metrics:        &latency.Metrics{AdaptiveSessionGapMs: 30 * 60 * 1000},
		AnalyzedAt:     analyzedAt,
	}
	payload, err := json.Marshal(doc.Metrics)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO analysis_results").
		WithArgs("conv-1", StatusOK, payload, analyzedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.SaveResult(context.Background(), doc))

	rows := sqlmock.NewRows([]string{"status", "metrics", "analyzed_at"}).
		AddRow(StatusOK, payload, analyzedAt)
	mock.ExpectQuery("SELECT status, metrics, analyzed_at").
		WithArgs("conv-1").
		WillReturnRows(rows)

	got, err := store.GetResult(context.Background(), "conv-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, StatusOK, got.Status)
	require.NotNil(t, got.Metrics)
	assert.Equal(t, int64(30*60*1000), got.Metrics.AdaptiveSessionGapMs)
}

func TestStore_SaveResult_InsufficientData(t *testing.T) {
	store, mock := newStoreMock(t)

	doc := &MetricsDocument{
		ConversationID: "conv-1",
		Status:         StatusInsufficientData,
		AnalyzedAt:     time.Now().UTC(),
	}
	mock.ExpectExec("INSERT INTO analysis_results").
		WithArgs("conv-1", StatusInsufficientData, []byte(nil), doc.AnalyzedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.SaveResult(context.Background(), doc))
}

func TestStore_GetResult_NotFound(t *testing.T) {
	store, mock := newStoreMock(t)

	mock.ExpectQuery("SELECT status, metrics, analyzed_at").
		WithArgs("conv-1").
		WillReturnError(sql.ErrNoRows)

	got, err := store.GetResult(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_DeleteConversation(t *testing.T) {
	store, mock := newStoreMock(t)

	mock.ExpectExec("DELETE FROM conversations").
		WithArgs("conv-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.DeleteConversation(context.Background(), "conv-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

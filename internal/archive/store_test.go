package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatlens/cadence/internal/analysis"
	"github.com/chatlens/cadence/internal/latency"
)

// mockS3Client records PutObject/GetObject calls for testing.
type mockS3Client struct {
	putCalls []putCall
	objects  map[string][]byte
}

type putCall struct {
	bucket string
	key    string
	body   []byte
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, _ := io.ReadAll(input.Body)
	m.putCalls = append(m.putCalls, putCall{
		bucket: *input.Bucket,
		key:    *input.Key,
		body:   body,
	})
	m.objects[*input.Key] = body
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, &notFoundError{}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(data)),
	}, nil
}

type notFoundError struct{}

func (e *notFoundError) Error() string { return "NoSuchKey: key not found" }

func TestStore_ArchiveResult(t *testing.T) {
	mock := newMockS3()
	store := NewStore(mock, "test-bucket", nil)

	analyzedAt := time.Date(2026, 2, 12, 15, 0, 0, 0, time.UTC)
	doc := &analysis.MetricsDocument{
		ConversationID: "conv-123",
		Status:         analysis.StatusOK,
		Metrics:        &latency.Metrics{AdaptiveSessionGapMs: 30 * 60 * 1000},
		AnalyzedAt:     analyzedAt,
	}

	err := store.ArchiveResult(context.Background(), doc)
	require.NoError(t, err)

	// First put is the snapshot, second is the manifest.
	require.Len(t, mock.putCalls, 2)
	assert.Equal(t, "test-bucket", mock.putCalls[0].bucket)
	assert.Equal(t, "analyses/v1/by-date/2026/02/12/conv-123.json", mock.putCalls[0].key)

	var stored analysis.MetricsDocument
	require.NoError(t, json.Unmarshal(mock.putCalls[0].body, &stored))
	assert.Equal(t, "conv-123", stored.ConversationID)
	assert.Equal(t, analysis.StatusOK, stored.Status)

	assert.True(t, strings.HasSuffix(mock.putCalls[1].key, ".jsonl"))
}

func TestStore_AppendManifest_Accumulates(t *testing.T) {
	mock := newMockS3()
	store := NewStore(mock, "test-bucket", nil)

	for _, id := range []string{"conv-1", "conv-2"} {
		err := store.AppendManifest(context.Background(), ManifestEntry{
			ConversationID: id,
			S3Key:          "analyses/v1/by-date/2026/02/12/" + id + ".json",
			Status:         analysis.StatusOK,
			ArchivedAt:     time.Now().UTC().Format(time.RFC3339),
		})
		require.NoError(t, err)
	}

	// Last write holds both lines.
	last := mock.putCalls[len(mock.putCalls)-1].body
	lines := strings.Split(strings.TrimSpace(string(last)), "\n")
	require.Len(t, lines, 2)

	var first ManifestEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "conv-1", first.ConversationID)
}

func TestStore_Disabled(t *testing.T) {
	store := NewStore(nil, "", nil)
	assert.False(t, store.Enabled())

	err := store.ArchiveResult(context.Background(), &analysis.MetricsDocument{ConversationID: "conv-1"})
	require.NoError(t, err)
}

package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/chatlens/cadence/pkg/logging"
)

// Enqueuer publishes analysis jobs for asynchronous processing.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobID string, conversationID string, opts ...PublishOption) error
}

// Handler wires HTTP requests to conversation storage and the analysis queue.
type Handler struct {
	store    *Store
	cache    *Cache
	enqueuer Enqueuer
	jobs     JobRecorder
	logger   *logging.Logger
}

// NewHandler creates an analysis handler. The cache is optional.
func NewHandler(store *Store, cache *Cache, enqueuer Enqueuer, jobs JobRecorder, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		store:    store,
		cache:    cache,
		enqueuer: enqueuer,
		jobs:     jobs,
		logger:   logger,
	}
}

// CreateConversation handles POST /v1/conversations.
func (h *Handler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	var req CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode create conversation request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	participants := normalizeParticipants(req.Participants)
	if len(participants) < 2 {
		http.Error(w, "At least two participants are required", http.StatusBadRequest)
		return
	}
	if err := validateMessages(req.Messages, participants); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conv, err := h.store.CreateConversation(r.Context(), strings.TrimSpace(req.Title), participants)
	if err != nil {
		h.logger.Error("failed to create conversation", "error", err)
		http.Error(w, "Failed to create conversation", http.StatusInternalServerError)
		return
	}

	if len(req.Messages) > 0 {
		if err := h.store.AppendMessages(r.Context(), conv.ID, req.Messages); err != nil {
			h.logger.Error("failed to seed conversation messages", "error", err, "conversation_id", conv.ID)
			http.Error(w, "Failed to store messages", http.StatusInternalServerError)
			return
		}
		conv.MessageCount = len(req.Messages)
	}

	h.writeJSON(w, http.StatusCreated, conv)
}

// AppendMessages handles POST /v1/conversations/{conversationID}/messages.
func (h *Handler) AppendMessages(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	var req AppendMessagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode append messages request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Messages) == 0 {
		http.Error(w, "At least one message is required", http.StatusBadRequest)
		return
	}

	conv, err := h.store.GetConversation(r.Context(), conversationID)
	if err != nil {
		h.logger.Error("failed to load conversation", "error", err, "conversation_id", conversationID)
		http.Error(w, "Failed to load conversation", http.StatusInternalServerError)
		return
	}
	if conv == nil {
		http.Error(w, "Conversation not found", http.StatusNotFound)
		return
	}
	if err := validateMessages(req.Messages, conv.Participants); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.store.AppendMessages(r.Context(), conversationID, req.Messages); err != nil {
		h.logger.Error("failed to append messages", "error", err, "conversation_id", conversationID)
		http.Error(w, "Failed to store messages", http.StatusInternalServerError)
		return
	}

	// Stored metrics are stale once new messages arrive.
	h.invalidateCache(r.Context(), conversationID)

	conv.MessageCount += len(req.Messages)
	h.writeJSON(w, http.StatusOK, conv)
}

// Analyze handles POST /v1/conversations/{conversationID}/analyze.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	h.acceptAnalysis(w, r, false)
}

// Reanalyze handles POST /v1/admin/conversations/{conversationID}/reanalyze.
// It drops any cached result before queueing a fresh run.
func (h *Handler) Reanalyze(w http.ResponseWriter, r *http.Request) {
	h.acceptAnalysis(w, r, true)
}

func (h *Handler) acceptAnalysis(w http.ResponseWriter, r *http.Request, dropCache bool) {
	conversationID := chi.URLParam(r, "conversationID")

	conv, err := h.store.GetConversation(r.Context(), conversationID)
	if err != nil {
		h.logger.Error("failed to load conversation", "error", err, "conversation_id", conversationID)
		http.Error(w, "Failed to load conversation", http.StatusInternalServerError)
		return
	}
	if conv == nil {
		http.Error(w, "Conversation not found", http.StatusNotFound)
		return
	}

	if dropCache {
		h.invalidateCache(r.Context(), conversationID)
	}

	jobID := uuid.NewString()
	if h.jobs != nil {
		if err := h.jobs.PutPending(r.Context(), &JobRecord{
			JobID:          jobID,
			ConversationID: conversationID,
		}); err != nil {
			h.logger.Error("failed to record pending job", "error", err, "job_id", jobID)
			http.Error(w, "Failed to queue analysis", http.StatusInternalServerError)
			return
		}
	}

	if err := h.enqueuer.Enqueue(r.Context(), jobID, conversationID); err != nil {
		h.logger.Error("failed to enqueue analysis", "error", err, "conversation_id", conversationID)
		http.Error(w, "Failed to queue analysis", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusAccepted, map[string]string{
		"jobId":          jobID,
		"conversationId": conversationID,
	})
}

// JobStatus handles GET /v1/jobs/{jobID}.
func (h *Handler) JobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		http.Error(w, "Job ID is required", http.StatusBadRequest)
		return
	}
	if h.jobs == nil {
		http.Error(w, "Job tracking is not enabled", http.StatusNotFound)
		return
	}

	job, err := h.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			http.Error(w, "Job not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load job", "error", err, "job_id", jobID)
		http.Error(w, "Failed to load job", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, job)
}

// GetMetrics handles GET /v1/conversations/{conversationID}/metrics.
// The cache is consulted first; misses fall through to the database.
func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	if h.cache != nil {
		doc, err := h.cache.Load(r.Context(), conversationID)
		if err == nil {
			h.writeJSON(w, http.StatusOK, doc)
			return
		}
		if !errors.Is(err, ErrCacheMiss) {
			h.logger.Warn("metrics cache lookup failed", "error", err, "conversation_id", conversationID)
		}
	}

	doc, err := h.store.GetResult(r.Context(), conversationID)
	if err != nil {
		h.logger.Error("failed to load metrics", "error", err, "conversation_id", conversationID)
		http.Error(w, "Failed to load metrics", http.StatusInternalServerError)
		return
	}
	if doc == nil {
		http.Error(w, "No analysis available for this conversation", http.StatusNotFound)
		return
	}

	if h.cache != nil {
		if err := h.cache.Save(r.Context(), doc); err != nil {
			h.logger.Warn("failed to refresh metrics cache", "error", err, "conversation_id", conversationID)
		}
	}

	h.writeJSON(w, http.StatusOK, doc)
}

// DeleteConversation handles DELETE /v1/admin/conversations/{conversationID}.
func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	conv, err := h.store.GetConversation(r.Context(), conversationID)
	if err != nil {
		h.logger.Error("failed to load conversation", "error", err, "conversation_id", conversationID)
		http.Error(w, "Failed to load conversation", http.StatusInternalServerError)
		return
	}
	if conv == nil {
		http.Error(w, "Conversation not found", http.StatusNotFound)
		return
	}

	if err := h.store.DeleteConversation(r.Context(), conversationID); err != nil {
		h.logger.Error("failed to delete conversation", "error", err, "conversation_id", conversationID)
		http.Error(w, "Failed to delete conversation", http.StatusInternalServerError)
		return
	}

	h.invalidateCache(r.Context(), conversationID)
	h.logger.Info("conversation deleted", "conversation_id", conversationID)

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) invalidateCache(ctx context.Context, conversationID string) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Invalidate(ctx, conversationID); err != nil {
		h.logger.Warn("failed to invalidate metrics cache", "error", err, "conversation_id", conversationID)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}

func normalizeParticipants(participants []string) []string {
	seen := make(map[string]bool, len(participants))
	out := make([]string, 0, len(participants))
	for _, p := range participants {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func validateMessages(msgs []IncomingMessage, participants []string) error {
	known := make(map[string]bool, len(participants))
	for _, p := range participants {
		known[p] = true
	}
	for i, msg := range msgs {
		if strings.TrimSpace(msg.Sender) == "" {
			return fmt.Errorf("message %d: sender is required", i)
		}
		if !known[msg.Sender] {
			return fmt.Errorf("message %d: unknown sender %q", i, msg.Sender)
		}
		if msg.TimestampMs <= 0 {
			return fmt.Errorf("message %d: timestampMs must be positive", i)
		}
	}
	return nil
}

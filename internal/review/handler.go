package review

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/forecourt-hq/sentinel/internal/shared"
)

// Handler wires HTTP endpoints for transaction review.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers review routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/stats", h.handleStats)
	r.Get("/transactions", h.handleList)
	r.Get("/transactions/export", h.handleExport)
	r.Get("/transactions/{id}", h.handleGet)
	r.Patch("/transactions/{id}/status", h.handleUpdateStatus)
	r.Post("/transactions/{id}/notes", h.handleAddNote)
	r.Get("/transactions/{id}/audit", h.handleAuditTrail)
}

type transactionJSON struct {
	TransactionID string   `json:"transactionId"`
	Date          string   `json:"date"`
	RegisterID    string   `json:"registerId"`
	EmployeeName  string   `json:"employeeName"`
	Type          string   `json:"transactionType"`
	Amount        string   `json:"amount"`
	Status        string   `json:"status"`
	IsFlagged     bool     `json:"isFlagged"`
	FlaggedReason string   `json:"flaggedReason,omitempty"`
	StoreID       string   `json:"storeId"`
	AIRiskScore   *float64 `json:"aiRiskScore,omitempty"`
	AIRiskNote    string   `json:"aiRiskNote,omitempty"`
}

type noteJSON struct {
	ID            int64  `json:"id"`
	TransactionID string `json:"transactionId"`
	Content       string `json:"content"`
	Author        string `json:"author"`
	CreatedAt     string `json:"createdAt"`
}

type clipJSON struct {
	ID            int64    `json:"id"`
	TransactionID string   `json:"transactionId,omitempty"`
	Filename      string   `json:"filename"`
	Size          int64    `json:"size"`
	Duration      *float64 `json:"duration,omitempty"`
	UploadedBy    string   `json:"uploadedBy"`
	CreatedAt     string   `json:"createdAt"`
}

func toTransactionJSON(t Transaction) transactionJSON {
	return transactionJSON{
		TransactionID: t.ID,
		Date:          t.Date.UTC().Format(time.RFC3339),
		RegisterID:    t.RegisterID,
		EmployeeName:  t.EmployeeName,
		Type:          t.Type,
		Amount:        t.Amount.StringFixed(2),
		Status:        string(t.Status),
		IsFlagged:     t.IsFlagged,
		FlaggedReason: t.FlaggedReason,
		StoreID:       t.StoreID,
		AIRiskScore:   t.AIRiskScore,
		AIRiskNote:    t.AIRiskNote,
	}
}

func toNoteJSON(n Note) noteJSON {
	return noteJSON{
		ID:            n.ID,
		TransactionID: n.TransactionID,
		Content:       n.Content,
		Author:        n.Author,
		CreatedAt:     n.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.logger.Error("load stats", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]int64{
		"pendingCount":      stats.Pending,
		"flaggedTodayCount": stats.FlaggedToday,
		"approvedCount":     stats.Approved,
		"videoClipCount":    stats.VideoClips,
	})
}

func parseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	filter := Filter{
		Search: q.Get("search"),
		Type:   q.Get("transactionType"),
	}
	if raw := q.Get("status"); raw != "" {
		status, err := ParseStatus(raw)
		if err != nil {
			return Filter{}, err
		}
		filter.Status = status
	}
	return filter, nil
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		shared.WriteError(w, http.StatusBadRequest, "unknown status filter")
		return
	}
	txns, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list transactions", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	out := make([]transactionJSON, 0, len(txns))
	for _, t := range txns {
		out = append(out, toTransactionJSON(t))
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"transactions": out, "total": len(out)})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	detail, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			shared.WriteError(w, http.StatusNotFound, "transaction not found")
			return
		}
		h.logger.Error("get transaction", slog.String("id", id), slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, "failed to load transaction")
		return
	}

	body := map[string]any{"transaction": toTransactionJSON(detail.Transaction)}
	notes := make([]noteJSON, 0, len(detail.Notes))
	for _, n := range detail.Notes {
		notes = append(notes, toNoteJSON(n))
	}
	body["notes"] = notes
	if detail.Clip != nil {
		c := detail.Clip
		body["videoClip"] = clipJSON{
			ID:            c.ID,
			TransactionID: c.TransactionID,
			Filename:      c.Filename,
			Size:          c.Size,
			Duration:      c.Duration,
			UploadedBy:    c.UploadedBy,
			CreatedAt:     c.CreatedAt.UTC().Format(time.RFC3339),
		}
	}
	shared.WriteJSON(w, http.StatusOK, body)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		shared.WriteError(w, http.StatusBadRequest, "unknown status filter")
		return
	}
	txns, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("export transactions", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, "failed to export transactions")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
	if err := WriteCSV(w, txns); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

type statusUpdateRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.WriteError(w, http.StatusUnprocessableEntity, "status is required")
		return
	}
	entry, err := h.service.UpdateStatus(r.Context(), id, Status(req.Status), shared.ActorFromContext(r.Context()))
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrNotFound):
			shared.WriteError(w, http.StatusNotFound, "transaction not found")
		case errors.Is(err, ErrInvalidStatus):
			shared.WriteError(w, http.StatusUnprocessableEntity, "unknown status value")
		default:
			h.logger.Error("update status", slog.String("id", id), slog.Any("error", err))
			shared.WriteError(w, http.StatusInternalServerError, "failed to update status")
		}
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"transactionId":  id,
		"status":         string(entry.Action),
		"previousStatus": string(entry.PreviousStatus),
	})
}

type noteRequest struct {
	Content string `json:"content" validate:"required,min=1"`
}

func (h *Handler) handleAddNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.WriteError(w, http.StatusUnprocessableEntity, "content is required")
		return
	}
	note, err := h.service.AddNote(r.Context(), id, req.Content, shared.ActorFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			shared.WriteError(w, http.StatusNotFound, "transaction not found")
			return
		}
		h.logger.Error("add note", slog.String("id", id), slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, "failed to add note")
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toNoteJSON(note))
}

func (h *Handler) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entries, err := h.service.AuditTrail(r.Context(), id)
	if err != nil {
		h.logger.Error("audit trail", slog.String("id", id), slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, "failed to load audit trail")
		return
	}
	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]any{
			"id":             e.ID,
			"transactionId":  e.TransactionID,
			"action":         string(e.Action),
			"previousStatus": string(e.PreviousStatus),
			"actor":          e.Actor,
			"detail":         e.Detail,
			"createdAt":      e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"entries": out})
}

package video

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/forecourt-hq/sentinel/internal/shared"
)

// Handler wires clip upload and streaming endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	maxSize int64
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, maxSize int64) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxSize <= 0 {
		maxSize = 200 << 20
	}
	return &Handler{logger: logger, service: service, maxSize: maxSize}
}

// MountRoutes registers video routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/upload/video", h.handleUpload)
	r.Get("/video/{id}", h.handleStream)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		shared.WriteError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}
	file, header, err := r.FormFile("videoFile")
	if err != nil {
		shared.WriteError(w, http.StatusBadRequest, "videoFile is required")
		return
	}
	defer file.Close()

	transactionID := r.FormValue("transactionId")
	var duration *float64
	if raw := r.FormValue("duration"); raw != "" {
		if d, err := strconv.ParseFloat(raw, 64); err == nil && d > 0 {
			duration = &d
		}
	}

	clip, err := h.service.Store(r.Context(), header.Filename, file, transactionID, duration, shared.ActorFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, ErrUnsupportedFormat) {
			shared.WriteError(w, http.StatusBadRequest, "unsupported clip format")
			return
		}
		h.logger.Error("store clip", slog.String("filename", header.Filename), slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, "upload failed")
		return
	}

	shared.WriteJSON(w, http.StatusCreated, map[string]any{
		"id":            clip.ID,
		"transactionId": clip.TransactionID,
		"filename":      clip.Filename,
		"size":          clip.Size,
	})
}

// handleStream serves clip bytes with standard Range semantics: ServeContent
// answers partial requests with 206 and whole-file requests with 200.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.WriteError(w, http.StatusBadRequest, "invalid clip id")
		return
	}
	clip, f, err := h.service.Open(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			shared.WriteError(w, http.StatusNotFound, "clip not found")
			return
		}
		h.logger.Error("open clip", slog.Int64("id", id), slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, "failed to open clip")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "video/mp4")
	modTime := clip.CreatedAt
	if modTime.IsZero() {
		modTime = time.Now()
	}
	http.ServeContent(w, r, clip.StoredName, modTime, f)
}

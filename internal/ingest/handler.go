package ingest

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/forecourt-hq/sentinel/internal/shared"
)

// Handler wires the POS upload endpoint.
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
		maxSize = 32 << 20
	}
	return &Handler{logger: logger, service: service, maxSize: maxSize}
}

// MountRoutes registers ingestion routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/upload/pos", h.handleUpload)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize)
	if err := r.ParseMultipartForm(h.maxSize); err != nil {
		shared.WriteError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}
	file, header, err := r.FormFile("posFile")
	if err != nil {
		shared.WriteError(w, http.StatusBadRequest, "posFile is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		shared.WriteError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	summary, err := h.service.ProcessUpload(r.Context(), header.Filename, content, shared.ActorFromContext(r.Context()))
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateFile):
			shared.WriteError(w, http.StatusConflict, "file already processed")
		case errors.Is(err, ErrParse):
			shared.WriteError(w, http.StatusBadRequest, "file could not be parsed")
		default:
			h.logger.Error("process upload", slog.String("filename", header.Filename), slog.Any("error", err))
			shared.WriteError(w, http.StatusInternalServerError, "upload failed")
		}
		return
	}

	shared.WriteJSON(w, http.StatusOK, summary)
}

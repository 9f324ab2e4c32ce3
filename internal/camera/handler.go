package camera

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/forecourt-hq/sentinel/internal/shared"
)

// Handler wires camera configuration endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers camera routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/cameras", h.handleList)
	r.Post("/cameras", h.handleCreate)
	r.Get("/cameras/{id}", h.handleGet)
	r.Put("/cameras/{id}", h.handleUpdate)
	r.Delete("/cameras/{id}", h.handleDelete)
	r.Post("/cameras/{id}/test", h.handleTest)
}

type cameraRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=120"`
	Host     string `json:"host" validate:"required,min=1,max=255"`
	Port     int    `json:"port" validate:"omitempty,min=1,max=65535"`
	Username string `json:"username" validate:"omitempty,max=120"`
	Model    string `json:"model" validate:"omitempty,max=120"`
	Enabled  *bool  `json:"enabled"`
}

type cameraResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Model    string `json:"model"`
	Enabled  bool   `json:"enabled"`
}

func toResponse(cam Camera) cameraResponse {
	return cameraResponse{
		ID:       cam.ID,
		Name:     cam.Name,
		Host:     cam.Host,
		Port:     cam.Port,
		Username: cam.Username,
		Model:    cam.Model,
		Enabled:  cam.Enabled,
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (cameraRequest, bool) {
	var req cameraRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	if err := h.validate.Struct(req); err != nil {
		shared.WriteError(w, http.StatusBadRequest, "name and host are required")
		return req, false
	}
	return req, true
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	cams, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list cameras", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, "failed to list cameras")
		return
	}
	out := make([]cameraResponse, 0, len(cams))
	for _, cam := range cams {
		out = append(out, toResponse(cam))
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	cam, err := h.service.Create(r.Context(), Camera{
		Name:     req.Name,
		Host:     req.Host,
		Port:     req.Port,
		Username: req.Username,
		Model:    req.Model,
		Enabled:  enabled,
	})
	if err != nil {
		h.logger.Error("create camera", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, "failed to create camera")
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toResponse(cam))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	cam, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondLookupError(w, id, "get camera", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResponse(cam))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	cam, err := h.service.Update(r.Context(), Camera{
		ID:       id,
		Name:     req.Name,
		Host:     req.Host,
		Port:     req.Port,
		Username: req.Username,
		Model:    req.Model,
		Enabled:  enabled,
	})
	if err != nil {
		h.respondLookupError(w, id, "update camera", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResponse(cam))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondLookupError(w, id, "delete camera", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleTest(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	result, err := h.service.TestConnectivity(r.Context(), id)
	if err != nil {
		h.respondLookupError(w, id, "test camera", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"cameraId":  result.CameraID,
		"online":    result.Online,
		"latencyMs": result.LatencyMS,
		"message":   result.Message,
	})
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.WriteError(w, http.StatusBadRequest, "invalid camera id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondLookupError(w http.ResponseWriter, id int64, op string, err error) {
	if errors.Is(err, shared.ErrNotFound) {
		shared.WriteError(w, http.StatusNotFound, "camera not found")
		return
	}
	h.logger.Error(op, slog.Int64("id", id), slog.Any("error", err))
	shared.WriteError(w, http.StatusInternalServerError, "camera operation failed")
}

package activities

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/siaptugas/siaptugas/internal/platform/httpx"
	"github.com/siaptugas/siaptugas/internal/shared"
)

// Handler manages activity endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers activity routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/activities", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.remove)
	})
}

type activityRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Location    string `json:"location"`
	HeldAt      string `json:"held_at" validate:"required"`
}

type activityResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	HeldAt      string    `json:"held_at"`
	CreatedBy   uuid.UUID `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	out := make([]activityResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toResponse(a))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actorID, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Belum masuk", "silakan login terlebih dahulu")
		return
	}
	input, err := h.decode(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Permintaan tidak valid", err.Error())
		return
	}
	a, err := h.service.Create(r.Context(), actorID, input)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(a))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	actorID, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Belum masuk", "silakan login terlebih dahulu")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "ID tidak valid", err.Error())
		return
	}
	input, err := h.decode(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Permintaan tidak valid", err.Error())
		return
	}
	a, err := h.service.Update(r.Context(), actorID, id, input)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(a))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	actorID, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Belum masuk", "silakan login terlebih dahulu")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "ID tidak valid", err.Error())
		return
	}
	if err := h.service.Delete(r.Context(), actorID, id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(r *http.Request) (ActivityInput, error) {
	var req activityRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		return ActivityInput{}, err
	}
	if err := h.validator.Struct(req); err != nil {
		return ActivityInput{}, err
	}
	heldAt, err := time.Parse("2006-01-02", req.HeldAt)
	if err != nil {
		return ActivityInput{}, err
	}
	return ActivityInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		HeldAt:      heldAt,
	}, nil
}

func toResponse(a Activity) activityResponse {
	return activityResponse{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		Location:    a.Location,
		HeldAt:      a.HeldAt.Format("2006-01-02"),
		CreatedBy:   a.CreatedBy,
		CreatedAt:   a.CreatedAt,
	}
}

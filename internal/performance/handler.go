package performance

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/siaptugas/siaptugas/internal/platform/httpx"
	"github.com/siaptugas/siaptugas/internal/shared"
)

// Handler serves the performance recap endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers performance routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/performance", h.overview)
}

type scorecardResponse struct {
	PrincipalID    uuid.UUID `json:"principal_id"`
	FullName       string    `json:"full_name"`
	NIP            string    `json:"nip,omitempty"`
	Unit           string    `json:"unit,omitempty"`
	Role           string    `json:"role"`
	Assigned       int64     `json:"assigned"`
	Submitted      int64     `json:"submitted"`
	Completed      int64     `json:"completed"`
	Total          int64     `json:"total"`
	CompletionRate float64   `json:"completion_rate"`
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	actorID, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Belum masuk", "silakan login terlebih dahulu")
		return
	}
	cards, err := h.service.Overview(r.Context(), actorID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	out := make([]scorecardResponse, 0, len(cards))
	for _, c := range cards {
		out = append(out, scorecardResponse{
			PrincipalID:    c.PrincipalID,
			FullName:       c.FullName,
			NIP:            c.NIP,
			Unit:           c.Unit,
			Role:           c.Role,
			Assigned:       c.Assigned,
			Submitted:      c.Submitted,
			Completed:      c.Completed,
			Total:          c.Total(),
			CompletionRate: c.CompletionRate(),
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

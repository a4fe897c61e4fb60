package profiles

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/siaptugas/siaptugas/internal/platform/httpx"
	"github.com/siaptugas/siaptugas/internal/shared"
)

// Handler manages principal endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers profile routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/profiles", func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/hierarchy", h.hierarchy)
		r.Get("/assignable", h.assignable)
		r.Put("/me", h.updateSelf)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.updateByAdmin)
		r.Delete("/{id}", h.remove)
	})
}

type profileResponse struct {
	ID           uuid.UUID  `json:"id"`
	FullName     string     `json:"full_name"`
	NIP          string     `json:"nip,omitempty"`
	Email        string     `json:"email"`
	Role         string     `json:"role"`
	Unit         string     `json:"unit,omitempty"`
	SupervisorID *uuid.UUID `json:"supervisor_id,omitempty"`
	AvatarURL    string     `json:"avatar_url,omitempty"`
}

type nodeResponse struct {
	profileResponse
	DisplayName string         `json:"display_name"`
	Children    []nodeResponse `json:"children"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	out := make([]profileResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toProfileResponse(p))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "ID tidak valid", err.Error())
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toProfileResponse(p))
}

func (h *Handler) hierarchy(w http.ResponseWriter, r *http.Request) {
	forest, err := h.service.Hierarchy(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toNodeResponses(forest))
}

func (h *Handler) assignable(w http.ResponseWriter, r *http.Request) {
	actorID, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Belum masuk", "silakan login terlebih dahulu")
		return
	}
	list, err := h.service.ListAssignable(r.Context(), actorID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	out := make([]profileResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toProfileResponse(p))
	}
	httpx.JSON(w, http.StatusOK, out)
}

type selfUpdateRequest struct {
	FullName  string `json:"full_name"`
	NIP       string `json:"nip"`
	Email     string `json:"email" validate:"omitempty,email"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url"`
}

func (h *Handler) updateSelf(w http.ResponseWriter, r *http.Request) {
	actorID, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Belum masuk", "silakan login terlebih dahulu")
		return
	}
	var req selfUpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Permintaan tidak valid", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Permintaan tidak valid", err.Error())
		return
	}
	p, err := h.service.UpdateSelf(r.Context(), actorID, SelfUpdateInput{
		FullName:  req.FullName,
		NIP:       req.NIP,
		Email:     req.Email,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toProfileResponse(p))
}

type adminUpdateRequest struct {
	selfUpdateRequest
	Role         string `json:"role"`
	Unit         string `json:"unit"`
	SupervisorID string `json:"supervisor_id"`
}

func (h *Handler) updateByAdmin(w http.ResponseWriter, r *http.Request) {
	actorID, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Belum masuk", "silakan login terlebih dahulu")
		return
	}
	targetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "ID tidak valid", err.Error())
		return
	}
	var req adminUpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Permintaan tidak valid", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Permintaan tidak valid", err.Error())
		return
	}
	input := AdminUpdateInput{
		SelfUpdateInput: SelfUpdateInput{
			FullName:  req.FullName,
			NIP:       req.NIP,
			Email:     req.Email,
			AvatarURL: req.AvatarURL,
		},
		Role: req.Role,
		Unit: req.Unit,
	}
	// Empty string leaves the supervisor untouched; the literal "none"
	// clears it.
	switch req.SupervisorID {
	case "":
	case "none":
		nilID := uuid.Nil
		input.SupervisorID = &nilID
	default:
		supervisorID, err := uuid.Parse(req.SupervisorID)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "ID atasan tidak valid", err.Error())
			return
		}
		input.SupervisorID = &supervisorID
	}
	p, err := h.service.UpdateByAdmin(r.Context(), actorID, targetID, input)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toProfileResponse(p))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	actorID, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Belum masuk", "silakan login terlebih dahulu")
		return
	}
	targetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "ID tidak valid", err.Error())
		return
	}
	if err := h.service.Delete(r.Context(), actorID, targetID); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toProfileResponse(p Profile) profileResponse {
	return profileResponse{
		ID:           p.ID,
		FullName:     p.FullName,
		NIP:          p.NIP,
		Email:        p.Email,
		Role:         p.Role.String(),
		Unit:         p.Unit,
		SupervisorID: p.SupervisorID,
		AvatarURL:    p.AvatarURL,
	}
}

func toNodeResponses(nodes []*Node) []nodeResponse {
	out := make([]nodeResponse, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, nodeResponse{
			profileResponse: toProfileResponse(n.Profile),
			DisplayName:     n.DisplayName,
			Children:        toNodeResponses(n.Children),
		})
	}
	return out
}

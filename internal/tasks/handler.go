package tasks

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/siaptugas/siaptugas/internal/platform/httpx"
	"github.com/siaptugas/siaptugas/internal/shared"
)

const maxAttachmentBytes = 16 << 20

// Handler manages task and assignment endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers task routes. Callers mount this under an
// authenticated group.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", h.listTasks)
		r.Post("/", h.createTask)
		r.Get("/{id}", h.getTask)
		r.Put("/{id}", h.updateTask)
		r.Delete("/{id}", h.deleteTask)
	})
	r.Route("/assignments", func(r chi.Router) {
		r.Get("/", h.listAssignments)
		r.Post("/{id}/submit", h.submitAssignment)
		r.Post("/{id}/withdraw", h.withdrawAssignment)
		r.Post("/{id}/approve", h.approveAssignment)
		r.Post("/{id}/correction", h.requestCorrection)
	})
}

type taskResponse struct {
	ID               int64                `json:"id"`
	Number           string               `json:"number"`
	Title            string               `json:"title"`
	Narrative        string               `json:"narrative"`
	DueDate          string               `json:"due_date"`
	AttachmentURL    string               `json:"attachment_url,omitempty"`
	AuthorID         uuid.UUID            `json:"author_id"`
	CreatedAt        time.Time            `json:"created_at"`
	Assignments      []assignmentResponse `json:"assignments"`
}

type assignmentResponse struct {
	ID                  int64     `json:"id"`
	TaskID              int64     `json:"task_id"`
	AssigneeID          uuid.UUID `json:"assignee_id"`
	AssigneeName        string    `json:"assignee_name"`
	AssigneeRole        string    `json:"assignee_role"`
	AssigneeAvatarURL   string    `json:"assignee_avatar_url,omitempty"`
	Status              string    `json:"status"`
	Report              string    `json:"report,omitempty"`
	CorrectionNote      string    `json:"correction_note,omitempty"`
	ReportAttachmentURL string    `json:"report_attachment_url,omitempty"`
}

type assignmentDetailResponse struct {
	assignmentResponse
	Task taskResponse `json:"task"`
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	actorID, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Belum masuk", "silakan login terlebih dahulu")
		return
	}
	list, err := h.service.ListTasksForAuthor(r.Context(), actorID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	out := make([]taskResponse, 0, len(list))
	for _, t := range list {
		out = append(out, toTaskResponse(t))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) getTask(w http.ResponseWriter, r *http.Request) {
	actorID, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Belum masuk", "silakan login terlebih dahulu")
		return
	}
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "ID tidak valid", err.Error())
		return
	}
	t, err := h.service.GetTask(r.Context(), actorID, id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toTaskResponse(t))
}

func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	actorID, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Belum masuk", "silakan login terlebih dahulu")
		return
	}
	input, assigneeIDs, err := h.decodeTaskForm(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Permintaan tidak valid", err.Error())
		return
	}
	t, err := h.service.CreateTask(r.Context(), actorID, input, assigneeIDs)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toTaskResponse(t))
}

func (h *Handler) updateTask(w http.ResponseWriter, r *http.Request) {
	actorID, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Belum masuk", "silakan login terlebih dahulu")
		return
	}
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "ID tidak valid", err.Error())
		return
	}
	input, assigneeIDs, err := h.decodeTaskForm(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Permintaan tidak valid", err.Error())
		return
	}
	t, err := h.service.UpdateTask(r.Context(), actorID, id, input, assigneeIDs)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toTaskResponse(t))
}

func (h *Handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	actorID, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Belum masuk", "silakan login terlebih dahulu")
		return
	}
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "ID tidak valid", err.Error())
		return
	}
	if err := h.service.DeleteTask(r.Context(), actorID, id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listAssignments(w http.ResponseWriter, r *http.Request) {
	actorID, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Belum masuk", "silakan login terlebih dahulu")
		return
	}
	list, err := h.service.ListAssignmentsForAssignee(r.Context(), actorID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	out := make([]assignmentDetailResponse, 0, len(list))
	for _, d := range list {
		out = append(out, assignmentDetailResponse{
			assignmentResponse: toAssignmentResponse(d.Assignment),
			Task:               toTaskResponse(d.Task),
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) submitAssignment(w http.ResponseWriter, r *http.Request) {
	actorID, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Belum masuk", "silakan login terlebih dahulu")
		return
	}
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "ID tidak valid", err.Error())
		return
	}
	var report string
	var attachment *AttachmentUpload
	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxAttachmentBytes); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Permintaan tidak valid", err.Error())
			return
		}
		report = r.FormValue("report")
		attachment, err = readAttachment(r, "attachment")
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Lampiran tidak valid", err.Error())
			return
		}
	} else {
		var payload struct {
			Report string `json:"report" validate:"required"`
		}
		if err := httpx.DecodeJSON(r, &payload); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Permintaan tidak valid", err.Error())
			return
		}
		if err := h.validator.Struct(payload); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Permintaan tidak valid", "narasi laporan wajib diisi")
			return
		}
		report = payload.Report
	}
	a, err := h.service.Submit(r.Context(), actorID, id, report, attachment)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAssignmentResponse(a))
}

func (h *Handler) withdrawAssignment(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Withdraw)
}

func (h *Handler) approveAssignment(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Approve)
}

func (h *Handler) requestCorrection(w http.ResponseWriter, r *http.Request) {
	actorID, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Belum masuk", "silakan login terlebih dahulu")
		return
	}
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "ID tidak valid", err.Error())
		return
	}
	var payload struct {
		Note string `json:"note" validate:"required"`
	}
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Permintaan tidak valid", err.Error())
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Permintaan tidak valid", "catatan koreksi wajib diisi")
		return
	}
	a, err := h.service.RequestCorrection(r.Context(), actorID, id, payload.Note)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAssignmentResponse(a))
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, actorID uuid.UUID, id int64) (Assignment, error)) {
	actorID, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Belum masuk", "silakan login terlebih dahulu")
		return
	}
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "ID tidak valid", err.Error())
		return
	}
	a, err := op(r.Context(), actorID, id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAssignmentResponse(a))
}

type taskRequest struct {
	Title       string   `json:"title" validate:"required"`
	Narrative   string   `json:"narrative"`
	DueDate     string   `json:"due_date" validate:"required"`
	AssigneeIDs []string `json:"assignee_ids" validate:"required,min=1"`
}

// decodeTaskForm accepts either a JSON body or a multipart form with an
// optional attachment file.
func (h *Handler) decodeTaskForm(r *http.Request) (TaskInput, []uuid.UUID, error) {
	var req taskRequest
	var attachment *AttachmentUpload
	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxAttachmentBytes); err != nil {
			return TaskInput{}, nil, err
		}
		req.Title = r.FormValue("title")
		req.Narrative = r.FormValue("narrative")
		req.DueDate = r.FormValue("due_date")
		req.AssigneeIDs = splitFormList(r.Form["assignee_ids"])
		var err error
		attachment, err = readAttachment(r, "attachment")
		if err != nil {
			return TaskInput{}, nil, err
		}
	} else {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			return TaskInput{}, nil, err
		}
	}
	if err := h.validator.Struct(req); err != nil {
		return TaskInput{}, nil, err
	}
	due, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		return TaskInput{}, nil, err
	}
	ids := make([]uuid.UUID, 0, len(req.AssigneeIDs))
	for _, raw := range req.AssigneeIDs {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			return TaskInput{}, nil, err
		}
		ids = append(ids, id)
	}
	return TaskInput{
		Title:      req.Title,
		Narrative:  req.Narrative,
		DueDate:    due,
		Attachment: attachment,
	}, ids, nil
}

func readAttachment(r *http.Request, field string) (*AttachmentUpload, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxAttachmentBytes))
	if err != nil {
		return nil, err
	}
	return &AttachmentUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// splitFormList tolerates both repeated fields and a single
// comma-separated value.
func splitFormList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func toTaskResponse(t Task) taskResponse {
	out := taskResponse{
		ID:            t.ID,
		Number:        t.Number,
		Title:         t.Title,
		Narrative:     t.Narrative,
		DueDate:       t.DueDate.Format("2006-01-02"),
		AttachmentURL: t.AttachmentURL,
		AuthorID:      t.AuthorID,
		CreatedAt:     t.CreatedAt,
		Assignments:   make([]assignmentResponse, 0, len(t.Assignments)),
	}
	for _, a := range t.Assignments {
		out.Assignments = append(out.Assignments, toAssignmentResponse(a))
	}
	return out
}

func toAssignmentResponse(a Assignment) assignmentResponse {
	return assignmentResponse{
		ID:                  a.ID,
		TaskID:              a.TaskID,
		AssigneeID:          a.AssigneeID,
		AssigneeName:        a.AssigneeName,
		AssigneeRole:        a.AssigneeRole.String(),
		AssigneeAvatarURL:   a.AssigneeAvatarURL,
		Status:              string(a.Status),
		Report:              a.Report,
		CorrectionNote:      a.CorrectionNote,
		ReportAttachmentURL: a.ReportAttachmentURL,
	}
}

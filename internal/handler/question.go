package handler

// QuestionHandler owns the question-intake endpoint (public) and the
// triage endpoints (admin) under /api/questions.

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/phm-oh/chatqa-backend/internal/apperror"
	"github.com/phm-oh/chatqa-backend/internal/auth"
	"github.com/phm-oh/chatqa-backend/internal/model"
	"github.com/phm-oh/chatqa-backend/internal/repository"
	"github.com/phm-oh/chatqa-backend/internal/service"
)

// QuestionHandler serves the /api/questions endpoints.
type QuestionHandler struct {
	questions *service.QuestionService
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewQuestionHandler creates a QuestionHandler.
func NewQuestionHandler(questions *service.QuestionService, logger *slog.Logger) *QuestionHandler {
	return &QuestionHandler{
		questions: questions,
		validate:  validator.New(),
		logger:    logger,
	}
}

type submitRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone"`
	Category string `json:"category"`
	Question string `json:"question" validate:"required"`
}

// HandleSubmit accepts a visitor question. This is the only PUBLIC write
// endpoint — it sits behind the strict rate limiter, not behind auth.
//
// HTTP: POST /api/questions
// REQUEST BODY: {"name":"...","email":"...","category":"admission","question":"..."}
func (h *QuestionHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, apperror.ValidationFailed("", "name, a valid email and a question are required"))
		return
	}

	q, err := h.questions.Submit(r.Context(), service.SubmitInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Category: model.Category(req.Category),
		Question: req.Question,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

// HandleList returns a page of questions for the triage queue.
//
// HTTP: GET /api/questions?status=pending&category=admission&search=...&page=1&limit=10
func (h *QuestionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, opts := pageParams(r)
	query := r.URL.Query()

	filter := repository.QuestionFilter{Search: query.Get("search")}
	if v := query.Get("status"); v != "" {
		status := model.Status(v)
		if !status.Valid() {
			writeError(w, apperror.ValidationFailed("status", "unknown status"))
			return
		}
		filter.Status = status
	}
	if v := query.Get("category"); v != "" {
		category := model.Category(v)
		if !category.Valid() {
			writeError(w, apperror.ValidationFailed("category", "unknown category"))
			return
		}
		filter.Category = category
	}

	items, total, err := h.questions.List(r.Context(), filter, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{
		Data:       items,
		Pagination: newPagination(page, opts.Limit, total),
	})
}

// HandleGet returns one question with full submitter details.
//
// HTTP: GET /api/questions/{id}
func (h *QuestionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	q, err := h.questions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

type updateQuestionRequest struct {
	Answer     *string `json:"answer"`
	Status     *string `json:"status"`
	ShowInFAQ  *bool   `json:"showInFAQ"`
	AdminNotes *string `json:"adminNotes"`
}

// HandleUpdate applies a triage edit: answer, status, FAQ flag, notes.
// Absent fields are left unchanged.
//
// HTTP: PUT /api/questions/{id}
func (h *QuestionHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	admin, ok := auth.AdminFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("authentication required"))
		return
	}

	var req updateQuestionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	in := service.UpdateInput{
		Answer:     req.Answer,
		ShowInFAQ:  req.ShowInFAQ,
		AdminNotes: req.AdminNotes,
	}
	if req.Status != nil {
		status := model.Status(*req.Status)
		in.Status = &status
	}

	q, err := h.questions.Update(r.Context(), r.PathValue("id"), admin.ID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// HandleDelete removes a question. Behind RequireRole(super_admin).
//
// HTTP: DELETE /api/questions/{id}
func (h *QuestionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.questions.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleStats returns queue counts for the dashboard.
//
// HTTP: GET /api/questions/stats
func (h *QuestionHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.questions.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

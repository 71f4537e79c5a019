package handler

// FAQHandler owns the PUBLIC read-only endpoints under /api/faq. Nothing
// here requires authentication, and nothing here ever exposes submitter
// contact details — the service layer returns FAQEntry projections only.

import (
	"log/slog"
	"net/http"

	"github.com/phm-oh/chatqa-backend/internal/apperror"
	"github.com/phm-oh/chatqa-backend/internal/model"
	"github.com/phm-oh/chatqa-backend/internal/service"
)

// FAQHandler serves the /api/faq endpoints.
type FAQHandler struct {
	questions *service.QuestionService
	logger    *slog.Logger
}

// NewFAQHandler creates a FAQHandler.
func NewFAQHandler(questions *service.QuestionService, logger *slog.Logger) *FAQHandler {
	return &FAQHandler{questions: questions, logger: logger}
}

// HandleList returns published FAQ entries.
//
// HTTP: GET /api/faq?category=admission&search=...&page=1&limit=10
func (h *FAQHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, opts := pageParams(r)
	query := r.URL.Query()

	var category model.Category
	if v := query.Get("category"); v != "" && v != "all" {
		category = model.Category(v)
	}

	entries, total, err := h.questions.ListFAQ(r.Context(), category, query.Get("search"), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{
		Data:       entries,
		Pagination: newPagination(page, opts.Limit, total),
	})
}

// HandleCategories returns per-category FAQ counts, including a synthetic
// "all" entry with the grand total.
//
// HTTP: GET /api/faq/categories
func (h *FAQHandler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.questions.FAQCategories(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

// HandlePopular returns the latest FAQ entries for the landing page.
//
// HTTP: GET /api/faq/popular
func (h *FAQHandler) HandlePopular(w http.ResponseWriter, r *http.Request) {
	entries, err := h.questions.PopularFAQ(r.Context(), 10)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleSearch is full-text FAQ search. The term must be at least two
// characters — single-character scans are rejected as noise.
//
// HTTP: GET /api/faq/search?q=enrollment
func (h *FAQHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	page, opts := pageParams(r)

	entries, total, err := h.questions.SearchFAQ(r.Context(), r.URL.Query().Get("q"), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{
		Data:       entries,
		Pagination: newPagination(page, opts.Limit, total),
	})
}

// HandleGet returns one FAQ entry. An existing but unpublished question
// is indistinguishable from a missing one.
//
// HTTP: GET /api/faq/{id}
func (h *FAQHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, apperror.ValidationFailed("id", "FAQ ID is required"))
		return
	}

	entry, err := h.questions.GetFAQ(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

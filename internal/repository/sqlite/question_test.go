package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/phm-oh/chatqa-backend/internal/apperror"
	"github.com/phm-oh/chatqa-backend/internal/model"
	"github.com/phm-oh/chatqa-backend/internal/repository"
)

func newTestQuestionDB(t *testing.T) *QuestionDB {
	t.Helper()
	return newTestDB(t).Questions()
}

func createTestQuestion(t *testing.T, q *QuestionDB, question string, category model.Category) *model.Question {
	t.Helper()
	item := &model.Question{
		Name:     "Visitor",
		Email:    "visitor@example.com",
		Question: question,
		Category: category,
	}
	if err := q.Create(context.Background(), item); err != nil {
		t.Fatalf("failed to create test question: %v", err)
	}
	return item
}

// publish answers a question and flags it for the FAQ page.
func publish(t *testing.T, q *QuestionDB, item *model.Question, answer string) {
	t.Helper()
	now := time.Now()
	item.Answer = answer
	item.Status = model.StatusPublished
	item.ShowInFAQ = true
	item.DateAnswered = &now
	if err := q.Update(context.Background(), item); err != nil {
		t.Fatalf("failed to publish question: %v", err)
	}
}

func TestQuestionCreate_Defaults(t *testing.T) {
	q := newTestQuestionDB(t)

	item := &model.Question{
		Name:     "Visitor",
		Email:    "Visitor@Example.COM",
		Question: "When does enrollment open?",
		Category: model.CategoryAdmission,
	}
	if err := q.Create(context.Background(), item); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if item.ID == "" {
		t.Error("Create() did not set ID")
	}
	if item.Status != model.StatusPending {
		t.Errorf("Create() status = %q, want pending", item.Status)
	}
	if item.Email != "visitor@example.com" {
		t.Errorf("Create() email = %q, want lowercased", item.Email)
	}

	got, err := q.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Question != item.Question {
		t.Errorf("GetByID() question = %q, want %q", got.Question, item.Question)
	}
}

func TestQuestionGetByID_NotFound(t *testing.T) {
	q := newTestQuestionDB(t)
	_, err := q.GetByID(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestQuestionUpdate_AnswerFields(t *testing.T) {
	q := newTestQuestionDB(t)
	item := createTestQuestion(t, q, "What courses are offered?", model.CategoryCurriculum)

	now := time.Now()
	item.Answer = "See the curriculum page."
	item.Status = model.StatusAnswered
	item.AdminNotes = "verified with the registrar"
	item.AnsweredBy = "admin-1"
	item.DateAnswered = &now
	if err := q.Update(context.Background(), item); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := q.GetByID(context.Background(), item.ID)
	if got.Answer != item.Answer || got.Status != model.StatusAnswered {
		t.Errorf("Update() not persisted: %+v", got)
	}
	if got.AnsweredBy != "admin-1" || got.AdminNotes != "verified with the registrar" {
		t.Errorf("Update() lost admin fields: %+v", got)
	}
	if got.DateAnswered == nil {
		t.Error("Update() lost DateAnswered")
	}
}

func TestQuestionDelete(t *testing.T) {
	q := newTestQuestionDB(t)
	item := createTestQuestion(t, q, "Is there a dormitory?", model.CategoryFacilities)

	if err := q.Delete(context.Background(), item.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := q.GetByID(context.Background(), item.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}
	if err := q.Delete(context.Background(), item.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete() twice error = %v, want ErrNotFound", err)
	}
}

func TestQuestionList_Filters(t *testing.T) {
	q := newTestQuestionDB(t)
	published := createTestQuestion(t, q, "When does enrollment open?", model.CategoryAdmission)
	publish(t, q, published, "In June.")
	createTestQuestion(t, q, "How do I apply?", model.CategoryAdmission)
	createTestQuestion(t, q, "Is there parking?", model.CategoryFacilities)

	// Status filter
	items, total, err := q.List(context.Background(),
		repository.QuestionFilter{Status: model.StatusPending},
		repository.ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("List(pending) error = %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Errorf("List(pending) total = %d len = %d, want 2", total, len(items))
	}

	// Category filter
	_, total, err = q.List(context.Background(),
		repository.QuestionFilter{Category: model.CategoryAdmission},
		repository.ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("List(admission) error = %v", err)
	}
	if total != 2 {
		t.Errorf("List(admission) total = %d, want 2", total)
	}

	// FAQ view: published AND flagged only
	items, total, err = q.List(context.Background(),
		repository.QuestionFilter{FAQOnly: true},
		repository.ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("List(faq) error = %v", err)
	}
	if total != 1 || items[0].ID != published.ID {
		t.Errorf("List(faq) = %v (total %d), want only the published entry", items, total)
	}
}

func TestQuestionList_Search(t *testing.T) {
	q := newTestQuestionDB(t)
	hit := createTestQuestion(t, q, "When does enrollment open?", model.CategoryAdmission)
	publish(t, q, hit, "Enrollment opens in June every year.")
	miss := createTestQuestion(t, q, "Is there parking?", model.CategoryFacilities)
	publish(t, q, miss, "Yes, behind building 3.")

	// Matches against question text
	items, _, err := q.List(context.Background(),
		repository.QuestionFilter{FAQOnly: true, Search: "enrollment"},
		repository.ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("List(search) error = %v", err)
	}
	if len(items) != 1 || items[0].ID != hit.ID {
		t.Errorf("List(search=enrollment) = %v, want one hit", items)
	}

	// Matches against answer text too
	items, _, err = q.List(context.Background(),
		repository.QuestionFilter{FAQOnly: true, Search: "building 3"},
		repository.ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("List(search) error = %v", err)
	}
	if len(items) != 1 || items[0].ID != miss.ID {
		t.Errorf("List(search=building 3) = %v, want one hit", items)
	}
}

func TestQuestionList_SearchWildcardsMatchLiterally(t *testing.T) {
	q := newTestQuestionDB(t)
	hit := createTestQuestion(t, q, "Is the scholarship worth 100% of tuition?", model.CategoryAdmission)
	publish(t, q, hit, "Yes, fees are fully covered.")
	miss := createTestQuestion(t, q, "Is the scholarship worth 100 baht?", model.CategoryAdmission)
	publish(t, q, miss, "No.")

	// "%" and "_" in the term are literal characters, not LIKE patterns.
	// Without escaping, "100%" would match "100 baht" as a prefix too.
	items, total, err := q.List(context.Background(),
		repository.QuestionFilter{FAQOnly: true, Search: "100%"},
		repository.ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("List(search) error = %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].ID != hit.ID {
		t.Errorf("List(search=100%%) matched %d rows, want only the literal hit", total)
	}

	items, _, err = q.List(context.Background(),
		repository.QuestionFilter{FAQOnly: true, Search: "1_0"},
		repository.ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("List(search) error = %v", err)
	}
	if len(items) != 0 {
		t.Errorf("List(search=1_0) = %v, want no hits", items)
	}
}

func TestQuestionList_SortWhitelist(t *testing.T) {
	q := newTestQuestionDB(t)
	createTestQuestion(t, q, "first", model.CategoryGeneral)
	createTestQuestion(t, q, "second", model.CategoryGeneral)

	// Unknown sort columns fall back to created_at instead of being
	// interpolated into the query.
	items, _, err := q.List(context.Background(),
		repository.QuestionFilter{},
		repository.ListOptions{Limit: 10, SortBy: "1;DROP TABLE questions"})
	if err != nil {
		t.Fatalf("List() with bogus sort error = %v", err)
	}
	if len(items) != 2 {
		t.Errorf("List() len = %d, want 2", len(items))
	}
}

func TestQuestionCounts(t *testing.T) {
	q := newTestQuestionDB(t)
	p1 := createTestQuestion(t, q, "q1", model.CategoryAdmission)
	publish(t, q, p1, "a1")
	p2 := createTestQuestion(t, q, "q2", model.CategoryGeneral)
	publish(t, q, p2, "a2")
	createTestQuestion(t, q, "q3", model.CategoryGeneral)

	byStatus, err := q.CountByStatus(context.Background())
	if err != nil {
		t.Fatalf("CountByStatus() error = %v", err)
	}
	if byStatus[model.StatusPublished] != 2 || byStatus[model.StatusPending] != 1 {
		t.Errorf("CountByStatus() = %v", byStatus)
	}

	all, err := q.CountByCategory(context.Background(), false)
	if err != nil {
		t.Fatalf("CountByCategory(false) error = %v", err)
	}
	totals := map[model.Category]int{}
	for _, c := range all {
		totals[c.Category] = c.Count
	}
	if totals[model.CategoryGeneral] != 2 || totals[model.CategoryAdmission] != 1 {
		t.Errorf("CountByCategory(false) = %v", all)
	}

	faqOnly, err := q.CountByCategory(context.Background(), true)
	if err != nil {
		t.Fatalf("CountByCategory(true) error = %v", err)
	}
	totals = map[model.Category]int{}
	for _, c := range faqOnly {
		totals[c.Category] = c.Count
	}
	if totals[model.CategoryGeneral] != 1 || totals[model.CategoryAdmission] != 1 {
		t.Errorf("CountByCategory(true) = %v", faqOnly)
	}

	n, err := q.CountFAQ(context.Background())
	if err != nil {
		t.Fatalf("CountFAQ() error = %v", err)
	}
	if n != 2 {
		t.Errorf("CountFAQ() = %d, want 2", n)
	}
}

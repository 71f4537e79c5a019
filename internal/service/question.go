package service

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/phm-oh/chatqa-backend/internal/apperror"
	"github.com/phm-oh/chatqa-backend/internal/model"
	"github.com/phm-oh/chatqa-backend/internal/repository"
)

// notifyTimeout bounds the background email sends so a slow SMTP server
// can never pile up goroutines indefinitely.
const notifyTimeout = 15 * time.Second

// Notifier is the slice of the mailer the question service needs.
// notify.Mailer satisfies it; tests substitute a recorder.
type Notifier interface {
	SendNewQuestionAlert(ctx context.Context, q *model.Question) error
	SendQuestionAnsweredNotification(ctx context.Context, q *model.Question) error
}

// QuestionService handles visitor question intake, admin triage, and the
// public FAQ views.
type QuestionService struct {
	questions repository.QuestionRepository
	notifier  Notifier
	logger    *slog.Logger
}

// NewQuestionService creates a QuestionService. notifier may not be nil;
// pass a disabled Mailer when email is not configured.
func NewQuestionService(
	questions repository.QuestionRepository,
	notifier Notifier,
	logger *slog.Logger,
) *QuestionService {
	return &QuestionService{
		questions: questions,
		notifier:  notifier,
		logger:    logger,
	}
}

// SubmitInput is a visitor's question submission.
type SubmitInput struct {
	Name     string
	Email    string
	Phone    string
	Category model.Category
	Question string
}

// Submit validates and stores a new visitor question, then alerts the
// admin mailbox in the background. Email delivery failure never fails
// the submission — the question is already safely stored.
func (s *QuestionService) Submit(ctx context.Context, in SubmitInput) (*model.Question, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Question = strings.TrimSpace(in.Question)
	if in.Category == "" {
		in.Category = model.CategoryGeneral
	}

	if in.Name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, apperror.ValidationFailed("email", "invalid email address")
	}
	if in.Question == "" {
		return nil, apperror.ValidationFailed("question", "question is required")
	}
	if len(in.Question) > 2000 {
		return nil, apperror.ValidationFailed("question", "question must be at most 2000 characters")
	}
	if !in.Category.Valid() {
		return nil, apperror.ValidationFailed("category", "unknown category")
	}

	q := &model.Question{
		Name:     in.Name,
		Email:    in.Email,
		Phone:    strings.TrimSpace(in.Phone),
		Category: in.Category,
		Question: in.Question,
		Status:   model.StatusPending,
	}
	if err := s.questions.Create(ctx, q); err != nil {
		return nil, err
	}

	s.logger.Info("question submitted",
		slog.String("questionID", q.ID),
		slog.String("category", string(q.Category)),
	)
	s.notifyAsync(q, s.notifier.SendNewQuestionAlert)
	return q, nil
}

// Get returns one question by ID, including submitter details. Admin use
// only — public FAQ reads go through GetFAQ.
func (s *QuestionService) Get(ctx context.Context, id string) (*model.Question, error) {
	return s.questions.GetByID(ctx, id)
}

// List returns a page of questions with the total matching count.
func (s *QuestionService) List(ctx context.Context, filter repository.QuestionFilter, opts repository.ListOptions) ([]model.Question, int, error) {
	return s.questions.List(ctx, filter, opts)
}

// UpdateInput carries the admin-editable fields of a question. Nil
// pointers mean "leave unchanged".
type UpdateInput struct {
	Answer     *string
	Status     *model.Status
	ShowInFAQ  *bool
	AdminNotes *string
}

// Update applies an admin edit to a question.
//
// DateAnswered tracks the status: it is stamped the first time the status
// leaves pending and cleared if the question is sent back to pending.
// The submitter is emailed (in the background) the first time an answer
// appears on their question.
func (s *QuestionService) Update(ctx context.Context, id, adminID string, in UpdateInput) (*model.Question, error) {
	q, err := s.questions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	hadAnswer := q.Answer != ""

	if in.Answer != nil {
		q.Answer = strings.TrimSpace(*in.Answer)
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, apperror.ValidationFailed("status", "unknown status")
		}
		q.Status = *in.Status
	}
	if in.ShowInFAQ != nil {
		q.ShowInFAQ = *in.ShowInFAQ
	}
	if in.AdminNotes != nil {
		q.AdminNotes = strings.TrimSpace(*in.AdminNotes)
	}

	if q.Status != model.StatusPending && q.Answer == "" {
		return nil, apperror.ValidationFailed("answer", "an answer is required before marking the question answered")
	}

	switch {
	case q.Status == model.StatusPending:
		q.DateAnswered = nil
		q.AnsweredBy = ""
	case q.DateAnswered == nil:
		now := time.Now()
		q.DateAnswered = &now
		q.AnsweredBy = adminID
	}

	if err := s.questions.Update(ctx, q); err != nil {
		return nil, err
	}

	if !hadAnswer && q.Answer != "" && q.Status != model.StatusPending {
		s.notifyAsync(q, s.notifier.SendQuestionAnsweredNotification)
	}
	return q, nil
}

// Delete removes a question permanently.
func (s *QuestionService) Delete(ctx context.Context, id string) error {
	if err := s.questions.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("question deleted", slog.String("questionID", id))
	return nil
}

// DashboardStats summarizes the question queue for the admin dashboard.
type DashboardStats struct {
	Total         int                        `json:"total"`
	ByStatus      map[model.Status]int       `json:"byStatus"`
	CategoryStats []repository.CategoryCount `json:"categoryStats"`
	FAQCount      int                        `json:"faqCount"`
}

// Stats aggregates queue counts by status and category.
func (s *QuestionService) Stats(ctx context.Context) (*DashboardStats, error) {
	byStatus, err := s.questions.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	byCategory, err := s.questions.CountByCategory(ctx, false)
	if err != nil {
		return nil, err
	}
	faqCount, err := s.questions.CountFAQ(ctx)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, n := range byStatus {
		total += n
	}
	return &DashboardStats{
		Total:         total,
		ByStatus:      byStatus,
		CategoryStats: byCategory,
		FAQCount:      faqCount,
	}, nil
}

// ListFAQ returns public FAQ entries, optionally narrowed by category and
// search text. Only published questions flagged for the FAQ appear.
func (s *QuestionService) ListFAQ(ctx context.Context, category model.Category, search string, opts repository.ListOptions) ([]model.FAQEntry, int, error) {
	if category != "" && !category.Valid() {
		return nil, 0, apperror.ValidationFailed("category", "unknown category")
	}

	filter := repository.QuestionFilter{
		FAQOnly:  true,
		Category: category,
		Search:   strings.TrimSpace(search),
	}
	items, total, err := s.questions.List(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return toFAQEntries(items), total, nil
}

// GetFAQ returns one public FAQ entry. A question that exists but is not
// published to the FAQ behaves as not found — the public surface must not
// reveal pending submissions.
func (s *QuestionService) GetFAQ(ctx context.Context, id string) (*model.FAQEntry, error) {
	q, err := s.questions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !q.ShowInFAQ || q.Status != model.StatusPublished {
		return nil, apperror.NotFound("faq entry", id)
	}
	entry := q.FAQEntry()
	return &entry, nil
}

// FAQCategory is one entry of the public category listing.
type FAQCategory struct {
	Value model.Category `json:"value"`
	Count int            `json:"count"`
}

// FAQCategories returns per-category counts of public FAQ entries, with a
// synthetic "all" entry first carrying the grand total. Categories with
// zero entries still appear so the client can render the full filter bar.
func (s *QuestionService) FAQCategories(ctx context.Context) ([]FAQCategory, error) {
	counts, err := s.questions.CountByCategory(ctx, true)
	if err != nil {
		return nil, err
	}

	byCat := make(map[model.Category]int, len(counts))
	total := 0
	for _, c := range counts {
		byCat[c.Category] = c.Count
		total += c.Count
	}

	out := make([]FAQCategory, 0, len(model.Categories())+1)
	out = append(out, FAQCategory{Value: "all", Count: total})
	for _, c := range model.Categories() {
		out = append(out, FAQCategory{Value: c, Count: byCat[c]})
	}
	return out, nil
}

// PopularFAQ returns the latest published FAQ entries for the landing
// page, capped at limit (10 when limit <= 0).
func (s *QuestionService) PopularFAQ(ctx context.Context, limit int) ([]model.FAQEntry, error) {
	if limit <= 0 || limit > 10 {
		limit = 10
	}
	items, _, err := s.questions.List(ctx,
		repository.QuestionFilter{FAQOnly: true},
		repository.ListOptions{Limit: limit, SortDesc: true})
	if err != nil {
		return nil, err
	}
	return toFAQEntries(items), nil
}

// SearchFAQ is ListFAQ restricted to a non-trivial search term.
func (s *QuestionService) SearchFAQ(ctx context.Context, term string, opts repository.ListOptions) ([]model.FAQEntry, int, error) {
	term = strings.TrimSpace(term)
	if len(term) < 2 {
		return nil, 0, apperror.ValidationFailed("q", "search term must be at least 2 characters")
	}
	return s.ListFAQ(ctx, "", term, opts)
}

// notifyAsync runs one email send in the background with its own timeout.
// The request context is NOT reused: the HTTP response must not wait on
// SMTP, and the send must survive the request ending.
func (s *QuestionService) notifyAsync(q *model.Question, send func(context.Context, *model.Question) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := send(ctx, q); err != nil {
			s.logger.Error("notification email failed",
				slog.String("questionID", q.ID),
				slog.String("error", err.Error()),
			)
		}
	}()
}

func toFAQEntries(items []model.Question) []model.FAQEntry {
	out := make([]model.FAQEntry, len(items))
	for i := range items {
		out[i] = items[i].FAQEntry()
	}
	return out
}

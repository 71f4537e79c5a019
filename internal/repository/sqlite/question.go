package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/phm-oh/chatqa-backend/internal/apperror"
	"github.com/phm-oh/chatqa-backend/internal/model"
	"github.com/phm-oh/chatqa-backend/internal/repository"
)

// QuestionDB implements repository.QuestionRepository over the shared pool.
type QuestionDB struct {
	conn *sql.DB
}

var _ repository.QuestionRepository = (*QuestionDB)(nil)

const questionColumns = `id, name, email, phone, category, question, answer, status,
	show_in_faq, admin_notes, answered_by, date_answered, created_at, updated_at`

func scanQuestion(scan func(dest ...any) error) (*model.Question, error) {
	var (
		q        model.Question
		answered sql.NullTime
	)

	err := scan(
		&q.ID, &q.Name, &q.Email, &q.Phone, &q.Category, &q.Question, &q.Answer, &q.Status,
		&q.ShowInFAQ, &q.AdminNotes, &q.AnsweredBy, &answered, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if answered.Valid {
		t := answered.Time
		q.DateAnswered = &t
	}

	return &q, nil
}

// Create inserts a new question. ID and timestamps are filled in here;
// the submitter email is lowercased at write time.
func (db *QuestionDB) Create(ctx context.Context, q *model.Question) error {
	now := time.Now().UTC()
	q.ID = xid.New().String()
	q.Email = strings.ToLower(strings.TrimSpace(q.Email))
	if q.Status == "" {
		q.Status = model.StatusPending
	}
	q.CreatedAt = now
	q.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO questions (id, name, email, phone, category, question, answer, status,
			show_in_faq, admin_notes, answered_by, date_answered, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.Name, q.Email, q.Phone, q.Category, q.Question, q.Answer, q.Status,
		q.ShowInFAQ, q.AdminNotes, q.AnsweredBy, nullableTime(q.DateAnswered), q.CreatedAt, q.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting question: %w", err)
	}

	return nil
}

// GetByID retrieves a question by ID.
// Returns apperror.ErrNotFound if no question exists with that ID.
func (db *QuestionDB) GetByID(ctx context.Context, id string) (*model.Question, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = ?`, id)

	q, err := scanQuestion(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("question", id)
		}
		return nil, fmt.Errorf("sqlite: getting question %s: %w", id, err)
	}

	return q, nil
}

// List returns a page of questions plus the total matching count.
//
// SortBy is whitelisted: anything outside the known set falls back to
// created_at, so a query parameter can never inject SQL here.
func (db *QuestionDB) List(ctx context.Context, filter repository.QuestionFilter, opts repository.ListOptions) ([]model.Question, int, error) {
	where, args := questionWhere(filter)

	var total int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM questions WHERE `+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting questions: %w", err)
	}

	sortCol := "created_at"
	switch opts.SortBy {
	case "status":
		sortCol = "status"
	case "category":
		sortCol = "category"
	case "", "createdAt", "dateCreated":
		// default
	}
	direction := "ASC"
	if opts.SortDesc {
		direction = "DESC"
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	query := fmt.Sprintf(
		`SELECT %s FROM questions WHERE %s ORDER BY %s %s LIMIT ? OFFSET ?`,
		questionColumns, where, sortCol, direction,
	)
	rows, err := db.conn.QueryContext(ctx, query, append(args, limit, opts.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing questions: %w", err)
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning question row: %w", err)
		}
		questions = append(questions, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating question rows: %w", err)
	}

	return questions, total, nil
}

// Update persists the triage fields of an existing question.
func (db *QuestionDB) Update(ctx context.Context, q *model.Question) error {
	q.UpdatedAt = time.Now().UTC()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE questions SET answer = ?, status = ?, show_in_faq = ?, admin_notes = ?,
			answered_by = ?, date_answered = ?, updated_at = ?
		 WHERE id = ?`,
		q.Answer, q.Status, q.ShowInFAQ, q.AdminNotes,
		q.AnsweredBy, nullableTime(q.DateAnswered), q.UpdatedAt, q.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating question %s: %w", q.ID, err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("question", q.ID)
	}

	return nil
}

// Delete removes a question permanently.
func (db *QuestionDB) Delete(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM questions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting question %s: %w", id, err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("question", id)
	}

	return nil
}

// CountByStatus returns the number of questions per status.
func (db *QuestionDB) CountByStatus(ctx context.Context) (map[model.Status]int, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM questions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: counting questions by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.Status]int)
	for rows.Next() {
		var status model.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("sqlite: scanning status count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// CountByCategory aggregates question counts per category, most popular
// first. With faqOnly, only published FAQ questions are counted.
func (db *QuestionDB) CountByCategory(ctx context.Context, faqOnly bool) ([]repository.CategoryCount, error) {
	query := `SELECT category, COUNT(*) AS n FROM questions`
	var args []any
	if faqOnly {
		query += ` WHERE show_in_faq = 1 AND status = ?`
		args = append(args, model.StatusPublished)
	}
	query += ` GROUP BY category ORDER BY n DESC`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: counting questions by category: %w", err)
	}
	defer rows.Close()

	var counts []repository.CategoryCount
	for rows.Next() {
		var cc repository.CategoryCount
		if err := rows.Scan(&cc.Category, &cc.Count); err != nil {
			return nil, fmt.Errorf("sqlite: scanning category count: %w", err)
		}
		counts = append(counts, cc)
	}
	return counts, rows.Err()
}

// CountFAQ returns the number of publicly visible FAQ entries.
func (db *QuestionDB) CountFAQ(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM questions WHERE show_in_faq = 1 AND status = ?`,
		model.StatusPublished,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting FAQ questions: %w", err)
	}
	return count, nil
}

// questionWhere builds the WHERE clause for list/count queries.
func questionWhere(filter repository.QuestionFilter) (string, []any) {
	where := "1=1"
	args := []any{}

	if filter.FAQOnly {
		where += " AND show_in_faq = 1 AND status = ?"
		args = append(args, model.StatusPublished)
	}
	if filter.Status != "" {
		where += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.Category != "" {
		where += " AND category = ?"
		args = append(args, filter.Category)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		// LIKE is case-insensitive for ASCII in SQLite by default.
		where += ` AND (question LIKE ? ESCAPE '\' OR answer LIKE ? ESCAPE '\')`
		pattern := "%" + escapeLike(s) + "%"
		args = append(args, pattern, pattern)
	}

	return where, args
}

// escapeLike neutralizes LIKE metacharacters in user search input so a
// term like "100%" matches literally instead of as a prefix pattern.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

// nullableTime converts *time.Time into a driver-friendly value,
// normalizing to UTC like every other stored timestamp.
func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

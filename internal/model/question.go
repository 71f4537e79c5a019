package model

import "time"

// Category is the fixed set of intake topics a visitor can file under.
type Category string

const (
	CategoryGeneral    Category = "general"
	CategoryAdmission  Category = "admission"
	CategoryCurriculum Category = "curriculum"
	CategoryFacilities Category = "facilities"
	CategoryOther      Category = "other"
)

// Categories lists every valid category, in display order.
func Categories() []Category {
	return []Category{
		CategoryGeneral,
		CategoryAdmission,
		CategoryCurriculum,
		CategoryFacilities,
		CategoryOther,
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Status is the triage state of a submitted question.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAnswered  Status = "answered"
	StatusPublished Status = "published"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAnswered, StatusPublished:
		return true
	}
	return false
}

// Question is a visitor-submitted question with its (eventual) answer.
//
// A question appears on the public FAQ only when ShowInFAQ is set AND the
// status is published — both conditions, always checked together.
// DateAnswered is stamped when the status first moves to answered or
// published and cleared if it goes back to pending.
type Question struct {
	ID    string `json:"id"    db:"id"`
	Name  string `json:"name"  db:"name"`  // submitter display name
	Email string `json:"email" db:"email"` // submitter contact, lowercase
	Phone string `json:"phone" db:"phone"`

	Category Category `json:"category" db:"category"`
	Question string   `json:"question" db:"question"`
	Answer   string   `json:"answer"   db:"answer"`
	Status   Status   `json:"status"   db:"status"`

	ShowInFAQ  bool   `json:"showInFAQ"  db:"show_in_faq"`
	AdminNotes string `json:"adminNotes" db:"admin_notes"`
	AnsweredBy string `json:"answeredBy" db:"answered_by"`

	DateAnswered *time.Time `json:"dateAnswered" db:"date_answered"`
	CreatedAt    time.Time  `json:"createdAt"    db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt"    db:"updated_at"`
}

// FAQEntry is the public projection of a published question — just the
// Q&A content, no submitter contact details.
type FAQEntry struct {
	ID           string     `json:"id"`
	Question     string     `json:"question"`
	Answer       string     `json:"answer"`
	Category     Category   `json:"category"`
	CreatedAt    time.Time  `json:"createdAt"`
	DateAnswered *time.Time `json:"dateAnswered"`
}

// FAQEntry returns the public projection of the question.
func (q *Question) FAQEntry() FAQEntry {
	return FAQEntry{
		ID:           q.ID,
		Question:     q.Question,
		Answer:       q.Answer,
		Category:     q.Category,
		CreatedAt:    q.CreatedAt,
		DateAnswered: q.DateAnswered,
	}
}

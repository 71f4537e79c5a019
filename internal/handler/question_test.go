package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/phm-oh/chatqa-backend/internal/model"
)

// submitQuestion posts a question through the public endpoint and returns
// its ID.
func submitQuestion(e *testEnv, t *testing.T, category, question string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/questions/", "", map[string]string{
		"name":     "Visitor",
		"email":    "visitor@example.com",
		"category": category,
		"question": question,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit status = %d body = %s", rec.Code, rec.Body.String())
	}
	var q model.Question
	if err := json.Unmarshal(rec.Body.Bytes(), &q); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	return q.ID
}

// publishQuestion answers and publishes a question as an admin.
func publishQuestion(e *testEnv, t *testing.T, token, id string) {
	t.Helper()
	rec := e.do(t, http.MethodPut, "/api/questions/"+id, token, map[string]interface{}{
		"answer":    "Here is the answer.",
		"status":    "published",
		"showInFAQ": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("publish status = %d body = %s", rec.Code, rec.Body.String())
	}
}

// =========================================================================
// INTAKE TESTS
// =========================================================================

func TestHandleSubmit(t *testing.T) {
	env := newTestEnv(t)
	id := submitQuestion(env, t, "admission", "When does enrollment open?")
	if id == "" {
		t.Fatal("submit returned no ID")
	}
}

func TestHandleSubmit_Validation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/questions/", "", map[string]string{
		"name": "Visitor", "email": "not-an-email", "question": "hi",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad email status = %d, want 400", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/questions/", "", map[string]string{
		"name": "Visitor", "email": "a@b.co",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing question status = %d, want 400", rec.Code)
	}
}

// =========================================================================
// TRIAGE TESTS
// =========================================================================

func TestQuestionTriage_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	id := submitQuestion(env, t, "general", "Anyone there?")

	if rec := env.do(t, http.MethodGet, "/api/questions/", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("list without auth = %d, want 401", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/questions/"+id, "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("get without auth = %d, want 401", rec.Code)
	}
}

func TestQuestionTriage_UpdateAndList(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "alice", "alice-password")
	id := submitQuestion(env, t, "curriculum", "What courses are offered?")

	publishQuestion(env, t, token, id)

	rec := env.do(t, http.MethodGet, "/api/questions/?status=published", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list struct {
		Data       []model.Question `json:"data"`
		Pagination Pagination       `json:"pagination"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if list.Pagination.Total != 1 || list.Data[0].ID != id {
		t.Errorf("list = %+v", list)
	}
	if list.Data[0].DateAnswered == nil {
		t.Error("published question missing dateAnswered")
	}
}

func TestQuestionDelete_SuperAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.login(t, "alice", "alice-password")
	bossToken := env.login(t, "boss", "boss-password")
	id := submitQuestion(env, t, "other", "Delete me please")

	if rec := env.do(t, http.MethodDelete, "/api/questions/"+id, aliceToken, nil); rec.Code != http.StatusForbidden {
		t.Errorf("admin delete = %d, want 403", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/api/questions/"+id, bossToken, nil); rec.Code != http.StatusNoContent {
		t.Errorf("super_admin delete = %d, want 204", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/questions/"+id, bossToken, nil); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", rec.Code)
	}
}

func TestHandleQuestionStats(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "alice", "alice-password")
	id := submitQuestion(env, t, "admission", "When does enrollment open?")
	publishQuestion(env, t, token, id)
	submitQuestion(env, t, "general", "Still pending")

	rec := env.do(t, http.MethodGet, "/api/questions/stats", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rec.Code)
	}
	var stats struct {
		Total    int                  `json:"total"`
		ByStatus map[model.Status]int `json:"byStatus"`
		FAQCount int                  `json:"faqCount"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if stats.Total != 2 || stats.FAQCount != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

// =========================================================================
// PUBLIC FAQ TESTS
// =========================================================================

func TestFAQ_PublicRead(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "alice", "alice-password")
	published := submitQuestion(env, t, "admission", "When does enrollment open?")
	publishQuestion(env, t, token, published)
	pending := submitQuestion(env, t, "general", "Secret pending question")

	// List shows only the published entry, without submitter details
	rec := env.do(t, http.MethodGet, "/api/faq/", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("faq list status = %d", rec.Code)
	}
	var list struct {
		Data []model.FAQEntry `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(list.Data) != 1 || list.Data[0].ID != published {
		t.Fatalf("faq list = %+v", list.Data)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("visitor@example.com")) {
		t.Error("FAQ response leaks submitter email")
	}

	// Pending question is invisible by ID too
	if rec := env.do(t, http.MethodGet, "/api/faq/"+pending, "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("pending faq get = %d, want 404", rec.Code)
	}
}

func TestFAQ_CategoriesAndSearch(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "alice", "alice-password")
	id := submitQuestion(env, t, "admission", "When does enrollment open?")
	publishQuestion(env, t, token, id)

	rec := env.do(t, http.MethodGet, "/api/faq/categories", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("categories status = %d", rec.Code)
	}
	var cats []struct {
		Value string `json:"value"`
		Count int    `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &cats); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if cats[0].Value != "all" || cats[0].Count != 1 {
		t.Errorf("categories[0] = %+v, want all=1", cats[0])
	}

	if rec := env.do(t, http.MethodGet, "/api/faq/search?q=enrollment", "", nil); rec.Code != http.StatusOK {
		t.Errorf("search status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/faq/search?q=e", "", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("one-char search status = %d, want 400", rec.Code)
	}
}

func TestFAQ_Popular(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "alice", "alice-password")
	id := submitQuestion(env, t, "facilities", "Is there a library?")
	publishQuestion(env, t, token, id)

	rec := env.do(t, http.MethodGet, "/api/faq/popular", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("popular status = %d", rec.Code)
	}
	var entries []model.FAQEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("popular len = %d, want 1", len(entries))
	}
}

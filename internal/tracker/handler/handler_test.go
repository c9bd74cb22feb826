package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lexledger/lexledger/internal/ingest"
	"github.com/lexledger/lexledger/internal/ledger"
	"github.com/lexledger/lexledger/internal/simplify"
	"github.com/lexledger/lexledger/internal/tracker/handler"
	"github.com/lexledger/lexledger/internal/tracker/service"
	"go.uber.org/zap"
)

const testSecret = "test-admin-secret"

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	l, err := ledger.Open(context.Background(), ledger.NewMemoryStore(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	svc := service.NewAmendmentService(l, simplify.NewRuleBased(), zap.NewNop())
	pipeline := ingest.NewPipeline(svc, zap.NewNop())

	auth := handler.NewAuthHandler(testSecret, []byte("test-signing-key"), 0, zap.NewNop())
	admin := auth.RequireAdmin()

	r := gin.New()
	v1 := r.Group("/api/v1")
	auth.Register(v1)
	handler.NewAmendmentHandler(svc, zap.NewNop()).Register(v1, admin)
	handler.NewLedgerHandler(svc, zap.NewNop()).Register(v1, admin)
	handler.NewIngestHandler(pipeline, zap.NewNop()).Register(v1, admin)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func adminToken(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := do(t, r, http.MethodPost, "/api/v1/auth/token", `{"secret":"`+testSecret+`"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("token issue: %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp.Token
}

const amendmentBody = `{
	"act_id": "ACT-001",
	"content": "Artykuł 1: Osoby fizyczne mają prawo do ochrony danych.",
	"change_type": "substantive",
	"author": "Legislator A"
}`

func TestAuth_wrongSecret401(t *testing.T) {
	r := setupRouter(t)
	w := do(t, r, http.MethodPost, "/api/v1/auth/token", `{"secret":"nope"}`, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestSubmit_requiresAdmin(t *testing.T) {
	r := setupRouter(t)
	w := do(t, r, http.MethodPost, "/api/v1/amendments", amendmentBody, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	w = do(t, r, http.MethodPost, "/api/v1/amendments", amendmentBody, "not-a-jwt")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bogus token, got %d", w.Code)
	}
}

func TestSubmit_201_andListed(t *testing.T) {
	r := setupRouter(t)
	token := adminToken(t, r)

	w := do(t, r, http.MethodPost, "/api/v1/amendments", amendmentBody, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var created struct {
		Seq      uint64 `json:"seq"`
		PrevHash string `json:"prev_hash"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.Seq != 0 || created.PrevHash != ledger.GenesisHash {
		t.Errorf("created: %+v", created)
	}

	w = do(t, r, http.MethodGet, "/api/v1/amendments", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d", w.Code)
	}
	var listed struct {
		Total int `json:"total"`
	}
	json.Unmarshal(w.Body.Bytes(), &listed) //nolint:errcheck
	if listed.Total != 1 {
		t.Errorf("total: got %d, want 1", listed.Total)
	}
}

func TestSubmit_400_onValidation(t *testing.T) {
	r := setupRouter(t)
	token := adminToken(t, r)

	w := do(t, r, http.MethodPost, "/api/v1/amendments",
		`{"act_id":"A","content":"x","change_type":"cosmetic","author":"B"}`, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSubmit_409_onTimestampRegression(t *testing.T) {
	r := setupRouter(t)
	token := adminToken(t, r)

	first := `{"act_id":"A","content":"pierwsza","change_type":"substantive","author":"B","timestamp":"2024-05-01T00:00:00Z"}`
	if w := do(t, r, http.MethodPost, "/api/v1/amendments", first, token); w.Code != http.StatusCreated {
		t.Fatalf("first append: %d: %s", w.Code, w.Body.String())
	}

	earlier := `{"act_id":"A","content":"druga","change_type":"substantive","author":"B","timestamp":"2024-01-01T00:00:00Z"}`
	if w := do(t, r, http.MethodPost, "/api/v1/amendments", earlier, token); w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetAmendment(t *testing.T) {
	r := setupRouter(t)
	token := adminToken(t, r)
	do(t, r, http.MethodPost, "/api/v1/amendments", amendmentBody, token)

	if w := do(t, r, http.MethodGet, "/api/v1/amendments/0", "", ""); w.Code != http.StatusOK {
		t.Errorf("get 0: %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/api/v1/amendments/99", "", ""); w.Code != http.StatusNotFound {
		t.Errorf("get 99: expected 404, got %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/api/v1/amendments/abc", "", ""); w.Code != http.StatusBadRequest {
		t.Errorf("get abc: expected 400, got %d", w.Code)
	}
	// Larger than math.MaxInt64 but still a valid uint64: must be a clean 404.
	if w := do(t, r, http.MethodGet, "/api/v1/amendments/9223372036854775808", "", ""); w.Code != http.StatusNotFound {
		t.Errorf("get 2^63: expected 404, got %d", w.Code)
	}
}

func TestLedgerVerify(t *testing.T) {
	r := setupRouter(t)
	token := adminToken(t, r)
	do(t, r, http.MethodPost, "/api/v1/amendments", amendmentBody, token)

	w := do(t, r, http.MethodGet, "/api/v1/ledger/verify", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("verify: %d", w.Code)
	}
	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp) //nolint:errcheck
	if resp["valid"] != true {
		t.Errorf("expected valid=true, got %v", resp["valid"])
	}
	if _, present := resp["defect"]; present {
		t.Error("defect must be absent on a valid chain")
	}
}

func TestLedgerStatistics_emptyChain(t *testing.T) {
	r := setupRouter(t)

	w := do(t, r, http.MethodGet, "/api/v1/ledger/statistics", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("statistics: %d", w.Code)
	}
	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp) //nolint:errcheck
	if resp["count"].(float64) != 0 {
		t.Errorf("count: %v", resp["count"])
	}
	if _, present := resp["span"]; present {
		t.Error("span must be absent on an empty chain")
	}
}

func TestLedgerReset_adminOnly(t *testing.T) {
	r := setupRouter(t)
	token := adminToken(t, r)
	do(t, r, http.MethodPost, "/api/v1/amendments", amendmentBody, token)

	if w := do(t, r, http.MethodPost, "/api/v1/ledger/reset", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated reset: expected 401, got %d", w.Code)
	}

	if w := do(t, r, http.MethodPost, "/api/v1/ledger/reset", "", token); w.Code != http.StatusOK {
		t.Fatalf("reset: %d", w.Code)
	}

	w := do(t, r, http.MethodGet, "/api/v1/ledger", "", "")
	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp) //nolint:errcheck
	if resp["count"].(float64) != 0 {
		t.Errorf("count after reset: %v", resp["count"])
	}
}

func TestIngest_xmlDocument(t *testing.T) {
	r := setupRouter(t)
	token := adminToken(t, r)

	doc := `<LegalAct><ActID>ACT-9</ActID><Title>Test</Title><Amendments>
  <Amendment><Content>Artykuł 1.</Content><Author>A</Author><Date>2024-01-01</Date></Amendment>
  <Amendment><Content>Artykuł 2.</Content><Author>B</Author><Date>2024-02-01</Date></Amendment>
</Amendments></LegalAct>`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", strings.NewReader(doc))
	req.Header.Set("Content-Type", "application/xml")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("ingest: %d: %s", w.Code, w.Body.String())
	}
	var report struct {
		Parsed   int `json:"parsed"`
		Appended int `json:"appended"`
	}
	json.Unmarshal(w.Body.Bytes(), &report) //nolint:errcheck
	if report.Parsed != 2 || report.Appended != 2 {
		t.Errorf("report: %+v", report)
	}
}

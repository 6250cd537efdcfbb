package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Zaxis018/cbs-match-bot/internal/domain"
	"github.com/Zaxis018/cbs-match-bot/internal/domain/entity"
	"github.com/Zaxis018/cbs-match-bot/internal/domain/match"
	"github.com/Zaxis018/cbs-match-bot/internal/domain/record"
	"github.com/Zaxis018/cbs-match-bot/internal/domain/refdata"
	healthuc "github.com/Zaxis018/cbs-match-bot/internal/usecase/health"
)

type stubMatcher struct {
	result match.Result
}

func (m stubMatcher) Match(context.Context, record.Raw, float64) match.Result {
	return m.result
}

func newTestRouter(m Matcher) http.Handler {
	r := chirouter.NewRouter()
	srv := NewServer(m, healthuc.New(nil, nil), zap.NewNop())
	srv.Routes(r)
	return r
}

func postMatch(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/match", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleMatchMatched(t *testing.T) {
	cand := match.NewCandidate(
		refdata.Row{"ACCT_NAME": "RAM THAPA"},
		0.97,
		map[entity.Field]float64{entity.Name: 0.97},
	)
	m := stubMatcher{result: match.Matched(
		[]match.Candidate{cand},
		map[entity.Field]float64{entity.Name: 1},
	)}

	rec := postMatch(t, newTestRouter(m), `{"record":{"person_name":"Ram Thapa"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp struct {
		Outcome string `json:"outcome"`
		Weights map[string]float64
		Matches []struct {
			Score       float64            `json:"score"`
			FieldScores map[string]float64 `json:"field_scores"`
			Record      map[string]string  `json:"record"`
		} `json:"matches"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Outcome != "matched" || len(resp.Matches) != 1 {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Matches[0].Score != 0.97 || resp.Matches[0].Record["ACCT_NAME"] != "RAM THAPA" {
		t.Errorf("match = %+v", resp.Matches[0])
	}
	if resp.Matches[0].FieldScores["name"] != 0.97 {
		t.Errorf("field scores = %v", resp.Matches[0].FieldScores)
	}
}

func TestHandleMatchErrorOutcome(t *testing.T) {
	m := stubMatcher{result: match.ErrorResult(domain.ErrUnknownEntity)}

	rec := postMatch(t, newTestRouter(m), `{"record":{"entity_type":"trust"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for error outcome", rec.Code)
	}
	var resp struct {
		Outcome string `json:"outcome"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Outcome != "error" || resp.Message != domain.ErrUnknownEntity.Error() {
		t.Errorf("resp = %+v", resp)
	}
}

func TestHandleMatchBadRequests(t *testing.T) {
	m := stubMatcher{result: match.Unmatched(nil)}
	h := newTestRouter(m)

	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"empty record", `{"record":{}}`},
		{"threshold too high", `{"record":{"person_name":"x"},"threshold":1.5}`},
		{"negative threshold", `{"record":{"person_name":"x"},"threshold":-0.1}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if rec := postMatch(t, h, c.body); rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestHandleHealth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	newTestRouter(stubMatcher{}).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q", resp.Status)
	}
}

func TestBearerAuth(t *testing.T) {
	base := newTestRouter(stubMatcher{result: match.Unmatched(nil)})
	h := BearerAuthMiddleware([]string{"key-1"})(base)

	// No token.
	rec := postMatch(t, h, `{"record":{"person_name":"x"}}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d", rec.Code)
	}

	// Wrong token.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/match", strings.NewReader(`{"record":{"person_name":"x"}}`))
	req.Header.Set("Authorization", "Bearer nope")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d", rec.Code)
	}

	// Valid token.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/match", strings.NewReader(`{"record":{"person_name":"x"}}`))
	req.Header.Set("Authorization", "Bearer key-1")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("valid token: status = %d", rec.Code)
	}

	// Health exempt.
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("health exempt: status = %d", rec.Code)
	}
}

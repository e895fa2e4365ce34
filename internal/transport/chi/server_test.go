package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/museumrag/internal/domain"
	"github.com/kailas-cloud/museumrag/internal/domain/corpus"
	healthuc "github.com/kailas-cloud/museumrag/internal/usecase/health"
)

// --- Mocks ---

type mockAnswerer struct {
	answer   domain.Answer
	err      error
	calls    int
	question string
	k        int
	usage    func(ctx context.Context)
}

func (m *mockAnswerer) Answer(ctx context.Context, question string, k int) (domain.Answer, error) {
	m.calls++
	m.question, m.k = question, k
	if m.usage != nil {
		m.usage(ctx)
	}
	if m.err != nil {
		return domain.Answer{}, m.err
	}
	a := m.answer
	a.Question, a.K = question, k
	return a, nil
}

func (m *mockAnswerer) DefaultK() int { return 3 }
func (m *mockAnswerer) MaxK() int     { return 5 }

type mockPinger struct{ err error }

func (m *mockPinger) Ping(context.Context) error { return m.err }

type mockProvider struct{ err error }

func (m *mockProvider) HealthCheck(context.Context) error { return m.err }

func locationAnswer() domain.Answer {
	return domain.Answer{
		Text:    "The Dalí Museum is located in St. Petersburg, Florida.",
		Context: "[Location | location]\nThe museum is located at 1 Dalí Boulevard, St. Petersburg, Florida, near the city waterfront.",
		Chunks: []domain.RetrievedChunk{{
			ID:      "5",
			Title:   "Location",
			Section: "location",
			Text:    "The museum is located at 1 Dalí Boulevard, St. Petersburg, Florida, near the city waterfront.",
			Score:   0.82,
		}},
	}
}

func newTestRouter(t *testing.T, ans *mockAnswerer, configErr error, apiMW ...func(http.Handler) http.Handler) http.Handler {
	t.Helper()
	health := healthuc.New(&mockPinger{}, &mockProvider{}, &mockProvider{})
	s := NewServer(ans, corpus.Dali(), health, nil)
	if configErr != nil {
		s.WithConfigError(configErr)
	}
	r := chi.NewRouter()
	s.Register(r, apiMW...)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	if strings.HasPrefix(body, "{") {
		req.Header.Set("Content-Type", "application/json")
	} else if body != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&e); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return e
}

// --- API ---

func TestAskPost_OK(t *testing.T) {
	ans := &mockAnswerer{
		answer: locationAnswer(),
		usage: func(ctx context.Context) {
			u := domain.UsageFromContext(ctx)
			u.AddEmbeddingTokens(7)
			u.AddGenerationTokens(120)
		},
	}
	h := newTestRouter(t, ans, nil)

	rr := do(t, h, http.MethodPost, "/api/v1/ask", `{"question":"Where is the Dalí Museum located?","k":2}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rr.Code, rr.Body.String())
	}
	if ans.k != 2 {
		t.Errorf("k: got %d, want 2", ans.k)
	}
	if got := rr.Header().Get("X-Embedding-Tokens"); got != "7" {
		t.Errorf("X-Embedding-Tokens: got %q", got)
	}
	if got := rr.Header().Get("X-Generation-Tokens"); got != "120" {
		t.Errorf("X-Generation-Tokens: got %q", got)
	}

	var resp AskResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(resp.Answer, "St. Petersburg, Florida") {
		t.Errorf("answer: %q", resp.Answer)
	}
	if resp.K != 2 || resp.Question != "Where is the Dalí Museum located?" {
		t.Errorf("unexpected echo: %+v", resp)
	}
	if len(resp.Chunks) != 1 || resp.Chunks[0].ID != "5" || resp.Chunks[0].Score != 0.82 {
		t.Errorf("chunks: %+v", resp.Chunks)
	}
	if resp.Context == "" {
		t.Error("context is empty")
	}
}

func TestAskPost_DefaultK(t *testing.T) {
	for _, body := range []string{`{"question":"q"}`, `{"question":"q","k":0}`} {
		ans := &mockAnswerer{answer: locationAnswer()}
		h := newTestRouter(t, ans, nil)

		rr := do(t, h, http.MethodPost, "/api/v1/ask", body)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: status %d", body, rr.Code)
		}
		if ans.k != 3 {
			t.Errorf("%s: k got %d, want default 3", body, ans.k)
		}
	}
}

func TestAskPost_InvalidBody(t *testing.T) {
	ans := &mockAnswerer{}
	h := newTestRouter(t, ans, nil)

	rr := do(t, h, http.MethodPost, "/api/v1/ask", `{"question":`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d", rr.Code)
	}
	if e := decodeError(t, rr); e.Code != CodeBadRequest {
		t.Errorf("code: got %s", e.Code)
	}
	if ans.calls != 0 {
		t.Error("pipeline must not run")
	}
}

func TestAskGet_BindsQueryParameters(t *testing.T) {
	ans := &mockAnswerer{answer: locationAnswer()}
	h := newTestRouter(t, ans, nil)

	q := url.Values{"question": {"Where is the Dalí Museum located?"}, "k": {"4"}}
	rr := do(t, h, http.MethodGet, "/api/v1/ask?"+q.Encode(), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rr.Code, rr.Body.String())
	}
	if ans.question != "Where is the Dalí Museum located?" || ans.k != 4 {
		t.Errorf("bound question=%q k=%d", ans.question, ans.k)
	}
}

func TestAskGet_MissingQuestion(t *testing.T) {
	ans := &mockAnswerer{}
	h := newTestRouter(t, ans, nil)

	rr := do(t, h, http.MethodGet, "/api/v1/ask?k=2", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d", rr.Code)
	}
	if ans.calls != 0 {
		t.Error("pipeline must not run")
	}
}

func TestAskGet_NonNumericK(t *testing.T) {
	ans := &mockAnswerer{}
	h := newTestRouter(t, ans, nil)

	rr := do(t, h, http.MethodGet, "/api/v1/ask?question=hi&k=three", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d", rr.Code)
	}
	if e := decodeError(t, rr); e.Code != CodeBadRequest {
		t.Errorf("code: got %s", e.Code)
	}
}

func TestAsk_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   ErrorCode
	}{
		{"validation", fmt.Errorf("question is empty: %w", domain.ErrValidation), http.StatusBadRequest, CodeValidationFailed},
		{"invalid k", fmt.Errorf("k=9: %w", domain.ErrInvalidK), http.StatusBadRequest, CodeValidationFailed},
		{"retrieval", domain.NewRetrievalError(domain.ErrEmbeddingProvider), http.StatusBadGateway, CodeRetrievalFailed},
		{"retrieval deadline", domain.NewRetrievalError(context.DeadlineExceeded), http.StatusBadGateway, CodeRetrievalFailed},
		{"generation", domain.NewGenerationError(domain.ErrGenerationProvider), http.StatusBadGateway, CodeGenerationFailed},
		{"configuration", domain.ErrConfiguration, http.StatusServiceUnavailable, CodeConfigurationError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(t, &mockAnswerer{err: tt.err}, nil)
			rr := do(t, h, http.MethodPost, "/api/v1/ask", `{"question":"q","k":3}`)
			if rr.Code != tt.status {
				t.Fatalf("status: got %d, want %d", rr.Code, tt.status)
			}
			e := decodeError(t, rr)
			if e.Code != tt.code {
				t.Errorf("code: got %s, want %s", e.Code, tt.code)
			}
			if tt.name == "unknown" && e.Message != "internal error" {
				t.Errorf("internal details leaked: %q", e.Message)
			}
		})
	}
}

func TestAsk_RetrievalMessageHidesCause(t *testing.T) {
	err := domain.NewRetrievalError(errors.New("dial tcp 10.0.0.5:6379: connection refused"))
	h := newTestRouter(t, &mockAnswerer{err: err}, nil)

	rr := do(t, h, http.MethodPost, "/api/v1/ask", `{"question":"q"}`)
	e := decodeError(t, rr)
	if strings.Contains(e.Message, "10.0.0.5") {
		t.Errorf("message leaks cause: %q", e.Message)
	}
	if e.Message != domain.ErrRetrieval.Error() {
		t.Errorf("message: got %q", e.Message)
	}
}

func TestAsk_ConfigurationBlocksPipeline(t *testing.T) {
	ans := &mockAnswerer{}
	h := newTestRouter(t, ans, fmt.Errorf("no key: %w", domain.ErrConfiguration))

	rr := do(t, h, http.MethodPost, "/api/v1/ask", `{"question":"q"}`)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d", rr.Code)
	}
	if e := decodeError(t, rr); e.Code != CodeConfigurationError {
		t.Errorf("code: got %s", e.Code)
	}
	if ans.calls != 0 {
		t.Error("pipeline must not run without a credential")
	}
}

func TestListDocuments(t *testing.T) {
	h := newTestRouter(t, &mockAnswerer{}, nil)

	rr := do(t, h, http.MethodGet, "/api/v1/documents", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	var resp DocumentListResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 5 || len(resp.Items) != 5 {
		t.Fatalf("total: got %d", resp.Total)
	}
	if resp.Items[4].Title != "Location" {
		t.Errorf("item 5: %+v", resp.Items[4])
	}
}

func TestAPIMiddleware_OnlyWrapsAPI(t *testing.T) {
	h := newTestRouter(t, &mockAnswerer{answer: locationAnswer()}, nil, BearerAuthMiddleware([]string{"secret"}))

	if rr := do(t, h, http.MethodGet, "/api/v1/documents", ""); rr.Code != http.StatusUnauthorized {
		t.Errorf("api without token: got %d", rr.Code)
	}
	for _, path := range []string{"/", "/health", "/metrics"} {
		if rr := do(t, h, http.MethodGet, path, ""); rr.Code != http.StatusOK {
			t.Errorf("%s: got %d", path, rr.Code)
		}
	}
}

// --- Health & metrics ---

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name   string
		index  error
		status int
		want   string
	}{
		{"healthy", nil, http.StatusOK, "ok"},
		{"index down", errors.New("conn refused"), http.StatusServiceUnavailable, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			health := healthuc.New(&mockPinger{err: tt.index}, &mockProvider{}, &mockProvider{})
			s := NewServer(&mockAnswerer{}, nil, health, nil)
			r := chi.NewRouter()
			s.Register(r)

			rr := do(t, r, http.MethodGet, "/health", "")
			if rr.Code != tt.status {
				t.Fatalf("status: got %d, want %d", rr.Code, tt.status)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != tt.want {
				t.Errorf("status field: got %q", resp.Status)
			}
			if len(resp.Checks) != 3 {
				t.Errorf("checks: %v", resp.Checks)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(t, &mockAnswerer{}, nil)
	rr := do(t, h, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "go_goroutines") {
		t.Error("expected default Go collectors in exposition")
	}
}

// Package chi serves the question page and the JSON API over a chi router.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/museumrag/internal/domain"
	"github.com/kailas-cloud/museumrag/internal/logger"
	healthuc "github.com/kailas-cloud/museumrag/internal/usecase/health"
)

// Answerer runs one question/answer cycle.
type Answerer interface {
	Answer(ctx context.Context, question string, k int) (domain.Answer, error)
	DefaultK() int
	MaxK() int
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server holds the HTTP handlers.
type Server struct {
	rag           Answerer
	documents     []domain.Document
	health        *healthuc.Service
	configErr     error
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP server. rag may be nil only together with a
// configuration error set through WithConfigError.
func NewServer(
	rag Answerer,
	documents []domain.Document,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		rag:       rag,
		documents: documents,
		health:    health,
		logger:    logger,
	}
	// Stage errors first: a retrieval failure caused by a bad setting is still
	// reported as a retrieval failure.
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrRetrieval, http.StatusBadGateway, CodeRetrievalFailed),
		sentinelHandler(domain.ErrGeneration, http.StatusBadGateway, CodeGenerationFailed),
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrConfiguration, http.StatusServiceUnavailable, CodeConfigurationError),
	}
	return s
}

// WithConfigError puts the server into blocked mode: every page and API
// request reports err instead of running the pipeline.
func (s *Server) WithConfigError(err error) *Server {
	s.configErr = err
	return s
}

// Register mounts all routes on r. apiMiddleware wraps only the /api/v1 group.
func (s *Server) Register(r chi.Router, apiMiddleware ...func(http.Handler) http.Handler) {
	r.Get("/", s.Page)
	r.Post("/", s.Page)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apiMiddleware...)
		r.Post("/ask", s.AskPost)
		r.Get("/ask", s.AskGet)
		r.Get("/documents", s.ListDocuments)
	})
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// AskPost handles POST /api/v1/ask.
func (s *Server) AskPost(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	s.ask(w, r, req.Question, req.K)
}

// AskGet handles GET /api/v1/ask?question=...&k=....
func (s *Server) AskGet(w http.ResponseWriter, r *http.Request) {
	var question string
	if err := runtime.BindQueryParameter("form", true, true, "question", r.URL.Query(), &question); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid format for parameter question: "+err.Error())
		return
	}

	var k *int
	if err := runtime.BindQueryParameter("form", true, false, "k", r.URL.Query(), &k); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid format for parameter k: "+err.Error())
		return
	}

	s.ask(w, r, question, k)
}

func (s *Server) ask(w http.ResponseWriter, r *http.Request, question string, k *int) {
	if s.configErr != nil {
		s.handleDomainError(w, r, s.configErr)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	ans, err := s.rag.Answer(ctx, question, s.resolveK(k))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, answerToResponse(ans))
}

// resolveK maps an absent or zero k to the configured default.
func (s *Server) resolveK(k *int) int {
	if k == nil || *k == 0 {
		return s.rag.DefaultK()
	}
	return *k
}

// ListDocuments handles GET /api/v1/documents.
func (s *Server) ListDocuments(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, documentsToResponse(s.documents))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setUsageHeaders(w http.ResponseWriter, usage *domain.Usage) {
	if usage == nil {
		return
	}
	if usage.Embedded {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.EmbeddingTokens))
	}
	if usage.Generated {
		w.Header().Set("X-Generation-Tokens", strconv.Itoa(usage.GenerationTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a client-safe message. Validation errors describe
// the caller's own input and are returned as is; everything else is reduced
// to its sentinel.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrValidation) && !errors.Is(err, domain.ErrRetrieval) &&
		!errors.Is(err, domain.ErrGeneration) {
		return err.Error()
	}
	sentinels := []error{
		domain.ErrRetrieval,
		domain.ErrGeneration,
		domain.ErrConfiguration,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, safeDomainMessage(err))
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

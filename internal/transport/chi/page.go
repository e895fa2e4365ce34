package chi

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/museumrag/internal/domain"
	"github.com/kailas-cloud/museumrag/internal/logger"
)

// User-facing page messages.
const (
	msgMissingKey       = "Please provide your OpenAI API key."
	msgEmptyQuestion    = "Please enter a question."
	msgStart            = "Enter a question and click Get answer to start."
	msgRetrievalFailed  = "Could not retrieve context for this question. Please try again."
	msgGenerationFailed = "Could not generate an answer. Please try again."
	msgInternal         = "Something went wrong. Please try again."
)

//go:embed templates/index.html
var templatesFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

type pageView struct {
	Blocked  bool
	Question string
	K        int
	KOptions []int
	Warning  string
	Info     string
	Error    string
	Answer   string
	Chunks   []domain.RetrievedChunk
}

// Page handles GET / and POST /. GET shows the empty form; POST runs one
// question/answer cycle and renders the result.
func (s *Server) Page(w http.ResponseWriter, r *http.Request) {
	if s.configErr != nil {
		s.renderPage(w, r, http.StatusServiceUnavailable, pageView{Blocked: true, Warning: msgMissingKey})
		return
	}

	view := pageView{K: s.rag.DefaultK()}
	for k := 1; k <= s.rag.MaxK(); k++ {
		view.KOptions = append(view.KOptions, k)
	}

	if r.Method != http.MethodPost {
		view.Info = msgStart
		s.renderPage(w, r, http.StatusOK, view)
		return
	}

	if err := r.ParseForm(); err != nil {
		view.Warning = "Invalid form submission."
		s.renderPage(w, r, http.StatusBadRequest, view)
		return
	}
	view.Question = r.PostFormValue("question")
	if raw := strings.TrimSpace(r.PostFormValue("k")); raw != "" {
		k, err := strconv.Atoi(raw)
		if err != nil {
			view.Warning = "Number of retrieved chunks must be a whole number."
			s.renderPage(w, r, http.StatusOK, view)
			return
		}
		view.K = k
	}

	if strings.TrimSpace(view.Question) == "" {
		view.Warning = msgEmptyQuestion
		s.renderPage(w, r, http.StatusOK, view)
		return
	}

	ans, err := s.rag.Answer(r.Context(), view.Question, view.K)
	if err != nil {
		s.pageError(r, &view, err)
		s.renderPage(w, r, http.StatusOK, view)
		return
	}

	view.Answer = ans.Text
	view.Chunks = ans.Chunks
	s.renderPage(w, r, http.StatusOK, view)
}

// pageError turns a pipeline failure into a visible message. No partial
// answer is ever shown.
func (s *Server) pageError(r *http.Request, view *pageView, err error) {
	log := logger.FromContext(r.Context(), s.logger)
	switch {
	case errors.Is(err, domain.ErrRetrieval):
		log.Warn("page: retrieval failed", zap.Error(err))
		view.Error = msgRetrievalFailed
	case errors.Is(err, domain.ErrGeneration):
		log.Warn("page: generation failed", zap.Error(err))
		view.Error = msgGenerationFailed
	case errors.Is(err, domain.ErrValidation):
		view.Warning = safeDomainMessage(err)
	case errors.Is(err, domain.ErrConfiguration):
		view.Blocked = true
		view.Warning = msgMissingKey
	default:
		log.Error("page: internal error", zap.Error(err))
		view.Error = msgInternal
	}
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, view pageView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, view); err != nil {
		logger.FromContext(r.Context(), s.logger).Error("render page", zap.Error(err))
	}
}

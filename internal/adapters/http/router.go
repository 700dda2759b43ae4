package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/insuright/policy-rag/internal/config"
	"github.com/insuright/policy-rag/internal/core/domain"
	"github.com/insuright/policy-rag/internal/core/ports"
	"github.com/insuright/policy-rag/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	cfg     config.Config
	ingest  ports.DocumentIngestor
	query   ports.PolicyQueryService
	docs    ports.DocumentReader
	metrics *metrics.HTTPServerMetrics
	logger  *slog.Logger
}

func NewRouter(
	cfg config.Config,
	ingest ports.DocumentIngestor,
	query ports.PolicyQueryService,
	docs ports.DocumentReader,
) *Router {
	return &Router{
		cfg:    cfg,
		ingest: ingest,
		query:  query,
		docs:   docs,
		logger: slog.Default(),
	}
}

func (rt *Router) WithMetrics(m *metrics.HTTPServerMetrics) *Router {
	rt.metrics = m
	return rt
}

func (rt *Router) WithLogger(logger *slog.Logger) *Router {
	if logger != nil {
		rt.logger = logger
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/documents", rt.uploadDocument)
	mux.HandleFunc("/v1/documents/", rt.getDocumentByID)
	mux.HandleFunc("/v1/query", rt.answerQuery)
	mux.HandleFunc("/v1/coverage-check", rt.checkCoverage)
	mux.HandleFunc("/v1/policies/compare", rt.comparePolicies)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, backpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := rt.ingest.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		domain.DocumentCategory(r.FormValue("category")),
		file,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.docs.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) answerQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Question     string `json:"question"`
		K            int    `json:"k"`
		PolicyType   string `json:"policy_type"`
		PolicyNumber string `json:"policy_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	start := time.Now()
	answer, err := rt.query.Query(r.Context(), req.Question, req.K, domain.SearchFilter{
		PolicyType:   req.PolicyType,
		PolicyNumber: req.PolicyNumber,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	rt.recordAnswer("query", answer, time.Since(start))
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) checkCoverage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Scenario     string `json:"scenario"`
		PolicyType   string `json:"policy_type"`
		PolicyNumber string `json:"policy_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Scenario) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "scenario is required"})
		return
	}

	start := time.Now()
	coverage, err := rt.query.CheckCoverage(r.Context(), req.Scenario, domain.SearchFilter{
		PolicyType:   req.PolicyType,
		PolicyNumber: req.PolicyNumber,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	rt.recordAnswer("coverage_check", &coverage.Answer, time.Since(start))
	writeJSON(w, http.StatusOK, coverage)
}

func (rt *Router) comparePolicies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Aspect      string   `json:"aspect"`
		PolicyTypes []string `json:"policy_types"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	start := time.Now()
	comparison, err := rt.query.ComparePolicies(r.Context(), req.Aspect, req.PolicyTypes)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordQueryObservation(serviceName, "compare", len(comparison.Sources), time.Since(start))
	}
	writeJSON(w, http.StatusOK, comparison)
}

func (rt *Router) recordAnswer(endpoint string, answer *domain.Answer, duration time.Duration) {
	if rt.metrics == nil || answer == nil {
		return
	}
	rt.metrics.RecordQueryObservation(serviceName, endpoint, len(answer.Sources), duration)
	if answer.NoRelevantDocs {
		rt.metrics.RecordGateFailure(serviceName, endpoint)
		return
	}
	rt.metrics.RecordAnswerValidation(
		serviceName,
		endpoint,
		answer.Confidence,
		answer.Validation.Faithfulness,
		string(answer.Level),
		len(answer.Validation.UnverifiedClaims),
		answer.Validation.Degraded,
	)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

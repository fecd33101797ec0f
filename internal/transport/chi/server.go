// Package chi serves the search API over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/neusearch/internal/domain"
	"github.com/kailas-cloud/neusearch/internal/domain/item"
	"github.com/kailas-cloud/neusearch/internal/logger"
	healthuc "github.com/kailas-cloud/neusearch/internal/usecase/health"
	"github.com/kailas-cloud/neusearch/internal/usecase/recommend"
	"github.com/kailas-cloud/neusearch/internal/usecase/retrieval"
)

const maxBodyBytes = 1 << 20

// Error codes returned in the error body.
const (
	CodeBadRequest   = "bad_request"
	CodeInvalidInput = "invalid_input"
	CodeNotFound     = "not_found"
	CodeInternal     = "internal_error"
)

// Retriever runs retrieval requests.
type Retriever interface {
	Retrieve(ctx context.Context, req retrieval.Request) (retrieval.Response, error)
}

// Recommender runs recommendation requests.
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) (recommend.Response, error)
}

// ItemReader loads catalog items.
type ItemReader interface {
	Get(ctx context.Context, id string) (item.Item, error)
}

// HealthChecker aggregates readiness probes.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Options holds request defaults the API applies.
type Options struct {
	AutoAdjust bool // used when a retrieve request omits auto_adjust
}

// Server holds the HTTP handlers.
type Server struct {
	retriever     Retriever
	recommender   Recommender
	items         ItemReader
	health        HealthChecker
	opts          Options
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	retriever Retriever,
	recommender Recommender,
	items ItemReader,
	health HealthChecker,
	opts Options,
	logger *zap.Logger,
) *Server {
	s := &Server{
		retriever:   retriever,
		recommender: recommender,
		items:       items,
		health:      health,
		opts:        opts,
		logger:      logger,
	}
	s.errorHandlers = []errorHandler{
		inputErrorHandler,
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
	}
	return s
}

// Retrieve handles POST /api/v1/retrieve.
func (s *Server) Retrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if !decodeBody(w, r, &req) {
		return
	}

	autoAdjust := s.opts.AutoAdjust
	if req.AutoAdjust != nil {
		autoAdjust = *req.AutoAdjust
	}
	resp, err := s.retriever.Retrieve(r.Context(), retrieval.Request{
		Query:      req.Query,
		Count:      req.Count,
		Threshold:  req.Threshold,
		AutoAdjust: autoAdjust,
		Enhance:    req.Enhance,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, retrieveResponseFrom(resp))
}

// Recommend handles POST /api/v1/recommend.
func (s *Server) Recommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if !decodeBody(w, r, &req) {
		return
	}

	history := make([]recommend.Message, len(req.History))
	for i, m := range req.History {
		history[i] = recommend.Message{Role: m.Role, Content: m.Content}
	}
	resp, err := s.recommender.Recommend(r.Context(), recommend.Request{
		Query:   req.Query,
		Count:   req.Count,
		History: history,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, recommendResponseFrom(resp))
}

// GetItem handles GET /api/v1/items/{id}.
func (s *Server) GetItem(w http.ResponseWriter, r *http.Request) {
	it, err := s.items.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemFrom(&it))
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	// Degraded still serves traffic; only a lost catalog fails readiness.
	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// inputErrorHandler reports the offending field back to the client.
func inputErrorHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrInvalidInput) {
		return false
	}
	msg := domain.ErrInvalidInput.Error()
	var ie *domain.InputError
	switch {
	case errors.As(err, &ie):
		msg = ie.Error()
	case errors.Is(err, domain.ErrEmptyQuery):
		msg = domain.ErrEmptyQuery.Error()
	}
	writeError(w, http.StatusBadRequest, CodeInvalidInput, msg)
	return true
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context(), s.logger)
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Debug("Request rejected", zap.Error(err))
			return
		}
	}
	log.Error("Internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
}

// Package server exposes the engine over HTTP. One endpoint advances one
// plan step; all business outcomes are normalized into 200 responses so the
// caller only sees non-200 statuses for not-found, busy, and unavailable
// dependencies.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/growforge/planmesh/core"
	"github.com/growforge/planmesh/engine"
	"github.com/growforge/planmesh/logging"
)

// StepExecutor is the slice of the engine the server needs.
type StepExecutor interface {
	ExecuteStep(ctx context.Context, req engine.Request) (*engine.Response, error)
}

// Options configure the server.
type Options struct {
	Logger logging.Logger
}

// Server is the HTTP surface of the engine.
type Server struct {
	engine StepExecutor
	logger logging.Logger
	mux    *http.ServeMux
}

// New constructs the server and its routes.
func New(eng StepExecutor, optFns ...func(o *Options)) *Server {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Server{engine: eng, logger: opts.Logger, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /plan/step", s.handleStep)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

type dataEnvelope struct {
	Data any `json:"data"`
}

type errorEnvelope struct {
	Error *core.Error `json:"error"`
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	var req engine.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, core.NewError(core.CodeInternal, "invalid request body: %v", err))
		return
	}
	if req.InstanceID == "" {
		writeError(w, http.StatusBadRequest, core.NewError(core.CodeInternal, "instance_id is required"))
		return
	}

	resp, err := s.engine.ExecuteStep(r.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("server.step.failed", "instance_id", req.InstanceID, "error", err)
		}
		writeError(w, status, asEngineError(err))
		return
	}

	writeJSON(w, http.StatusOK, dataEnvelope{Data: resp})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps engine error codes to HTTP statuses. Everything the engine
// returns as a Response (pause, stop, settled, failed step) is already a 200.
func statusFor(err error) int {
	switch core.CodeOf(err) {
	case core.CodeInstanceNotFound, core.CodePlanNotFound:
		return http.StatusNotFound
	case core.CodeToolsUnavailable:
		return http.StatusServiceUnavailable
	case core.CodeBusy:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func asEngineError(err error) *core.Error {
	var e *core.Error
	if errors.As(err, &e) {
		return e
	}
	return core.NewError(core.CodeInternal, "internal error")
}

func writeError(w http.ResponseWriter, status int, e *core.Error) {
	writeJSON(w, status, errorEnvelope{Error: e})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

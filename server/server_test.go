package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/growforge/planmesh/core"
	"github.com/growforge/planmesh/engine"
)

type stubEngine struct {
	resp *engine.Response
	err  error
	last engine.Request
}

func (s *stubEngine) ExecuteStep(_ context.Context, req engine.Request) (*engine.Response, error) {
	s.last = req
	return s.resp, s.err
}

func postStep(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/plan/step", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHandleStep_Success(t *testing.T) {
	stub := &stubEngine{resp: &engine.Response{
		StepStatus:   engine.OutcomeCompleted,
		StepResult:   "posted",
		PlanID:       "plan-1",
		PlanProgress: &engine.PlanProgress{CompletedSteps: 1, TotalSteps: 2, Percentage: 50},
	}}
	srv := New(stub)

	rec := postStep(t, srv, `{"instance_id":"inst-1","user_instruction":"be brief"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "inst-1", stub.last.InstanceID)
	assert.Equal(t, "be brief", stub.last.UserInstruction)

	var envelope struct {
		Data engine.Response `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, engine.OutcomeCompleted, envelope.Data.StepStatus)
	assert.Equal(t, "posted", envelope.Data.StepResult)
	require.NotNil(t, envelope.Data.PlanProgress)
	assert.Equal(t, 50, envelope.Data.PlanProgress.Percentage)
}

func TestHandleStep_PausePayloadIsStill200(t *testing.T) {
	stub := &stubEngine{resp: &engine.Response{
		WaitingForInstructions: true,
		InstancePaused:         true,
		CanResume:              true,
	}}
	srv := New(stub)

	rec := postStep(t, srv, `{"instance_id":"inst-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"waiting_for_instructions":true`)
}

func TestHandleStep_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"instance not found", core.NewError(core.CodeInstanceNotFound, "nope"), http.StatusNotFound},
		{"plan not found", core.NewError(core.CodePlanNotFound, "nope"), http.StatusNotFound},
		{"tools unavailable", core.NewError(core.CodeToolsUnavailable, "probe budget spent"), http.StatusServiceUnavailable},
		{"busy", core.NewError(core.CodeBusy, "already executing"), http.StatusConflict},
		{"internal", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := New(&stubEngine{err: tt.err})
			rec := postStep(t, srv, `{"instance_id":"inst-1"}`)
			assert.Equal(t, tt.want, rec.Code)

			var envelope struct {
				Error *core.Error `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
			require.NotNil(t, envelope.Error)
			assert.NotEmpty(t, envelope.Error.Code)
		})
	}
}

func TestHandleStep_BadRequests(t *testing.T) {
	srv := New(&stubEngine{})

	rec := postStep(t, srv, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postStep(t, srv, `{"user_instruction":"no instance"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleStep_MethodNotAllowed(t *testing.T) {
	srv := New(&stubEngine{})
	req := httptest.NewRequest(http.MethodGet, "/plan/step", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	srv := New(&stubEngine{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

package handlers

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
	"go.uber.org/zap"

	"github.com/cohortlens/insights-engine/pkg/config"
	"github.com/cohortlens/insights-engine/pkg/services"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func newTestMux() *http.ServeMux {
	mux := http.NewServeMux()
	NewDrillDownHandler(services.NewDrillDownService(nil, nil), zap.NewNop()).RegisterRoutes(mux)
	NewSQLGuardHandler(services.NewSQLGuardService(nil, nil, nil, nil, nil), zap.NewNop()).RegisterRoutes(mux)
	return mux
}

func post(t *testing.T, mux http.Handler, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestDrillDownHandler_Suggest(t *testing.T) {
	rec, env := post(t, newTestMux(), "/api/drilldown/suggestions", `{
		"question": "show me task completion",
		"rows": [
			{"task_id": 1, "task_title": "Intro", "completion_pct": 95},
			{"task_id": 2, "task_title": "Lab", "completion_pct": 40}
		]
	}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	var data struct {
		Context struct {
			EntityType  string `json:"entityType"`
			ResultCount int    `json:"resultCount"`
		} `json:"context"`
		Suggestions []struct {
			ID string `json:"id"`
		} `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "tasks", data.Context.EntityType)
	assert.Equal(t, 2, data.Context.ResultCount)
	assert.Len(t, data.Suggestions, 3)
}

func TestDrillDownHandler_InvalidBody(t *testing.T) {
	rec, env := post(t, newTestMux(), "/api/drilldown/suggestions", `{"rows": "nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", env.Error)
}

func TestDrillDownHandler_MethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/drilldown/suggestions", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSQLGuardHandler_Check(t *testing.T) {
	rec, env := post(t, newTestMux(), "/api/sql/denominators/check",
		`{"sql": "SELECT COUNT(*) / 75 * 100 AS rate FROM users"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		RequestID string   `json:"requestId"`
		SQL       string   `json:"sql"`
		HadIssues bool     `json:"hadIssues"`
		Fixes     []string `json:"fixes"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.NotEmpty(t, data.RequestID)
	assert.True(t, data.HadIssues)
	assert.NotContains(t, data.SQL, "/ 75")
	assert.Equal(t, []string{"Replaced hardcoded active builder count (75) with dynamic subquery"}, data.Fixes)
}

func TestSQLGuardHandler_CheckClean(t *testing.T) {
	const clean = "SELECT * FROM users ORDER BY created_at DESC LIMIT 24"
	rec, env := post(t, newTestMux(), "/api/sql/denominators/check", `{"sql": "`+clean+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		SQL       string   `json:"sql"`
		HadIssues bool     `json:"hadIssues"`
		Fixes     []string `json:"fixes"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.False(t, data.HadIssues)
	assert.Equal(t, clean, data.SQL)
	assert.NotNil(t, data.Fixes)
}

func TestSQLGuardHandler_CheckBatch(t *testing.T) {
	rec, env := post(t, newTestMux(), "/api/sql/denominators/check", `{"queries": [
		{"id": "rate", "sql": "SELECT COUNT(*) / 75 FROM users"},
		{"id": "clean", "sql": "SELECT 1"}
	]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		Results []struct {
			ID        string `json:"id"`
			HadIssues bool   `json:"hadIssues"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Results, 2)
	assert.Equal(t, "rate", data.Results[0].ID)
	assert.True(t, data.Results[0].HadIssues)
	assert.Equal(t, "clean", data.Results[1].ID)
	assert.False(t, data.Results[1].HadIssues)
}

func TestSQLGuardHandler_BadRequests(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"neither sql nor queries", `{}`, "invalid_request"},
		{"both sql and queries", `{"sql": "SELECT 1", "queries": [{"id": "a", "sql": "SELECT 1"}]}`, "invalid_request"},
		{"empty batch", `{"queries": []}`, "empty_batch"},
		{"malformed", `{"sql": 42}`, "invalid_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := post(t, newTestMux(), "/api/sql/denominators/check", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantCode, env.Error)
			assert.NotEmpty(t, env.Message)
		})
	}
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	cfg := &config.Config{Version: "1.2.3", Env: "test"}

	tests := []struct {
		name           string
		store          Pinger
		wantAuditStore string
	}{
		{"no store", nil, "disabled"},
		{"store reachable", stubPinger{}, "ok"},
		{"store down", stubPinger{err: errors.New("connection refused")}, "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			NewHealthHandler(cfg, tt.store, nil).RegisterRoutes(mux)

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "ok", rec.Body.String())

			rec = httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
			require.Equal(t, http.StatusOK, rec.Code)

			var resp PingResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, "1.2.3", resp.Version)
			assert.Equal(t, "test", resp.Environment)
			assert.Equal(t, "insights-engine", resp.Service)
			assert.Equal(t, tt.wantAuditStore, resp.AuditStore)
		})
	}
}

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/quantview/backtester/config"
	"github.com/quantview/backtester/engine"
	"github.com/quantview/backtester/strategies"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return New(config.APISetup{ListenAddress: "localhost:0"}, engine.NewRunManager(log), nil, log)
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func TestListStrategies(t *testing.T) {
	t.Parallel()
	s := testServer(t)
	rec := do(t, s, http.MethodGet, "/api/v1/strategies", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []strategyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, len(strategies.Names()))
}

func TestListRunsEmpty(t *testing.T) {
	t.Parallel()
	s := testServer(t)
	rec := do(t, s, http.MethodGet, "/api/v1/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestCreateRunRejectsBadConfig(t *testing.T) {
	t.Parallel()
	s := testServer(t)
	rec := do(t, s, http.MethodPost, "/api/v1/runs", `{"strategy":{"name":""}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/v1/runs", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRunMissing(t *testing.T) {
	t.Parallel()
	s := testServer(t)
	rec := do(t, s, http.MethodGet, "/api/v1/runs/ghost", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestControlMissingRun(t *testing.T) {
	t.Parallel()
	s := testServer(t)
	for _, action := range []string{"pause", "resume", "stop"} {
		rec := do(t, s, http.MethodPost, "/api/v1/runs/ghost/"+action, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, action)
	}
}

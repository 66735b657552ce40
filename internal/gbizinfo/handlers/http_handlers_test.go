package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gartstein/gbizinfo/internal/gbizinfo/auth"
	e "github.com/gartstein/gbizinfo/internal/gbizinfo/errors"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newRESTServer(t *testing.T, svc *stubService, jwtSecret string) *httptest.Server {
	t.Helper()
	mux := runtime.NewServeMux()
	require.NoError(t, NewHTTPHandler(newTestRegistry(t, svc), zaptest.NewLogger(t)).Register(mux))

	var h http.Handler = mux
	if jwtSecret != "" {
		h = auth.HTTPMiddleware(mux, jwtSecret)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func newRequest(t *testing.T, method, url, body string) *http.Request {
	t.Helper()
	var req *http.Request
	var err error
	if body == "" {
		req, err = http.NewRequest(method, url, nil)
	} else {
		req, err = http.NewRequest(method, url, strings.NewReader(body))
	}
	require.NoError(t, err)
	return req
}

func TestHTTPHandler_Routes(t *testing.T) {
	svc := &stubService{}
	srv := newRESTServer(t, svc, "")

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		wantCode int
		wantCall string
		check    func(t *testing.T, body map[string]any)
	}{
		{
			name: "health", method: http.MethodGet, path: "/healthz", wantCode: http.StatusOK,
			check: func(t *testing.T, body map[string]any) { assert.Equal(t, "ok", body["status"]) },
		},
		{
			name: "list tools", method: http.MethodGet, path: "/api/tools", wantCode: http.StatusOK,
			check: func(t *testing.T, body map[string]any) { assert.Len(t, body["tools"], 17) },
		},
		{
			name: "search", method: http.MethodGet, path: "/api/companies?name=X&limit=1&exist_flg=true",
			wantCode: http.StatusOK, wantCall: "search",
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, float64(1), body["total"])
				assert.Equal(t, float64(1), body["size"])
			},
		},
		{
			name: "basic info", method: http.MethodGet, path: "/api/companies/1234567890123",
			wantCode: http.StatusOK, wantCall: "detail:basic:1234567890123",
			check: func(t *testing.T, body map[string]any) { assert.Len(t, body["hojin-infos"], 1) },
		},
		{
			name: "category", method: http.MethodGet, path: "/api/companies/1234567890123/subsidy",
			wantCode: http.StatusOK, wantCall: "detail:subsidy:1234567890123",
		},
		{
			name: "unknown category", method: http.MethodGet, path: "/api/companies/1234567890123/lottery",
			wantCode: http.StatusBadRequest,
		},
		{
			name: "updates", method: http.MethodGet, path: "/api/updates?from=20240101&to=20240131&page=2",
			wantCode: http.StatusOK, wantCall: "updates:basic:20240101:20240131",
			check: func(t *testing.T, body map[string]any) { assert.Equal(t, float64(2), body["pageNumber"]) },
		},
		{
			name: "category updates", method: http.MethodGet, path: "/api/updates/workplace?from=20240101&to=20240131",
			wantCode: http.StatusOK, wantCall: "updates:workplace:20240101:20240131",
		},
		{
			name: "updates missing to", method: http.MethodGet, path: "/api/updates?from=20240101",
			wantCode: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) { assert.Equal(t, "to is required", body["message"]) },
		},
		{
			name: "bad integer", method: http.MethodGet, path: "/api/companies?limit=many",
			wantCode: http.StatusBadRequest,
		},
		{
			name: "tool call", method: http.MethodPost, path: "/api/tools/get_patent", body: `{"corporateNumber":"1234567890123"}`,
			wantCode: http.StatusOK, wantCall: "detail:patent:1234567890123",
		},
		{
			name: "tool call missing argument", method: http.MethodPost, path: "/api/tools/get_patent", body: `{}`,
			wantCode: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "corporateNumber is required", body["message"])
				assert.NotEmpty(t, body["errors"])
			},
		},
		{
			name: "unknown tool", method: http.MethodPost, path: "/api/tools/get_everything", body: `{}`,
			wantCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc.calls = nil
			code, body := getJSON(t, newRequest(t, tt.method, srv.URL+tt.path, tt.body))
			assert.Equal(t, tt.wantCode, code)
			if tt.wantCall != "" {
				assert.Equal(t, []string{tt.wantCall}, svc.calls)
			}
			if tt.check != nil {
				tt.check(t, body)
			}
		})
	}
}

func TestHTTPHandler_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantID   string
	}{
		{"upstream 404", &e.CommunicationError{Err: &e.APIError{StatusCode: 404, Message: "not found", ID: "E404"}}, http.StatusNotFound, "E404"},
		{"upstream 500", &e.CommunicationError{Err: &e.APIError{StatusCode: 500, Message: "HTTP 500"}}, http.StatusBadGateway, ""},
		{"transport", &e.CommunicationError{Op: "get_basic_info", Err: assert.AnError}, http.StatusBadGateway, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newRESTServer(t, &stubService{err: tt.err}, "")
			code, body := getJSON(t, newRequest(t, http.MethodGet, srv.URL+"/api/companies/1234567890123", ""))
			assert.Equal(t, tt.wantCode, code)
			assert.NotEmpty(t, body["message"])
			if tt.wantID != "" {
				assert.Equal(t, tt.wantID, body["id"])
			}
		})
	}
}

func TestHTTPHandler_Auth(t *testing.T) {
	srv := newRESTServer(t, &stubService{}, testSecret)

	code, _ := getJSON(t, newRequest(t, http.MethodGet, srv.URL+"/api/tools", ""))
	assert.Equal(t, http.StatusOK, code)

	code, _ = getJSON(t, newRequest(t, http.MethodGet, srv.URL+"/api/companies/1234567890123", ""))
	assert.Equal(t, http.StatusUnauthorized, code)

	token, err := auth.GenerateToken("tester", testSecret, time.Hour)
	require.NoError(t, err)
	req := newRequest(t, http.MethodGet, srv.URL+"/api/companies/1234567890123", "")
	req.Header.Set("Authorization", "Bearer "+token)
	code, _ = getJSON(t, req)
	assert.Equal(t, http.StatusOK, code)
}

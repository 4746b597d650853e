package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/typhoon/internal/logger"
	"github.com/pfrederiksen/typhoon/internal/server"
	"github.com/pfrederiksen/typhoon/internal/status"
)

var sampleResult = status.FetchResult{
	CityStatuses: []status.CityStatus{
		{City: "台北市", Status: "今天停止上班、停止上課。\n山區請注意落石"},
		{City: "新北市", Status: "正常上班上課"},
		{City: "金門縣", Status: ""},
	},
	UsedEncoding: status.EncodingBig5,
	DataSize:     2048,
}

type fakeProvider struct {
	state    server.State
	readyErr error
}

func (f *fakeProvider) State() server.State                   { return f.state }
func (f *fakeProvider) CheckReadiness(_ context.Context) error { return f.readyErr }

func newTestServer(p *fakeProvider) *server.Server {
	return server.NewServer(":0", p, logger.Discard())
}

func readyProvider() *fakeProvider {
	at := time.Date(2026, 7, 28, 8, 0, 0, 0, time.UTC)
	return &fakeProvider{state: server.State{
		Result:      sampleResult,
		UpdatedAt:   at,
		LastOutcome: status.OutcomeOK,
		LastPollAt:  at,
	}}
}

func get(t *testing.T, srv *server.Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(t, newTestServer(&fakeProvider{}), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := get(t, newTestServer(readyProvider()), "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := get(t, newTestServer(&fakeProvider{readyErr: server.ErrNotReady}), "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, server.ErrNotReady.Error(), body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(t, newTestServer(&fakeProvider{}), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestStatusEndpoint(t *testing.T) {
	rec := get(t, newTestServer(readyProvider()), "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		CityStatuses  []status.CityStatus `json:"city_statuses"`
		UsedEncoding  string              `json:"used_encoding"`
		DataSize      int                 `json:"data_size"`
		EncodingLabel string              `json:"encoding_label"`
		UpdatedAt     time.Time           `json:"updated_at"`
		LastOutcome   string              `json:"last_outcome"`
		Filter        string              `json:"filter"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, sampleResult.CityStatuses, body.CityStatuses)
	assert.Equal(t, "Big5", body.UsedEncoding)
	assert.Equal(t, 2048, body.DataSize)
	assert.Equal(t, "編碼: Big5 (數據大小: 2048 bytes)", body.EncodingLabel)
	assert.Equal(t, "ok", body.LastOutcome)
	assert.Empty(t, body.Filter)
	assert.False(t, body.UpdatedAt.IsZero())
}

func TestStatusEndpoint_Filter(t *testing.T) {
	srv := newTestServer(readyProvider())

	rec := get(t, srv, "/api/status?filter="+url.QueryEscape("suspended"))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		CityStatuses []status.CityStatus `json:"city_statuses"`
		Filter       string              `json:"filter"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.CityStatuses, 1)
	assert.Equal(t, "台北市", body.CityStatuses[0].City)
	assert.Equal(t, "Suspended only", body.Filter)

	rec = get(t, srv, "/api/status?filter="+url.QueryEscape("state:CA"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusEndpoint_NoData(t *testing.T) {
	rec := get(t, newTestServer(&fakeProvider{readyErr: server.ErrNotReady}), "/api/status")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCitiesEndpoint(t *testing.T) {
	rec := get(t, newTestServer(readyProvider()), "/api/cities")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"台北市", "新北市", "金門縣"}, body["cities"])
}

func TestCityEndpoint(t *testing.T) {
	srv := newTestServer(readyProvider())

	tests := []struct {
		name          string
		city          string
		wantCode      int
		wantDisplay   string
		wantLines     []string
		wantSuspended bool
	}{
		{
			name:          "two-line status",
			city:          "台北市",
			wantCode:      http.StatusOK,
			wantDisplay:   "今天停止上班、停止上課。\n山區請注意落石",
			wantLines:     []string{"今天停止上班、停止上課。", "山區請注意落石"},
			wantSuspended: true,
		},
		{
			name:        "variant spelling",
			city:        "臺北市",
			wantCode:    http.StatusOK,
			wantDisplay: "今天停止上班、停止上課。\n山區請注意落石",
			wantLines:   []string{"今天停止上班、停止上課。", "山區請注意落石"},

			wantSuspended: true,
		},
		{
			name:        "empty status shows placeholder",
			city:        "金門縣",
			wantCode:    http.StatusOK,
			wantDisplay: status.NoInfoText,
			wantLines:   []string{},
		},
		{
			name:     "unknown city",
			city:     "高雄市",
			wantCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, srv, "/api/cities/"+url.PathEscape(tt.city))
			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode != http.StatusOK {
				return
			}

			var body struct {
				City      string   `json:"city"`
				Display   string   `json:"display"`
				Lines     []string `json:"lines"`
				Suspended bool     `json:"suspended"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantDisplay, body.Display)
			assert.Equal(t, tt.wantLines, body.Lines)
			assert.Equal(t, tt.wantSuspended, body.Suspended)
		})
	}
}

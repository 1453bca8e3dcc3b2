package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealbook/internal/auth"
	"github.com/sells-group/dealbook/internal/model"
	"github.com/sells-group/dealbook/internal/projection"
)

// stubService echoes the caller identity and ids it was given.
type stubService struct {
	mu           sync.Mutex
	lastIdentity auth.Identity
	lastIDs      []string
	fail         bool
}

func (s *stubService) record(ctx context.Context, ids []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastIdentity, s.lastIDs = auth.FromContext(ctx), ids
	return s.fail
}

func (s *stubService) seen() (auth.Identity, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastIdentity, s.lastIDs
}

func (s *stubService) RequestProjections(ctx context.Context, ids []string) projection.Result[map[string]model.ProjectionRow] {
	if s.record(ctx, ids) {
		return projection.Result[map[string]model.ProjectionRow]{Error: "store unavailable"}
	}
	out := map[string]model.ProjectionRow{}
	for _, id := range ids {
		out[id] = model.ProjectionRow{RequestID: id, Source: model.SourceNone, Confidence: model.ConfidenceNone, Bucket: model.BucketOther}
	}
	return projection.Result[map[string]model.ProjectionRow]{Success: true, Data: out}
}

func (s *stubService) BusinessSummaries(ctx context.Context, ids []string) projection.Result[projection.Summaries] {
	s.record(ctx, ids)
	out := projection.Summaries{}
	for _, id := range ids {
		out[id] = model.EntitySummary{TotalProjectedRevenue: 90, ProjectedRequests: 1, Source: model.SourceBusinessHistory, Confidence: model.ConfidenceMedium}
	}
	return projection.Result[projection.Summaries]{Success: true, Data: out}
}

func (s *stubService) OpportunitySummaries(ctx context.Context, ids []string) projection.Result[projection.Summaries] {
	s.record(ctx, ids)
	return projection.Result[projection.Summaries]{Success: true, Data: projection.Summaries{}}
}

func (s *stubService) Dashboard(ctx context.Context) projection.Result[model.Dashboard] {
	s.record(ctx, nil)
	return projection.Result[model.Dashboard]{Success: true, Data: model.Dashboard{
		Rows:    []model.ProjectionRow{},
		Summary: model.DashboardSummary{TotalProjectedRevenue: 618.5, BySource: map[model.ProjectionSource]int{}},
	}}
}

func newTestServer(t *testing.T, opts Options) (*httptest.Server, *stubService, *auth.TokenParser) {
	t.Helper()
	svc := &stubService{}
	tokens := auth.NewTokenParser("test-secret", "dealbook")
	srv := httptest.NewServer(NewRouter(svc, tokens, opts))
	t.Cleanup(srv.Close)
	return srv, svc, tokens
}

func post(t *testing.T, url, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode(t, resp)["status"])
	_, err = uuid.Parse(resp.Header.Get(requestIDHeader))
	assert.NoError(t, err)
}

func TestRequestID_Propagated(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{})
	id := uuid.NewString()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	req.Header.Set(requestIDHeader, id)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, id, resp.Header.Get(requestIDHeader))
}

func TestRequests_WithToken(t *testing.T) {
	srv, svc, tokens := newTestServer(t, Options{})
	token, err := tokens.Sign(auth.Identity{Role: auth.RoleSales, UserID: "u1"}, time.Hour)
	require.NoError(t, err)

	resp := post(t, srv.URL+"/api/v1/projections/requests", token, `{"ids":["R1","R2"]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode(t, resp)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	assert.Len(t, data, 2)
	assert.Equal(t, "none", data["R1"].(map[string]any)["source"])

	id, ids := svc.seen()
	assert.Equal(t, auth.Identity{Role: auth.RoleSales, UserID: "u1"}, id)
	assert.Equal(t, []string{"R1", "R2"}, ids)
}

func TestRequests_InvalidTokenIsAnonymous(t *testing.T) {
	srv, svc, _ := newTestServer(t, Options{})
	other := auth.NewTokenParser("other-secret", "dealbook")
	token, err := other.Sign(auth.Identity{Role: auth.RoleAdmin, UserID: "x"}, time.Hour)
	require.NoError(t, err)

	resp := post(t, srv.URL+"/api/v1/projections/requests", token, `{"ids":["R1"]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	id, _ := svc.seen()
	assert.Equal(t, auth.Anonymous, id)
}

func TestRequests_NoToken(t *testing.T) {
	srv, svc, _ := newTestServer(t, Options{})

	resp := post(t, srv.URL+"/api/v1/projections/requests", "", `{"ids":[]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	id, _ := svc.seen()
	assert.Equal(t, auth.Anonymous, id)
}

func TestRequests_BadBody(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{})

	resp := post(t, srv.URL+"/api/v1/projections/requests", "", `{"ids":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "invalid request body", body["error"])
}

func TestRequests_TooManyIDs(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{MaxIDs: 2})

	resp := post(t, srv.URL+"/api/v1/projections/requests", "", `{"ids":["a","b","c"]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode(t, resp)["error"], "at most 2 ids")
}

func TestRequests_EngineFailure(t *testing.T) {
	srv, svc, _ := newTestServer(t, Options{})
	svc.mu.Lock()
	svc.fail = true
	svc.mu.Unlock()

	resp := post(t, srv.URL+"/api/v1/projections/requests", "", `{"ids":["R1"]}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "store unavailable", body["error"])
}

func TestBusinesses(t *testing.T) {
	srv, svc, _ := newTestServer(t, Options{})

	resp := post(t, srv.URL+"/api/v1/projections/businesses", "", `{"ids":["b1"]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data := decode(t, resp)["data"].(map[string]any)
	assert.Equal(t, 90.0, data["b1"].(map[string]any)["total_projected_revenue"])
	_, ids := svc.seen()
	assert.Equal(t, []string{"b1"}, ids)
}

func TestOpportunities(t *testing.T) {
	srv, svc, _ := newTestServer(t, Options{})

	resp := post(t, srv.URL+"/api/v1/projections/opportunities", "", `{"ids":["o1","o2"]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_, ids := svc.seen()
	assert.Equal(t, []string{"o1", "o2"}, ids)
}

func TestDashboard(t *testing.T) {
	srv, svc, tokens := newTestServer(t, Options{})
	token, err := tokens.Sign(auth.Identity{Role: auth.RoleAdmin, UserID: "a1"}, time.Hour)
	require.NoError(t, err)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/projections/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data := decode(t, resp)["data"].(map[string]any)
	assert.Equal(t, 618.5, data["summary"].(map[string]any)["total_projected_revenue"])
	id, _ := svc.seen()
	assert.Equal(t, auth.RoleAdmin, id.Role)
}

func TestCORSPreflight(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{AllowedOrigins: []string{"https://app.example.com"}})

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/projections/requests", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "https://app.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{RateLimitRPS: 0.001, RateLimitBurst: 2})

	codes := make([]int, 0, 3)
	for range 3 {
		resp, err := http.Get(srv.URL + "/health")
		require.NoError(t, err)
		codes = append(codes, resp.StatusCode)
		resp.Body.Close()
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestClientLimiter_SweepsIdleClients(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newClientLimiter(1, 1, time.Minute)
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("a"))
	assert.False(t, l.allow("a"))
	assert.True(t, l.allow("b"))

	now = now.Add(2 * time.Minute)
	assert.True(t, l.allow("c"))
	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Len(t, l.clients, 1)
}

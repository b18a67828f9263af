package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/spektr-org/grantlens/dataset"
	"github.com/spektr-org/grantlens/pages"
	"github.com/spektr-org/grantlens/schema"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestServer(t *testing.T, opts ...pages.Option) *Server {
	t.Helper()
	ds, err := dataset.Load(context.Background(), dataset.Sample(), schema.Default())
	require.NoError(t, err)
	logger := zaptest.NewLogger(t)
	reg := pages.New(ds, append([]pages.Option{pages.WithLogger(logger)}, opts...)...)
	return New(reg, WithLogger(logger))
}

func get(t *testing.T, s *Server, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodePage(t *testing.T, rec *httptest.ResponseRecorder) pages.Page {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page pages.Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	return page
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	require.FailNow(t, "no session cookie issued")
	return nil
}

func TestHealthAndList(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"loaded_at":"`)

	rec = get(t, s, "/api/v1/pages")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Pages []pages.Summary `json:"pages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Pages, 6)
	assert.Equal(t, pages.Overview, body.Pages[0].Name)
}

func TestPageJSON(t *testing.T) {
	s := newTestServer(t)
	page := decodePage(t, get(t, s, "/api/v1/pages/overview"))
	assert.Equal(t, pages.Overview, page.Name)
	require.Len(t, page.Metrics, 4)
	assert.Equal(t, "6", page.Metrics[0].Value)
}

func TestPageErrors(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		target string
		status int
	}{
		{"/api/v1/pages/nope", http.StatusNotFound},
		{"/api/v1/pages/trends?year=2021,2018", http.StatusBadRequest},
		{"/api/v1/pages/trends?discipline=Alchemy", http.StatusBadRequest},
		{"/api/v1/pages/topics?top_n=lots", http.StatusBadRequest},
		{"/api/v1/pages/topics?top_n=NaN", http.StatusBadRequest},
		{"/api/v1/pages/trends?year=NaN,NaN", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := get(t, s, tt.target)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestSessionsRememberSelections(t *testing.T) {
	s := newTestServer(t)

	first := get(t, s, "/api/v1/pages/trends?year=2020,2021")
	cookie := sessionCookie(t, first)
	assert.Equal(t, "2020,2021", decodePage(t, first).Selections["year"])

	again := decodePage(t, get(t, s, "/api/v1/pages/trends?institution=UZH", cookie))
	assert.Equal(t, "2020,2021", again.Selections["year"], "earlier selection kept")
	assert.Equal(t, "UZH", again.Selections["institution"])

	other := decodePage(t, get(t, s, "/api/v1/pages/trends"))
	assert.Equal(t, "2018,2022", other.Selections["year"], "sessions are isolated")

	// A rejected selection leaves the stored ones untouched.
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/v1/pages/trends?year=2021,2018", cookie).Code)
	kept := decodePage(t, get(t, s, "/api/v1/pages/trends", cookie))
	assert.Equal(t, "2020,2021", kept.Selections["year"])
}

func TestSessionStoreIsBounded(t *testing.T) {
	ds, err := dataset.Load(context.Background(), dataset.Sample(), schema.Default())
	require.NoError(t, err)
	s := New(pages.New(ds), WithSessionLimit(5))

	first := sessionCookie(t, get(t, s, "/api/v1/pages/trends?year=2020,2021"))
	for i := 0; i < 50; i++ {
		get(t, s, "/api/v1/pages/trends")
	}
	assert.Equal(t, 5, s.sessions.len())

	// The oldest session was evicted and starts over from the defaults.
	page := decodePage(t, get(t, s, "/api/v1/pages/trends", first))
	assert.Equal(t, "2018,2022", page.Selections["year"])
}

func TestSessionStoreForgetsIdleSessions(t *testing.T) {
	store := newSessionStore(10, time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	store.put("a", "trends", map[string]string{"year": "2020,2021"})
	now = now.Add(50 * time.Second)
	assert.Equal(t, map[string]string{"year": "2020,2021"}, store.get("a", "trends"))

	// Reading refreshed the session, so another 50s is still within the TTL.
	now = now.Add(50 * time.Second)
	assert.NotNil(t, store.get("a", "trends"))

	now = now.Add(2 * time.Minute)
	assert.Nil(t, store.get("a", "trends"))
	assert.Equal(t, 0, store.len())
}

func TestInvalidSessionCookieIsReplaced(t *testing.T) {
	s := newTestServer(t)
	rec := get(t, s, "/api/v1/pages/overview", &http.Cookie{Name: SessionCookie, Value: "not-a-uuid"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, "not-a-uuid", sessionCookie(t, rec).Value)
}

func TestPanelDownloads(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s, "/api/v1/pages/trends/panels/0.png")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = get(t, s, "/api/v1/pages/trends/panels/1.csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Year,Funding (CHF)\n2018,50000\n2020,200000\n2021,200000\n2022,30000\n", rec.Body.String())

	for _, target := range []string{
		"/api/v1/pages/trends/panels/99.png",
		"/api/v1/pages/trends/panels/x.png",
		"/api/v1/pages/trends/panels/0.gif",
		"/api/v1/pages/collaboration/panels/0.png",
		"/api/v1/pages/nope/panels/0.png",
	} {
		assert.Equal(t, http.StatusNotFound, get(t, s, target).Code, target)
	}
}

func TestNetworkImage(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, get(t, newTestServer(t), pages.NetworkImageURL).Code)

	path := filepath.Join(t.TempDir(), "sna1.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG\r\n\x1a\nnetwork"), 0o600))
	s := newTestServer(t, pages.WithNetworkImage(path))

	rec := get(t, s, pages.NetworkImageURL)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "\x89PNG\r\n\x1a\nnetwork", rec.Body.String())

	rec = get(t, s, "/api/v1/pages/collaboration/panels/0.png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "\x89PNG\r\n\x1a\nnetwork", rec.Body.String())
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t)
	get(t, s, "/api/v1/pages/overview")
	get(t, s, "/api/v1/pages/trends")

	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `grantlens_http_requests_total{code="200",route="page"} 2`)
	assert.Contains(t, body, `grantlens_dataset_rows{table="Grant"} 6`)
	assert.Contains(t, body, `grantlens_page_render_seconds_count{page="overview"} 1`)
	assert.Contains(t, body, "grantlens_sessions 1", "pages without widgets keep no session")
}

func TestServeShutsDownOnCancel(t *testing.T) {
	s := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}, Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

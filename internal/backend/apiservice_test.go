package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jo-hoe/cattongue/internal/backend/database"
	"github.com/jo-hoe/cattongue/internal/backend/session"
	"github.com/jo-hoe/cattongue/internal/common"
	"github.com/jo-hoe/cattongue/internal/core"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	dir := t.TempDir()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"up","url":"https://cdn.example.com/up.jpg","width":1,"height":2}]`))
	}))
	t.Cleanup(upstream.Close)

	cfg := core.DefaultConfig()
	cfg.Database.ConnectionString = filepath.Join(dir, "cattongue.sqlite3")
	cfg.CatAPI.URL = upstream.URL
	coreService := core.NewCoreService(cfg)
	t.Cleanup(func() { _ = coreService.Close() })

	store, err := session.NewStore(context.Background(), "sqlite", filepath.Join(dir, "sessions.sqlite3"), session.Options{},
		[]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	e := echo.New()
	e.Validator = common.NewGenericEchoValidator()
	NewAPIService(coreService, session.NewBinder(store, "")).SetRoutes(e)
	return e
}

// testClient keeps the session cookie between requests like a browser would.
type testClient struct {
	t       *testing.T
	e       *echo.Echo
	cookies map[string]*http.Cookie
}

func newTestClient(t *testing.T, e *echo.Echo) *testClient {
	return &testClient{t: t, e: e, cookies: map[string]*http.Cookie{}}
}

func (c *testClient) do(method, path, body string) *httptest.ResponseRecorder {
	c.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	c.e.ServeHTTP(rec, req)
	for _, cookie := range rec.Result().Cookies() {
		c.cookies[cookie.Name] = cookie
	}
	return rec
}

func (c *testClient) bind(bicmid string) bool {
	c.t.Helper()
	rec := c.do(http.MethodPost, "/api/v1/session", fmt.Sprintf(`{"bicmid":%q}`, bicmid))
	require.Equal(c.t, http.StatusOK, rec.Code, rec.Body.String())
	var accepted bool
	require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	return accepted
}

func (c *testClient) save(url string) int64 {
	c.t.Helper()
	rec := c.do(http.MethodPost, "/api/v1/cats", fmt.Sprintf(`{"image":%q}`, url))
	require.Equal(c.t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp SaveCatResponse
	require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.ID
}

func (c *testClient) count() int {
	c.t.Helper()
	rec := c.do(http.MethodPost, "/api/v1/count_of_cats", "")
	require.Equal(c.t, http.StatusOK, rec.Code, rec.Body.String())
	var count int
	require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &count))
	return count
}

func (c *testClient) list(offset int) []database.Cat {
	c.t.Helper()
	rec := c.do(http.MethodGet, fmt.Sprintf("/api/v1/cats?off=%d", offset), "")
	require.Equal(c.t, http.StatusOK, rec.Code, rec.Body.String())
	var cats []database.Cat
	require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &cats))
	return cats
}

func TestAPI_CatLifecycle(t *testing.T) {
	client := newTestClient(t, newTestServer(t))

	assert.True(t, client.bind("bicmid-1"))

	const url = "https://cdn.example.com/img/42.jpg"
	id := client.save(url)
	assert.Equal(t, int64(1), id)

	assert.Equal(t, []database.Cat{{ID: 1, URL: url}}, client.list(0))
	assert.Equal(t, 1, client.count())

	raw := client.do(http.MethodGet, "/api/v1/cats", "")
	assert.JSONEq(t, `[{"id":1,"url":"https://cdn.example.com/img/42.jpg"}]`, raw.Body.String())
	assert.Empty(t, client.list(database.PageSize))

	rec := client.do(http.MethodDelete, fmt.Sprintf("/api/v1/cats/%d", id), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, client.count())
	assert.Empty(t, client.list(0))
}

func TestAPI_SessionBinding(t *testing.T) {
	client := newTestClient(t, newTestServer(t))

	assert.True(t, client.bind("bicmid-1"), "first binding")
	assert.False(t, client.bind("bicmid-2"), "mismatch on bound session")
	assert.True(t, client.bind("bicmid-1"), "same bicmid again")
}

func TestAPI_RequiresBoundSession(t *testing.T) {
	client := newTestClient(t, newTestServer(t))

	requests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/api/v1/cats?off=0", ""},
		{http.MethodPost, "/api/v1/count_of_cats", ""},
		{http.MethodPost, "/api/v1/cats", `{"image":"https://cdn.example.com/a.jpg"}`},
		{http.MethodDelete, "/api/v1/cats/1", ""},
	}
	for _, r := range requests {
		rec := client.do(r.method, r.path, r.body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", r.method, r.path)
	}
}

func TestAPI_CrossSessionDeleteIsNoop(t *testing.T) {
	e := newTestServer(t)
	alice := newTestClient(t, e)
	mallory := newTestClient(t, e)

	alice.bind("alice")
	mallory.bind("mallory")

	id := alice.save("https://cdn.example.com/a.jpg")

	rec := mallory.do(http.MethodDelete, fmt.Sprintf("/api/v1/cats/%d", id), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, alice.count())
	assert.Equal(t, 0, mallory.count())
	assert.Empty(t, mallory.list(0))
}

func TestAPI_Paging(t *testing.T) {
	client := newTestClient(t, newTestServer(t))
	client.bind("pager")

	const total = database.PageSize + 3
	for i := 0; i < total; i++ {
		client.save(fmt.Sprintf("https://cdn.example.com/%d.jpg", i))
	}

	first := client.list(0)
	require.Len(t, first, database.PageSize)
	assert.Equal(t, fmt.Sprintf("https://cdn.example.com/%d.jpg", total-1), first[0].URL)
	for i := 1; i < len(first); i++ {
		assert.Greater(t, first[i-1].ID, first[i].ID)
	}
	assert.Len(t, client.list(database.PageSize), 3)
	assert.Equal(t, total, client.count())
}

func TestAPI_InvalidInput(t *testing.T) {
	client := newTestClient(t, newTestServer(t))
	client.bind("validator")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"negative offset", http.MethodGet, "/api/v1/cats?off=-1", ""},
		{"non numeric offset", http.MethodGet, "/api/v1/cats?off=abc", ""},
		{"missing image", http.MethodPost, "/api/v1/cats", `{}`},
		{"non numeric id", http.MethodDelete, "/api/v1/cats/abc", ""},
		{"missing bicmid", http.MethodPost, "/api/v1/session", `{"bicmid":""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := client.do(tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestAPI_RandomCat(t *testing.T) {
	client := newTestClient(t, newTestServer(t))

	rec := client.do(http.MethodGet, "/api/v1/random_cat", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var image struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &image))
	assert.Equal(t, "https://cdn.example.com/up.jpg", image.URL)
}

func TestAPI_ProbeAndMetrics(t *testing.T) {
	client := newTestClient(t, newTestServer(t))

	rec := client.do(http.MethodGet, ProbePath, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	client.bind("metrics")
	client.save("https://cdn.example.com/m.jpg")

	rec = client.do(http.MethodGet, MetricsPath, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `cattongue_cat_operations_total{operation="save",result="ok"} 1`)
	assert.Contains(t, body, `cattongue_session_checks_total{result="accepted"} 1`)
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-gin-user-dashboard/internal/core/session"
	"go-gin-user-dashboard/internal/domain"
	"go-gin-user-dashboard/internal/feature/user"
	"go-gin-user-dashboard/internal/feature/usertable"
	"go-gin-user-dashboard/internal/service"
	mdw "go-gin-user-dashboard/internal/transport/http/middleware"
	resp "go-gin-user-dashboard/internal/transport/http/response"
	"go-gin-user-dashboard/internal/transport/http/templates"
)

const (
	sidA = "6f1c2b8e-3d4a-4c5b-9e7f-1a2b3c4d5e6f"
	sidB = "0b7d9a52-8c1e-4f3a-a6d2-5e4f3a2b1c0d"
)

type stubRepo struct {
	users []user.User
	err   error

	mu    sync.Mutex
	token string
}

func (s *stubRepo) List(_ context.Context, cred domain.Credential) ([]user.User, error) {
	s.mu.Lock()
	s.token = cred.Token
	s.mu.Unlock()
	return s.users, s.err
}

func twelve() []user.User {
	out := make([]user.User, 0, 12)
	for i := 1; i <= 12; i++ {
		out = append(out, user.User{ID: int64(i), FirstName: "User", LastName: string(rune('a' + i)), Username: "u", Role: "user"})
	}
	return out
}

func newEngine(t *testing.T, repo domain.UserRepository) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := service.NewDashboardService(zap.NewNop(), repo, session.NewMemoryStore(time.Hour), service.Options{
		Table:        usertable.DefaultOptions(),
		FetchTimeout: time.Second,
	})
	t.Cleanup(svc.Close)
	h := NewDashboardHandler(zap.NewNop(), svc, "", time.Second)

	tmpl, err := templates.Load()
	require.NoError(t, err)
	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	g := r.Group("", mdw.Session(mdw.SessionCookie{Name: "sid"}), mdw.Credential("access"))
	g.GET("/users", h.Page)
	g.POST("/users/actions", h.Action)
	g.POST("/users/unmount", h.Unmount)
	h.MountAPI(g.Group("/api/v1"))
	return r
}

func request(r http.Handler, sid, method, target string, body string, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func form(r http.Handler, sid string, v url.Values) *httptest.ResponseRecorder {
	return request(r, sid, http.MethodPost, "/users/actions", v.Encode(), "application/x-www-form-urlencoded")
}

func TestPage_RendersFirstPage(t *testing.T) {
	repo := &stubRepo{users: twelve()}
	r := newEngine(t, repo)

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: sidA})
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Equal(t, 5, strings.Count(body, `class="user-row`))
	assert.Equal(t, 0, strings.Count(body, `class="empty-row"`))
	assert.Contains(t, body, "1–5 of 12")
	assert.NotContains(t, body, "Loading users")
	assert.Equal(t, "tok", repo.token)
}

func TestAction_PagingAndFiller(t *testing.T) {
	r := newEngine(t, &stubRepo{users: twelve()})
	require.Equal(t, http.StatusOK, request(r, sidA, http.MethodGet, "/users", "", "").Code)

	w := form(r, sidA, url.Values{"action": {"page"}, "page": {"2"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/users", w.Header().Get("Location"))

	body := request(r, sidA, http.MethodGet, "/users", "", "").Body.String()
	assert.Equal(t, 2, strings.Count(body, `class="user-row`))
	assert.Equal(t, 3, strings.Count(body, `class="empty-row"`))
	assert.Contains(t, body, "11–12 of 12")

	// 越界页被拒绝，状态不变
	w = form(r, sidA, url.Values{"action": {"page"}, "page": {"9"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	body = request(r, sidA, http.MethodGet, "/users", "", "").Body.String()
	assert.Contains(t, body, "11–12 of 12")
}

func TestAction_FilterNotFound(t *testing.T) {
	r := newEngine(t, &stubRepo{users: twelve()})
	request(r, sidA, http.MethodGet, "/users", "", "")

	form(r, sidA, url.Values{"action": {"filter"}, "q": {"zzz"}})
	body := request(r, sidA, http.MethodGet, "/users", "", "").Body.String()
	assert.Contains(t, body, "Not found")
	assert.Contains(t, body, "zzz")
	assert.Equal(t, 0, strings.Count(body, `class="user-row`))
}

func TestAction_SelectRow(t *testing.T) {
	r := newEngine(t, &stubRepo{users: twelve()})
	request(r, sidA, http.MethodGet, "/users", "", "")

	form(r, sidA, url.Values{"action": {"select_row"}, "id": {"3"}, "checked": {"true"}})
	body := request(r, sidA, http.MethodGet, "/users", "", "").Body.String()
	assert.Contains(t, body, "1 selected")
	assert.Equal(t, 1, strings.Count(body, `class="user-row selected"`))
}

func TestPage_EmptyOnFailure(t *testing.T) {
	r := newEngine(t, &stubRepo{err: errors.New("upstream down")})
	w := request(r, sidA, http.MethodGet, "/users", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No users found.")
}

func TestUnmount(t *testing.T) {
	r := newEngine(t, &stubRepo{users: twelve()})
	request(r, sidA, http.MethodGet, "/users", "", "")
	assert.Equal(t, http.StatusNoContent, request(r, sidA, http.MethodPost, "/users/unmount", "", "").Code)

	// 未挂载时的表单动作直接回到列表页
	w := form(r, sidA, url.Values{"action": {"reset_page"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
}

type apiResp struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) (apiResp, service.Snapshot) {
	t.Helper()
	var out apiResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	var snap service.Snapshot
	require.NoError(t, json.Unmarshal(out.Data, &snap))
	return out, snap
}

func TestAPI(t *testing.T) {
	r := newEngine(t, &stubRepo{users: twelve()})
	const ct = "application/json"

	w := request(r, sidA, http.MethodGet, "/api/v1/table", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	out, snap := decode(t, w)
	assert.Equal(t, resp.CodeOK, out.Code)
	assert.Equal(t, 12, snap.RowCount)
	assert.False(t, snap.Loading)
	assert.Len(t, snap.Rows, 5)

	w = request(r, sidA, http.MethodPost, "/api/v1/table/actions", `{"type":"rows_per_page","rows_per_page":10}`, ct)
	require.Equal(t, http.StatusOK, w.Code)
	_, snap = decode(t, w)
	assert.Equal(t, 10, snap.State.RowsPerPage)
	assert.Len(t, snap.Rows, 10)

	w = request(r, sidA, http.MethodPost, "/api/v1/table/actions", `{"type":"rows_per_page","rows_per_page":11}`, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	out, _ = decode(t, w)
	assert.Equal(t, resp.CodeBadRequest, out.Code)

	w = request(r, sidA, http.MethodPost, "/api/v1/table/actions", `{"type":"explode"}`, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = request(r, sidB, http.MethodPost, "/api/v1/table/actions", `{"type":"reset_page"}`, ct)
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, http.StatusOK, request(r, sidA, http.MethodDelete, "/api/v1/table", "", "").Code)
	w = request(r, sidA, http.MethodPost, "/api/v1/table/actions", `{"type":"reset_page"}`, ct)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type blockingRepo struct{ release chan struct{} }

func (b blockingRepo) List(ctx context.Context, _ domain.Credential) ([]user.User, error) {
	select {
	case <-b.release:
		return twelve(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestAPI_OpenWaitOverride(t *testing.T) {
	repo := blockingRepo{release: make(chan struct{})}
	r := newEngine(t, repo)

	start := time.Now()
	w := request(r, sidA, http.MethodGet, "/api/v1/table?wait_ms=0", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	_, snap := decode(t, w)
	assert.True(t, snap.Loading)
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	w = request(r, sidA, http.MethodGet, "/api/v1/table?wait_ms=-1", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	close(repo.release)
	w = request(r, sidA, http.MethodGet, "/api/v1/table", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	_, snap = decode(t, w)
	assert.False(t, snap.Loading)
	assert.Equal(t, 12, snap.RowCount)
}

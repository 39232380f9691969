package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"goodlist/internal/config"
	"goodlist/internal/db"
	"goodlist/internal/models"
	"goodlist/internal/services"
	"goodlist/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const workURL = "https://www.dlsite.com/maniax/work/=/product_id/RJ01230861.html"

type stubFetcher struct {
	fail bool
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (*services.OGPData, error) {
	if f.fail {
		return nil, errors.New("timeout")
	}
	return &services.OGPData{Title: "Work", Description: "desc", Image: "https://img.example/1.jpg", URL: url}, nil
}

type testServer struct {
	engine  *gin.Engine
	db      *gorm.DB
	fetcher *stubFetcher
}

func testConfig() *config.Config {
	return &config.Config{
		Env:               "test",
		SessionSecret:     "session-secret",
		JWTSecret:         "jwt-secret",
		JWTTTL:            time.Hour,
		FeedSize:          50,
		GuestCookieName:   "guest_id",
		GuestCookieMaxAge: 365 * 24 * time.Hour,
		RateLimitRPS:      1000,
		RateLimitBurst:    1000,
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.Open(sqlite.Open(":memory:"))
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(conn))

	cache, err := utils.NewLRUCache(16)
	require.NoError(t, err)
	fetcher := &stubFetcher{}
	contents := services.NewContentService(conn, fetcher)
	feed := services.NewFeedService(conn, cache, cfg.FeedSize)

	engine, err := New(cfg, Services{
		Identity:   services.NewIdentityService(conn, feed),
		Tokens:     services.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL),
		Lists:      services.NewListService(conn, feed),
		Engagement: services.NewEngagementService(conn, contents),
		Contents:   contents,
		Posts:      services.NewPostService(conn, contents, feed),
		Feed:       feed,
	})
	require.NoError(t, err)
	return &testServer{engine: engine, db: conn, fetcher: fetcher}
}

type call struct {
	method  string
	path    string
	body    interface{}
	cookies []*http.Cookie
	token   string
}

func (s *testServer) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if c.body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(c.body))
	}
	req := httptest.NewRequest(c.method, c.path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range w.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig())
	w := s.do(t, call{method: http.MethodGet, path: "/health"})
	assert.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/feed", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
}

func TestGuestPostsThroughCookie(t *testing.T) {
	s := newTestServer(t, testConfig())

	w := s.do(t, call{method: http.MethodPost, path: "/api/posts", body: gin.H{"content_url": workURL, "description": "good"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	guest := cookieNamed(w, "guest_id")
	require.NotNil(t, guest)

	var user models.User
	require.NoError(t, s.db.Where("guest_id = ?", guest.Value).First(&user).Error)
	var cd models.ContentData
	require.NoError(t, s.db.Where("content_url = ?", workURL).First(&cd).Error)
	assert.Equal(t, 1, cd.GoodCount)

	w = s.do(t, call{method: http.MethodPost, path: "/api/posts", body: gin.H{"content_url": workURL}, cookies: []*http.Cookie{guest}})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Nil(t, cookieNamed(w, "guest_id"), "valid cookie is not re-issued")

	w = s.do(t, call{method: http.MethodGet, path: "/api/me", cookies: []*http.Cookie{guest}})
	require.Equal(t, http.StatusOK, w.Code)
	me := decode(t, w)
	assert.Equal(t, true, me["is_guest"])
	assert.Equal(t, "u-"+guest.Value, me["display_name"])

	w = s.do(t, call{method: http.MethodGet, path: "/api/feed"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), workURL)
}

func TestFetchFailureIsBadGateway(t *testing.T) {
	s := newTestServer(t, testConfig())
	s.fetcher.fail = true

	w := s.do(t, call{method: http.MethodPost, path: "/api/posts", body: gin.H{"content_url": workURL}})
	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "fetch_failed", decode(t, w)["code"])

	var n int64
	require.NoError(t, s.db.Model(&models.UserPost{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestRegisterLoginAndBearer(t *testing.T) {
	s := newTestServer(t, testConfig())

	w := s.do(t, call{method: http.MethodPost, path: "/api/auth/register", body: gin.H{"username": "alice", "password": "secret123"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, call{method: http.MethodPost, path: "/api/auth/register", body: gin.H{"username": "alice", "password": "secret123"}})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, call{method: http.MethodPost, path: "/api/auth/login", body: gin.H{"username": "alice", "password": "nope"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, call{method: http.MethodPost, path: "/api/auth/login", body: gin.H{"username": "alice", "password": "secret123"}})
	require.Equal(t, http.StatusOK, w.Code)
	token, _ := decode(t, w)["token"].(string)
	require.NotEmpty(t, token)
	session := cookieNamed(w, "goodlist_session")
	require.NotNil(t, session)

	w = s.do(t, call{method: http.MethodGet, path: "/api/me", token: token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", decode(t, w)["username"])
	assert.Nil(t, cookieNamed(w, "guest_id"), "authenticated callers get no guest cookie")

	w = s.do(t, call{method: http.MethodGet, path: "/api/me/lists", cookies: []*http.Cookie{session}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Home"`)

	w = s.do(t, call{method: http.MethodPost, path: "/api/auth/logout", cookies: []*http.Cookie{session}})
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestPrivateListResponses(t *testing.T) {
	s := newTestServer(t, testConfig())

	owner := s.do(t, call{method: http.MethodGet, path: "/api/me"})
	ownerCookie := cookieNamed(owner, "guest_id")
	require.NotNil(t, ownerCookie)

	w := s.do(t, call{method: http.MethodPost, path: "/api/lists", body: gin.H{"name": "Secret", "is_public": false}, cookies: []*http.Cookie{ownerCookie}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	listID := uint(decode(t, w)["id"].(float64))

	stranger := services.NewGuestToken()
	strangerCookie := &http.Cookie{Name: "guest_id", Value: stranger}

	w = s.do(t, call{method: http.MethodPost, path: "/api/lists/" + utils.FormatID(listID) + "/goot", cookies: []*http.Cookie{strangerCookie}})
	require.Equal(t, http.StatusForbidden, w.Code)
	body := decode(t, w)
	assert.Equal(t, "new_favorite_disabled", body["detail"])
	assert.Equal(t, false, body["is_goot"])
	assert.Equal(t, float64(0), body["goot_count"])

	w = s.do(t, call{method: http.MethodGet, path: "/api/lists/" + utils.FormatID(listID), cookies: []*http.Cookie{strangerCookie}})
	require.Equal(t, http.StatusForbidden, w.Code)
	stub := decode(t, w)["list"].(map[string]interface{})
	assert.Equal(t, "Secret", stub["name"])
	assert.Equal(t, false, stub["is_public"])

	w = s.do(t, call{method: http.MethodGet, path: "/api/lists/" + utils.FormatID(listID), cookies: []*http.Cookie{ownerCookie}})
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, call{method: http.MethodDelete, path: "/api/lists/" + utils.FormatID(listID), cookies: []*http.Cookie{strangerCookie}})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(t, call{method: http.MethodDelete, path: "/api/lists/" + utils.FormatID(listID), cookies: []*http.Cookie{ownerCookie}})
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestListValidation(t *testing.T) {
	s := newTestServer(t, testConfig())
	for _, name := range []string{"", " padded", strings.Repeat("x", 256)} {
		w := s.do(t, call{method: http.MethodPost, path: "/api/lists", body: gin.H{"name": name}})
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
	}

	w := s.do(t, call{method: http.MethodPost, path: "/api/posts", body: gin.H{"content_url": "not a url"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, call{method: http.MethodGet, path: "/api/lists/abc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGoodToggleByURL(t *testing.T) {
	s := newTestServer(t, testConfig())
	guest := &http.Cookie{Name: "guest_id", Value: services.NewGuestToken()}

	w := s.do(t, call{method: http.MethodPost, path: "/api/contents/good", body: gin.H{"content_url": workURL}, cookies: []*http.Cookie{guest}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["is_good"])
	assert.Equal(t, float64(1), body["good_count"])

	w = s.do(t, call{method: http.MethodPost, path: "/api/contents/good", body: gin.H{"content_url": workURL}, cookies: []*http.Cookie{guest}})
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, false, body["is_good"])
	assert.Nil(t, body["content"])

	w = s.do(t, call{method: http.MethodGet, path: "/api/contents"})
	require.Equal(t, http.StatusOK, w.Code)
	var contents []interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &contents))
	assert.Empty(t, contents, "the last unlike collects the aggregate")
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitRPS = 0.001
	cfg.RateLimitBurst = 1
	s := newTestServer(t, cfg)

	w := s.do(t, call{method: http.MethodGet, path: "/api/me"})
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, call{method: http.MethodGet, path: "/api/me"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = s.do(t, call{method: http.MethodGet, path: "/api/feed"})
	assert.Equal(t, http.StatusOK, w.Code, "reads are not limited")
}

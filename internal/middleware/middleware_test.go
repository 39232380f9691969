package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"goodlist/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func guestEngine() *gin.Engine {
	r := gin.New()
	r.Use(GuestID(GuestCookieConfig{Name: "guest_id", MaxAge: 365 * 24 * time.Hour}))
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(GuestIDKey))
	})
	return r
}

func TestGuestIDMintsCookie(t *testing.T) {
	r := guestEngine()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "https://goodlist.example/", nil)
	r.ServeHTTP(w, req)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	ck := cookies[0]
	assert.Equal(t, "guest_id", ck.Name)
	assert.Equal(t, ck.Value, w.Body.String())
	assert.Equal(t, 365*24*60*60, ck.MaxAge)
	assert.True(t, ck.HttpOnly)
	assert.True(t, ck.Secure)
	assert.Equal(t, http.SameSiteLaxMode, ck.SameSite)
	_, ok := services.ValidGuestToken(ck.Value)
	assert.True(t, ok)
}

func TestGuestIDKeepsValidCookie(t *testing.T) {
	r := guestEngine()
	token := services.NewGuestToken()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "guest_id", Value: token})
	r.ServeHTTP(w, req)

	assert.Empty(t, w.Result().Cookies())
	assert.Equal(t, token, w.Body.String())
}

func TestGuestIDReplacesMalformedCookie(t *testing.T) {
	r := guestEngine()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "http://localhost:8080/", nil)
	req.AddCookie(&http.Cookie{Name: "guest_id", Value: "tampered"})
	r.ServeHTTP(w, req)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.NotEqual(t, "tampered", cookies[0].Value)
	assert.False(t, cookies[0].Secure, "plain cookies on localhost")
}

func TestRateLimiterPerIP(t *testing.T) {
	limiter := NewRateLimiter(0.001, 2)
	r := gin.New()
	r.Use(limiter.Middleware())
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	send := func(ip string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = ip + ":4321"
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusNoContent, send("10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, send("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, send("10.0.0.2"))
}

func TestAuthRequiredRejectsAnonymous(t *testing.T) {
	r := gin.New()
	r.GET("/", AuthRequired(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("Authorization", "bearer abc.def")
	assert.Equal(t, "abc.def", bearerToken(c))

	c.Request.Header.Set("Authorization", "Basic xyz")
	assert.Empty(t, bearerToken(c))
}

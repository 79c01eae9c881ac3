package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bookkeeping/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "middleware-test-secret-middleware-test"

func init() {
	gin.SetMode(gin.TestMode)
}

func identity() auth.Identity {
	return auth.Identity{UserID: "u-1", Email: "a@b.com", Name: "Y", CompanyName: "X"}
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	return body.Error
}

func authRouter(tokens *auth.TokenService) *gin.Engine {
	r := gin.New()
	r.GET("/private", Authenticate(tokens), func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c))
	})
	r.GET("/optional", OptionalAuth(tokens), func(c *gin.Context) {
		c.String(http.StatusOK, "user="+UserID(c))
	})
	return r
}

func TestAuthenticate(t *testing.T) {
	tokens := auth.NewTokenService(testSecret, time.Hour, "bookkeeping", auth.NewInMemoryTokenBlacklist())
	router := authRouter(tokens)
	valid, _, err := tokens.Issue(identity())
	require.NoError(t, err)

	expiredSvc := auth.NewTokenService(testSecret, -time.Minute, "bookkeeping", nil)
	expired, _, err := expiredSvc.Issue(identity())
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		errMsg string
	}{
		{"missing token", "", http.StatusUnauthorized, "Access token required"},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, "Token expired"},
		{"garbage", "Bearer not.a.token", http.StatusForbidden, "Invalid token"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "Access token required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.errMsg, errorOf(t, w))
		})
	}

	t.Run("valid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/private", nil)
		req.Header.Set("Authorization", "Bearer "+valid)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "u-1", w.Body.String())
	})

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/private", nil)
		req.AddCookie(&http.Cookie{Name: "access_token", Value: valid})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("revoked", func(t *testing.T) {
		claims, err := tokens.Parse(valid)
		require.NoError(t, err)
		require.NoError(t, tokens.Revoke(context.Background(), claims))

		req := httptest.NewRequest(http.MethodGet, "/private", nil)
		req.Header.Set("Authorization", "Bearer "+valid)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "Invalid token", errorOf(t, w))
	})
}

func TestOptionalAuth(t *testing.T) {
	tokens := auth.NewTokenService(testSecret, time.Hour, "bookkeeping", nil)
	router := authRouter(tokens)
	valid, _, err := tokens.Issue(identity())
	require.NoError(t, err)

	for header, want := range map[string]string{
		"":                   "user=",
		"Bearer not.a.token": "user=",
		"Bearer " + valid:    "user=u-1",
	} {
		req := httptest.NewRequest(http.MethodGet, "/optional", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, want, w.Body.String())
	}
}

func TestRateLimiter_FixedWindow(t *testing.T) {
	now := time.Now()
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	ok, remaining, _ := rl.Allow("1.1.1.1")
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)
	ok, _, _ = rl.Allow("1.1.1.1")
	assert.True(t, ok)
	ok, _, reset := rl.Allow("1.1.1.1")
	assert.False(t, ok)
	assert.Equal(t, now.Add(time.Minute), reset)

	ok, _, _ = rl.Allow("2.2.2.2")
	assert.True(t, ok, "keys are counted separately")

	rl.now = func() time.Time { return now.Add(time.Minute) }
	ok, _, _ = rl.Allow("1.1.1.1")
	assert.True(t, ok, "a new window starts")
	assert.NotContains(t, rl.clients, "2.2.2.2", "stale windows are pruned")
}

func TestRateLimit_Middleware(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(NewRateLimiter(1, time.Minute)))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.NotEmpty(t, errorOf(t, w))
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(10))
	r.POST("/", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small")))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 50))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "Request body exceeds maximum allowed size", errorOf(t, w))

	// a streamed body without a declared length fails while reading
	req := httptest.NewRequest(http.MethodPost, "/", io.NopCloser(strings.NewReader(strings.Repeat("x", 50))))
	req.ContentLength = -1
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citytransit/bus-booking-backend/pkg/jwt"
)

func setupRouter(jwtService *jwt.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", AuthMiddleware(jwtService), func(c *gin.Context) {
		userCtx := MustGetUserContext(c)
		c.JSON(http.StatusOK, gin.H{"user_id": userCtx.UserID})
	})
	router.GET("/open", OptionalAuth(jwtService), func(c *gin.Context) {
		_, authed := GetUserContext(c)
		c.JSON(http.StatusOK, gin.H{"authenticated": authed})
	})
	return router
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	jwtService := jwt.NewService("access-secret", "refresh-secret", time.Hour, 24*time.Hour)
	router := setupRouter(jwtService)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "MISSING_AUTH_HEADER")
}

func TestAuthMiddleware_BadFormat(t *testing.T) {
	jwtService := jwt.NewService("access-secret", "refresh-secret", time.Hour, 24*time.Hour)
	router := setupRouter(jwtService)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_AUTH_FORMAT")
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	jwtService := jwt.NewService("access-secret", "refresh-secret", time.Hour, 24*time.Hour)
	router := setupRouter(jwtService)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	jwtService := jwt.NewService("access-secret", "refresh-secret", -time.Hour, 24*time.Hour)
	token, err := jwtService.GenerateAccessToken(uuid.New(), "rider@example.com", "rider")
	require.NoError(t, err)

	router := setupRouter(jwtService)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TOKEN_EXPIRED")
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	jwtService := jwt.NewService("access-secret", "refresh-secret", time.Hour, 24*time.Hour)
	userID := uuid.New()
	token, err := jwtService.GenerateAccessToken(userID, "rider@example.com", "rider")
	require.NoError(t, err)

	router := setupRouter(jwtService)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), userID.String())
}

func TestAuthMiddleware_RefreshTokenRejected(t *testing.T) {
	jwtService := jwt.NewService("access-secret", "refresh-secret", time.Hour, 24*time.Hour)
	token, err := jwtService.GenerateRefreshToken(uuid.New(), "rider@example.com")
	require.NoError(t, err)

	router := setupRouter(jwtService)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOptionalAuth(t *testing.T) {
	jwtService := jwt.NewService("access-secret", "refresh-secret", time.Hour, 24*time.Hour)
	router := setupRouter(jwtService)

	// No header: request still succeeds, unauthenticated
	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":false`)

	// Garbage token: still succeeds, unauthenticated
	req = httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":false`)

	// Valid token: context attached
	token, err := jwtService.GenerateAccessToken(uuid.New(), "rider@example.com", "rider")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":true`)
}

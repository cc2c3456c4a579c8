package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/citytransit/bus-booking-backend/internal/middleware"
	"github.com/citytransit/bus-booking-backend/internal/models"
	"github.com/citytransit/bus-booking-backend/internal/services"
)

const oauthStateCookie = "oauth_state"

// AuthHandler handles registration, login and profile endpoints
type AuthHandler struct {
	authService    *services.AuthService
	clientRedirect string
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *services.AuthService, clientRedirect string) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		clientRedirect: clientRedirect,
	}
}

// Register creates a local account
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body", "details": err.Error()})
		return
	}

	resp, err := h.authService.Register(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Login authenticates a local account
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body", "details": err.Error()})
		return
	}

	resp, err := h.authService.Login(&req, c.Request.UserAgent(), c.ClientIP())
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GoogleAuth redirects the client to the Google consent screen
func (h *AuthHandler) GoogleAuth(c *gin.Context) {
	authURL, state, err := h.authService.GoogleAuthURL()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": err.Error()})
		return
	}

	// State cookie closes the CSRF loop on the callback
	c.SetCookie(oauthStateCookie, state, 600, "/", "", false, true)
	c.Redirect(http.StatusTemporaryRedirect, authURL)
}

// GoogleCallback exchanges the authorization code for tokens and redirects
// back to the frontend with the token pair in the fragment.
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	state := c.Query("state")
	storedState, err := c.Cookie(oauthStateCookie)
	if err != nil || state == "" || state != storedState {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid OAuth state"})
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/", "", false, true)

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Missing authorization code"})
		return
	}

	resp, err := h.authService.GoogleCallback(c.Request.Context(), code)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": err.Error()})
		return
	}

	if h.clientRedirect != "" {
		c.Redirect(http.StatusTemporaryRedirect,
			h.clientRedirect+"#access_token="+resp.AccessToken+"&refresh_token="+resp.RefreshToken)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Refresh exchanges a refresh token for a new token pair
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body", "details": err.Error()})
		return
	}

	resp, err := h.authService.RefreshToken(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Logout acknowledges a sign-out. Tokens are stateless, so the client
// discards them; nothing is revoked server-side.
func (h *AuthHandler) Logout(c *gin.Context) {
	if _, exists := middleware.GetUserContext(c); !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out successfully"})
}

// GetProfile returns the authenticated user's account
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized"})
		return
	}

	user, err := h.authService.GetProfile(userCtx.UserID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

// UpdateProfile applies a partial profile update
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized"})
		return
	}

	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body", "details": err.Error()})
		return
	}

	user, err := h.authService.UpdateProfile(userCtx.UserID, &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

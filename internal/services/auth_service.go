package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/citytransit/bus-booking-backend/internal/config"
	"github.com/citytransit/bus-booking-backend/internal/database"
	"github.com/citytransit/bus-booking-backend/internal/models"
	"github.com/citytransit/bus-booking-backend/internal/utils"
	"github.com/citytransit/bus-booking-backend/pkg/jwt"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// AuthService handles passenger registration and authentication
type AuthService struct {
	userRepo    *database.UserRepository
	jwtService  *jwt.Service
	oauthConfig *oauth2.Config
	bcryptCost  int
	logger      *logrus.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo *database.UserRepository,
	jwtService *jwt.Service,
	googleCfg *config.GoogleConfig,
	bcryptCost int,
	logger *logrus.Logger,
) *AuthService {
	var oauthConfig *oauth2.Config
	if googleCfg.ClientID != "" && googleCfg.ClientSecret != "" {
		oauthConfig = &oauth2.Config{
			ClientID:     googleCfg.ClientID,
			ClientSecret: googleCfg.ClientSecret,
			RedirectURL:  googleCfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		}
	}

	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}

	return &AuthService{
		userRepo:    userRepo,
		jwtService:  jwtService,
		oauthConfig: oauthConfig,
		bcryptCost:  bcryptCost,
		logger:      logger,
	}
}

// Register creates a local account
func (s *AuthService) Register(req *models.RegisterRequest) (*models.AuthResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := s.userRepo.GetByEmailOrUsername(email, req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("an account with this email or username already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	hashStr := string(hash)
	user := &models.User{
		Username:     req.Username,
		Email:        email,
		PasswordHash: &hashStr,
		AuthProvider: models.AuthProviderLocal,
	}

	if err := s.userRepo.Create(user); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("an account with this email or username already exists")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("User registered")

	return s.issueTokens(user)
}

// Login authenticates a local account. The user agent is parsed into device
// info for the login audit log.
func (s *AuthService) Login(req *models.LoginRequest, userAgent, clientIP string) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || user.PasswordHash == nil {
		return nil, fmt.Errorf("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.WithFields(logrus.Fields{
			"email": email,
			"ip":    clientIP,
		}).Warn("Failed login attempt")
		return nil, fmt.Errorf("invalid email or password")
	}

	device := utils.ParseUserAgent(userAgent)
	s.logger.WithFields(logrus.Fields{
		"user_id":     user.ID,
		"ip":          clientIP,
		"device_type": device.DeviceType,
		"os":          device.OS,
		"browser":     device.Browser,
		"is_bot":      device.IsBot,
	}).Info("User logged in")

	return s.issueTokens(user)
}

// GoogleAuthURL builds the consent URL and a random state token the handler
// stores in a short-lived cookie.
func (s *AuthService) GoogleAuthURL() (authURL, state string, err error) {
	if s.oauthConfig == nil {
		return "", "", fmt.Errorf("google sign-in is not configured")
	}

	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("failed to generate state: %w", err)
	}
	state = base64.RawURLEncoding.EncodeToString(raw)

	return s.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOnline), state, nil
}

type googleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// GoogleCallback exchanges the authorization code, fetches the Google
// profile and finds or creates the matching account.
func (s *AuthService) GoogleCallback(ctx context.Context, code string) (*models.AuthResponse, error) {
	if s.oauthConfig == nil {
		return nil, fmt.Errorf("google sign-in is not configured")
	}

	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	info, err := s.fetchGoogleUserInfo(ctx, token)
	if err != nil {
		return nil, err
	}
	if info.Email == "" || info.ID == "" {
		return nil, fmt.Errorf("google profile is missing email or id")
	}

	user, err := s.findOrCreateGoogleUser(info)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
	}).Info("User logged in via Google")

	return s.issueTokens(user)
}

// RefreshToken exchanges a valid refresh token for a new token pair
func (s *AuthService) RefreshToken(refreshToken string) (*models.AuthResponse, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}

	user, err := s.userRepo.GetByID(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("account no longer exists")
	}

	return s.issueTokens(user)
}

// GetProfile returns the account for the given user id
func (s *AuthService) GetProfile(userID uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("account no longer exists")
	}
	return user, nil
}

// UpdateProfile applies a partial profile update and returns the fresh row
func (s *AuthService) UpdateProfile(userID uuid.UUID, req *models.UpdateProfileRequest) (*models.User, error) {
	if req.Username != nil {
		trimmed := strings.TrimSpace(*req.Username)
		if len(trimmed) < 3 || strings.ContainsAny(trimmed, " \t") {
			return nil, fmt.Errorf("username must be at least 3 characters with no whitespace")
		}
		req.Username = &trimmed
	}

	if err := s.userRepo.UpdateProfile(userID, req.Username, req.ProfilePicture); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("username is already taken")
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return s.GetProfile(userID)
}

func (s *AuthService) fetchGoogleUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := s.oauthConfig.Client(ctx, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleUserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build userinfo request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch google profile: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read google profile: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google userinfo returned status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse google profile: %w", err)
	}

	return &info, nil
}

func (s *AuthService) findOrCreateGoogleUser(info *googleUserInfo) (*models.User, error) {
	user, err := s.userRepo.GetByGoogleID(info.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up google account: %w", err)
	}
	if user != nil {
		return user, nil
	}

	// An existing local account with the same email gets linked rather
	// than duplicated.
	email := strings.ToLower(info.Email)
	user, err = s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user != nil {
		var picture *string
		if info.Picture != "" {
			picture = &info.Picture
		}
		if err := s.userRepo.LinkGoogleAccount(user.ID, info.ID, picture); err != nil {
			return nil, fmt.Errorf("failed to link google account: %w", err)
		}
		return s.userRepo.GetByID(user.ID)
	}

	user = &models.User{
		Username:     s.usernameFromProfile(info, email),
		Email:        email,
		GoogleID:     &info.ID,
		AuthProvider: models.AuthProviderGoogle,
	}
	if info.Picture != "" {
		user.ProfilePicture = &info.Picture
	}

	if err := s.userRepo.Create(user); err != nil {
		if !database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		// Username collision: add a random suffix and retry once
		user.Username = user.Username + "_" + randomSuffix(4)
		if err := s.userRepo.Create(user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
	}

	return user, nil
}

// usernameFromProfile derives a username from the Google display name,
// falling back to the email local part.
func (s *AuthService) usernameFromProfile(info *googleUserInfo, email string) string {
	name := strings.ReplaceAll(strings.TrimSpace(info.Name), " ", "_")
	if len(name) >= 3 {
		return strings.ToLower(name)
	}
	if at := strings.Index(email, "@"); at > 2 {
		return email[:at]
	}
	return "rider_" + randomSuffix(6)
}

func randomSuffix(n int) string {
	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano()%100000)
	}
	return strings.ToLower(base64.RawURLEncoding.EncodeToString(raw))[:n]
}

func (s *AuthService) issueTokens(user *models.User) (*models.AuthResponse, error) {
	accessToken, err := s.jwtService.GenerateAccessToken(user.ID, user.Email, user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.jwtService.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &models.AuthResponse{
		Success:      true,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

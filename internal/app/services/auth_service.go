package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/deniz/labstock/internal/app/models"
	"github.com/deniz/labstock/internal/app/models/dto"
	"github.com/deniz/labstock/internal/pkg/apperrors"
	"github.com/deniz/labstock/internal/pkg/auth"
)

// AuthService handles registration, login and token refresh
type AuthService struct {
	userStore  UserStore
	tokenStore TokenStore
	jwtService *auth.JWTService
	logger     zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(userStore UserStore, tokenStore TokenStore, jwtService *auth.JWTService, logger zerolog.Logger) *AuthService {
	return &AuthService{
		userStore:  userStore,
		tokenStore: tokenStore,
		jwtService: jwtService,
		logger:     logger,
	}
}

// validatePassword checks if password meets requirements
func (s *AuthService) validatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters long", apperrors.ErrValidationFailed)
	}

	hasLetter := false
	hasDigit := false
	for _, char := range password {
		if unicode.IsLetter(char) {
			hasLetter = true
		}
		if unicode.IsDigit(char) {
			hasDigit = true
		}
	}
	if !hasLetter {
		return fmt.Errorf("%w: password must contain at least one letter", apperrors.ErrValidationFailed)
	}
	if !hasDigit {
		return fmt.Errorf("%w: password must contain at least one digit", apperrors.ErrValidationFailed)
	}

	return nil
}

// Register creates a new user account and issues a token pair
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.TokenResponse, error) {
	if err := s.validatePassword(req.Password); err != nil {
		return nil, err
	}

	role := models.RoleType(req.Role)
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: role must be student or mentor", apperrors.ErrValidationFailed)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := s.userStore.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("error checking if email exists: %w", err)
	}
	if exists {
		return nil, apperrors.ErrEmailAlreadyExists
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		Email:    email,
		Password: hashedPassword,
		Name:     strings.TrimSpace(req.Name),
		RoleType: role,
	}

	userID, err := s.userStore.CreateUser(ctx, user)
	if err != nil {
		return nil, err
	}
	user.ID = userID

	s.logger.Info().Int64("userID", userID).Str("role", req.Role).Msg("User registered")

	return s.generateTokenResponse(ctx, user)
}

// Login authenticates a user and issues a token pair
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.userStore.GetUserByEmail(ctx, email)
	if err != nil {
		// Same error whether the account exists or the password is wrong
		return nil, apperrors.ErrInvalidCredentials
	}

	if !auth.CheckPassword(user.Password, req.Password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	return s.generateTokenResponse(ctx, user)
}

// RefreshToken rotates a refresh token and issues a new token pair
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, apperrors.ErrTokenInvalid
	}

	stored, err := s.tokenStore.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	if stored.Revoked {
		return nil, apperrors.ErrTokenRevoked
	}
	if stored.ExpiresAt.Before(time.Now()) {
		_ = s.tokenStore.RevokeRefreshToken(ctx, refreshToken)
		return nil, apperrors.ErrTokenExpired
	}

	user, err := s.userStore.GetUserByID(ctx, stored.UserID)
	if err != nil {
		return nil, err
	}

	// Revoke the old token so it cannot be replayed
	if err := s.tokenStore.RevokeRefreshToken(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("failed to revoke old token: %w", err)
	}

	return s.generateTokenResponse(ctx, user)
}

// GetProfile retrieves the public view of a user
func (s *AuthService) GetProfile(ctx context.Context, userID int64) (*dto.UserResponse, error) {
	user, err := s.userStore.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &dto.UserResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  string(user.RoleType),
	}, nil
}

// generateTokenResponse issues and persists a token pair for a user
func (s *AuthService) generateTokenResponse(ctx context.Context, user *models.User) (*dto.TokenResponse, error) {
	accessToken, refreshToken, expiresIn, refreshExpiresIn, err := s.jwtService.GenerateTokenPair(user)
	if err != nil {
		return nil, fmt.Errorf("token generation error: %w", err)
	}

	expiresAt := s.jwtService.GetRefreshTokenExpiry()
	if err := s.tokenStore.SaveRefreshToken(ctx, user.ID, refreshToken, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to save refresh token: %w", err)
	}

	return &dto.TokenResponse{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		ExpiresIn:        expiresIn,
		RefreshExpiresIn: refreshExpiresIn,
		TokenType:        "Bearer",
	}, nil
}

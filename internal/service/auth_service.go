package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shubhojit-Official/Mailto/internal/logger"
	"github.com/Shubhojit-Official/Mailto/internal/model"
	"github.com/Shubhojit-Official/Mailto/internal/repository"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "mailto"

var ErrInvalidToken = errors.New("invalid or expired token")

type authService struct {
	userRepo  repository.UserRepository
	jwtSecret []byte
	tokenTTL  time.Duration
	logger    *logger.Logger
}

func NewAuthService(userRepo repository.UserRepository, jwtSecret string, tokenTTL time.Duration, logger *logger.Logger) AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 7 * 24 * time.Hour
	}
	return &authService{
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
}

func (s *authService) GetOrCreateUser(ctx context.Context, googleID, email, name, accessToken, refreshToken string, tokenExpiry time.Time) (*model.User, error) {
	existingUser, err := s.userRepo.FindByGoogleID(ctx, googleID)
	if errors.Is(err, repository.ErrNotFound) {
		newUser := model.NewUser(googleID, email, name, accessToken, refreshToken, tokenExpiry)
		if err := s.userRepo.Create(ctx, newUser); err != nil {
			s.logger.Error("Failed to create user:", err)
			return nil, err
		}
		s.logger.Info("Created new user:", newUser.ID)
		return newUser, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	existingUser.Email = email
	existingUser.Name = name
	if accessToken != "" {
		existingUser.AccessToken = accessToken
		existingUser.TokenExpiry = tokenExpiry
	}
	// Google only returns a refresh token on first consent.
	if refreshToken != "" {
		existingUser.RefreshToken = refreshToken
	}
	existingUser.UpdatedAt = time.Now()

	if err := s.userRepo.Update(ctx, existingUser); err != nil {
		s.logger.Error("Failed to update user:", err)
		return nil, err
	}
	s.logger.Info("Updated existing user:", existingUser.ID)
	return existingUser, nil
}

func (s *authService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}

func (s *authService) IssueToken(user *model.User) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   user.ID,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken returns the user id carried by a valid token.
func (s *authService) VerifyToken(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

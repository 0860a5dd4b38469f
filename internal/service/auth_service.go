package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"taxbook/internal/api"
	"taxbook/internal/domain"
	"taxbook/internal/events"
	"taxbook/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

var (
	ErrCredentialsRequired = errors.New("username and password are required")
	ErrNoTokenIssued       = errors.New("sign in returned no token")
	ErrNotSignedIn         = errors.New("not signed in")
)

// AuthService keeps the per-user auth status and the stored token.
type AuthService struct {
	api    domain.AuthAPI
	tokens domain.TokenStore
	events domain.EventPublisher
	logger *zerolog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	statuses map[int64]models.AuthStatus
}

func NewAuthService(
	authAPI domain.AuthAPI,
	tokens domain.TokenStore,
	publisher domain.EventPublisher,
	logger *zerolog.Logger,
) *AuthService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &AuthService{
		api:      authAPI,
		tokens:   tokens,
		events:   publisher,
		logger:   logger,
		now:      time.Now,
		statuses: make(map[int64]models.AuthStatus),
	}
}

func (s *AuthService) SignIn(ctx context.Context, userID int64, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrCredentialsRequired
	}

	user, err := s.api.SignIn(ctx, username, password)
	if err != nil {
		s.setStatus(userID, models.AuthUnauthenticated)
		s.logger.Warn().Err(err).Int64("user_id", userID).Msg("sign in failed")
		return nil, err
	}
	if user.Token == "" {
		s.setStatus(userID, models.AuthUnauthenticated)
		return nil, ErrNoTokenIssued
	}

	if err := s.tokens.SaveToken(ctx, userID, user.Token); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	s.setStatus(userID, models.AuthAuthenticated)
	s.publish(events.EventSignedIn, userID)
	s.logger.Info().Int64("user_id", userID).Str("email", user.Email).Msg("user signed in")
	return user, nil
}

// CheckStatus validates the stored token with the backend. A rejected or
// locally expired token is deleted; a network failure leaves the token in
// place but reports the user as unauthenticated.
func (s *AuthService) CheckStatus(ctx context.Context, userID int64) (models.AuthStatus, error) {
	s.setStatus(userID, models.AuthChecking)

	token, err := s.tokens.GetToken(ctx, userID)
	if errors.Is(err, domain.ErrTokenNotFound) {
		s.setStatus(userID, models.AuthUnauthenticated)
		return models.AuthUnauthenticated, nil
	}
	if err != nil {
		s.setStatus(userID, models.AuthUnauthenticated)
		return models.AuthUnauthenticated, fmt.Errorf("load token: %w", err)
	}

	if tokenExpired(token, s.now()) {
		s.logger.Info().Int64("user_id", userID).Msg("stored token expired")
		return s.dropToken(ctx, userID)
	}

	user, err := s.api.CheckStatus(ctx, token)
	if api.IsUnauthorized(err) {
		return s.dropToken(ctx, userID)
	}
	if err != nil {
		s.setStatus(userID, models.AuthUnauthenticated)
		s.logger.Warn().Err(err).Int64("user_id", userID).Msg("auth check failed")
		return models.AuthUnauthenticated, err
	}

	if user.Token != "" && user.Token != token {
		if err := s.tokens.SaveToken(ctx, userID, user.Token); err != nil {
			s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to store refreshed token")
		}
	}
	s.setStatus(userID, models.AuthAuthenticated)
	return models.AuthAuthenticated, nil
}

func (s *AuthService) Logout(ctx context.Context, userID int64) error {
	if err := s.tokens.DeleteToken(ctx, userID); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	s.setStatus(userID, models.AuthUnauthenticated)
	s.publish(events.EventSignedOut, userID)
	return nil
}

// Status is the last known status; AuthChecking until the first check.
func (s *AuthService) Status(userID int64) models.AuthStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.statuses[userID]
	if !ok {
		return models.AuthChecking
	}
	return st
}

// Token returns the stored token or ErrNotSignedIn.
func (s *AuthService) Token(ctx context.Context, userID int64) (string, error) {
	token, err := s.tokens.GetToken(ctx, userID)
	if errors.Is(err, domain.ErrTokenNotFound) {
		return "", ErrNotSignedIn
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

func (s *AuthService) dropToken(ctx context.Context, userID int64) (models.AuthStatus, error) {
	s.setStatus(userID, models.AuthUnauthenticated)
	if err := s.tokens.DeleteToken(ctx, userID); err != nil {
		return models.AuthUnauthenticated, fmt.Errorf("delete token: %w", err)
	}
	return models.AuthUnauthenticated, nil
}

func (s *AuthService) setStatus(userID int64, st models.AuthStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[userID] = st
}

func (s *AuthService) publish(eventType string, userID int64) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishJSON(eventType, events.UserEventPayload{UserID: userID}); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("failed to publish auth event")
	}
}

// tokenExpired inspects the exp claim without verifying the signature.
// Opaque or claim-less tokens are left for the backend to judge.
func tokenExpired(token string, now time.Time) bool {
	parser := new(jwt.Parser)
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return now.After(exp.Time)
}

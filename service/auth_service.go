package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"go-user-api/logger"
	"go-user-api/metrics"
	"go-user-api/model"
	"go-user-api/repository"
	"strings"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// AuthService verifies credentials and manages the access/refresh token
// pair of each user. The refresh token stored on the user record is the
// only one that Refresh will accept.
type AuthService struct {
	users  repository.IUserRepository
	hasher *PasswordHasher
	tokens *TokenService
	cache  *UserCache
}

func NewAuthService(users repository.IUserRepository, hasher *PasswordHasher, tokens *TokenService, cache *UserCache) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		cache:  cache,
	}
}

// Login looks the user up by username or email and checks the password.
// An unknown identifier and a wrong password both yield
// ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, email, password string) (user *model.User, pair *model.TokenPair, err error) {
	defer func() { metrics.RecordAuth("login", err) }()

	username = strings.ToLower(strings.TrimSpace(username))
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" && email == "" {
		return nil, nil, ErrMissingFields
	}

	log := logger.Log.WithFields(logrus.Fields{"username": username, "email": email})

	stored, err := s.users.FindByIdentifier(ctx, username, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Info("Login attempt for unknown user")
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !s.hasher.CheckPasswordHash(password, stored.Password) {
		log.WithField("user_id", stored.ID.Hex()).Info("Login attempt with wrong password")
		return nil, nil, ErrInvalidCredentials
	}

	pair, err = s.issueTokens(ctx, stored)
	if err != nil {
		return nil, nil, err
	}

	log.WithField("user_id", stored.ID.Hex()).Info("User logged in")
	return stored.Sanitized(), pair, nil
}

// VerifyAccess validates an access token and returns the user it names.
func (s *AuthService) VerifyAccess(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, ErrTokenMissing
	}

	claims, err := s.tokens.ParseAccessToken(token)
	if err != nil {
		return nil, err
	}

	id, err := bson.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if cached := s.cache.Get(ctx, id); cached != nil {
		return cached, nil
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to load user for token: %w", err)
	}

	s.cache.Set(ctx, user)
	return user.Sanitized(), nil
}

// Refresh exchanges a refresh token for a new pair. The presented token
// must match the stored one exactly; the stored value is then replaced, so
// each refresh token works once.
func (s *AuthService) Refresh(ctx context.Context, token string) (pair *model.TokenPair, err error) {
	defer func() { metrics.RecordAuth("refresh", err) }()

	if token == "" {
		return nil, ErrTokenMissing
	}

	claims, err := s.tokens.ParseRefreshToken(token)
	if err != nil {
		return nil, err
	}

	id, err := bson.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to load user for refresh: %w", err)
	}

	if user.RefreshToken == nil || subtle.ConstantTimeCompare([]byte(*user.RefreshToken), []byte(token)) != 1 {
		logger.Log.WithField("user_id", id.Hex()).Warn("Refresh token does not match the stored token")
		return nil, ErrRefreshTokenReused
	}

	return s.issueTokens(ctx, user)
}

// Logout drops the stored refresh token. Access tokens already issued stay
// valid until they expire.
func (s *AuthService) Logout(ctx context.Context, id bson.ObjectID) (err error) {
	defer func() { metrics.RecordAuth("logout", err) }()

	if err := s.users.ClearRefreshToken(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to clear refresh token: %w", err)
	}
	logger.Log.WithField("user_id", id.Hex()).Info("User logged out")
	return nil
}

// ChangePassword replaces the password hash after checking oldPassword.
// The stored refresh token is left as is.
func (s *AuthService) ChangePassword(ctx context.Context, id bson.ObjectID, oldPassword, newPassword string) (err error) {
	defer func() { metrics.RecordAuth("change_password", err) }()

	if oldPassword == "" || newPassword == "" {
		return ErrMissingFields
	}
	if err := checkPasswordLength(newPassword); err != nil {
		return err
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	if !s.hasher.CheckPasswordHash(oldPassword, user.Password) {
		logger.Log.WithField("user_id", id.Hex()).Info("Password change rejected: wrong old password")
		return ErrInvalidCredentials
	}

	hash, err := s.hasher.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, id, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to store password: %w", err)
	}

	logger.Log.WithField("user_id", id.Hex()).Info("Password changed")
	return nil
}

// issueTokens mints a fresh pair and stores its refresh half on the user.
func (s *AuthService) issueTokens(ctx context.Context, user *model.User) (*model.TokenPair, error) {
	access, accessExp, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.tokens.GenerateRefreshToken(user)
	if err != nil {
		return nil, err
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, refresh); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &model.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

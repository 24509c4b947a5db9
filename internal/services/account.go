package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/temcen/gamecore/internal/database"
	"github.com/temcen/gamecore/pkg/models"
)

var (
	ErrAccountExists      = errors.New("account already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type AccountService struct {
	users      UserRepository
	hasher     *PasswordHasher
	tokens     *TokenService
	production bool
	logger     *logrus.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewAccountService(users UserRepository, hasher *PasswordHasher, tokens *TokenService, production bool, logger *logrus.Logger) *AccountService {
	return &AccountService{
		users:      users,
		hasher:     hasher,
		tokens:     tokens,
		production: production,
		logger:     logger,
	}
}

// Register creates the user together with its first API key and returns a
// session token for it.
func (s *AccountService) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResult, error) {
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: hash,
	}
	key := &models.APIKey{
		ID:       uuid.New(),
		Key:      GenerateAPIKey(s.production),
		UserID:   user.ID,
		IsActive: true,
	}

	if err := s.users.CreateAccount(ctx, user, key); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	token, err := s.tokens.Issue(user.Identity())
	if err != nil {
		return nil, err
	}

	s.logger.WithField("user_id", user.ID).Info("Account registered")

	return &models.AuthResult{
		Token:  token,
		User:   user.Identity(),
		APIKey: key,
	}, nil
}

func (s *AccountService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResult, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, database.ErrUserNotFound) {
		// Same bcrypt cost as a real mismatch.
		_, _ = s.hasher.Verify(req.Password, s.placeholderHash())
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	ok, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("stored password hash for user %s: %w", user.ID, err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.Identity())
	if err != nil {
		return nil, err
	}

	return &models.AuthResult{
		Token: token,
		User:  user.Identity(),
	}, nil
}

func (s *AccountService) placeholderHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(uuid.NewString())
		if err != nil {
			s.logger.WithError(err).Warn("Failed to prepare placeholder password hash")
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

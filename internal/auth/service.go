package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Tnhann/GoatDevelopers/internal/domain"
	"github.com/Tnhann/GoatDevelopers/internal/errors"
)

const defaultTokenTTL = 30 * 24 * time.Hour

// Store is the user persistence the auth service depends on.
type Store interface {
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	FindUserByID(ctx context.Context, userID string) (*domain.User, error)
	AddUser(ctx context.Context, u *domain.User) error
	UpdateDisplayName(ctx context.Context, userID, displayName string) error
}

type Config struct {
	Store     Store
	SignToken TokenSigner
	TokenTTL  time.Duration
}

type Service struct {
	store     Store
	signToken TokenSigner
	tokenTTL  time.Duration
	now       func() time.Time
}

func NewService(c Config) *Service {
	if c.TokenTTL <= 0 {
		c.TokenTTL = defaultTokenTTL
	}

	return &Service{
		store:     c.Store,
		signToken: c.SignToken,
		tokenTTL:  c.TokenTTL,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type Result struct {
	Token  string
	UserID string
}

// Register creates an account and returns a signed token for it.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (*Result, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(password) == "" {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("email and password are required"))
	}

	existing, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("email is already registered"))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	u := &domain.User{
		UserID:      id.String(),
		Email:       email,
		DisplayName: strings.TrimSpace(displayName),
		PassHash:    hash,
		CreateTime:  s.now(),
	}
	if err := s.store.AddUser(ctx, u); err != nil {
		return nil, err
	}

	token, err := s.signToken(u.UserID, u.Email, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &Result{Token: token, UserID: u.UserID}, nil
}

// Login verifies credentials and returns a signed token.
func (s *Service) Login(ctx context.Context, email, password string) (*Result, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(password) == "" {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("email and password are required"))
	}

	u, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("invalid credentials"))
	}
	if err := bcrypt.CompareHashAndPassword(u.PassHash, []byte(password)); err != nil {
		return nil, errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("invalid credentials"))
	}

	token, err := s.signToken(u.UserID, u.Email, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &Result{Token: token, UserID: u.UserID}, nil
}

// Profile returns the user's account details.
func (s *Service) Profile(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("user not found: %s", userID))
	}

	return u, nil
}

// UpdateProfile changes the user's display name.
func (s *Service) UpdateProfile(ctx context.Context, userID, displayName string) (*domain.User, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("display name is required"))
	}

	if err := s.store.UpdateDisplayName(ctx, userID, displayName); err != nil {
		return nil, err
	}

	return s.Profile(ctx, userID)
}

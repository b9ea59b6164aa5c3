package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fathima-sithara/konga-enrollment/internal/models"
	"github.com/fathima-sithara/konga-enrollment/internal/repository"
	"github.com/fathima-sithara/konga-enrollment/internal/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// TokenStore remembers revoked token ids until they would have expired anyway.
type TokenStore interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResult struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Account   *models.Account `json:"account"`
}

type AuthStatus struct {
	Account  *models.Account  `json:"account"`
	Enrollee *models.Enrollee `json:"enrollee,omitempty"`
}

type AuthService interface {
	EnrolleeAccounts
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Logout(ctx context.Context, claims *utils.CustomClaims) error
	Status(ctx context.Context, caller models.Caller) (*AuthStatus, error)
	SeedAdmin(ctx context.Context, email, password string) error
}

type authService struct {
	accounts   repository.AccountRepository
	enrollees  repository.EnrolleeRepository
	jwt        *utils.JWTManager
	tokens     TokenStore
	log        *zap.Logger
	bcryptCost int
}

func NewAuthService(
	accounts repository.AccountRepository,
	enrollees repository.EnrolleeRepository,
	jwt *utils.JWTManager,
	tokens TokenStore,
	log *zap.Logger,
) AuthService {
	return &authService{
		accounts:   accounts,
		enrollees:  enrollees,
		jwt:        jwt,
		tokens:     tokens,
		log:        log,
		bcryptCost: bcrypt.DefaultCost,
	}
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	acct, err := s.accounts.FindByEmail(ctx, models.NormalizeEmail(email))
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, claims, err := s.jwt.Generate(acct)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", ErrInternal)
	}
	now := time.Now().UTC()
	if err := s.accounts.TouchLogin(ctx, acct.ID, now); err != nil {
		s.log.Warn("record last login", zap.String("account_id", acct.ID.Hex()), zap.Error(err))
	}
	acct.LastLoginAt = &now
	return &LoginResult{Token: token, ExpiresAt: claims.ExpiresAt.Time, Account: acct}, nil
}

// Logout revokes the presented token for the rest of its lifetime.
func (s *authService) Logout(ctx context.Context, claims *utils.CustomClaims) error {
	if claims == nil || claims.ID == "" {
		return utils.ErrInvalidToken
	}
	until := time.Now().Add(time.Minute)
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	if err := s.tokens.Revoke(ctx, claims.ID, until); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (s *authService) Status(ctx context.Context, caller models.Caller) (*AuthStatus, error) {
	oid, err := repository.ParseID(caller.AccountID)
	if err != nil {
		return nil, err
	}
	acct, err := s.accounts.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	st := &AuthStatus{Account: acct}
	if acct.EnrolleeID != nil {
		e, err := s.enrollees.FindByID(ctx, *acct.EnrolleeID)
		switch {
		case err == nil:
			st.Enrollee = e
		case errors.Is(err, repository.ErrEnrolleeNotFound):
		default:
			return nil, fmt.Errorf("load enrollee: %w", err)
		}
	}
	return st, nil
}

// SeedAdmin creates the configured admin account when it does not exist yet.
func (s *authService) SeedAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	_, err := s.accounts.FindByEmail(ctx, models.NormalizeEmail(email))
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrAccountNotFound) {
		return fmt.Errorf("find admin: %w", err)
	}
	acct, err := s.newAccount(email, password, models.RoleAdmin, nil)
	if err != nil {
		return err
	}
	if err := s.accounts.Create(ctx, acct); err != nil && !errors.Is(err, repository.ErrDuplicateKey) {
		return fmt.Errorf("create admin: %w", err)
	}
	s.log.Info("admin account seeded", zap.String("email", acct.Email))
	return nil
}

func (s *authService) RegisterEnrollee(ctx context.Context, e *models.Enrollee, password string) error {
	acct, err := s.newAccount(e.Email, password, models.RoleUser, &e.ID)
	if err != nil {
		return err
	}
	if err := s.accounts.Create(ctx, acct); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return ErrEmailTaken
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (s *authService) RemoveEnrollee(ctx context.Context, enrolleeID primitive.ObjectID) error {
	return s.accounts.DeleteByEnrollee(ctx, enrolleeID)
}

func (s *authService) newAccount(email, password string, role models.UserRole, enrolleeID *primitive.ObjectID) (*models.Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return &models.Account{
		Email:        models.NormalizeEmail(email),
		PasswordHash: string(hash),
		Role:         role,
		EnrolleeID:   enrolleeID,
	}, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"storefront-api/internal/auth"
	"storefront-api/internal/dto"
	"storefront-api/internal/model"
	"storefront-api/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 8

type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*model.User, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	// Authenticate resolves an access token to the stored user.
	Authenticate(ctx context.Context, accessToken string) (*model.User, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
	SeedAdmin(ctx context.Context, email, password string) error
}

type authServiceImpl struct {
	userRepo   repository.UserRepository
	tokens     *auth.TokenMaker
	bcryptCost int
	logger     *zap.Logger
}

func NewAuthService(
	userRepo repository.UserRepository,
	tokens *auth.TokenMaker,
	bcryptCost int,
	logger *zap.Logger,
) AuthService {
	return &authServiceImpl{
		userRepo:   userRepo,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authServiceImpl) Register(ctx context.Context, req *dto.RegisterRequest) (*model.User, error) {
	email := normalizeEmail(req.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	}
	if len(req.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	return s.createUser(ctx, email, req.Password, req.FirstName, req.LastName, model.RoleCustomer)
}

func (s *authServiceImpl) createUser(ctx context.Context, email, password, firstName, lastName string, role model.Role) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		Role:         role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: user with email %s already exists", ErrConflict, email)
		}
		return nil, fmt.Errorf("store user: %w", err)
	}

	return user, nil
}

func (s *authServiceImpl) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenPair, error) {
	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	access, err := s.tokens.CreateAccessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.CreateRefreshToken(user)
	if err != nil {
		return nil, err
	}

	return &dto.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

func (s *authServiceImpl) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", ErrInvalidCredentials
	}

	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	// the role may have changed since the refresh token was issued
	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("find user: %w", err)
	}

	return s.tokens.CreateAccessToken(user)
}

func (s *authServiceImpl) Authenticate(ctx context.Context, accessToken string) (*model.User, error) {
	claims, err := s.tokens.VerifyAccessToken(accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: user no longer exists", ErrUnauthenticated)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	return user, nil
}

func (s *authServiceImpl) ListUsers(ctx context.Context) ([]*model.User, error) {
	users, err := s.userRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *authServiceImpl) SeedAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role == model.RoleAdmin {
			return nil
		}
		s.logger.Info("promoting existing user to admin", zap.String("email", email))
		return s.userRepo.UpdateRole(ctx, existing.ID, model.RoleAdmin)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("find admin: %w", err)
	}

	if _, err := s.createUser(ctx, email, password, "Admin", "", model.RoleAdmin); err != nil {
		return err
	}

	s.logger.Info("admin user seeded", zap.String("email", email))
	return nil
}

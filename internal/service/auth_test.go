package service

import (
	"time"

	"storefront-api/internal/auth"
	"storefront-api/internal/config"
	"storefront-api/internal/dto"
	"storefront-api/internal/model"

	"golang.org/x/crypto/bcrypt"
)

func (s *ServiceSuite) authService() (AuthService, *auth.TokenMaker) {
	tokens := auth.NewTokenMaker(config.Auth{
		Secret:        "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    time.Hour,
	})
	return NewAuthService(s.userRepo, tokens, bcrypt.MinCost, s.logger), tokens
}

func (s *ServiceSuite) TestRegisterAndLogin() {
	svc, tokens := s.authService()

	user, err := svc.Register(s.ctx, &dto.RegisterRequest{
		Email:     "  Ada@Example.com ",
		Password:  "correct horse",
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	s.Require().NoError(err)
	s.Equal("ada@example.com", user.Email)
	s.Equal(model.RoleCustomer, user.Role)
	s.NotEqual("correct horse", user.PasswordHash)

	_, err = svc.Register(s.ctx, &dto.RegisterRequest{Email: "ada@example.com", Password: "another one"})
	s.ErrorIs(err, ErrConflict)

	pair, err := svc.Login(s.ctx, &dto.LoginRequest{Email: "ADA@example.com", Password: "correct horse"})
	s.Require().NoError(err)
	claims, err := tokens.VerifyAccessToken(pair.AccessToken)
	s.Require().NoError(err)
	s.Equal(user.ID, claims.UserID)

	authenticated, err := svc.Authenticate(s.ctx, pair.AccessToken)
	s.Require().NoError(err)
	s.Equal(user.ID, authenticated.ID)

	_, err = svc.Authenticate(s.ctx, pair.RefreshToken)
	s.ErrorIs(err, ErrUnauthenticated)

	access, err := svc.Refresh(s.ctx, pair.RefreshToken)
	s.Require().NoError(err)
	s.NotEmpty(access)

	_, err = svc.Refresh(s.ctx, pair.AccessToken)
	s.ErrorIs(err, ErrInvalidCredentials)
	_, err = svc.Refresh(s.ctx, "")
	s.ErrorIs(err, ErrInvalidCredentials)
}

func (s *ServiceSuite) TestLoginFailures() {
	svc, _ := s.authService()
	_, err := svc.Register(s.ctx, &dto.RegisterRequest{Email: "ada@example.com", Password: "correct horse"})
	s.Require().NoError(err)

	_, err = svc.Login(s.ctx, &dto.LoginRequest{Email: "ada@example.com", Password: "wrong password"})
	s.ErrorIs(err, ErrInvalidCredentials)

	_, err = svc.Login(s.ctx, &dto.LoginRequest{Email: "nobody@example.com", Password: "correct horse"})
	s.ErrorIs(err, ErrInvalidCredentials)
}

func (s *ServiceSuite) TestRegisterValidation() {
	svc, _ := s.authService()

	_, err := svc.Register(s.ctx, &dto.RegisterRequest{Email: "not-an-email", Password: "correct horse"})
	s.ErrorIs(err, ErrInvalidInput)

	_, err = svc.Register(s.ctx, &dto.RegisterRequest{Email: "ada@example.com", Password: "short"})
	s.ErrorIs(err, ErrInvalidInput)
}

func (s *ServiceSuite) TestSeedAdmin() {
	svc, _ := s.authService()

	s.Require().NoError(svc.SeedAdmin(s.ctx, "", ""))

	s.Require().NoError(svc.SeedAdmin(s.ctx, "root@example.com", "admin-password"))
	s.Require().NoError(svc.SeedAdmin(s.ctx, "root@example.com", "admin-password"))

	users, err := svc.ListUsers(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 1)
	s.Equal(model.RoleAdmin, users[0].Role)

	_, err = svc.Login(s.ctx, &dto.LoginRequest{Email: "root@example.com", Password: "admin-password"})
	s.NoError(err)

	customer := s.createUser("promote@example.com", model.RoleCustomer)
	s.Require().NoError(svc.SeedAdmin(s.ctx, customer.Email, "whatever-pass"))
	promoted, err := s.userRepo.FindByID(s.ctx, customer.ID)
	s.Require().NoError(err)
	s.Equal(model.RoleAdmin, promoted.Role)
}

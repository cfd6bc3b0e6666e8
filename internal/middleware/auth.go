package middleware

import (
	"fmt"
	"strings"

	"storefront-api/internal/model"
	"storefront-api/internal/service"

	"github.com/labstack/echo/v4"
)

const userContextKey = "user"

// Authenticate resolves the bearer token to a stored user and puts it on the
// echo context for CurrentUser.
func Authenticate(authService service.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return err
			}

			user, err := authService.Authenticate(c.Request().Context(), token)
			if err != nil {
				return err
			}

			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

// RequireRole must run after Authenticate.
func RequireRole(role model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := CurrentUser(c)
			if err != nil {
				return err
			}
			if !user.Role.Satisfies(role) {
				return fmt.Errorf("%w: %s role required", service.ErrForbidden, role)
			}
			return next(c)
		}
	}
}

func CurrentUser(c echo.Context) (*model.User, error) {
	user, ok := c.Get(userContextKey).(*model.User)
	if !ok || user == nil {
		return nil, fmt.Errorf("%w: no user on request", service.ErrUnauthenticated)
	}
	return user, nil
}

func bearerToken(header string) (string, error) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: missing bearer token", service.ErrUnauthenticated)
	}
	return strings.TrimSpace(token), nil
}

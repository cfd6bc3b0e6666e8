package handler

import (
	"net/http"
	"time"

	"storefront-api/internal/dto"
	"storefront-api/internal/service"

	"github.com/labstack/echo/v4"
)

const refreshTokenCookie = "refreshToken"

type UserHandler struct {
	authService  service.AuthService
	secureCookie bool
	refreshTTL   time.Duration
}

func NewUserHandler(authService service.AuthService, secureCookie bool, refreshTTL time.Duration) *UserHandler {
	return &UserHandler{
		authService:  authService,
		secureCookie: secureCookie,
		refreshTTL:   refreshTTL,
	}
}

func (h *UserHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	user, err := h.authService.Register(ctx, &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"user": user,
	})
}

func (h *UserHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.LoginRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	tokens, err := h.authService.Login(ctx, &req)
	if err != nil {
		return err
	}

	c.SetCookie(h.refreshCookie(tokens.RefreshToken, h.refreshTTL))
	return c.JSON(http.StatusOK, dto.AccessTokenResponse{AccessToken: tokens.AccessToken})
}

func (h *UserHandler) Logout(c echo.Context) error {
	c.SetCookie(h.refreshCookie("", -1))
	return c.NoContent(http.StatusNoContent)
}

func (h *UserHandler) RefreshToken(c echo.Context) error {
	ctx := c.Request().Context()

	var token string
	if cookie, err := c.Cookie(refreshTokenCookie); err == nil {
		token = cookie.Value
	}

	accessToken, err := h.authService.Refresh(ctx, token)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.AccessTokenResponse{AccessToken: accessToken})
}

func (h *UserHandler) ListUsers(c echo.Context) error {
	ctx := c.Request().Context()

	users, err := h.authService.ListUsers(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, users)
}

// refreshCookie builds the httpOnly refresh cookie. A negative ttl clears it.
func (h *UserHandler) refreshCookie(value string, ttl time.Duration) *http.Cookie {
	cookie := &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl < 0 {
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
	} else {
		cookie.MaxAge = int(ttl.Seconds())
	}
	return cookie
}

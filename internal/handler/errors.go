package handler

import (
	"errors"
	"fmt"
	"net/http"

	"storefront-api/internal/dto"
	"storefront-api/internal/service"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{service.ErrNotFound, http.StatusNotFound},
	{service.ErrInsufficientStock, http.StatusConflict},
	{service.ErrUnauthorized, http.StatusForbidden},
	{service.ErrUnauthenticated, http.StatusUnauthorized},
	{service.ErrForbidden, http.StatusForbidden},
	{service.ErrInvalidSignature, http.StatusBadRequest},
	{service.ErrInvalidCredentials, http.StatusUnauthorized},
	{service.ErrInvalidInput, http.StatusBadRequest},
	{service.ErrConflict, http.StatusConflict},
	{service.ErrInvalidStatusTransition, http.StatusConflict},
}

func statusFor(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// HTTPErrorHandler renders every error as {"message": ...}. Server errors are
// logged and their details kept from the client.
func HTTPErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := statusFor(err)
		message := err.Error()

		var he *echo.HTTPError
		if errors.As(err, &he) {
			message = fmt.Sprint(he.Message)
		}

		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
				zap.Error(err))
			message = http.StatusText(status)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, dto.MessageResponse{Message: message})
		}
		if writeErr != nil {
			logger.Error("write error response", zap.Error(writeErr))
		}
	}
}

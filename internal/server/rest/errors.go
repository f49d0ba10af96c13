package rest

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/gatherer/internal/common"
	"github.com/dmitrijs2005/gatherer/internal/server/services"
	"github.com/labstack/echo/v4"
)

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func detail(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"detail": msg})
}

func fieldErrors(c echo.Context, errs ...fieldError) error {
	return c.JSON(http.StatusBadRequest, map[string][]fieldError{"errors": errs})
}

// writeError maps a service error to a status and one of the error bodies
// clients decode.
func (s *Server) writeError(c echo.Context, err error) error {
	var fe *services.FieldError
	switch {
	case errors.As(err, &fe):
		return fieldErrors(c, fieldError{Field: fe.Field, Message: fe.Message})
	case errors.Is(err, common.ErrorValidation):
		return detail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrRefreshTokenExpired):
		return detail(c, http.StatusUnauthorized, common.ErrRefreshTokenExpired.Error())
	case errors.Is(err, common.ErrorUnauthorized):
		return detail(c, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, common.ErrorNotFound):
		return detail(c, http.StatusNotFound, "not found")
	}

	s.logger.Error(c.Request().Context(), "request failed",
		"path", c.Request().URL.Path, "error", err.Error())
	return detail(c, http.StatusInternalServerError, common.ErrorInternal.Error())
}

// httpErrorHandler renders echo's own errors (unknown route, bad method,
// recovered panics) as {"detail": ...}.
func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	msg := common.ErrorInternal.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		msg = fmt.Sprint(he.Message)
	} else {
		s.logger.Error(c.Request().Context(), "unhandled error", "error", err.Error())
	}

	if err := detail(c, status, msg); err != nil {
		s.logger.Error(c.Request().Context(), "write error response", "error", err.Error())
	}
}

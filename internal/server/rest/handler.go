package rest

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gatherer/internal/common"
	"github.com/dmitrijs2005/gatherer/internal/server/models"
	"github.com/labstack/echo/v4"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type uploadURLRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Hash        string `json:"hash"`
}

type downloadURLRequest struct {
	URL string `json:"url"`
}

func (s *Server) ping(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "OK"})
}

func (s *Server) login(c echo.Context) error {
	ctx := c.Request().Context()

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "malformed request body")
	}

	var errs []fieldError
	if strings.TrimSpace(req.Username) == "" {
		errs = append(errs, fieldError{Field: "username", Message: "username is required"})
	}
	if req.Password == "" {
		errs = append(errs, fieldError{Field: "password", Message: "password is required"})
	}
	if len(errs) > 0 {
		return fieldErrors(c, errs...)
	}

	pair, err := s.users.Login(ctx, strings.TrimSpace(req.Username), []byte(req.Password))
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			s.logger.Info(ctx, "Login failed", "username", req.Username)
			return detail(c, http.StatusUnauthorized, "invalid username or password")
		}
		return s.writeError(c, err)
	}

	s.logger.Info(ctx, "Logged in", "username", req.Username)
	return c.JSON(http.StatusOK, pair)
}

func (s *Server) refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return fieldErrors(c, fieldError{Field: "refresh_token", Message: "refresh token is required"})
	}

	pair, err := s.users.RefreshToken(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, pair)
}

func (s *Server) logout(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return fieldErrors(c, fieldError{Field: "refresh_token", Message: "refresh token is required"})
	}

	if err := s.users.Logout(c.Request().Context(), req.RefreshToken); err != nil {
		return s.writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) uploadURL(c echo.Context) error {
	ctx := c.Request().Context()

	var req uploadURLRequest
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "malformed request body")
	}

	target, err := s.storage.SignUpload(ctx, req.FileName, req.ContentType, req.Hash)
	if err != nil {
		return s.writeError(c, err)
	}

	s.logger.Debug(ctx, "upload signed", "user", userID(c), "file", req.FileName, "key", target.Fields["key"])
	return c.JSON(http.StatusOK, target)
}

func (s *Server) downloadURL(c echo.Context) error {
	var req downloadURLRequest
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "malformed request body")
	}
	if req.URL == "" {
		return fieldErrors(c, fieldError{Field: "url", Message: "url is required"})
	}

	u, err := s.storage.SignDownload(c.Request().Context(), req.URL)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"url": u})
}

func (s *Server) states(c echo.Context) error {
	locs, err := s.directory.States(c.Request().Context())
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, locs)
}

// children lists level entries under the parent code passed in param.
func (s *Server) children(level models.Level, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := c.QueryParam(param)
		parent, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fieldErrors(c, fieldError{Field: param, Message: "must be a number"})
		}

		locs, err := s.directory.Children(c.Request().Context(), level, parent)
		if err != nil {
			return s.writeError(c, err)
		}
		return c.JSON(http.StatusOK, locs)
	}
}

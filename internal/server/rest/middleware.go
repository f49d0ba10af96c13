package rest

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/gatherer/internal/common"
	"github.com/labstack/echo/v4"
)

const userIDKey = "userID"

// accessTokenMiddleware requires a valid bearer token. An expired token is
// reported as "token expired" so clients know to refresh.
func (s *Server) accessTokenMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(common.AuthorizationHeaderName)
		token, ok := strings.CutPrefix(header, common.BearerPrefix)
		if !ok || strings.TrimSpace(token) == "" {
			return detail(c, http.StatusUnauthorized, "missing token")
		}

		userID, err := s.users.UserIDFromAccessToken(strings.TrimSpace(token))
		if err != nil {
			if errors.Is(err, common.ErrTokenExpired) {
				return detail(c, http.StatusUnauthorized, common.ErrTokenExpired.Error())
			}
			return detail(c, http.StatusUnauthorized, common.ErrInvalidToken.Error())
		}

		c.Set(userIDKey, userID)
		return next(c)
	}
}

func userID(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}

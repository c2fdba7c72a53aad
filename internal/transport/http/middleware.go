package http

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/macroforge/license-backend/internal/domain"
	"github.com/macroforge/license-backend/internal/service"
	"github.com/macroforge/license-backend/internal/util"
)

const (
	contextSessionKey = "license.session"
	contextAdminKey   = "admin.claims"
)

// deniedMessage is what every rejected client sees, regardless of the actual
// deny reason. The reason goes to the server log only.
const deniedMessage = "session invalid, please log in again"

func bearerToken(c echo.Context) (string, bool) {
	authHeader := c.Request().Header.Get("Authorization")
	if strings.TrimSpace(authHeader) == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// RequireLicense validates the bearer session token on every request. A store
// outage is reported as 503 so clients keep their token and retry; every
// other failure gets the uniform 401.
func RequireLicense(licenses *service.LicenseService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, util.Error(deniedMessage))
			}
			session, err := licenses.Validate(c.Request().Context(), token)
			if err != nil {
				if errors.Is(err, service.ErrStoreUnavailable) {
					return c.JSON(http.StatusServiceUnavailable, util.Error("validation temporarily unavailable"))
				}
				log.Printf("license: denied request %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
				return c.JSON(http.StatusUnauthorized, util.Error(deniedMessage))
			}
			c.Set(contextSessionKey, session)
			return next(c)
		}
	}
}

func RequireAdmin(tokens *util.JWTManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, util.Error("missing authorization header"))
			}
			claims, err := tokens.Parse(token)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, util.Error("invalid admin token"))
			}
			c.Set(contextAdminKey, claims)
			return next(c)
		}
	}
}

func CurrentSession(c echo.Context) (*domain.Session, bool) {
	session, ok := c.Get(contextSessionKey).(*domain.Session)
	return session, ok
}

func CurrentAdmin(c echo.Context) (*util.AdminClaims, bool) {
	claims, ok := c.Get(contextAdminKey).(*util.AdminClaims)
	return claims, ok
}

package http

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/macroforge/license-backend/internal/service"
	"github.com/macroforge/license-backend/internal/util"
)

type LicenseHandler struct {
	licenses *service.LicenseService
}

func RegisterLicense(e *echo.Echo, licenses *service.LicenseService) {
	handler := &LicenseHandler{licenses: licenses}

	group := e.Group("/v1/license")

	// Login is the only endpoint reachable with just a license key, so it is
	// the one worth brute-forcing.
	loginLimiter := middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStore(5),
	})

	group.POST("/login", handler.login, loginLimiter)
	group.POST("/validate", handler.validate)
	group.POST("/logout", handler.logout)
	group.GET("/session", handler.session, RequireLicense(licenses))
}

func (h *LicenseHandler) login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	if strings.TrimSpace(req.LicenseKey) == "" {
		return c.JSON(http.StatusBadRequest, util.Error("license_key is required"))
	}

	fingerprint := strings.TrimSpace(req.ClientFingerprint)
	if fingerprint == "" {
		fingerprint = c.RealIP()
	}

	session, err := h.licenses.IssueSession(c.Request().Context(), req.LicenseKey, fingerprint)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAccountNotFound):
			return c.JSON(http.StatusUnauthorized, util.Error("invalid license key"))
		case errors.Is(err, service.ErrAccountDisabled):
			return c.JSON(http.StatusForbidden, util.Error("account disabled"))
		case errors.Is(err, service.ErrAccountExpired):
			return c.JSON(http.StatusForbidden, util.Error("license expired"))
		case errors.Is(err, service.ErrStoreUnavailable):
			return c.JSON(http.StatusServiceUnavailable, util.Error("login temporarily unavailable"))
		default:
			c.Logger().Errorf("login: %v", err)
			return c.JSON(http.StatusInternalServerError, util.Error("unable to log in"))
		}
	}

	return c.JSON(http.StatusOK, util.Envelope{
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
	})
}

func (h *LicenseHandler) validate(c echo.Context) error {
	token, ok := bearerToken(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error(deniedMessage))
	}

	session, err := h.licenses.Validate(c.Request().Context(), token)
	if err != nil {
		if errors.Is(err, service.ErrStoreUnavailable) {
			return c.JSON(http.StatusServiceUnavailable, util.Error("validation temporarily unavailable"))
		}
		log.Printf("license: validation denied: %v", err)
		return c.JSON(http.StatusUnauthorized, util.Error(deniedMessage))
	}

	return c.JSON(http.StatusOK, util.Envelope{
		"valid":      true,
		"expires_at": session.ExpiresAt,
	})
}

func (h *LicenseHandler) logout(c echo.Context) error {
	token, ok := bearerToken(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, util.Error("missing authorization header"))
	}
	if err := h.licenses.Logout(c.Request().Context(), token); err != nil {
		if errors.Is(err, service.ErrStoreUnavailable) {
			return c.JSON(http.StatusServiceUnavailable, util.Error("logout temporarily unavailable"))
		}
		c.Logger().Errorf("logout: %v", err)
		return c.JSON(http.StatusInternalServerError, util.Error("unable to log out"))
	}
	return c.JSON(http.StatusOK, util.Envelope{"success": true})
}

func (h *LicenseHandler) session(c echo.Context) error {
	session, ok := CurrentSession(c)
	if !ok || session == nil {
		return c.JSON(http.StatusUnauthorized, util.Error(deniedMessage))
	}
	return c.JSON(http.StatusOK, util.Envelope{"session": buildSessionResponse(session)})
}

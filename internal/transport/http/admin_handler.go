package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/macroforge/license-backend/internal/service"
	"github.com/macroforge/license-backend/internal/util"
)

type AdminHandler struct {
	admin  *service.AdminService
	tokens *util.JWTManager
}

func RegisterAdmin(e *echo.Echo, admin *service.AdminService, tokens *util.JWTManager) {
	handler := &AdminHandler{admin: admin, tokens: tokens}

	e.POST("/v1/admin/login", handler.login)
	e.POST("/v1/admin/login/google", handler.loginWithGoogle)

	group := e.Group("/v1/admin", RequireAdmin(tokens))
	group.POST("/admins", handler.createAdmin)
	group.POST("/accounts", handler.createAccount)
	group.GET("/accounts", handler.listAccounts)
	group.GET("/accounts/:key", handler.getAccount)
	group.PUT("/accounts/:key/active", handler.setAccountActive)
	group.PUT("/accounts/:key/expiry", handler.setAccountExpiry)
	group.DELETE("/accounts/:key", handler.deleteAccount)
	group.POST("/accounts/:key/terminate-sessions", handler.terminateSessions)
	group.POST("/accounts/import", handler.importAccounts)
}

func (h *AdminHandler) login(c echo.Context) error {
	var req AdminLoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	result, err := h.admin.LoginWithEmail(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return h.writeAdminError(c, err)
	}
	return c.JSON(http.StatusOK, util.Envelope{
		"token":      result.Token,
		"expires_at": result.ExpiresAt,
		"email":      result.Admin.Email,
	})
}

func (h *AdminHandler) loginWithGoogle(c echo.Context) error {
	var req AdminGoogleLoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	if strings.TrimSpace(req.IDToken) == "" {
		return c.JSON(http.StatusBadRequest, util.Error("id_token is required"))
	}

	result, err := h.admin.LoginWithGoogle(c.Request().Context(), req.IDToken)
	if err != nil {
		return h.writeAdminError(c, err)
	}
	return c.JSON(http.StatusOK, util.Envelope{
		"token":      result.Token,
		"expires_at": result.ExpiresAt,
		"email":      result.Admin.Email,
	})
}

func (h *AdminHandler) createAdmin(c echo.Context) error {
	var req AdminCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	admin, err := h.admin.CreateAdminUser(c.Request().Context(), req.Email, req.FullName, req.Password)
	if err != nil {
		return h.writeAdminError(c, err)
	}
	return c.JSON(http.StatusCreated, util.Envelope{
		"id":    admin.ID,
		"email": admin.Email,
	})
}

func (h *AdminHandler) createAccount(c echo.Context) error {
	var req AccountCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	account, licenseKey, err := h.admin.CreateAccount(c.Request().Context(), service.AccountCreateInput{
		DisplayName: req.DisplayName,
		Email:       req.Email,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		return h.writeAdminError(c, err)
	}
	return c.JSON(http.StatusCreated, util.Envelope{
		"account":     buildAccountResponse(account),
		"license_key": licenseKey,
	})
}

func (h *AdminHandler) listAccounts(c echo.Context) error {
	limit := parseIntQuery(c, "limit", 50)
	offset := parseIntQuery(c, "offset", 0)

	accounts, err := h.admin.ListAccounts(c.Request().Context(), limit, offset)
	if err != nil {
		return h.writeAdminError(c, err)
	}

	responses := make([]AccountResponse, 0, len(accounts))
	for i := range accounts {
		responses = append(responses, buildAccountResponse(&accounts[i]))
	}
	return c.JSON(http.StatusOK, util.Envelope{
		"accounts": responses,
		"meta": echo.Map{
			"limit":  limit,
			"offset": offset,
			"count":  len(responses),
		},
	})
}

func (h *AdminHandler) getAccount(c echo.Context) error {
	account, err := h.admin.GetAccount(c.Request().Context(), c.Param("key"))
	if err != nil {
		return h.writeAdminError(c, err)
	}
	return c.JSON(http.StatusOK, util.Envelope{"account": buildAccountResponse(account)})
}

func (h *AdminHandler) setAccountActive(c echo.Context) error {
	var req AccountActiveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	account, err := h.admin.SetAccountActive(c.Request().Context(), c.Param("key"), req.Active)
	if err != nil {
		return h.writeAdminError(c, err)
	}
	return c.JSON(http.StatusOK, util.Envelope{"account": buildAccountResponse(account)})
}

func (h *AdminHandler) setAccountExpiry(c echo.Context) error {
	var req AccountExpiryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	account, err := h.admin.ExtendAccount(c.Request().Context(), c.Param("key"), req.ExpiresAt)
	if err != nil {
		return h.writeAdminError(c, err)
	}
	return c.JSON(http.StatusOK, util.Envelope{"account": buildAccountResponse(account)})
}

func (h *AdminHandler) deleteAccount(c echo.Context) error {
	if err := h.admin.DeleteAccount(c.Request().Context(), c.Param("key")); err != nil {
		return h.writeAdminError(c, err)
	}
	return c.JSON(http.StatusOK, util.Envelope{"success": true})
}

func (h *AdminHandler) terminateSessions(c echo.Context) error {
	count, err := h.admin.TerminateSessions(c.Request().Context(), c.Param("key"))
	if err != nil {
		return h.writeAdminError(c, err)
	}
	return c.JSON(http.StatusOK, util.Envelope{"terminated": count})
}

func (h *AdminHandler) importAccounts(c echo.Context) error {
	contents, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("unable to read import body"))
	}

	dryRun, _ := strconv.ParseBool(c.QueryParam("dry_run"))
	result, err := h.admin.ImportAccounts(c.Request().Context(), contents, dryRun)
	if err != nil {
		return h.writeAdminError(c, err)
	}
	return c.JSON(http.StatusOK, util.Envelope{"import": result})
}

func (h *AdminHandler) writeAdminError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrAdminInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, util.Error("invalid credentials"))
	case errors.Is(err, service.ErrAccountNotFound):
		return c.JSON(http.StatusNotFound, util.Error("account not found"))
	case errors.Is(err, service.ErrAccountExists), errors.Is(err, service.ErrAdminExists):
		return c.JSON(http.StatusConflict, util.Error(err.Error()))
	case errors.Is(err, service.ErrImportEmpty), errors.Is(err, service.ErrImportTooLarge):
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	case errors.Is(err, service.ErrStoreUnavailable):
		return c.JSON(http.StatusServiceUnavailable, util.Error("temporarily unavailable"))
	default:
		c.Logger().Errorf("admin: %v", err)
		return c.JSON(http.StatusInternalServerError, util.Error("internal error"))
	}
}

func parseIntQuery(c echo.Context, name string, fallback int) int {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

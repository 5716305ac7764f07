package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lang-learner-backend/internal/model"
	"github.com/iliyamo/lang-learner-backend/internal/service"
	"github.com/iliyamo/lang-learner-backend/internal/utils"
)

// requestTimeout bounds the store work done for one request.
const requestTimeout = 5 * time.Second

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Auth *service.AuthService
	Log  *slog.Logger
}

func NewAuthHandler(auth *service.AuthService, log *slog.Logger) *AuthHandler {
	return &AuthHandler{Auth: auth, Log: log}
}

// ----- DTOs -----

type registerReq struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Language string `json:"language"`
}

// loginReq is accepted from the JSON body, the query string, or both. Body
// fields win when both are present.
type loginReq struct {
	Login    string `json:"login" query:"login"`
	Password string `json:"password" query:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResp struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type meResp struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language"`
}

// Register: create the account. No tokens are returned; clients log in next.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	err := h.Auth.Register(ctx, model.RegistrationRequest{
		Login:      req.Login,
		Password:   req.Password,
		Name:       req.Name,
		LocaleCode: req.Language,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusCreated)
}

// Login: verify credentials and return a fresh token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	b := &echo.DefaultBinder{}
	if err := b.BindQueryParams(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid query"})
	}
	if err := b.BindBody(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	pair, err := h.Auth.Authenticate(ctx, model.LoginRequest{Login: req.Login, Password: req.Password})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, tokenResp{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// Refresh: exchange a refresh token for a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	pair, err := h.Auth.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, tokenResp{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// Me: protected endpoint echoing the access token's account.
func (h *AuthHandler) Me(c echo.Context) error {
	claims, ok := c.Get("claims").(*utils.SessionClaims)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, meResp{
		ID:       claims.AccountID,
		Name:     claims.DisplayName,
		Language: claims.Locale.String(),
	})
}

// fail maps a service error to its status. Only the classification is sent;
// the detail stays in the logs.
func (h *AuthHandler) fail(c echo.Context, err error) error {
	status, class := classify(err)
	if status >= http.StatusInternalServerError {
		h.Log.ErrorContext(c.Request().Context(), "auth request failed",
			"path", c.Path(), "status", status, "error", err)
	}
	return c.JSON(status, echo.Map{"error": class})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, service.ErrMalformedRequest):
		return http.StatusBadRequest, "malformed_request"
	case errors.Is(err, service.ErrAmbiguousAccount):
		return http.StatusBadRequest, "ambiguous_account"
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, service.ErrPersistence):
		return http.StatusInternalServerError, "persistence_error"
	case errors.Is(err, service.ErrTokenIssue):
		return http.StatusInternalServerError, "token_error"
	}
	return http.StatusInternalServerError, "internal_error"
}

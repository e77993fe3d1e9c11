package httpserver

import (
	"net/http"
	"time"

	"github.com/Skotchmaster/group_buy/internal/service"
	"github.com/Skotchmaster/group_buy/internal/transport"
	jwthelp "github.com/Skotchmaster/group_buy/pkg/jwt"
	"github.com/Skotchmaster/group_buy/pkg/logging"
	authmw "github.com/Skotchmaster/group_buy/pkg/middleware/auth"
	"github.com/Skotchmaster/group_buy/pkg/tokens"
	"github.com/labstack/echo/v4"
)

type AuthHTTP struct {
	Svc          *service.AuthService
	SecureCookie bool
}

type sessionResponse struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

func (h *AuthHTTP) setSession(c echo.Context, p tokens.Pair) sessionResponse {
	c.SetCookie(jwthelp.CreateCookie(jwthelp.AccessCookie, p.AccessToken, "/", p.AccessExp, h.SecureCookie))
	c.SetCookie(jwthelp.CreateCookie(jwthelp.RefreshCookie, p.RefreshToken, "/", p.RefreshExp, h.SecureCookie))
	return sessionResponse{
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		AccessExpiresAt:  p.AccessExp,
		RefreshExpiresAt: p.RefreshExp,
	}
}

// refreshToken prefers the cookie over the request body.
func refreshToken(c echo.Context) string {
	if ck, err := c.Cookie(jwthelp.RefreshCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	var req transport.RefreshRequest
	if err := c.Bind(&req); err != nil {
		return ""
	}
	return req.RefreshToken
}

func (h *AuthHTTP) SignUp(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.signup")

	var req transport.SignUpRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "signup_error", "invalid body", err)
	}

	res, err := h.Svc.SignUp(ctx, service.SignUpInput{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
		FullName: req.FullName,
		Phone:    req.Phone,
	})
	if err != nil {
		return fail(l, "signup_error", err)
	}

	l.Info("signup_success", "user_id", res.User.ID)
	return c.JSON(http.StatusCreated, echo.Map{
		"user":    res.User,
		"profile": res.Profile,
		"session": h.setSession(c, res.Pair),
	})
}

func (h *AuthHTTP) SignIn(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.signin")

	var req transport.SignInRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "signin_error", "invalid body", err)
	}

	res, err := h.Svc.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		return fail(l, "signin_error", err)
	}

	l.Info("signin_success", "user_id", res.User.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"user":    res.User,
		"profile": res.Profile,
		"session": h.setSession(c, res.Pair),
	})
}

func (h *AuthHTTP) SignOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.signout")

	err := h.Svc.SignOut(ctx, refreshToken(c))
	authmw.ClearAuthCookies(c, h.SecureCookie)
	if err != nil {
		return fail(l, "signout_error", err)
	}

	l.Info("signout_success")
	return c.JSON(http.StatusOK, echo.Map{"message": "signed out"})
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.refresh")

	res, err := h.Svc.Refresh(ctx, refreshToken(c))
	if err != nil {
		authmw.ClearAuthCookies(c, h.SecureCookie)
		return fail(l, "refresh_error", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user":    res.User,
		"session": h.setSession(c, res.Pair),
	})
}

func (h *AuthHTTP) Session(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.session")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	st, err := h.Svc.CurrentSession(ctx, userID)
	if err != nil {
		return fail(l, "session_error", err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *AuthHTTP) UpdatePassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.update_password")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req transport.UpdatePasswordRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_password_error", "invalid body", err)
	}
	if err := h.Svc.UpdatePassword(ctx, userID, req.Password); err != nil {
		return fail(l, "update_password_error", err)
	}

	l.Info("update_password_success", "user_id", userID)
	return c.NoContent(http.StatusNoContent)
}

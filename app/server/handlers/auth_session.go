package handlers

import (
	"alumni-network/app/server/constants"
	"alumni-network/app/server/envelope"
	"alumni-network/app/server/metrics"
	"alumni-network/app/server/middlewares"
	"alumni-network/app/server/principals"
	"crypto/subtle"
	"errors"
	"github.com/alexedwards/argon2id"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"net/http"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *App) Login(c echo.Context) error {
	rctx := c.Request().Context()

	// 绑定请求体
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return envelope.Validation("Invalid request body")
	}
	email := principals.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return envelope.Validation("Email and password are required")
	}

	// 在成员和管理员中查找
	p, store, err := a.dir.FindByEmail(rctx, email)
	if err != nil {
		if errors.Is(err, principals.ErrNotFound) {
			a.mtr.Login(rctx, "unknown", metrics.OutcomeFailure)
			return envelope.NotFound("Invalid email or password")
		}
		a.l.Error("failed to find principal", zap.String("email", email), zap.Error(err))
		return envelope.Internal("Failed to log in", err)
	}
	kind := string(p.PrincipalKind())

	// 校验密码
	if match, err := argon2id.ComparePasswordAndHash(req.Password, p.Credentials().Password); err != nil {
		a.l.Error("failed to compare password", zap.String("id", p.PrincipalID().String()), zap.Error(err))
		return envelope.Internal("Failed to log in", err)
	} else if !match {
		a.mtr.Login(rctx, kind, metrics.OutcomeFailure)
		return envelope.Unauthorized("Invalid email or password")
	}

	// 签发令牌
	tokens, err := a.issueTokens(p)
	if err != nil {
		a.l.Error("failed to issue tokens", zap.String("id", p.PrincipalID().String()), zap.Error(err))
		return envelope.Internal("Failed to issue tokens", err)
	}

	// 覆盖之前的刷新令牌，旧会话随之失效
	if err = store.SetRefreshToken(rctx, p.PrincipalID(), &tokens.RefreshToken); err != nil {
		a.l.Error("failed to save refresh token", zap.String("id", p.PrincipalID().String()), zap.Error(err))
		return envelope.Internal("Failed to log in", err)
	}

	a.setTokenCookies(c, tokens)
	a.mtr.Login(rctx, kind, metrics.OutcomeSuccess)

	return envelope.OK(c, http.StatusOK, withKind(p, map[string]interface{}{
		"accessToken":  tokens.AccessToken,
		"refreshToken": tokens.RefreshToken,
	}), "Logged in successfully")
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
	Token        string `json:"token"`
}

// presentedRefreshToken 依次从 cookie 和请求体中提取
func presentedRefreshToken(c echo.Context) string {
	if cookie, err := c.Cookie(constants.CookieRefreshToken); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return ""
	}
	if req.RefreshToken != "" {
		return req.RefreshToken
	}
	return req.Token
}

func (a *App) RefreshToken(c echo.Context) error {
	rctx := c.Request().Context()

	// 提取 token
	token := presentedRefreshToken(c)
	if token == "" {
		return envelope.Unauthorized("Refresh token is required")
	}

	// 过期和格式错误不做区分
	claims, err := a.jwt.ParseRefresh(token)
	if err != nil {
		a.mtr.Refresh(rctx, "unknown", metrics.OutcomeFailure)
		return envelope.Unauthorized("Invalid refresh token")
	}

	p, store, err := a.dir.FindByID(rctx, claims.ID)
	if err != nil {
		if errors.Is(err, principals.ErrNotFound) {
			a.mtr.Refresh(rctx, "unknown", metrics.OutcomeFailure)
			return envelope.Unauthorized("Invalid refresh token")
		}
		a.l.Error("failed to find principal", zap.String("id", claims.ID.String()), zap.Error(err))
		return envelope.Internal("Failed to refresh token", err)
	}
	kind := string(p.PrincipalKind())

	// 必须是当前保存的那一个，注销或者被轮换掉的都不行
	stored := p.Credentials().RefreshToken
	if stored == nil || subtle.ConstantTimeCompare([]byte(*stored), []byte(token)) != 1 {
		a.mtr.Refresh(rctx, kind, metrics.OutcomeFailure)
		return envelope.Unauthorized("Refresh token has been revoked")
	}

	tokens, err := a.issueTokens(p)
	if err != nil {
		a.l.Error("failed to issue tokens", zap.String("id", p.PrincipalID().String()), zap.Error(err))
		return envelope.Internal("Failed to issue tokens", err)
	}

	// 比较并交换，并发的刷新请求只有一个能成功
	swapped, err := store.SwapRefreshToken(rctx, p.PrincipalID(), token, tokens.RefreshToken)
	if err != nil {
		a.l.Error("failed to rotate refresh token", zap.String("id", p.PrincipalID().String()), zap.Error(err))
		return envelope.Internal("Failed to refresh token", err)
	} else if !swapped {
		a.mtr.Refresh(rctx, kind, metrics.OutcomeFailure)
		return envelope.Unauthorized("Refresh token has been revoked")
	}

	a.setTokenCookies(c, tokens)
	a.mtr.Refresh(rctx, kind, metrics.OutcomeSuccess)

	return envelope.OK(c, http.StatusOK, map[string]interface{}{
		"accessToken":  tokens.AccessToken,
		"refreshToken": tokens.RefreshToken,
		"userType":     p.PrincipalKind(),
	}, "Token refreshed successfully")
}

func (a *App) Logout(c echo.Context) error {
	p, ok := middlewares.PrincipalFromContext(c)
	if !ok {
		return envelope.Validation("No authenticated session")
	}

	rctx := c.Request().Context()

	store := a.dir.Store(p.PrincipalKind())
	if store == nil {
		return envelope.Validation("No authenticated session")
	}

	// 置空而不是空字符串，之后的比对一定失败
	if err := store.SetRefreshToken(rctx, p.PrincipalID(), nil); err != nil {
		if errors.Is(err, principals.ErrNotFound) {
			return envelope.Validation("No authenticated session")
		}
		a.l.Error("failed to clear refresh token", zap.String("id", p.PrincipalID().String()), zap.Error(err))
		return envelope.Internal("Failed to log out", err)
	}

	a.clearTokenCookies(c)

	return envelope.OK(c, http.StatusOK, nil, "Logged out successfully")
}

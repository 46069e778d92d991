package handlers

import (
	"alumni-network/app/server/constants"
	"alumni-network/app/server/models"
	"fmt"
	"github.com/labstack/echo/v4"
	"net/http"
	"time"
)

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (a *App) issueTokens(p models.Principal) (*tokenPair, error) {
	accessToken, err := a.jwt.SignAccess(p)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, err := a.jwt.SignRefresh(p)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &tokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (a *App) tokenCookie(name, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (a *App) setTokenCookies(c echo.Context, tokens *tokenPair) {
	c.SetCookie(a.tokenCookie(constants.CookieAccessToken, tokens.AccessToken, a.jwt.AccessExpiry()))
	c.SetCookie(a.tokenCookie(constants.CookieRefreshToken, tokens.RefreshToken, a.jwt.RefreshExpiry()))
}

func (a *App) clearTokenCookies(c echo.Context) {
	for _, name := range []string{constants.CookieAccessToken, constants.CookieRefreshToken} {
		cookie := a.tokenCookie(name, "", 0)
		cookie.MaxAge = -1
		c.SetCookie(cookie)
	}
}

// withKind 返回 {user|admin: p, userType: kind, ...}
func withKind(p models.Principal, extra map[string]interface{}) map[string]interface{} {
	data := map[string]interface{}{
		string(p.PrincipalKind()): p,
		"userType":                p.PrincipalKind(),
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}

package handlers

import (
	"alumni-network/app/server/envelope"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"net/http"
)

func (a *App) HealthCheck(c echo.Context) error {
	if err := a.rdb.Ping(c.Request().Context()).Err(); err != nil {
		a.l.Error("redis ping failed", zap.Error(err))
		return envelope.New(http.StatusServiceUnavailable, "Redis unavailable")
	}

	return envelope.OK(c, http.StatusOK, map[string]string{"status": "ok"}, "")
}

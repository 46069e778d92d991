package handlers

import (
	"alumni-network/app/server/envelope"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"net/http"
)

func (a *App) MetricsSnapshot(c echo.Context) error {
	snapshot, err := a.mp.Snapshot(c.Request().Context())
	if err != nil {
		a.l.Error("failed to collect metrics", zap.Error(err))
		return envelope.Internal("Failed to collect metrics", err)
	}

	return envelope.OK(c, http.StatusOK, snapshot, "Metrics collected successfully")
}

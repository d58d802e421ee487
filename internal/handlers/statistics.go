package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/ecommerce_backend/internal/logging"
	"github.com/Skotchmaster/ecommerce_backend/internal/service/stats"
)

type StatisticsHandler struct {
	Svc *stats.Service
}

func (h *StatisticsHandler) GetStatistics(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "statistics.get")

	result, err := h.Svc.Compute(ctx)
	if err != nil {
		l.Error("statistics_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot compute statistics")
	}

	return c.JSON(http.StatusOK, result)
}

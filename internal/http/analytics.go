package http

import (
	"net/http"
	"strconv"
	"time"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/omnidesk/inbox-gateway/internal/repository"
)

// analyticsHandler serves message volume rollups from the ClickHouse
// read side fed by the event archiver.
func analyticsHandler(events repository.CHEventsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		days := 30
		if v := c.QueryParam("days"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 365 {
				days = n
			}
		}
		since := time.Now().AddDate(0, 0, -days)
		ctx := c.Request().Context()

		byChannel, err := events.CountBy(ctx, "channel", since)
		if err != nil {
			log.Errorf("analytics by channel failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}
		byDirection, err := events.CountBy(ctx, "direction", since)
		if err != nil {
			log.Errorf("analytics by direction failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}
		byStatus, err := events.CountBy(ctx, "status", since)
		if err != nil {
			log.Errorf("analytics by status failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}
		perDay, err := events.PerDay(ctx, since)
		if err != nil {
			log.Errorf("analytics per day failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"days":         days,
			"by_channel":   byChannel,
			"by_direction": byDirection,
			"by_status":    byStatus,
			"per_day":      perDay,
		})
	}
}

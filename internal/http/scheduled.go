package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/omnidesk/inbox-gateway/internal/repository"
	"github.com/omnidesk/inbox-gateway/internal/service/scheduler"
)

func listScheduledHandler(sched *scheduler.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		msgs, err := sched.ListScheduled(c.Request().Context(), time.Now())
		if err != nil {
			log.Errorf("list scheduled failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}
		return c.JSON(http.StatusOK, map[string]any{
			"count":    len(msgs),
			"messages": msgs,
		})
	}
}

// cancelScheduledHandler cancels a message only while it is still
// scheduled; claimed or terminal messages are rejected with 409.
func cancelScheduledHandler(sched *scheduler.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := strings.TrimSpace(c.QueryParam("id"))
		if id == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "id required"})
		}

		msg, err := sched.Cancel(c.Request().Context(), id)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": "message not found"})
		case errors.Is(err, scheduler.ErrNotScheduled):
			return c.JSON(http.StatusConflict, map[string]string{"error": "message is not scheduled"})
		case err != nil:
			log.Errorf("cancel failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.JSON(http.StatusOK, map[string]any{"message": msg})
	}
}

// tickHandler triggers one scheduler pass. Intended for an external
// periodic trigger; when a cron secret is configured the bearer token
// must match.
func tickHandler(sched *scheduler.Service, cronSecret string) echo.HandlerFunc {
	return func(c echo.Context) error {
		if cronSecret != "" {
			auth := c.Request().Header.Get("Authorization")
			if auth != "Bearer "+cronSecret {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			}
		}

		processed, err := sched.Tick(c.Request().Context(), time.Now())
		if err != nil {
			log.Errorf("tick failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "tick failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"success":   true,
			"processed": processed,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

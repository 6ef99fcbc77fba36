package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/omnidesk/inbox-gateway/internal/http/middleware"
	"github.com/omnidesk/inbox-gateway/internal/model"
	"github.com/omnidesk/inbox-gateway/internal/repository"
	"github.com/omnidesk/inbox-gateway/internal/service/dispatch"
)

type sendReq struct {
	ContactID    string `json:"contact_id"`
	Channel      string `json:"channel"`
	Content      string `json:"content"`
	MediaURL     string `json:"media_url"`
	ScheduledFor string `json:"scheduled_for"` // RFC 3339, optional
}

// sendMessageHandler is the "send or schedule" operation. The response
// always carries the created message with its true resulting status; a
// provider failure shows up as status=failed, not as an HTTP error.
func sendMessageHandler(dispatcher *dispatch.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req sendReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		req.ContactID = strings.TrimSpace(req.ContactID)
		if req.ContactID == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "contact_id required"})
		}

		ch, ok := model.ParseChannel(req.Channel)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid channel"})
		}

		var scheduledFor *time.Time
		if s := strings.TrimSpace(req.ScheduledFor); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid scheduled_for"})
			}
			scheduledFor = &t
		}

		agentID, _ := middleware.AgentIDFromCtx(c)

		msg, err := dispatcher.Send(c.Request().Context(), dispatch.SendRequest{
			ContactID:    req.ContactID,
			Channel:      ch,
			Content:      req.Content,
			MediaURL:     strings.TrimSpace(req.MediaURL),
			ScheduledFor: scheduledFor,
			SentBy:       agentID,
		})
		if err != nil {
			switch {
			case errors.Is(err, repository.ErrNotFound):
				return c.JSON(http.StatusNotFound, map[string]string{"error": "contact not found"})
			case errors.Is(err, dispatch.ErrUnknownChannel), errors.Is(err, dispatch.ErrEmptyContent):
				return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
			default:
				log.Errorf("send failed: %v", err)
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
			}
		}

		return c.JSON(http.StatusOK, map[string]any{"message": msg})
	}
}

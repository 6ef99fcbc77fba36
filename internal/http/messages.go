package http

import (
	"net/http"
	"strconv"
	"strings"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/omnidesk/inbox-gateway/internal/model"
	"github.com/omnidesk/inbox-gateway/internal/repository"
)

func listMessagesHandler(messages repository.MessagesRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		f := repository.MessageFilter{
			ContactID: strings.TrimSpace(c.QueryParam("contactId")),
			Limit:     50,
		}
		if raw := strings.TrimSpace(c.QueryParam("channel")); raw != "" {
			ch, ok := model.ParseChannel(raw)
			if !ok {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid channel"})
			}
			f.Channel = ch
		}
		if v := c.QueryParam("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				f.Limit = n
			}
		}
		if v := c.QueryParam("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				f.Offset = n
			}
		}

		msgs, err := messages.List(c.Request().Context(), f)
		if err != nil {
			log.Errorf("list messages failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"count":    len(msgs),
			"messages": msgs,
		})
	}
}

type markReadReq struct {
	MessageIDs []string `json:"message_ids"`
	ContactID  string   `json:"contact_id"`
}

// markReadHandler marks messages read by explicit id list or by contact.
// Both forms are idempotent: repeating the call changes nothing.
func markReadHandler(messages repository.MessagesRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req markReadReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		ctx := c.Request().Context()
		switch {
		case len(req.MessageIDs) > 0:
			if err := messages.MarkRead(ctx, req.MessageIDs); err != nil {
				log.Errorf("mark read failed: %v", err)
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
			}
		case strings.TrimSpace(req.ContactID) != "":
			if err := messages.MarkContactRead(ctx, req.ContactID); err != nil {
				log.Errorf("mark contact read failed: %v", err)
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
			}
		default:
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "message_ids or contact_id required"})
		}

		return c.JSON(http.StatusOK, map[string]any{"success": true})
	}
}

func unreadCountHandler(messages repository.MessagesRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		total, err := messages.UnreadCount(ctx)
		if err != nil {
			log.Errorf("unread count failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}
		byContact, err := messages.UnreadByContact(ctx)
		if err != nil {
			log.Errorf("unread by contact failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"total":      total,
			"by_contact": byContact,
		})
	}
}

package http

import (
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/omnidesk/inbox-gateway/internal/http/middleware"
	"github.com/omnidesk/inbox-gateway/internal/model"
	"github.com/omnidesk/inbox-gateway/internal/repository"
	"github.com/omnidesk/inbox-gateway/internal/util"
)

type noteReq struct {
	ContactID string `json:"contact_id"`
	Content   string `json:"content"`
	IsPrivate bool   `json:"is_private"`
}

func createNoteHandler(notes repository.NotesRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		agentID, ok := middleware.AgentIDFromCtx(c)
		if !ok || agentID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		var req noteReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		req.ContactID = strings.TrimSpace(req.ContactID)
		req.Content = strings.TrimSpace(req.Content)
		if req.ContactID == "" || req.Content == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "contact_id and content required"})
		}

		note := model.Note{
			ID:        util.NewID(),
			ContactID: req.ContactID,
			AgentID:   agentID,
			Content:   req.Content,
			IsPrivate: req.IsPrivate,
		}
		if err := notes.Insert(c.Request().Context(), note); err != nil {
			log.Errorf("create note failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}
		return c.JSON(http.StatusOK, map[string]any{"note": note})
	}
}

func listNotesHandler(notes repository.NotesRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		agentID, _ := middleware.AgentIDFromCtx(c)
		contactID := strings.TrimSpace(c.QueryParam("contactId"))
		if contactID == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "contactId required"})
		}

		list, err := notes.ListByContact(c.Request().Context(), contactID, agentID)
		if err != nil {
			log.Errorf("list notes failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}
		return c.JSON(http.StatusOK, map[string]any{"notes": list})
	}
}

package http

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/omnidesk/inbox-gateway/internal/model"
	"github.com/omnidesk/inbox-gateway/internal/repository"
	"github.com/omnidesk/inbox-gateway/internal/util"
)

func listContactsHandler(contacts repository.ContactsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		list, err := contacts.List(c.Request().Context(), strings.TrimSpace(c.QueryParam("search")))
		if err != nil {
			log.Errorf("list contacts failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}
		return c.JSON(http.StatusOK, map[string]any{"contacts": list})
	}
}

type contactReq struct {
	Name      string   `json:"name"`
	Phone     string   `json:"phone"`
	WhatsApp  string   `json:"whatsapp"`
	Instagram string   `json:"instagram"`
	Email     string   `json:"email"`
	Tags      []string `json:"tags"`
}

func createContactHandler(contacts repository.ContactsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req contactReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "name required"})
		}

		contact := model.Contact{
			ID:   util.NewID(),
			Name: req.Name,
			Tags: model.Tags(req.Tags),
		}
		if p := util.NormalizePhone(req.Phone); p != "" {
			contact.Phone = sql.NullString{String: p, Valid: true}
		}
		if w := util.NormalizePhone(req.WhatsApp); w != "" {
			contact.WhatsApp = sql.NullString{String: w, Valid: true}
		}
		if ig := strings.TrimSpace(req.Instagram); ig != "" {
			contact.Instagram = sql.NullString{String: ig, Valid: true}
		}
		if e := strings.TrimSpace(req.Email); e != "" {
			contact.Email = sql.NullString{String: e, Valid: true}
		}

		if err := contacts.Insert(c.Request().Context(), nil, contact); err != nil {
			log.Errorf("create contact failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}
		return c.JSON(http.StatusOK, map[string]any{"contact": contact})
	}
}

func getContactHandler(contacts repository.ContactsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		contact, err := contacts.GetByID(c.Request().Context(), c.Param("id"))
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "contact not found"})
		}
		if err != nil {
			log.Errorf("get contact failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}
		return c.JSON(http.StatusOK, map[string]any{"contact": contact})
	}
}

type contactUpdateReq struct {
	Name      *string   `json:"name"`
	Phone     *string   `json:"phone"`
	WhatsApp  *string   `json:"whatsapp"`
	Instagram *string   `json:"instagram"`
	Email     *string   `json:"email"`
	Tags      *[]string `json:"tags"`
}

func updateContactHandler(contacts repository.ContactsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req contactUpdateReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "name cannot be empty"})
		}

		upd := repository.ContactUpdate{
			Name:      req.Name,
			Phone:     req.Phone,
			WhatsApp:  req.WhatsApp,
			Instagram: req.Instagram,
			Email:     req.Email,
		}
		if req.Tags != nil {
			tags := model.Tags(*req.Tags)
			upd.Tags = &tags
		}

		id := c.Param("id")
		if err := contacts.Update(c.Request().Context(), id, upd); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return c.JSON(http.StatusNotFound, map[string]string{"error": "contact not found"})
			}
			log.Errorf("update contact failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		contact, err := contacts.GetByID(c.Request().Context(), id)
		if err != nil {
			log.Errorf("reload contact failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}
		return c.JSON(http.StatusOK, map[string]any{"contact": contact})
	}
}

package http

import (
	"io"
	"net/http"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/omnidesk/inbox-gateway/internal/metrics"
	"github.com/omnidesk/inbox-gateway/internal/webhook"
)

// twilioWebhookHandler receives the Twilio inbound-message form post
// (SMS and WhatsApp share the endpoint; the normalizer tells them apart).
func twilioWebhookHandler(ingestor *webhook.Ingestor) echo.HandlerFunc {
	return func(c echo.Context) error {
		form, err := c.FormParams()
		if err != nil {
			metrics.WebhookEventsTotal.WithLabelValues("twilio", "invalid").Inc()
			return c.String(http.StatusBadRequest, "bad form")
		}

		ev, err := webhook.ParseTwilioPayload(form)
		if err != nil {
			metrics.WebhookEventsTotal.WithLabelValues("twilio", "invalid").Inc()
			log.Warnf("twilio payload rejected: %v", err)
			return c.String(http.StatusBadRequest, "bad payload")
		}

		if _, err := ingestor.Ingest(c.Request().Context(), ev); err != nil {
			metrics.WebhookEventsTotal.WithLabelValues("twilio", "invalid").Inc()
			log.Errorf("twilio ingest failed: %v", err)
			return c.String(http.StatusInternalServerError, "error processing webhook")
		}

		metrics.WebhookEventsTotal.WithLabelValues("twilio", "ok").Inc()
		return c.String(http.StatusOK, "OK")
	}
}

// instagramVerifyHandler echoes the hub.challenge when the pre-shared
// verify token matches; anything else is forbidden.
func instagramVerifyHandler(verifyToken string) echo.HandlerFunc {
	return func(c echo.Context) error {
		challenge, ok := webhook.VerifyInstagramSubscription(
			c.QueryParam("hub.mode"),
			c.QueryParam("hub.verify_token"),
			c.QueryParam("hub.challenge"),
			verifyToken,
		)
		if !ok {
			metrics.WebhookEventsTotal.WithLabelValues("instagram", "invalid").Inc()
			return c.String(http.StatusForbidden, "Forbidden")
		}
		return c.String(http.StatusOK, challenge)
	}
}

func instagramWebhookHandler(ingestor *webhook.Ingestor) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
		if err != nil {
			metrics.WebhookEventsTotal.WithLabelValues("instagram", "invalid").Inc()
			return c.String(http.StatusBadRequest, "bad body")
		}

		events, ignored, err := webhook.ParseInstagramPayload(body)
		if err != nil {
			metrics.WebhookEventsTotal.WithLabelValues("instagram", "invalid").Inc()
			log.Warnf("instagram payload rejected: %v", err)
			return c.String(http.StatusBadRequest, "bad payload")
		}
		if ignored > 0 {
			// read receipts, account changes: accepted, nothing stored
			metrics.WebhookEventsTotal.WithLabelValues("instagram", "ignored").Add(float64(ignored))
			log.Debugf("instagram webhook: %d event(s) ignored", ignored)
		}

		for _, ev := range events {
			if _, err := ingestor.Ingest(c.Request().Context(), ev); err != nil {
				metrics.WebhookEventsTotal.WithLabelValues("instagram", "invalid").Inc()
				log.Errorf("instagram ingest failed: %v", err)
				return c.String(http.StatusInternalServerError, "error processing webhook")
			}
			metrics.WebhookEventsTotal.WithLabelValues("instagram", "ok").Inc()
		}

		return c.String(http.StatusOK, "OK")
	}
}

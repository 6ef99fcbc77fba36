package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/omnidesk/inbox-gateway/internal/config"
	"github.com/omnidesk/inbox-gateway/internal/model"
)

// TwilioAdapter sends SMS or WhatsApp messages through the Twilio
// Messages API. One instance per channel; WhatsApp addresses carry the
// "whatsapp:" prefix on the wire.
type TwilioAdapter struct {
	channel    model.Channel
	accountSID string
	authToken  string
	from       string
	baseURL    string
	client     *http.Client
}

func newTwilio(ch model.Channel, from string, cfg config.TwilioConfig) *TwilioAdapter {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TwilioAdapter{
		channel:    ch,
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       from,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		client:     &http.Client{Timeout: timeout},
	}
}

func NewTwilioSMS(cfg config.TwilioConfig) *TwilioAdapter {
	return newTwilio(model.ChannelSMS, cfg.PhoneNumber, cfg)
}

func NewTwilioWhatsApp(cfg config.TwilioConfig) *TwilioAdapter {
	return newTwilio(model.ChannelWhatsApp, cfg.WhatsAppNumber, cfg)
}

func (a *TwilioAdapter) Channel() model.Channel { return a.channel }

func (a *TwilioAdapter) Destination(c model.Contact) (string, bool) {
	if a.channel == model.ChannelWhatsApp {
		return c.WhatsApp.String, c.WhatsApp.Valid && c.WhatsApp.String != ""
	}
	return c.Phone.String, c.Phone.Valid && c.Phone.String != ""
}

type twilioResponse struct {
	SID     string `json:"sid"`
	Message string `json:"message"`
}

func (a *TwilioAdapter) Send(ctx context.Context, dest, text, mediaURL string) (SendResult, error) {
	from, to := a.from, dest
	if a.channel == model.ChannelWhatsApp {
		from = "whatsapp:" + from
		to = "whatsapp:" + to
	}

	form := url.Values{}
	form.Set("From", from)
	form.Set("To", to)
	if mediaURL != "" {
		form.Set("MediaUrl", mediaURL)
		// body is optional when media is present
		if strings.TrimSpace(text) != "" {
			form.Set("Body", text)
		}
	} else {
		form.Set("Body", text)
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", a.baseURL, a.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return SendResult{}, err
	}
	req.SetBasicAuth(a.accountSID, a.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := a.client.Do(req)
	if err != nil {
		return SendResult{}, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	var tr twilioResponse
	_ = json.Unmarshal(body, &tr)

	if res.StatusCode/100 != 2 {
		detail := tr.Message
		if detail == "" {
			detail = fmt.Sprintf("twilio status=%d", res.StatusCode)
		}
		return SendResult{Success: false, ErrorDetail: detail}, nil
	}

	return SendResult{Success: true, ProviderMessageID: tr.SID}, nil
}

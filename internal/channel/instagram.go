package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/omnidesk/inbox-gateway/internal/config"
	"github.com/omnidesk/inbox-gateway/internal/model"
)

// InstagramAdapter sends direct messages through the Facebook Graph API.
// Captions are optional, so text is not required when media is present.
type InstagramAdapter struct {
	accessToken string
	graphURL    string
	client      *http.Client
}

func NewInstagram(cfg config.InstagramConfig) *InstagramAdapter {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &InstagramAdapter{
		accessToken: cfg.AccessToken,
		graphURL:    strings.TrimRight(cfg.GraphURL, "/"),
		client:      &http.Client{Timeout: timeout},
	}
}

func (a *InstagramAdapter) Channel() model.Channel { return model.ChannelInstagram }

func (a *InstagramAdapter) Destination(c model.Contact) (string, bool) {
	return c.Instagram.String, c.Instagram.Valid && c.Instagram.String != ""
}

type igMessagePayload struct {
	Recipient     igRecipient `json:"recipient"`
	MessagingType string      `json:"messaging_type"`
	Message       igMessage   `json:"message"`
}

type igRecipient struct {
	ID string `json:"id"`
}

type igMessage struct {
	Text       string        `json:"text,omitempty"`
	Attachment *igAttachment `json:"attachment,omitempty"`
}

type igAttachment struct {
	Type    string              `json:"type"`
	Payload igAttachmentPayload `json:"payload"`
}

type igAttachmentPayload struct {
	URL        string `json:"url"`
	IsReusable bool   `json:"is_reusable"`
}

type igResponse struct {
	MessageID string `json:"message_id"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (a *InstagramAdapter) Send(ctx context.Context, dest, text, mediaURL string) (SendResult, error) {
	if a.accessToken == "" {
		return SendResult{Success: false, ErrorDetail: "instagram access token not configured"}, nil
	}

	payload := igMessagePayload{
		Recipient:     igRecipient{ID: dest},
		MessagingType: "RESPONSE", // required within the 24h messaging window
	}
	if mediaURL != "" {
		payload.Message.Attachment = &igAttachment{
			Type:    mediaType(mediaURL),
			Payload: igAttachmentPayload{URL: mediaURL, IsReusable: true},
		}
		if strings.TrimSpace(text) != "" {
			payload.Message.Text = text
		}
	} else {
		payload.Message.Text = text
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return SendResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.graphURL+"/me/messages", bytes.NewReader(b))
	if err != nil {
		return SendResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.accessToken)

	res, err := a.client.Do(req)
	if err != nil {
		return SendResult{}, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	var ir igResponse
	_ = json.Unmarshal(body, &ir)

	if res.StatusCode/100 != 2 {
		detail := "failed to send instagram message"
		if ir.Error != nil && ir.Error.Message != "" {
			detail = ir.Error.Message
		} else if len(body) == 0 {
			detail = fmt.Sprintf("graph api status=%d", res.StatusCode)
		}
		return SendResult{Success: false, ErrorDetail: detail}, nil
	}

	return SendResult{Success: true, ProviderMessageID: ir.MessageID}, nil
}

var (
	imageExt = regexp.MustCompile(`\.(jpg|jpeg|png|gif|webp)$`)
	videoExt = regexp.MustCompile(`\.(mp4|mov|avi)$`)
	audioExt = regexp.MustCompile(`\.(mp3|wav|ogg)$`)
)

// mediaType guesses the Graph API attachment type from the URL.
func mediaType(rawURL string) string {
	u := strings.ToLower(rawURL)
	switch {
	case imageExt.MatchString(u) || strings.Contains(u, "image"):
		return "image"
	case videoExt.MatchString(u) || strings.Contains(u, "video"):
		return "video"
	case audioExt.MatchString(u) || strings.Contains(u, "audio"):
		return "audio"
	default:
		return "file"
	}
}

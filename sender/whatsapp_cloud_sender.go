package sender

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultWhatsAppCloudURL = "https://graph.facebook.com/v20.0"

// WhatsAppCloudSender is the primary WhatsApp provider (Meta Cloud API).
// Destinations are sent digits-only in international format.
type WhatsAppCloudSender struct {
	token         string
	phoneNumberID string
	baseURL       string
	countryCode   string
	httpClient    *http.Client
}

func NewWhatsAppCloudSender(token, phoneNumberID, baseURL, countryCode string) (*WhatsAppCloudSender, error) {
	if token == "" {
		return nil, fmt.Errorf("WHATSAPP_CLOUD_TOKEN not set")
	}
	if phoneNumberID == "" {
		return nil, fmt.Errorf("WHATSAPP_CLOUD_PHONE_ID not set")
	}
	if baseURL == "" {
		baseURL = defaultWhatsAppCloudURL
	}
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	return &WhatsAppCloudSender{
		token:         token,
		phoneNumberID: phoneNumberID,
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		countryCode:   countryCode,
		httpClient:    newHTTPClient(),
	}, nil
}

func (w *WhatsAppCloudSender) Provider() string { return "whatsapp_cloud" }

type cloudTextBody struct {
	Body string `json:"body"`
}

type cloudMessageRequest struct {
	MessagingProduct string        `json:"messaging_product"`
	To               string        `json:"to"`
	Type             string        `json:"type"`
	Text             cloudTextBody `json:"text"`
}

type cloudMessageResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

func (w *WhatsAppCloudSender) SendWhatsApp(ctx context.Context, to, body string) (SendResult, error) {
	dest := DigitsOnlyPhone(to, w.countryCode)
	if dest == "" {
		return SendResult{}, fmt.Errorf("invalid whatsapp destination %q", to)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+w.token)

	var resp cloudMessageResponse
	endpoint := fmt.Sprintf("%s/%s/messages", w.baseURL, w.phoneNumberID)
	err := postJSON(ctx, w.httpClient, w.Provider(), endpoint, header, cloudMessageRequest{
		MessagingProduct: "whatsapp",
		To:               dest,
		Type:             "text",
		Text:             cloudTextBody{Body: body},
	}, &resp)
	if err != nil {
		return SendResult{}, err
	}

	result := SendResult{SentAt: time.Now()}
	if len(resp.Messages) > 0 {
		result.MessageID = resp.Messages[0].ID
	}
	return result, nil
}

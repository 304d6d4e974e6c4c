package sender

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTwilioAPIURL = "https://api.twilio.com"

// TwilioWhatsAppSender is the secondary WhatsApp provider. It uses basic
// auth, a form-encoded body and whatsapp:-prefixed addresses.
type TwilioWhatsAppSender struct {
	accountSID  string
	authToken   string
	fromNumber  string
	baseURL     string
	countryCode string
	httpClient  *http.Client
}

func NewTwilioWhatsAppSender(sid, token, from, baseURL, countryCode string) (*TwilioWhatsAppSender, error) {
	if sid == "" {
		return nil, fmt.Errorf("TWILIO_ACCOUNT_SID not set")
	}
	if token == "" {
		return nil, fmt.Errorf("TWILIO_AUTH_TOKEN not set")
	}
	if from == "" {
		return nil, fmt.Errorf("TWILIO_WHATSAPP_FROM not set")
	}
	if baseURL == "" {
		baseURL = defaultTwilioAPIURL
	}
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	if !strings.HasPrefix(from, "whatsapp:") {
		from = WhatsAppAddress(from, countryCode)
	}

	return &TwilioWhatsAppSender{
		accountSID:  sid,
		authToken:   token,
		fromNumber:  from,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		countryCode: countryCode,
		httpClient:  newHTTPClient(),
	}, nil
}

func (t *TwilioWhatsAppSender) Provider() string { return "twilio" }

type twilioMessageResponse struct {
	SID string `json:"sid"`
}

func (t *TwilioWhatsAppSender) SendWhatsApp(ctx context.Context, to, body string) (SendResult, error) {
	dest := WhatsAppAddress(to, t.countryCode)
	if dest == "" {
		return SendResult{}, fmt.Errorf("invalid whatsapp destination %q", to)
	}

	apiURL := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.baseURL, t.accountSID)

	formData := url.Values{}
	formData.Set("To", dest)
	formData.Set("From", t.fromNumber)
	formData.Set("Body", body)

	var resp twilioMessageResponse
	err := postForm(ctx, t.httpClient, t.Provider(), apiURL, formData, func(req *http.Request) {
		req.SetBasicAuth(t.accountSID, t.authToken)
	}, &resp)
	if err != nil {
		return SendResult{}, err
	}

	return SendResult{MessageID: resp.SID, SentAt: time.Now()}, nil
}

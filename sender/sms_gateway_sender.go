package sender

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// SMSGatewaySender posts form-encoded messages to an SMS gateway that
// authenticates with an api_key field.
type SMSGatewaySender struct {
	apiKey     string
	endpoint   string
	senderID   string
	httpClient *http.Client
}

func NewSMSGatewaySender(apiKey, endpoint, senderID string) (*SMSGatewaySender, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("SMS_API_KEY not set")
	}
	if endpoint == "" {
		return nil, fmt.Errorf("SMS_API_URL not set")
	}
	return &SMSGatewaySender{
		apiKey:     apiKey,
		endpoint:   endpoint,
		senderID:   senderID,
		httpClient: newHTTPClient(),
	}, nil
}

func (s *SMSGatewaySender) Provider() string { return "sms_gateway" }

type smsGatewayResponse struct {
	MessageID string `json:"message_id"`
}

func (s *SMSGatewaySender) SendSMS(ctx context.Context, to, msg string) (SendResult, error) {
	form := url.Values{}
	form.Set("api_key", s.apiKey)
	form.Set("to", to)
	form.Set("message", msg)
	if s.senderID != "" {
		form.Set("sender", s.senderID)
	}

	var resp smsGatewayResponse
	if err := postForm(ctx, s.httpClient, s.Provider(), s.endpoint, form, nil, &resp); err != nil {
		return SendResult{}, err
	}
	id := resp.MessageID
	if id == "" {
		id = fmt.Sprintf("sms-%d", time.Now().UnixNano())
	}
	return SendResult{MessageID: id, SentAt: time.Now()}, nil
}

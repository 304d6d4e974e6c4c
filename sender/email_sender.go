package sender

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultEmailAPIURL = "https://api.resend.com"

// HTTPEmailSender sends transactional email through a Resend-compatible API.
type HTTPEmailSender struct {
	apiKey     string
	from       string
	baseURL    string
	httpClient *http.Client
}

func NewHTTPEmailSender(apiKey, from, baseURL string) (*HTTPEmailSender, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("EMAIL_API_KEY not set")
	}
	if from == "" {
		return nil, fmt.Errorf("EMAIL_FROM not set")
	}
	if baseURL == "" {
		baseURL = defaultEmailAPIURL
	}
	return &HTTPEmailSender{
		apiKey:     apiKey,
		from:       from,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: newHTTPClient(),
	}, nil
}

func (s *HTTPEmailSender) Provider() string { return "resend" }

type emailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

type emailResponse struct {
	ID string `json:"id"`
}

func (s *HTTPEmailSender) SendEmail(ctx context.Context, msg EmailMessage) (SendResult, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.apiKey)

	var resp emailResponse
	err := postJSON(ctx, s.httpClient, s.Provider(), s.baseURL+"/emails", header, emailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	}, &resp)
	if err != nil {
		return SendResult{}, err
	}
	return SendResult{MessageID: resp.ID, SentAt: time.Now()}, nil
}

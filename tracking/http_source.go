package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"order-status-service/models"
	"strings"
	"time"
)

// HTTPSource polls GET {base}/orders/track/{token}.
type HTTPSource struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

type trackResponse struct {
	Order models.TrackingView `json:"order"`
}

func (s *HTTPSource) Fetch(ctx context.Context, publicToken string) (models.TrackingView, error) {
	endpoint := fmt.Sprintf("%s/orders/track/%s", s.baseURL, url.PathEscape(publicToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.TrackingView{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return models.TrackingView{}, fmt.Errorf("tracking request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return models.TrackingView{}, fmt.Errorf("tracking endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var out trackResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.TrackingView{}, fmt.Errorf("decode tracking response: %w", err)
	}
	return out.Order, nil
}

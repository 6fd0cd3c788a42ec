package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPHolidaySource fetches the public holiday feed, a flat JSON object of
// "YYYY-MM-DD": "holiday name" pairs.
type HTTPHolidaySource struct {
	url    string
	client *http.Client
}

func NewHTTPHolidaySource(url string) *HTTPHolidaySource {
	return &HTTPHolidaySource{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (h *HTTPHolidaySource) Fetch(ctx context.Context) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("holiday feed returned %s", resp.Status)
	}

	var holidays map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&holidays); err != nil {
		return nil, fmt.Errorf("decode holiday feed: %w", err)
	}
	return holidays, nil
}

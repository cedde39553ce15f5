package scheduling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"rentflow/models"

	"go.uber.org/zap"
)

// HTTPClient talks to the scheduling backend over its JSON API. Every call
// carries a fixed timeout; exceeding it surfaces as a retryable transport
// error rather than a hang.
type HTTPClient struct {
	BaseURL string
	Timeout time.Duration
	Logger  *zap.Logger

	httpClient *http.Client
}

// NewHTTPClient builds a client for the given backend base URL.
func NewHTTPClient(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		BaseURL:    baseURL,
		Timeout:    timeout,
		Logger:     logger,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) FullyBookedDates(ctx context.Context) ([]time.Time, error) {
	var payload struct {
		Dates []string `json:"dates"`
	}
	if err := c.getJSON(ctx, "/api/v1/fully-booked", &payload); err != nil {
		return nil, err
	}

	dates := make([]time.Time, 0, len(payload.Dates))
	for _, d := range payload.Dates {
		day, err := time.Parse("2006-01-02", d)
		if err != nil {
			c.Logger.Warn("skipping malformed fully-booked date", zap.String("date", d))
			continue
		}
		dates = append(dates, day)
	}
	return dates, nil
}

func (c *HTTPClient) CheckAvailability(ctx context.Context, start, end time.Time) (int, error) {
	path := fmt.Sprintf("/api/v1/availability?start=%s&end=%s",
		start.Format("2006-01-02"), end.Format("2006-01-02"))

	var payload struct {
		OverlapCount int `json:"overlapCount"`
	}
	if err := c.getJSON(ctx, path, &payload); err != nil {
		return 0, err
	}
	return payload.OverlapCount, nil
}

func (c *HTTPClient) CreateBooking(ctx context.Context, sub models.BookingSubmission) (*models.BookingResult, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal booking submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/v1/bookings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build booking request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", sub.IdempotencyKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	// The backend answers race losses with 409 and a structured body; both
	// 2xx and 409 are real verdicts, not transport failures.
	if resp.StatusCode >= 200 && resp.StatusCode < 300 || resp.StatusCode == http.StatusConflict {
		var result models.BookingResult
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, fmt.Errorf("failed to parse booking result: %w", err)
		}
		if result.Status == "" {
			result.Status = models.BookingFailed
		}
		return &result, nil
	}

	return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", path, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response from %s: %w", path, err)
	}
	return nil
}

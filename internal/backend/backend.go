// Package backend is the HTTP client for this service's own GET /weather endpoint,
// used by the terminal consumer.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kjstillabower/weather-forecast-service/internal/models"
)

// DefaultMessage is shown when the backend gives no reason or cannot be reached.
const DefaultMessage = "Network Error or server Error or area not located in the data"

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// APIError is returned for non-2xx responses and transport failures. Status is 0 when
// no response arrived.
type APIError struct {
	Status    int
	Message   string
	RequestID string
	Err       error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("backend unreachable: %v", e.Err)
	}
	return fmt.Sprintf("backend HTTP %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// UserMessage is the text shown to the user for this failure.
func (e *APIError) UserMessage() string {
	if e.Message == "" {
		return DefaultMessage
	}
	return e.Message
}

// Client calls <baseURL>/weather. It is safe for concurrent use.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend URL %q: scheme must be http or https", baseURL)
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// GetForecast returns the provider forecast relayed by the backend.
func (c *Client) GetForecast(ctx context.Context, city string) (models.ForecastResponse, error) {
	endpoint := c.baseURL + "/weather?" + url.Values{"city": {city}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.ForecastResponse{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return models.ForecastResponse{}, &APIError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.ForecastResponse{}, decodeError(resp)
	}

	var out models.ForecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.ForecastResponse{}, &APIError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("decode response: %w", err),
		}
	}
	return out, nil
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId"`
}

func decodeError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return apiErr
	}
	var body errorBody
	if json.Unmarshal(raw, &body) == nil {
		apiErr.Message = strings.TrimSpace(body.Error)
		apiErr.RequestID = body.RequestID
	}
	return apiErr
}

package ratings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/clarkfannin/chicago-restaurant-inspections/pkg/retry"
)

const (
	defaultEndpoint = "https://places.googleapis.com/v1/places:searchText"
	fieldMask       = "places.id,places.displayName,places.rating,places.userRatingCount"
)

// PlaceResult is the subset of a Places text-search hit the pipeline
// keeps. Rating is nil when the place exists but has no rating yet, which
// is distinct from a genuine zero-star rating.
type PlaceResult struct {
	PlaceID         string
	DisplayName     string
	Rating          *float64
	UserRatingCount int64
}

type PlacesClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	policy     retry.Policy
}

func NewPlacesClient(apiKey string, timeout time.Duration) *PlacesClient {
	policy := retry.DefaultPolicy()
	policy.Retryable = isTransient
	return &PlacesClient{
		endpoint:   defaultEndpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		policy:     policy,
	}
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("places api returned status %d", e.code)
}

func isTransient(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	var ne net.Error
	return errors.As(err, &ne)
}

type searchRequest struct {
	TextQuery string `json:"textQuery"`
}

type searchResponse struct {
	Places []struct {
		ID          string `json:"id"`
		DisplayName struct {
			Text string `json:"text"`
		} `json:"displayName"`
		Rating          *float64 `json:"rating"`
		UserRatingCount int64    `json:"userRatingCount"`
	} `json:"places"`
}

// Search runs a text query and returns the top hit, or nil when the query
// matched nothing. A nil result is not an error.
func (c *PlacesClient) Search(ctx context.Context, query string) (*PlaceResult, error) {
	body, err := json.Marshal(searchRequest{TextQuery: query})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	raw, err := retry.DoWithResult(ctx, c.policy, func() ([]byte, error) {
		return c.post(ctx, body)
	})
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	if len(resp.Places) == 0 {
		return nil, nil
	}

	top := resp.Places[0]
	return &PlaceResult{
		PlaceID:         top.ID,
		DisplayName:     top.DisplayName.Text,
		Rating:          top.Rating,
		UserRatingCount: top.UserRatingCount,
	}, nil
}

func (c *PlacesClient) post(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call places api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &statusError{code: resp.StatusCode}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}
	return raw, nil
}

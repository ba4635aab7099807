package socrata

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/clarkfannin/chicago-restaurant-inspections/pkg/logger"
	"github.com/clarkfannin/chicago-restaurant-inspections/pkg/retry"
)

// Record is one upstream row keyed by CSV header.
type Record map[string]string

type Client struct {
	baseURL    string
	datasetID  string
	appToken   string
	httpClient *http.Client
	policy     retry.Policy
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.status, e.body)
}

func isTransient(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.status == http.StatusTooManyRequests || se.status >= 500
	}
	// Network-level failures have no status code and are worth retrying.
	return true
}

func NewClient(baseURL, datasetID, appToken string, timeout time.Duration) *Client {
	policy := retry.DefaultPolicy()
	policy.Retryable = isTransient
	policy.Logger = logger.Log

	return &Client{
		baseURL:    baseURL,
		datasetID:  datasetID,
		appToken:   appToken,
		httpClient: &http.Client{Timeout: timeout},
		policy:     policy,
	}
}

// FetchCSV downloads the dataset as CSV, optionally bounded by a SoQL
// $where filter, and returns header-keyed records. A zero-row response is
// not an error.
func (c *Client) FetchCSV(ctx context.Context, where string) ([]Record, error) {
	endpoint := fmt.Sprintf("%s/api/views/%s/rows.csv", c.baseURL, c.datasetID)
	if where != "" {
		endpoint = fmt.Sprintf("%s?$where=%s", endpoint, url.QueryEscape(where))
	}

	logger.Info("fetching upstream dataset",
		zap.String("url", endpoint),
		zap.String("where", where),
	)

	body, err := retry.DoWithResult(ctx, c.policy, func() ([]byte, error) {
		return c.get(ctx, endpoint)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch dataset: %w", err)
	}

	records, err := parseCSV(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dataset CSV: %w", err)
	}

	logger.Info("fetched upstream records", zap.Int("rows", len(records)))
	return records, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if c.appToken != "" {
		req.Header.Set("X-App-Token", c.appToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &statusError{status: resp.StatusCode, body: string(b)}
	}

	return io.ReadAll(resp.Body)
}

func parseCSV(body []byte) ([]Record, error) {
	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var records []Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		rec := make(Record, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

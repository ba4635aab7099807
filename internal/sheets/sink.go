package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/clarkfannin/chicago-restaurant-inspections/pkg/retry"
)

// Sink is the destination a publisher writes tabs to.
type Sink interface {
	// Replace overwrites a tab with the given rows, header first.
	Replace(ctx context.Context, tab string, rows [][]string) error
	// FormatNumeric marks columns (zero-based) as numeric so the
	// destination renders them as numbers instead of text.
	FormatNumeric(ctx context.Context, tab string, columns []int) error
}

const sheetsBaseURL = "https://sheets.googleapis.com/v4/spreadsheets"

// RestSink publishes to a Google spreadsheet over the Sheets REST API.
type RestSink struct {
	baseURL       string
	spreadsheetID string
	accessToken   string
	httpClient    *http.Client
	policy        retry.Policy

	sheetIDs map[string]int64
}

func NewRestSink(spreadsheetID, accessToken string, timeout time.Duration) *RestSink {
	policy := retry.DefaultPolicy()
	policy.Retryable = isTransient
	return &RestSink{
		baseURL:       sheetsBaseURL,
		spreadsheetID: spreadsheetID,
		accessToken:   accessToken,
		httpClient:    &http.Client{Timeout: timeout},
		policy:        policy,
		sheetIDs:      make(map[string]int64),
	}
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("sheets api returned status %d: %s", e.code, e.body)
}

// Bad credentials or a malformed request will not heal on retry; only
// rate limits, server errors, and network failures are worth another
// attempt.
func isTransient(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	var ne net.Error
	return errors.As(err, &ne)
}

func (s *RestSink) Replace(ctx context.Context, tab string, rows [][]string) error {
	clearURL := fmt.Sprintf("%s/%s/values/%s:clear", s.baseURL, s.spreadsheetID, url.PathEscape(tab))
	if err := s.call(ctx, http.MethodPost, clearURL, map[string]any{}, nil); err != nil {
		return fmt.Errorf("failed to clear tab %s: %w", tab, err)
	}

	values := make([][]any, len(rows))
	for i, row := range rows {
		cells := make([]any, len(row))
		for j, cell := range row {
			cells[j] = cell
		}
		values[i] = cells
	}

	updateURL := fmt.Sprintf("%s/%s/values/%s!A1?valueInputOption=USER_ENTERED",
		s.baseURL, s.spreadsheetID, url.PathEscape(tab))
	body := map[string]any{"values": values}
	if err := s.call(ctx, http.MethodPut, updateURL, body, nil); err != nil {
		return fmt.Errorf("failed to update tab %s: %w", tab, err)
	}
	return nil
}

func (s *RestSink) FormatNumeric(ctx context.Context, tab string, columns []int) error {
	if len(columns) == 0 {
		return nil
	}
	sheetID, err := s.sheetID(ctx, tab)
	if err != nil {
		return err
	}

	requests := make([]map[string]any, 0, len(columns))
	for _, col := range columns {
		requests = append(requests, map[string]any{
			"repeatCell": map[string]any{
				"range": map[string]any{
					"sheetId":          sheetID,
					"startRowIndex":    1,
					"startColumnIndex": col,
					"endColumnIndex":   col + 1,
				},
				"cell": map[string]any{
					"userEnteredFormat": map[string]any{
						"numberFormat": map[string]any{"type": "NUMBER"},
					},
				},
				"fields": "userEnteredFormat.numberFormat",
			},
		})
	}

	batchURL := fmt.Sprintf("%s/%s:batchUpdate", s.baseURL, s.spreadsheetID)
	if err := s.call(ctx, http.MethodPost, batchURL, map[string]any{"requests": requests}, nil); err != nil {
		return fmt.Errorf("failed to format tab %s: %w", tab, err)
	}
	return nil
}

// sheetID resolves a tab title to its numeric sheet id, caching lookups
// for the life of the sink.
func (s *RestSink) sheetID(ctx context.Context, tab string) (int64, error) {
	if id, ok := s.sheetIDs[tab]; ok {
		return id, nil
	}

	var meta struct {
		Sheets []struct {
			Properties struct {
				SheetID int64  `json:"sheetId"`
				Title   string `json:"title"`
			} `json:"properties"`
		} `json:"sheets"`
	}
	metaURL := fmt.Sprintf("%s/%s?fields=sheets.properties", s.baseURL, s.spreadsheetID)
	if err := s.call(ctx, http.MethodGet, metaURL, nil, &meta); err != nil {
		return 0, fmt.Errorf("failed to list sheets: %w", err)
	}

	for _, sheet := range meta.Sheets {
		s.sheetIDs[sheet.Properties.Title] = sheet.Properties.SheetID
	}
	id, ok := s.sheetIDs[tab]
	if !ok {
		return 0, fmt.Errorf("spreadsheet has no tab named %s", tab)
	}
	return id, nil
}

func (s *RestSink) call(ctx context.Context, method, rawURL string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	return retry.Do(ctx, s.policy, func() error {
		req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+s.accessToken)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to call sheets api: %w", err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return &statusError{code: resp.StatusCode, body: string(raw)}
		}
		if out != nil {
			if err := json.Unmarshal(raw, out); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return nil
	})
}

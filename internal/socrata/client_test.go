package socrata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clarkfannin/chicago-restaurant-inspections/pkg/logger"
)

func init() {
	logger.Log = zap.NewNop()
}

const sampleCSV = "Inspection ID,DBA Name,License #,Inspection Date,Results\n" +
	"2609946,TACO BELL,2216457,2025-08-01,Pass\n" +
	"2609947,SUBWAY,1834255,2025-08-02,Fail\n"

func newTestClient(baseURL string) *Client {
	c := NewClient(baseURL, "4ijn-s7e5", "test-token", 5*time.Second)
	c.policy.InitialDelay = time.Millisecond
	c.policy.MaxDelay = 5 * time.Millisecond
	return c
}

func TestFetchCSVParsesRecords(t *testing.T) {
	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-App-Token")
		w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	records, err := newTestClient(srv.URL).FetchCSV(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "test-token", gotToken)
	assert.Equal(t, "TACO BELL", records[0]["DBA Name"])
	assert.Equal(t, "2216457", records[0]["License #"])
	assert.Equal(t, "Fail", records[1]["Results"])
}

func TestFetchCSVSendsWhereFilter(t *testing.T) {
	var gotWhere string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotWhere = r.URL.Query().Get("$where")
		w.Write([]byte("Inspection ID\n"))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchCSV(context.Background(), "inspection_date>'2025-08-01'")
	require.NoError(t, err)
	assert.Equal(t, "inspection_date>'2025-08-01'", gotWhere)
}

func TestFetchCSVZeroRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Inspection ID,DBA Name\n"))
	}))
	defer srv.Close()

	records, err := newTestClient(srv.URL).FetchCSV(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFetchCSVRetriesServerErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	records, err := newTestClient(srv.URL).FetchCSV(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Len(t, records, 2)
}

func TestFetchCSVDoesNotRetryClientErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchCSV(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

package sheets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSink(t *testing.T, handler http.HandlerFunc) *RestSink {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s := NewRestSink("sheet-1", "token", 5*time.Second)
	s.baseURL = srv.URL
	s.policy.InitialDelay = time.Millisecond
	s.policy.MaxDelay = time.Millisecond
	return s
}

func TestReplaceDoesNotRetryAuthFailure(t *testing.T) {
	var calls int
	s := newTestSink(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
	})

	err := s.Replace(context.Background(), "restaurants", [][]string{{"license_number"}})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestReplaceRetriesServerError(t *testing.T) {
	var calls int
	s := newTestSink(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{}`))
	})

	err := s.Replace(context.Background(), "restaurants", [][]string{{"license_number"}, {"7"}})
	require.NoError(t, err)
	// One failed clear, one successful clear, one update.
	assert.Equal(t, 3, calls)
}

func TestReplaceSendsBearerToken(t *testing.T) {
	var auth string
	s := newTestSink(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	})

	require.NoError(t, s.Replace(context.Background(), "restaurants", [][]string{{"a"}}))
	assert.Equal(t, "Bearer token", auth)
}

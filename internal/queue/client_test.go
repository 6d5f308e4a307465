package queue

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func TestPendingOrZero_ReturnsCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pendingTasks": 7}`))
	}))
	defer srv.Close()

	logger, _ := test.NewNullLogger()
	c := NewClient(srv.URL, logger)
	assert.Equal(t, 7, c.PendingOrZero(context.Background(), "proj", "gecko-t-bitbar-gw-perf-p2"))
}

func TestPendingOrZero_TransportErrorDegradesToZero(t *testing.T) {
	logger, _ := test.NewNullLogger()
	c := NewClient("http://127.0.0.1:1", logger)
	assert.Equal(t, 0, c.PendingOrZero(context.Background(), "proj", "worker"))
}

func TestPendingOrZero_NonSuccessStatusDegradesToZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	logger, _ := test.NewNullLogger()
	c := NewClient(srv.URL, logger)
	assert.Equal(t, 0, c.PendingOrZero(context.Background(), "proj", "worker"))
}

func TestPendingOrZero_NegativeCountDegradesToZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pendingTasks": -3}`))
	}))
	defer srv.Close()

	logger, _ := test.NewNullLogger()
	c := NewClient(srv.URL, logger)
	assert.Equal(t, 0, c.PendingOrZero(context.Background(), "proj", "worker"))
}

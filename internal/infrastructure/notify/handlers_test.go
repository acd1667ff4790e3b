package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailhub/internal/core/id"
	"retailhub/internal/infrastructure/storage/postgres"
)

func message() *postgres.OutboxMessage {
	return &postgres.OutboxMessage{
		ID:          id.New(),
		AggregateID: id.New(),
		StoreID:     "S1",
		EventType:   "inventory.movement_recorded",
		Payload:     []byte(`{"sequence":3}`),
	}
}

func TestWebhookHandler_Delivers(t *testing.T) {
	var gotBody, gotType, gotStore string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotType = r.Header.Get("X-Event-Type")
		gotStore = r.Header.Get("X-Store-ID")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	err := NewWebhookHandler(srv.URL, time.Second).Handle(context.Background(), message())
	require.NoError(t, err)
	assert.Equal(t, `{"sequence":3}`, gotBody)
	assert.Equal(t, "inventory.movement_recorded", gotType)
	assert.Equal(t, "S1", gotStore)
}

func TestWebhookHandler_FailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewWebhookHandler(srv.URL, time.Second).Handle(context.Background(), message())
	assert.ErrorContains(t, err, "503")
}

func TestLogHandler(t *testing.T) {
	assert.NoError(t, LogHandler{}.Handle(context.Background(), message()))
}

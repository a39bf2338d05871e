package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMSSink_Send(t *testing.T) {
	var got commsSendRequest
	var gotKey string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-integration-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(commsSendResponse{Success: true})
	}))
	defer srv.Close()

	sink := NewSMSSink(SMSConfig{
		APIURL:     srv.URL,
		APIKey:     "key-123",
		Recipients: []string{"+61400000001"},
	}, testLogger(t))

	err := sink.Send(context.Background(), Message{Subject: "Tomorrow's Cleaning: 2 in, 1 out"})
	require.NoError(t, err)

	assert.Equal(t, "key-123", gotKey)
	assert.Equal(t, []string{"sms"}, got.Channels)
	assert.Equal(t, []string{"+61400000001"}, got.To)
	assert.Equal(t, "Tomorrow's Cleaning: 2 in, 1 out", got.Body)
}

func TestSMSSink_APIFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sink := NewSMSSink(SMSConfig{APIURL: srv.URL, APIKey: "k"}, testLogger(t))

	err := sink.Send(context.Background(), Message{Subject: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestSMSSink_UnsuccessfulResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(commsSendResponse{Success: false, Error: "quota exceeded"})
	}))
	defer srv.Close()

	sink := NewSMSSink(SMSConfig{APIURL: srv.URL, APIKey: "k"}, testLogger(t))

	err := sink.Send(context.Background(), Message{Body: "hello"})
	require.Error(t, err)
}

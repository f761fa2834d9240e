// ABOUTME: Tests for the outbound gateway REST client
// ABOUTME: Uses httptest to verify request shape, auth, and error handling

package twilio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessage(t *testing.T) {
	var gotPath, gotTo, gotFrom, gotBody, gotUser, gotPass string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		require.NoError(t, r.ParseForm())
		gotTo = r.PostForm.Get("To")
		gotFrom = r.PostForm.Get("From")
		gotBody = r.PostForm.Get("Body")

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"SM123","status":"queued"}`))
	}))
	defer srv.Close()

	client := NewClient("AC001", "tok", "+15559990000", srv.URL)

	sid, err := client.SendMessage(context.Background(), "+15550001111", "hello")
	require.NoError(t, err)

	assert.Equal(t, "SM123", sid)
	assert.Equal(t, "/2010-04-01/Accounts/AC001/Messages.json", gotPath)
	assert.Equal(t, "AC001", gotUser)
	assert.Equal(t, "tok", gotPass)
	assert.Equal(t, "+15550001111", gotTo)
	assert.Equal(t, "+15559990000", gotFrom)
	assert.Equal(t, "hello", gotBody)
}

func TestSendMessage_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"The 'To' number is not a valid phone number.","status":"failed"}`))
	}))
	defer srv.Close()

	client := NewClient("AC001", "tok", "+15559990000", srv.URL)

	_, err := client.SendMessage(context.Background(), "garbage", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "not a valid phone number")
}

func TestSendMessage_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"sid":"SM123"}`))
	}))
	defer srv.Close()

	client := NewClient("AC001", "tok", "+15559990000", srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.SendMessage(ctx, "+15550001111", "hello")
	assert.Error(t, err)
}

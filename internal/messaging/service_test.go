package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/bazaar/internal/api"
	"github.com/sudo-init-do/bazaar/internal/identity"
)

func newTestService(t *testing.T, h http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewService(NewClient(api.New(srv.URL)), identity.ContextResolver{})
}

func signedIn(uid string) context.Context {
	return identity.WithPrincipal(context.Background(), identity.NewTokenPrincipal(uid, "", "tok"))
}

func TestListsCoerceNull(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("null"))
	})

	msgs, err := svc.WithUser(signedIn("me"), "u2")
	require.NoError(t, err)
	assert.Equal(t, []Message{}, msgs)

	convs, err := svc.Conversations(signedIn("me"))
	require.NoError(t, err)
	assert.Equal(t, []Conversation{}, convs)
}

func TestSendTrimsAndRejectsEmpty(t *testing.T) {
	var got []CreateMessageRequest
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		var req CreateMessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		got = append(got, req)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Message{ID: "m1", ReceiverID: req.ReceiverID, Content: req.Content})
	})

	_, err := svc.Send(signedIn("me"), "u2", "   \n")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = svc.Send(context.Background(), "u2", "hi")
	assert.ErrorIs(t, err, identity.ErrNotAuthenticated)

	m, err := svc.Send(signedIn("me"), "u2", "  hi there ")
	require.NoError(t, err)
	assert.Equal(t, "hi there", m.Content)
	assert.Equal(t, []CreateMessageRequest{{ReceiverID: "u2", Content: "hi there"}}, got)
}

func TestThreadDirection(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages/with/u2", r.URL.Path)
		json.NewEncoder(w).Encode([]Message{
			{ID: "2", SenderID: "u2", ReceiverID: "me", Content: "hello back", CreatedAt: t0.Add(time.Minute)},
			{ID: "1", SenderID: "me", ReceiverID: "u2", Content: "hello", CreatedAt: t0},
		})
	})

	thread, err := svc.Thread(signedIn("me"), "u2")
	require.NoError(t, err)
	require.Len(t, thread, 2)
	assert.Equal(t, "1", thread[0].ID)
	assert.True(t, thread[0].Outgoing)
	assert.False(t, thread[1].Outgoing)
}

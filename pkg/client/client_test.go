package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agorachat/agora/internal/model"
)

func fakeServer(t *testing.T, messages []model.Message, users []model.User) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/users", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(model.ListUsersResponse{Users: users})
	})
	mux.HandleFunc("/api/v1/messages", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(model.ListMessagesResponse{Messages: messages, Users: users})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHydrateBuildsView(t *testing.T) {
	srv := fakeServer(t,
		[]model.Message{msg("m2", 200, "second"), msg("m1", 100, "first")},
		[]model.User{{ID: "alice", Name: "Alice"}},
	)

	c := New(Options{BaseURL: srv.URL, Token: "test-token"})
	require.NoError(t, c.hydrate(context.Background()))

	v := c.View()
	assert.Equal(t, AuthAuthenticated, v.AuthStatus)
	assert.Equal(t, []string{"m1", "m2"}, orderedIDs(v))
	assert.Contains(t, v.Users, "alice")
}

func TestPollMergesThroughReducer(t *testing.T) {
	srv := fakeServer(t,
		[]model.Message{msg("m1", 100, "first")},
		[]model.User{{ID: "alice", Name: "Alice"}},
	)

	c := New(Options{BaseURL: srv.URL, Token: "test-token"})

	// A message the poll response does not know about must survive the
	// merge; polling upserts, it never replaces.
	c.Dispatch(UpsertMessages{Messages: []model.Message{msg("m0", 50, "local")}})

	require.NoError(t, c.Poll(context.Background()))
	require.NoError(t, c.Poll(context.Background()), "polling must be idempotent")

	v := c.View()
	assert.Equal(t, []string{"m0", "m1"}, orderedIDs(v))
}

func TestDispatchNotifiesObserver(t *testing.T) {
	var got []View
	c := New(Options{BaseURL: "http://localhost", OnChange: func(v View) { got = append(got, v) }})

	c.Dispatch(SetTyping{UserIDs: []string{"alice"}})

	require.Len(t, got, 1)
	assert.Equal(t, []string{"alice"}, got[0].TypingUsers)
}

func TestWebsocketURL(t *testing.T) {
	c := New(Options{BaseURL: "http://example.com"})
	u, err := c.websocketURL()
	require.NoError(t, err)
	assert.Equal(t, "ws://example.com/ws", u)

	c = New(Options{BaseURL: "https://example.com/room/"})
	u, err = c.websocketURL()
	require.NoError(t, err)
	assert.Equal(t, "wss://example.com/room/ws", u)
}

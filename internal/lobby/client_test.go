package lobby

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testServer reproduces cmd/lookup's two handlers against an
// in-memory RoomStore, so Client can be exercised end to end over
// real HTTP without spinning up the actual binary.
func testServer(t *testing.T, store *RoomStore) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Host       string `json:"host"`
			Name       string `json:"name"`
			MaxPlayers int    `json:"max_players"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		room, err := store.Create(req.Host, req.Name, req.MaxPlayers)
		require.NoError(t, err)
		w.WriteHeader(http.StatusCreated)
		require.NoError(t, json.NewEncoder(w).Encode(room))
	})
	mux.HandleFunc("/rooms/", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Path[len("/rooms/"):]
		switch r.Method {
		case http.MethodGet:
			room, err := store.Lookup(code)
			if err != nil {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			require.NoError(t, json.NewEncoder(w).Encode(room))
		case http.MethodDelete:
			store.Delete(code)
			w.WriteHeader(http.StatusNoContent)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientRegisterThenResolveRoundTrips(t *testing.T) {
	store := NewRoomStore(time.Minute)
	srv := testServer(t, store)

	c := NewClient(srv.URL)
	room, err := c.Register("10.0.0.5:7777", "alice's game", 4)
	require.NoError(t, err)
	require.NotEmpty(t, room.Code)

	found, err := c.Resolve(room.Code)
	require.NoError(t, err)
	require.Equal(t, room.Host, found.Host)
}

func TestClientResolveUnknownCodeErrors(t *testing.T) {
	store := NewRoomStore(time.Minute)
	srv := testServer(t, store)

	_, err := NewClient(srv.URL).Resolve("ZZZZ-ZZZZ")
	require.Error(t, err)
}

func TestClientForgetRemovesRoom(t *testing.T) {
	store := NewRoomStore(time.Minute)
	srv := testServer(t, store)

	c := NewClient(srv.URL)
	room, err := c.Register("10.0.0.5:7777", "bob's game", 2)
	require.NoError(t, err)

	require.NoError(t, c.Forget(room.Code))
	_, err = c.Resolve(room.Code)
	require.Error(t, err)
}

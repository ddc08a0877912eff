// Command lookup is the room code lookup service: a tiny LAN/direct-IP
// discovery service a host registers a room with, and a client queries
// before dialing the engine's own UDP transport.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/fnuecke/Space-sub012/internal/lobby"
	"github.com/fnuecke/Space-sub012/internal/obslog"
)

// Version is set at build time
var Version = "dev"

type createRequest struct {
	Host       string `json:"host"`
	Name       string `json:"name"`
	MaxPlayers int    `json:"max_players"`
}

func main() {
	port := flag.Int("port", 7778, "HTTP port to listen on")
	ttl := flag.Duration("ttl", 10*time.Minute, "how long an unrefreshed room stays discoverable")
	flag.Parse()

	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "lookup").Logger()
	store := lobby.NewRoomStore(*ttl)

	mux := http.NewServeMux()
	mux.HandleFunc("/rooms", handleRooms(log, store))
	mux.HandleFunc("/rooms/", handleRoom(log, store))

	addr := fmt.Sprintf(":%d", *port)
	obslog.Info(log, "lookup.listening", obslog.NoFrame, obslog.F("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		obslog.Error(log, "lookup.server_failed", obslog.NoFrame, obslog.F("err", err))
		os.Exit(1)
	}
}

func handleRooms(log zerolog.Logger, store *lobby.RoomStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req createRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "malformed request body", http.StatusBadRequest)
			return
		}
		if req.Host == "" {
			http.Error(w, "host is required", http.StatusBadRequest)
			return
		}
		if req.MaxPlayers <= 0 {
			req.MaxPlayers = 4
		}
		room, err := store.Create(req.Host, req.Name, req.MaxPlayers)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		obslog.Info(log, "lookup.room_created", obslog.NoFrame, obslog.F("code", room.Code), obslog.F("host", room.Host))
		writeJSON(w, http.StatusCreated, room)
	}
}

func handleRoom(log zerolog.Logger, store *lobby.RoomStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Path[len("/rooms/"):]
		if code == "" {
			http.Error(w, "room code is required", http.StatusBadRequest)
			return
		}
		switch r.Method {
		case http.MethodGet:
			room, err := store.Lookup(code)
			if err != nil {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			writeJSON(w, http.StatusOK, room)
		case http.MethodDelete:
			store.Delete(code)
			obslog.Info(log, "lookup.room_deleted", obslog.NoFrame, obslog.F("code", code))
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

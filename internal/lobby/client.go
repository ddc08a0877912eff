package lobby

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client is the discovery-side counterpart to RoomStore: it talks to
// a remote lookup service over HTTP instead of holding rooms itself.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a Client pointed at a lookup service's base URL,
// e.g. "http://lookup.lan:7778".
func NewClient(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: 5 * time.Second}}
}

// Register asks the lookup service to mint a room code for host.
func (c *Client) Register(host, name string, maxPlayers int) (*Room, error) {
	body, err := json.Marshal(struct {
		Host       string `json:"host"`
		Name       string `json:"name"`
		MaxPlayers int    `json:"max_players"`
	}{Host: host, Name: name, MaxPlayers: maxPlayers})
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Post(c.baseURL+"/rooms", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("lobby: register: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("lobby: register: status %d", resp.StatusCode)
	}

	var room Room
	if err := json.NewDecoder(resp.Body).Decode(&room); err != nil {
		return nil, fmt.Errorf("lobby: register: decode: %w", err)
	}
	return &room, nil
}

// Resolve looks up code and returns the host:port a client should
// dial over UDP.
func (c *Client) Resolve(code string) (*Room, error) {
	resp, err := c.http.Get(c.baseURL + "/rooms/" + code)
	if err != nil {
		return nil, fmt.Errorf("lobby: resolve: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lobby: resolve: status %d", resp.StatusCode)
	}

	var room Room
	if err := json.NewDecoder(resp.Body).Decode(&room); err != nil {
		return nil, fmt.Errorf("lobby: resolve: decode: %w", err)
	}
	return &room, nil
}

// Forget deletes code from the lookup service, freeing it for reuse.
func (c *Client) Forget(code string) error {
	req, err := http.NewRequest(http.MethodDelete, c.baseURL+"/rooms/"+code, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("lobby: forget: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("lobby: forget: status %d", resp.StatusCode)
	}
	return nil
}

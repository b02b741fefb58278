// Package authority is the HTTP and WebSocket client for the remote game
// authority. The authority holds the single true game state and enforces
// final rule legality; this package only transports requests and decodes
// the snapshots and events that come back.
package authority

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// RemoteError is a non-2xx response from the authority. Detail carries
// the authority's own message so the UI log can show it verbatim.
type RemoteError struct {
	Status int
	Path   string
	Detail string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("authority: %s: status %d: %s", e.Path, e.Status, e.Detail)
}

// Client talks to a single authority server on behalf of one player.
type Client struct {
	baseURL string
	token   string
	httpC   *http.Client
}

// NewClient creates a client targeting the given server URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpC:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Token returns the current access token (empty before login).
func (c *Client) Token() string { return c.token }

// SetToken installs a previously issued access token.
func (c *Client) SetToken(token string) { c.token = token }

type loginResponse struct {
	AccessToken string `json:"access_token"`
	Player      struct {
		ID       string `json:"id"`
		Email    string `json:"email"`
		Username string `json:"username"`
	} `json:"player"`
}

// Login authenticates with email and password and stores the returned
// access token on the client.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var resp loginResponse
	err := c.postJSON(ctx, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return err
	}
	c.token = resp.AccessToken
	log.Debug().Str("player", resp.Player.Username).Msg("Logged in to authority")
	return nil
}

// Register creates an account and stores the returned access token.
func (c *Client) Register(ctx context.Context, email, username, password string) error {
	var resp loginResponse
	err := c.postJSON(ctx, "/auth/register", map[string]string{
		"email":    email,
		"username": username,
		"password": password,
	}, &resp)
	if err != nil {
		return err
	}
	c.token = resp.AccessToken
	return nil
}

// GetGame fetches the full snapshot, the game's definitions, and whether
// the authenticated player may currently act.
func (c *Client) GetGame(ctx context.Context, gameID string) (*GameBundle, error) {
	var bundle GameBundle
	if err := c.getJSON(ctx, "/games/"+gameID, &bundle); err != nil {
		return nil, err
	}
	return &bundle, nil
}

// AvailableActions fetches the per-phase action menu for the acting
// faction: purchasable units, authoritative destination lists, declared
// battles, retreat options, mobilization territories and capacities.
func (c *Client) AvailableActions(ctx context.Context, gameID string) (*AvailableActions, error) {
	var actions AvailableActions
	if err := c.getJSON(ctx, "/games/"+gameID+"/available-actions", &actions); err != nil {
		return nil, err
	}
	return &actions, nil
}

// Purchase submits a unit-type to quantity map for purchase.
func (c *Client) Purchase(ctx context.Context, gameID string, purchases map[string]int) (*ActionResponse, error) {
	return c.action(ctx, gameID, "/purchase", map[string]any{
		"game_id":   gameID,
		"purchases": purchases,
	})
}

// PurchaseCamp buys a single camp at the setup's camp cost.
func (c *Client) PurchaseCamp(ctx context.Context, gameID string) (*ActionResponse, error) {
	return c.action(ctx, gameID, "/purchase-camp", map[string]any{"game_id": gameID})
}

// Move submits a move of explicit unit instances from one territory to
// another. The move stays pending (and cancelable) until its phase ends.
func (c *Client) Move(ctx context.Context, gameID, from, to string, instanceIDs []string) (*ActionResponse, error) {
	return c.action(ctx, gameID, "/move", map[string]any{
		"game_id":           gameID,
		"from_territory":    from,
		"to_territory":      to,
		"unit_instance_ids": instanceIDs,
	})
}

// CancelMove cancels a pending move by its index in the snapshot's
// pending-move list.
func (c *Client) CancelMove(ctx context.Context, gameID string, index int) (*ActionResponse, error) {
	return c.action(ctx, gameID, "/cancel-move", map[string]any{
		"game_id":    gameID,
		"move_index": index,
	})
}

// CancelMobilization cancels a pending mobilization by index; the units
// return to the purchased pool.
func (c *Client) CancelMobilization(ctx context.Context, gameID string, index int) (*ActionResponse, error) {
	return c.action(ctx, gameID, "/cancel-mobilization", map[string]any{
		"game_id":            gameID,
		"mobilization_index": index,
	})
}

// Mobilize deploys purchased units to an owned stronghold.
func (c *Client) Mobilize(ctx context.Context, gameID, destination string, units []UnitStack) (*ActionResponse, error) {
	return c.action(ctx, gameID, "/mobilize", map[string]any{
		"game_id":     gameID,
		"destination": destination,
		"units":       units,
	})
}

// InitiateCombat opens the battle in a contested territory and resolves
// its first round (an archer prefire sub-round when the defender has
// archers, otherwise a full round).
func (c *Client) InitiateCombat(ctx context.Context, gameID, territoryID string) (*ActionResponse, error) {
	return c.action(ctx, gameID, "/combat/initiate", map[string]any{
		"game_id":      gameID,
		"territory_id": territoryID,
	})
}

// ContinueCombat rolls the next round of the currently active battle.
func (c *Client) ContinueCombat(ctx context.Context, gameID string) (*ActionResponse, error) {
	return c.action(ctx, gameID, "/combat/continue", map[string]any{"game_id": gameID})
}

// Retreat withdraws the surviving attackers to the given destination,
// ending the active battle.
func (c *Client) Retreat(ctx context.Context, gameID, destination string) (*ActionResponse, error) {
	return c.action(ctx, gameID, "/combat/retreat", map[string]any{
		"game_id":    gameID,
		"retreat_to": destination,
	})
}

// EndPhase advances the game to the next phase.
func (c *Client) EndPhase(ctx context.Context, gameID string) (*ActionResponse, error) {
	return c.action(ctx, gameID, "/end-phase", map[string]any{"game_id": gameID})
}

// EndTurn ends the current faction's turn from the mobilize phase.
func (c *Client) EndTurn(ctx context.Context, gameID string) (*ActionResponse, error) {
	return c.action(ctx, gameID, "/end-turn", map[string]any{"game_id": gameID})
}

func (c *Client) action(ctx context.Context, gameID, suffix string, payload any) (*ActionResponse, error) {
	var resp ActionResponse
	if err := c.postJSON(ctx, "/games/"+gameID+suffix, payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, path, out)
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader([]byte("{}"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bodyReader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path, out)
}

func (c *Client) do(req *http.Request, path string, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpC.Do(req)
	if err != nil {
		return fmt.Errorf("authority: %s %s: %w", req.Method, path, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return &RemoteError{
			Status: resp.StatusCode,
			Path:   path,
			Detail: remoteDetail(body),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("authority: decode %s response: %w", path, err)
	}
	return nil
}

// remoteDetail extracts the authority's detail message from an error
// body, falling back to the raw body.
func remoteDetail(body []byte) string {
	var wrapper struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &wrapper); err == nil && wrapper.Detail != "" {
		return wrapper.Detail
	}
	return strings.TrimSpace(string(body))
}

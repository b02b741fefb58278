package authority

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WSEvent is a push notification from the authority: something changed
// in a game this client subscribed to, so the session should refresh its
// snapshot.
type WSEvent struct {
	Type   string         `json:"type"`
	GameID string         `json:"game_id"`
	Data   map[string]any `json:"data"`
}

// Feed is a WebSocket subscription to authority push events.
type Feed struct {
	conn   *websocket.Conn
	events chan WSEvent

	mu     sync.Mutex
	closed bool
}

// ConnectFeed opens the push-event WebSocket using the client's token.
func (c *Client) ConnectFeed() (*Feed, error) {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/ws?token=" + url.QueryEscape(c.token)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("authority: ws dial: %w", err)
	}
	f := &Feed{
		conn:   conn,
		events: make(chan WSEvent, 64),
	}
	go f.readLoop()
	return f, nil
}

// Subscribe asks for push events about the given game.
func (f *Feed) Subscribe(gameID string) error {
	msg := map[string]string{"action": "subscribe", "game_id": gameID}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conn.WriteJSON(msg)
}

// Events returns the channel of incoming push events. It is closed when
// the connection drops or Close is called.
func (f *Feed) Events() <-chan WSEvent { return f.events }

// Close shuts the connection down cleanly.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	f.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	f.conn.Close()
}

func (f *Feed) readLoop() {
	defer close(f.events)
	for {
		var event WSEvent
		if err := f.conn.ReadJSON(&event); err != nil {
			f.mu.Lock()
			closed := f.closed
			f.mu.Unlock()
			if !closed {
				log.Debug().Err(err).Msg("Authority feed read error")
			}
			return
		}
		f.events <- event
	}
}

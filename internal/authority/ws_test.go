package authority

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestFeed_SubscribeAndReceive(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("token") != "tok123" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		var sub map[string]string
		if err := conn.ReadJSON(&sub); err != nil {
			t.Errorf("read subscribe: %v", err)
			return
		}
		if sub["action"] != "subscribe" || sub["game_id"] != "g1" {
			t.Errorf("unexpected subscribe message %v", sub)
		}

		conn.WriteJSON(WSEvent{Type: "game_updated", GameID: "g1"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.SetToken("tok123")

	feed, err := c.ConnectFeed()
	if err != nil {
		t.Fatal(err)
	}
	defer feed.Close()

	if err := feed.Subscribe("g1"); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-feed.Events():
		if ev.Type != "game_updated" || ev.GameID != "g1" {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for push event")
	}
}

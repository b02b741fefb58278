package authority

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL)
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func TestLogin_StoresTokenAndSendsBearer(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode login body: %v", err)
		}
		if body["email"] != "p@example.com" || body["password"] != "hunter2" {
			t.Errorf("unexpected credentials %v", body)
		}
		writeJSON(t, w, map[string]any{
			"access_token": "tok123",
			"player":       map[string]string{"id": "p1", "email": "p@example.com", "username": "player"},
		})
	})
	mux.HandleFunc("/games/g1", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(t, w, GameBundle{GameID: "g1", CanAct: true})
	})

	c := newTestServer(t, mux)
	if err := c.Login(context.Background(), "p@example.com", "hunter2"); err != nil {
		t.Fatal(err)
	}
	if c.Token() != "tok123" {
		t.Fatalf("expected stored token, got %q", c.Token())
	}

	bundle, err := c.GetGame(context.Background(), "g1")
	if err != nil {
		t.Fatal(err)
	}
	if !bundle.CanAct {
		t.Error("expected can_act decoded")
	}
	if gotAuth != "Bearer tok123" {
		t.Fatalf("expected bearer header, got %q", gotAuth)
	}
}

func TestMove_PayloadShape(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/games/g1/move", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			GameID          string   `json:"game_id"`
			FromTerritory   string   `json:"from_territory"`
			ToTerritory     string   `json:"to_territory"`
			UnitInstanceIDs []string `json:"unit_instance_ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode move body: %v", err)
		}
		if body.FromTerritory != "a" || body.ToTerritory != "b" {
			t.Errorf("unexpected territories %+v", body)
		}
		if len(body.UnitInstanceIDs) != 2 || body.UnitInstanceIDs[0] != "u1" {
			t.Errorf("unexpected instances %v", body.UnitInstanceIDs)
		}
		writeJSON(t, w, ActionResponse{CanAct: true})
	})

	c := newTestServer(t, mux)
	resp, err := c.Move(context.Background(), "g1", "a", "b", []string{"u1", "u2"})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.CanAct {
		t.Error("expected decoded response")
	}
}

func TestRemoteError_CarriesDetail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/games/g1/end-phase", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(t, w, map[string]string{"detail": "unresolved combats remain"})
	})

	c := newTestServer(t, mux)
	_, err := c.EndPhase(context.Background(), "g1")

	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remote.Status != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", remote.Status)
	}
	if remote.Detail != "unresolved combats remain" {
		t.Errorf("expected authority detail, got %q", remote.Detail)
	}
}

func TestRemoteError_FallsBackToRawBody(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/games/g1", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	})

	c := newTestServer(t, mux)
	_, err := c.GetGame(context.Background(), "g1")

	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remote.Detail != "internal error" {
		t.Errorf("expected raw body detail, got %q", remote.Detail)
	}
}

func TestActionResponse_DecodesSnapshotAndEvents(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/games/g1/combat/initiate", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"state": map[string]any{
				"turn_number":     2,
				"current_faction": "crown",
				"phase":           "combat",
				"territories":     map[string]any{},
			},
			"events": []map[string]any{
				{"type": "combat_started", "payload": map[string]string{"territory": "thornwood"}},
			},
			"can_act": true,
		})
	})

	c := newTestServer(t, mux)
	resp, err := c.InitiateCombat(context.Background(), "g1", "thornwood")
	if err != nil {
		t.Fatal(err)
	}
	if resp.State.TurnNumber != 2 || resp.State.CurrentFaction != "crown" {
		t.Errorf("unexpected snapshot %+v", resp.State)
	}
	if len(resp.Events) != 1 || resp.Events[0].Type != "combat_started" {
		t.Errorf("unexpected events %+v", resp.Events)
	}
}

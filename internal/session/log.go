package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/freeeve/warfront/client/internal/authority"
)

// maxLogEntries bounds the display log; older entries roll off.
const maxLogEntries = 200

// LogEntry is one line of the in-game event feed.
type LogEntry struct {
	Time    time.Time
	Kind    string
	Message string
	IsError bool
}

// EventLog keeps the human-readable feed of what happened in the game:
// every event the authority attaches to a response, plus local errors
// worth surfacing. It is display state only and is never persisted.
type EventLog struct {
	log     zerolog.Logger
	entries []LogEntry
}

// NewEventLog returns an empty log.
func NewEventLog(logger zerolog.Logger) *EventLog {
	return &EventLog{log: logger}
}

// Entries returns the feed, oldest first.
func (el *EventLog) Entries() []LogEntry { return el.entries }

// Append formats and records a batch of authority events.
func (el *EventLog) Append(events []authority.GameEvent) {
	for _, ev := range events {
		msg := describeEvent(ev)
		el.push(LogEntry{Time: time.Now(), Kind: ev.Type, Message: msg})
		el.log.Debug().Str("event", ev.Type).Msg(msg)
	}
}

// AppendError records a surfaced failure in the feed.
func (el *EventLog) AppendError(err error) {
	if err == nil {
		return
	}
	el.push(LogEntry{Time: time.Now(), Kind: "error", Message: err.Error(), IsError: true})
	el.log.Warn().Err(err).Msg("Action failed")
}

func (el *EventLog) push(e LogEntry) {
	el.entries = append(el.entries, e)
	if len(el.entries) > maxLogEntries {
		el.entries = el.entries[len(el.entries)-maxLogEntries:]
	}
}

// describeEvent renders one event as a feed line. Unknown types fall
// back to the raw tag so new authority events still show up.
func describeEvent(ev authority.GameEvent) string {
	switch ev.Type {
	case authority.EventPhaseChanged:
		var p struct {
			Phase   string `json:"phase"`
			Faction string `json:"faction"`
		}
		if json.Unmarshal(ev.Payload, &p) == nil && p.Phase != "" {
			return fmt.Sprintf("%s entered the %s phase", p.Faction, p.Phase)
		}
	case authority.EventTurnStarted:
		var p struct {
			Faction string `json:"faction"`
			Turn    int    `json:"turn_number"`
		}
		if json.Unmarshal(ev.Payload, &p) == nil && p.Faction != "" {
			return fmt.Sprintf("Turn %d: %s", p.Turn, p.Faction)
		}
	case authority.EventUnitsMoved:
		var p struct {
			From  string `json:"from_territory"`
			To    string `json:"to_territory"`
			Count int    `json:"count"`
		}
		if json.Unmarshal(ev.Payload, &p) == nil && p.To != "" {
			return fmt.Sprintf("%d units moved %s to %s", p.Count, p.From, p.To)
		}
	case authority.EventCombatStarted:
		var p struct {
			Territory string `json:"territory"`
		}
		if json.Unmarshal(ev.Payload, &p) == nil && p.Territory != "" {
			return fmt.Sprintf("Battle joined at %s", p.Territory)
		}
	case authority.EventCombatRoundResolved:
		var p struct {
			Territory string `json:"territory"`
			Round     int    `json:"round_number"`
			Prefire   bool   `json:"is_archer_prefire"`
		}
		if json.Unmarshal(ev.Payload, &p) == nil && p.Territory != "" {
			if p.Prefire {
				return fmt.Sprintf("Archers loose a volley at %s", p.Territory)
			}
			return fmt.Sprintf("Round %d resolved at %s", p.Round, p.Territory)
		}
	case authority.EventCombatEnded:
		var p authority.CombatEnded
		if json.Unmarshal(ev.Payload, &p) == nil && p.Territory != "" {
			switch p.Winner {
			case authority.WinnerAttacker:
				return fmt.Sprintf("%s takes %s", p.AttackerFaction, p.Territory)
			case authority.WinnerDefender:
				return fmt.Sprintf("%s holds %s", p.DefenderFaction, p.Territory)
			default:
				return fmt.Sprintf("Battle at %s ends in a draw", p.Territory)
			}
		}
	case authority.EventTerritoryCaptured:
		var p struct {
			Territory string `json:"territory"`
			Faction   string `json:"faction"`
		}
		if json.Unmarshal(ev.Payload, &p) == nil && p.Territory != "" {
			return fmt.Sprintf("%s captured %s", p.Faction, p.Territory)
		}
	case authority.EventVictory:
		var p struct {
			Winner string `json:"winner"`
		}
		if json.Unmarshal(ev.Payload, &p) == nil && p.Winner != "" {
			return fmt.Sprintf("%s wins the game", p.Winner)
		}
	}
	return ev.Type
}

package authority

import (
	"encoding/json"
	"fmt"

	"github.com/freeeve/warfront/client/pkg/conquest"
)

// Event type tags the authority attaches to mutating responses. The
// client inspects only the combat pair; everything else goes to the
// display log untouched.
const (
	EventPhaseChanged        = "phase_changed"
	EventTurnStarted         = "turn_started"
	EventTurnEnded           = "turn_ended"
	EventUnitsPurchased      = "units_purchased"
	EventUnitsMoved          = "units_moved"
	EventUnitsMobilized      = "units_mobilized"
	EventCombatStarted       = "combat_started"
	EventCombatRoundResolved = "combat_round_resolved"
	EventCombatEnded         = "combat_ended"
	EventUnitsRetreated      = "units_retreated"
	EventTerritoryCaptured   = "territory_captured"
	EventVictory             = "victory"
)

// Combat winner verdicts carried in a combat_ended payload.
const (
	WinnerAttacker = "attacker"
	WinnerDefender = "defender"
	WinnerDraw     = "draw"
)

// CombatEnded is the decoded payload of a combat_ended event: the
// authority's definitive verdict for one battle.
type CombatEnded struct {
	Territory            string   `json:"territory"`
	Winner               string   `json:"winner"`
	AttackerFaction      string   `json:"attacker_faction"`
	DefenderFaction      string   `json:"defender_faction"`
	SurvivingAttackerIDs []string `json:"surviving_attacker_ids"`
	SurvivingDefenderIDs []string `json:"surviving_defender_ids"`
	TotalRounds          int      `json:"total_rounds"`
}

// DecodedEvent is the closed set of event interpretations the client
// performs. Callers switch on the concrete type: *RoundResolved,
// *BattleOver, or *GenericEvent.
type DecodedEvent interface {
	eventTag() string
}

// RoundResolved wraps one combat round record.
type RoundResolved struct {
	Round conquest.RoundRecord
}

func (*RoundResolved) eventTag() string { return EventCombatRoundResolved }

// BattleOver wraps a combat_ended verdict.
type BattleOver struct {
	Result CombatEnded
}

func (*BattleOver) eventTag() string { return EventCombatEnded }

// GenericEvent is any event the client displays but does not interpret.
type GenericEvent struct {
	Type    string
	Payload json.RawMessage
}

func (*GenericEvent) eventTag() string { return "generic" }

// DecodeEvent interprets a raw game event. Combat round and combat ended
// payloads are fully decoded; all other types pass through generically.
func DecodeEvent(ev GameEvent) (DecodedEvent, error) {
	switch ev.Type {
	case EventCombatRoundResolved:
		var round conquest.RoundRecord
		if err := json.Unmarshal(ev.Payload, &round); err != nil {
			return nil, fmt.Errorf("authority: decode %s payload: %w", ev.Type, err)
		}
		return &RoundResolved{Round: round}, nil
	case EventCombatEnded:
		var result CombatEnded
		if err := json.Unmarshal(ev.Payload, &result); err != nil {
			return nil, fmt.Errorf("authority: decode %s payload: %w", ev.Type, err)
		}
		return &BattleOver{Result: result}, nil
	default:
		return &GenericEvent{Type: ev.Type, Payload: ev.Payload}, nil
	}
}

// FindRound scans a response's events for the round record and, when the
// battle concluded, the final verdict. Round is nil when the response
// carried no combat round.
func FindRound(events []GameEvent) (round *conquest.RoundRecord, over *CombatEnded, err error) {
	for _, ev := range events {
		decoded, derr := DecodeEvent(ev)
		if derr != nil {
			return nil, nil, derr
		}
		switch d := decoded.(type) {
		case *RoundResolved:
			r := d.Round
			round = &r
		case *BattleOver:
			o := d.Result
			over = &o
		}
	}
	return round, over, nil
}

// Package testutil provides game fixtures and a scripted fake authority
// for session and client tests.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/freeeve/warfront/client/internal/authority"
	"github.com/freeeve/warfront/client/pkg/conquest"
)

// Fixture faction and territory ids used across tests.
const (
	FactionCrown = "crown"
	FactionEmber = "ember"

	Westmark  = "westmark"
	Ironvale  = "ironvale"
	Thornwood = "thornwood"
	Greyfen   = "greyfen"
	Blackmoor = "blackmoor"
)

// Definitions returns a small fixed rule set: two factions on opposing
// alliances, a five-territory map, and a handful of unit types covering
// the interesting movement and combat cases.
//
// Map adjacency:
//
//	westmark - ironvale - thornwood - greyfen
//	              |
//	          blackmoor
func Definitions() conquest.Definitions {
	return conquest.Definitions{
		Factions: map[string]conquest.FactionDef{
			FactionCrown: {ID: FactionCrown, DisplayName: "The Crown", Alliance: "dawn", Capital: Westmark},
			FactionEmber: {ID: FactionEmber, DisplayName: "Ember Pact", Alliance: "dusk", Capital: Greyfen},
		},
		Territories: map[string]conquest.TerritoryDef{
			Westmark: {
				ID: Westmark, DisplayName: "Westmark", Adjacent: []string{Ironvale},
				Produces: map[string]int{conquest.ResourcePower: 3}, IsStronghold: true, Ownable: true,
			},
			Ironvale: {
				ID: Ironvale, DisplayName: "Ironvale", Adjacent: []string{Westmark, Thornwood, Blackmoor},
				Produces: map[string]int{conquest.ResourcePower: 1}, Ownable: true,
			},
			Thornwood: {
				ID: Thornwood, DisplayName: "Thornwood", Adjacent: []string{Ironvale, Greyfen},
				Produces: map[string]int{conquest.ResourcePower: 1}, Ownable: true,
			},
			Greyfen: {
				ID: Greyfen, DisplayName: "Greyfen", Adjacent: []string{Thornwood},
				Produces: map[string]int{conquest.ResourcePower: 3}, IsStronghold: true, Ownable: true,
			},
			Blackmoor: {
				ID: Blackmoor, DisplayName: "Blackmoor", Adjacent: []string{Ironvale},
				Produces: map[string]int{conquest.ResourcePower: 1}, Ownable: true,
			},
		},
		Units: map[string]conquest.UnitDef{
			"crown_spear": {
				ID: "crown_spear", DisplayName: "Spearman", Faction: FactionCrown,
				Attack: 2, Defense: 3, Movement: 1, Health: 1, Dice: 1,
				Cost: map[string]int{conquest.ResourcePower: 3}, Purchasable: true,
			},
			"crown_archer": {
				ID: "crown_archer", DisplayName: "Archer", Faction: FactionCrown,
				Archetype: conquest.ArchetypeArcher,
				Attack:    2, Defense: 2, Movement: 1, Health: 1, Dice: 1,
				Cost: map[string]int{conquest.ResourcePower: 4}, Purchasable: true,
			},
			"crown_rider": {
				ID: "crown_rider", DisplayName: "Rider", Faction: FactionCrown,
				Attack: 4, Defense: 2, Movement: 2, Health: 1, Dice: 1,
				Cost: map[string]int{conquest.ResourcePower: 6}, Purchasable: true,
			},
			"crown_drake": {
				ID: "crown_drake", DisplayName: "Drake", Faction: FactionCrown,
				Tags:   []string{conquest.TagAerial},
				Attack: 5, Defense: 4, Movement: 3, Health: 2, Dice: 2,
				Cost: map[string]int{conquest.ResourcePower: 12}, Purchasable: true,
			},
			"ember_raider": {
				ID: "ember_raider", DisplayName: "Raider", Faction: FactionEmber,
				Attack: 3, Defense: 2, Movement: 1, Health: 1, Dice: 1,
				Cost: map[string]int{conquest.ResourcePower: 3}, Purchasable: true,
			},
			"ember_archer": {
				ID: "ember_archer", DisplayName: "Ember Archer", Faction: FactionEmber,
				Archetype: conquest.ArchetypeArcher,
				Attack:    2, Defense: 2, Movement: 1, Health: 1, Dice: 1,
				Cost: map[string]int{conquest.ResourcePower: 4}, Purchasable: true,
			},
		},
	}
}

// Snapshot returns a board in the given phase with crown acting: crown
// holds westmark and ironvale, ember holds thornwood and greyfen, and
// blackmoor is empty neutral.
func Snapshot(phase conquest.Phase) authority.Snapshot {
	return authority.Snapshot{
		TurnNumber:     1,
		CurrentFaction: FactionCrown,
		Phase:          phase,
		Territories: map[string]authority.TerritoryState{
			Westmark: {Owner: FactionCrown, Units: []authority.Unit{
				Unit("cs1", "crown_spear", 1),
				Unit("cs2", "crown_spear", 1),
				Unit("ca1", "crown_archer", 1),
			}},
			Ironvale: {Owner: FactionCrown, Units: []authority.Unit{
				Unit("cr1", "crown_rider", 2),
				Unit("cr2", "crown_rider", 2),
				Unit("cr3", "crown_rider", 2),
			}},
			Thornwood: {Owner: FactionEmber, Units: []authority.Unit{
				Unit("er1", "ember_raider", 1),
				Unit("ea1", "ember_archer", 1),
			}},
			Greyfen:   {Owner: FactionEmber, Units: []authority.Unit{Unit("er2", "ember_raider", 1)}},
			Blackmoor: {Owner: ""},
		},
		FactionResources: map[string]map[string]int{
			FactionCrown: {conquest.ResourcePower: 10},
			FactionEmber: {conquest.ResourcePower: 8},
		},
		FactionPurchasedUnits:   map[string][]authority.UnitStack{},
		MobilizationStrongholds: []string{Westmark},
	}
}

// Unit builds a healthy snapshot unit with matching base and remaining
// stats.
func Unit(instanceID, unitID string, movement int) authority.Unit {
	health := 1
	if unitID == "crown_drake" {
		health = 2
	}
	return authority.Unit{
		InstanceID:        instanceID,
		UnitID:            unitID,
		RemainingMovement: movement,
		BaseMovement:      movement,
		RemainingHealth:   health,
		BaseHealth:        health,
	}
}

// Bundle wraps a snapshot as a full game fetch response.
func Bundle(snap authority.Snapshot) *authority.GameBundle {
	return &authority.GameBundle{
		GameID:      "game-1",
		State:       snap,
		Definitions: Definitions(),
		CanAct:      true,
	}
}

// Actions returns a minimal action menu for the snapshot's phase.
func Actions(snap authority.Snapshot) *authority.AvailableActions {
	return &authority.AvailableActions{
		Faction:     snap.CurrentFaction,
		Phase:       snap.Phase,
		CanEndPhase: true,
	}
}

// OK wraps a snapshot as a successful mutating response.
func OK(snap authority.Snapshot, events ...authority.GameEvent) *authority.ActionResponse {
	return &authority.ActionResponse{State: snap, Events: events, CanAct: true}
}

// Event marshals a payload into a raw game event.
func Event(eventType string, payload any) authority.GameEvent {
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return authority.GameEvent{Type: eventType, Payload: raw}
}

// FakeAuthority is a scripted stand-in for the remote authority. Each
// mutating call pops the next queued response (or fails with the queued
// error) and records what was called; reads return the configured
// bundle and menu.
type FakeAuthority struct {
	Bundle    *authority.GameBundle
	Actions   *authority.AvailableActions
	Responses []*authority.ActionResponse
	Errs      []error

	Calls []string
}

// Script queues responses for upcoming mutating calls.
func (f *FakeAuthority) Script(responses ...*authority.ActionResponse) {
	f.Responses = append(f.Responses, responses...)
}

// Fail queues an error for the next mutating call.
func (f *FakeAuthority) Fail(err error) {
	f.Errs = append(f.Errs, err)
}

func (f *FakeAuthority) pop(call string) (*authority.ActionResponse, error) {
	f.Calls = append(f.Calls, call)
	if len(f.Errs) > 0 {
		err := f.Errs[0]
		f.Errs = f.Errs[1:]
		return nil, err
	}
	if len(f.Responses) == 0 {
		return nil, fmt.Errorf("testutil: no scripted response for %s", call)
	}
	resp := f.Responses[0]
	f.Responses = f.Responses[1:]
	// Keep reads consistent with the last applied state.
	if f.Bundle != nil {
		f.Bundle.State = resp.State
	}
	return resp, nil
}

func (f *FakeAuthority) GetGame(ctx context.Context, gameID string) (*authority.GameBundle, error) {
	f.Calls = append(f.Calls, "get_game")
	return f.Bundle, nil
}

func (f *FakeAuthority) AvailableActions(ctx context.Context, gameID string) (*authority.AvailableActions, error) {
	f.Calls = append(f.Calls, "available_actions")
	return f.Actions, nil
}

func (f *FakeAuthority) Purchase(ctx context.Context, gameID string, purchases map[string]int) (*authority.ActionResponse, error) {
	return f.pop(fmt.Sprintf("purchase %v", purchases))
}

func (f *FakeAuthority) PurchaseCamp(ctx context.Context, gameID string) (*authority.ActionResponse, error) {
	return f.pop("purchase_camp")
}

func (f *FakeAuthority) Move(ctx context.Context, gameID, from, to string, instanceIDs []string) (*authority.ActionResponse, error) {
	return f.pop(fmt.Sprintf("move %s->%s %v", from, to, instanceIDs))
}

func (f *FakeAuthority) CancelMove(ctx context.Context, gameID string, index int) (*authority.ActionResponse, error) {
	return f.pop(fmt.Sprintf("cancel_move %d", index))
}

func (f *FakeAuthority) CancelMobilization(ctx context.Context, gameID string, index int) (*authority.ActionResponse, error) {
	return f.pop(fmt.Sprintf("cancel_mobilization %d", index))
}

func (f *FakeAuthority) Mobilize(ctx context.Context, gameID, destination string, units []authority.UnitStack) (*authority.ActionResponse, error) {
	return f.pop(fmt.Sprintf("mobilize %s %v", destination, units))
}

func (f *FakeAuthority) InitiateCombat(ctx context.Context, gameID, territoryID string) (*authority.ActionResponse, error) {
	return f.pop(fmt.Sprintf("initiate_combat %s", territoryID))
}

func (f *FakeAuthority) ContinueCombat(ctx context.Context, gameID string) (*authority.ActionResponse, error) {
	return f.pop("continue_combat")
}

func (f *FakeAuthority) Retreat(ctx context.Context, gameID, destination string) (*authority.ActionResponse, error) {
	return f.pop(fmt.Sprintf("retreat %s", destination))
}

func (f *FakeAuthority) EndPhase(ctx context.Context, gameID string) (*authority.ActionResponse, error) {
	return f.pop("end_phase")
}

func (f *FakeAuthority) EndTurn(ctx context.Context, gameID string) (*authority.ActionResponse, error) {
	return f.pop("end_turn")
}

package conquest

import "errors"

var (
	// ErrInsufficientResources means the cart's total spend exceeds the
	// faction's ledger for at least one resource.
	ErrInsufficientResources = errors.New("conquest: insufficient resources")
	// ErrOverCapacity means the cart's unit count exceeds what the
	// faction can mobilize this turn.
	ErrOverCapacity = errors.New("conquest: exceeds mobilization capacity")
	// ErrUnknownUnit means the cart references a unit type not present
	// in the definitions.
	ErrUnknownUnit = errors.New("conquest: unknown unit type")
	// ErrNotPurchasable means the unit type exists but cannot be bought,
	// or belongs to another faction.
	ErrNotPurchasable = errors.New("conquest: unit not purchasable")
)

// ResourcePower is the primary resource every setup defines.
const ResourcePower = "power"

// Cart is a staged, unconfirmed set of purchases: unit quantities by type
// plus a separate camp count. It is cleared when the purchase phase ends
// (after submission) and reset whenever the phase advances away from
// purchase without submission.
type Cart struct {
	Units map[string]int `json:"units"`
	Camps int            `json:"camps"`
}

// NewCart returns an empty cart.
func NewCart() Cart {
	return Cart{Units: map[string]int{}}
}

// Clone returns a deep copy, used to keep the last-confirmed cart for
// modal revert.
func (c Cart) Clone() Cart {
	out := Cart{Units: make(map[string]int, len(c.Units)), Camps: c.Camps}
	for id, n := range c.Units {
		out.Units[id] = n
	}
	return out
}

// Empty reports whether nothing is staged.
func (c Cart) Empty() bool {
	return c.Camps == 0 && c.TotalUnits() == 0
}

// TotalUnits returns the number of units staged. Camps are excluded
// since they do not consume mobilization capacity.
func (c Cart) TotalUnits() int {
	total := 0
	for _, n := range c.Units {
		total += n
	}
	return total
}

// Spend returns the cart's total cost per resource, camps included.
func (c Cart) Spend(defs *Definitions, campCost int) (map[string]int, error) {
	total := map[string]int{}
	for unitID, count := range c.Units {
		if count <= 0 {
			continue
		}
		def, ok := defs.Units[unitID]
		if !ok {
			return nil, ErrUnknownUnit
		}
		for resource, amount := range def.Cost {
			total[resource] += amount * count
		}
	}
	if c.Camps > 0 {
		total[ResourcePower] += campCost * c.Camps
	}
	return total, nil
}

// CartLimits are the constraints a cart edit is validated against.
type CartLimits struct {
	Resources        map[string]int // faction's current ledger
	Capacity         int            // mobilization capacity this turn
	AlreadyPurchased int            // units bought earlier this phase, not yet mobilized
	CampCost         int
	Faction          string
}

// Validate checks the cart invariant: spend within resources and unit
// count within remaining mobilization capacity. It returns the first
// violated constraint, or nil.
func (c Cart) Validate(defs *Definitions, limits CartLimits) error {
	for unitID, count := range c.Units {
		if count <= 0 {
			continue
		}
		def, ok := defs.Units[unitID]
		if !ok {
			return ErrUnknownUnit
		}
		if !def.Purchasable || def.Faction != limits.Faction {
			return ErrNotPurchasable
		}
	}
	spend, err := c.Spend(defs, limits.CampCost)
	if err != nil {
		return err
	}
	for resource, needed := range spend {
		if needed > limits.Resources[resource] {
			return ErrInsufficientResources
		}
	}
	if limits.AlreadyPurchased+c.TotalUnits() > limits.Capacity {
		return ErrOverCapacity
	}
	return nil
}

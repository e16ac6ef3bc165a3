// Package character defines the character sheet aggregate and pure creation logic.
package character

import (
	"sort"

	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/ruleset"
)

// InfiniteDuration marks an effect that end-of-turn aging never removes.
const InfiniteDuration = -1

// ManualCategory is the category of ad-hoc effects added by hand.
const ManualCategory = "manual"

// Character states read by end-of-turn regeneration.
const (
	StateBleeding     = "Bleeding"
	StateTakingDamage = "Taking Damage"
	StateInFight      = "In Fight"
	StateSleeping     = "Sleeping"
)

// CounterPermanentRegen is the counter that keeps health regenerating while
// bleeding or taking damage. Count choices on the health regen stat raise it.
const CounterPermanentRegen = ruleset.HealthRegen

// Effect is a timed or permanent modifier folded into one stage of a stat's pipeline.
//
// When StatsAffected is set the effect is formula-valued: operand i evaluates to
// "<total of StatsAffected[i]> Types[i] Values[i]". Otherwise Values are literals
// for the stat that owns the effect.
type Effect struct {
	StatsAffected []string          `json:"statsAffected,omitempty"`
	Types         []string          `json:"types,omitempty"`
	Values        []float64         `json:"values"`
	Type          ruleset.Operator  `json:"type"`
	AppliesTo     ruleset.AppliesTo `json:"appliesTo"`
	IsPercent     bool              `json:"isPercent"`
	// Duration is the turns left. Negative is infinite; a saved effect without
	// one decodes as InfiniteDuration.
	Duration      int               `json:"duration"`
	Identifier    string            `json:"identifier,omitempty"`
	Category      string            `json:"category"`
}

// Infinite reports whether the effect never expires.
func (e Effect) Infinite() bool { return e.Duration < 0 }

// Effects holds a stat's active effects keyed by category.
type Effects map[string][]Effect

// All flattens the effects in category order.
func (e Effects) All() []Effect {
	cats := make([]string, 0, len(e))
	for c := range e {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	var out []Effect
	for _, c := range cats {
		out = append(out, e[c]...)
	}
	return out
}

// RollStat is a player-rolled attribute.
type RollStat struct {
	BaseValue        int     `json:"baseValue"`
	ExperienceBonus  int     `json:"experienceBonus"`
	RacialChange     float64 `json:"racialChange"`
	Equipment        float64 `json:"equipment"`
	Experience       int     `json:"experience"`
	MaxExperience    int     `json:"maxExperience,omitempty"`
	TemporaryEffects Effects `json:"temporaryEffects,omitempty"`

	// Total is the computed value; it is never persisted.
	Total float64 `json:"-"`
}

// DerivedStat is a resource (Health, Mana, RacialPower), an aggregate (totalDefense)
// or a static input (BaseHealth, regen rates).
type DerivedStat struct {
	Value            float64 `json:"value"`
	RacialChange     float64 `json:"racialChange"`
	TemporaryEffects Effects `json:"temporaryEffects,omitempty"`

	// Max is the computed ceiling of a resource; it is never persisted.
	Max float64 `json:"-"`
}

// Choice is one player-made passive selection occupying a UI slot.
type Choice struct {
	Type     string           `json:"type"`
	Calc     ruleset.CalcKind `json:"calc"`
	Value    *float64         `json:"value"`
	StatName string           `json:"statName,omitempty"`
	Label    string           `json:"label"`
	// Level is the minimum character level required to keep the choice.
	Level  *int   `json:"level"`
	Unique string `json:"unique,omitempty"`
}

// AbilityRecord marks a full-auto passive as currently held.
type AbilityRecord struct {
	Name       string            `json:"name"`
	Identifier string            `json:"identifier"`
	Category   string            `json:"category"`
	Override   *ruleset.Override `json:"override,omitempty"`
}

// Item is one inventory entry. Equipped armor contributes its Defense to totalDefense.
type Item struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Defense  float64 `json:"defense,omitempty"`
	Equipped bool    `json:"equipped,omitempty"`
}

// Choices indexes choices by category, conflict group and slot.
type Choices map[string]map[string]map[string]Choice

// Affected is the reverse index category → conflict group → stat → slots.
type Affected map[string]map[string]map[string]SlotSet

// Character is the root aggregate, one per roster slot.
type Character struct {
	ID                 string
	Name               string
	Race               string
	Class              string
	Level              int
	LevelExperience    int
	LevelMaxExperience int
	Purse              int

	RollStats  map[string]*RollStat
	OtherStats map[string]*DerivedStat

	UniqueIdentifiers map[string]AbilityRecord
	StatChoices       Choices
	StatsAffected     Affected
	Counters          map[string]int
	States            map[string]bool

	Inventory []Item
	// Extras carries layout and visibility data the engine never interprets.
	Extras map[string]any
}

// Other returns the named derived stat, or nil.
func (c *Character) Other(name string) *DerivedStat {
	return c.OtherStats[name]
}

// EffectsOf returns the effect map of a roll or derived stat, or nil when the
// character has no such stat.
func (c *Character) EffectsOf(stat string) Effects {
	if rs, ok := c.RollStats[stat]; ok {
		if rs.TemporaryEffects == nil {
			rs.TemporaryEffects = make(Effects)
		}
		return rs.TemporaryEffects
	}
	if ds, ok := c.OtherStats[stat]; ok {
		if ds.TemporaryEffects == nil {
			ds.TemporaryEffects = make(Effects)
		}
		return ds.TemporaryEffects
	}
	return nil
}

// RacialChangeRef returns a pointer to the racial change of a roll or derived stat.
func (c *Character) RacialChangeRef(stat string) (*float64, bool) {
	if rs, ok := c.RollStats[stat]; ok {
		return &rs.RacialChange, true
	}
	if ds, ok := c.OtherStats[stat]; ok {
		return &ds.RacialChange, true
	}
	return nil, false
}

// OverrideFor returns the held ability override of kind targeting stat, if any.
// When several abilities qualify the one with the smallest identifier wins.
func (c *Character) OverrideFor(kind ruleset.OverrideKind, stat string) (*ruleset.Override, bool) {
	ids := make([]string, 0, len(c.UniqueIdentifiers))
	for id := range c.UniqueIdentifiers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		o := c.UniqueIdentifiers[id].Override
		if o != nil && o.Kind == kind && o.Stat == stat {
			return o, true
		}
	}
	return nil, false
}

// InState reports whether the named state flag is set.
func (c *Character) InState(state string) bool {
	return c.States[state]
}

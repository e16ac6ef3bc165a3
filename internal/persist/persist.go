// Package persist converts characters to and from their persisted JSON form.
//
// The persisted form omits every value the stat calculator can recompute
// (resource ceilings, totalDefense, roll totals, level experience ceiling, and a
// roll stat's maxExperience when it equals the ruleset default) and stores the
// slot sets of statsAffected as sorted lists.
package persist

import (
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/character"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/ruleset"
)

// AffectedLists is statsAffected with every slot set as a sorted list.
type AffectedLists map[string]map[string]map[string][]string

// Character is the persisted form of character.Character.
type Character struct {
	ID                string                             `json:"id"`
	Name              string                             `json:"name"`
	Race              string                             `json:"race"`
	Class             string                             `json:"class,omitempty"`
	Level             int                                `json:"level"`
	LevelExperience   int                                `json:"levelExperience"`
	Purse             int                                `json:"purse"`
	RollStats         map[string]character.RollStat      `json:"rollStats"`
	OtherStats        map[string]character.DerivedStat   `json:"otherStats"`
	UniqueIdentifiers map[string]character.AbilityRecord `json:"uniqueIdentifiers"`
	StatChoices       character.Choices                  `json:"statChoices"`
	StatsAffected     AffectedLists                      `json:"statsAffected"`
	Counters          map[string]int                     `json:"counters,omitempty"`
	States            map[string]bool                    `json:"states,omitempty"`
	Inventory         []character.Item                   `json:"inventory"`
	Extras            map[string]any                     `json:"extras,omitempty"`
}

// ToPersisted converts c into its persisted form. c is not modified and shares
// no mutable state with the result.
func ToPersisted(c *character.Character, rules *ruleset.Rules) Character {
	cp := c.Clone()
	out := Character{
		ID:                cp.ID,
		Name:              cp.Name,
		Race:              cp.Race,
		Class:             cp.Class,
		Level:             cp.Level,
		LevelExperience:   cp.LevelExperience,
		Purse:             cp.Purse,
		RollStats:         make(map[string]character.RollStat, len(cp.RollStats)),
		OtherStats:        make(map[string]character.DerivedStat, len(cp.OtherStats)),
		UniqueIdentifiers: cp.UniqueIdentifiers,
		StatChoices:       cp.StatChoices,
		StatsAffected:     ToLists(cp.StatsAffected),
		Counters:          cp.Counters,
		States:            trueStates(cp.States),
		Inventory:         cp.Inventory,
		Extras:            cp.Extras,
	}
	for name, rs := range cp.RollStats {
		v := *rs
		if v.MaxExperience == rules.RollMaxExperience {
			v.MaxExperience = 0
		}
		out.RollStats[name] = v
	}
	for name, ds := range cp.OtherStats {
		if name == ruleset.TotalDefense {
			continue
		}
		out.OtherStats[name] = *ds
	}
	if out.Inventory == nil {
		out.Inventory = []character.Item{}
	}
	return out
}

// ToLists converts every slot set of a into a sorted list.
func ToLists(a character.Affected) AffectedLists {
	out := make(AffectedLists, len(a))
	for cat, groups := range a {
		g := make(map[string]map[string][]string, len(groups))
		for group, statSets := range groups {
			s := make(map[string][]string, len(statSets))
			for stat, set := range statSets {
				s[stat] = set.Sorted()
			}
			g[group] = s
		}
		out[cat] = g
	}
	return out
}

// FromLists converts persisted slot lists back into sets, skipping empty lists.
func FromLists(l AffectedLists) character.Affected {
	out := make(character.Affected)
	for cat, groups := range l {
		for group, statLists := range groups {
			for stat, slots := range statLists {
				for _, slot := range slots {
					out.AddSlot(cat, group, stat, slot)
				}
			}
		}
	}
	return out
}

func trueStates(states map[string]bool) map[string]bool {
	var out map[string]bool
	for k, v := range states {
		if !v {
			continue
		}
		if out == nil {
			out = make(map[string]bool)
		}
		out[k] = true
	}
	return out
}

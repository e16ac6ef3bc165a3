// Package stats computes stat totals and resource ceilings for a character and
// propagates them after every mutation.
package stats

import (
	"fmt"
	"math"

	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/character"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/effect"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/ruleset"
)

// maxStats lists the resources with a max/current pair in recalculation order.
var maxStats = []string{ruleset.Health, ruleset.Mana, ruleset.RacialPower}

// Calculator computes totals against a ruleset. It holds no per-character state
// and may be shared.
type Calculator struct {
	rules *ruleset.Rules
}

// NewCalculator creates a Calculator.
//
// Precondition: rules must be indexed.
func NewCalculator(rules *ruleset.Rules) *Calculator {
	return &Calculator{rules: rules}
}

// evaluation is one computation over one character. It tracks the stats being
// computed so a self-referencing formula fails instead of recursing forever.
type evaluation struct {
	rules      *ruleset.Rules
	c          *character.Character
	inProgress map[string]bool
}

func (calc *Calculator) begin(c *character.Character) *evaluation {
	return &evaluation{rules: calc.rules, c: c, inProgress: make(map[string]bool)}
}

// StatTotal returns the current total of any named stat.
//
// Postcondition: Returns an error wrapping effect.ErrUnknownStat for names the
// ruleset or the character lacks, and effect.ErrCyclicDependency for cycles.
func (calc *Calculator) StatTotal(c *character.Character, name string) (float64, error) {
	return calc.begin(c).StatTotal(name)
}

// RollTotal returns the total of a roll stat.
func (calc *Calculator) RollTotal(c *character.Character, name string) (float64, error) {
	return calc.begin(c).rollTotal(name)
}

// MaxValue returns the ceiling of Health, Mana or RacialPower.
func (calc *Calculator) MaxValue(c *character.Character, name string) (float64, error) {
	return calc.begin(c).maxValue(name)
}

// DefenseTotal returns the total defense from equipped armor and effects.
func (calc *Calculator) DefenseTotal(c *character.Character) (float64, error) {
	return calc.begin(c).defenseTotal()
}

func (ev *evaluation) StatTotal(name string) (float64, error) {
	if ev.inProgress[name] {
		return 0, fmt.Errorf("%q: %w", name, effect.ErrCyclicDependency)
	}
	ev.inProgress[name] = true
	defer delete(ev.inProgress, name)

	switch ev.rules.KindOf(name) {
	case ruleset.KindRoll:
		return ev.rollTotal(name)
	case ruleset.KindOther:
		switch name {
		case ruleset.Health, ruleset.Mana, ruleset.RacialPower:
			return ev.maxValue(name)
		case ruleset.TotalDefense:
			return ev.defenseTotal()
		}
		ds := ev.c.Other(name)
		if ds == nil {
			return 0, fmt.Errorf("character lacks %q: %w", name, effect.ErrUnknownStat)
		}
		return ds.Value * ds.RacialChange, nil
	default:
		return 0, fmt.Errorf("%q: %w", name, effect.ErrUnknownStat)
	}
}

func (ev *evaluation) rollTotal(name string) (float64, error) {
	rs, ok := ev.c.RollStats[name]
	if !ok {
		return 0, fmt.Errorf("character lacks roll stat %q: %w", name, effect.ErrUnknownStat)
	}
	all := rs.TemporaryEffects.All()
	combined := float64(rs.BaseValue + rs.ExperienceBonus)
	initial, err := effect.ComputeStageValue(ev, combined*rs.RacialChange, effect.Filter(all, ruleset.InitialValue))
	if err != nil {
		return 0, fmt.Errorf("%s initial value: %w", name, err)
	}
	total, err := effect.ComputeLeveledTotal(ev, all, 1, math.Ceil(initial), rs.Equipment)
	if err != nil {
		return 0, fmt.Errorf("%s total: %w", name, err)
	}
	return math.Ceil(total), nil
}

func (ev *evaluation) maxValue(name string) (float64, error) {
	baseName, ok := ruleset.MaxBaseStat[name]
	if !ok {
		return 0, fmt.Errorf("%q has no ceiling: %w", name, effect.ErrUnknownStat)
	}
	stat, base := ev.c.Other(name), ev.c.Other(baseName)
	if stat == nil || base == nil {
		return 0, fmt.Errorf("character lacks %q or %q: %w", name, baseName, effect.ErrUnknownStat)
	}

	if o, ok := ev.c.OverrideFor(ruleset.OverrideFixedMax, name); ok {
		return o.Value, nil
	}
	flatBonus := 0.0
	if o, ok := ev.c.OverrideFor(ruleset.OverrideFlatBonus, name); ok {
		flatBonus = o.Value
	}

	all := stat.TemporaryEffects.All()
	raw := base.Value * base.RacialChange * stat.RacialChange
	initial, err := effect.ComputeStageValue(ev, raw, effect.Filter(all, ruleset.InitialValue))
	if err != nil {
		return 0, fmt.Errorf("max %s initial value: %w", name, err)
	}
	total, err := effect.ComputeLeveledTotal(ev, all, ev.c.Level, math.Floor(initial), flatBonus)
	if err != nil {
		return 0, fmt.Errorf("max %s: %w", name, err)
	}
	return total, nil
}

func (ev *evaluation) defenseTotal() (float64, error) {
	stat := ev.c.Other(ruleset.TotalDefense)
	if stat == nil {
		return 0, fmt.Errorf("character lacks %q: %w", ruleset.TotalDefense, effect.ErrUnknownStat)
	}
	armor := 0.0
	for _, item := range ev.c.Inventory {
		if item.Equipped {
			armor += item.Defense
		}
	}
	all := stat.TemporaryEffects.All()
	initial, err := effect.ComputeStageValue(ev, armor, effect.Filter(all, ruleset.InitialValue))
	if err != nil {
		return 0, fmt.Errorf("defense initial value: %w", err)
	}
	total, err := effect.ComputeLeveledTotal(ev, all, 1, initial, 0)
	if err != nil {
		return 0, fmt.Errorf("defense: %w", err)
	}
	return total, nil
}

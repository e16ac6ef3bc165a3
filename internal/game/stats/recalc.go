package stats

import (
	"fmt"
	"math"

	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/character"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/ruleset"
)

// AdjustValue moves a resource's current value after its ceiling changed from
// oldMax to newMax. A resource sitting at its old ceiling rides to the new one;
// otherwise it is only clamped into [0, newMax].
func AdjustValue(oldMax, current, newMax float64) float64 {
	next := current
	if current == oldMax {
		next = newMax
	} else if current > newMax {
		next = newMax
	}
	if next < 0 {
		return 0
	}
	return next
}

type computed struct {
	rollTotals map[string]float64
	maxes      map[string]float64
	defense    float64
}

// compute evaluates every derived quantity before anything is committed, so a
// failure leaves the character untouched.
func (calc *Calculator) compute(c *character.Character) (*computed, error) {
	out := &computed{
		rollTotals: make(map[string]float64, len(c.RollStats)),
		maxes:      make(map[string]float64, len(maxStats)),
	}
	for name := range c.RollStats {
		total, err := calc.RollTotal(c, name)
		if err != nil {
			return nil, err
		}
		out.rollTotals[name] = total
	}
	for _, name := range maxStats {
		m, err := calc.MaxValue(c, name)
		if err != nil {
			return nil, err
		}
		out.maxes[name] = m
	}
	def, err := calc.DefenseTotal(c)
	if err != nil {
		return nil, err
	}
	out.defense = def
	return out, nil
}

// RecalcDerived recomputes every ceiling in the fixed order Health, Mana,
// RacialPower, totalDefense, level experience, adjusting current values with
// AdjustValue.
//
// Postcondition: On error the character is unchanged.
func (calc *Calculator) RecalcDerived(c *character.Character) error {
	res, err := calc.compute(c)
	if err != nil {
		return fmt.Errorf("recalculating %s: %w", c.Name, err)
	}
	for name, total := range res.rollTotals {
		c.RollStats[name].Total = total
	}
	for _, name := range maxStats {
		ds := c.Other(name)
		newMax := res.maxes[name]
		ds.Value = AdjustValue(ds.Max, ds.Value, newMax)
		ds.Max = newMax
	}
	def := c.Other(ruleset.TotalDefense)
	def.Value = res.defense
	def.Max = res.defense
	c.LevelMaxExperience = calc.rules.LevelMaxExperience(c.Level)
	return nil
}

// Derive fills in the computed ceilings and totals without touching current
// resource values. Used after a character is decoded, where the persisted
// current values are authoritative.
//
// Postcondition: On error the character is unchanged.
func (calc *Calculator) Derive(c *character.Character) error {
	res, err := calc.compute(c)
	if err != nil {
		return fmt.Errorf("deriving %s: %w", c.Name, err)
	}
	for name, total := range res.rollTotals {
		c.RollStats[name].Total = total
	}
	for _, name := range maxStats {
		ds := c.Other(name)
		ds.Max = res.maxes[name]
		ds.Value = math.Max(0, math.Min(ds.Value, ds.Max))
	}
	def := c.Other(ruleset.TotalDefense)
	def.Value = res.defense
	def.Max = res.defense
	c.LevelMaxExperience = calc.rules.LevelMaxExperience(c.Level)
	return nil
}

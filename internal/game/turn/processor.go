// Package turn runs end-of-turn processing: natural regeneration and the aging
// of timed effects.
package turn

import (
	"math"
	"slices"

	"go.uber.org/zap"

	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/character"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/ruleset"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/stats"
)

// regenStat maps each resource to the stat holding its per-turn regen rate.
var regenStat = map[string]string{
	ruleset.Health:      ruleset.HealthRegen,
	ruleset.Mana:        ruleset.ManaRegen,
	ruleset.RacialPower: ruleset.RacialPowerRegen,
}

// Report summarises one end of turn.
type Report struct {
	// Regenerated is the amount each resource actually gained after clamping.
	Regenerated map[string]float64
	// Expired lists "stat/category" for every effect that ran out, in stat order.
	Expired []string
}

// Processor applies end-of-turn rules.
type Processor struct {
	calc   *stats.Calculator
	logger *zap.Logger
}

// NewProcessor creates a Processor.
//
// Precondition: calc and logger must be non-nil.
func NewProcessor(calc *stats.Calculator, logger *zap.Logger) *Processor {
	return &Processor{calc: calc, logger: logger}
}

// EndTurn regenerates resources, ages timed effects and recomputes derived stats.
//
// Postcondition: On error the character is unchanged.
func (p *Processor) EndTurn(c *character.Character) (Report, error) {
	backup := c.Clone()
	if err := p.calc.Derive(c); err != nil {
		c.Restore(backup)
		return Report{}, err
	}

	report := Report{Regenerated: make(map[string]float64, len(regenStat))}
	amounts := p.regenAmounts(c)
	for _, name := range []string{ruleset.Health, ruleset.Mana, ruleset.RacialPower} {
		ds := c.Other(name)
		if ds == nil {
			continue
		}
		before := ds.Value
		ds.Value = math.Max(0, math.Min(ds.Value+amounts[name], ds.Max))
		report.Regenerated[name] = ds.Value - before
	}

	report.Expired = Tick(c)

	if err := p.calc.RecalcDerived(c); err != nil {
		c.Restore(backup)
		return Report{}, err
	}
	p.logger.Debug("turn ended",
		zap.String("character", c.Name),
		zap.Float64("health", report.Regenerated[ruleset.Health]),
		zap.Float64("mana", report.Regenerated[ruleset.Mana]),
		zap.Float64("racial_power", report.Regenerated[ruleset.RacialPower]),
		zap.Strings("expired", report.Expired),
	)
	return report, nil
}

// regenAmounts returns the unclamped regen of every resource, ability regen
// overrides included.
func (p *Processor) regenAmounts(c *character.Character) map[string]float64 {
	out := make(map[string]float64, len(regenStat))
	for resource, rateName := range regenStat {
		ds, rate := c.Other(resource), c.Other(rateName)
		if ds == nil || rate == nil {
			continue
		}
		amount := rate.Value * rate.RacialChange * ds.Max
		if !regenAllowed(c, resource) {
			amount = 0
		}
		if c.InState(character.StateSleeping) {
			amount *= 2
		}
		out[resource] = amount
	}
	for _, id := range sortedIDs(c.UniqueIdentifiers) {
		if o := c.UniqueIdentifiers[id].Override; o != nil && o.Kind == ruleset.OverrideRegen {
			out[o.Stat] += o.Value
		}
	}
	return out
}

// regenAllowed applies the combat gates. Health stops regenerating in a fight
// while bleeding or taking damage unless the permanent-regen counter is raised.
// Racial power stops while taking damage in a fight. Mana always regenerates.
func regenAllowed(c *character.Character, resource string) bool {
	inFight := c.InState(character.StateInFight)
	switch resource {
	case ruleset.Health:
		hurt := c.InState(character.StateBleeding) || c.InState(character.StateTakingDamage)
		return !(hurt && inFight && c.Counters[character.CounterPermanentRegen] <= 0)
	case ruleset.RacialPower:
		return !(inFight && c.InState(character.StateTakingDamage))
	default:
		return true
	}
}

// Tick decrements every finite effect duration on every stat and drops effects
// that reach zero, together with any category left empty. Infinite effects are
// never touched.
//
// Postcondition: Returns "stat/category" for each expired effect, sorted.
func Tick(c *character.Character) []string {
	var expired []string
	tick := func(stat string, effects character.Effects) {
		for cat, list := range effects {
			kept := make([]character.Effect, 0, len(list))
			for _, e := range list {
				if e.Infinite() {
					kept = append(kept, e)
					continue
				}
				e.Duration--
				if e.Duration <= 0 {
					expired = append(expired, stat+"/"+cat)
					continue
				}
				kept = append(kept, e)
			}
			if len(kept) == 0 {
				delete(effects, cat)
			} else {
				effects[cat] = kept
			}
		}
	}
	for name, rs := range c.RollStats {
		tick(name, rs.TemporaryEffects)
	}
	for name, ds := range c.OtherStats {
		tick(name, ds.TemporaryEffects)
	}
	slices.Sort(expired)
	return expired
}

func sortedIDs(m map[string]character.AbilityRecord) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

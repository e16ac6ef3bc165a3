// Package effect folds a stat's active effects into its value in three ordered
// stages: initial-value, base-value and total.
//
// Within the initial-value and base-value stages additive effects fold before
// multiplicative ones. The total stage reverses that: multiplicative first.
package effect

import (
	"errors"
	"fmt"

	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/character"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/ruleset"
)

var (
	// ErrUnknownStat is returned when an effect references a stat the character does not have.
	ErrUnknownStat = errors.New("effect: unknown stat")
	// ErrCyclicDependency is returned when a stat total is requested while it is being computed.
	ErrCyclicDependency = errors.New("effect: cyclic stat dependency")
	// ErrMalformed is returned for effects whose operands cannot be evaluated.
	ErrMalformed = errors.New("effect: malformed effect")
)

// StatReader resolves the current total of a named stat for formula-valued effects.
type StatReader interface {
	StatTotal(name string) (float64, error)
}

// Filter returns the effects folded in stage.
func Filter(effects []character.Effect, stage ruleset.AppliesTo) []character.Effect {
	var out []character.Effect
	for _, e := range effects {
		if e.AppliesTo == stage {
			out = append(out, e)
		}
	}
	return out
}

// ComputeStageValue folds effects into base.
//
// Percent additive effects add a share of base, the value before any effect,
// regardless of how far the fold has progressed. Other additive effects add
// their first literal value; operands only matter to percent and
// multiplicative effects.
func ComputeStageValue(r StatReader, base float64, effects []character.Effect) (float64, error) {
	var staged, totals []character.Effect
	for _, e := range effects {
		if e.AppliesTo == ruleset.Total {
			totals = append(totals, e)
		} else {
			staged = append(staged, e)
		}
	}

	running := base
	var err error
	for _, stage := range []ruleset.AppliesTo{ruleset.InitialValue, ruleset.BaseValue} {
		bucket := Filter(staged, stage)
		if running, err = foldAdditive(r, base, running, bucket); err != nil {
			return 0, err
		}
		if running, err = foldMultiplicative(r, running, bucket); err != nil {
			return 0, err
		}
	}
	if running, err = foldMultiplicative(r, running, totals); err != nil {
		return 0, err
	}
	return foldAdditive(r, base, running, totals)
}

// ComputeLeveledTotal scales the base-value-adjusted initial value by level, adds
// flatBonus, then applies the total-stage effects.
func ComputeLeveledTotal(r StatReader, effects []character.Effect, level int, initial, flatBonus float64) (float64, error) {
	adjusted, err := ComputeStageValue(r, initial, Filter(effects, ruleset.BaseValue))
	if err != nil {
		return 0, err
	}
	running := adjusted*float64(level) + flatBonus
	return ComputeStageValue(r, running, Filter(effects, ruleset.Total))
}

func foldAdditive(r StatReader, base, running float64, effects []character.Effect) (float64, error) {
	for _, e := range effects {
		if e.Type != ruleset.Add {
			continue
		}
		switch {
		case e.IsPercent:
			m, err := Magnitude(r, e)
			if err != nil {
				return 0, err
			}
			running += base * (m / 100)
		case len(e.Values) > 0:
			running += e.Values[0]
		}
	}
	return running, nil
}

func foldMultiplicative(r StatReader, running float64, effects []character.Effect) (float64, error) {
	for _, e := range effects {
		if e.Type != ruleset.Multiply {
			continue
		}
		m, err := Magnitude(r, e)
		if err != nil {
			return 0, err
		}
		if e.IsPercent {
			m /= 100
		}
		running *= m
	}
	return running, nil
}

// Magnitude returns the summed value of an effect. Formula-valued effects apply
// each operand's operator between the referenced stat's total and its literal,
// then sum the operands.
func Magnitude(r StatReader, e character.Effect) (float64, error) {
	if len(e.StatsAffected) == 0 {
		sum := 0.0
		for _, v := range e.Values {
			sum += v
		}
		return sum, nil
	}
	if len(e.Types) < len(e.StatsAffected) || len(e.Values) < len(e.StatsAffected) {
		return 0, fmt.Errorf("%w: %d operand stats but %d operators and %d values",
			ErrMalformed, len(e.StatsAffected), len(e.Types), len(e.Values))
	}
	sum := 0.0
	for i, stat := range e.StatsAffected {
		total, err := r.StatTotal(stat)
		if err != nil {
			return 0, err
		}
		v, err := apply(e.Types[i], total, e.Values[i])
		if err != nil {
			return 0, fmt.Errorf("operand %s: %w", stat, err)
		}
		sum += v
	}
	return sum, nil
}

func apply(op string, lhs, rhs float64) (float64, error) {
	switch op {
	case "+":
		return lhs + rhs, nil
	case "-":
		return lhs - rhs, nil
	case "*":
		return lhs * rhs, nil
	case "/":
		if rhs == 0 {
			return 0, fmt.Errorf("%w: division by zero", ErrMalformed)
		}
		return lhs / rhs, nil
	default:
		return 0, fmt.Errorf("%w: operator %q", ErrMalformed, op)
	}
}

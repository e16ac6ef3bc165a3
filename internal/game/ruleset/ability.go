package ruleset

import (
	"errors"
	"fmt"
)

// Operand pairs a referenced stat with a binary operator and a literal:
// the operand evaluates to "<stat total> <op> <value>".
type Operand struct {
	Stat  string  `yaml:"stat"`
	Op    string  `yaml:"op"`
	Value float64 `yaml:"value"`
}

// Formula describes one effect an ability pushes onto each of its Targets.
//
// The effect magnitude comes from Operands when present, from Expr when set
// (evaluated with the character level bound), and from Values otherwise.
type Formula struct {
	Targets   []string  `yaml:"targets"`
	Operands  []Operand `yaml:"operands"`
	Values    []float64 `yaml:"values"`
	Expr      string    `yaml:"expr"`
	Type      Operator  `yaml:"type"`
	AppliesTo AppliesTo `yaml:"applies_to"`
	Percent   bool      `yaml:"percent"`
}

// Override is an ability side effect resolved outside the generic effect pipeline.
type Override struct {
	Kind  OverrideKind `yaml:"kind" json:"kind"`
	Stat  string       `yaml:"stat" json:"stat"`
	Value float64      `yaml:"value" json:"value"`
	// BaseScale, when non-zero, shifts the stat's static base by Value-BaseScale
	// while the ability is held.
	BaseScale float64 `yaml:"base_scale" json:"baseScale,omitempty"`
}

// Upgrade replaces an ability's formulas and/or override from Level onward.
type Upgrade struct {
	Level    int       `yaml:"level"`
	Formulas []Formula `yaml:"formulas"`
	Override *Override `yaml:"override"`
}

// Ability is a full-auto passive granted by a race or class once Level is reached.
type Ability struct {
	Name       string    `yaml:"name"`
	Identifier string    `yaml:"identifier"`
	Level      int       `yaml:"level"`
	Formulas   []Formula `yaml:"formulas"`
	Override   *Override `yaml:"override"`
	Upgrades   []Upgrade `yaml:"upgrades"`
}

// AtLevel returns the ability as it stands at level: the highest upgrade whose
// level does not exceed level replaces the base formulas and override it sets.
func (a Ability) AtLevel(level int) Ability {
	out := a
	best := -1
	for i, u := range a.Upgrades {
		if u.Level <= level && (best < 0 || u.Level >= a.Upgrades[best].Level) {
			best = i
		}
	}
	if best >= 0 {
		u := a.Upgrades[best]
		if len(u.Formulas) > 0 {
			out.Formulas = u.Formulas
		}
		if u.Override != nil {
			out.Override = u.Override
		}
	}
	out.Upgrades = nil
	return out
}

// Stats returns the union of stats the ability's formulas write to, in first-seen order.
func (a Ability) Stats() []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range a.Formulas {
		for _, t := range f.Targets {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}

func (a Ability) validate(rules *Rules) error {
	if a.Identifier == "" {
		return errors.New("identifier must not be empty")
	}
	all := append([]Formula(nil), a.Formulas...)
	overrides := []*Override{a.Override}
	for _, u := range a.Upgrades {
		all = append(all, u.Formulas...)
		overrides = append(overrides, u.Override)
	}
	for _, f := range all {
		if err := f.validate(rules); err != nil {
			return err
		}
	}
	for _, o := range overrides {
		if o == nil {
			continue
		}
		switch o.Kind {
		case OverrideFixedMax, OverrideFlatBonus, OverrideRegen:
		default:
			return fmt.Errorf("invalid override kind %q", o.Kind)
		}
		if rules.KindOf(o.Stat) == KindUnknown {
			return fmt.Errorf("override names unknown stat %q", o.Stat)
		}
	}
	return nil
}

func (f Formula) validate(rules *Rules) error {
	if len(f.Targets) == 0 {
		return errors.New("formula must name at least one target stat")
	}
	if f.Type != Add && f.Type != Multiply {
		return fmt.Errorf("invalid formula type %q", f.Type)
	}
	if !f.AppliesTo.Valid() {
		return fmt.Errorf("invalid applies_to %q", f.AppliesTo)
	}
	for _, t := range f.Targets {
		if rules.KindOf(t) == KindUnknown {
			return fmt.Errorf("formula targets unknown stat %q", t)
		}
	}
	for _, o := range f.Operands {
		if rules.KindOf(o.Stat) == KindUnknown {
			return fmt.Errorf("formula operand names unknown stat %q", o.Stat)
		}
		switch o.Op {
		case "+", "-", "*", "/":
		default:
			return fmt.Errorf("invalid operand operator %q", o.Op)
		}
	}
	if len(f.Operands) == 0 && f.Expr == "" && len(f.Values) == 0 {
		return errors.New("formula needs operands, expr or values")
	}
	return nil
}

// Package ruleset is the static data provider: stat names, per-race and per-class
// modifiers, passive option definitions and full-auto ability definitions, loaded
// from YAML content.
package ruleset

import (
	"errors"
	"fmt"
	"math"
)

// ErrNotFound is returned (wrapped) when a lookup names a race, class or stat the
// ruleset does not define. It is distinguishable from a legitimately empty result.
var ErrNotFound = errors.New("ruleset: not found")

// StatKind classifies a stat name once, so callers never compare category strings.
type StatKind int

const (
	KindUnknown StatKind = iota
	KindRoll
	KindOther
)

// String returns the kind label used in logs.
func (k StatKind) String() string {
	switch k {
	case KindRoll:
		return "roll"
	case KindOther:
		return "other"
	default:
		return "unknown"
	}
}

// AppliesTo names the pipeline stage an effect is folded in.
type AppliesTo string

const (
	InitialValue AppliesTo = "initial-value"
	BaseValue    AppliesTo = "base-value"
	Total        AppliesTo = "total"
)

// Valid reports whether a is one of the three pipeline stages.
func (a AppliesTo) Valid() bool {
	return a == InitialValue || a == BaseValue || a == Total
}

// Operator is the fold operator of an effect.
type Operator string

const (
	Add      Operator = "+"
	Multiply Operator = "*"
)

// CalcKind is how a passive choice changes its stat.
type CalcKind string

const (
	CalcMult  CalcKind = "mult"
	CalcAdd   CalcKind = "add"
	CalcCount CalcKind = "count"
)

// Valid reports whether c is a known calc kind.
func (c CalcKind) Valid() bool {
	return c == CalcMult || c == CalcAdd || c == CalcCount
}

// OverrideKind names an ability side effect that bypasses the generic pipeline.
type OverrideKind string

const (
	// OverrideFixedMax forces a max-value stat to a literal.
	OverrideFixedMax OverrideKind = "fixed_max"
	// OverrideFlatBonus supplies the flat bonus of a max-value formula.
	OverrideFlatBonus OverrideKind = "flat_bonus"
	// OverrideRegen adds a literal to a resource at every end of turn.
	OverrideRegen OverrideKind = "regen"
)

// Stat names the engine computes itself. A ruleset must list all of them in other_stats.
const (
	Health           = "Health"
	Mana             = "Mana"
	RacialPower      = "RacialPower"
	TotalDefense     = "totalDefense"
	BaseHealth       = "BaseHealth"
	BaseMana         = "BaseMana"
	BaseRacialPower  = "BaseRacialPower"
	HealthRegen      = "naturalHealthRegen"
	ManaRegen        = "naturalManaRegen"
	RacialPowerRegen = "naturalRacialPowerRegen"
)

// RequiredOtherStats lists the derived stats every ruleset must define.
var RequiredOtherStats = []string{
	Health, Mana, RacialPower, TotalDefense,
	BaseHealth, BaseMana, BaseRacialPower,
	HealthRegen, ManaRegen, RacialPowerRegen,
}

// MaxBaseStat maps each max-value resource to the static stat seeding its base.
var MaxBaseStat = map[string]string{
	Health:      BaseHealth,
	Mana:        BaseMana,
	RacialPower: BaseRacialPower,
}

// ExperienceCurve derives the experience needed to leave a level.
type ExperienceCurve struct {
	Base     float64 `yaml:"base"`
	PerLevel float64 `yaml:"per_level"`
}

// Rules holds the ruleset-wide settings from ruleset.yaml.
type Rules struct {
	RollStats         []string           `yaml:"roll_stats"`
	OtherStats        []string           `yaml:"other_stats"`
	OtherDefaults     map[string]float64 `yaml:"other_defaults"`
	RollDice          string             `yaml:"roll_dice"`
	DefaultRollBase   int                `yaml:"default_roll_base"`
	DefaultRace       string             `yaml:"default_race"`
	StartingPurse     int                `yaml:"starting_purse"`
	RollMaxExperience int                `yaml:"roll_max_experience"`
	Experience        ExperienceCurve    `yaml:"experience_curve"`

	kinds map[string]StatKind
}

// Index builds the stat kind lookup and checks that every engine-owned stat is present.
//
// Postcondition: KindOf answers for every listed stat, or a non-nil error is returned.
func (r *Rules) Index() error {
	r.kinds = make(map[string]StatKind, len(r.RollStats)+len(r.OtherStats))
	for _, s := range r.RollStats {
		r.kinds[s] = KindRoll
	}
	for _, s := range r.OtherStats {
		if r.kinds[s] == KindRoll {
			return fmt.Errorf("stat %q listed as both roll and other stat", s)
		}
		r.kinds[s] = KindOther
	}
	for _, s := range RequiredOtherStats {
		if r.kinds[s] != KindOther {
			return fmt.Errorf("other_stats must include %q", s)
		}
	}
	if r.RollDice == "" {
		r.RollDice = "4d6kh3"
	}
	return nil
}

// KindOf resolves a stat name to its kind.
func (r *Rules) KindOf(stat string) StatKind {
	return r.kinds[stat]
}

// LevelMaxExperience returns the experience ceiling for level.
func (r *Rules) LevelMaxExperience(level int) int {
	if level < 1 {
		level = 1
	}
	return int(math.Ceil(r.Experience.Base + r.Experience.PerLevel*float64(level-1)))
}

package passive_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/character"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/effect"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/passive"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/ruleset"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/stats"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/scripting"
)

const contentDir = "../../../content/ruleset"

type fixture struct {
	reg  *ruleset.Registry
	calc *stats.Calculator
	mgr  *passive.Manager
}

func newFixture(t testing.TB) *fixture {
	t.Helper()
	reg, err := ruleset.LoadDirectory(contentDir)
	require.NoError(t, err)
	calc := stats.NewCalculator(reg.Rules())
	mgr := passive.NewManager(reg, calc, scripting.NewEvaluator(0, zap.NewNop()), zap.NewNop())
	return &fixture{reg: reg, calc: calc, mgr: mgr}
}

// human returns a level 1 Human with Strength rolled at 15 and its abilities granted.
func (f *fixture) human(t testing.TB) *character.Character {
	t.Helper()
	race, err := f.reg.Race("Human")
	require.NoError(t, err)
	c, err := character.New("Aria", f.reg.Rules(), race)
	require.NoError(t, err)
	c.RollStats["Strength"].BaseValue = 15
	require.NoError(t, f.mgr.SyncFullAutoPassives(c))
	return c
}

func TestChoose_StrengthFocusEndToEnd(t *testing.T) {
	f := newFixture(t)
	c := f.human(t)

	total, err := f.calc.RollTotal(c, "Strength")
	require.NoError(t, err)
	assert.Equal(t, 15.0, total)

	require.NoError(t, f.mgr.Choose(c, "Human", "focus_strength", "slot1", "Strength"))
	assert.Equal(t, 1.25, c.RollStats["Strength"].RacialChange)
	assert.Equal(t, 19.0, c.RollStats["Strength"].Total)
	assert.True(t, c.StatsAffected.Slots("Human", "attribute_focus", "Strength").Has("slot1"))

	require.NoError(t, f.mgr.SetChoice(c, "Human", "attribute_focus", "slot1", nil))
	assert.Equal(t, 1.0, c.RollStats["Strength"].RacialChange)
	assert.Equal(t, 15.0, c.RollStats["Strength"].Total)
	assert.Empty(t, c.StatChoices)
	assert.Empty(t, c.StatsAffected)
}

func TestSetChoice_ConflictLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t)
	c := f.human(t)
	require.NoError(t, f.mgr.Choose(c, "Human", "focus_strength", "slot1", "Strength"))
	before := c.Clone()

	err := f.mgr.Choose(c, "Human", "focus_strength", "slot2", "Strength")
	assert.True(t, errors.Is(err, passive.ErrConflict))
	assert.Equal(t, before, c)
	assert.Len(t, c.StatsAffected.Slots("Human", "attribute_focus", "Strength"), 1)

	assert.True(t, f.mgr.HasConflict(c, "Human", "attribute_focus", "Strength", "slot2"))
	assert.False(t, f.mgr.HasConflict(c, "Human", "attribute_focus", "Strength", "slot1"))
	assert.False(t, f.mgr.HasConflict(c, "Human", "attribute_focus", "Dexterity", "slot2"))
}

func TestSetChoice_ReplacingSlotRevertsPrevious(t *testing.T) {
	f := newFixture(t)
	c := f.human(t)
	require.NoError(t, f.mgr.Choose(c, "Human", "focus_strength", "slot1", "Strength"))
	require.NoError(t, f.mgr.Choose(c, "Human", "focus_strength", "slot1", "Dexterity"))

	assert.Equal(t, 1.0, c.RollStats["Strength"].RacialChange)
	assert.Equal(t, 1.25, c.RollStats["Dexterity"].RacialChange)
	assert.Nil(t, c.StatsAffected.Slots("Human", "attribute_focus", "Strength"))
	assert.True(t, c.StatChoices.Rebuild().Equal(c.StatsAffected))
}

func TestChoose_RejectsInapplicableStat(t *testing.T) {
	f := newFixture(t)
	c := f.human(t)
	err := f.mgr.Choose(c, "Human", "focus_strength", "slot1", "Wisdom")
	assert.True(t, errors.Is(err, passive.ErrInvalidChoice))

	err = f.mgr.Choose(c, "Human", "no_such_option", "slot1", "Strength")
	assert.True(t, errors.Is(err, ruleset.ErrNotFound))
}

func TestSetChoice_UnknownStat(t *testing.T) {
	f := newFixture(t)
	c := f.human(t)
	v := 0.5
	err := f.mgr.SetChoice(c, "manual", "g", "s", &character.Choice{Calc: ruleset.CalcAdd, Value: &v, StatName: "Luck"})
	assert.True(t, errors.Is(err, effect.ErrUnknownStat))
}

func TestSetChoice_CountChoice(t *testing.T) {
	f := newFixture(t)
	c := f.human(t)
	require.NoError(t, f.mgr.Choose(c, "Human", "second_wind", "sw", ruleset.HealthRegen))
	assert.Equal(t, 1, c.Counters[character.CounterPermanentRegen])

	require.NoError(t, f.mgr.SetChoice(c, "Human", "second_wind", "sw", nil))
	_, ok := c.Counters[character.CounterPermanentRegen]
	assert.False(t, ok)
}

func TestChangeLevel_GatesAndRevertsLevelledChoices(t *testing.T) {
	f := newFixture(t)
	c := f.human(t)

	err := f.mgr.Choose(c, "Human", "veteran", "vet", ruleset.BaseHealth)
	assert.True(t, errors.Is(err, passive.ErrLevelTooLow))

	require.NoError(t, f.mgr.ChangeLevel(c, 5))
	require.NoError(t, f.mgr.Choose(c, "Human", "veteran", "vet", ruleset.BaseHealth))
	assert.InDelta(t, 1.1, c.Other(ruleset.BaseHealth).RacialChange, 1e-12)
	assert.Equal(t, 560.0, c.Other(ruleset.Health).Max) // 110*5 + resolve 5*2

	require.NoError(t, f.mgr.ChangeLevel(c, 4))
	assert.InDelta(t, 1.0, c.Other(ruleset.BaseHealth).RacialChange, 1e-12)
	assert.Empty(t, c.StatChoices)
	assert.Equal(t, 408.0, c.Other(ruleset.Health).Max) // 100*4 + 4*2
}

func TestRevertChoicesBelowLevel(t *testing.T) {
	f := newFixture(t)
	c := f.human(t)
	require.NoError(t, f.mgr.ChangeLevel(c, 5))
	require.NoError(t, f.mgr.Choose(c, "Human", "veteran", "vet", ruleset.BaseHealth))
	require.NoError(t, f.mgr.Choose(c, "Human", "focus_strength", "slot1", "Strength"))

	c.Level = 2
	require.NoError(t, f.mgr.RevertChoicesBelowLevel(c))
	assert.NotContains(t, c.StatChoices["Human"], "veteran")
	assert.Contains(t, c.StatChoices["Human"], "attribute_focus")
	assert.Nil(t, c.StatsAffected.Slots("Human", "veteran", ruleset.BaseHealth))
}

func TestChangeLevel_AppliesUpgrade(t *testing.T) {
	f := newFixture(t)
	c := f.human(t)
	health := c.Other(ruleset.Health)
	require.Len(t, health.TemporaryEffects["Human"], 1)
	assert.Equal(t, []float64{2}, health.TemporaryEffects["Human"][0].Values)

	require.NoError(t, f.mgr.ChangeLevel(c, 10))
	require.Len(t, health.TemporaryEffects["Human"], 1)
	assert.Equal(t, []float64{30}, health.TemporaryEffects["Human"][0].Values)
	assert.Equal(t, health.Max, health.Value)
}

func TestChangeRace_ReplacesStaticModifierOnly(t *testing.T) {
	f := newFixture(t)
	c := f.human(t)

	require.NoError(t, f.mgr.ChangeRace(c, "Elf"))
	assert.Equal(t, "Elf", c.Race)
	assert.InDelta(t, 1.2, c.RollStats["Agility"].RacialChange, 1e-12)

	require.NoError(t, f.mgr.ChangeRace(c, "Human"))
	assert.InDelta(t, 1.0, c.RollStats["Agility"].RacialChange, 1e-12)
}

func TestChangeRace_RevertsOldRaceChoicesKeepsClassChoices(t *testing.T) {
	f := newFixture(t)
	c := f.human(t)
	require.NoError(t, f.mgr.ChangeClass(c, "Warrior"))
	require.NoError(t, f.mgr.Choose(c, "Human", "focus_strength", "slot1", "Strength"))
	require.NoError(t, f.mgr.Choose(c, "Warrior", "weapon_training", "w1", "Dexterity"))

	require.NoError(t, f.mgr.ChangeRace(c, "Elf"))
	assert.InDelta(t, 0.9, c.RollStats["Strength"].RacialChange, 1e-12)
	assert.InDelta(t, 1.1, c.RollStats["Dexterity"].RacialChange, 1e-12)
	assert.NotContains(t, c.StatChoices, "Human")
	assert.Contains(t, c.StatChoices, "Warrior")
	assert.True(t, c.StatChoices.Rebuild().Equal(c.StatsAffected))
}

func TestChangeRace_SwapsAbilitiesAndStarterKit(t *testing.T) {
	f := newFixture(t)
	c := f.human(t)
	require.Contains(t, c.UniqueIdentifiers, "human_resolve")

	require.NoError(t, f.mgr.ChangeRace(c, "Elf"))
	assert.NotContains(t, c.UniqueIdentifiers, "human_resolve")
	assert.Contains(t, c.UniqueIdentifiers, "arcane_blood")
	assert.NotContains(t, c.Other(ruleset.Health).TemporaryEffects, "Human")
	assert.InDelta(t, 132.0, c.Other(ruleset.Mana).Max, 1e-9) // floor(100*1.2) * 110%
	assert.Equal(t, 60, c.Purse)
	require.Len(t, c.Inventory, 1)
	assert.Equal(t, "Elven Cloak", c.Inventory[0].Name)
}

func TestChangeRace_SpentPurseIsKept(t *testing.T) {
	f := newFixture(t)
	c := f.human(t)
	c.Purse = 12
	require.NoError(t, f.mgr.ChangeRace(c, "Elf"))
	assert.Equal(t, 12, c.Purse)
	assert.Equal(t, "Leather Vest", c.Inventory[0].Name)
}

func TestChangeRace_SpatialReserve(t *testing.T) {
	f := newFixture(t)
	c := f.human(t)

	require.NoError(t, f.mgr.ChangeRace(c, "Gnome"))
	assert.Equal(t, 40.0, c.Other(ruleset.BaseRacialPower).Value)
	assert.Equal(t, 100.0, c.Other(ruleset.RacialPower).Max) // floor(40*1.5) + 40

	require.NoError(t, f.mgr.ChangeRace(c, "Human"))
	assert.Equal(t, 20.0, c.Other(ruleset.BaseRacialPower).Value)
	assert.Equal(t, 20.0, c.Other(ruleset.RacialPower).Max)
}

func TestChangeRace_UnknownRace(t *testing.T) {
	f := newFixture(t)
	c := f.human(t)
	before := c.Clone()
	err := f.mgr.ChangeRace(c, "Dragon")
	assert.True(t, errors.Is(err, ruleset.ErrNotFound))
	assert.Equal(t, before, c)
}

func TestApplyFullAutoPassive_NoDuplicatesAndCleanRemoval(t *testing.T) {
	f := newFixture(t)
	c := f.human(t)
	race, err := f.reg.Race("Human")
	require.NoError(t, err)

	require.NoError(t, f.mgr.ApplyFullAutoPassive(c, "Human", race.Abilities[0]))
	require.NoError(t, f.mgr.ApplyFullAutoPassive(c, "Human", race.Abilities[0]))
	assert.Len(t, c.Other(ruleset.Health).TemporaryEffects["Human"], 1)

	require.NoError(t, f.mgr.RemoveFullAutoPassive(c, "human_resolve"))
	assert.NotContains(t, c.UniqueIdentifiers, "human_resolve")
	for _, e := range c.Other(ruleset.Health).TemporaryEffects.All() {
		assert.NotEqual(t, "human_resolve", e.Identifier)
	}
	assert.Equal(t, 100.0, c.Other(ruleset.Health).Max)

	require.NoError(t, f.mgr.RemoveFullAutoPassive(c, "human_resolve"))
}

func TestApplyFullAutoPassive_OperandFormula(t *testing.T) {
	f := newFixture(t)
	c := f.human(t)
	c.RollStats["Intelligence"].BaseValue = 20
	ability := ruleset.Ability{
		Name: "Focus", Identifier: "focus", Level: 1,
		Formulas: []ruleset.Formula{{
			Targets:   []string{ruleset.Mana},
			Type:      ruleset.Add,
			AppliesTo: ruleset.Total,
			Percent:   true,
			Operands:  []ruleset.Operand{{Stat: "Intelligence", Op: "*", Value: 2}},
		}},
	}
	require.NoError(t, f.mgr.ApplyFullAutoPassive(c, "manual", ability))
	assert.Equal(t, 140.0, c.Other(ruleset.Mana).Max)
	assert.Equal(t, 140.0, c.Other(ruleset.Mana).Value)
}

func TestApplyFullAutoPassive_FailureRollsBack(t *testing.T) {
	f := newFixture(t)
	c := f.human(t)
	before := c.Clone()
	ability := ruleset.Ability{
		Identifier: "bad",
		Formulas: []ruleset.Formula{{
			Targets: []string{"Luck"}, Type: ruleset.Add, AppliesTo: ruleset.Total, Values: []float64{1},
		}},
	}
	err := f.mgr.ApplyFullAutoPassive(c, "manual", ability)
	assert.True(t, errors.Is(err, effect.ErrUnknownStat))
	assert.Equal(t, before, c)
}

func TestApplyFullAutoPassive_CycleRollsBack(t *testing.T) {
	f := newFixture(t)
	c := f.human(t)
	before := c.Clone()
	ability := ruleset.Ability{
		Identifier: "loop",
		Formulas: []ruleset.Formula{{
			Targets: []string{ruleset.Mana}, Type: ruleset.Add, AppliesTo: ruleset.Total, Percent: true,
			Operands: []ruleset.Operand{{Stat: ruleset.Mana, Op: "+", Value: 1}},
		}},
	}
	err := f.mgr.ApplyFullAutoPassive(c, "manual", ability)
	assert.True(t, errors.Is(err, effect.ErrCyclicDependency))
	assert.Equal(t, before, c)
}

func TestPropertySetChoice_ApplyRevertSymmetry(t *testing.T) {
	f := newFixture(t)
	rollStats := f.reg.Rules().RollStats
	rapid.Check(t, func(rt *rapid.T) {
		c := f.human(t)
		stat := rapid.SampledFrom(rollStats).Draw(rt, "stat")
		calc := rapid.SampledFrom([]ruleset.CalcKind{ruleset.CalcAdd, ruleset.CalcMult}).Draw(rt, "calc")
		var v float64
		if calc == ruleset.CalcAdd {
			v = float64(rapid.IntRange(-64, 64).Draw(rt, "sixtyfourths")) / 64
		} else {
			v = rapid.Float64Range(0.5, 2).Draw(rt, "factor")
		}
		before := c.RollStats[stat].RacialChange

		choice := &character.Choice{Calc: calc, Value: &v, StatName: stat}
		if err := f.mgr.SetChoice(c, "manual", "g", "s", choice); err != nil {
			rt.Fatal(err)
		}
		if err := f.mgr.SetChoice(c, "manual", "g", "s", nil); err != nil {
			rt.Fatal(err)
		}
		after := c.RollStats[stat].RacialChange
		if calc == ruleset.CalcAdd && after != before {
			rt.Fatalf("add %v on %s: %v != %v", v, stat, after, before)
		}
		if calc == ruleset.CalcMult && (after-before > 1e-12 || before-after > 1e-12) {
			rt.Fatalf("mult %v on %s: %v != %v", v, stat, after, before)
		}
		if len(c.StatsAffected) != 0 || len(c.StatChoices) != 0 {
			rt.Fatalf("bookkeeping left behind: %v %v", c.StatChoices, c.StatsAffected)
		}
	})
}

func TestPropertySetChoice_ConflictExclusivity(t *testing.T) {
	f := newFixture(t)
	claimable := []string{"Strength", "Dexterity", "Agility"}
	rapid.Check(t, func(rt *rapid.T) {
		c := f.human(t)
		v := 0.25
		steps := rapid.IntRange(1, 30).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			slot := rapid.SampledFrom([]string{"a", "b", "c"}).Draw(rt, "slot")
			var choice *character.Choice
			if rapid.Bool().Draw(rt, "set") {
				stat := rapid.SampledFrom(claimable).Draw(rt, "stat")
				choice = &character.Choice{Calc: ruleset.CalcAdd, Value: &v, StatName: stat}
			}
			err := f.mgr.SetChoice(c, "manual", "g", slot, choice)
			if err != nil && !errors.Is(err, passive.ErrConflict) {
				rt.Fatal(err)
			}
			for _, s := range claimable {
				if n := len(c.StatsAffected.Slots("manual", "g", s)); n > 1 {
					rt.Fatalf("%s claimed by %d slots", s, n)
				}
			}
			if !c.StatChoices.Rebuild().Equal(c.StatsAffected) {
				rt.Fatalf("reverse index out of sync")
			}
		}
	})
}

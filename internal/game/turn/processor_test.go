package turn_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/character"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/ruleset"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/stats"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/turn"
)

func setup(t testing.TB) (*turn.Processor, *stats.Calculator, *character.Character) {
	t.Helper()
	rules := &ruleset.Rules{
		RollStats:  []string{"Strength"},
		OtherStats: append([]string(nil), ruleset.RequiredOtherStats...),
		OtherDefaults: map[string]float64{
			ruleset.BaseHealth:       100,
			ruleset.BaseMana:         100,
			ruleset.BaseRacialPower:  100,
			ruleset.HealthRegen:      0.1,
			ruleset.ManaRegen:        0.1,
			ruleset.RacialPowerRegen: 0.1,
		},
		DefaultRollBase: 10,
		Experience:      ruleset.ExperienceCurve{Base: 100},
	}
	require.NoError(t, rules.Index())
	c, err := character.New("Bran", rules, &ruleset.Race{ID: "Human"})
	require.NoError(t, err)
	calc := stats.NewCalculator(rules)
	require.NoError(t, calc.RecalcDerived(c))
	for _, name := range []string{ruleset.Health, ruleset.Mana, ruleset.RacialPower} {
		c.Other(name).Value = 50
	}
	return turn.NewProcessor(calc, zap.NewNop()), calc, c
}

func TestEndTurn_Regenerates(t *testing.T) {
	p, _, c := setup(t)
	report, err := p.EndTurn(c)
	require.NoError(t, err)
	assert.Equal(t, 60.0, c.Other(ruleset.Health).Value)
	assert.Equal(t, 60.0, c.Other(ruleset.Mana).Value)
	assert.Equal(t, 60.0, c.Other(ruleset.RacialPower).Value)
	assert.Equal(t, 10.0, report.Regenerated[ruleset.Health])
}

func TestEndTurn_ClampsToMax(t *testing.T) {
	p, _, c := setup(t)
	c.Other(ruleset.Health).Value = 95
	report, err := p.EndTurn(c)
	require.NoError(t, err)
	assert.Equal(t, 100.0, c.Other(ruleset.Health).Value)
	assert.Equal(t, 5.0, report.Regenerated[ruleset.Health])
}

func TestEndTurn_SleepingDoubles(t *testing.T) {
	p, _, c := setup(t)
	c.States[character.StateSleeping] = true
	_, err := p.EndTurn(c)
	require.NoError(t, err)
	assert.Equal(t, 70.0, c.Other(ruleset.Health).Value)
	assert.Equal(t, 70.0, c.Other(ruleset.Mana).Value)
}

func TestEndTurn_HealthGate(t *testing.T) {
	cases := []struct {
		name    string
		states  []string
		counter int
		want    float64
	}{
		{"bleeding in fight", []string{character.StateBleeding, character.StateInFight}, 0, 50},
		{"taking damage in fight", []string{character.StateTakingDamage, character.StateInFight}, 0, 50},
		{"bleeding out of fight", []string{character.StateBleeding}, 0, 60},
		{"bleeding in fight with permanent regen", []string{character.StateBleeding, character.StateInFight}, 1, 60},
		{"in fight unhurt", []string{character.StateInFight}, 0, 60},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, _, c := setup(t)
			for _, s := range tc.states {
				c.States[s] = true
			}
			if tc.counter > 0 {
				c.Counters[character.CounterPermanentRegen] = tc.counter
			}
			_, err := p.EndTurn(c)
			require.NoError(t, err)
			assert.Equal(t, tc.want, c.Other(ruleset.Health).Value)
		})
	}
}

func TestEndTurn_ManaIgnoresCombatGate(t *testing.T) {
	p, _, c := setup(t)
	c.States[character.StateBleeding] = true
	c.States[character.StateTakingDamage] = true
	c.States[character.StateInFight] = true
	_, err := p.EndTurn(c)
	require.NoError(t, err)
	assert.Equal(t, 60.0, c.Other(ruleset.Mana).Value)
	assert.Equal(t, 50.0, c.Other(ruleset.RacialPower).Value)
}

func TestEndTurn_RegenOverride(t *testing.T) {
	p, _, c := setup(t)
	c.UniqueIdentifiers["second_breath"] = character.AbilityRecord{
		Identifier: "second_breath",
		Override:   &ruleset.Override{Kind: ruleset.OverrideRegen, Stat: ruleset.Health, Value: 2},
	}
	_, err := p.EndTurn(c)
	require.NoError(t, err)
	assert.Equal(t, 62.0, c.Other(ruleset.Health).Value)
}

func TestEndTurn_AgesEffects(t *testing.T) {
	p, _, c := setup(t)
	str := c.RollStats["Strength"]
	str.TemporaryEffects[character.ManualCategory] = []character.Effect{
		{Type: ruleset.Add, AppliesTo: ruleset.Total, Values: []float64{2}, Duration: 2},
		{Type: ruleset.Add, AppliesTo: ruleset.Total, Values: []float64{1}, Duration: character.InfiniteDuration},
	}
	str.TemporaryEffects["potion"] = []character.Effect{
		{Type: ruleset.Add, AppliesTo: ruleset.Total, Values: []float64{5}, Duration: 1},
	}

	report, err := p.EndTurn(c)
	require.NoError(t, err)
	assert.Equal(t, []string{"Strength/potion"}, report.Expired)
	assert.NotContains(t, str.TemporaryEffects, "potion")
	require.Len(t, str.TemporaryEffects[character.ManualCategory], 2)
	assert.Equal(t, 1, str.TemporaryEffects[character.ManualCategory][0].Duration)
	assert.Equal(t, 13.0, str.Total)

	_, err = p.EndTurn(c)
	require.NoError(t, err)
	require.Len(t, str.TemporaryEffects[character.ManualCategory], 1)
	assert.True(t, str.TemporaryEffects[character.ManualCategory][0].Infinite())
	assert.Equal(t, 11.0, str.Total)
}

func TestEndTurn_ExpiredCeilingEffectLowersFullResource(t *testing.T) {
	p, calc, c := setup(t)
	health := c.Other(ruleset.Health)
	health.TemporaryEffects["blessing"] = []character.Effect{
		{Type: ruleset.Add, AppliesTo: ruleset.Total, Values: []float64{20}, Duration: 1},
	}
	require.NoError(t, calc.RecalcDerived(c))
	health.Value = health.Max
	require.Equal(t, 120.0, health.Value)

	_, err := p.EndTurn(c)
	require.NoError(t, err)
	assert.Equal(t, 100.0, health.Max)
	assert.Equal(t, 100.0, health.Value)
}

func TestPropertyTick_FiniteEffectsStayFinite(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		_, _, c := setup(t)
		durations := rapid.SliceOfN(rapid.IntRange(-1, 5), 0, 10).Draw(rt, "durations")
		var effects []character.Effect
		infinite := 0
		for _, d := range durations {
			effects = append(effects, character.Effect{Type: ruleset.Add, AppliesTo: ruleset.Total, Values: []float64{1}, Duration: d})
			if d < 0 {
				infinite++
			}
		}
		if len(effects) > 0 {
			c.RollStats["Strength"].TemporaryEffects[character.ManualCategory] = effects
		}
		turns := rapid.IntRange(1, 7).Draw(rt, "turns")
		for i := 0; i < turns; i++ {
			turn.Tick(c)
		}
		remaining := c.RollStats["Strength"].TemporaryEffects[character.ManualCategory]
		gotInfinite := 0
		for _, e := range remaining {
			if e.Infinite() {
				gotInfinite++
			} else if e.Duration <= 0 {
				rt.Fatalf("finite effect kept with duration %d", e.Duration)
			}
		}
		if gotInfinite != infinite {
			rt.Fatalf("infinite effects: got %d want %d", gotInfinite, infinite)
		}
	})
}

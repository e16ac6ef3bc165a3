package persist_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/character"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/passive"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/ruleset"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/stats"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/turn"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/persist"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/scripting"
)

type fixture struct {
	reg   *ruleset.Registry
	calc  *stats.Calculator
	mgr   *passive.Manager
	codec *persist.Codec
}

func newFixture(t testing.TB) *fixture {
	t.Helper()
	reg, err := ruleset.LoadDirectory("../../content/ruleset")
	require.NoError(t, err)
	calc := stats.NewCalculator(reg.Rules())
	f := &fixture{
		reg:  reg,
		calc: calc,
		mgr:  passive.NewManager(reg, calc, scripting.NewEvaluator(0, zap.NewNop()), zap.NewNop()),
	}
	f.codec = persist.NewCodec(reg.Rules(), f.newDefault, zap.NewNop())
	return f
}

func (f *fixture) newDefault() (*character.Character, error) {
	race, err := f.reg.Race(f.reg.Rules().DefaultRace)
	if err != nil {
		return nil, err
	}
	return character.New("New character", f.reg.Rules(), race)
}

// sheet builds a Human with a choice, a timed effect and some state.
func (f *fixture) sheet(t testing.TB) *character.Character {
	t.Helper()
	c, err := f.newDefault()
	require.NoError(t, err)
	c.Name = "Aria"
	require.NoError(t, f.mgr.SyncFullAutoPassives(c))
	require.NoError(t, f.mgr.Choose(c, "Human", "focus_strength", "slot1", "Strength"))
	require.NoError(t, f.mgr.Choose(c, "Human", "second_wind", "sw", ruleset.HealthRegen))
	c.RollStats["Agility"].TemporaryEffects[character.ManualCategory] = []character.Effect{{
		Type: ruleset.Add, AppliesTo: ruleset.Total, Values: []float64{3}, Duration: 2,
		Category: character.ManualCategory,
	}}
	c.RollStats["Wisdom"].Experience = 40
	c.States[character.StateInFight] = true
	c.Other(ruleset.Health).Value = 37
	c.Extras["layout"] = "compact"
	require.NoError(t, f.calc.RecalcDerived(c))
	return c
}

func TestCodec_RoundTrip(t *testing.T) {
	f := newFixture(t)
	c := f.sheet(t)

	data, err := f.codec.Encode(c)
	require.NoError(t, err)
	got, err := f.codec.Decode(data)
	require.NoError(t, err)
	require.NoError(t, f.calc.Derive(got))

	again, err := f.codec.Encode(got)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, 37.0, got.Other(ruleset.Health).Value)
	assert.Equal(t, c.Other(ruleset.Health).Max, got.Other(ruleset.Health).Max)
	assert.Equal(t, 1.25, got.RollStats["Strength"].RacialChange)
	assert.True(t, got.StatsAffected.Equal(c.StatsAffected))
	assert.Equal(t, c.RollStats["Agility"].Total, got.RollStats["Agility"].Total)
}

func TestCodec_OmitsComputedValues(t *testing.T) {
	f := newFixture(t)
	data, err := f.codec.Encode(f.sheet(t))
	require.NoError(t, err)

	doc := gjson.ParseBytes(data)
	assert.False(t, doc.Get("otherStats.totalDefense").Exists())
	assert.False(t, doc.Get("otherStats.Health.max").Exists())
	assert.False(t, doc.Get("rollStats.Strength.total").Exists())
	assert.False(t, doc.Get("rollStats.Strength.maxExperience").Exists())
	assert.False(t, doc.Get("levelMaxExperience").Exists())
	assert.True(t, doc.Get("statsAffected.Human.attribute_focus.Strength").IsArray())
	assert.Equal(t, "slot1", doc.Get("statsAffected.Human.attribute_focus.Strength.0").String())
}

func TestCodec_KeepsNonDefaultMaxExperience(t *testing.T) {
	f := newFixture(t)
	c := f.sheet(t)
	c.RollStats["Strength"].MaxExperience = 250

	data, err := f.codec.Encode(c)
	require.NoError(t, err)
	assert.Equal(t, int64(250), gjson.GetBytes(data, "rollStats.Strength.maxExperience").Int())

	got, err := f.codec.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 250, got.RollStats["Strength"].MaxExperience)
	assert.Equal(t, 100, got.RollStats["Agility"].MaxExperience)
}

func TestCodec_MergesWithDefaults(t *testing.T) {
	f := newFixture(t)
	data := []byte(`{
		"name": "Old sheet",
		"level": "three",
		"rollStats": {
			"Strength": {"baseValue": 14, "racialChange": "high"},
			"Luck": {"baseValue": 99}
		},
		"otherStats": {"Health": 12},
		"inventory": {"not": "a list"}
	}`)
	c, err := f.codec.Decode(data)
	require.NoError(t, err)

	assert.Equal(t, "Old sheet", c.Name)
	assert.Equal(t, 1, c.Level)
	assert.Equal(t, 14, c.RollStats["Strength"].BaseValue)
	assert.Equal(t, 1.0, c.RollStats["Strength"].RacialChange)
	assert.NotContains(t, c.RollStats, "Luck")
	assert.Equal(t, 100.0, c.Other(ruleset.BaseHealth).Value)
	assert.Equal(t, "Leather Vest", c.Inventory[0].Name)
	require.NoError(t, f.calc.Derive(c))
	assert.Equal(t, 0.0, c.Other(ruleset.Health).Value)
}

func TestCodec_MigratesLegacyRacialBonus(t *testing.T) {
	f := newFixture(t)
	data := []byte(`{"name":"Legacy","rollStats":{"Agility":{"baseValue":12,"racialBonus":1.2}},
		"otherStats":{"BaseMana":{"value":100,"racialBonus":1.5,"racialChange":1.1}}}`)

	c, err := f.codec.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 1.2, c.RollStats["Agility"].RacialChange)
	assert.Equal(t, 1.1, c.Other(ruleset.BaseMana).RacialChange)
}

func TestMigrateLegacy(t *testing.T) {
	out, err := persist.MigrateLegacy([]byte(`{"rollStats":{"Strength":{"racialBonus":0.9}}}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"rollStats":{"Strength":{"racialChange":0.9}}}`, string(out))

	current := []byte(`{"rollStats":{"Strength":{"racialChange":0.9}}}`)
	out, err = persist.MigrateLegacy(current)
	require.NoError(t, err)
	assert.JSONEq(t, string(current), string(out))
}

func TestCodec_RebuildsInconsistentReverseIndex(t *testing.T) {
	f := newFixture(t)
	data := []byte(`{
		"statChoices": {"Human": {"attribute_focus": {"slot1": {"type": "focus_strength", "calc": "add", "value": 0.25, "statName": "Strength", "label": "x", "level": null}}}},
		"statsAffected": {"Human": {"attribute_focus": {"Dexterity": ["slot9"]}}}
	}`)
	c, err := f.codec.Decode(data)
	require.NoError(t, err)
	assert.True(t, c.StatsAffected.Slots("Human", "attribute_focus", "Strength").Has("slot1"))
	assert.Nil(t, c.StatsAffected.Slots("Human", "attribute_focus", "Dexterity"))
}

func TestCodec_Malformed(t *testing.T) {
	f := newFixture(t)
	for _, in := range []string{`not json`, `[1, 2]`, `"text"`} {
		_, err := f.codec.Decode([]byte(in))
		assert.True(t, errors.Is(err, persist.ErrMalformed), in)
	}
	for _, in := range []string{`{"characters": []}`, `{`, `[{"name": "ok"}, 5]`} {
		_, err := f.codec.DecodeRoster([]byte(in))
		assert.True(t, errors.Is(err, persist.ErrMalformed), in)
	}
}

func TestCodec_RosterOrder(t *testing.T) {
	f := newFixture(t)
	a, b := f.sheet(t), f.sheet(t)
	b.Name = "Bran"

	data, err := f.codec.EncodeRoster([]*character.Character{a, b})
	require.NoError(t, err)
	got, err := f.codec.DecodeRoster(data)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Aria", got[0].Name)
	assert.Equal(t, "Bran", got[1].Name)
}

func TestPropertyLists_RoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := make(character.Affected)
		n := rapid.IntRange(0, 20).Draw(rt, "n")
		for i := 0; i < n; i++ {
			a.AddSlot(
				rapid.SampledFrom([]string{"Human", "Elf", "Warrior"}).Draw(rt, "category"),
				rapid.SampledFrom([]string{"g1", "g2"}).Draw(rt, "group"),
				rapid.SampledFrom([]string{"Strength", "Agility", "Mana"}).Draw(rt, "stat"),
				rapid.StringMatching(`slot[0-9]`).Draw(rt, "slot"),
			)
		}
		if !persist.FromLists(persist.ToLists(a)).Equal(a) {
			rt.Fatalf("set/list round trip lost data: %v", a)
		}
	})
}

func TestCodec_FromPersisted(t *testing.T) {
	f := newFixture(t)
	c := f.sheet(t)
	got, err := f.codec.FromPersisted(persist.ToPersisted(c, f.reg.Rules()))
	require.NoError(t, err)
	require.NoError(t, f.calc.Derive(got))
	assert.Equal(t, c.Name, got.Name)
	assert.Equal(t, c.Counters, got.Counters)
	assert.Equal(t, c.RollStats["Strength"].Total, got.RollStats["Strength"].Total)
}

func TestCodec_EffectWithoutDurationNeverExpires(t *testing.T) {
	f := newFixture(t)
	data := []byte(`{"name":"Old sheet","rollStats":{"Agility":{"baseValue":12,"temporaryEffects":{
		"manual":[{"values":[3],"type":"+","appliesTo":"total"},
		          {"values":[1],"type":"+","appliesTo":"total","duration":null},
		          {"values":[2],"type":"+","appliesTo":"total","duration":1}]}}}}`)
	c, err := f.codec.Decode(data)
	require.NoError(t, err)

	effects := c.RollStats["Agility"].TemporaryEffects[character.ManualCategory]
	require.Len(t, effects, 3)
	assert.True(t, effects[0].Infinite())
	assert.True(t, effects[1].Infinite())
	assert.Equal(t, 1, effects[2].Duration)

	expired := turn.Tick(c)
	assert.Equal(t, []string{"Agility/manual"}, expired)
	kept := c.RollStats["Agility"].TemporaryEffects[character.ManualCategory]
	require.Len(t, kept, 2)
	assert.Equal(t, []float64{3}, kept[0].Values)
	assert.Equal(t, []float64{1}, kept[1].Values)
}

package persist

import (
	"encoding/json"
	"strconv"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/character"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/ruleset"
)

// overlay copies well-typed persisted fields onto a default character.
type overlay struct {
	logger *zap.Logger
}

func (ov overlay) skip(field string, value gjson.Result) {
	ov.logger.Warn("ignoring persisted field",
		zap.String("field", field),
		zap.String("type", value.Type.String()),
	)
}

func (ov overlay) str(doc gjson.Result, field string, dst *string) {
	v := doc.Get(field)
	switch {
	case !v.Exists():
	case v.Type == gjson.String:
		*dst = v.String()
	default:
		ov.skip(field, v)
	}
}

func (ov overlay) integer(doc gjson.Result, field string, dst *int) {
	v := doc.Get(field)
	switch {
	case !v.Exists():
	case v.Type == gjson.Number:
		*dst = int(v.Int())
	default:
		ov.skip(field, v)
	}
}

func (ov overlay) number(doc gjson.Result, field string, dst *float64) {
	v := doc.Get(field)
	switch {
	case !v.Exists():
	case v.Type == gjson.Number:
		*dst = v.Float()
	default:
		ov.skip(field, v)
	}
}

// typed unmarshals an object or array field into dst, leaving dst untouched on
// any type mismatch.
func (ov overlay) typed(doc gjson.Result, field string, wantArray bool, dst any) bool {
	v := doc.Get(field)
	if !v.Exists() || v.Type == gjson.Null {
		return false
	}
	if (wantArray && !v.IsArray()) || (!wantArray && !v.IsObject()) {
		ov.skip(field, v)
		return false
	}
	if err := json.Unmarshal([]byte(v.Raw), dst); err != nil {
		ov.logger.Warn("ignoring persisted field", zap.String("field", field), zap.Error(err))
		return false
	}
	return true
}

func (ov overlay) character(c *character.Character, doc gjson.Result) {
	ov.str(doc, "id", &c.ID)
	ov.str(doc, "name", &c.Name)
	ov.str(doc, "race", &c.Race)
	ov.str(doc, "class", &c.Class)
	ov.integer(doc, "level", &c.Level)
	if c.Level < 1 {
		c.Level = 1
	}
	ov.integer(doc, "levelExperience", &c.LevelExperience)
	ov.integer(doc, "purse", &c.Purse)

	doc.Get("rollStats").ForEach(func(key, value gjson.Result) bool {
		rs, ok := c.RollStats[key.String()]
		if !ok || !value.IsObject() {
			ov.skip("rollStats."+key.String(), value)
			return true
		}
		ov.rollStat(rs, value)
		return true
	})
	doc.Get("otherStats").ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if name == ruleset.TotalDefense {
			return true
		}
		ds, ok := c.OtherStats[name]
		if !ok || !value.IsObject() {
			ov.skip("otherStats."+name, value)
			return true
		}
		ov.number(value, "value", &ds.Value)
		ov.number(value, "racialChange", &ds.RacialChange)
		ov.effects(value, &ds.TemporaryEffects)
		return true
	})

	var ids map[string]character.AbilityRecord
	if ov.typed(doc, "uniqueIdentifiers", false, &ids) {
		c.UniqueIdentifiers = ids
	}
	var choices character.Choices
	if ov.typed(doc, "statChoices", false, &choices) {
		c.StatChoices = choices
	}
	var lists AffectedLists
	if ov.typed(doc, "statsAffected", false, &lists) {
		c.StatsAffected = FromLists(lists)
	}
	if rebuilt := c.StatChoices.Rebuild(); !rebuilt.Equal(c.StatsAffected) {
		ov.logger.Warn("statsAffected disagrees with statChoices; rebuilding")
		c.StatsAffected = rebuilt
	}

	doc.Get("counters").ForEach(func(key, value gjson.Result) bool {
		if value.Type == gjson.Number && value.Int() != 0 {
			c.Counters[key.String()] = int(value.Int())
		}
		return true
	})
	doc.Get("states").ForEach(func(key, value gjson.Result) bool {
		if value.IsBool() && value.Bool() {
			c.States[key.String()] = true
		}
		return true
	})

	var inventory []character.Item
	if ov.typed(doc, "inventory", true, &inventory) {
		c.Inventory = inventory
	}
	var extras map[string]any
	if ov.typed(doc, "extras", false, &extras) {
		c.Extras = extras
	}
}

func (ov overlay) rollStat(rs *character.RollStat, value gjson.Result) {
	ov.integer(value, "baseValue", &rs.BaseValue)
	ov.integer(value, "experienceBonus", &rs.ExperienceBonus)
	if rs.ExperienceBonus < 0 {
		rs.ExperienceBonus = 0
	}
	ov.number(value, "racialChange", &rs.RacialChange)
	ov.number(value, "equipment", &rs.Equipment)
	ov.integer(value, "experience", &rs.Experience)
	maxExp := 0
	ov.integer(value, "maxExperience", &maxExp)
	if maxExp > 0 {
		rs.MaxExperience = maxExp
	}
	ov.effects(value, &rs.TemporaryEffects)
}

func (ov overlay) effects(value gjson.Result, dst *character.Effects) {
	var effects character.Effects
	if !ov.typed(value, "temporaryEffects", false, &effects) {
		return
	}
	raw := value.Get("temporaryEffects")
	for cat, list := range effects {
		for i := range list {
			if list[i].Category == "" {
				list[i].Category = cat
			}
			// An effect saved without a duration never expires.
			d := raw.Get(escapePath(cat) + "." + strconv.Itoa(i) + ".duration")
			if !d.Exists() || d.Type == gjson.Null {
				list[i].Duration = character.InfiniteDuration
			}
		}
	}
	*dst = effects
}

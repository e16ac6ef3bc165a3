package character

import "maps"

// Clone returns a deep copy of c. Extras values are copied shallowly.
func (c *Character) Clone() *Character {
	out := *c
	out.RollStats = make(map[string]*RollStat, len(c.RollStats))
	for name, rs := range c.RollStats {
		cp := *rs
		cp.TemporaryEffects = rs.TemporaryEffects.Clone()
		out.RollStats[name] = &cp
	}
	out.OtherStats = make(map[string]*DerivedStat, len(c.OtherStats))
	for name, ds := range c.OtherStats {
		cp := *ds
		cp.TemporaryEffects = ds.TemporaryEffects.Clone()
		out.OtherStats[name] = &cp
	}
	out.UniqueIdentifiers = make(map[string]AbilityRecord, len(c.UniqueIdentifiers))
	for id, rec := range c.UniqueIdentifiers {
		if rec.Override != nil {
			o := *rec.Override
			rec.Override = &o
		}
		out.UniqueIdentifiers[id] = rec
	}
	out.StatChoices = c.StatChoices.Clone()
	out.StatsAffected = c.StatsAffected.Clone()
	out.Counters = maps.Clone(c.Counters)
	out.States = maps.Clone(c.States)
	out.Inventory = append([]Item(nil), c.Inventory...)
	out.Extras = maps.Clone(c.Extras)
	return &out
}

// Restore overwrites c in place with the contents of snapshot.
func (c *Character) Restore(snapshot *Character) {
	*c = *snapshot.Clone()
}

// Clone returns a deep copy of e.
func (e Effects) Clone() Effects {
	if e == nil {
		return make(Effects)
	}
	out := make(Effects, len(e))
	for cat, list := range e {
		cp := make([]Effect, len(list))
		for i, eff := range list {
			eff.StatsAffected = append([]string(nil), eff.StatsAffected...)
			eff.Types = append([]string(nil), eff.Types...)
			eff.Values = append([]float64(nil), eff.Values...)
			cp[i] = eff
		}
		out[cat] = cp
	}
	return out
}

// Clone returns a deep copy of ch.
func (ch Choices) Clone() Choices {
	out := make(Choices, len(ch))
	for cat, groups := range ch {
		g := make(map[string]map[string]Choice, len(groups))
		for group, slots := range groups {
			s := make(map[string]Choice, len(slots))
			for slot, choice := range slots {
				if choice.Value != nil {
					v := *choice.Value
					choice.Value = &v
				}
				if choice.Level != nil {
					l := *choice.Level
					choice.Level = &l
				}
				s[slot] = choice
			}
			g[group] = s
		}
		out[cat] = g
	}
	return out
}

// Clone returns a deep copy of a.
func (a Affected) Clone() Affected {
	out := make(Affected, len(a))
	for cat, groups := range a {
		for group, stats := range groups {
			for stat, set := range stats {
				for slot := range set {
					out.AddSlot(cat, group, stat, slot)
				}
			}
		}
	}
	return out
}

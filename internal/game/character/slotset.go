package character

import "sort"

// SlotSet is the set of UI slot ids currently applying an effect to one stat.
type SlotSet map[string]struct{}

// NewSlotSet builds a set from ids.
func NewSlotSet(ids ...string) SlotSet {
	s := make(SlotSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts id.
func (s SlotSet) Add(id string) { s[id] = struct{}{} }

// Remove deletes id; removing an absent id is a no-op.
func (s SlotSet) Remove(id string) { delete(s, id) }

// Has reports membership.
func (s SlotSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in ascending order.
func (s SlotSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether both sets hold the same members.
func (s SlotSet) Equal(o SlotSet) bool {
	if len(s) != len(o) {
		return false
	}
	for id := range s {
		if !o.Has(id) {
			return false
		}
	}
	return true
}

// Slots returns the slot set for (category, group, stat), or nil.
func (a Affected) Slots(category, group, stat string) SlotSet {
	return a[category][group][stat]
}

// AddSlot records that slot applies an effect to stat.
func (a Affected) AddSlot(category, group, stat, slot string) {
	groups, ok := a[category]
	if !ok {
		groups = make(map[string]map[string]SlotSet)
		a[category] = groups
	}
	stats, ok := groups[group]
	if !ok {
		stats = make(map[string]SlotSet)
		groups[group] = stats
	}
	set, ok := stats[stat]
	if !ok {
		set = make(SlotSet)
		stats[stat] = set
	}
	set.Add(slot)
}

// RemoveSlot removes slot from stat's set and prunes every map left empty.
func (a Affected) RemoveSlot(category, group, stat, slot string) {
	set := a[category][group][stat]
	if set == nil {
		return
	}
	set.Remove(slot)
	if len(set) > 0 {
		return
	}
	delete(a[category][group], stat)
	if len(a[category][group]) == 0 {
		delete(a[category], group)
	}
	if len(a[category]) == 0 {
		delete(a, category)
	}
}

// Rebuild derives the reverse index from choices.
func (ch Choices) Rebuild() Affected {
	out := make(Affected)
	for cat, groups := range ch {
		for group, slots := range groups {
			for slot, choice := range slots {
				if choice.StatName != "" {
					out.AddSlot(cat, group, choice.StatName, slot)
				}
			}
		}
	}
	return out
}

// Equal reports whether both indexes hold the same sets.
func (a Affected) Equal(o Affected) bool {
	if len(a) != len(o) {
		return false
	}
	for cat, groups := range a {
		if len(groups) != len(o[cat]) {
			return false
		}
		for group, stats := range groups {
			if len(stats) != len(o[cat][group]) {
				return false
			}
			for stat, set := range stats {
				if !set.Equal(o[cat][group][stat]) {
					return false
				}
			}
		}
	}
	return true
}

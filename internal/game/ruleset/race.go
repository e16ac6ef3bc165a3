package ruleset

import (
	"fmt"
	"sort"
)

// StarterItem is one entry of a race's starter-item table.
type StarterItem struct {
	Name     string  `yaml:"name"`
	Quantity int     `yaml:"quantity"`
	Defense  float64 `yaml:"defense"`
	Equipped bool    `yaml:"equipped"`
}

// Option is a manual passive the player may pick for a slot.
//
// Unique is the conflict group: at most one slot of the group may claim a stat.
type Option struct {
	Type            string   `yaml:"type"`
	Label           string   `yaml:"label"`
	Unique          string   `yaml:"unique"`
	Calc            CalcKind `yaml:"calc"`
	Value           *float64 `yaml:"value"`
	Level           *int     `yaml:"level"`
	ApplicableStats []string `yaml:"applicable_stats"`
}

// Race defines a playable race.
type Race struct {
	ID           string             `yaml:"id"`
	Name         string             `yaml:"name"`
	Description  string             `yaml:"description"`
	Footnote     string             `yaml:"footnote"`
	Modifiers    map[string]float64 `yaml:"modifiers"`
	StarterItems []StarterItem      `yaml:"starter_items"`
	StarterPurse int                `yaml:"starter_purse"`
	Options      []Option           `yaml:"options"`
	Abilities    []Ability          `yaml:"abilities"`
}

// Modifier returns the race's static modifier for stat; 1 when the race does not list it.
func (r *Race) Modifier(stat string) float64 {
	if m, ok := r.Modifiers[stat]; ok {
		return m
	}
	return 1
}

// Class defines a character class. Classes carry passives but no stat modifiers.
type Class struct {
	ID          string    `yaml:"id"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Options     []Option  `yaml:"options"`
	Abilities   []Ability `yaml:"abilities"`
}

// Provider is the read side of the static data the engine consumes.
type Provider interface {
	Rules() *Rules
	Race(id string) (*Race, error)
	Class(id string) (*Class, error)
}

// Registry is the in-memory Provider built from loaded content.
type Registry struct {
	rules   *Rules
	races   map[string]*Race
	classes map[string]*Class
}

// NewRegistry creates an empty Registry over rules.
//
// Precondition: rules must have been indexed.
func NewRegistry(rules *Rules) *Registry {
	return &Registry{
		rules:   rules,
		races:   make(map[string]*Race),
		classes: make(map[string]*Class),
	}
}

// Rules returns the ruleset-wide settings.
func (r *Registry) Rules() *Rules { return r.rules }

// RegisterRace validates race against the rules and adds it, replacing any race with the same ID.
func (r *Registry) RegisterRace(race *Race) error {
	if race.ID == "" {
		return fmt.Errorf("race must have an id")
	}
	for stat := range race.Modifiers {
		if r.rules.KindOf(stat) == KindUnknown {
			return fmt.Errorf("race %q: modifier for unknown stat %q", race.ID, stat)
		}
	}
	if err := r.validatePassives(race.ID, race.Options, race.Abilities); err != nil {
		return err
	}
	r.races[race.ID] = race
	return nil
}

// RegisterClass validates class against the rules and adds it.
func (r *Registry) RegisterClass(class *Class) error {
	if class.ID == "" {
		return fmt.Errorf("class must have an id")
	}
	if err := r.validatePassives(class.ID, class.Options, class.Abilities); err != nil {
		return err
	}
	r.classes[class.ID] = class
	return nil
}

// Race returns the race with id, or an error wrapping ErrNotFound.
func (r *Registry) Race(id string) (*Race, error) {
	race, ok := r.races[id]
	if !ok {
		return nil, fmt.Errorf("race %q: %w", id, ErrNotFound)
	}
	return race, nil
}

// Class returns the class with id, or an error wrapping ErrNotFound.
func (r *Registry) Class(id string) (*Class, error) {
	class, ok := r.classes[id]
	if !ok {
		return nil, fmt.Errorf("class %q: %w", id, ErrNotFound)
	}
	return class, nil
}

// RaceIDs returns all registered race ids in sorted order.
func (r *Registry) RaceIDs() []string {
	out := make([]string, 0, len(r.races))
	for id := range r.races {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) validatePassives(owner string, options []Option, abilities []Ability) error {
	for _, o := range options {
		if !o.Calc.Valid() {
			return fmt.Errorf("%s option %q: invalid calc %q", owner, o.Type, o.Calc)
		}
		if o.Calc != CalcCount && o.Value == nil {
			return fmt.Errorf("%s option %q: calc %q requires a value", owner, o.Type, o.Calc)
		}
		if o.Calc == CalcMult && *o.Value == 0 {
			return fmt.Errorf("%s option %q: mult value must not be zero", owner, o.Type)
		}
		for _, s := range o.ApplicableStats {
			if r.rules.KindOf(s) == KindUnknown {
				return fmt.Errorf("%s option %q: unknown stat %q", owner, o.Type, s)
			}
		}
	}
	for _, a := range abilities {
		if err := a.validate(r.rules); err != nil {
			return fmt.Errorf("%s ability %q: %w", owner, a.Name, err)
		}
	}
	return nil
}

package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/character"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/ruleset"
)

// ErrMalformed is returned when persisted data is not a JSON document of the
// expected shape.
var ErrMalformed = errors.New("persist: malformed data")

// legacyRacialChange is the field name racialChange was persisted under by
// older sheets.
const legacyRacialChange = "racialBonus"

// DefaultFactory builds the default character that persisted fields are overlaid on.
type DefaultFactory func() (*character.Character, error)

// Codec encodes and decodes characters and rosters.
type Codec struct {
	rules      *ruleset.Rules
	newDefault DefaultFactory
	logger     *zap.Logger
}

// NewCodec creates a Codec.
//
// Precondition: rules, newDefault and logger must be non-nil.
func NewCodec(rules *ruleset.Rules, newDefault DefaultFactory, logger *zap.Logger) *Codec {
	return &Codec{rules: rules, newDefault: newDefault, logger: logger}
}

// Encode serializes one character.
func (cd *Codec) Encode(c *character.Character) ([]byte, error) {
	data, err := json.Marshal(ToPersisted(c, cd.rules))
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", c.Name, err)
	}
	return data, nil
}

// EncodeRoster serializes a roster as a JSON array in roster order.
func (cd *Codec) EncodeRoster(roster []*character.Character) ([]byte, error) {
	out := make([]Character, 0, len(roster))
	for _, c := range roster {
		out = append(out, ToPersisted(c, cd.rules))
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encoding roster: %w", err)
	}
	return data, nil
}

// DecodeRoster parses a roster written by EncodeRoster or by an older sheet.
//
// Postcondition: Returns an error wrapping ErrMalformed when data is not a JSON
// array of objects.
func (cd *Codec) DecodeRoster(data []byte) ([]*character.Character, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: roster is not valid JSON", ErrMalformed)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsArray() {
		return nil, fmt.Errorf("%w: roster must be an array", ErrMalformed)
	}
	var out []*character.Character
	var decodeErr error
	doc.ForEach(func(_, value gjson.Result) bool {
		c, err := cd.Decode([]byte(value.Raw))
		if err != nil {
			decodeErr = fmt.Errorf("roster entry %d: %w", len(out), err)
			return false
		}
		out = append(out, c)
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return out, nil
}

// Decode parses one persisted character.
//
// Decoding starts from a fresh default character and overlays only recognized,
// well-typed fields; anything else is logged and ignored. Legacy field names are
// migrated first. Computed values are left zero for the stat calculator to derive.
//
// Postcondition: Returns an error wrapping ErrMalformed when data is not a JSON object.
func (cd *Codec) Decode(data []byte) (*character.Character, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: character is not valid JSON", ErrMalformed)
	}
	migrated, err := MigrateLegacy(data)
	if err != nil {
		return nil, err
	}
	doc := gjson.ParseBytes(migrated)
	if !doc.IsObject() {
		return nil, fmt.Errorf("%w: character must be an object", ErrMalformed)
	}
	c, err := cd.newDefault()
	if err != nil {
		return nil, fmt.Errorf("building default character: %w", err)
	}
	ov := overlay{logger: cd.logger.With(zap.String("character", doc.Get("name").String()))}
	ov.character(c, doc)
	return c, nil
}

// FromPersisted rebuilds a character from its persisted form.
func (cd *Codec) FromPersisted(p Character) (*character.Character, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", p.Name, err)
	}
	return cd.Decode(data)
}

// MigrateLegacy renames the legacy racialBonus field of every roll and other stat
// to racialChange. A stat carrying both keeps racialChange.
func MigrateLegacy(data []byte) ([]byte, error) {
	out := data
	for _, section := range []string{"rollStats", "otherStats"} {
		var stats []string
		gjson.GetBytes(out, section).ForEach(func(key, value gjson.Result) bool {
			if value.Get(legacyRacialChange).Exists() {
				stats = append(stats, key.String())
			}
			return true
		})
		for _, stat := range stats {
			base := section + "." + escapePath(stat)
			var err error
			if !gjson.GetBytes(out, base+".racialChange").Exists() {
				raw := gjson.GetBytes(out, base+"."+legacyRacialChange).Raw
				if out, err = sjson.SetRawBytes(out, base+".racialChange", []byte(raw)); err != nil {
					return nil, fmt.Errorf("migrating %s: %w", base, err)
				}
			}
			if out, err = sjson.DeleteBytes(out, base+"."+legacyRacialChange); err != nil {
				return nil, fmt.Errorf("migrating %s: %w", base, err)
			}
		}
	}
	return out, nil
}

// escapePath escapes the characters gjson and sjson treat as path syntax.
func escapePath(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', ':', '!', '=', '<', '>', '%':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

package ruleset

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadDirectory reads dir/ruleset.yaml, every race in dir/races and every class in
// dir/classes, and returns a populated Registry.
//
// Precondition: dir must be a readable directory containing ruleset.yaml.
// Postcondition: Returns a non-nil Registry, or an error naming the first file that
// failed to parse or validate.
func LoadDirectory(dir string) (*Registry, error) {
	var rules Rules
	if err := decodeFile(filepath.Join(dir, "ruleset.yaml"), &rules); err != nil {
		return nil, err
	}
	if err := rules.Index(); err != nil {
		return nil, fmt.Errorf("ruleset.yaml: %w", err)
	}
	reg := NewRegistry(&rules)

	racePaths, err := yamlFiles(filepath.Join(dir, "races"))
	if err != nil {
		return nil, err
	}
	for _, path := range racePaths {
		var race Race
		if err := decodeFile(path, &race); err != nil {
			return nil, err
		}
		if err := reg.RegisterRace(&race); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	// classes/ is optional; a ruleset may define races only.
	var classPaths []string
	if classDir := filepath.Join(dir, "classes"); dirExists(classDir) {
		if classPaths, err = yamlFiles(classDir); err != nil {
			return nil, err
		}
	}
	for _, path := range classPaths {
		var class Class
		if err := decodeFile(path, &class); err != nil {
			return nil, err
		}
		if err := reg.RegisterClass(&class); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	if rules.DefaultRace != "" {
		if _, err := reg.Race(rules.DefaultRace); err != nil {
			return nil, fmt.Errorf("default_race: %w", err)
		}
	}
	return reg, nil
}

func decodeFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func dirExists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

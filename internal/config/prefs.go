package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"lifelock/internal/model"
)

// Prefs is the UI preference state that survives restarts: per-view
// configuration and the last active filter. Task data is never persisted
// here; the remote service stays the source of truth for it.
type Prefs struct {
	ActiveView model.ViewType                      `yaml:"active_view"`
	Views      map[model.ViewType]model.ViewConfig `yaml:"views"`
	Filter     FilterPrefs                         `yaml:"filter"`
}

// FilterPrefs is the subset of filter state worth keeping across sessions.
// Time-range and search predicates are deliberately session-only.
type FilterPrefs struct {
	Statuses   []model.Status   `yaml:"statuses,omitempty"`
	Priorities []model.Priority `yaml:"priorities,omitempty"`
	Categories []model.Category `yaml:"categories,omitempty"`
	Projects   []string         `yaml:"projects,omitempty"`
	Tags       []string         `yaml:"tags,omitempty"`
}

// ToFilter expands the persisted predicates into a live filter.
func (p FilterPrefs) ToFilter() model.Filter {
	return model.Filter{
		Statuses:   p.Statuses,
		Priorities: p.Priorities,
		Categories: p.Categories,
		Projects:   p.Projects,
		Tags:       p.Tags,
	}
}

// FilterPrefsFrom keeps the persistable subset of a live filter.
func FilterPrefsFrom(f model.Filter) FilterPrefs {
	return FilterPrefs{
		Statuses:   f.Statuses,
		Priorities: f.Priorities,
		Categories: f.Categories,
		Projects:   f.Projects,
		Tags:       f.Tags,
	}
}

// DefaultPrefs returns the state used when no prefs file exists yet.
func DefaultPrefs() Prefs {
	return Prefs{
		ActiveView: model.ViewList,
		Views:      model.DefaultViewConfigs(),
	}
}

// LoadPrefs reads preferences from path. A missing file is not an error and
// yields defaults.
func LoadPrefs(path string) (Prefs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultPrefs(), nil
		}
		return Prefs{}, fmt.Errorf("read prefs: %w", err)
	}

	prefs := DefaultPrefs()
	if err := yaml.Unmarshal(data, &prefs); err != nil {
		return Prefs{}, fmt.Errorf("parse prefs: %w", err)
	}
	if prefs.ActiveView == "" {
		prefs.ActiveView = model.ViewList
	}
	if prefs.Views == nil {
		prefs.Views = model.DefaultViewConfigs()
	}
	return prefs, nil
}

// SavePrefs writes preferences to path, creating parent directories.
func SavePrefs(path string, prefs Prefs) error {
	data, err := yaml.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("encode prefs: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create prefs dir %q: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

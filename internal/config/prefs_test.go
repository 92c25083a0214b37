package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifelock/internal/model"
)

func TestLoadPrefsMissingFileYieldsDefaults(t *testing.T) {
	prefs, err := LoadPrefs(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, model.ViewList, prefs.ActiveView)
	assert.Equal(t, model.DefaultViewConfigs(), prefs.Views)
	assert.Empty(t, prefs.Filter.Statuses)
}

func TestPrefsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.yaml")
	saved := Prefs{
		ActiveView: model.ViewKanban,
		Views: map[model.ViewType]model.ViewConfig{
			model.ViewKanban: {SortKey: model.SortByPriority, SortDesc: true},
		},
		Filter: FilterPrefs{
			Statuses:   []model.Status{model.StatusInProgress},
			Priorities: []model.Priority{model.PriorityHigh},
			Projects:   []string{"launch"},
			Tags:       []string{"urgent"},
		},
	}

	require.NoError(t, SavePrefs(path, saved))
	loaded, err := LoadPrefs(path)
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
}

func TestLoadPrefsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o644))

	_, err := LoadPrefs(path)
	assert.Error(t, err)
}

func TestLoadPrefsFillsMissingSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("filter:\n  tags: [home]\n"), 0o644))

	prefs, err := LoadPrefs(path)
	require.NoError(t, err)
	assert.Equal(t, model.ViewList, prefs.ActiveView)
	assert.NotNil(t, prefs.Views)
	assert.Equal(t, []string{"home"}, prefs.Filter.Tags)
}

func TestFilterPrefsKeepPersistableSubsetOnly(t *testing.T) {
	full := model.Filter{
		Statuses: []model.Status{model.StatusNotStarted},
		Tags:     []string{"a"},
		Search:   "dropped",
		Overdue:  model.BoolPtr(true),
	}

	prefs := FilterPrefsFrom(full)
	back := prefs.ToFilter()
	assert.Equal(t, full.Statuses, back.Statuses)
	assert.Equal(t, full.Tags, back.Tags)
	assert.Empty(t, back.Search)
	assert.Nil(t, back.Overdue)
}

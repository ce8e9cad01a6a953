package preferences_test

import (
	"os"
	"path/filepath"
	"testing"

	"ai-artist-backend/internal/generation"
	"ai-artist-backend/internal/preferences"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	prefs, err := preferences.Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, preferences.Default(), prefs)
	assert.Equal(t, generation.FactoryDefaults(), prefs.Defaults())
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "preferences.toml")
	want := preferences.Preferences{
		DefaultStyle:       "ukiyo-e",
		DefaultQuality:     "high",
		DefaultNumOutputs:  3,
		DefaultAspectRatio: "9:16",
	}
	require.NoError(t, preferences.Save(path, want))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "default_style")
	assert.Contains(t, string(data), "ukiyo-e")

	got, err := preferences.Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should be renamed away")
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.toml")
	require.NoError(t, os.WriteFile(path, []byte("default_num_outputs = 2\n"), 0o644))

	got, err := preferences.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, got.DefaultNumOutputs)
	assert.Equal(t, preferences.Default().DefaultStyle, got.DefaultStyle)
}

func TestSaveRejectsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *preferences.Preferences)
	}{
		{"unknown style", func(p *preferences.Preferences) { p.DefaultStyle = "baroque" }},
		{"unknown quality", func(p *preferences.Preferences) { p.DefaultQuality = "ultra" }},
		{"too many outputs", func(p *preferences.Preferences) { p.DefaultNumOutputs = 5 }},
		{"zero outputs", func(p *preferences.Preferences) { p.DefaultNumOutputs = 0 }},
		{"aspect ratio", func(p *preferences.Preferences) { p.DefaultAspectRatio = "4:3" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "preferences.toml")
			p := preferences.Default()
			tt.mutate(&p)

			assert.Error(t, preferences.Save(path, p))
			_, err := os.Stat(path)
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.toml")
	require.NoError(t, os.WriteFile(path, []byte("default_style = [oops"), 0o644))

	prefs, err := preferences.Load(path)
	assert.Error(t, err)
	assert.Equal(t, preferences.Default(), prefs)
}

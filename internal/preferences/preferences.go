package preferences

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"ai-artist-backend/internal/generation"

	"github.com/pelletier/go-toml/v2"
)

// Preferences are the user's saved defaults for new image requests.
type Preferences struct {
	DefaultStyle       string `toml:"default_style" json:"default_style"`
	DefaultQuality     string `toml:"default_quality" json:"default_quality"`
	DefaultNumOutputs  int    `toml:"default_num_outputs" json:"default_num_outputs"`
	DefaultAspectRatio string `toml:"default_aspect_ratio" json:"default_aspect_ratio"`
}

// Default returns the factory preferences.
func Default() Preferences {
	d := generation.FactoryDefaults()
	return Preferences{
		DefaultStyle:       string(d.Style),
		DefaultQuality:     string(d.Quality),
		DefaultNumOutputs:  d.NumOutputs,
		DefaultAspectRatio: d.AspectRatio,
	}
}

// Defaults converts the preferences into controller defaults.
func (p Preferences) Defaults() generation.Defaults {
	return generation.Defaults{
		Style:       generation.Style(p.DefaultStyle),
		Quality:     generation.Quality(p.DefaultQuality),
		NumOutputs:  p.DefaultNumOutputs,
		AspectRatio: p.DefaultAspectRatio,
	}
}

func (p Preferences) Validate() error {
	if err := p.Defaults().Validate(); err != nil {
		return fmt.Errorf("invalid preferences: %w", err)
	}
	return nil
}

// Load reads the preferences file. A missing file yields the defaults, and
// fields absent from the file keep their default values.
func Load(path string) (Preferences, error) {
	prefs := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return prefs, nil
	}
	if err != nil {
		return prefs, fmt.Errorf("read preferences: %w", err)
	}
	if err := toml.Unmarshal(data, &prefs); err != nil {
		return Default(), fmt.Errorf("parse preferences %s: %w", path, err)
	}
	if err := prefs.Validate(); err != nil {
		return Default(), err
	}
	return prefs, nil
}

// Save validates and writes the preferences, replacing the file atomically.
func Save(path string, prefs Preferences) error {
	if err := prefs.Validate(); err != nil {
		return err
	}
	data, err := toml.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create preferences dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".preferences-*.toml")
	if err != nil {
		return fmt.Errorf("create temp preferences: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close preferences: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace preferences: %w", err)
	}
	return nil
}

// Package prefs keeps the local client preferences: the colour theme and the
// last room. The passphrase is never part of it.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pelusa-v/bearboo-letters/internal/apperr"
)

const DefaultTheme = "theme-pink"

var Themes = []string{"pink", "purple", "blue", "green", "yellow", "red"}

// NormalizeTheme accepts "pink" or "theme-pink" and returns the class name.
func NormalizeTheme(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimPrefix(name, "theme-")
	for _, t := range Themes {
		if t == name {
			return "theme-" + t, nil
		}
	}
	return "", apperr.ErrInvalidTheme
}

type Prefs struct {
	Theme string `yaml:"theme"`
	Room  string `yaml:"room,omitempty"`
}

// Store reads and writes one prefs file.
type Store struct {
	path string
}

func NewStore(path string) *Store { return &Store{path: path} }

// DefaultPath is bearboo/prefs.yaml under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "bearboo", "prefs.yaml"), nil
}

func (s *Store) Path() string { return s.path }

// Load returns defaults when the file does not exist yet.
func (s *Store) Load() (Prefs, error) {
	p := Prefs{Theme: DefaultTheme}
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("prefs: %w", err)
	}
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Prefs{Theme: DefaultTheme}, fmt.Errorf("prefs: %w", err)
	}
	if t, err := NormalizeTheme(p.Theme); err == nil {
		p.Theme = t
	} else {
		p.Theme = DefaultTheme
	}
	return p, nil
}

func (s *Store) Save(p Prefs) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("prefs: %w", err)
	}
	b, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("prefs: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("prefs: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) SetTheme(name string) (Prefs, error) {
	theme, err := NormalizeTheme(name)
	if err != nil {
		return Prefs{}, err
	}
	p, err := s.Load()
	if err != nil {
		return p, err
	}
	p.Theme = theme
	return p, s.Save(p)
}

func (s *Store) SetRoom(room string) (Prefs, error) {
	p, err := s.Load()
	if err != nil {
		return p, err
	}
	p.Room = room
	return p, s.Save(p)
}

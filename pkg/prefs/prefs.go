// Package prefs stores the tracker CLI's preferences in
// ~/.config/booktracker/prefs.toml.
package prefs

import (
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/shishobooks/booktracker/pkg/client"
)

type Prefs struct {
	APIBaseURL string `toml:"api_base_url"`
}

const defaultPrefsPath = "~/.config/booktracker/prefs.toml"

func Defaults() Prefs {
	return Prefs{APIBaseURL: client.DefaultBaseURL}
}

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Load reads preferences from path, or the default path if path is empty. A
// missing file yields the defaults. A file that can't be parsed yields the
// defaults along with the parse error.
func Load(path string) (Prefs, error) {
	prefs := Defaults()

	resolved, err := resolvePath(path)
	if err != nil {
		return prefs, err
	}

	b, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return prefs, nil
		}
		return prefs, errors.Wrap(err, "read prefs")
	}

	if err := toml.Unmarshal(b, &prefs); err != nil {
		return Defaults(), errors.Wrapf(err, "parse prefs %s", resolved)
	}

	if strings.TrimSpace(prefs.APIBaseURL) == "" {
		prefs.APIBaseURL = client.DefaultBaseURL
	}

	return prefs, nil
}

// Save writes preferences to path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return errors.Wrap(err, "create prefs dir")
	}

	b, err := toml.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "marshal prefs")
	}

	return errors.Wrap(os.WriteFile(resolved, b, 0o644), "write prefs")
}

func resolvePath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		trimmed = defaultPrefsPath
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "resolve home dir")
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	abs, err := filepath.Abs(trimmed)
	return abs, errors.WithStack(err)
}

package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath resolves the path shorthand accepted in crosstally.yaml and
// on the command line: a leading ~ becomes the home directory and $VAR
// references are replaced from the environment. Paths that need neither
// pass through unchanged.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	switch {
	case strings.HasPrefix(path, "~/"):
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	case path == "~":
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}

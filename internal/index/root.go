package index

import (
	"os"
	"path/filepath"
)

var rootMarkers = []string{".git", "go.mod", "requirements.txt", "pyproject.toml", "package.json"}

// FindProjectRoot walks up from start, a file or directory, to the nearest
// directory holding a project marker. Without one the start directory is
// returned.
func FindProjectRoot(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		abs = filepath.Dir(abs)
	}

	for dir := abs; ; {
		for _, marker := range rootMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, nil
		}
		dir = parent
	}
}

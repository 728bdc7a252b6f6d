package indexer

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DefaultMaxFileSize is the size ceiling above which files are ignored
const DefaultMaxFileSize = 1 << 20

var ignoredDirs = map[string]bool{
	".git": true, "__pycache__": true, ".vscode": true, ".idea": true,
	"node_modules": true, "venv": true, ".venv": true, ".env": true,
	"build": true, "dist": true, "vendor": true, "target": true,
	".next": true, "coverage": true, ".codecontext": true,
}

var ignoredFiles = map[string]bool{
	".DS_Store": true, ".gitignore": true, "package-lock.json": true,
	"yarn.lock": true, "pnpm-lock.yaml": true, "go.sum": true,
}

var ignoredSuffixes = []string{
	".pyc", ".log", ".swp", ".swo", ".tmp", ".bak",
	".min.js", ".min.css", ".map", ".lock",
}

var supportedExtensions = map[string]bool{
	".py": true, ".js": true, ".jsx": true, ".ts": true, ".tsx": true,
	".go": true, ".java": true, ".html": true, ".htm": true,
	".css": true, ".scss": true, ".sass": true, ".less": true,
	".json": true, ".yaml": true, ".yml": true, ".md": true, ".txt": true,
}

// Policy decides which paths take part in indexing and freshness checks
type Policy struct {
	ExtraIgnoreDirs []string
	MaxFileSize     int64 // 0 means DefaultMaxFileSize
}

// IgnoreDir reports whether a directory with this base name is skipped
func (p Policy) IgnoreDir(name string) bool {
	if ignoredDirs[name] || strings.HasPrefix(name, ".") {
		return true
	}
	for _, extra := range p.ExtraIgnoreDirs {
		if name == extra {
			return true
		}
	}
	return false
}

// IgnoreFile reports whether a file with this base name and size is skipped
func (p Policy) IgnoreFile(name string, size int64) bool {
	if ignoredFiles[name] || strings.HasPrefix(name, ".") {
		return true
	}
	for _, suffix := range ignoredSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	limit := p.MaxFileSize
	if limit <= 0 {
		limit = DefaultMaxFileSize
	}
	return size > limit
}

// IgnorePath reports whether rel, a slash separated path relative to the
// project root, lies in an ignored directory or is an ignored file.
// A size of -1 skips the size check.
func (p Policy) IgnorePath(rel string, size int64) bool {
	parts := strings.Split(rel, "/")
	for _, dir := range parts[:len(parts)-1] {
		if p.IgnoreDir(dir) {
			return true
		}
	}
	if size < 0 {
		size = 0
	}
	return p.IgnoreFile(parts[len(parts)-1], size)
}

// Supported reports whether a file's extension is indexed
func Supported(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// SourceFile is one file selected for indexing
type SourceFile struct {
	Path    string // relative to the root, slash separated
	AbsPath string
	Size    int64
	ModTime time.Time
}

// Scan is the result of walking a project tree
type Scan struct {
	Files []SourceFile // supported files, sorted by path
	// Freshness is the newest modification time among all non-ignored
	// files, supported or not
	Freshness time.Time
}

// ScanProject walks root applying the ignore policy
func ScanProject(root string, policy Policy) (*Scan, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan %s: not a directory", root)
	}

	scan := &Scan{}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// unreadable subtrees are skipped, the root itself is not
			if path == root {
				return err
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && policy.IgnoreDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return nil
		}
		if policy.IgnoreFile(d.Name(), fi.Size()) {
			return nil
		}
		if fi.ModTime().After(scan.Freshness) {
			scan.Freshness = fi.ModTime()
		}
		if !Supported(path) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		scan.Files = append(scan.Files, SourceFile{
			Path:    filepath.ToSlash(rel),
			AbsPath: path,
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(scan.Files, func(i, j int) bool { return scan.Files[i].Path < scan.Files[j].Path })
	return scan, nil
}

// Freshness returns the newest modification time of non-ignored files
func Freshness(root string, policy Policy) (time.Time, error) {
	scan, err := ScanProject(root, policy)
	if err != nil {
		return time.Time{}, err
	}
	return scan.Freshness, nil
}

// goModInfo contains parsed go.mod information
type goModInfo struct {
	Module string
}

// parseGoMod extracts basic info from go.mod file
func parseGoMod(goModPath string) (*goModInfo, error) {
	content, err := os.ReadFile(goModPath)
	if err != nil {
		return nil, err
	}

	info := &goModInfo{}
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "module ") {
			info.Module = strings.Trim(strings.TrimSpace(strings.TrimPrefix(line, "module")), `"`)
			break
		}
	}
	return info, nil
}

package graph

import (
	"path"
	"strings"

	"github.com/dshills/codecontext/pkg/types"
)

var (
	resolveExtensions = []string{".js", ".jsx", ".ts", ".tsx", ".py", ""}
	indexFiles        = []string{"index.js", "index.jsx", "index.ts", "index.tsx", "__init__.py"}
)

// resolver maps import sources to indexed files
type resolver struct {
	files map[string]struct{}
}

// resolve returns the indexed file an import source refers to. Sources
// that do not start with "." are package imports and stay unresolved,
// except for markup and style sheets where bare paths are relative.
func (r *resolver) resolve(importer, source string, lang types.Language) (string, bool) {
	if i := strings.IndexAny(source, "?#"); i >= 0 {
		source = source[:i]
	}
	if source == "" {
		return "", false
	}
	if !strings.HasPrefix(source, ".") && lang != types.LangHTML && lang != types.LangCSS {
		return "", false
	}

	base := path.Join(path.Dir(importer), source)
	if strings.HasPrefix(base, "../") || base == ".." {
		return "", false
	}
	for _, ext := range resolveExtensions {
		if r.has(base + ext) {
			return base + ext, true
		}
	}
	for _, idx := range indexFiles {
		if candidate := path.Join(base, idx); r.has(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func (r *resolver) has(file string) bool {
	_, ok := r.files[file]
	return ok
}

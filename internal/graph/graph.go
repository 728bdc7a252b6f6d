package graph

import (
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/dshills/codecontext/pkg/types"
)

// uiTerms are interface nouns matched against component names
var uiTerms = []string{
	"button", "modal", "dialog", "form", "input", "navbar", "header",
	"footer", "sidebar", "menu", "dropdown", "table", "card", "list",
	"grid", "layout", "container", "wrapper",
}

var componentTokenRe = regexp.MustCompile(`\b[A-Z][a-zA-Z]+\b`)

// Edge is a directed dependency: From imports symbols defined by To
type Edge struct {
	From    string   `json:"from"`
	To      string   `json:"to"`
	Symbols []string `json:"symbols,omitempty"`
}

// Graph is a directed file-level dependency graph plus a UI component index.
// A Graph is immutable after Build and safe for concurrent readers.
type Graph struct {
	nodes       map[string]struct{}
	out         map[string]map[string][]string // from -> to -> symbols
	in          map[string]map[string]struct{} // to -> from
	symbolFile  map[string]string
	fileSymbols map[string][]string
	components  map[string]map[string]struct{} // component -> files
}

func newGraph() *Graph {
	return &Graph{
		nodes:       make(map[string]struct{}),
		out:         make(map[string]map[string][]string),
		in:          make(map[string]map[string]struct{}),
		symbolFile:  make(map[string]string),
		fileSymbols: make(map[string][]string),
		components:  make(map[string]map[string]struct{}),
	}
}

// Options tunes graph construction
type Options struct {
	// GoModule is the module path from go.mod. Go imports under it are
	// linked to the files of the matching directory.
	GoModule string
}

// Build constructs the graph from the full fragment set of a project in two
// passes: collect exports and components, then link imports.
func Build(fragments []*types.Fragment, opts Options) *Graph {
	g := newGraph()
	files := make(map[string]struct{})
	goDirs := make(map[string][]string)

	// Pass 1: collect
	for _, f := range fragments {
		if _, seen := files[f.FilePath]; !seen {
			files[f.FilePath] = struct{}{}
			if f.Language == types.LangGo && !strings.HasSuffix(f.FilePath, "_test.go") {
				dir := path.Dir(f.FilePath)
				goDirs[dir] = append(goDirs[dir], f.FilePath)
			}
		}
		g.nodes[f.FilePath] = struct{}{}
		for _, sym := range f.ExportedSymbols {
			g.symbolFile[sym] = f.FilePath
			g.fileSymbols[f.FilePath] = appendUnique(g.fileSymbols[f.FilePath], sym)
		}
		for _, c := range f.UIComponents {
			if g.components[c] == nil {
				g.components[c] = make(map[string]struct{})
			}
			g.components[c][f.FilePath] = struct{}{}
		}
	}

	// Pass 2: link
	r := &resolver{files: files}
	for _, f := range fragments {
		for _, imp := range f.Imports {
			if target, ok := g.symbolFile[imp]; ok {
				g.addEdge(f.FilePath, target, imp)
				continue
			}
			switch f.Language {
			case types.LangJava:
				if target, ok := g.symbolFile[imp[strings.LastIndex(imp, ".")+1:]]; ok {
					g.addEdge(f.FilePath, target, imp)
				}
			case types.LangGo:
				if opts.GoModule == "" || !strings.HasPrefix(imp, opts.GoModule+"/") {
					continue
				}
				for _, target := range goDirs[strings.TrimPrefix(imp, opts.GoModule+"/")] {
					g.addEdge(f.FilePath, target, path.Base(imp))
				}
			}
		}
		for source, names := range f.ImportedFrom {
			if target, ok := r.resolve(f.FilePath, source, f.Language); ok {
				g.addEdge(f.FilePath, target, names...)
			}
		}
	}
	return g
}

// addEdge records from -> to. Self edges are ignored.
func (g *Graph) addEdge(from, to string, symbols ...string) {
	if from == to {
		return
	}
	g.nodes[from] = struct{}{}
	g.nodes[to] = struct{}{}
	if g.out[from] == nil {
		g.out[from] = make(map[string][]string)
	}
	syms := g.out[from][to]
	for _, s := range symbols {
		syms = appendUnique(syms, s)
	}
	g.out[from][to] = syms
	if g.in[to] == nil {
		g.in[to] = make(map[string]struct{})
	}
	g.in[to][from] = struct{}{}
}

// HasFile reports whether file is a node of the graph
func (g *Graph) HasFile(file string) bool {
	_, ok := g.nodes[file]
	return ok
}

// Dependencies returns the files that file imports from
func (g *Graph) Dependencies(file string) []string {
	return sortedKeys(g.out[file])
}

// Dependents returns the files that import from file
func (g *Graph) Dependents(file string) []string {
	return sortedKeys(g.in[file])
}

// EdgeSymbols returns the symbols carried by the edge from -> to
func (g *Graph) EdgeSymbols(from, to string) []string {
	return g.out[from][to]
}

// ExportedSymbols returns the symbols file exports
func (g *Graph) ExportedSymbols(file string) []string {
	return g.fileSymbols[file]
}

// Stats returns the node and edge counts
func (g *Graph) Stats() (nodes, edges int) {
	for _, tos := range g.out {
		edges += len(tos)
	}
	return len(g.nodes), edges
}

// RelatedFiles returns the forward and reverse neighbours of file plus every
// file reachable within depth hops along either direction. The file itself
// is not included.
func (g *Graph) RelatedFiles(file string, depth int) []string {
	if !g.HasFile(file) {
		return nil
	}
	related := make(map[string]struct{})
	for n := range g.out[file] {
		related[n] = struct{}{}
	}
	for n := range g.in[file] {
		related[n] = struct{}{}
	}
	g.reach(file, depth, func(n string) map[string]struct{} { return keySet(g.out[n]) }, related)
	g.reach(file, depth, func(n string) map[string]struct{} { return g.in[n] }, related)
	delete(related, file)
	return sortedKeys(related)
}

// reach adds every node within depth hops of start to acc
func (g *Graph) reach(start string, depth int, next func(string) map[string]struct{}, acc map[string]struct{}) {
	visited := map[string]struct{}{start: {}}
	frontier := []string{start}
	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		var following []string
		for _, n := range frontier {
			for m := range next(n) {
				if _, ok := visited[m]; ok {
					continue
				}
				visited[m] = struct{}{}
				acc[m] = struct{}{}
				following = append(following, m)
			}
		}
		frontier = following
	}
}

// UIRelatedFiles returns files referencing components named in query, either
// exactly by a capitalized token or by a UI noun contained in the name.
func (g *Graph) UIRelatedFiles(query string) []string {
	related := make(map[string]struct{})
	for _, tok := range componentTokenRe.FindAllString(query, -1) {
		for f := range g.components[tok] {
			related[f] = struct{}{}
		}
	}

	lower := strings.ToLower(query)
	for _, term := range uiTerms {
		if !strings.Contains(lower, term) {
			continue
		}
		for name, files := range g.components {
			if strings.Contains(strings.ToLower(name), term) {
				for f := range files {
					related[f] = struct{}{}
				}
			}
		}
	}
	return sortedKeys(related)
}

func keySet[V any](m map[string]V) map[string]struct{} {
	set := make(map[string]struct{}, len(m))
	for k := range m {
		set[k] = struct{}{}
	}
	return set
}

func sortedKeys[V any](m map[string]V) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func appendUnique(items []string, s string) []string {
	for _, it := range items {
		if it == s {
			return items
		}
	}
	return append(items, s)
}

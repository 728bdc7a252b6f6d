package graph

import (
	"encoding/json"
	"fmt"
)

// wireVersion is bumped whenever the persisted layout changes
const wireVersion = 2

// wireGraph is the persisted form of a Graph
type wireGraph struct {
	Version     int                 `json:"version"`
	Nodes       []string            `json:"nodes"`
	Edges       []Edge              `json:"edges"`
	SymbolFiles map[string]string   `json:"symbol_files"`
	FileSymbols map[string][]string `json:"file_symbols"`
	Components  map[string][]string `json:"components"`
}

// Edges returns all edges ordered by source then target
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for _, from := range sortedKeys(g.out) {
		for _, to := range sortedKeys(g.out[from]) {
			edges = append(edges, Edge{From: from, To: to, Symbols: g.out[from][to]})
		}
	}
	return edges
}

// MarshalJSON implements json.Marshaler
func (g *Graph) MarshalJSON() ([]byte, error) {
	w := wireGraph{
		Version:     wireVersion,
		Nodes:       sortedKeys(g.nodes),
		Edges:       g.Edges(),
		SymbolFiles: g.symbolFile,
		FileSymbols: g.fileSymbols,
		Components:  make(map[string][]string, len(g.components)),
	}
	for name, files := range g.components {
		w.Components[name] = sortedKeys(files)
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler
func (g *Graph) UnmarshalJSON(data []byte) error {
	var w wireGraph
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Version != wireVersion {
		return fmt.Errorf("unsupported graph version %d", w.Version)
	}

	*g = *newGraph()
	for _, n := range w.Nodes {
		g.nodes[n] = struct{}{}
	}
	for _, e := range w.Edges {
		g.addEdge(e.From, e.To, e.Symbols...)
	}
	for sym, file := range w.SymbolFiles {
		g.symbolFile[sym] = file
	}
	// symbolFile keeps one file per symbol; fileSymbols keeps every export
	for file, syms := range w.FileSymbols {
		g.fileSymbols[file] = append([]string(nil), syms...)
	}
	for name, files := range w.Components {
		g.components[name] = make(map[string]struct{}, len(files))
		for _, f := range files {
			g.components[name][f] = struct{}{}
		}
	}
	return nil
}

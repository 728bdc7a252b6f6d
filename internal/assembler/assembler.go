package assembler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/codecontext/internal/analyzer"
	"github.com/dshills/codecontext/internal/graph"
	"github.com/dshills/codecontext/internal/searcher"
	"github.com/dshills/codecontext/pkg/types"
)

const (
	// SearchK is how many ranked fragments seed an assembly
	SearchK = 15
	// DefaultMaxTokens is the budget used when a request names none
	DefaultMaxTokens = 20000
	// RetrievalStrategy is reported in every bundle's metadata
	RetrievalStrategy = "smart_multi_file"

	fullHeader    = "[FULL FILE - Ready for editing]\n"
	partialHeader = "[PARTIAL CONTEXT - Read-only, request full file to edit]"
)

// Source is an indexed project snapshot the assembler reads from
type Source interface {
	searcher.Corpus
	Root() string
	Graph() *graph.Graph
}

// Request describes one context assembly
type Request struct {
	Query       string
	CurrentFile string // relative to the root
	MaxTokens   int    // <= 0 uses the assembler default
}

// Assembler turns a query into a bounded bundle of files and excerpts
type Assembler struct {
	searcher  *searcher.Searcher
	logger    *slog.Logger
	maxTokens int
}

// Option configures an Assembler
type Option func(*Assembler)

// WithLogger sets the logger used for unreadable files
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) { a.logger = logger }
}

// WithMaxTokens sets the default token budget
func WithMaxTokens(n int) Option {
	return func(a *Assembler) {
		if n > 0 {
			a.maxTokens = n
		}
	}
}

// New creates an Assembler ranking fragments with s
func New(s *searcher.Searcher, opts ...Option) *Assembler {
	a := &Assembler{
		searcher:  s,
		logger:    slog.Default(),
		maxTokens: DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble ranks fragments for req.Query, chooses which files are handed
// over whole and which as excerpts, and packs both into the budget.
// Full files go first; a file that does not fit is left out entirely.
// Excerpts follow until the first one that does not fit.
func (a *Assembler) Assemble(ctx context.Context, src Source, req Request) (*types.ContextBundle, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, types.ErrEmptyQuery
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = a.maxTokens
	}
	intent := Classify(req.Query)

	bundle := &types.ContextBundle{
		FilePaths:    []string{},
		FileContents: make(map[string]string),
		Metadata: types.ContextMetadata{
			FullFiles:         []string{},
			PartialFiles:      []string{},
			SearchQuery:       req.Query,
			IsUIQuery:         intent.UI,
			RetrievalStrategy: RetrievalStrategy,
		},
	}
	if src == nil || src.Len() == 0 {
		return bundle, nil
	}

	resp, err := a.searcher.Search(ctx, src, searcher.SearchRequest{
		Query:       req.Query,
		Limit:       SearchK,
		CurrentFile: req.CurrentFile,
	})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	bundle.Metadata.TotalFragments = len(resp.Results)

	sel := selectFiles(src, req.Query, resp.Results, intent)
	p := &packer{budget: maxTokens * types.CharsPerToken, bundle: bundle}

	for _, file := range sel.full.items {
		content, err := a.readFile(src.Root(), file)
		if err != nil {
			a.logger.Warn("skipping unreadable file", "file", file, "error", err)
			continue
		}
		p.addFull(file, content)
	}

	ranked := make(map[string]bool)
	for _, r := range resp.Results {
		ranked[r.Fragment.FilePath] = true
	}
	excerpts := make([]*types.Fragment, 0, len(resp.Results))
	for _, r := range resp.Results {
		if !sel.full.has(r.Fragment.FilePath) {
			excerpts = append(excerpts, r.Fragment)
		}
	}
	for _, file := range sel.context.items {
		if sel.full.has(file) || ranked[file] {
			continue
		}
		if best, ok := searcher.BestInFile(src, resp.QueryVector, file); ok {
			excerpts = append(excerpts, best.Fragment)
		}
	}
	for _, f := range excerpts {
		if !p.addExcerpt(f) {
			break
		}
	}

	p.finish()
	bundle.Instructions = instructions(bundle)
	return bundle, nil
}

func (a *Assembler) readFile(root, rel string) (string, error) {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(data), ""), nil
}

// selection is the outcome of partitioning candidate files
type selection struct {
	full    *orderedSet // edit targets, handed over whole
	context *orderedSet // read-only context
}

func selectFiles(src Source, query string, results []types.SearchResult, intent Intent) selection {
	sel := selection{full: newOrderedSet(), context: newOrderedSet()}

	for _, r := range results {
		file := r.Fragment.FilePath
		if intent.Edit && (intent.Styling || !analyzer.IsStyleSheet(file)) {
			sel.full.add(file)
		} else {
			sel.context.add(file)
		}
	}

	g := src.Graph()
	if intent.UI && g != nil {
		for _, file := range g.UIRelatedFiles(query) {
			if analyzer.IsScriptFile(file) {
				sel.full.add(file)
			} else {
				sel.context.add(file)
			}
		}
		for _, file := range styleSheetsDefining(src, results) {
			sel.context.add(file)
		}
	}

	if g != nil {
		for _, file := range sel.full.items {
			for _, rel := range g.RelatedFiles(file, 1) {
				sel.context.add(rel)
			}
		}
	}
	return sel
}

// styleSheetsDefining lists style sheets with a selector for a class that
// one of the ranked fragments uses
func styleSheetsDefining(src Source, results []types.SearchResult) []string {
	wanted := make(map[string]bool)
	for _, r := range results {
		if analyzer.IsStyleSheet(r.Fragment.FilePath) {
			continue
		}
		for _, c := range r.Fragment.CSSClasses {
			wanted[c] = true
		}
	}
	if len(wanted) == 0 {
		return nil
	}

	files := newOrderedSet()
	for i := 0; i < src.Len(); i++ {
		f := src.Fragment(i)
		if files.has(f.FilePath) || !analyzer.IsStyleSheet(f.FilePath) {
			continue
		}
		for _, c := range f.CSSClasses {
			if wanted[c] {
				files.add(f.FilePath)
				break
			}
		}
	}
	return files.items
}

// packer accounts every emitted character against the budget
type packer struct {
	budget  int
	used    int
	bundle  *types.ContextBundle
	partial map[string]*strings.Builder
	order   []string
}

func (p *packer) addFull(file, content string) bool {
	text := fullHeader + content
	if p.used+len(text) > p.budget {
		return false
	}
	p.used += len(text)
	p.bundle.FileContents[file] = text
	p.bundle.Metadata.FullFiles = append(p.bundle.Metadata.FullFiles, file)
	return true
}

func (p *packer) addExcerpt(f *types.Fragment) bool {
	piece := fmt.Sprintf("\n# %s (%d-%d): %s\n%s",
		strings.ToUpper(string(f.Kind)), f.StartLine, f.EndLine, f.Description, f.Content)

	b, seen := p.partial[f.FilePath]
	cost := len(piece)
	if !seen {
		cost += len(partialHeader)
	}
	if p.used+cost > p.budget {
		return false
	}

	if !seen {
		if p.partial == nil {
			p.partial = make(map[string]*strings.Builder)
		}
		b = &strings.Builder{}
		b.WriteString(partialHeader)
		p.partial[f.FilePath] = b
		p.order = append(p.order, f.FilePath)
	}
	b.WriteString(piece)
	p.used += cost
	return true
}

func (p *packer) finish() {
	for _, file := range p.order {
		p.bundle.FileContents[file] = p.partial[file].String()
	}
	p.bundle.Metadata.PartialFiles = append(p.bundle.Metadata.PartialFiles, p.order...)
	p.bundle.FilePaths = append(p.bundle.FilePaths, p.bundle.Metadata.FullFiles...)
	p.bundle.FilePaths = append(p.bundle.FilePaths, p.order...)
	p.bundle.Metadata.EstimatedTokens = p.used / types.CharsPerToken
}

func instructions(b *types.ContextBundle) string {
	if len(b.FilePaths) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("[CONTEXT INSTRUCTIONS]\n")
	if len(b.Metadata.FullFiles) > 0 {
		sb.WriteString("The following files are provided with FULL CONTENT and can be edited:\n")
		for _, f := range b.Metadata.FullFiles {
			sb.WriteString("- " + f + "\n")
		}
		sb.WriteString("\n")
	}
	if len(b.Metadata.PartialFiles) > 0 {
		sb.WriteString("Files marked as [PARTIAL CONTEXT] are read-only. Request the full file before editing one.\n")
	}
	return sb.String()
}

type orderedSet struct {
	items []string
	seen  map[string]bool
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]bool)}
}

func (s *orderedSet) add(item string) {
	if !s.seen[item] {
		s.seen[item] = true
		s.items = append(s.items, item)
	}
}

func (s *orderedSet) has(item string) bool {
	return s.seen[item]
}

package chunker

import (
	"sort"
	"strings"

	"github.com/dshills/codecontext/internal/analyzer"
	"github.com/dshills/codecontext/pkg/types"
)

const (
	// DefaultWindowLines is the size of a generic fallback window
	DefaultWindowLines = 50

	// DefaultOverlapLines is how many preceding lines a window carries as context
	DefaultOverlapLines = 5

	// MaxFragmentChars caps the size of a generic window
	MaxFragmentChars = 8000
)

// Chunker splits file text into fragments covering the whole file
type Chunker struct {
	windowLines  int
	overlapLines int
	maxChars     int
}

// Option configures a Chunker
type Option func(*Chunker)

// WithWindow sets the generic window size and overlap in lines
func WithWindow(lines, overlap int) Option {
	return func(c *Chunker) {
		if lines > 0 {
			c.windowLines = lines
		}
		if overlap >= 0 && overlap < c.windowLines {
			c.overlapLines = overlap
		}
	}
}

// New creates a new Chunker instance
func New(opts ...Option) *Chunker {
	c := &Chunker{
		windowLines:  DefaultWindowLines,
		overlapLines: DefaultOverlapLines,
		maxChars:     MaxFragmentChars,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// block is a recognized span before it becomes a fragment
type block struct {
	start, end int // 0-based inclusive lines
	kind       types.FragmentKind
}

// ChunkFile splits content of the file at filePath (relative, slash
// separated) into fragments ordered by line. Spans are contiguous, disjoint
// and cover every line. Blank content yields no fragments.
func (c *Chunker) ChunkFile(filePath, content string) []*types.Fragment {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	lang := analyzer.DetectLanguage(filePath)
	lines := strings.Split(content, "\n")

	var blocks []block
	if find, ok := boundaryFinders[lang]; ok {
		blocks = find(lines, content)
	}
	spans := layout(lines, blocks)
	if spans == nil {
		return c.windows(filePath, lines)
	}

	fragments := make([]*types.Fragment, 0, len(spans))
	for _, s := range spans {
		text := strings.Join(lines[s.start:s.end+1], "\n")
		fragments = append(fragments, newFragment(filePath, text, "", s.start, s.end, s.kind))
	}
	return fragments
}

// layout orders blocks, drops nested ones and fills the gaps between them.
// Whitespace-only gaps are merged into the neighbouring block, other gaps
// become module fragments. It returns nil when no block was recognized.
func layout(lines []string, blocks []block) []block {
	if len(blocks) == 0 {
		return nil
	}
	last := len(lines) - 1

	sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].start < blocks[j].start })
	accepted := make([]block, 0, len(blocks))
	prevEnd := -1
	for _, b := range blocks {
		if b.start <= prevEnd || b.start > last {
			continue
		}
		b.end = min(max(b.end, b.start), last)
		accepted = append(accepted, b)
		prevEnd = b.end
	}
	if len(accepted) == 0 {
		return nil
	}

	spans := make([]block, 0, len(accepted)*2+1)
	cursor := 0
	pendingStart := -1
	for _, b := range accepted {
		if b.start > cursor {
			switch {
			case !blank(lines[cursor:b.start]):
				spans = append(spans, block{start: cursor, end: b.start - 1, kind: types.KindModule})
			case len(spans) > 0:
				spans[len(spans)-1].end = b.start - 1
			default:
				pendingStart = cursor
			}
		}
		if pendingStart >= 0 {
			b.start = pendingStart
			pendingStart = -1
		}
		spans = append(spans, b)
		cursor = b.end + 1
	}
	if cursor <= last {
		if blank(lines[cursor:]) {
			spans[len(spans)-1].end = last
		} else {
			spans = append(spans, block{start: cursor, end: last, kind: types.KindModule})
		}
	}
	return spans
}

// windows is the generic fallback: fixed windows whose spans are disjoint,
// each carrying the preceding overlap lines as context.
func (c *Chunker) windows(filePath string, lines []string) []*types.Fragment {
	var fragments []*types.Fragment
	for start := 0; start < len(lines); {
		end := start
		size := len(lines[start])
		for end+1 < len(lines) && end+1-start < c.windowLines && size+len(lines[end+1])+1 <= c.maxChars {
			end++
			size += len(lines[end]) + 1
		}

		var contextBefore string
		if from := max(0, start-c.overlapLines); from < start {
			contextBefore = strings.Join(lines[from:start], "\n") + "\n"
		}
		text := strings.Join(lines[start:end+1], "\n")
		fragments = append(fragments, newFragment(filePath, text, contextBefore, start, end, types.KindBlock))
		start = end + 1
	}
	return fragments
}

// newFragment attaches analysis, description and id to a span
func newFragment(filePath, text, contextBefore string, start, end int, kind types.FragmentKind) *types.Fragment {
	a := analyzer.Analyze(filePath, text)
	return &types.Fragment{
		ID:              types.FragmentID(filePath, start, end, text),
		FilePath:        filePath,
		Content:         text,
		ContextBefore:   contextBefore,
		StartLine:       start,
		EndLine:         end,
		Kind:            kind,
		Language:        a.Language,
		Description:     Describe(filePath, text, kind, a),
		Functions:       a.Functions,
		Classes:         a.Classes,
		Imports:         a.Imports,
		ExportedSymbols: a.ExportedSymbols,
		ImportedFrom:    a.ImportedFrom,
		UIComponents:    a.UIComponents,
		CSSClasses:      a.CSSClasses,
		DOMIDs:          a.DOMIDs,
		ComplexityScore: a.ComplexityScore,
	}
}

// blank reports whether every line is whitespace
func blank(lines []string) bool {
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			return false
		}
	}
	return true
}

package chunker

import (
	"regexp"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dshills/codecontext/internal/analyzer"
	"github.com/dshills/codecontext/pkg/types"
)

// boundaryFinder locates recognized blocks in a file
type boundaryFinder func(lines []string, text string) []block

// boundaryFinders selects the block strategy per language. Languages
// without an entry go straight to generic windows.
var boundaryFinders = map[types.Language]boundaryFinder{
	types.LangPython:     pythonBlocks,
	types.LangGo:         goBlocks,
	types.LangJavaScript: braceFinder(scriptStarts),
	types.LangTypeScript: braceFinder(scriptStarts),
	types.LangJava:       braceFinder(javaStarts),
	types.LangRust:       braceFinder(rustStarts),
	types.LangC:          braceFinder(cStarts),
	types.LangCPP:        braceFinder(cStarts),
	types.LangPHP:        braceFinder(phpStarts),
	types.LangHTML:       markupBlocks,
	types.LangCSS:        styleBlocks,
}

// startPattern marks a definition start line of the given kind
type startPattern struct {
	re   *regexp.Regexp
	kind types.FragmentKind
}

var (
	scriptStarts = []startPattern{
		{regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:abstract\s+)?(?:class|interface)\b`), types.KindClass},
		{regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?(?:function\b|const\s+\w+\s*=)`), types.KindFunction},
	}
	goStarts = []startPattern{
		{regexp.MustCompile(`^\s*func\s+`), types.KindFunction},
		{regexp.MustCompile(`^\s*type\s+\w+\s+(?:struct|interface)`), types.KindClass},
	}
	javaStarts = []startPattern{
		{regexp.MustCompile(`^\s*(?:@\w+\s+)*(?:(?:public|protected|private|static|final|abstract|sealed|non-sealed|strictfp)\s+)*(?:class|interface|enum|record|@interface)\s+\w+`), types.KindClass},
	}
	rustStarts = []startPattern{
		{regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:const\s+)?(?:async\s+)?(?:unsafe\s+)?fn\s+\w+`), types.KindFunction},
		{regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:struct|enum|trait|impl)\b`), types.KindClass},
	}
	cStarts = []startPattern{
		{regexp.MustCompile(`^\s*(?:class|struct)\s+\w+[^;]*$`), types.KindClass},
		{regexp.MustCompile(`^[A-Za-z_][\w\s\*&:<>,]*[\s\*&]+\**[A-Za-z_][\w:~]*\s*\([^;]*$`), types.KindFunction},
	}
	phpStarts = []startPattern{
		{regexp.MustCompile(`^\s*(?:abstract\s+|final\s+)?(?:class|interface|trait)\s+\w+`), types.KindClass},
		{regexp.MustCompile(`^\s*(?:(?:public|private|protected|static|abstract|final)\s+)*function\s+\w+`), types.KindFunction},
	}

	pyTopLevelDefRe = regexp.MustCompile(`^(?:async\s+def|def|class)\s+\w+`)
	pyDecoratorRe   = regexp.MustCompile(`^@`)

	markupSectionRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<(?:head|body|header|nav|main|section|article|aside|footer)\b`),
		regexp.MustCompile(`(?i)<div\s+(?:class|id)\b`),
		regexp.MustCompile(`(?i)<script\b`),
		regexp.MustCompile(`(?i)<style\b`),
	}
	markupTagRe = regexp.MustCompile(`<(\w+)`)

	styleDeclarationRe = regexp.MustCompile(`^[\w-]+\s*:[^{]*;?$`)
)

const (
	// markupLookahead bounds the search for a closing tag
	markupLookahead = 200

	// markupFallbackLines is the block length when no closing tag is found
	markupFallbackLines = 20
)

// matchStart returns the kind of the first pattern matching line
func matchStart(patterns []startPattern, line string) (types.FragmentKind, bool) {
	for _, p := range patterns {
		if p.re.MatchString(line) {
			return p.kind, true
		}
	}
	return "", false
}

// braceFinder builds a finder that locates starts by regex and ends by
// brace balance.
func braceFinder(patterns []startPattern) boundaryFinder {
	return func(lines []string, _ string) []block {
		var blocks []block
		for i := 0; i < len(lines); i++ {
			kind, ok := matchStart(patterns, lines[i])
			if !ok {
				continue
			}
			end := braceEnd(lines, i, func(line string) bool {
				_, ok := matchStart(patterns, line)
				return ok
			})
			blocks = append(blocks, block{start: i, end: end, kind: kind})
			i = end
		}
		return blocks
	}
}

// braceEnd counts braces from start until the balance returns to zero after
// having gone positive. Before any brace opens, a line ending in ';' closes
// a one-line statement and a following start line ends the block early.
func braceEnd(lines []string, start int, isStart func(string) bool) int {
	balance := 0
	opened := false
	for i := start; i < len(lines); i++ {
		line := lines[i]
		if !opened && i > start && isStart(line) {
			return i - 1
		}
		for _, r := range line {
			switch r {
			case '{':
				balance++
				opened = true
			case '}':
				balance--
			}
		}
		if opened && balance <= 0 {
			return i
		}
		if !opened && strings.HasSuffix(strings.TrimSpace(line), ";") {
			return i
		}
	}
	return len(lines) - 1
}

// pythonBlocks uses the syntax tree for top-level definitions and the
// indentation rule for block ends.
func pythonBlocks(lines []string, text string) []block {
	tree, err := analyzer.ParseTree(types.LangPython, []byte(text))
	if tree != nil {
		defer tree.Close()
	}
	if err != nil {
		return pythonRegexBlocks(lines)
	}

	var blocks []block
	root := tree.RootNode()
	for i := uint(0); i < root.NamedChildCount(); i++ {
		node := root.NamedChild(i)
		def := node
		if node.Kind() == "decorated_definition" {
			def = node.ChildByFieldName("definition")
		}
		if def == nil {
			continue
		}

		var kind types.FragmentKind
		switch def.Kind() {
		case "function_definition":
			kind = types.KindFunction
		case "class_definition":
			kind = types.KindClass
		default:
			continue
		}

		start := int(node.StartPosition().Row)
		defLine := int(def.StartPosition().Row)
		end := max(indentEnd(lines, defLine), nodeEndRow(node))
		blocks = append(blocks, block{start: start, end: end, kind: kind})
	}
	return blocks
}

// nodeEndRow returns the last row holding text of node
func nodeEndRow(n *sitter.Node) int {
	endPos := n.EndPosition()
	row := int(endPos.Row)
	if endPos.Column == 0 && row > int(n.StartPosition().Row) {
		row--
	}
	return row
}

// pythonRegexBlocks finds column-zero definitions with their decorators
func pythonRegexBlocks(lines []string) []block {
	var blocks []block
	for i, line := range lines {
		if !pyTopLevelDefRe.MatchString(line) {
			continue
		}
		kind := types.KindFunction
		if strings.HasPrefix(line, "class") {
			kind = types.KindClass
		}
		start := i
		for start > 0 && pyDecoratorRe.MatchString(lines[start-1]) {
			start--
		}
		blocks = append(blocks, block{start: start, end: indentEnd(lines, i), kind: kind})
	}
	return blocks
}

// indentEnd returns the last line before the next non-blank line indented
// no deeper than the definition at defLine.
func indentEnd(lines []string, defLine int) int {
	indent := indentation(lines[defLine])
	for i := defLine + 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		if indentation(lines[i]) <= indent {
			return i - 1
		}
	}
	return len(lines) - 1
}

func indentation(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

// goBlocks takes declaration starts and ends from the tree-sitter Go tree,
// which tolerates the partial files found in working trees. Trees with
// errors fall back to the regex brace strategy.
func goBlocks(lines []string, text string) []block {
	tree, err := analyzer.ParseTree(types.LangGo, []byte(text))
	if tree != nil {
		defer tree.Close()
	}
	if err != nil {
		return braceFinder(goStarts)(lines, text)
	}

	var blocks []block
	root := tree.RootNode()
	commentStart, commentEnd := -1, -1
	for i := uint(0); i < root.NamedChildCount(); i++ {
		node := root.NamedChild(i)
		row := int(node.StartPosition().Row)
		if node.Kind() == "comment" {
			if commentStart < 0 || row != commentEnd+1 {
				commentStart = row
			}
			commentEnd = nodeEndRow(node)
			continue
		}
		start := row
		// Doc comments directly above a declaration belong to it
		if commentStart >= 0 && row == commentEnd+1 {
			start = commentStart
		}
		commentStart, commentEnd = -1, -1

		var kind types.FragmentKind
		switch node.Kind() {
		case "function_declaration", "method_declaration":
			kind = types.KindFunction
		case "type_declaration":
			if !declaresStructOrInterface(node) {
				continue
			}
			kind = types.KindClass
		default:
			continue
		}
		blocks = append(blocks, block{start: start, end: nodeEndRow(node), kind: kind})
	}
	return blocks
}

// declaresStructOrInterface reports whether a type declaration defines a
// struct or interface type
func declaresStructOrInterface(decl *sitter.Node) bool {
	for i := uint(0); i < decl.NamedChildCount(); i++ {
		spec := decl.NamedChild(i)
		if spec.Kind() != "type_spec" {
			continue
		}
		if t := spec.ChildByFieldName("type"); t != nil {
			if k := t.Kind(); k == "struct_type" || k == "interface_type" {
				return true
			}
		}
	}
	return false
}

// markupBlocks recognizes major structural tags
func markupBlocks(lines []string, _ string) []block {
	isSection := func(line string) bool {
		for _, re := range markupSectionRes {
			if re.MatchString(line) {
				return true
			}
		}
		return false
	}

	var blocks []block
	for i := 0; i < len(lines); i++ {
		if !isSection(lines[i]) {
			continue
		}
		end := markupEnd(lines, i, isSection)
		blocks = append(blocks, block{start: i, end: end, kind: types.KindMarkupSection})
		i = end
	}
	return blocks
}

// markupEnd finds the closing tag of the section opened on line start,
// tracking nested tags of the same name within the lookahead.
func markupEnd(lines []string, start int, isSection func(string) bool) int {
	loc := firstSectionMatch(lines[start])
	tagMatch := markupTagRe.FindStringSubmatch(lines[start][loc:])
	if tagMatch != nil {
		tag := strings.ToLower(tagMatch[1])
		openRe := regexp.MustCompile(`(?i)<` + tag + `\b`)
		closeRe := regexp.MustCompile(`(?i)</` + tag + `\s*>`)
		depth := 0
		limit := min(len(lines)-1, start+markupLookahead)
		for i := start; i <= limit; i++ {
			line := lines[i]
			if i == start {
				line = line[loc:]
			}
			depth += len(openRe.FindAllStringIndex(line, -1))
			depth -= len(closeRe.FindAllStringIndex(line, -1))
			if depth <= 0 {
				return i
			}
		}
	}

	// No closing tag in range: bounded fallback that stops before the next section
	limit := min(len(lines)-1, start+markupFallbackLines-1)
	for i := start + 1; i <= limit; i++ {
		if isSection(lines[i]) {
			return i - 1
		}
	}
	return limit
}

// firstSectionMatch returns the byte offset of the first section tag in line
func firstSectionMatch(line string) int {
	first := len(line)
	for _, re := range markupSectionRes {
		if loc := re.FindStringIndex(line); loc != nil && loc[0] < first {
			first = loc[0]
		}
	}
	if first == len(line) {
		return 0
	}
	return first
}

// styleBlocks recognizes selector and at-rule lines and ends them by
// brace balance
func styleBlocks(lines []string, _ string) []block {
	var blocks []block
	for i := 0; i < len(lines); i++ {
		if !isSelectorLine(lines[i]) {
			continue
		}
		// Selector lists span lines, so a following selector never ends a rule
		end := braceEnd(lines, i, func(string) bool { return false })
		blocks = append(blocks, block{start: i, end: end, kind: types.KindStyleRule})
		i = end
	}
	return blocks
}

// isSelectorLine reports whether line starts a style rule
func isSelectorLine(line string) bool {
	t := strings.TrimSpace(line)
	switch {
	case t == "", strings.HasPrefix(t, "/*"), strings.HasPrefix(t, "*/"), strings.HasPrefix(t, "//"), strings.HasPrefix(t, "}"):
		return false
	case strings.HasPrefix(t, "@"):
		return true
	case !strings.Contains(t, "{") && styleDeclarationRe.MatchString(t):
		return false
	}
	return strings.Contains(t, "{") || strings.HasSuffix(t, ",")
}

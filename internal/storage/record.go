package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dshills/codecontext/pkg/types"
)

const fragmentColumns = `id, file_path, content, context_before, start_line, end_line, kind, language,
	description, functions, classes, imports, exported_symbols, imported_from,
	ui_components, css_classes, dom_ids, complexity`

// fragmentRecord is the row form of a fragment. List and map fields are
// stored as JSON text.
type fragmentRecord struct {
	ID              string
	FilePath        string
	Content         string
	ContextBefore   string
	StartLine       int
	EndLine         int
	Kind            string
	Language        string
	Description     string
	Functions       string
	Classes         string
	Imports         string
	ExportedSymbols string
	ImportedFrom    string
	UIComponents    string
	CSSClasses      string
	DOMIDs          string
	Complexity      float64
}

func newFragmentRecord(f *types.Fragment) (*fragmentRecord, error) {
	rec := &fragmentRecord{
		ID:            f.ID,
		FilePath:      f.FilePath,
		Content:       f.Content,
		ContextBefore: f.ContextBefore,
		StartLine:     f.StartLine,
		EndLine:       f.EndLine,
		Kind:          string(f.Kind),
		Language:      string(f.Language),
		Description:   f.Description,
		Complexity:    f.ComplexityScore,
	}

	lists := []struct {
		dst *string
		src any
	}{
		{&rec.Functions, nonNilList(f.Functions)},
		{&rec.Classes, nonNilList(f.Classes)},
		{&rec.Imports, nonNilList(f.Imports)},
		{&rec.ExportedSymbols, nonNilList(f.ExportedSymbols)},
		{&rec.ImportedFrom, nonNilMap(f.ImportedFrom)},
		{&rec.UIComponents, nonNilList(f.UIComponents)},
		{&rec.CSSClasses, nonNilList(f.CSSClasses)},
		{&rec.DOMIDs, nonNilList(f.DOMIDs)},
	}
	for _, l := range lists {
		data, err := json.Marshal(l.src)
		if err != nil {
			return nil, fmt.Errorf("encode fragment %s: %w", f.ID, err)
		}
		*l.dst = string(data)
	}
	return rec, nil
}

func (r *fragmentRecord) args(ordinal int) []any {
	return []any{
		ordinal, r.ID, r.FilePath, r.Content, r.ContextBefore, r.StartLine, r.EndLine,
		r.Kind, r.Language, r.Description, r.Functions, r.Classes, r.Imports,
		r.ExportedSymbols, r.ImportedFrom, r.UIComponents, r.CSSClasses, r.DOMIDs, r.Complexity,
	}
}

func scanFragment(rows *sql.Rows) (*types.Fragment, error) {
	var r fragmentRecord
	err := rows.Scan(&r.ID, &r.FilePath, &r.Content, &r.ContextBefore, &r.StartLine, &r.EndLine,
		&r.Kind, &r.Language, &r.Description, &r.Functions, &r.Classes, &r.Imports,
		&r.ExportedSymbols, &r.ImportedFrom, &r.UIComponents, &r.CSSClasses, &r.DOMIDs, &r.Complexity)
	if err != nil {
		return nil, err
	}
	return r.fragment()
}

func (r *fragmentRecord) fragment() (*types.Fragment, error) {
	f := &types.Fragment{
		ID:              r.ID,
		FilePath:        r.FilePath,
		Content:         r.Content,
		ContextBefore:   r.ContextBefore,
		StartLine:       r.StartLine,
		EndLine:         r.EndLine,
		Kind:            types.FragmentKind(r.Kind),
		Language:        types.Language(r.Language),
		Description:     r.Description,
		ComplexityScore: r.Complexity,
	}

	lists := []struct {
		src string
		dst *[]string
	}{
		{r.Functions, &f.Functions},
		{r.Classes, &f.Classes},
		{r.Imports, &f.Imports},
		{r.ExportedSymbols, &f.ExportedSymbols},
		{r.UIComponents, &f.UIComponents},
		{r.CSSClasses, &f.CSSClasses},
		{r.DOMIDs, &f.DOMIDs},
	}
	for _, l := range lists {
		if err := json.Unmarshal([]byte(l.src), l.dst); err != nil {
			return nil, fmt.Errorf("decode fragment %s: %w", r.ID, err)
		}
	}
	if err := json.Unmarshal([]byte(r.ImportedFrom), &f.ImportedFrom); err != nil {
		return nil, fmt.Errorf("decode fragment %s imported_from: %w", r.ID, err)
	}
	return f, nil
}

func nonNilList(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilMap(m map[string][]string) map[string][]string {
	if m == nil {
		return map[string][]string{}
	}
	return m
}

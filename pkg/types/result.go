package types

// SearchResult is one ranked fragment returned by a search
type SearchResult struct {
	Fragment *Fragment
	Rank     int     // Position in result set (1-based)
	Score    float64 // Similarity after current-file boost
	RawScore float64 // Inner product before boost
}

// ContextMetadata describes how a context bundle was assembled
type ContextMetadata struct {
	TotalFragments    int      `json:"total_chunks"`
	FullFiles         []string `json:"full_files"`
	PartialFiles      []string `json:"partial_files"`
	EstimatedTokens   int      `json:"estimated_tokens"`
	SearchQuery       string   `json:"search_query"`
	IsUIQuery         bool     `json:"is_ui_query"`
	RetrievalStrategy string   `json:"retrieval_strategy"`
}

// ContextBundle is the bounded output handed to the caller
type ContextBundle struct {
	FilePaths    []string          `json:"file_paths"`
	FileContents map[string]string `json:"file_contents"`
	Instructions string            `json:"instructions,omitempty"`
	Metadata     ContextMetadata   `json:"metadata"`
}

// TotalChars returns the number of characters across all file contents
func (b *ContextBundle) TotalChars() int {
	n := 0
	for _, c := range b.FileContents {
		n += len(c)
	}
	return n
}

package index

import "github.com/starford/hypo/internal/note"

// NoteRecord is everything the index stores for one note. Records are built
// from a parsed note plus its file stat; see BuildRecord.
type NoteRecord struct {
	ID      string
	MtimeNs int64
	Size    int64
	Hash    string
	Title   string
	Body    string
	HasMath bool
	Aliases []string
	Blocks  []note.Block
	Refs    []note.Ref
}

// NoteRow is the stored per-note metadata, without blocks or links.
type NoteRow struct {
	ID      string `json:"id"`
	MtimeNs int64  `json:"mtime_ns"`
	Size    int64  `json:"size_bytes"`
	Hash    string `json:"hash,omitempty"`
	Title   string `json:"title"`
	HasMath bool   `json:"has_math"`
}

// LinkRow is one stored link edge, ordered by byte offset within the source.
type LinkRow struct {
	Src         string `json:"src"`
	Dst         string `json:"dst"`
	Start       int    `json:"start"`
	End         int    `json:"end"`
	Rel         string `json:"rel,omitempty"`
	Embed       bool   `json:"embed,omitempty"`
	AnchorKind  string `json:"anchor_kind,omitempty"`
	AnchorValue string `json:"anchor_value,omitempty"`
}

// SearchResult is a single full-text search hit.
type SearchResult struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// StatCounts summarizes the index for diagnostics.
type StatCounts struct {
	Notes   int `json:"notes"`
	Links   int `json:"links"`
	Orphans int `json:"orphans"`
}

// GraphNode is one node of the link graph. Title is empty for dangling
// targets that have no note file.
type GraphNode struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

// GraphEdge is one directed edge of the link graph.
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// GraphData is the whole link graph: every note plus every referenced id,
// dangling targets included, and the distinct source→target pairs.
type GraphData struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

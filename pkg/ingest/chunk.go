package ingest

import (
	"fmt"
	"strings"

	"github.com/tessellate-ai/analyst-engine/pkg/vectorstore"
)

// DefaultChunkSize is the number of data rows per embedded chunk.
const DefaultChunkSize = 100

// Chunk is one renderable row window of a table.
type Chunk struct {
	Text     string
	Metadata vectorstore.ChunkMetadata
}

// ChunkRows splits a table into fixed-size row windows. A 250-row table at
// size 100 produces windows [0,100), [100,200), [200,250).
func ChunkRows(table *Table, chunkSize int) []Chunk {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	var chunks []Chunk
	for start := 0; start < len(table.Rows); start += chunkSize {
		end := start + chunkSize
		if end > len(table.Rows) {
			end = len(table.Rows)
		}
		chunks = append(chunks, Chunk{
			Text: renderChunk(table, start, end),
			Metadata: vectorstore.ChunkMetadata{
				StartRow: start,
				EndRow:   end,
				RowCount: end - start,
			},
		})
	}
	return chunks
}

// renderChunk produces the embeddable text for rows [start, end): a window
// header, the column list, then one "col: value | col: value" line per row.
func renderChunk(table *Table, start, end int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Data rows %d to %d:\n", start, end-1)
	fmt.Fprintf(&b, "Columns: %s\n\n", strings.Join(table.Columns, ", "))

	for _, row := range table.Rows[start:end] {
		pairs := make([]string, len(table.Columns))
		for i, col := range table.Columns {
			pairs[i] = fmt.Sprintf("%s: %s", col, row[i])
		}
		b.WriteString(strings.Join(pairs, " | "))
		b.WriteByte('\n')
	}
	return b.String()
}

package types

// Point is the persistable unit written to the vector store: a synthetic
// unique id, the embedding vector, and a payload map carrying the fragment
// text and its provenance. Points are owned by the upload stage until the
// store acknowledges them.
type Point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// Payload field names shared between point construction, deduplication
// queries, and the list/query commands.
const (
	PayloadType           = "_type"
	PayloadText           = "text"
	PayloadURL            = "url"
	PayloadTitle          = "title"
	PayloadTimestamp      = "timestamp"
	PayloadFragmentIndex  = "chunk_index"
	PayloadTotalFragments = "total_chunks"
	PayloadMacroIndex     = "semantic_block_index"
	PayloadTokenCount     = "token_count"
	PayloadMethod         = "chunking_method"
	PayloadModel          = "embedding_model"
	PayloadFileHash       = "file_hash"

	// DocumentChunkType is the value stored under PayloadType.
	DocumentChunkType = "DocumentChunk"
)

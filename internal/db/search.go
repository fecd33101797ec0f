package db

// DefaultVectorField is the hash field holding the item embedding.
const DefaultVectorField = "embedding"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string // defaults to DefaultVectorField
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single hit. Similarity is the raw 1 - cosine distance in
// [-1,1]; Score is the same value clamped to [0,1] for reporting.
type SearchEntry struct {
	Key        string
	Similarity float64
	Score      float64
	Fields     map[string]string
}

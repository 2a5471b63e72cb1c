package graphstore

// BatchConfig controls UNWIND batch sizes. Unlike the teacher's per-label
// sizing (File/Function/Commit/...), every node here shares one shape, so
// one node size and one edge size suffice.
type BatchConfig struct {
	NodeBatchSize int
	EdgeBatchSize int
}

// DefaultBatchConfig mirrors the teacher's medium-repo defaults.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{NodeBatchSize: 1000, EdgeBatchSize: 5000}
}

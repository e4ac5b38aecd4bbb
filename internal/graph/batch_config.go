package graph

// BatchConfig defines batch sizes for UNWIND writes.
// Repository nodes carry two properties and edges one, so both batch large.
type BatchConfig struct {
	NodeBatchSize int
	EdgeBatchSize int
}

// DefaultBatchConfig returns batch sizes suited to graphs of a few thousand nodes
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		NodeBatchSize: 1000,
		EdgeBatchSize: 5000,
	}
}

// batches splits n items into [start, end) ranges of at most size
func batches(n, size int) [][2]int {
	if size <= 0 {
		size = n
	}
	var out [][2]int
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}

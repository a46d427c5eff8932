package scheduler

// Batch partitions an ordered agent list into groups of at most size,
// preserving order (§4.H step 3).
func Batch(agentIDs []string, size int) [][]string {
	if size <= 0 {
		size = len(agentIDs)
		if size == 0 {
			return nil
		}
	}
	var batches [][]string
	for i := 0; i < len(agentIDs); i += size {
		end := i + size
		if end > len(agentIDs) {
			end = len(agentIDs)
		}
		batches = append(batches, agentIDs[i:end])
	}
	return batches
}

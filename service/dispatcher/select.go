package dispatcher

// LeastLoaded returns the index of the smallest load; the first one wins on
// ties. It returns -1 for an empty slice.
func LeastLoaded(loads []int) int {
	best := -1
	for i, load := range loads {
		if best == -1 || load < loads[best] {
			best = i
		}
	}
	return best
}

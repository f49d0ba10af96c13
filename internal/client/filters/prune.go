package filters

// PruneChildren returns the child codes still allowed by the parent
// selection. An empty parent selection is no constraint, so child comes back
// as is. Otherwise a child code is kept only if parentOf knows its parent
// and that parent is selected; order is preserved.
func PruneChildren(parent, child []int64, parentOf func(int64) (int64, bool)) []int64 {
	if len(parent) == 0 {
		return child
	}

	allowed := make(map[int64]struct{}, len(parent))
	for _, p := range parent {
		allowed[p] = struct{}{}
	}

	out := make([]int64, 0, len(child))
	for _, c := range child {
		p, ok := parentOf(c)
		if !ok {
			continue
		}
		if _, in := allowed[p]; in {
			out = append(out, c)
		}
	}
	return out
}

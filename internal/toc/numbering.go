package toc

import (
	"strconv"
	"strings"
)

// numbering produces hierarchical "1.2." labels. The first heading seen
// defines depth 1, and a jump of several levels nests only one deeper.
type numbering struct {
	counters [6]int
	minLevel int
	last     int
}

func (n *numbering) next(level int) (label string, depth int) {
	if n.minLevel == 0 {
		n.minLevel = level
	}
	depth = max(level-n.minLevel+1, 1)
	if n.last > 0 && depth > n.last+1 {
		depth = n.last + 1
	}

	for i := depth; i < len(n.counters); i++ {
		n.counters[i] = 0
	}
	n.counters[depth-1]++
	n.last = depth

	parts := make([]string, depth)
	for i := range depth {
		parts[i] = strconv.Itoa(n.counters[i])
	}
	return strings.Join(parts, ".") + ".", depth
}

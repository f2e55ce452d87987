package toc

// Bookmark is one PDF outline item. Kids hold the entries nested under it.
type Bookmark struct {
	Target string
	Title  string
	Page   int
	Level  int
	Kids   []Bookmark
}

// Bookmarks nests entries by depth: each entry goes under the closest
// preceding entry that is shallower.
func Bookmarks(entries []Entry) []Bookmark {
	type node struct {
		b     Bookmark
		depth int
		kids  []*node
	}
	root := &node{}
	stack := []*node{root}
	for _, e := range entries {
		for len(stack) > 1 && stack[len(stack)-1].depth >= e.Depth {
			stack = stack[:len(stack)-1]
		}
		n := &node{
			b:     Bookmark{Target: e.Target, Title: e.Number + " " + e.Text, Page: e.Page, Level: e.Depth},
			depth: e.Depth,
		}
		parent := stack[len(stack)-1]
		parent.kids = append(parent.kids, n)
		stack = append(stack, n)
	}

	var convert func([]*node) []Bookmark
	convert = func(ns []*node) []Bookmark {
		if len(ns) == 0 {
			return nil
		}
		out := make([]Bookmark, len(ns))
		for i, n := range ns {
			out[i] = n.b
			out[i].Kids = convert(n.kids)
		}
		return out
	}
	return convert(root.kids)
}

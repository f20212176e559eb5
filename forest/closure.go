package forest

// Closure runs once after a parse completes: a single DFS over the child
// DAG (each OR-node cycle quotiented to its canonical node) that
// synthesises every node's Parents list. This replaces the source's
// incrementally-maintained vector<tuple<parent,siblings>> (Design Note,
// §9) — cheaper to reason about and just as cheap to compute, since the
// forest is never mutated again after parsing finishes.
//
// Parent entries reference the specific AND-node alternative that uses
// the child (so its own Rule determines the outside recursion's
// log-weight term), while the outside value itself is always read from
// Canonical(parent) — OR-node-level quantities live only on the
// canonical node.
func Closure(root *Node) {
	visited := make(map[*Node]bool)
	var visit func(n *Node)
	visit = func(n *Node) {
		c := Canonical(n)
		if visited[c] {
			return
		}
		visited[c] = true
		for _, alt := range c.Cycle() {
			children := alt.Children()
			for i, child := range children {
				childCanon := Canonical(child)
				childCanon.Parents = append(childCanon.Parents, ParentSibling{
					Parent:   alt,
					Siblings: siblingsExcept(children, i),
				})
				visit(child)
			}
		}
	}
	visit(root)
}

func siblingsExcept(children []*Node, exclude int) []*Node {
	if len(children) <= 1 {
		return nil
	}
	out := make([]*Node, 0, len(children)-1)
	for i, c := range children {
		if i != exclude {
			out = append(out, c)
		}
	}
	return out
}

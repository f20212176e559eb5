package hypergraph

// MaxBoundaryNodes bounds how many boundary (external) nodes a rule
// fragment may declare. The mapping is stored as 16 bytes, one per
// boundary-node slot, each holding the index of the graph node bound to
// that slot (or NoBoundaryNode if unbound), sized for a fast 2×uint64
// equality test instead of a 16-byte memcmp.
const MaxBoundaryNodes = 16

// NoBoundaryNode marks an unfilled boundary-node slot.
const NoBoundaryNode byte = 0xFF

// NodeMapping binds a rule fragment's boundary-node slots to concrete
// graph node indices. Two chart items describe the same OR-node class iff
// their EdgeSet and NodeMapping are both equal, so NodeMapping must stay a
// small, comparable value type.
//
// Graph node indices must fit in a byte (0..254). chart.Parse rejects a
// graph with more than MaxEdges edges as ErrTooLarge before it allocates
// a chart item; the node count is not checked on its own.
type NodeMapping [MaxBoundaryNodes]byte

// NewNodeMapping returns a mapping with every slot unbound.
func NewNodeMapping() NodeMapping {
	var m NodeMapping
	for i := range m {
		m[i] = NoBoundaryNode
	}
	return m
}

// Bind returns a copy of m with boundary slot i bound to graph node index
// nodeIdx.
func (m NodeMapping) Bind(i int, nodeIdx byte) NodeMapping {
	m[i] = nodeIdx
	return m
}

// At returns the graph node index bound to boundary slot i, or
// NoBoundaryNode if unbound.
func (m NodeMapping) At(i int) byte {
	return m[i]
}

// word reinterprets bytes [lo,lo+8) as a big-endian uint64, avoiding
// unsafe while keeping the two-word equality comparison cheap.
func word(m NodeMapping, lo int) uint64 {
	var w uint64
	for i := 0; i < 8; i++ {
		w = w<<8 | uint64(m[lo+i])
	}
	return w
}

// Equal reports whether m and n bind identical boundary nodes. Compares
// two 8-byte words rather than 16 individual bytes.
func (m NodeMapping) Equal(n NodeMapping) bool {
	return word(m, 0) == word(n, 0) && word(m, 8) == word(n, 8)
}

// Empty reports whether every slot is unbound.
func (m NodeMapping) Empty() bool {
	empty := NewNodeMapping()
	return m.Equal(empty)
}

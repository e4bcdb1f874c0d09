package ranking

import (
	"iter"
	"math/rand/v2"
)

// Set is an always-ordered collection of SongStatistic, best first.
//
// Membership is decided by Compare: adding a record that compares equal to
// an entry already present replaces that entry. Because Compare ends on the
// record ID, only the same logical record can collide.
//
// A Set is a treap with subtree sizes, so Add, Remove and Rank run in
// O(log n) expected time. It is not safe for concurrent use.
type Set struct {
	root *node
}

// treap node
type node struct {
	rec   SongStatistic
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

// insert adds rec below n. replaced reports whether an equal record was overwritten.
func insert(n *node, rec SongStatistic) (_ *node, replaced bool) {
	if n == nil {
		return &node{rec: rec, prio: rand.Uint64(), size: 1}, false
	}
	switch c := Compare(rec, n.rec); {
	case c == 0:
		n.rec = rec
		return n, true
	case c < 0:
		n.left, replaced = insert(n.left, rec)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	default:
		n.right, replaced = insert(n.right, rec)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n, replaced
}

func deleteNode(n *node, rec SongStatistic) (_ *node, removed bool) {
	if n == nil {
		return nil, false
	}
	switch c := Compare(rec, n.rec); {
	case c == 0:
		// Rotate the higher priority child up until the node is a leaf.
		if n.left == nil {
			return n.right, true
		}
		if n.right == nil {
			return n.left, true
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right, removed = deleteNode(n.right, rec)
		} else {
			n = rotateLeft(n)
			n.left, removed = deleteNode(n.left, rec)
		}
	case c < 0:
		n.left, removed = deleteNode(n.left, rec)
	default:
		n.right, removed = deleteNode(n.right, rec)
	}
	fix(n)
	return n, removed
}

// walk visits n in rank order until yield returns false.
func walk(n *node, yield func(SongStatistic) bool) bool {
	if n == nil {
		return true
	}
	return walk(n.left, yield) && yield(n.rec) && walk(n.right, yield)
}

// NewSet returns a Set holding recs.
func NewSet(recs ...SongStatistic) *Set {
	s := &Set{}
	for _, r := range recs {
		s.Add(r)
	}
	return s
}

// Add inserts rec. It reports whether the set grew; false means an equal
// record was replaced.
func (s *Set) Add(rec SongStatistic) bool {
	var replaced bool
	s.root, replaced = insert(s.root, rec)
	return !replaced
}

// Remove deletes the entry that compares equal to rec. It reports whether
// anything was removed.
func (s *Set) Remove(rec SongStatistic) bool {
	var removed bool
	s.root, removed = deleteNode(s.root, rec)
	return removed
}

// Len returns the number of records.
func (s *Set) Len() int {
	return nsize(s.root)
}

// Enumerate yields records best-first. Each iteration reads the set as it is
// when the iteration starts; the set must not be modified during a range loop.
func (s *Set) Enumerate() iter.Seq[SongStatistic] {
	return func(yield func(SongStatistic) bool) {
		walk(s.root, yield)
	}
}

// All returns every record best-first.
func (s *Set) All() []SongStatistic {
	out := make([]SongStatistic, 0, s.Len())
	for rec := range s.Enumerate() {
		out = append(out, rec)
	}
	return out
}

// Top returns up to n records best-first.
func (s *Set) Top(n int) []SongStatistic {
	if n <= 0 {
		return []SongStatistic{}
	}
	out := make([]SongStatistic, 0, min(n, s.Len()))
	for rec := range s.Enumerate() {
		if len(out) == n {
			break
		}
		out = append(out, rec)
	}
	return out
}

// Rank returns the 1-based position of the entry equal to rec.
func (s *Set) Rank(rec SongStatistic) (int, bool) {
	ahead := 0
	for n := s.root; n != nil; {
		switch c := Compare(rec, n.rec); {
		case c == 0:
			return ahead + nsize(n.left) + 1, true
		case c < 0:
			n = n.left
		default:
			ahead += nsize(n.left) + 1
			n = n.right
		}
	}
	return 0, false
}

// Best returns the highest ranked record.
func (s *Set) Best() (SongStatistic, bool) {
	n := s.root
	if n == nil {
		return SongStatistic{}, false
	}
	for n.left != nil {
		n = n.left
	}
	return n.rec, true
}

// Worst returns the lowest ranked record.
func (s *Set) Worst() (SongStatistic, bool) {
	n := s.root
	if n == nil {
		return SongStatistic{}, false
	}
	for n.right != nil {
		n = n.right
	}
	return n.rec, true
}

// Truncate removes records beyond the first maxLen and returns them worst-first.
func (s *Set) Truncate(maxLen int) []SongStatistic {
	var dropped []SongStatistic
	for s.Len() > max(maxLen, 0) {
		worst, _ := s.Worst()
		s.Remove(worst)
		dropped = append(dropped, worst)
	}
	return dropped
}

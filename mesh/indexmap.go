package mesh

import (
	"fmt"
	"sort"
)

// IndexMap describes the distribution of degrees of freedom across ranks.
// Each rank owns a contiguous global range; dofs owned by other ranks but
// referenced locally appear as ghosts after the owned range, so valid local
// indices run over [0, LocalSize()+NumGhosts()).
type IndexMap struct {
	rank int

	// Prefix sums of owned sizes, length numRanks+1. Rank r owns global
	// indices [ranges[r], ranges[r+1]).
	ranges []int

	ghosts      []int // Global index of each ghost dof
	ghostOwners []int // Owning rank of each ghost dof

	ghostLookup map[int]int // Global ghost index -> local ghost position
}

// NewIndexMap creates an index map for the given rank. ownedSizes holds the
// number of owned dofs on every rank; ghosts and ghostOwners describe the
// remotely owned dofs referenced by this rank.
func NewIndexMap(rank int, ownedSizes []int, ghosts, ghostOwners []int) (*IndexMap, error) {
	if rank < 0 || rank >= len(ownedSizes) {
		return nil, fmt.Errorf("rank %d out of range for %d ranks", rank, len(ownedSizes))
	}
	if len(ghosts) != len(ghostOwners) {
		return nil, fmt.Errorf("ghosts length %d does not match ghostOwners length %d", len(ghosts), len(ghostOwners))
	}

	ranges := make([]int, len(ownedSizes)+1)
	for r, sz := range ownedSizes {
		if sz < 0 {
			return nil, fmt.Errorf("rank %d: negative owned size %d", r, sz)
		}
		ranges[r+1] = ranges[r] + sz
	}

	im := &IndexMap{
		rank:        rank,
		ranges:      ranges,
		ghosts:      ghosts,
		ghostOwners: ghostOwners,
		ghostLookup: make(map[int]int, len(ghosts)),
	}
	for i, g := range ghosts {
		if g < 0 || g >= ranges[len(ranges)-1] {
			return nil, fmt.Errorf("ghost %d: global index %d out of range", i, g)
		}
		owner := im.OwnerOfGlobal(g)
		if owner == rank {
			return nil, fmt.Errorf("ghost %d: global index %d is owned locally", i, g)
		}
		if owner != ghostOwners[i] {
			return nil, fmt.Errorf("ghost %d: declared owner %d but global index %d belongs to rank %d",
				i, ghostOwners[i], g, owner)
		}
		im.ghostLookup[g] = i
	}
	return im, nil
}

// SerialIndexMap creates a single-rank map over n dofs with no ghosts.
func SerialIndexMap(n int) *IndexMap {
	im, err := NewIndexMap(0, []int{n}, nil, nil)
	if err != nil {
		panic(err)
	}
	return im
}

// Rank returns the calling rank.
func (im *IndexMap) Rank() int { return im.rank }

// NumRanks returns the number of ranks in the map.
func (im *IndexMap) NumRanks() int { return len(im.ranges) - 1 }

// LocalSize returns the number of locally owned dofs.
func (im *IndexMap) LocalSize() int { return im.ranges[im.rank+1] - im.ranges[im.rank] }

// NumGhosts returns the number of ghost dofs.
func (im *IndexMap) NumGhosts() int { return len(im.ghosts) }

// Size returns the number of locally addressable dofs, owned plus ghost.
func (im *IndexMap) Size() int { return im.LocalSize() + len(im.ghosts) }

// GlobalSize returns the total number of dofs across all ranks.
func (im *IndexMap) GlobalSize() int { return im.ranges[len(im.ranges)-1] }

// OwnedRange returns the half-open global range [lo, hi) owned by this rank.
func (im *IndexMap) OwnedRange() (lo, hi int) {
	return im.ranges[im.rank], im.ranges[im.rank+1]
}

// IsOwned reports whether local index l refers to a locally owned dof.
func (im *IndexMap) IsOwned(l int) bool { return l >= 0 && l < im.LocalSize() }

// LocalToGlobal converts a local index (owned or ghost) to a global index.
func (im *IndexMap) LocalToGlobal(l int) int {
	if l < im.LocalSize() {
		return im.ranges[im.rank] + l
	}
	return im.ghosts[l-im.LocalSize()]
}

// GlobalToLocal converts a global index to a local index. The second return
// is false when the dof is neither owned nor ghosted on this rank.
func (im *IndexMap) GlobalToLocal(g int) (int, bool) {
	lo, hi := im.OwnedRange()
	if g >= lo && g < hi {
		return g - lo, true
	}
	if pos, ok := im.ghostLookup[g]; ok {
		return im.LocalSize() + pos, true
	}
	return -1, false
}

// Owner returns the owning rank of local index l.
func (im *IndexMap) Owner(l int) int {
	if l < im.LocalSize() {
		return im.rank
	}
	return im.ghostOwners[l-im.LocalSize()]
}

// OwnerOfGlobal returns the rank owning global index g, or -1 when g is out
// of range.
func (im *IndexMap) OwnerOfGlobal(g int) int {
	if g < 0 || g >= im.GlobalSize() {
		return -1
	}
	// ranges is sorted; find the first range end above g
	r := sort.SearchInts(im.ranges[1:], g+1)
	return r
}

// Ghosts returns the global indices of the ghost dofs in local order.
func (im *IndexMap) Ghosts() []int { return im.ghosts }

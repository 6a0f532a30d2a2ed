package kernel

import (
	"container/heap"
	"encoding/binary"
	"math/bits"
	"sort"

	"lukechampine.com/blake3"

	"github.com/valokernel/valo/pkg/fixedpoint"
)

// HNSW tuning constants (spec §4.4). maxLevelCap is fixed at 16 rather
// than the alternative 15 named in the spec; see SPEC_FULL.md section 6,
// item 5.
const (
	DefaultM              = 16
	DefaultMMax           = 32
	DefaultEfConstruction = 64
	DefaultMaxLevelCap    = 16
)

// candidate pairs a record id with its distance to some query vector.
// Every ordering in this file sorts by (Dist ascending, ID ascending):
// the spec's tie-break rule is the sole reason results are (id, distance)
// tuples rather than bare distances.
type candidate struct {
	ID   uint32
	Dist int64
}

func less(a, b candidate) bool {
	if a.Dist != b.Dist {
		return a.Dist < b.Dist
	}
	return a.ID < b.ID
}

// vectorSource resolves a record id to its vector. The HNSW graph never
// holds a long-lived reference to a vector; it always looks it up by id,
// per the design note on host-shared vectors.
type vectorSource interface {
	vectorFor(id uint32) (fixedpoint.Vector, bool)
}

// hnsw is the hierarchical navigable small world index. Its slot arrays
// are parallel to the record pool: index i describes record id i, valid
// only while that record slot is occupied.
type hnsw struct {
	m              int
	mMax           int
	efConstruction int
	maxLevelCap    int

	present   []bool
	level     []int
	neighbors [][][]uint32 // neighbors[id][layer] = ordered neighbor ids

	hasEntry   bool
	entryID    uint32
	entryLevel int
}

func newHNSW(m, mMax, efConstruction, maxLevelCap int) *hnsw {
	return &hnsw{
		m:              m,
		mMax:           mMax,
		efConstruction: efConstruction,
		maxLevelCap:    maxLevelCap,
	}
}

func (h *hnsw) clone() *hnsw {
	out := &hnsw{
		m: h.m, mMax: h.mMax, efConstruction: h.efConstruction, maxLevelCap: h.maxLevelCap,
		hasEntry: h.hasEntry, entryID: h.entryID, entryLevel: h.entryLevel,
		present:   append([]bool(nil), h.present...),
		level:     append([]int(nil), h.level...),
		neighbors: make([][][]uint32, len(h.neighbors)),
	}
	for i, layers := range h.neighbors {
		cp := make([][]uint32, len(layers))
		for l, lst := range layers {
			cp[l] = append([]uint32(nil), lst...)
		}
		out.neighbors[i] = cp
	}
	return out
}

// ensureCap grows the parallel arrays to cover id.
func (h *hnsw) ensureCap(id uint32) {
	for uint32(len(h.present)) <= id {
		h.present = append(h.present, false)
		h.level = append(h.level, 0)
		h.neighbors = append(h.neighbors, nil)
	}
}

// levelFor deterministically derives a record's level: BLAKE3(id ‖
// vector bytes), first 8 bytes little-endian as a uint64, trailing-zero
// count, clamped to [0, maxLevelCap-1]. This replaces a probabilistic
// level draw with a content-derived one so replay always reproduces the
// same topology.
func levelFor(id uint32, vec fixedpoint.Vector, maxLevelCap int) int {
	h := blake3.New()
	var idBuf [4]byte
	binary.LittleEndian.PutUint32(idBuf[:], id)
	_, _ = h.Write(idBuf[:])

	buf := make([]byte, 4*len(vec))
	for i, s := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(s))
	}
	_, _ = h.Write(buf)

	sum := h.Sum(nil)
	v := binary.LittleEndian.Uint64(sum[:8])
	level := bits.TrailingZeros64(v)
	if level >= maxLevelCap {
		level = maxLevelCap - 1
	}
	if level < 0 {
		level = 0
	}
	return level
}

func (h *hnsw) maxConnsFor(layer int) int {
	if layer == 0 {
		return h.mMax
	}
	return h.m
}

// Insert adds record id (already present in the owning vector source) to
// the graph at its deterministic level, per spec §4.4.
func (h *hnsw) Insert(id uint32, src vectorSource) error {
	vec, ok := src.vectorFor(id)
	if !ok {
		return ErrNotFound
	}
	lvl := levelFor(id, vec, h.maxLevelCap)

	h.ensureCap(id)
	h.present[id] = true
	h.level[id] = lvl
	h.neighbors[id] = make([][]uint32, lvl+1)

	if !h.hasEntry {
		h.hasEntry = true
		h.entryID = id
		h.entryLevel = lvl
		return nil
	}

	// Phase 1: zoom-down from the entry point through layers above lvl.
	cur := h.entryID
	curDist, err := h.distance(id, cur, src)
	if err != nil {
		return err
	}
	for l := h.entryLevel; l > lvl; l-- {
		cur, curDist = h.greedyDescend(id, cur, curDist, l, src)
	}

	// Phase 2: connect from min(entryLevel, lvl) down to 0.
	top := lvl
	if h.entryLevel < top {
		top = h.entryLevel
	}
	entryPoints := []uint32{cur}
	for l := top; l >= 0; l-- {
		cands, err := h.searchLayer(id, entryPoints, h.efConstruction, l, src)
		if err != nil {
			return err
		}
		selected := h.selectClosest(id, cands, h.maxConnsFor(l), src)
		h.neighbors[id][l] = idsOf(selected)

		for _, n := range selected {
			if err := h.addBackLink(n.ID, id, l, src); err != nil {
				return err
			}
		}
		entryPoints = idsOf(selected)
	}

	if lvl > h.entryLevel {
		h.entryID = id
		h.entryLevel = lvl
	}
	return nil
}

// addBackLink symmetrically adds id as a neighbor of n at layer l,
// pruning back to the layer's bound using the same ordering rule.
func (h *hnsw) addBackLink(n, id uint32, l int, src vectorSource) error {
	if l >= len(h.neighbors[n]) {
		return nil
	}
	lst := append(h.neighbors[n][l], id)
	bound := h.maxConnsFor(l)
	if len(lst) <= bound {
		h.neighbors[n][l] = lst
		return nil
	}

	cands := make([]candidate, 0, len(lst))
	for _, c := range lst {
		d, err := h.distance(n, c, src)
		if err != nil {
			return err
		}
		cands = append(cands, candidate{ID: c, Dist: d})
	}
	sortCandidates(cands)
	cands = cands[:bound]
	h.neighbors[n][l] = idsOf(cands)
	return nil
}

// Delete removes id's own neighbor lists and every back-reference to it
// at every layer (the documented repair pass chosen over disallowing
// DeleteRecord entirely; see SPEC_FULL.md section 6, item 1).
func (h *hnsw) Delete(id uint32) {
	if int(id) >= len(h.present) || !h.present[id] {
		return
	}
	for l, lst := range h.neighbors[id] {
		for _, n := range lst {
			h.removeNeighbor(n, id, l)
		}
	}
	h.present[id] = false
	h.neighbors[id] = nil
	h.level[id] = 0

	if h.hasEntry && h.entryID == id {
		h.electEntry()
	}
}

func (h *hnsw) removeNeighbor(from, target uint32, layer int) {
	if int(from) >= len(h.neighbors) || layer >= len(h.neighbors[from]) {
		return
	}
	lst := h.neighbors[from][layer]
	for i, v := range lst {
		if v == target {
			h.neighbors[from][layer] = append(lst[:i], lst[i+1:]...)
			return
		}
	}
}

// electEntry scans every present record for the highest level, breaking
// ties by lowest id.
func (h *hnsw) electEntry() {
	best := uint32(0)
	bestLevel := -1
	found := false
	for id := range h.present {
		if !h.present[id] {
			continue
		}
		lvl := h.level[id]
		if !found || lvl > bestLevel {
			best, bestLevel, found = uint32(id), lvl, true
		}
	}
	h.hasEntry = found
	if found {
		h.entryID = best
		h.entryLevel = bestLevel
	} else {
		h.entryID = 0
		h.entryLevel = 0
	}
}

func (h *hnsw) distance(a, b uint32, src vectorSource) (int64, error) {
	va, ok := src.vectorFor(a)
	if !ok {
		return 0, ErrNotFound
	}
	vb, ok := src.vectorFor(b)
	if !ok {
		return 0, ErrNotFound
	}
	return fixedpoint.L2Sq(va, vb)
}

func (h *hnsw) distanceToVector(vec fixedpoint.Vector, id uint32, src vectorSource) (int64, error) {
	v, ok := src.vectorFor(id)
	if !ok {
		return 0, ErrNotFound
	}
	return fixedpoint.L2Sq(vec, v)
}

// greedyDescend walks to the locally nearest neighbor of id's own vector
// at layer l, starting from cur, repeating until no neighbor improves.
func (h *hnsw) greedyDescend(id, cur uint32, curDist int64, l int, src vectorSource) (uint32, int64) {
	changed := true
	for changed {
		changed = false
		if int(cur) >= len(h.neighbors) || l >= len(h.neighbors[cur]) {
			break
		}
		for _, n := range h.neighbors[cur][l] {
			d, err := h.distance(id, n, src)
			if err != nil {
				continue
			}
			if d < curDist || (d == curDist && n < cur) {
				cur, curDist, changed = n, d, true
			}
		}
	}
	return cur, curDist
}

// candHeap is a max-heap by (dist desc, id desc) used to keep the
// farthest of the current best ef results at the top so it can be
// evicted when a closer candidate arrives.
type candHeap []candidate

func (c candHeap) Len() int { return len(c) }
func (c candHeap) Less(i, j int) bool {
	if c[i].Dist != c[j].Dist {
		return c[i].Dist > c[j].Dist
	}
	return c[i].ID > c[j].ID
}
func (c candHeap) Swap(i, j int)      { c[i], c[j] = c[j], c[i] }
func (c *candHeap) Push(x any)        { *c = append(*c, x.(candidate)) }
func (c *candHeap) Pop() any          { old := *c; n := len(old); x := old[n-1]; *c = old[:n-1]; return x }

// minCandHeap is a min-heap by (dist asc, id asc) used as the frontier of
// candidates still to expand.
type minCandHeap []candidate

func (c minCandHeap) Len() int            { return len(c) }
func (c minCandHeap) Less(i, j int) bool  { return less(c[i], c[j]) }
func (c minCandHeap) Swap(i, j int)       { c[i], c[j] = c[j], c[i] }
func (c *minCandHeap) Push(x any)         { *c = append(*c, x.(candidate)) }
func (c *minCandHeap) Pop() any           { old := *c; n := len(old); x := old[n-1]; *c = old[:n-1]; return x }

// searchLayer runs the strict bounded beam search of spec §4.4: no
// heuristic early exit, ef results maintained exactly, ties broken by id.
func (h *hnsw) searchLayer(id uint32, entryPoints []uint32, ef, layer int, src vectorSource) ([]candidate, error) {
	visited := make(map[uint32]struct{}, ef*2)
	var frontier minCandHeap
	var best candHeap

	for _, ep := range entryPoints {
		if _, seen := visited[ep]; seen {
			continue
		}
		visited[ep] = struct{}{}
		d, err := h.distance(id, ep, src)
		if err != nil {
			return nil, err
		}
		c := candidate{ID: ep, Dist: d}
		heap.Push(&frontier, c)
		heap.Push(&best, c)
	}

	for frontier.Len() > 0 {
		closest := heap.Pop(&frontier).(candidate)

		if best.Len() >= ef && (closest.Dist > best[0].Dist || (closest.Dist == best[0].Dist && closest.ID > best[0].ID)) {
			break
		}

		if int(closest.ID) >= len(h.neighbors) || layer >= len(h.neighbors[closest.ID]) {
			continue
		}

		for _, n := range h.neighbors[closest.ID][layer] {
			if _, seen := visited[n]; seen {
				continue
			}
			visited[n] = struct{}{}

			d, err := h.distance(id, n, src)
			if err != nil {
				return nil, err
			}
			c := candidate{ID: n, Dist: d}

			if best.Len() < ef || less(c, best[0]) {
				heap.Push(&frontier, c)
				heap.Push(&best, c)
				if best.Len() > ef {
					heap.Pop(&best)
				}
			}
		}
	}

	out := make([]candidate, len(best))
	copy(out, best)
	sortCandidates(out)
	return out, nil
}

// SearchVector runs the full spec §4.4 search for an arbitrary query
// vector (not necessarily a stored record): zoom-down through the upper
// layers, strict beam search at layer 0, sorted (distance, id) results
// trimmed to k, optionally filtered by tag.
func (h *hnsw) SearchVector(query fixedpoint.Vector, k, ef int, src vectorSource, filter func(id uint32) bool) ([]candidate, error) {
	if !h.hasEntry || k <= 0 {
		return nil, nil
	}

	cur := h.entryID
	curDist, err := h.distanceToVector(query, cur, src)
	if err != nil {
		return nil, err
	}

	for l := h.entryLevel; l > 0; l-- {
		changed := true
		for changed {
			changed = false
			if int(cur) >= len(h.neighbors) || l >= len(h.neighbors[cur]) {
				break
			}
			for _, n := range h.neighbors[cur][l] {
				d, err := h.distanceToVector(query, n, src)
				if err != nil {
					continue
				}
				if d < curDist || (d == curDist && n < cur) {
					cur, curDist, changed = n, d, true
				}
			}
		}
	}

	width := ef
	if k*2 > width {
		width = k * 2
	}

	cands, err := h.searchLayerVector(query, []uint32{cur}, width, 0, src)
	if err != nil {
		return nil, err
	}

	out := make([]candidate, 0, len(cands))
	for _, c := range cands {
		if filter != nil && !filter(c.ID) {
			continue
		}
		out = append(out, c)
	}
	sortCandidates(out)
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (h *hnsw) searchLayerVector(query fixedpoint.Vector, entryPoints []uint32, ef, layer int, src vectorSource) ([]candidate, error) {
	visited := make(map[uint32]struct{}, ef*2)
	var frontier minCandHeap
	var best candHeap

	for _, ep := range entryPoints {
		if _, seen := visited[ep]; seen {
			continue
		}
		visited[ep] = struct{}{}
		d, err := h.distanceToVector(query, ep, src)
		if err != nil {
			return nil, err
		}
		c := candidate{ID: ep, Dist: d}
		heap.Push(&frontier, c)
		heap.Push(&best, c)
	}

	for frontier.Len() > 0 {
		closest := heap.Pop(&frontier).(candidate)

		if best.Len() >= ef && (closest.Dist > best[0].Dist || (closest.Dist == best[0].Dist && closest.ID > best[0].ID)) {
			break
		}

		if int(closest.ID) >= len(h.neighbors) || layer >= len(h.neighbors[closest.ID]) {
			continue
		}

		for _, n := range h.neighbors[closest.ID][layer] {
			if _, seen := visited[n]; seen {
				continue
			}
			visited[n] = struct{}{}

			d, err := h.distanceToVector(query, n, src)
			if err != nil {
				return nil, err
			}
			c := candidate{ID: n, Dist: d}

			if best.Len() < ef || less(c, best[0]) {
				heap.Push(&frontier, c)
				heap.Push(&best, c)
				if best.Len() > ef {
					heap.Pop(&best)
				}
			}
		}
	}

	out := make([]candidate, len(best))
	copy(out, best)
	return out, nil
}

// selectClosest returns up to maxN of cands closest to id's vector,
// sorted (distance ascending, id ascending).
func (h *hnsw) selectClosest(id uint32, cands []candidate, maxN int, src vectorSource) []candidate {
	scored := make([]candidate, 0, len(cands))
	for _, c := range cands {
		if c.ID == id {
			continue // spec: no self-edges
		}
		d, err := h.distance(id, c.ID, src)
		if err != nil {
			continue
		}
		scored = append(scored, candidate{ID: c.ID, Dist: d})
	}
	sortCandidates(scored)
	if len(scored) > maxN {
		scored = scored[:maxN]
	}
	return scored
}

func sortCandidates(c []candidate) {
	sort.Slice(c, func(i, j int) bool { return less(c[i], c[j]) })
}

func idsOf(c []candidate) []uint32 {
	out := make([]uint32, len(c))
	for i, x := range c {
		out[i] = x.ID
	}
	return out
}

package kernel

// slot is one entry in a [pool]: either empty, or holding a value of type T.
type slot[T any] struct {
	occupied bool
	value    T
}

// pool is a fixed-capacity slotted array indexed by id. An id always
// equals the slot index that holds it; this is the sole source of
// identity in the kernel — there are no free lists and no counters beyond
// the linear scan that [pool.Insert] performs.
//
// Insertion always picks the lowest empty slot (first-fit). Deletion
// empties the slot but never shifts or recycles neighbors: positional
// identity is permanent for the lifetime of the aggregate.
type pool[T any] struct {
	slots    []slot[T]
	capacity int
}

// newPool returns an empty pool with the given fixed capacity.
func newPool[T any](capacity int) *pool[T] {
	return &pool[T]{
		slots:    make([]slot[T], 0, capacity),
		capacity: capacity,
	}
}

// Len returns the number of slots currently allocated (occupied or not).
// This grows as Insert extends the backing array up to capacity; it is
// not the count of occupied slots (use Count for that).
func (p *pool[T]) Len() int {
	return len(p.slots)
}

// Count returns the number of occupied slots.
func (p *pool[T]) Count() int {
	n := 0
	for i := range p.slots {
		if p.slots[i].occupied {
			n++
		}
	}
	return n
}

// NextFreeID returns the id that Insert would assign right now, without
// mutating the pool. apply_event uses this to validate that a producer's
// event id agrees with what the pool's first-fit rule would pick.
func (p *pool[T]) NextFreeID() uint32 {
	for i := range p.slots {
		if !p.slots[i].occupied {
			return uint32(i)
		}
	}
	return uint32(len(p.slots))
}

// Insert writes value into the first empty slot (extending the pool if
// every existing slot is occupied and capacity allows), and returns the
// id it was assigned. Returns [ErrCapacityExceeded] if the pool is full.
func (p *pool[T]) Insert(value T) (uint32, error) {
	for i := range p.slots {
		if !p.slots[i].occupied {
			p.slots[i] = slot[T]{occupied: true, value: value}
			return uint32(i), nil
		}
	}

	if len(p.slots) >= p.capacity {
		return 0, ErrCapacityExceeded
	}

	p.slots = append(p.slots, slot[T]{occupied: true, value: value})
	return uint32(len(p.slots) - 1), nil
}

// Get returns the value at id and whether the slot is occupied.
func (p *pool[T]) Get(id uint32) (T, bool) {
	var zero T
	if int(id) >= len(p.slots) || !p.slots[id].occupied {
		return zero, false
	}
	return p.slots[id].value, true
}

// Set overwrites the value at an occupied slot without changing
// occupancy. Returns [ErrNotFound] if the slot is empty.
func (p *pool[T]) Set(id uint32, value T) error {
	if int(id) >= len(p.slots) || !p.slots[id].occupied {
		return ErrNotFound
	}
	p.slots[id].value = value
	return nil
}

// Delete empties the slot at id. Returns [ErrNotFound] if it was already
// empty. Neighboring slots are never shifted.
func (p *pool[T]) Delete(id uint32) error {
	if int(id) >= len(p.slots) || !p.slots[id].occupied {
		return ErrNotFound
	}
	var zero T
	p.slots[id] = slot[T]{occupied: false, value: zero}
	return nil
}

// Occupied reports whether id refers to a currently occupied slot.
func (p *pool[T]) Occupied(id uint32) bool {
	return int(id) < len(p.slots) && p.slots[id].occupied
}

// Iter calls fn for every occupied slot in ascending id order. It stops
// early if fn returns false.
func (p *pool[T]) Iter(fn func(id uint32, value T) bool) {
	for i := range p.slots {
		if !p.slots[i].occupied {
			continue
		}
		if !fn(uint32(i), p.slots[i].value) {
			return
		}
	}
}

// clone returns a deep-enough copy of the pool for shadow-state use. T
// must not itself hold slice/map fields that require deep copying beyond
// what callers do explicitly (records clone their vector separately, see
// [Record.clone]).
func (p *pool[T]) clone() *pool[T] {
	out := &pool[T]{
		slots:    make([]slot[T], len(p.slots)),
		capacity: p.capacity,
	}
	copy(out.slots, p.slots)
	return out
}

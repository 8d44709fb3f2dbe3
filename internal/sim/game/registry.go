package game

import "sort"

// Registry owns the canonical entity id space. Ids are uint64, never 0,
// and never reused within a run: the allocator only moves forward, also
// when a preferred id is honored. Accessed only from the game loop
// goroutine.
type Registry struct {
	nextID uint64

	byID   map[uint64]Entity
	idOf   map[Entity]uint64
	byKind map[Kind]map[uint64]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		byID:   map[uint64]Entity{},
		idOf:   map[Entity]uint64{},
		byKind: map[Kind]map[uint64]struct{}{},
	}
}

// Register files e and returns its id. A non-zero preferred id is honored
// when free (snapshot import relies on this); the allocator advances past
// it either way.
func (r *Registry) Register(e Entity, preferred uint64) uint64 {
	var id uint64
	if preferred != 0 {
		if _, taken := r.byID[preferred]; !taken {
			id = preferred
		}
		if preferred > r.nextID {
			r.nextID = preferred
		}
	}
	if id == 0 {
		for {
			r.nextID++
			if r.nextID == 0 {
				// uint64 wrap; practically unreachable.
				r.nextID = 1
			}
			if _, taken := r.byID[r.nextID]; !taken {
				id = r.nextID
				break
			}
		}
	}

	r.byID[id] = e
	r.idOf[e] = id
	bucket := r.byKind[e.Kind()]
	if bucket == nil {
		bucket = map[uint64]struct{}{}
		r.byKind[e.Kind()] = bucket
	}
	bucket[id] = struct{}{}
	return id
}

// Unregister is idempotent; unknown ids are a no-op.
func (r *Registry) Unregister(id uint64) {
	e, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)
	delete(r.idOf, e)
	if bucket := r.byKind[e.Kind()]; bucket != nil {
		delete(bucket, id)
	}
}

func (r *Registry) Get(id uint64) (Entity, bool) {
	e, ok := r.byID[id]
	return e, ok
}

// IDOf is the reverse lookup; 0 means unknown.
func (r *Registry) IDOf(e Entity) uint64 {
	return r.idOf[e]
}

func (r *Registry) Len() int { return len(r.byID) }

// ByKind returns the ids of one type bucket in ascending order so callers
// iterate deterministically.
func (r *Registry) ByKind(k Kind) []uint64 {
	bucket := r.byKind[k]
	ids := make([]uint64, 0, len(bucket))
	for id := range bucket {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// All returns every live id in ascending order.
func (r *Registry) All() []uint64 {
	ids := make([]uint64, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// InRadius is a linear scan on squared distance. kind 0 scans every
// bucket.
func (r *Registry) InRadius(center Vec3, radius float64, kind Kind) []uint64 {
	rr := radius * radius
	var ids []uint64
	scan := func(id uint64, e Entity) {
		if DistSq(e.Pos(), center) <= rr {
			ids = append(ids, id)
		}
	}
	if kind != 0 {
		for id := range r.byKind[kind] {
			scan(id, r.byID[id])
		}
	} else {
		for id, e := range r.byID {
			scan(id, e)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

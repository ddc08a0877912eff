package ecs

import arkecs "github.com/mlange-42/ark/ecs"

// ComponentHandle is a generic accessor for one component type,
// backed by the archetype library's typed map/filter pair. Component
// Systems obtain a ComponentHandle once at startup and use it to read
// or mutate the entities that carry that component.
type ComponentHandle[T any] struct {
	world  *World
	kind   string
	mapper *arkecs.Map1[T]
	filter *arkecs.Filter1[T]
	encode func(T) []byte
	decode func([]byte) (T, error)
}

// RegisterComponent declares a new component kind on w, named kind,
// with the given encode/decode pair used for Snapshot/Restore. Two
// calls to RegisterComponent with the same kind on the same World is
// a programming error; callers register each kind exactly once at
// startup, mirroring internal/command's registry discipline.
func RegisterComponent[T any](w *World, kind string, encode func(T) []byte, decode func([]byte) (T, error)) *ComponentHandle[T] {
	h := &ComponentHandle[T]{
		world:  w,
		kind:   kind,
		mapper: arkecs.NewMap1[T](&w.ark),
		filter: arkecs.NewFilter1[T](&w.ark),
		encode: encode,
		decode: decode,
	}
	w.registerKind(h)
	return h
}

// Kind returns the component's registered name.
func (h *ComponentHandle[T]) Kind() string { return h.kind }

// Get returns the component value for id and whether it is present.
func (h *ComponentHandle[T]) Get(id EntityID) (T, bool) {
	var zero T
	ent, ok := h.world.uidToEntity[id]
	if !ok {
		return zero, false
	}
	if !h.mapper.Has(ent) {
		return zero, false
	}
	return *h.mapper.Get(ent), true
}

// Set assigns v as id's component value, adding it if absent.
func (h *ComponentHandle[T]) Set(id EntityID, v T) {
	ent, ok := h.world.uidToEntity[id]
	if !ok {
		return
	}
	if h.mapper.Has(ent) {
		*h.mapper.Get(ent) = v
		return
	}
	h.mapper.Add(ent, &v)
}

// Remove drops the component from id, if present.
func (h *ComponentHandle[T]) Remove(id EntityID) {
	ent, ok := h.world.uidToEntity[id]
	if !ok {
		return
	}
	if h.mapper.Has(ent) {
		h.mapper.Remove(ent)
	}
}

// Each visits every entity carrying this component, in the
// filter's iteration order, passing a pointer Component Systems may
// mutate in place.
func (h *ComponentHandle[T]) Each(fn func(id EntityID, v *T)) {
	q := h.filter.Query()
	defer q.Close()
	for q.Next() {
		id, ok := h.world.entityToUID[q.Entity()]
		if !ok {
			continue
		}
		fn(id, q.Get())
	}
}

func (h *ComponentHandle[T]) snapshot() map[EntityID][]byte {
	out := make(map[EntityID][]byte)
	h.Each(func(id EntityID, v *T) {
		out[id] = h.encode(*v)
	})
	return out
}

func (h *ComponentHandle[T]) restore(data map[EntityID][]byte) {
	present := make(map[EntityID]bool)
	h.Each(func(id EntityID, _ *T) { present[id] = true })

	for id := range present {
		if _, ok := data[id]; !ok {
			h.Remove(id)
		}
	}
	for id, raw := range data {
		v, err := h.decode(raw)
		if err != nil {
			continue
		}
		h.Set(id, v)
	}
}

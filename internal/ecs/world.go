// Package ecs implements the entity/component store and Component
// System Manager.
//
// Entities are identified by an engine-facing monotonically allocated
// i64 UID (starting at 1; 0 is reserved null), decoupled from the
// backing archetype library's own entity handles so that Restore can
// rehydrate a snapshot's UID space exactly.
//
// Drives github.com/mlange-42/ark/ecs through a Filter/Query cursor
// (Query()/Next()/Entity()/Get()/Close()) to capture and restore
// per-entity component values, generalized from a fixed component set
// into an open registry of component kinds (see component.go), each
// owning its own snapshot/restore logic, mirroring the kind-registry
// shape used by internal/command.
package ecs

import (
	"sort"

	arkecs "github.com/mlange-42/ark/ecs"
)

// EntityID is the engine-facing entity identifier. 0 is reserved as
// null; live entities start at 1.
type EntityID int64

// NullEntity is the reserved null identifier.
const NullEntity EntityID = 0

// componentKind is the package-private contract a ComponentHandle
// satisfies so World can snapshot/restore it without knowing its
// element type.
type componentKind interface {
	Kind() string
	snapshot() map[EntityID][]byte
	restore(data map[EntityID][]byte)
}

// World owns the entity UID space and the live archetype store
// backing it. Only World may create or destroy entities; Component
// Systems hold only weak references (EntityID values), never the
// backing library's own handles.
type World struct {
	ark         arkecs.World
	nextUID     EntityID
	uidToEntity map[EntityID]arkecs.Entity
	entityToUID map[arkecs.Entity]EntityID
	kinds       []componentKind
}

// NewWorld returns an empty World with its UID allocator starting at 1.
func NewWorld() *World {
	return &World{
		ark:         arkecs.NewWorld(),
		nextUID:     1,
		uidToEntity: make(map[EntityID]arkecs.Entity),
		entityToUID: make(map[arkecs.Entity]EntityID),
	}
}

// registerKind is called by RegisterComponent to add a component kind
// to the snapshot/restore traversal order.
func (w *World) registerKind(k componentKind) {
	w.kinds = append(w.kinds, k)
}

// Spawn allocates a new entity and returns its UID.
func (w *World) Spawn() EntityID {
	ent := w.ark.NewEntity()
	id := w.nextUID
	w.nextUID++
	w.uidToEntity[id] = ent
	w.entityToUID[ent] = id
	return id
}

// spawnWithID creates an entity pinned to a specific UID, used only by
// Restore to rehydrate a snapshot's entity set exactly. Bumps the
// allocator past id so future Spawn calls never collide with it.
func (w *World) spawnWithID(id EntityID) {
	ent := w.ark.NewEntity()
	w.uidToEntity[id] = ent
	w.entityToUID[ent] = id
	if id >= w.nextUID {
		w.nextUID = id + 1
	}
}

// Despawn removes an entity and every component it holds.
func (w *World) Despawn(id EntityID) {
	ent, ok := w.uidToEntity[id]
	if !ok {
		return
	}
	w.ark.RemoveEntity(ent)
	delete(w.uidToEntity, id)
	delete(w.entityToUID, ent)
}

// Alive reports whether id refers to a live entity.
func (w *World) Alive(id EntityID) bool {
	_, ok := w.uidToEntity[id]
	return ok
}

// EntityIDs returns every live entity's UID in ascending order, giving
// Component Systems a stable insertion order to iterate over.
func (w *World) EntityIDs() []EntityID {
	ids := make([]EntityID, 0, len(w.uidToEntity))
	for id := range w.uidToEntity {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Snapshot is a frame-stamped, deep, value-semantics copy of the
// entire entity/component world: every live entity UID plus every
// registered component kind's encoded values, keyed by entity.
type Snapshot struct {
	Entities   []EntityID
	Components map[string]map[EntityID][]byte
}

// Snapshot captures the live world into a clonable value. Cloning a
// Snapshot with Clone (or by round-tripping through encoding/gob)
// copies every entity and component byte it holds; a plain copy of
// its maps would still share the encoded byte slices. Clone's
// value-semantics is what a TSS trailing state depends on when it
// forks and restores basis states.
func (w *World) Snapshot() Snapshot {
	components := make(map[string]map[EntityID][]byte, len(w.kinds))
	for _, k := range w.kinds {
		components[k.Kind()] = k.snapshot()
	}
	return Snapshot{
		Entities:   w.EntityIDs(),
		Components: components,
	}
}

// Restore reconciles the live world to match snap exactly: entities
// absent from snap are despawned, entities present in snap but not
// currently alive are respawned under their original UID, and every
// registered component kind is reconciled against snap's encoded
// values. No aliasing survives a Restore: every component value is
// freshly decoded from bytes.
func (w *World) Restore(snap Snapshot) {
	want := make(map[EntityID]bool, len(snap.Entities))
	for _, id := range snap.Entities {
		want[id] = true
	}

	for _, id := range w.EntityIDs() {
		if !want[id] {
			w.Despawn(id)
		}
	}
	for _, id := range snap.Entities {
		if !w.Alive(id) {
			w.spawnWithID(id)
		}
	}

	for _, k := range w.kinds {
		k.restore(snap.Components[k.Kind()])
	}
}

// Clone returns a deep, independent copy of snap: mutating the
// returned Snapshot's maps never affects snap's.
func (snap Snapshot) Clone() Snapshot {
	entities := make([]EntityID, len(snap.Entities))
	copy(entities, snap.Entities)

	components := make(map[string]map[EntityID][]byte, len(snap.Components))
	for kind, byEntity := range snap.Components {
		cloned := make(map[EntityID][]byte, len(byEntity))
		for id, raw := range byEntity {
			b := make([]byte, len(raw))
			copy(b, raw)
			cloned[id] = b
		}
		components[kind] = cloned
	}

	return Snapshot{Entities: entities, Components: components}
}

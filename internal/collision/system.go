package collision

import (
	"github.com/fnuecke/Space-sub012/internal/ecs"
	"github.com/fnuecke/Space-sub012/internal/fixed"
	"github.com/fnuecke/Space-sub012/internal/packet"
)

// tileSize is the edge length of one TileMap cell in fixed-point
// world units.
var tileSize = fixed.FromInt(1)

// Collider is the component an entity carries to participate in
// broad-phase collision. Bounds is expressed in absolute world
// coordinates, not tile-relative.
type Collider struct {
	Bounds fixed.Rect
}

// EncodeCollider serializes a Collider to bytes for snapshot/restore.
func EncodeCollider(c Collider) []byte {
	p := packet.New()
	p.WriteI64(c.Bounds.X.Raw())
	p.WriteI64(c.Bounds.Y.Raw())
	p.WriteI64(c.Bounds.W.Raw())
	p.WriteI64(c.Bounds.H.Raw())
	return p.Bytes()
}

// DecodeCollider deserializes a Collider encoded by EncodeCollider.
func DecodeCollider(raw []byte) (Collider, error) {
	p := packet.FromBytes(raw)
	x, err := p.ReadI64()
	if err != nil {
		return Collider{}, err
	}
	y, err := p.ReadI64()
	if err != nil {
		return Collider{}, err
	}
	w, err := p.ReadI64()
	if err != nil {
		return Collider{}, err
	}
	h, err := p.ReadI64()
	if err != nil {
		return Collider{}, err
	}
	return Collider{Bounds: fixed.Rect{
		X: fixed.FromRaw(x), Y: fixed.FromRaw(y),
		W: fixed.FromRaw(w), H: fixed.FromRaw(h),
	}}, nil
}

// System is the collision broad-phase Component System: it resolves
// every entity's Collider against the static TileMap and against
// every other Collider, pushing overlapping bounds apart along the
// minimum-penetration axis. Registered into an ecs.Manager in ordinary
// system order, per the spec's open-question decision that collision
// is not special-cased by the scheduler or simulation step.
type System struct {
	colliders *ecs.ComponentHandle[Collider]
	tiles     *TileMap
}

// NewSystem registers the Collider component kind on w and returns a
// System resolving against tiles.
func NewSystem(w *ecs.World, tiles *TileMap) *System {
	return &System{
		colliders: ecs.RegisterComponent(w, "collider", EncodeCollider, DecodeCollider),
		tiles:     tiles,
	}
}

// Colliders exposes the registered Collider component handle so other
// systems (e.g. gameplay logic) can read or set bounds directly.
func (s *System) Colliders() *ecs.ComponentHandle[Collider] {
	return s.colliders
}

// Name identifies the system for diagnostics.
func (s *System) Name() string { return "collision" }

// Update resolves tile collisions first (static geometry takes
// priority), then pairwise entity-entity overlap, in the stable
// insertion order World.EntityIDs provides (ascending EntityID).
func (s *System) Update(w *ecs.World) {
	s.colliders.Each(func(id EntityIDAlias, c *Collider) {
		s.resolveTiles(c)
	})

	var snapshot []entityBounds
	for _, id := range w.EntityIDs() {
		if c, ok := s.colliders.Get(id); ok {
			snapshot = append(snapshot, entityBounds{id: id, bounds: c.Bounds})
		}
	}

	for i := 0; i < len(snapshot); i++ {
		for j := i + 1; j < len(snapshot); j++ {
			a := snapshot[i]
			b := snapshot[j]
			pen := a.bounds.Penetration(b.bounds)
			if pen == (fixed.Vec2{}) {
				continue
			}
			half := fixed.FromRaw(1 << (fixed.Shift - 1))
			push := pen.Scale(half)

			if cur, ok := s.colliders.Get(a.id); ok {
				cur.Bounds.X = cur.Bounds.X.Sub(push.X)
				cur.Bounds.Y = cur.Bounds.Y.Sub(push.Y)
				s.colliders.Set(a.id, cur)
			}
			if cur, ok := s.colliders.Get(b.id); ok {
				cur.Bounds.X = cur.Bounds.X.Add(push.X)
				cur.Bounds.Y = cur.Bounds.Y.Add(push.Y)
				s.colliders.Set(b.id, cur)
			}
		}
	}
}

// EntityIDAlias is ecs.EntityID, aliased locally so this file reads
// self-contained; Component Systems hold only this weak reference,
// never the backing store's own entity handle.
type EntityIDAlias = ecs.EntityID

type entityBounds struct {
	id     EntityIDAlias
	bounds fixed.Rect
}

// resolveTiles pushes c out of any solid tile its bounds overlap,
// along whichever axis yields the smaller correction.
func (s *System) resolveTiles(c *Collider) {
	if s.tiles == nil {
		return
	}

	// tileSize is fixed at one whole unit, so a tile index is simply
	// the floored integer coordinate.
	minTX := int(c.Bounds.X.ToInt())
	minTY := int(c.Bounds.Y.ToInt())
	maxTX := int(c.Bounds.X.Add(c.Bounds.W).ToInt())
	maxTY := int(c.Bounds.Y.Add(c.Bounds.H).ToInt())

	for ty := minTY; ty <= maxTY; ty++ {
		for tx := minTX; tx <= maxTX; tx++ {
			if !s.tiles.IsSolid(tx, ty) {
				continue
			}
			tileRect := fixed.Rect{
				X: fixed.FromInt(int64(tx)).Mul(tileSize),
				Y: fixed.FromInt(int64(ty)).Mul(tileSize),
				W: tileSize,
				H: tileSize,
			}
			pen := c.Bounds.Penetration(tileRect)
			if pen == (fixed.Vec2{}) {
				continue
			}
			c.Bounds.X = c.Bounds.X.Sub(pen.X)
			c.Bounds.Y = c.Bounds.Y.Sub(pen.Y)
		}
	}
}

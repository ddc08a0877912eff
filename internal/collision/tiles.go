// Package collision implements tile-map and AABB collision broad
// phase over deterministic fixed-point geometry.
//
// Adapted from a float64 AABB/tile-grid implementation; the tile grid
// itself is integer-indexed in both versions, and AABB geometry moves
// to internal/fixed.Rect so resolution is reproducible across peers.
package collision

// TileFlag represents the collision properties of a single tile.
type TileFlag uint8

const (
	TileEmpty    TileFlag = 0
	TileSolid    TileFlag = 1 << iota // blocks movement from all directions
	TilePlatform                      // blocks from above only, pass-through from below
	TileHazard                        // damages on contact
	TileLadder                        // allows climbing
	TileWater                         // slows movement, allows swimming
)

// TileMap holds static collision data for the world geometry.
type TileMap struct {
	Width  int
	Height int
	Tiles  []TileFlag
}

// NewTileMap returns a TileMap of the given dimensions, all tiles
// TileEmpty.
func NewTileMap(width, height int) *TileMap {
	return &TileMap{
		Width:  width,
		Height: height,
		Tiles:  make([]TileFlag, width*height),
	}
}

// Get returns the flag at (x, y). Out-of-bounds coordinates read as
// TileSolid, so geometry queries near the map edge degrade safely to
// "blocked" rather than "open".
func (m *TileMap) Get(x, y int) TileFlag {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return TileSolid
	}
	return m.Tiles[y*m.Width+x]
}

// Set assigns the flag at (x, y); out-of-bounds coordinates are a
// no-op.
func (m *TileMap) Set(x, y int, flag TileFlag) {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return
	}
	m.Tiles[y*m.Width+x] = flag
}

// IsSolid reports whether the tile at (x, y) blocks movement from
// every direction.
func (m *TileMap) IsSolid(x, y int) bool {
	return m.Get(x, y)&TileSolid != 0
}

// IsPlatform reports whether the tile at (x, y) is a pass-through
// platform, blocking only from above.
func (m *TileMap) IsPlatform(x, y int) bool {
	return m.Get(x, y)&TilePlatform != 0
}

// Clone returns an independent copy of m, for snapshotting world
// geometry that a scenario mutates at runtime (e.g. destructible
// tiles).
func (m *TileMap) Clone() *TileMap {
	tiles := make([]TileFlag, len(m.Tiles))
	copy(tiles, m.Tiles)
	return &TileMap{Width: m.Width, Height: m.Height, Tiles: tiles}
}

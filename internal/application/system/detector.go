package system

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/younwookim/motioncore/internal/domain/collision"
	"github.com/younwookim/motioncore/internal/ecs"
)

// TileStage is a solid-tile grid used by the reference contact detector.
// Anything outside the grid counts as solid so entities stay contained.
type TileStage struct {
	TileSize float64
	Solid    [][]bool // [row][col]
}

// NewTileStage builds a stage from string rows, '#' marking solid tiles.
func NewTileStage(tileSize float64, rows []string) *TileStage {
	solid := make([][]bool, len(rows))
	for y, row := range rows {
		solid[y] = make([]bool, len(row))
		for x, ch := range row {
			solid[y][x] = ch == '#'
		}
	}
	return &TileStage{TileSize: tileSize, Solid: solid}
}

// SolidAt reports whether the tile at (tx, ty) is solid.
func (s *TileStage) SolidAt(tx, ty int) bool {
	if ty < 0 || ty >= len(s.Solid) {
		return true
	}
	if tx < 0 || tx >= len(s.Solid[ty]) {
		return true
	}
	return s.Solid[ty][tx]
}

// solidRect reports whether any tile overlapping the rect is solid.
func (s *TileStage) solidRect(minX, minY, maxX, maxY float64) bool {
	startTX := int(math.Floor(minX / s.TileSize))
	endTX := int(math.Floor((maxX - 1e-9) / s.TileSize))
	startTY := int(math.Floor(minY / s.TileSize))
	endTY := int(math.Floor((maxY - 1e-9) / s.TileSize))

	for ty := startTY; ty <= endTY; ty++ {
		for tx := startTX; tx <= endTX; tx++ {
			if s.SolidAt(tx, ty) {
				return true
			}
		}
	}
	return false
}

// solidRow reports whether any tile in row ty under the x span is solid.
func (s *TileStage) solidRow(minX, maxX float64, ty int) bool {
	startTX := int(math.Floor(minX / s.TileSize))
	endTX := int(math.Floor((maxX - 1e-9) / s.TileSize))
	for tx := startTX; tx <= endTX; tx++ {
		if s.SolidAt(tx, ty) {
			return true
		}
	}
	return false
}

// solidColumn reports whether any tile in column tx over the y span is solid.
func (s *TileStage) solidColumn(minY, maxY float64, tx int) bool {
	startTY := int(math.Floor(minY / s.TileSize))
	endTY := int(math.Floor((maxY - 1e-9) / s.TileSize))
	for ty := startTY; ty <= endTY; ty++ {
		if s.SolidAt(tx, ty) {
			return true
		}
	}
	return false
}

// TileDetector derives wall/ground/ceiling contacts for an entity by
// probing one unit past each face of its collider, and pushes embedded
// colliders back out of solid tiles. It implements the external
// collision-detection collaborator for demos and tests.
type TileDetector struct {
	stage  *TileStage
	probe  float64
	nextID int64
}

// NewTileDetector creates a detector over the given stage.
func NewTileDetector(stage *TileStage) *TileDetector {
	return &TileDetector{stage: stage, probe: 1}
}

// Depenetrate pushes an embedded collider back out of solid tiles and
// returns the corrected position. Integration can carry a fast-falling
// entity past a tile face within one step; left embedded, its side probes
// would overlap the floor row and read as walls on both sides. A legal
// position comes back unchanged.
func (d *TileDetector) Depenetrate(_ ecs.EntityID, pos mgl64.Vec2, col ecs.Collider) mgl64.Vec2 {
	he := col.HalfExtents()
	// Resolve the shallower axis first and re-derive the other from the
	// corrected position, so a small wall overlap near the floor is not
	// mistaken for a deep floor overlap.
	for i := 0; i < 2; i++ {
		vd := d.verticalDepth(pos, he)
		hd := d.horizontalDepth(pos, he)
		switch {
		case vd == 0 && hd == 0:
			return pos
		case hd != 0 && (vd == 0 || math.Abs(hd) < math.Abs(vd)):
			pos[0] += hd
		default:
			pos[1] += vd
		}
	}
	return pos
}

// verticalDepth returns the signed y correction that clears floor or
// ceiling overlap, zero when the y axis is clear.
func (d *TileDetector) verticalDepth(pos, he mgl64.Vec2) float64 {
	ts := d.stage.TileSize
	minX, maxX := pos[0]-he[0], pos[0]+he[0]
	maxY := pos[1] + he[1]
	if ry := int(math.Floor(maxY / ts)); maxY > float64(ry)*ts && d.stage.solidRow(minX, maxX, ry) {
		return float64(ry)*ts - maxY // up, out of the floor
	}
	minY := pos[1] - he[1]
	if ry := int(math.Floor(minY / ts)); d.stage.solidRow(minX, maxX, ry) {
		return float64(ry+1)*ts - minY // down, out of the ceiling
	}
	return 0
}

// horizontalDepth is the x-axis counterpart of verticalDepth.
func (d *TileDetector) horizontalDepth(pos, he mgl64.Vec2) float64 {
	ts := d.stage.TileSize
	minY, maxY := pos[1]-he[1], pos[1]+he[1]
	minX := pos[0] - he[0]
	if cx := int(math.Floor(minX / ts)); d.stage.solidColumn(minY, maxY, cx) {
		return float64(cx+1)*ts - minX // right, out of the left wall
	}
	maxX := pos[0] + he[0]
	if cx := int(math.Floor(maxX / ts)); maxX > float64(cx)*ts && d.stage.solidColumn(minY, maxY, cx) {
		return float64(cx)*ts - maxX // left, out of the right wall
	}
	return 0
}

// ContactsFor returns this tick's active contacts for the entity.
func (d *TileDetector) ContactsFor(id ecs.EntityID, pos mgl64.Vec2, col ecs.Collider) []collision.Contact {
	he := col.HalfExtents()
	minX, maxX := pos[0]-he[0], pos[0]+he[0]
	minY, maxY := pos[1]-he[1], pos[1]+he[1]

	var contacts []collision.Contact

	// Below: ground, normal pointing up (negative y).
	if d.stage.solidRect(minX, maxY, maxX, maxY+d.probe) {
		contacts = append(contacts, d.contact(collision.KindGround,
			mgl64.Vec2{0, -1}, mgl64.Vec2{pos[0], maxY}))
	}
	// Above: ceiling, normal pointing down.
	if d.stage.solidRect(minX, minY-d.probe, maxX, minY) {
		contacts = append(contacts, d.contact(collision.KindCeiling,
			mgl64.Vec2{0, 1}, mgl64.Vec2{pos[0], minY}))
	}
	// Left wall: normal pointing right.
	if d.stage.solidRect(minX-d.probe, minY, minX, maxY) {
		contacts = append(contacts, d.contact(collision.KindWall,
			mgl64.Vec2{1, 0}, mgl64.Vec2{minX, pos[1]}))
	}
	// Right wall: normal pointing left.
	if d.stage.solidRect(maxX, minY, maxX+d.probe, maxY) {
		contacts = append(contacts, d.contact(collision.KindWall,
			mgl64.Vec2{-1, 0}, mgl64.Vec2{maxX, pos[1]}))
	}
	return contacts
}

func (d *TileDetector) contact(kind collision.Kind, normal, point mgl64.Vec2) collision.Contact {
	d.nextID++
	return collision.Contact{
		ID:     d.nextID,
		Kind:   kind,
		Normal: normal,
		Point:  point,
		Active: true,
	}
}

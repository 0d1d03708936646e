package kcl

import (
	"math/bits"

	"github.com/Faultbox/kcltool/pkg/math"
)

// BuildOptions tunes the spatial-index builder. Many tree shapes are valid
// encodings of the same mesh; these knobs only trade file size against
// query candidate-list length.
type BuildOptions struct {
	// RootCellWidth is the target root cell width in world units,
	// rounded up to a power of two. Clamped down so every axis keeps at
	// least one root cell.
	RootCellWidth uint32

	// MaxLeafPrisms is the leaf occupancy above which a cell is split.
	MaxLeafPrisms int

	// MaxDepth bounds subdivision below the root grid. The builder also
	// clamps it so leaf cells never shrink below one world unit.
	MaxDepth int

	// Padding inflates every prism's bounding box, keeping triangles on
	// a cell boundary assigned to both sides.
	Padding float32
}

// DefaultBuildOptions returns the builder defaults.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		RootCellWidth: 1024,
		MaxLeafPrisms: 16,
		MaxDepth:      8,
		Padding:       1.0,
	}
}

func (o BuildOptions) withDefaults() BuildOptions {
	def := DefaultBuildOptions()
	if o.RootCellWidth == 0 {
		o.RootCellWidth = def.RootCellWidth
	}
	if o.MaxLeafPrisms <= 0 {
		o.MaxLeafPrisms = def.MaxLeafPrisms
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = def.MaxDepth
	}
	if o.MaxDepth > maxOctreeDepth {
		o.MaxDepth = maxOctreeDepth
	}
	if o.Padding <= 0 {
		o.Padding = def.Padding
	}
	return o
}

// RebuildIndex replaces the mesh's spatial index with a freshly built tree
// covering the current prism set, and refreshes the header's bounding-sphere
// radius. The index is always rebuilt whole: its shape depends globally on
// prism extents, so there is no partial update. The caller must not edit the
// mesh while a rebuild is in flight.
func (m *Mesh) RebuildIndex(opts BuildOptions) {
	opts = opts.withDefaults()

	boxes := make([]math.AABB, len(m.Prisms))
	var radius float32
	for i := range m.Prisms {
		box := m.PrismAABB(i)
		if r := box.Size().Length() / 2; r > radius {
			radius = r
		}
		boxes[i] = box.Inflate(opts.Padding)
	}
	m.SphereRadius = radius

	targetShift := uint32(bits.Len32(opts.RootCellWidth - 1))

	var bounds math.AABB
	if len(boxes) > 0 {
		bounds = boxes[0]
		for _, b := range boxes[1:] {
			bounds = bounds.Extend(b.Min).Extend(b.Max)
		}
	} else {
		// Degenerate empty mesh: a single root cell with an empty leaf.
		bounds = math.NewAABB(math.Vec3{}, math.Vec3{X: 1, Y: 1, Z: 1})
	}

	origin := bounds.Min.Floor()
	size := bounds.Max.Sub(origin)
	ex := extentExponent(size.X)
	ey := extentExponent(size.Y)
	ez := extentExponent(size.Z)

	shift := targetShift
	shift = min(shift, ex, ey, ez)

	// The decoder caps the root grid at 2^21 cells. Coarsen until the
	// per-axis cell counts fit, padding short axes up to the cell width.
	axisBits := func(e uint32) uint32 {
		if e < shift {
			return 0
		}
		return e - shift
	}
	for axisBits(ex)+axisBits(ey)+axisBits(ez) > 21 {
		shift++
	}
	ex = max(ex, shift)
	ey = max(ey, shift)
	ez = max(ez, shift)

	// Splitting below unit-width cells loses precision in integerized
	// lookups, so depth is bounded by the root cell width.
	if opts.MaxDepth > int(shift) {
		opts.MaxDepth = int(shift)
	}

	o := &Octree{
		Origin:     origin,
		XMask:      0xFFFFFFFF << ex,
		YMask:      0xFFFFFFFF << ey,
		ZMask:      0xFFFFFFFF << ez,
		CoordShift: shift,
		YShift:     ex - shift,
		ZShift:     (ex - shift) + (ey - shift),
	}

	all := make([]uint16, len(m.Prisms))
	for i := range all {
		all[i] = uint16(i)
	}

	nx, ny, nz := o.RootDims()
	cellW := float32(uint32(1) << shift)
	o.Roots = make([]Cell, nx*ny*nz)
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				cellMin := origin.Add(math.Vec3{
					X: float32(x) * cellW,
					Y: float32(y) * cellW,
					Z: float32(z) * cellW,
				})
				cellBox := math.AABB{Min: cellMin, Max: cellMin.Add(math.Vec3{X: cellW, Y: cellW, Z: cellW})}
				idx := x | y<<o.YShift | z<<o.ZShift
				o.Roots[idx] = buildCell(overlapping(all, boxes, cellBox), boxes, cellBox, 0, opts)
			}
		}
	}
	m.Index = o
}

// extentExponent returns the smallest e with 2^e strictly greater than
// size, so an integerized coordinate at the far edge still clears the mask.
func extentExponent(size float32) uint32 {
	e := uint32(0)
	for float32(uint64(1)<<e) <= size {
		e++
	}
	return e
}

// overlapping filters candidates down to prisms whose box touches cell.
// Touching counts: a prism on a split plane lands in both children.
func overlapping(candidates []uint16, boxes []math.AABB, cell math.AABB) []uint16 {
	var out []uint16
	for _, i := range candidates {
		if boxes[i].Overlaps(cell) {
			out = append(out, i)
		}
	}
	return out
}

// buildCell subdivides until occupancy drops below the threshold or the
// depth limit is hit, then emits a leaf.
func buildCell(candidates []uint16, boxes []math.AABB, bounds math.AABB, depth int, opts BuildOptions) Cell {
	if len(candidates) <= opts.MaxLeafPrisms || depth >= opts.MaxDepth {
		return Cell{Prisms: candidates}
	}
	mid := bounds.Center()
	children := make([]Cell, 8)
	for oct := 0; oct < 8; oct++ {
		child := bounds
		if oct&1 != 0 {
			child.Min.X = mid.X
		} else {
			child.Max.X = mid.X
		}
		if oct&2 != 0 {
			child.Min.Y = mid.Y
		} else {
			child.Max.Y = mid.Y
		}
		if oct&4 != 0 {
			child.Min.Z = mid.Z
		} else {
			child.Max.Z = mid.Z
		}
		children[oct] = buildCell(overlapping(candidates, boxes, child), boxes, child, depth+1, opts)
	}
	return Cell{Children: children}
}

// BuildMesh assembles a mesh from an edited triangle set: prism records with
// deduplicated position and normal tables, plus a fresh spatial index.
// Degenerate zero-area triangles are dropped. Fails only when a table
// outgrows the format's 16-bit index space.
func BuildMesh(tris []Triangle, thickness float32, opts BuildOptions) (*Mesh, error) {
	m := &Mesh{Thickness: thickness}

	posIndex := make(map[math.Vec3]uint16)
	nrmIndex := make(map[math.Vec3]uint16)

	internPos := func(v math.Vec3) (uint16, error) {
		if i, ok := posIndex[v]; ok {
			return i, nil
		}
		if len(m.Positions) > 0xFFFF {
			return 0, errTableLimit("position")
		}
		i := uint16(len(m.Positions))
		m.Positions = append(m.Positions, v)
		posIndex[v] = i
		return i, nil
	}
	internNrm := func(v math.Vec3) (uint16, error) {
		if i, ok := nrmIndex[v]; ok {
			return i, nil
		}
		if len(m.Normals) > 0xFFFF {
			return 0, errTableLimit("normal")
		}
		i := uint16(len(m.Normals))
		m.Normals = append(m.Normals, v)
		nrmIndex[v] = i
		return i, nil
	}

	for _, tri := range tris {
		fnrm, enrm1, enrm2, enrm3, length, ok := prismGeometry(tri.V1, tri.V2, tri.V3)
		if !ok {
			continue
		}
		if len(m.Prisms) >= 0x8000 {
			return nil, errTableLimit("prism")
		}
		var pr Prism
		var err error
		pr.Length = length
		pr.Attribute = tri.Attribute
		if pr.PosIndex, err = internPos(tri.V1); err != nil {
			return nil, err
		}
		if pr.FaceNormIndex, err = internNrm(fnrm); err != nil {
			return nil, err
		}
		if pr.EdgeNormIndex[0], err = internNrm(enrm1); err != nil {
			return nil, err
		}
		if pr.EdgeNormIndex[1], err = internNrm(enrm2); err != nil {
			return nil, err
		}
		if pr.EdgeNormIndex[2], err = internNrm(enrm3); err != nil {
			return nil, err
		}
		m.Prisms = append(m.Prisms, pr)
	}

	m.RebuildIndex(opts)
	return m, nil
}

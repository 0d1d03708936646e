package kcl

import (
	"fmt"
	"math/bits"

	"github.com/Faultbox/kcltool/pkg/math"
)

// Cell is one node of the spatial index. A branch holds exactly eight
// children ordered x-minor (child = x | y<<1 | z<<2); a leaf holds the
// indices of every prism whose volume may overlap the cell.
type Cell struct {
	Children []Cell
	Prisms   []uint16
}

// IsLeaf reports whether the cell is a leaf.
func (c *Cell) IsLeaf() bool {
	return c.Children == nil
}

// Octree is the spatial index over a mesh's prism table. The root grid
// tiles the padded world volume with cells 2^CoordShift units wide; each
// axis mask is 0xFFFFFFFF << e where 2^e is that axis's padded extent, so
// any coordinate with mask bits set lies outside the indexed volume.
type Octree struct {
	Origin math.Vec3

	XMask, YMask, ZMask        uint32
	CoordShift, YShift, ZShift uint32

	Roots []Cell
}

// RootDims returns the root grid dimensions per axis.
func (o *Octree) RootDims() (nx, ny, nz int) {
	nx = 1 << (uint32(bits.TrailingZeros32(o.XMask)) - o.CoordShift)
	ny = 1 << (uint32(bits.TrailingZeros32(o.YMask)) - o.CoordShift)
	nz = 1 << (uint32(bits.TrailingZeros32(o.ZMask)) - o.CoordShift)
	return nx, ny, nz
}

// Depth returns the deepest subdivision level below the root grid.
func (o *Octree) Depth() int {
	deepest := 0
	for i := range o.Roots {
		if d := cellDepth(&o.Roots[i]); d > deepest {
			deepest = d
		}
	}
	return deepest
}

func cellDepth(c *Cell) int {
	if c.IsLeaf() {
		return 0
	}
	deepest := 0
	for i := range c.Children {
		if d := cellDepth(&c.Children[i]); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}

// Lookup returns the leaf prism list for the cell containing p, or nil when
// p lies outside the indexed volume. Every in-bounds point resolves to
// exactly one leaf.
func (o *Octree) Lookup(p math.Vec3) []uint16 {
	rel := p.Sub(o.Origin).Floor()
	if rel.X < 0 || rel.Y < 0 || rel.Z < 0 {
		return nil
	}
	x, y, z := uint32(rel.X), uint32(rel.Y), uint32(rel.Z)
	if x&o.XMask != 0 || y&o.YMask != 0 || z&o.ZMask != 0 {
		return nil
	}

	idx := (x >> o.CoordShift) | (y>>o.CoordShift)<<o.YShift | (z>>o.CoordShift)<<o.ZShift
	cell := &o.Roots[idx]

	shift := o.CoordShift
	for depth := 0; !cell.IsLeaf(); depth++ {
		if depth >= maxOctreeDepth {
			return nil
		}
		if shift > 0 {
			shift--
		}
		oct := (x>>shift)&1 | ((y>>shift)&1)<<1 | ((z>>shift)&1)<<2
		cell = &cell.Children[oct]
	}
	return cell.Prisms
}

// validateIndexHeader checks that the mask and shift parameters are
// internally consistent: well-formed masks, at least one root cell per
// axis, and y/z shifts that pack the per-axis root indices contiguously.
func validateIndexHeader(xMask, yMask, zMask, coordShift, yShift, zShift uint32) error {
	for _, mask := range []uint32{xMask, yMask, zMask} {
		if mask == 0 || bits.OnesCount32(mask)+bits.TrailingZeros32(mask) != 32 {
			return fmt.Errorf("%w: bad axis mask 0x%08X", ErrCorruptIndex, mask)
		}
	}
	ex := uint32(bits.TrailingZeros32(xMask))
	ey := uint32(bits.TrailingZeros32(yMask))
	ez := uint32(bits.TrailingZeros32(zMask))
	if coordShift > ex || coordShift > ey || coordShift > ez {
		return fmt.Errorf("%w: coord shift %d exceeds axis extent", ErrCorruptIndex, coordShift)
	}
	if yShift != ex-coordShift || zShift != yShift+(ey-coordShift) {
		return fmt.Errorf("%w: inconsistent y/z shifts", ErrCorruptIndex)
	}
	// Refuse silly root grids before allocating for them.
	if (ex-coordShift)+(ey-coordShift)+(ez-coordShift) > 21 {
		return fmt.Errorf("%w: root grid too large", ErrCorruptIndex)
	}
	return nil
}

// decodeOctree decodes the spatial-index section. block holds the section
// bytes; every stored offset is relative to its start. prismCount bounds
// the indices a leaf list may reference.
func decodeOctree(block []byte, origin math.Vec3, xMask, yMask, zMask, coordShift, yShift, zShift uint32, prismCount int) (*Octree, error) {
	if err := validateIndexHeader(xMask, yMask, zMask, coordShift, yShift, zShift); err != nil {
		return nil, err
	}
	o := &Octree{
		Origin:     origin,
		XMask:      xMask,
		YMask:      yMask,
		ZMask:      zMask,
		CoordShift: coordShift,
		YShift:     yShift,
		ZShift:     zShift,
	}
	nx, ny, nz := o.RootDims()
	// A section of N bytes stores at most N/4 cell entries, so any decode
	// materializing more branch cells than that is following shared or
	// overlapping offsets and would blow up without this bound.
	budget := len(block) / 4
	roots, err := decodeCellTable(block, 0, nx*ny*nz, 0, prismCount, &budget)
	if err != nil {
		return nil, err
	}
	o.Roots = roots
	return o, nil
}

// decodeCellTable decodes one table of cell entries at base. Root tables
// hold count entries; child tables always hold eight.
func decodeCellTable(block []byte, base, count, depth, prismCount int, budget *int) ([]Cell, error) {
	c := newCursor(block)
	cells := make([]Cell, count)
	for i := 0; i < count; i++ {
		entry, err := c.u32At(base + 4*i)
		if err != nil {
			return nil, fmt.Errorf("%w: cell table at 0x%X", ErrTruncatedData, base)
		}
		if entry&leafFlag != 0 {
			prisms, err := decodeLeafList(block, int(entry&^leafFlag), prismCount)
			if err != nil {
				return nil, err
			}
			cells[i].Prisms = prisms
		} else {
			if depth+1 > maxOctreeDepth {
				return nil, fmt.Errorf("%w: depth exceeds %d", ErrCorruptIndex, maxOctreeDepth)
			}
			*budget -= 8
			if *budget < 0 {
				return nil, fmt.Errorf("%w: more cells than the section holds", ErrCorruptIndex)
			}
			children, err := decodeCellTable(block, int(entry), 8, depth+1, prismCount, budget)
			if err != nil {
				return nil, err
			}
			cells[i].Children = children
		}
	}
	return cells, nil
}

// decodeLeafList reads prism indices until the high-bit terminator.
func decodeLeafList(block []byte, off, prismCount int) ([]uint16, error) {
	if off < 0 || off >= len(block) {
		return nil, fmt.Errorf("%w: leaf list at 0x%X", ErrOffsetOutOfRange, off)
	}
	c := newCursor(block)
	var prisms []uint16
	for {
		v, err := c.u16At(off)
		if err != nil {
			return nil, fmt.Errorf("%w: unterminated leaf list", ErrTruncatedData)
		}
		if v&0x8000 != 0 {
			return prisms, nil
		}
		if int(v) >= prismCount {
			return nil, fmt.Errorf("%w: leaf references prism %d of %d", ErrCorruptIndex, v, prismCount)
		}
		prisms = append(prisms, v)
		off += 2
	}
}

// encodeOctree serializes the tree: root table first, then branch tables
// breadth-first, then leaf lists. Entries are reserved up front and
// backpatched once their targets are placed; all empty leaves share one
// terminator.
func encodeOctree(w *writer, o *Octree) {
	sectionBase := w.len()

	type patch struct {
		at   int   // writer offset of the reserved u32
		cell *Cell // target the entry points at
	}
	var patches []patch

	writeTable := func(cells []Cell) {
		for i := range cells {
			patches = append(patches, patch{at: w.reserveU32(), cell: &cells[i]})
		}
	}

	writeTable(o.Roots)
	// Breadth-first over branch tables; patches acts as the queue.
	for i := 0; i < len(patches); i++ {
		if !patches[i].cell.IsLeaf() {
			w.patchU32(patches[i].at, uint32(w.len()-sectionBase))
			writeTable(patches[i].cell.Children)
		}
	}

	// Shared list for empty leaves.
	emptyOff := uint32(w.len() - sectionBase)
	w.u16(leafTerminator)
	for _, p := range patches {
		if !p.cell.IsLeaf() {
			continue
		}
		if len(p.cell.Prisms) == 0 {
			w.patchU32(p.at, leafFlag|emptyOff)
			continue
		}
		w.patchU32(p.at, leafFlag|uint32(w.len()-sectionBase))
		for _, idx := range p.cell.Prisms {
			w.u16(idx)
		}
		w.u16(leafTerminator)
	}
	w.pad(4)
}

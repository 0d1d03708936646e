// Package kcl decodes, queries, and re-encodes KCL track collision files.
//
// A KCL file packs a triangle mesh (positions, normals, per-triangle prism
// records) together with an octree spatial index that maps any point in the
// track volume to a short list of candidate triangles. All multi-byte values
// are big-endian.
package kcl

import (
	"errors"
	"fmt"
	"os"

	"github.com/Faultbox/kcltool/pkg/math"
)

// KCL format errors.
var (
	ErrTruncatedData    = errors.New("truncated KCL data")
	ErrMalformedTable   = errors.New("malformed KCL table")
	ErrDanglingIndex    = errors.New("prism references an out-of-range table index")
	ErrCorruptIndex     = errors.New("corrupt spatial index")
	ErrOffsetOutOfRange = errors.New("offset outside KCL data")
	ErrTableLimit       = errors.New("table size exceeds format limits")
)

func errTableLimit(table string) error {
	return fmt.Errorf("%w: %s table", ErrTableLimit, table)
}

const (
	headerSize   = 0x3C
	vectorStride = 12
	prismStride  = 16

	// The stored prism-table offset points 0x10 before the first record.
	prismOffsetBias = 0x10

	// Leaf entries set the high bit of their offset; leaf lists end at the
	// first u16 with the high bit set.
	leafFlag       = 0x80000000
	leafTerminator = 0xFFFF

	// Traversal guard. Also breaks offset cycles in corrupt files.
	maxOctreeDepth = 16
)

// Prism is one triangle record of the prism table. The triangle's full shape
// is recovered from one stored vertex, the face normal, three edge normals,
// and the length scalar; see Mesh.PrismVertices.
type Prism struct {
	Length        float32
	PosIndex      uint16
	FaceNormIndex uint16
	EdgeNormIndex [3]uint16
	Attribute     uint16
}

// Type returns the base collision type encoded in the attribute flags.
func (p Prism) Type() CollisionType {
	return CollisionType(p.Attribute & baseTypeMask)
}

// Triangle is the editable form of a prism: three vertices plus the raw
// attribute flags. BuildMesh converts triangles back into prism records.
type Triangle struct {
	V1, V2, V3 math.Vec3
	Attribute  uint16
}

// Mesh is a decoded collision mesh. Positions, Normals, Prisms, and Index
// form one immutable snapshot: the index stores prism table indices, never
// geometry, so mesh and index are always replaced together. Concurrent
// read-only queries against the same snapshot are safe.
type Mesh struct {
	Positions []math.Vec3
	Normals   []math.Vec3
	Prisms    []Prism
	Thickness float32

	// SphereRadius is the bounding-sphere radius of the largest prism,
	// carried in the header for the consumer's broad-phase culling.
	SphereRadius float32

	Index *Octree
}

// PrismVertices recovers the three base vertices of prism i.
func (m *Mesh) PrismVertices(i int) (v1, v2, v3 math.Vec3) {
	pr := m.Prisms[i]
	v1 = m.Positions[pr.PosIndex]
	fnrm := m.Normals[pr.FaceNormIndex]
	enrm1 := m.Normals[pr.EdgeNormIndex[0]]
	enrm2 := m.Normals[pr.EdgeNormIndex[1]]
	enrm3 := m.Normals[pr.EdgeNormIndex[2]]
	v2, v3 = prismVertices(v1, fnrm, enrm1, enrm2, enrm3, pr.Length)
	return v1, v2, v3
}

// PrismAABB returns the bounding box of prism i including the thickness
// extrusion along the face normal.
func (m *Mesh) PrismAABB(i int) math.AABB {
	v1, v2, v3 := m.PrismVertices(i)
	ext := m.Normals[m.Prisms[i].FaceNormIndex].Scale(m.Thickness)
	box := math.NewAABB(v1, v2).Extend(v3)
	box = box.Extend(v1.Add(ext)).Extend(v2.Add(ext)).Extend(v3.Add(ext))
	return box
}

// BoundingBox returns the bounding box of the whole mesh, or a zero box for
// an empty mesh.
func (m *Mesh) BoundingBox() math.AABB {
	if len(m.Prisms) == 0 {
		return math.AABB{}
	}
	box := m.PrismAABB(0)
	for i := 1; i < len(m.Prisms); i++ {
		b := m.PrismAABB(i)
		box = box.Extend(b.Min).Extend(b.Max)
	}
	return box
}

// Triangles extracts the editable triangle set from the mesh.
func (m *Mesh) Triangles() []Triangle {
	tris := make([]Triangle, len(m.Prisms))
	for i := range m.Prisms {
		v1, v2, v3 := m.PrismVertices(i)
		tris[i] = Triangle{V1: v1, V2: v2, V3: v3, Attribute: m.Prisms[i].Attribute}
	}
	return tris
}

// CountByType returns the number of prisms per base collision type.
func (m *Mesh) CountByType() map[CollisionType]int {
	counts := make(map[CollisionType]int)
	for _, pr := range m.Prisms {
		counts[pr.Type()]++
	}
	return counts
}

// DecodeFile decodes a KCL file from disk.
func DecodeFile(path string) (*Mesh, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading KCL file: %w", err)
	}
	return Decode(data)
}

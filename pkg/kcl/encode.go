package kcl

import (
	"fmt"
)

// Encode serializes the mesh back into the KCL file layout. A mesh without
// a spatial index gets one built with default options first. Encoding a
// well-formed mesh cannot fail; the only errors are tables outgrowing the
// format's 16-bit index space.
func (m *Mesh) Encode() ([]byte, error) {
	if len(m.Positions) > 0x10000 {
		return nil, errTableLimit("position")
	}
	if len(m.Normals) > 0x10000 {
		return nil, errTableLimit("normal")
	}
	// Prism indices in leaf lists must leave the terminator bit clear.
	if len(m.Prisms) > 0x8000 {
		return nil, errTableLimit("prism")
	}
	if err := m.validateIndices(); err != nil {
		return nil, err
	}
	if m.Index == nil {
		m.RebuildIndex(DefaultBuildOptions())
	}

	w := newWriter()

	var headerOffsets [4]int
	for i := range headerOffsets {
		headerOffsets[i] = w.reserveU32()
	}
	w.f32(m.Thickness)
	w.vec3(m.Index.Origin)
	w.u32(m.Index.XMask)
	w.u32(m.Index.YMask)
	w.u32(m.Index.ZMask)
	w.u32(m.Index.CoordShift)
	w.u32(m.Index.YShift)
	w.u32(m.Index.ZShift)
	w.f32(m.SphereRadius)
	if w.len() != headerSize {
		panic(fmt.Sprintf("kcl: header is %d bytes, want %d", w.len(), headerSize))
	}

	w.patchU32(headerOffsets[0], uint32(w.len()))
	for _, v := range m.Positions {
		w.vec3(v)
	}

	w.patchU32(headerOffsets[1], uint32(w.len()))
	for _, v := range m.Normals {
		w.vec3(v)
	}

	// The stored prism offset points one record-length before the table.
	w.patchU32(headerOffsets[2], uint32(w.len()-prismOffsetBias))
	for _, pr := range m.Prisms {
		w.f32(pr.Length)
		w.u16(pr.PosIndex)
		w.u16(pr.FaceNormIndex)
		for _, ni := range pr.EdgeNormIndex {
			w.u16(ni)
		}
		w.u16(pr.Attribute)
	}

	w.patchU32(headerOffsets[3], uint32(w.len()))
	encodeOctree(w, m.Index)

	return w.bytes(), nil
}

package kcl

import (
	"fmt"
)

// Decode parses a KCL collision file from raw bytes. Decode errors are
// fatal to the whole call: a mesh is either returned complete and
// validated or not at all.
func Decode(data []byte) (*Mesh, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d byte header", ErrTruncatedData, len(data))
	}

	c := newCursor(data)
	var offsets [4]uint32
	for i := range offsets {
		v, err := c.u32()
		if err != nil {
			return nil, err
		}
		offsets[i] = v
	}

	thickness, err := c.f32()
	if err != nil {
		return nil, err
	}
	origin, err := c.vec3()
	if err != nil {
		return nil, err
	}
	var masks, shifts [3]uint32
	for i := range masks {
		if masks[i], err = c.u32(); err != nil {
			return nil, err
		}
	}
	for i := range shifts {
		if shifts[i], err = c.u32(); err != nil {
			return nil, err
		}
	}
	sphereRadius, err := c.f32()
	if err != nil {
		return nil, err
	}

	posOff := int(offsets[0])
	nrmOff := int(offsets[1])
	prismOff := int(offsets[2]) + prismOffsetBias
	blockOff := int(offsets[3])

	if posOff < headerSize || nrmOff < posOff || prismOff < nrmOff || blockOff < prismOff {
		return nil, fmt.Errorf("%w: section offsets out of order", ErrMalformedTable)
	}
	if blockOff > len(data) {
		return nil, fmt.Errorf("%w: sections end at 0x%X in 0x%X bytes", ErrTruncatedData, blockOff, len(data))
	}

	m := &Mesh{Thickness: thickness, SphereRadius: sphereRadius}

	if err := c.seek(posOff); err != nil {
		return nil, err
	}
	count, err := tableRows(nrmOff-posOff, vectorStride, "position")
	if err != nil {
		return nil, err
	}
	for i := 0; i < count; i++ {
		v, err := c.vec3()
		if err != nil {
			return nil, err
		}
		m.Positions = append(m.Positions, v)
	}

	if err := c.seek(nrmOff); err != nil {
		return nil, err
	}
	count, err = tableRows(prismOff-nrmOff, vectorStride, "normal")
	if err != nil {
		return nil, err
	}
	for i := 0; i < count; i++ {
		v, err := c.vec3()
		if err != nil {
			return nil, err
		}
		m.Normals = append(m.Normals, v)
	}

	if err := c.seek(prismOff); err != nil {
		return nil, err
	}
	count, err = tableRows(blockOff-prismOff, prismStride, "prism")
	if err != nil {
		return nil, err
	}
	for i := 0; i < count; i++ {
		pr, err := decodePrism(c)
		if err != nil {
			return nil, fmt.Errorf("prism %d: %w", i, err)
		}
		m.Prisms = append(m.Prisms, pr)
	}

	if err := m.validateIndices(); err != nil {
		return nil, err
	}

	m.Index, err = decodeOctree(data[blockOff:], origin,
		masks[0], masks[1], masks[2],
		shifts[0], shifts[1], shifts[2],
		len(m.Prisms))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// tableRows derives a row count from a section length, rejecting lengths
// that are not a whole number of rows.
func tableRows(length, stride int, table string) (int, error) {
	if length < 0 || length%stride != 0 {
		return 0, fmt.Errorf("%w: %s section length %d not a multiple of %d", ErrMalformedTable, table, length, stride)
	}
	return length / stride, nil
}

func decodePrism(c *cursor) (Prism, error) {
	var pr Prism
	var err error
	if pr.Length, err = c.f32(); err != nil {
		return Prism{}, err
	}
	if pr.PosIndex, err = c.u16(); err != nil {
		return Prism{}, err
	}
	if pr.FaceNormIndex, err = c.u16(); err != nil {
		return Prism{}, err
	}
	for i := range pr.EdgeNormIndex {
		if pr.EdgeNormIndex[i], err = c.u16(); err != nil {
			return Prism{}, err
		}
	}
	if pr.Attribute, err = c.u16(); err != nil {
		return Prism{}, err
	}
	return pr, nil
}

// validateIndices checks every prism reference against its table so the
// caller is never handed a mesh with dangling indices.
func (m *Mesh) validateIndices() error {
	for i, pr := range m.Prisms {
		if int(pr.PosIndex) >= len(m.Positions) {
			return fmt.Errorf("%w: prism %d position %d of %d", ErrDanglingIndex, i, pr.PosIndex, len(m.Positions))
		}
		if int(pr.FaceNormIndex) >= len(m.Normals) {
			return fmt.Errorf("%w: prism %d face normal %d of %d", ErrDanglingIndex, i, pr.FaceNormIndex, len(m.Normals))
		}
		for _, ni := range pr.EdgeNormIndex {
			if int(ni) >= len(m.Normals) {
				return fmt.Errorf("%w: prism %d edge normal %d of %d", ErrDanglingIndex, i, ni, len(m.Normals))
			}
		}
	}
	return nil
}

package kcl

import (
	"github.com/Faultbox/kcltool/pkg/math"
)

// containEpsilon keeps points sitting exactly on a prism boundary inside,
// so containment is inclusive and stable across cell-split planes.
const containEpsilon = 1e-3

// prismVertices recovers the second and third vertices of a prism from its
// stored vertex, face normal, edge normals, and length scalar.
func prismVertices(v1, fnrm, enrm1, enrm2, enrm3 math.Vec3, length float32) (v2, v3 math.Vec3) {
	crossA := enrm1.Cross(fnrm)
	crossB := enrm2.Cross(fnrm)
	v2 = v1.Add(crossB.Scale(length / crossB.Dot(enrm3)))
	v3 = v1.Add(crossA.Scale(length / crossA.Dot(enrm3)))
	return v2, v3
}

// prismGeometry derives the stored prism fields from three vertices:
// the face normal, two inward edge normals anchored at v1, an outward edge
// normal for the far edge, and the length scalar bounding the prism along
// it. Returns ok=false for degenerate (zero-area) triangles.
func prismGeometry(v1, v2, v3 math.Vec3) (fnrm, enrm1, enrm2, enrm3 math.Vec3, length float32, ok bool) {
	e2 := v2.Sub(v1)
	e3 := v3.Sub(v1)
	n := e2.Cross(e3)
	if n.Length() == 0 {
		return fnrm, enrm1, enrm2, enrm3, 0, false
	}
	fnrm = n.Normalize()
	enrm1 = e3.Cross(fnrm).Normalize()
	enrm2 = fnrm.Cross(e2).Normalize()
	enrm3 = fnrm.Cross(v2.Sub(v3)).Normalize()
	length = e2.Dot(enrm3)
	if length < 0 {
		enrm3 = enrm3.Scale(-1)
		length = -length
	}
	return fnrm, enrm1, enrm2, enrm3, length, true
}

// PrismContains reports whether point p lies inside the prism volume of
// prism i: on the inward side of all three edge half-planes, within the
// length bound of the far edge, and between the base plane and the plane
// one thickness along the face normal. Boundary points count as inside.
func (m *Mesh) PrismContains(i int, p math.Vec3) bool {
	pr := m.Prisms[i]
	v1 := m.Positions[pr.PosIndex]
	fnrm := m.Normals[pr.FaceNormIndex]
	enrm1 := m.Normals[pr.EdgeNormIndex[0]]
	enrm2 := m.Normals[pr.EdgeNormIndex[1]]
	enrm3 := m.Normals[pr.EdgeNormIndex[2]]

	u := p.Sub(v1)
	if u.Dot(enrm1) < -containEpsilon {
		return false
	}
	if u.Dot(enrm2) < -containEpsilon {
		return false
	}
	if pr.Length-u.Dot(enrm3) < -containEpsilon {
		return false
	}
	d := u.Dot(fnrm)
	return d >= -containEpsilon && d <= m.Thickness+containEpsilon
}

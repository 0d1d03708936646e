package kcl

import (
	"slices"

	"github.com/Faultbox/kcltool/pkg/math"
)

// Hit describes the collision surface found by NearestSurface.
type Hit struct {
	// Prism is the index of the hit prism in the mesh's prism table.
	Prism int

	// Point is the query point projected onto the prism's base plane.
	Point math.Vec3

	// Normal is the prism's face normal.
	Normal math.Vec3

	// Distance is the signed distance from the query point to the base
	// plane along the face normal.
	Distance float32
}

// candidates returns the deduplicated, ascending prism indices of the leaf
// containing p. Without an index it falls back to the whole table.
func (m *Mesh) candidates(p math.Vec3) []int {
	if m.Index == nil {
		out := make([]int, len(m.Prisms))
		for i := range out {
			out[i] = i
		}
		return out
	}
	leaf := m.Index.Lookup(p)
	if len(leaf) == 0 {
		return nil
	}
	out := make([]int, len(leaf))
	for i, v := range leaf {
		out[i] = int(v)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// PrismsContaining returns the indices of every prism whose volume contains
// p, in ascending order. An empty result is a normal outcome, not an error.
func (m *Mesh) PrismsContaining(p math.Vec3) []int {
	var out []int
	for _, i := range m.candidates(p) {
		if m.PrismContains(i, p) {
			out = append(out, i)
		}
	}
	return out
}

// NearestSurface finds the closest collision surface to p among the prisms
// of p's leaf whose in-plane extent covers p and whose face opposes dir
// (pass the zero vector to accept any facing). Editor interactions use it
// to drop a dragged point onto the mesh below. The second return is false
// when no surface qualifies.
func (m *Mesh) NearestSurface(p, dir math.Vec3) (Hit, bool) {
	best := Hit{Prism: -1}
	for _, i := range m.candidates(p) {
		pr := m.Prisms[i]
		v1 := m.Positions[pr.PosIndex]
		fnrm := m.Normals[pr.FaceNormIndex]

		u := p.Sub(v1)
		if u.Dot(m.Normals[pr.EdgeNormIndex[0]]) < -containEpsilon {
			continue
		}
		if u.Dot(m.Normals[pr.EdgeNormIndex[1]]) < -containEpsilon {
			continue
		}
		if pr.Length-u.Dot(m.Normals[pr.EdgeNormIndex[2]]) < -containEpsilon {
			continue
		}
		d := u.Dot(fnrm)
		if d < -containEpsilon {
			continue
		}
		if dir != (math.Vec3{}) && fnrm.Dot(dir) >= 0 {
			continue
		}
		if best.Prism >= 0 && d >= best.Distance {
			continue
		}
		best = Hit{
			Prism:    i,
			Point:    p.Sub(fnrm.Scale(d)),
			Normal:   fnrm,
			Distance: d,
		}
	}
	return best, best.Prism >= 0
}

package kcl

import (
	"encoding/binary"
	"errors"
	"slices"
	"testing"

	"github.com/Faultbox/kcltool/pkg/math"
)

func encodeTestMesh(t *testing.T, tris []Triangle, thickness float32) (*Mesh, []byte) {
	t.Helper()
	m := mustBuild(t, tris, thickness)
	data, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return m, data
}

func sameTables(t *testing.T, a, b *Mesh) {
	t.Helper()
	if !slices.Equal(a.Positions, b.Positions) {
		t.Errorf("position tables differ: %v vs %v", a.Positions, b.Positions)
	}
	if !slices.Equal(a.Normals, b.Normals) {
		t.Errorf("normal tables differ: %v vs %v", a.Normals, b.Normals)
	}
	if !slices.Equal(a.Prisms, b.Prisms) {
		t.Errorf("prism tables differ: %v vs %v", a.Prisms, b.Prisms)
	}
	if a.Thickness != b.Thickness {
		t.Errorf("thickness differs: %v vs %v", a.Thickness, b.Thickness)
	}
}

func TestRoundTrip(t *testing.T) {
	src, data := encodeTestMesh(t, gridFloor(4, 100), 1.5)

	m, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	sameTables(t, src, m)

	// Re-encoding the decoded mesh and decoding again must preserve the
	// geometry tables byte-for-value; the spatial index bytes need not
	// match since many tree shapes encode the same mesh.
	data2, err := m.Encode()
	if err != nil {
		t.Fatalf("re-Encode failed: %v", err)
	}
	m2, err := Decode(data2)
	if err != nil {
		t.Fatalf("re-Decode failed: %v", err)
	}
	sameTables(t, m, m2)
}

func TestRoundTripAttributes(t *testing.T) {
	tris := gridFloor(2, 100)
	for i := range tris {
		tris[i].Attribute = uint16(TypeBoostPanel) | 0x0720 // variant bits ride along
	}
	_, data := encodeTestMesh(t, tris, 1.0)
	m, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	for i, pr := range m.Prisms {
		if pr.Type() != TypeBoostPanel {
			t.Errorf("prism %d type = %v, want Boost Panel", i, pr.Type())
		}
		if pr.Attribute != uint16(TypeBoostPanel)|0x0720 {
			t.Errorf("prism %d attribute = %04X, variant bits lost", i, pr.Attribute)
		}
	}
}

func TestRoundTripLargeExtents(t *testing.T) {
	// Track-sized geometry: with the default root cell width the raw
	// per-axis cell counts would overflow the decoder's root-grid cap, so
	// the builder has to coarsen the grid. The output must decode.
	far := floorTriangle()
	off := math.Vec3{X: 140000, Y: 70000, Z: 70000}
	far.V1 = far.V1.Add(off)
	far.V2 = far.V2.Add(off)
	far.V3 = far.V3.Add(off)
	src, data := encodeTestMesh(t, []Triangle{floorTriangle(), far}, 1.0)

	m, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode of freshly encoded mesh failed: %v", err)
	}
	sameTables(t, src, m)

	nx, ny, nz := m.Index.RootDims()
	if n := nx * ny * nz; n > 1<<21 {
		t.Errorf("root grid has %d cells, want <= 2^21", n)
	}
	if got := m.PrismsContaining(math.Vec3{X: 3, Y: 0.4, Z: 3}); !intSlicesEqual(got, []int{0}) {
		t.Errorf("near-origin query = %v, want [0]", got)
	}
	if got := m.PrismsContaining(off.Add(math.Vec3{X: 3, Y: 0.4, Z: 3})); !intSlicesEqual(got, []int{1}) {
		t.Errorf("far query = %v, want [1]", got)
	}
}

func TestRoundTripEmptyMesh(t *testing.T) {
	_, data := encodeTestMesh(t, nil, 1.0)
	m, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode of empty mesh failed: %v", err)
	}
	if len(m.Prisms) != 0 || len(m.Positions) != 0 || len(m.Normals) != 0 {
		t.Errorf("empty mesh round trip grew tables: %d/%d/%d",
			len(m.Positions), len(m.Normals), len(m.Prisms))
	}
	if got := m.PrismsContaining(math.Vec3{}); len(got) != 0 {
		t.Errorf("query on empty mesh = %v, want empty", got)
	}
}

func TestDecodedMeshAnswersQueries(t *testing.T) {
	_, data := encodeTestMesh(t, []Triangle{floorTriangle()}, 1.0)
	m, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got := m.PrismsContaining(math.Vec3{X: 3, Y: 0.4, Z: 3}); !intSlicesEqual(got, []int{0}) {
		t.Errorf("decoded mesh query = %v, want [0]", got)
	}
}

func TestDecodeTruncatedAtEveryBoundary(t *testing.T) {
	_, data := encodeTestMesh(t, gridFloor(2, 100), 1.0)

	posOff := binary.BigEndian.Uint32(data[0x00:])
	nrmOff := binary.BigEndian.Uint32(data[0x04:])
	prismOff := binary.BigEndian.Uint32(data[0x08:]) + prismOffsetBias
	blockOff := binary.BigEndian.Uint32(data[0x0C:])

	cuts := []struct {
		name string
		at   int
	}{
		{"empty", 0},
		{"mid header", headerSize - 4},
		{"position table", int(posOff) + 5},
		{"normal table", int(nrmOff) + 5},
		{"prism table", int(prismOff) + 5},
		{"index section start", int(blockOff)},
		{"index section body", int(blockOff) + 2},
	}
	for _, tc := range cuts {
		_, err := Decode(data[:tc.at])
		if !errors.Is(err, ErrTruncatedData) {
			t.Errorf("%s (cut at %d): Decode = %v, want ErrTruncatedData", tc.name, tc.at, err)
		}
	}
}

func TestDecodeMisorderedSections(t *testing.T) {
	_, data := encodeTestMesh(t, []Triangle{floorTriangle()}, 1.0)
	bad := slices.Clone(data)
	// Swap position and normal offsets so the sections run backwards.
	copy(bad[0x00:0x04], data[0x04:0x08])
	copy(bad[0x04:0x08], data[0x00:0x04])
	if _, err := Decode(bad); !errors.Is(err, ErrMalformedTable) {
		t.Errorf("Decode = %v, want ErrMalformedTable", err)
	}
}

func TestDecodeMisalignedTable(t *testing.T) {
	_, data := encodeTestMesh(t, []Triangle{floorTriangle()}, 1.0)
	bad := slices.Clone(data)
	nrmOff := binary.BigEndian.Uint32(data[0x04:])
	// A normal-table offset 2 bytes late leaves a position section that
	// is no longer a whole number of rows.
	binary.BigEndian.PutUint32(bad[0x04:], nrmOff+2)
	if _, err := Decode(bad); !errors.Is(err, ErrMalformedTable) {
		t.Errorf("Decode = %v, want ErrMalformedTable", err)
	}
}

func TestDecodeDanglingIndex(t *testing.T) {
	_, data := encodeTestMesh(t, []Triangle{floorTriangle()}, 1.0)
	bad := slices.Clone(data)
	prismOff := binary.BigEndian.Uint32(data[0x08:]) + prismOffsetBias
	// Patch the first prism's position index far past the table.
	binary.BigEndian.PutUint16(bad[prismOff+4:], 0xFEED)
	if _, err := Decode(bad); !errors.Is(err, ErrDanglingIndex) {
		t.Errorf("Decode = %v, want ErrDanglingIndex", err)
	}
}

func TestDecodeCorruptIndexHeader(t *testing.T) {
	_, data := encodeTestMesh(t, []Triangle{floorTriangle()}, 1.0)
	bad := slices.Clone(data)
	// Zero the x-axis mask; the shifts no longer agree with it.
	binary.BigEndian.PutUint32(bad[0x20:], 0)
	if _, err := Decode(bad); !errors.Is(err, ErrCorruptIndex) {
		t.Errorf("Decode = %v, want ErrCorruptIndex", err)
	}
}

func TestDecodeHeaderFields(t *testing.T) {
	src, data := encodeTestMesh(t, gridFloor(2, 100), 2.5)
	m, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if m.Thickness != 2.5 {
		t.Errorf("thickness = %v, want 2.5", m.Thickness)
	}
	if m.SphereRadius != src.SphereRadius {
		t.Errorf("sphere radius = %v, want %v", m.SphereRadius, src.SphereRadius)
	}
	if m.Index.Origin != src.Index.Origin {
		t.Errorf("origin = %v, want %v", m.Index.Origin, src.Index.Origin)
	}
}

func TestEncodeDeduplicatesTables(t *testing.T) {
	// Adjacent grid triangles share vertices and normals; the encoder
	// must intern them rather than emit one row per use.
	m := mustBuild(t, gridFloor(4, 100), 1.0)
	if len(m.Prisms) != 32 {
		t.Fatalf("prism count = %d, want 32", len(m.Prisms))
	}
	if len(m.Positions) >= 32 {
		t.Errorf("position table has %d rows, expected shared vertices", len(m.Positions))
	}
	// All face normals are +Y; edge normals repeat across the grid.
	if len(m.Normals) >= 32 {
		t.Errorf("normal table has %d rows, expected shared normals", len(m.Normals))
	}
}

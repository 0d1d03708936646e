package math

import "testing"

func TestNewAABBSwapsCorners(t *testing.T) {
	b := NewAABB(Vec3{5, 0, 2}, Vec3{1, 3, -2})
	if b.Min != (Vec3{1, 0, -2}) || b.Max != (Vec3{5, 3, 2}) {
		t.Errorf("NewAABB() = %+v", b)
	}
}

func TestAABBExtend(t *testing.T) {
	b := NewAABB(Vec3{0, 0, 0}, Vec3{1, 1, 1})
	b = b.Extend(Vec3{2, -1, 0.5})
	if b.Min != (Vec3{0, -1, 0}) || b.Max != (Vec3{2, 1, 1}) {
		t.Errorf("AABB.Extend() = %+v", b)
	}
}

func TestAABBContains(t *testing.T) {
	b := NewAABB(Vec3{0, 0, 0}, Vec3{10, 10, 10})

	tests := []struct {
		p    Vec3
		want bool
	}{
		{Vec3{5, 5, 5}, true},
		{Vec3{0, 0, 0}, true},    // boundary inclusive
		{Vec3{10, 10, 10}, true}, // boundary inclusive
		{Vec3{-0.1, 5, 5}, false},
		{Vec3{5, 10.1, 5}, false},
	}
	for _, tc := range tests {
		if got := b.Contains(tc.p); got != tc.want {
			t.Errorf("Contains(%v) = %v, want %v", tc.p, got, tc.want)
		}
	}
}

func TestAABBOverlaps(t *testing.T) {
	a := NewAABB(Vec3{0, 0, 0}, Vec3{5, 5, 5})

	tests := []struct {
		b    AABB
		want bool
	}{
		{NewAABB(Vec3{3, 3, 3}, Vec3{8, 8, 8}), true},
		{NewAABB(Vec3{5, 0, 0}, Vec3{9, 5, 5}), true}, // touching faces overlap
		{NewAABB(Vec3{6, 0, 0}, Vec3{9, 5, 5}), false},
		{NewAABB(Vec3{0, 0, 5.5}, Vec3{5, 5, 9}), false},
	}
	for _, tc := range tests {
		if got := a.Overlaps(tc.b); got != tc.want {
			t.Errorf("Overlaps(%+v) = %v, want %v", tc.b, got, tc.want)
		}
	}
}

func TestAABBCenterSize(t *testing.T) {
	b := NewAABB(Vec3{0, 2, -4}, Vec3{4, 6, 4})
	if got := b.Center(); got != (Vec3{2, 4, 0}) {
		t.Errorf("AABB.Center() = %v", got)
	}
	if got := b.Size(); got != (Vec3{4, 4, 8}) {
		t.Errorf("AABB.Size() = %v", got)
	}
}

func TestAABBInflate(t *testing.T) {
	b := NewAABB(Vec3{0, 0, 0}, Vec3{1, 1, 1}).Inflate(0.5)
	if b.Min != (Vec3{-0.5, -0.5, -0.5}) || b.Max != (Vec3{1.5, 1.5, 1.5}) {
		t.Errorf("AABB.Inflate() = %+v", b)
	}
}

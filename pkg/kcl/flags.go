package kcl

import "fmt"

// CollisionType is the base collision type of a prism, stored in the low
// five bits of its attribute flags. The remaining bits carry variant data
// (sound, camera, trickability) that this package passes through untouched.
type CollisionType uint16

// baseTypeMask extracts the base type from the attribute flags.
const baseTypeMask = 0x1F

// Base collision types.
const (
	TypeRoad CollisionType = iota
	TypeSlipperyRoad
	TypeWeakOffRoad
	TypeOffRoad
	TypeHeavyOffRoad
	TypeSlipperyRoad2
	TypeBoostPanel
	TypeBoostRamp
	TypeJumpPad
	TypeItemRoad
	TypeSolidFall
	TypeMovingWater
	TypeWall
	TypeInvisibleWall
	TypeItemWall
	TypeWall2
	TypeFallBoundary
	TypeCannonTrigger
	TypeForceRecalculation
	TypeHalfPipeRamp
	TypePlayerOnlyWall
	TypeMovingRoad
	TypeStickyRoad
	TypeRoad2
	TypeSoundTrigger
	TypeWeakWall
	TypeEffectTrigger
	TypeItemStateModifier
	TypeHalfPipeInvisibleWall
	TypeRotatingRoad
	TypeSpecialWall
	TypeInvisibleWall2
)

var collisionTypeNames = [32]string{
	"Road",
	"Slippery Road",
	"Weak Off-Road",
	"Off-Road",
	"Heavy Off-Road",
	"Slippery Road 2",
	"Boost Panel",
	"Boost Ramp",
	"Jump Pad",
	"Item Road",
	"Solid Fall",
	"Moving Water",
	"Wall",
	"Invisible Wall",
	"Item Wall",
	"Wall 2",
	"Fall Boundary",
	"Cannon Trigger",
	"Force Recalculation",
	"Half-Pipe Ramp",
	"Player-Only Wall",
	"Moving Road",
	"Sticky Road",
	"Road 2",
	"Sound Trigger",
	"Weak Wall",
	"Effect Trigger",
	"Item State Modifier",
	"Half-Pipe Invisible Wall",
	"Rotating Road",
	"Special Wall",
	"Invisible Wall 2",
}

// String returns a human-readable type name.
func (t CollisionType) String() string {
	if int(t) < len(collisionTypeNames) {
		return collisionTypeNames[t]
	}
	return fmt.Sprintf("Unknown(%d)", uint16(t))
}

// IsRoad returns true for drivable surface types.
func (t CollisionType) IsRoad() bool {
	switch t {
	case TypeRoad, TypeSlipperyRoad, TypeWeakOffRoad, TypeOffRoad,
		TypeHeavyOffRoad, TypeSlipperyRoad2, TypeBoostPanel, TypeBoostRamp,
		TypeJumpPad, TypeItemRoad, TypeMovingRoad, TypeStickyRoad,
		TypeRoad2, TypeRotatingRoad, TypeHalfPipeRamp:
		return true
	}
	return false
}

// IsWall returns true for types that block movement.
func (t CollisionType) IsWall() bool {
	switch t {
	case TypeWall, TypeInvisibleWall, TypeItemWall, TypeWall2,
		TypePlayerOnlyWall, TypeWeakWall, TypeSpecialWall,
		TypeHalfPipeInvisibleWall, TypeInvisibleWall2:
		return true
	}
	return false
}

// IsTrigger returns true for non-solid trigger volumes.
func (t CollisionType) IsTrigger() bool {
	switch t {
	case TypeFallBoundary, TypeCannonTrigger, TypeForceRecalculation,
		TypeSoundTrigger, TypeEffectTrigger, TypeItemStateModifier:
		return true
	}
	return false
}

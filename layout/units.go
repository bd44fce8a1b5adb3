package layout

import (
	"strconv"
	"strings"
)

// This file defines unit-safe lengths used when geometry leaves the px-based
// grid, e.g. for the PDF wireframe preview.

// Unit represents the original unit of a length value.
type Unit int

const (
	UnitPX Unit = iota // CSS pixels, 96 per inch
	UnitMM             // millimeters
	UnitCM             // centimeters
	UnitIN             // inches
	UnitPT             // points
)

// Conversion constants.
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
	PxToMm = 25.4 / 96
)

// String returns the CSS suffix for u.
func (u Unit) String() string {
	switch u {
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitIN:
		return "in"
	case UnitPT:
		return "pt"
	default:
		return "px"
	}
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// ToMM converts the length to millimeters.
func (l Length) ToMM() float64 {
	switch l.Unit {
	case UnitMM:
		return l.Value
	case UnitCM:
		return l.Value * 10
	case UnitIN:
		return l.Value * 25.4
	case UnitPT:
		return l.Value * PtToMm
	default:
		return l.Value * PxToMm
	}
}

// String formats the length as CSS text, e.g. "12pt".
func (l Length) String() string {
	return strconv.FormatFloat(l.Value, 'f', -1, 64) + l.Unit.String()
}

// Px is shorthand for a pixel length.
func Px(v float64) Length { return Length{Value: v, Unit: UnitPX} }

// ParseLength parses strings like "12pt" or "10"; a missing unit means px.
func ParseLength(value string) (Length, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, false
	}
	unit := UnitPX
	num := v
	for _, suf := range []struct {
		s string
		u Unit
	}{{"px", UnitPX}, {"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}} {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, false
	}
	return Length{Value: f, Unit: unit}, true
}

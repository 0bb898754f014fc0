package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// This file defines unit-safe helpers for drawing lengths. Drawing units are
// millimeters; rich text sizes are points.

// Unit represents the unit a length was written in.
type Unit int

const (
	UnitNone Unit = iota // unit-less numbers, treated as drawing units
	UnitMM               // millimeters
	UnitCM               // centimeters
	UnitIN               // inches
	UnitPT               // points
)

// Conversion constants between pt and mm.
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
)

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
		return ""
	}
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func (l Length) IsZero() bool { return l.Value == 0 }

// ToMM converts the length to millimeters. Unit-less values are returned as-is.
func (l Length) ToMM() float64 {
	switch l.Unit {
	case UnitCM:
		return l.Value * 10
	case UnitIN:
		return l.Value * 25.4
	case UnitPT:
		return l.Value * PtToMm
	default:
		return l.Value
	}
}

// ToPT converts the length to points.
func (l Length) ToPT() float64 {
	if l.Unit == UnitPT {
		return l.Value
	}
	return l.ToMM() * MmToPt
}

func (l Length) String() string {
	return strconv.FormatFloat(l.Value, 'g', -1, 64) + l.Unit.String()
}

// ParseLength parses strings such as "10mm", "0.5in", "12pt" or "4".
func ParseLength(value string) (Length, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, nil
	}
	unit := UnitNone
	num := v
	for _, suf := range []struct {
		s string
		u Unit
	}{{"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}} {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, fmt.Errorf("无法解析长度 %q: %w", value, err)
	}
	return Length{Value: f, Unit: unit}, nil
}

// RichTextSize 返回富文本中字高对应的 pt 值。
func RichTextSize(height, factor float64) float64 {
	if factor <= 0 {
		factor = 1
	}
	return height * factor
}

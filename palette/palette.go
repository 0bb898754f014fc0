package palette

import (
	"fmt"
	"image/color"
	"math"
)

// Mode 区分颜色的来源：固定颜色、随层（ByLayer）、随块（ByBlock）或未设置。
type Mode int

const (
	Unset Mode = iota
	Fixed
	ByLayer
	ByBlock
)

// CAD 颜色索引中的特殊值。
const (
	IndexByBlock = 0
	IndexByLayer = 256
)

// Color 是带来源信息的 RGB 颜色；只有 Mode == Fixed 时 RGBA 才有意义。
type Color struct {
	RGBA color.RGBA `json:"rgba"`
	Mode Mode       `json:"mode"`
}

// RGB 创建固定颜色。
func RGB(r, g, b uint8) Color {
	return Color{RGBA: color.RGBA{R: r, G: g, B: b, A: 0xff}, Mode: Fixed}
}

// IsValid 表示颜色是否被显式设置过。
func (c Color) IsValid() bool { return c.Mode != Unset }

// IsFixed 表示颜色是否为固定 RGB 值（不随层/随块）。
func (c Color) IsFixed() bool { return c.Mode == Fixed }

// Hex 返回 #rrggbb 形式；非固定颜色返回空串。
func (c Color) Hex() string {
	if c.Mode != Fixed {
		return ""
	}
	return fmt.Sprintf("#%02x%02x%02x", c.RGBA.R, c.RGBA.G, c.RGBA.B)
}

// CSS 返回适合 style 属性的颜色值，随层/随块颜色交给外层样式决定。
func (c Color) CSS() string {
	switch c.Mode {
	case Fixed:
		return c.Hex()
	case ByLayer, ByBlock:
		return "inherit"
	default:
		return "initial"
	}
}

func (c Color) String() string {
	switch c.Mode {
	case Fixed:
		return c.Hex()
	case ByLayer:
		return "ByLayer"
	case ByBlock:
		return "ByBlock"
	default:
		return "unset"
	}
}

// Palette 把 CAD 颜色指令解析为颜色。
type Palette interface {
	IndexedColor(index int) Color
	CustomColor(value int) Color
}

// ACI 是标准 AutoCAD Color Index 调色板。
type ACI struct{}

var _ Palette = ACI{}

// IndexedColor 解析 \C 指令的颜色索引，0 为随块，256 为随层，超出范围返回未设置。
func (ACI) IndexedColor(index int) Color {
	switch {
	case index == IndexByBlock:
		return Color{Mode: ByBlock}
	case index == IndexByLayer:
		return Color{Mode: ByLayer}
	case index > 0 && index < IndexByLayer:
		return aciTable[index]
	default:
		return Color{}
	}
}

// CustomColor 解析 \c 指令中的 24 位 0xRRGGBB 值。
func (ACI) CustomColor(value int) Color {
	if value < 0 {
		return Color{}
	}
	return RGB(uint8(value>>16), uint8(value>>8), uint8(value))
}

var aciTable = buildACI()

// buildACI generates the 256 entry index table: 1-9 are named colors,
// 10-249 are 24 hues with five brightness levels in full and half
// saturation, 250-255 are grays.
func buildACI() [256]Color {
	var t [256]Color
	named := []Color{
		{},
		RGB(255, 0, 0),
		RGB(255, 255, 0),
		RGB(0, 255, 0),
		RGB(0, 255, 255),
		RGB(0, 0, 255),
		RGB(255, 0, 255),
		RGB(255, 255, 255),
		RGB(128, 128, 128),
		RGB(192, 192, 192),
	}
	copy(t[:], named)

	values := []float64{1.0, 0.8, 0.6, 0.5, 0.3}
	for i := 10; i < 250; i++ {
		hue := float64((i-10)/10) * 15.0
		step := (i - 10) % 10
		v := values[step/2]
		s := 1.0
		if step%2 == 1 {
			s = 0.5
		}
		t[i] = hsv(hue, s, v)
	}

	grays := []uint8{51, 91, 132, 173, 214, 255}
	for i, g := range grays {
		t[250+i] = RGB(g, g, g)
	}
	return t
}

func hsv(h, s, v float64) Color {
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60.0, 2)-1))
	m := v - c
	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	to := func(f float64) uint8 { return uint8(math.Round((f + m) * 255)) }
	return RGB(to(r), to(g), to(b))
}

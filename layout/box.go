package layout

import (
	"math"

	"github.com/tdewolff/canvas"
)

// Box 是轴对齐包围盒。零值为无效（空）盒子，与任何盒子合并后即为对方。
type Box struct {
	MinX  float64 `json:"minX"`
	MinY  float64 `json:"minY"`
	MaxX  float64 `json:"maxX"`
	MaxY  float64 `json:"maxY"`
	Valid bool    `json:"valid"`
}

// NewBox 由两个角点创建盒子。
func NewBox(x0, y0, x1, y1 float64) Box {
	return Box{
		MinX:  math.Min(x0, x1),
		MinY:  math.Min(y0, y1),
		MaxX:  math.Max(x0, x1),
		MaxY:  math.Max(y0, y1),
		Valid: true,
	}
}

func (b Box) Width() float64 {
	if !b.Valid {
		return 0
	}
	return b.MaxX - b.MinX
}

func (b Box) Height() float64 {
	if !b.Valid {
		return 0
	}
	return b.MaxY - b.MinY
}

// Grow 返回同时包含 b 与 o 的盒子。
func (b Box) Grow(o Box) Box {
	if !o.Valid {
		return b
	}
	if !b.Valid {
		return o
	}
	return Box{
		MinX:  math.Min(b.MinX, o.MinX),
		MinY:  math.Min(b.MinY, o.MinY),
		MaxX:  math.Max(b.MaxX, o.MaxX),
		MaxY:  math.Max(b.MaxY, o.MaxY),
		Valid: true,
	}
}

// Translate 平移盒子。
func (b Box) Translate(dx, dy float64) Box {
	if !b.Valid {
		return b
	}
	return Box{MinX: b.MinX + dx, MinY: b.MinY + dy, MaxX: b.MaxX + dx, MaxY: b.MaxY + dy, Valid: true}
}

// Path 返回盒子的矩形轮廓。
func (b Box) Path() *canvas.Path {
	p := &canvas.Path{}
	if !b.Valid {
		return p
	}
	p.MoveTo(b.MinX, b.MinY)
	p.LineTo(b.MaxX, b.MinY)
	p.LineTo(b.MaxX, b.MaxY)
	p.LineTo(b.MinX, b.MaxY)
	p.Close()
	return p
}

func boxOf(p *canvas.Path) Box {
	if p == nil || p.Empty() {
		return Box{}
	}
	r := p.Bounds()
	return NewBox(r.X0, r.Y0, r.X1, r.Y1)
}

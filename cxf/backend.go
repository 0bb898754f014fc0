package cxf

import (
	"github.com/tdewolff/canvas"

	"github.com/ByLCY/mtext/internal/logging"
	"github.com/ByLCY/mtext/layout"
	"github.com/ByLCY/mtext/markup"
	"github.com/ByLCY/mtext/palette"
)

// 笔画字体不提供字体度量，统一使用固定的上下伸值。
const (
	Ascent  = 1.08
	Descent = -0.36
)

// Backend 用 CXF 笔画字体渲染文本段，实现 layout.StrokeBackend。
type Backend struct {
	reg *Registry
}

var _ layout.StrokeBackend = (*Backend)(nil)

// NewBackend 基于注册表创建笔画字体后端。
func NewBackend(reg *Registry) *Backend {
	return &Backend{reg: reg}
}

// IsStrokeFont 判断字体名能否解析为笔画字体（不考虑回退字体）。
func (b *Backend) IsStrokeFont(name string) bool {
	_, ok := b.reg.Get(name)
	return ok
}

// LetterSpacing 返回字体在单位高度下的字间距；未知字体返回 0。
func (b *Backend) LetterSpacing(name string) float64 {
	f, ok := b.reg.Get(name)
	if !ok {
		return 0
	}
	return f.LetterSpacing * Scale
}

// RenderRun 逐字符排列笔画字形。空格只前进词间距，并撤销紧邻的字间距；
// 缺失的字形用 '?' 代替，'?' 也缺失时跳过。
func (b *Backend) RenderRun(req layout.RunRequest) (layout.RunGlyphs, error) {
	font, err := b.reg.Resolve(req.Font.Name)
	if err != nil {
		return layout.RunGlyphs{}, err
	}
	letterSpacing := font.LetterSpacing * Scale
	wordSpacing := font.WordSpacing * Scale

	var out layout.RunGlyphs
	var color palette.Color
	cursor := 0.0
	gotLetterSpacing := false

	for i, ch := range []rune(req.Text) {
		if ch == ' ' || ch == markup.NBSP {
			if gotLetterSpacing {
				cursor -= letterSpacing
			}
			cursor += wordSpacing
			gotLetterSpacing = false
			continue
		}

		for _, f := range req.Formats {
			if f.Start == i && f.Length > 0 {
				color = f.Color
			}
		}

		g := font.Glyph(ch, req.Draft)
		if g == nil {
			logging.Logger().Debug("笔画字形缺失，使用 '?'", "font", font.Name, "char", string(ch))
			g = font.Glyph('?', req.Draft)
		}
		if g == nil {
			continue
		}

		p := g.Copy().Transform(canvas.Identity.Translate(cursor, 0).Scale(Scale, Scale))
		out.Paths = append(out.Paths, layout.Path{
			Path:       p,
			Color:      color,
			FixedColor: color.IsFixed(),
		})

		bounds := p.Bounds()
		cursor += bounds.X1 - bounds.X0 + letterSpacing
		gotLetterSpacing = true
	}

	out.Advance = cursor
	out.AdvanceNoSpacing = cursor - letterSpacing
	out.Ascent = Ascent
	out.Descent = Descent
	return out, nil
}

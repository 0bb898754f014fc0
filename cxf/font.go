package cxf

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
)

// CXF 字体以 9:1 的设计单位定义字形：大写字母高 9 个单位。
const (
	DesignHeight = 9.0
	Scale        = 1.0 / DesignHeight

	defaultLetterSpacing = 3.0
	defaultWordSpacing   = 6.75

	// 圆弧拆分为折线时每段的角度（度）
	arcStep      = 5.0
	draftArcStep = 15.0
)

type elementKind int

const (
	lineElement        elementKind = iota // x1,y1,x2,y2
	arcElement                            // cx,cy,r,a1,a2 逆时针
	reversedArcElement                    // cx,cy,r,a1,a2 顺时针
)

type element struct {
	kind elementKind
	args [5]float64
}

type glyph struct {
	elements []element
}

type glyphKey struct {
	ch    rune
	draft bool
}

// Font 是一个已解析的 CXF 笔画字体。字形按需转换为路径并缓存，可并发使用。
type Font struct {
	Name          string
	LetterSpacing float64 // 设计单位
	WordSpacing   float64 // 设计单位
	Meta          map[string]string

	glyphs map[rune]*glyph

	mu    sync.Mutex
	cache map[glyphKey]*canvas.Path
}

func newFont(name string) *Font {
	return &Font{
		Name:          name,
		LetterSpacing: defaultLetterSpacing,
		WordSpacing:   defaultWordSpacing,
		Meta:          map[string]string{},
		glyphs:        map[rune]*glyph{},
		cache:         map[glyphKey]*canvas.Path{},
	}
}

// setMeta 解析形如 "# LetterSpacing: 3.0" 的元数据行。
func (f *Font) setMeta(line string) {
	key, value, ok := strings.Cut(strings.TrimPrefix(line, "#"), ":")
	if !ok {
		return
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	f.Meta[key] = value
	switch key {
	case "Name":
		if value != "" {
			f.Name = value
		}
	case "LetterSpacing":
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			f.LetterSpacing = v
		}
	case "WordSpacing":
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			f.WordSpacing = v
		}
	}
}

// HasGlyph 报告字体是否定义了非空字形。
func (f *Font) HasGlyph(ch rune) bool {
	g, ok := f.glyphs[ch]
	return ok && len(g.elements) > 0
}

// Runes 返回字体定义的全部字符，按码位排序。
func (f *Font) Runes() []rune {
	out := make([]rune, 0, len(f.glyphs))
	for r := range f.glyphs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Glyph 返回字符在设计单位下的笔画路径；未定义或为空时返回 nil。
// 返回的路径被缓存共享，调用方变换前必须 Copy。
func (f *Font) Glyph(ch rune, draft bool) *canvas.Path {
	if !f.HasGlyph(ch) {
		return nil
	}
	key := glyphKey{ch: ch, draft: draft}
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.cache[key]; ok {
		return p
	}
	p := f.glyphs[ch].path(draft)
	f.cache[key] = p
	return p
}

func (g *glyph) path(draft bool) *canvas.Path {
	p := &canvas.Path{}
	for _, e := range g.elements {
		a := e.args
		switch e.kind {
		case lineElement:
			p.MoveTo(a[0], a[1])
			p.LineTo(a[2], a[3])
		case arcElement, reversedArcElement:
			flattenArc(p, a[0], a[1], a[2], a[3], a[4], e.kind == reversedArcElement, draft)
		}
	}
	return p
}

// flattenArc 把圆弧拆成折线。start == end 的逆时针圆弧视为整圆。
func flattenArc(p *canvas.Path, cx, cy, r, start, end float64, reversed, draft bool) {
	if reversed {
		if end >= start {
			end -= 360
		}
	} else if end <= start {
		end += 360
	}
	step := arcStep
	if draft {
		step = draftArcStep
	}
	n := int(math.Ceil(math.Abs(end-start) / step))
	if n < 1 {
		n = 1
	}
	for i := 0; i <= n; i++ {
		a := (start + (end-start)*float64(i)/float64(n)) * math.Pi / 180
		x, y := cx+r*math.Cos(a), cy+r*math.Sin(a)
		if i == 0 {
			p.MoveTo(x, y)
		} else {
			p.LineTo(x, y)
		}
	}
}

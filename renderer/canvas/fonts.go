package canvasrenderer

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/flopp/go-findfont"
	"github.com/tdewolff/canvas"
	"golang.org/x/text/cases"

	"github.com/ByLCY/mtext/fonts"
	"github.com/ByLCY/mtext/internal/logging"
	"github.com/ByLCY/mtext/layout"
	"github.com/ByLCY/mtext/palette"
)

// faceSize 是测量与取轮廓所用的字号（pt）。结果会归一化到大写 A 高为 1，字号只影响精度。
const faceSize = 100.0

// Resource can be provided either by Bytes or by Path.
type Resource struct {
	Bytes []byte
	Path  string
}

// Backend 用 TTF/OTF 轮廓字体渲染文本段，实现 layout.Backend。
// 字体按名称依次在注入字体、系统字体（可选）中查找，找不到时使用内置 Go 字体。
type Backend struct {
	fontBlobs   map[string][]byte // 按 fontKey 索引
	systemFonts bool

	fontMu sync.Mutex
	faces  map[string]*faceEntry
}

var _ layout.Backend = (*Backend)(nil)

// faceEntry 缓存一个字体样式的字面与归一化度量。
type faceEntry struct {
	mu      sync.Mutex // canvas 的字形整形不保证并发安全
	name    string
	face    *canvas.FontFace
	scale   float64 // 字体单位 -> 单位高度
	ascent  float64
	descent float64
}

// NewBackend 创建轮廓字体后端。fontsByName 为按字体名注入的字体资源。
func NewBackend(fontsByName map[string]Resource, systemFonts bool) *Backend {
	b := &Backend{
		fontBlobs:   map[string][]byte{},
		systemFonts: systemFonts,
		faces:       map[string]*faceEntry{},
	}
	for name, res := range fontsByName {
		if name == "" {
			continue
		}
		if len(res.Bytes) > 0 {
			b.fontBlobs[fontKey(name)] = res.Bytes
			continue
		}
		if res.Path != "" {
			data, err := os.ReadFile(res.Path)
			if err != nil {
				logging.Logger().Warn("读取字体文件失败", "font", name, "path", res.Path, "err", err)
				continue
			}
			b.fontBlobs[fontKey(name)] = data
		}
	}
	return b
}

// RenderRun 渲染一段文本。文本按颜色区间切分后分别取轮廓，AdvanceNoSpacing 与 Advance 相同。
func (b *Backend) RenderRun(req layout.RunRequest) (layout.RunGlyphs, error) {
	entry, err := b.ensureFace(req.Font)
	if err != nil {
		return layout.RunGlyphs{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	out := layout.RunGlyphs{Ascent: entry.ascent, Descent: entry.descent}
	cursor := 0.0
	for _, seg := range colorSegments([]rune(req.Text), req.Formats) {
		p, adv, err := entry.face.ToPath(seg.text)
		if err != nil {
			return layout.RunGlyphs{}, fmt.Errorf("字体 %s 生成轮廓失败: %w", entry.name, err)
		}
		if p != nil && !p.Empty() {
			out.Paths = append(out.Paths, layout.Path{
				Path:       p.Transform(canvas.Identity.Translate(cursor, 0).Scale(entry.scale, entry.scale)),
				Color:      seg.color,
				FixedColor: seg.color.IsFixed(),
				Fill:       true,
			})
		}
		cursor += adv * entry.scale
	}
	out.Advance = cursor
	out.AdvanceNoSpacing = cursor
	return out, nil
}

type segment struct {
	text  string
	color palette.Color
}

// colorSegments 按格式区间的起点切分文本；区间之外的字符沿用前一个颜色。
func colorSegments(text []rune, formats []layout.FormatRange) []segment {
	var segs []segment
	var color palette.Color
	start := 0
	for i := range text {
		next := color
		for _, f := range formats {
			if f.Start == i && f.Length > 0 {
				next = f.Color
			}
		}
		if next != color && i > start {
			segs = append(segs, segment{text: string(text[start:i]), color: color})
			start = i
		}
		color = next
	}
	if start < len(text) {
		segs = append(segs, segment{text: string(text[start:]), color: color})
	}
	return segs
}

func (b *Backend) ensureFace(spec layout.FontSpec) (*faceEntry, error) {
	key := fmt.Sprintf("%s|%t|%t", fontKey(spec.Name), spec.Bold, spec.Italic)
	b.fontMu.Lock()
	defer b.fontMu.Unlock()

	if entry, ok := b.faces[key]; ok {
		return entry, nil
	}

	style := fontStyle(spec.Bold, spec.Italic)
	name := spec.Name
	data, err := b.loadFontBytes(spec)
	if err != nil {
		logging.Logger().Warn("轮廓字体不可用，使用内置字体", "font", spec.Name, "err", err)
		name, data = fonts.FallbackOutline, fonts.Outline(spec.Bold, spec.Italic)
	}
	entry, err := newFaceEntry(name, data, style)
	if err != nil && name != fonts.FallbackOutline {
		logging.Logger().Warn("载入轮廓字体失败，使用内置字体", "font", spec.Name, "err", err)
		entry, err = newFaceEntry(fonts.FallbackOutline, fonts.Outline(spec.Bold, spec.Italic), style)
	}
	if err != nil {
		return nil, err
	}
	b.faces[key] = entry
	return entry, nil
}

func (b *Backend) loadFontBytes(spec layout.FontSpec) ([]byte, error) {
	key := fontKey(spec.Name)
	if key == "" {
		return nil, fmt.Errorf("未指定字体")
	}
	if data, ok := b.fontBlobs[key]; ok {
		return data, nil
	}
	if !b.systemFonts {
		return nil, fmt.Errorf("找不到字体 %s", spec.Name)
	}
	for _, candidate := range systemCandidates(spec) {
		path, err := findfont.Find(candidate)
		if err != nil {
			continue
		}
		logging.Logger().Debug("使用系统字体", "font", spec.Name, "path", path)
		return os.ReadFile(path)
	}
	return nil, fmt.Errorf("系统中找不到字体 %s", spec.Name)
}

// systemCandidates 返回按优先级排列的系统字体文件名。
func systemCandidates(spec layout.FontSpec) []string {
	name := strings.TrimSpace(spec.Name)
	var out []string
	switch {
	case spec.Bold && spec.Italic:
		out = append(out, name+"bi.ttf", name+" Bold Italic.ttf")
	case spec.Bold:
		out = append(out, name+"bd.ttf", name+" Bold.ttf")
	case spec.Italic:
		out = append(out, name+"i.ttf", name+" Italic.ttf")
	}
	return append(out, name+".ttf", name+".otf", name)
}

func newFaceEntry(name string, data []byte, style canvas.FontStyle) (*faceEntry, error) {
	family := canvas.NewFontFamily(name)
	if err := family.LoadFont(data, 0, style); err != nil {
		return nil, fmt.Errorf("载入字体 %s 失败: %w", name, err)
	}
	face := family.Face(faceSize, canvas.Black, style, canvas.FontNormal)

	// 以大写 A 的高度作为单位高度
	capHeight := face.Metrics().CapHeight
	if a, _, err := face.ToPath("A"); err == nil && !a.Empty() {
		capHeight = a.Bounds().Y1
	}
	if capHeight <= 0 {
		return nil, fmt.Errorf("字体 %s 缺少可用的度量", name)
	}
	entry := &faceEntry{
		name:   name,
		face:   face,
		scale:  1 / capHeight,
		ascent: face.Metrics().Ascent / capHeight,
	}
	if g, _, err := face.ToPath("g"); err == nil && !g.Empty() {
		entry.descent = g.Bounds().Y0 / capHeight
	} else {
		entry.descent = -face.Metrics().Descent / capHeight
	}
	return entry, nil
}

func fontStyle(bold, italic bool) canvas.FontStyle {
	style := canvas.FontRegular
	if bold {
		style = canvas.FontBold
	}
	if italic {
		style |= canvas.FontItalic
	}
	return style
}

// fontKey 规范化字体名：大小写折叠并去掉首尾空白。
func fontKey(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

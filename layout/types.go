package layout

import (
	"fmt"
	"strings"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/mtext/palette"
)

// 该文件定义输入文本对象与排版结果，供排版计算、渲染与调试 JSON 共用。

// Point 是绘图空间中的一个点。
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// VAlign 为文本块的垂直对齐方式。
type VAlign int

const (
	VAlignBase VAlign = iota
	VAlignTop
	VAlignMiddle
	VAlignBottom
)

var vAlignNames = []string{"base", "top", "middle", "bottom"}

func (v VAlign) String() string {
	if v < 0 || int(v) >= len(vAlignNames) {
		return fmt.Sprintf("VAlign(%d)", int(v))
	}
	return vAlignNames[v]
}

// MarshalText 实现 encoding.TextMarshaler。
func (v VAlign) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// UnmarshalText 实现 encoding.TextUnmarshaler，大小写不敏感。
func (v *VAlign) UnmarshalText(b []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	for i, name := range vAlignNames {
		if s == name {
			*v = VAlign(i)
			return nil
		}
	}
	return fmt.Errorf("未知的垂直对齐方式 %q", string(b))
}

// HAlign 为每一行的水平对齐方式。Align 与 Fit 按左对齐处理。
type HAlign int

const (
	HAlignLeft HAlign = iota
	HAlignCenter
	HAlignMid
	HAlignRight
	HAlignAlign
	HAlignFit
)

var hAlignNames = []string{"left", "center", "mid", "right", "align", "fit"}

func (h HAlign) String() string {
	if h < 0 || int(h) >= len(hAlignNames) {
		return fmt.Sprintf("HAlign(%d)", int(h))
	}
	return hAlignNames[h]
}

// MarshalText 实现 encoding.TextMarshaler。
func (h HAlign) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

// UnmarshalText 实现 encoding.TextUnmarshaler，大小写不敏感。
func (h *HAlign) UnmarshalText(b []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	for i, name := range hAlignNames {
		if s == name {
			*h = HAlign(i)
			return nil
		}
	}
	return fmt.Errorf("未知的水平对齐方式 %q", string(b))
}

// Document 是一次排版的输入：已经解析好的文本对象属性，调用期间不会被修改。
type Document struct {
	Text              string  `json:"text"`
	Position          Point   `json:"position"`       // 插入点，仅在简单文本 + Fit 对齐时使用
	AlignmentPoint    Point   `json:"alignmentPoint"` // 对齐锚点
	Height            float64 `json:"height"`
	VAlign            VAlign  `json:"valign"`
	HAlign            HAlign  `json:"halign"`
	FontName          string  `json:"fontName"`
	Bold              bool    `json:"bold"`
	Italic            bool    `json:"italic"`
	Angle             float64 `json:"angle"` // 弧度
	LineSpacingFactor float64 `json:"lineSpacingFactor"`
	Simple            bool    `json:"simple"` // 单行简单文本，不解析格式指令
}

// FontSpec 描述一个字体请求。
type FontSpec struct {
	Name   string `json:"name"`
	Bold   bool   `json:"bold"`
	Italic bool   `json:"italic"`
}

// FormatRange 为文本片段中 [Start, Start+Length) 范围（按 rune 计）指定前景色。
type FormatRange struct {
	Start  int           `json:"start"`
	Length int           `json:"length"`
	Color  palette.Color `json:"color"`
}

// Path 是一条已定位的轮廓路径。FeatureSize 为负值时表示合成的包围盒标记，而非真实字形。
type Path struct {
	Path        *canvas.Path  `json:"-"`
	Color       palette.Color `json:"color"`
	FixedColor  bool          `json:"fixedColor"`
	Fill        bool          `json:"fill"` // 轮廓字体填充；笔画字体只描边
	FeatureSize float64       `json:"featureSize"`
}

// IsBoundingBox 表示该路径是否为包围盒标记。
func (p Path) IsBoundingBox() bool { return p.FeatureSize < 0 }

// Bounds 返回路径包围盒。
func (p Path) Bounds() Box { return boxOf(p.Path) }

// Transformed 返回变换后的副本，不修改原路径。
func (p Path) Transformed(m canvas.Matrix) Path {
	if p.Path != nil {
		p.Path = p.Path.Copy().Transform(m)
	}
	return p
}

// RunRequest 是交给字形后端的一段同样式文本。
type RunRequest struct {
	Text    string
	Font    FontSpec
	Formats []FormatRange
	Draft   bool
}

// RunGlyphs 是后端按单位高度（大写 A 高为 1）返回的字形与度量，原点在基线左端。
type RunGlyphs struct {
	Paths            []Path
	Advance          float64
	AdvanceNoSpacing float64
	Ascent           float64
	Descent          float64
}

// StyleFrame 是当前生效的样式。块开始时复制栈顶，块结束时弹出。
type StyleFrame struct {
	Font      string        `json:"font"`
	Bold      bool          `json:"bold"`
	Italic    bool          `json:"italic"`
	Height    float64       `json:"height"`
	Stroke    bool          `json:"stroke"` // 使用笔画字体后端
	Color     palette.Color `json:"color"`
	Overline  bool          `json:"overline,omitempty"`
	Underline bool          `json:"underline,omitempty"`
	Width     float64       `json:"width,omitempty"`   // \W 宽度因子
	Oblique   float64       `json:"oblique,omitempty"` // \Q 倾斜角（度）
	Tracking  float64       `json:"tracking,omitempty"`
	Alignment int           `json:"alignment,omitempty"`
}

// FontSpec 返回该样式对应的字体请求。
func (f StyleFrame) FontSpec() FontSpec {
	return FontSpec{Name: f.Font, Bold: f.Bold, Italic: f.Italic}
}

// Run 记录一段已排版的文本：行内偏移、缩放高度与绝对前进宽度。
type Run struct {
	Text    string        `json:"text"`
	Style   StyleFrame    `json:"style"`
	X       float64       `json:"x"`
	Y       float64       `json:"y"`
	Scale   float64       `json:"scale"`
	Advance float64       `json:"advance"`
	Stacked bool          `json:"stacked,omitempty"`
	Formats []FormatRange `json:"formats,omitempty"`
}

// Line 表示排版后的一行。BoundingBox 已应用行变换，尚未应用全局变换。
type Line struct {
	Runs           []Run   `json:"runs"`
	MaxAscent      float64 `json:"maxAscent"`
	MinDescent     float64 `json:"minDescent"`
	Advance        float64 `json:"advance"`
	OffsetX        float64 `json:"offsetX"`
	Y              float64 `json:"y"`
	BoundingBox    Box     `json:"boundingBox"`
	LeadingSpaces  bool    `json:"leadingSpaces"`
	TrailingSpaces bool    `json:"trailingSpaces"`
}

// Result 保存一次排版的全部输出。
type Result struct {
	Paths              []Path        `json:"paths"`
	Lines              []Line        `json:"lines"`
	RichText           string        `json:"richText,omitempty"`
	Width              float64       `json:"width"`
	Height             float64       `json:"height"`
	BoundingBox        Box           `json:"boundingBox"`
	LeadingEmptyLines  bool          `json:"leadingEmptyLines"`
	TrailingEmptyLines bool          `json:"trailingEmptyLines"`
	Transform          canvas.Matrix `json:"-"`
}

// GlyphPaths 返回真实字形路径（不含包围盒标记）。
func (r *Result) GlyphPaths() []Path {
	out := make([]Path, 0, len(r.Paths))
	for _, p := range r.Paths {
		if !p.IsBoundingBox() {
			out = append(out, p)
		}
	}
	return out
}

package canvasrenderer

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"math"
	"strings"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"github.com/tdewolff/canvas/renderers/svg"

	"github.com/ByLCY/mtext/internal/logging"
	"github.com/ByLCY/mtext/layout"
	"github.com/ByLCY/mtext/palette"
	"github.com/ByLCY/mtext/renderer"
)

const (
	// 笔画线宽相对特征尺寸（行高）的比例与下限，单位 mm
	strokeWidthRatio = 0.06
	minStrokeWidth   = 0.1
	boxStrokeWidth   = 0.05
)

// Format 是输出文件格式。
type Format int

const (
	FormatPDF Format = iota
	FormatSVG
)

// ParseFormat 解析 "pdf" / "svg"，大小写不敏感。
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pdf":
		return FormatPDF, nil
	case "svg":
		return FormatSVG, nil
	}
	return FormatPDF, fmt.Errorf("未知的输出格式 %q", s)
}

// Options configures the canvas renderer.
type Options struct {
	Fonts       map[string]Resource // 按字体名注入的轮廓字体
	SystemFonts bool                // 未注入的字体名在系统字体目录中查找
	Format      Format
	Margin      layout.Length // 四周留白，零值为 2mm
	ShowBoxes   bool          // 绘制每行的包围盒标记
	Foreground  color.Color   // 随层/随块颜色的替代色，nil 为黑色
}

// Renderer draws layout results via github.com/tdewolff/canvas.
// 它同时持有轮廓字体后端，排版与输出共用同一份字体缓存。
type Renderer struct {
	opts    Options
	backend *Backend
}

var _ renderer.Renderer = (*Renderer)(nil)

// NewRenderer creates a renderer that writes PDF with default options.
func NewRenderer() *Renderer { return NewRendererWithOptions(Options{}) }

// NewRendererWithOptions creates a renderer with injected fonts and output options.
func NewRendererWithOptions(opts Options) *Renderer {
	if opts.Margin.IsZero() {
		opts.Margin = layout.Length{Value: 2, Unit: layout.UnitMM}
	}
	if opts.Foreground == nil {
		opts.Foreground = canvas.Black
	}
	return &Renderer{
		opts:    opts,
		backend: NewBackend(opts.Fonts, opts.SystemFonts),
	}
}

// Backend 返回渲染器使用的轮廓字体后端，供 layout.BuildOptions.Outline 使用。
func (r *Renderer) Backend() *Backend { return r.backend }

// Render 将排版结果绘制为 PDF 或 SVG。页面大小为结果包围盒加四周留白。
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil || len(result.Paths) == 0 || !result.BoundingBox.Valid {
		return nil, renderer.ErrEmptyResult
	}

	margin := r.opts.Margin.ToMM()
	bbox := result.BoundingBox
	width := bbox.Width() + 2*margin
	height := bbox.Height() + 2*margin

	c := canvas.New(width, height)
	ctx := canvas.NewContext(c)
	r.drawResult(ctx, result, margin-bbox.MinX, margin-bbox.MinY)

	var buf bytes.Buffer
	if err := r.write(&buf, c, width, height); err != nil {
		return nil, err
	}
	logging.Logger().Debug("预览输出完成", "format", r.opts.Format, "bytes", buf.Len())
	return buf.Bytes(), nil
}

func (r *Renderer) write(w io.Writer, c *canvas.Canvas, width, height float64) error {
	switch r.opts.Format {
	case FormatSVG:
		writer := svg.New(w, width, height, nil)
		c.RenderTo(writer)
		if err := writer.Close(); err != nil {
			return fmt.Errorf("写入 SVG 失败: %w", err)
		}
	default:
		writer := pdf.New(w, width, height, nil)
		c.RenderTo(writer)
		if err := writer.Close(); err != nil {
			return fmt.Errorf("写入 PDF 失败: %w", err)
		}
	}
	return nil
}

// drawResult 先画字形，包围盒标记最后画在上层。
func (r *Renderer) drawResult(ctx *canvas.Context, result *layout.Result, dx, dy float64) {
	for _, p := range result.GlyphPaths() {
		if p.Path == nil || p.Path.Empty() {
			continue
		}
		col := r.colorOf(p.Color)
		if p.Fill {
			ctx.SetFillColor(col)
			ctx.SetStrokeColor(canvas.Transparent)
		} else {
			ctx.SetFillColor(canvas.Transparent)
			ctx.SetStrokeColor(col)
			ctx.SetStrokeWidth(math.Max(p.FeatureSize*strokeWidthRatio, minStrokeWidth))
			ctx.SetStrokeCapper(canvas.RoundCap)
			ctx.SetStrokeJoiner(canvas.RoundJoin)
		}
		ctx.DrawPath(dx, dy, p.Path)
	}

	if !r.opts.ShowBoxes {
		return
	}
	for _, p := range result.Paths {
		if !p.IsBoundingBox() || p.Path == nil {
			continue
		}
		ctx.SetFillColor(canvas.Transparent)
		ctx.SetStrokeColor(canvas.Hex("#4080ff"))
		ctx.SetStrokeWidth(boxStrokeWidth)
		ctx.DrawPath(dx, dy, p.Path)
	}
}

// colorOf 把调色板颜色转换为绘图颜色；随层、随块与未设置的颜色使用前景色。
func (r *Renderer) colorOf(c palette.Color) color.Color {
	if !c.IsFixed() {
		return r.opts.Foreground
	}
	return canvas.RGBA(float64(c.RGBA.R)/255.0, float64(c.RGBA.G)/255.0, float64(c.RGBA.B)/255.0, 1.0)
}

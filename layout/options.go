package layout

import (
	"errors"
	"log/slog"

	"github.com/ByLCY/mtext/internal/logging"
	"github.com/ByLCY/mtext/palette"
)

// ErrNoBackend 表示几何输出模式下没有配置任何字形后端。
var ErrNoBackend = errors.New("layout: 缺少字形后端")

// Target 选择输出形式。
type Target int

const (
	TargetGeometry Target = iota // 轮廓路径
	TargetRichText               // 带样式的 HTML 片段
)

// BuildOptions 配置排版阶段所需的依赖，例如字形后端与调色板。
type BuildOptions struct {
	Outline          Backend       // 轮廓字体后端（TTF/OTF）
	Stroke           StrokeBackend // 笔画字体后端（CXF）
	Palette          palette.Palette
	Target           Target
	Draft            bool    // 草图模式：笔画字体圆弧使用更少线段
	FontHeightFactor float64 // 富文本中 \H 高度换算为 pt 的系数，<=0 时为 1
}

// Backend 负责把一段同样式文本渲染为单位高度的字形轮廓。
// 实现需要对无法解析的字体自行回退到备用字体。
type Backend interface {
	RenderRun(req RunRequest) (RunGlyphs, error)
}

// StrokeBackend 是笔画字体后端，额外提供字体识别与字间距查询。
type StrokeBackend interface {
	Backend
	// IsStrokeFont 判断字体名是否为笔画字体。
	IsStrokeFont(name string) bool
	// LetterSpacing 返回字体在单位高度下的字间距。
	LetterSpacing(name string) float64
}

func (o BuildOptions) withDefaults() BuildOptions {
	if o.Palette == nil {
		o.Palette = palette.ACI{}
	}
	if o.FontHeightFactor <= 0 {
		o.FontHeightFactor = 1
	}
	return o
}

func (o BuildOptions) validate() error {
	if o.Target == TargetGeometry && o.Outline == nil && o.Stroke == nil {
		return ErrNoBackend
	}
	return nil
}

// isStrokeFont 判断基础字体是否应使用笔画字体后端。
func (o BuildOptions) isStrokeFont(name string) bool {
	return o.Stroke != nil && o.Stroke.IsStrokeFont(name)
}

// backendFor 按样式选择后端；所需后端缺失时使用另一个。
func (o BuildOptions) backendFor(f StyleFrame) Backend {
	if f.Stroke && o.Stroke != nil {
		return o.Stroke
	}
	if o.Outline != nil {
		return o.Outline
	}
	if o.Stroke != nil {
		return o.Stroke
	}
	return nil
}

// SetLogger 设置 mtext 各包共用的日志记录器，nil 恢复为静默。
func SetLogger(l *slog.Logger) { logging.Set(l) }

// Logger 返回当前日志记录器。
func Logger() *slog.Logger { return logging.Logger() }

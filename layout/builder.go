package layout

import (
	"log/slog"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/mtext/markup"
	"github.com/ByLCY/mtext/palette"
)

const (
	// stackedFactor 是堆叠文字（分子/分母）相对当前字高的缩放。
	stackedFactor = 0.4
	// italicSlant 是斜体分子右移时假定的倾斜角（度）。
	italicSlant = 12.0
	// cursorTolerance 以内视为仍在行首。
	cursorTolerance = 1e-9
	// emptyLineText 用于测量空行的行高。
	emptyLineText = "A"
)

// Build 对文本对象排版。几何模式返回定位好的轮廓路径，富文本模式返回 HTML 片段。
// 任何输入字符串都会得到结果；错误只在配置不完整时返回。
func Build(doc Document, opts BuildOptions) (*Result, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	e := newEngine(normalize(doc), opts)
	if e.doc.Simple {
		return e.buildSimple(), nil
	}
	return e.build(), nil
}

// normalize 修正非法的全局属性。
func normalize(doc Document) Document {
	log := Logger()
	if doc.Height <= 0 || math.IsNaN(doc.Height) {
		log.Warn("文字高度无效，使用 1", "height", doc.Height)
		doc.Height = 1
	}
	if doc.LineSpacingFactor <= 0 || math.IsNaN(doc.LineSpacingFactor) {
		if doc.LineSpacingFactor != 0 {
			log.Warn("行距因子无效，使用 1", "factor", doc.LineSpacingFactor)
		}
		doc.LineSpacingFactor = 1
	}
	return doc
}

// engine 保存一次排版调用的全部可变状态，调用结束即丢弃。
type engine struct {
	doc  Document
	opts BuildOptions
	log  *slog.Logger

	frames *frameStack
	rich   *richWriter

	// 当前待渲染文本块及其颜色区间
	block   []rune
	formats []FormatRange
	// 块内是否改变过字高或字体，决定 '}' 是否需要断开；外层块的标记在 '{' 时保存
	blockChanged bool
	changedStack []bool

	xCursor        float64
	yCursor        float64
	maxAscent      float64
	minDescent     float64
	minDescentPrev float64

	firstBlockInLine bool
	leadingSpaces    bool
	trailingSpaces   bool
	leadingEmpty     bool
	trailingEmpty    bool
	lineCounter      int

	linePaths []Path
	lineRuns  []Run

	width float64
	// 仅含字形路径、未应用全局变换的包围盒
	glyphBox Box
	res      *Result
}

func newEngine(doc Document, opts BuildOptions) *engine {
	base := StyleFrame{
		Font:   doc.FontName,
		Bold:   doc.Bold,
		Italic: doc.Italic,
		Height: doc.Height,
		Stroke: opts.isStrokeFont(doc.FontName),
	}
	e := &engine{
		doc:              doc,
		opts:             opts,
		log:              Logger(),
		frames:           newFrameStack(base),
		firstBlockInLine: true,
		res:              &Result{},
	}
	if opts.Target == TargetRichText {
		e.rich = newRichWriter()
	}
	e.resetBlock()
	return e
}

func (e *engine) build() *Result {
	literals, directives := markup.Split(e.doc.Text)
	e.log.Debug("开始排版", "literals", len(literals), "directives", len(directives), "target", e.opts.Target)

	for i, lit := range literals {
		var dir *markup.Token
		if i < len(directives) {
			dir = &directives[i]
		}
		e.block = append(e.block, []rune(lit)...)

		if e.firstBlockInLine {
			if lit != "" {
				r, _ := utf8.DecodeRuneInString(lit)
				if unicode.IsSpace(r) {
					e.leadingSpaces = true
				}
			} else if dir != nil && dir.Kind == markup.NonBreakingSpace {
				e.leadingSpaces = true
			}
			e.firstBlockInLine = false
		}

		var kind markup.Kind = -1
		if dir != nil {
			kind = dir.Kind
		}
		lineEnd := kind == markup.LineFeed || kind == markup.ParagraphFeed
		end := i == len(literals)-1

		if strings.TrimSpace(string(e.block)) == "" && (lineEnd || end) {
			if i == 0 {
				e.leadingEmpty = true
			} else if end {
				e.trailingEmpty = true
			}
		}

		if e.rich != nil || lineEnd || end || breaksRun(kind) ||
			(kind == markup.BlockEnd && e.blockChanged) {
			e.flush(dir, lineEnd, end)
		}

		if dir != nil {
			e.apply(*dir)
		}
	}

	if e.rich != nil {
		e.res.RichText = e.rich.String()
		return e.res
	}
	e.finish()
	return e.res
}

// breaksRun 判断指令是否必须在其之前结束当前文本块。
func breaksRun(k markup.Kind) bool {
	switch k {
	case markup.HeightChange, markup.StackedText,
		markup.StrokeFontChange, markup.OutlineFontChange,
		markup.ColorIndex, markup.ColorCustom:
		return true
	}
	return false
}

// flush 渲染当前文本块；遇到堆叠文字时渲染分子分母；在行尾时结束当前行。
func (e *engine) flush(dir *markup.Token, lineEnd, end bool) {
	frame := e.frames.top()
	if len(e.block) > 0 {
		e.closeFormats()
		text := string(e.block)
		if e.rich != nil {
			e.rich.text(text)
		} else {
			e.placeRun(text, e.formats, frame)
		}
	} else if (lineEnd || end) && e.rich == nil {
		// 空行也需要行高
		g := e.renderRun(emptyLineText, nil, frame)
		e.maxAscent = math.Max(e.maxAscent, g.Ascent*frame.Height)
		e.minDescent = math.Min(e.minDescent, g.Descent*frame.Height)
	}

	if dir != nil && dir.Kind == markup.StackedText {
		e.stacked(*dir, frame)
	}

	if (lineEnd || end) && len(e.block) > 0 && unicode.IsSpace(e.block[len(e.block)-1]) {
		e.trailingSpaces = true
	}

	e.resetBlock()

	if lineEnd || end {
		if e.rich != nil && lineEnd {
			e.rich.lineBreak()
		}
		e.finishLine()
	}
}

// resetBlock 清空文本块，并以当前颜色开始新的颜色区间。
func (e *engine) resetBlock() {
	e.block = e.block[:0]
	e.formats = []FormatRange{{Start: 0, Color: e.frames.top().Color}}
}

// closeFormats 让每个颜色区间在下一个区间开始处结束。
func (e *engine) closeFormats() {
	for i := range e.formats {
		next := len(e.block)
		if i < len(e.formats)-1 {
			next = e.formats[i+1].Start
		}
		e.formats[i].Length = next - e.formats[i].Start
	}
}

// renderRun 调用后端取单位高度字形；后端失败时按空文本处理。
func (e *engine) renderRun(text string, formats []FormatRange, f StyleFrame) RunGlyphs {
	b := e.opts.backendFor(f)
	if b == nil {
		return RunGlyphs{}
	}
	g, err := b.RenderRun(RunRequest{
		Text:    text,
		Font:    f.FontSpec(),
		Formats: formats,
		Draft:   e.opts.Draft,
	})
	if err != nil {
		e.log.Warn("字形渲染失败，按空文本处理", "font", f.Font, "text", text, "err", err)
		return RunGlyphs{}
	}
	return g
}

// placeRun 把一段文本按当前字高缩放、平移到光标处并加入当前行。
func (e *engine) placeRun(text string, formats []FormatRange, f StyleFrame) {
	g := e.renderRun(text, formats, f)
	h := f.Height
	m := canvas.Identity.Translate(e.xCursor, 0).Scale(h, h)

	e.maxAscent = math.Max(e.maxAscent, g.Ascent*h)
	e.minDescent = math.Min(e.minDescent, g.Descent*h)
	for _, p := range g.Paths {
		e.linePaths = append(e.linePaths, p.Transformed(m))
	}
	e.lineRuns = append(e.lineRuns, Run{
		Text:    text,
		Style:   f,
		X:       e.xCursor,
		Scale:   h,
		Advance: g.Advance * h,
		Formats: append([]FormatRange(nil), formats...),
	})
	e.xCursor += g.Advance * h
}

// stacked 渲染堆叠文字：分子上移 (1-0.4)·h，分母在基线，光标前进两者中较宽者。
func (e *engine) stacked(tok markup.Token, f StyleFrame) {
	if e.rich != nil {
		e.rich.stacked(tok.Numerator, tok.Denominator)
		return
	}
	h := f.Height
	scale := h * stackedFactor
	var advance [2]float64
	for s, script := range []string{tok.Numerator, tok.Denominator} {
		formats := []FormatRange{{Start: 0, Length: utf8.RuneCountInString(script), Color: f.Color}}
		g := e.renderRun(script, formats, f)

		var xOffset, y float64
		if s == 0 {
			e.maxAscent = math.Max(e.maxAscent, g.Ascent*scale+h*(1-stackedFactor))
			y = h * (1 - stackedFactor)
			if f.Italic {
				xOffset = math.Tan(italicSlant*math.Pi/180) * y
			}
		} else {
			e.minDescent = math.Min(e.minDescent, g.Descent*scale)
		}
		advance[s] = g.Advance + xOffset/scale

		m := canvas.Identity.Translate(e.xCursor+xOffset, y).Scale(scale, scale)
		for _, p := range g.Paths {
			e.linePaths = append(e.linePaths, p.Transformed(m))
		}
		if script != "" {
			e.lineRuns = append(e.lineRuns, Run{
				Text:    script,
				Style:   f,
				X:       e.xCursor + xOffset,
				Y:       y,
				Scale:   scale,
				Advance: g.Advance * scale,
				Stacked: true,
				Formats: formats,
			})
		}
	}
	e.xCursor += math.Max(advance[0], advance[1]) * scale
}

// finishLine 对齐当前行、输出其路径与包围盒标记，并推进纵向光标。
func (e *engine) finishLine() {
	if e.lineCounter != 0 {
		e.yCursor += (e.minDescentPrev - e.maxAscent) * e.doc.LineSpacingFactor
	}

	var lineBox Box
	for _, p := range e.linePaths {
		lineBox = lineBox.Grow(p.Bounds())
	}
	featureSize := lineBox.Height()
	dx := e.lineOffset(lineBox)
	m := canvas.Identity.Translate(dx, e.yCursor)

	if lineBox.Valid {
		e.width = math.Max(e.width, lineBox.MaxX-math.Min(0, lineBox.MinX))
	}

	var color palette.Color
	var fixed bool
	for i, p := range e.linePaths {
		if i == 0 {
			color, fixed = p.Color, p.FixedColor
		}
		p.transform(m)
		p.FeatureSize = featureSize
		e.res.Paths = append(e.res.Paths, p)
		e.glyphBox = e.glyphBox.Grow(p.Bounds())
	}
	if lineBox.Valid {
		e.res.Paths = append(e.res.Paths, Path{
			Path:        lineBox.Path().Transform(m),
			Color:       color,
			FixedColor:  fixed,
			FeatureSize: -featureSize,
		})
	}

	runs := e.lineRuns
	for i := range runs {
		runs[i].X += dx
		runs[i].Y += e.yCursor
	}
	e.res.Lines = append(e.res.Lines, Line{
		Runs:           runs,
		MaxAscent:      e.maxAscent,
		MinDescent:     e.minDescent,
		Advance:        e.xCursor,
		OffsetX:        dx,
		Y:              e.yCursor,
		BoundingBox:    lineBox.Translate(dx, e.yCursor),
		LeadingSpaces:  e.leadingSpaces,
		TrailingSpaces: e.trailingSpaces,
	})

	e.lineCounter++
	e.xCursor = 0
	e.maxAscent = 0
	e.minDescentPrev = e.minDescent
	e.minDescent = 0
	e.linePaths = nil
	e.lineRuns = nil
	e.firstBlockInLine = true
	e.leadingSpaces = false
	e.trailingSpaces = false
}

// lineOffset 计算行的水平偏移。行首/行尾有空格时按前进宽度对齐，否则按字形边界对齐。
func (e *engine) lineOffset(box Box) float64 {
	switch e.doc.HAlign {
	case HAlignCenter, HAlignMid:
		if e.leadingSpaces || e.trailingSpaces {
			return -e.xCursor / 2
		}
		return -(box.MinX + box.MaxX) / 2
	case HAlignRight:
		if e.trailingSpaces {
			return -e.xCursor
		}
		return -box.MaxX
	default:
		if e.leadingSpaces {
			return 0
		}
		return -box.MinX
	}
}

// finish 计算垂直对齐与全局变换（插入点、旋转），并写入结果。
func (e *engine) finish() {
	h := e.doc.Height
	top := h
	bottom := 0.0
	if e.glyphBox.Valid {
		top = math.Max(h, e.glyphBox.MaxY)
		bottom = math.Min(0, e.glyphBox.MinY)
	}

	m := canvas.Identity.
		Translate(e.doc.AlignmentPoint.X, e.doc.AlignmentPoint.Y).
		Rotate(e.doc.Angle * 180 / math.Pi)
	switch e.doc.VAlign {
	case VAlignTop:
		m = m.Translate(0, -top)
	case VAlignMiddle:
		if e.leadingEmpty || e.trailingEmpty {
			m = m.Translate(0, -(e.yCursor+h)/2)
		} else {
			m = m.Translate(0, -(bottom+top)/2)
		}
	default:
		if e.trailingEmpty {
			m = m.Translate(0, -e.yCursor)
		} else {
			m = m.Translate(0, -bottom)
		}
	}

	e.res.Width = e.width
	e.res.Height = e.glyphBox.Height()
	e.res.LeadingEmptyLines = e.leadingEmpty
	e.res.TrailingEmptyLines = e.trailingEmpty
	e.res.Transform = m
	e.res.BoundingBox = Box{}
	for i := range e.res.Paths {
		e.res.Paths[i].transform(m)
		e.res.BoundingBox = e.res.BoundingBox.Grow(e.res.Paths[i].Bounds())
	}
	e.log.Debug("排版完成", "lines", len(e.res.Lines), "paths", len(e.res.Paths),
		"width", e.res.Width, "height", e.res.Height)
}

// apply 执行文本块之后的格式指令，作用于后续文本。
func (e *engine) apply(tok markup.Token) {
	f := e.frames.top()
	switch tok.Kind {
	case markup.Escape, markup.NonBreakingSpace:
		e.block = append(e.block, []rune(tok.Text)...)

	case markup.OutlineFontChange:
		f.Font, f.Bold, f.Italic, f.Stroke = tok.Font, tok.Bold, tok.Italic, false
		e.frames.set(f)
		e.blockChanged = true
		if e.rich != nil {
			e.rich.font(f, true)
		}

	case markup.StrokeFontChange:
		f.Font, f.Stroke = tok.Font, true
		e.frames.set(f)
		if e.xCursor > cursorTolerance && e.opts.Stroke != nil {
			e.xCursor += e.opts.Stroke.LetterSpacing(f.Font)
		}
		e.blockChanged = true
		if e.rich != nil {
			e.rich.font(f, false)
		}

	case markup.HeightChange:
		h := tok.Number
		if tok.Relative {
			h = f.Height * tok.Number
		}
		if !tok.Valid || h <= 0 || math.IsInf(h, 0) {
			e.log.Debug("忽略无效的字高指令", "raw", tok.Raw)
			return
		}
		f.Height = h
		e.frames.set(f)
		e.blockChanged = true
		if e.rich != nil {
			e.rich.size(RichTextSize(h, e.opts.FontHeightFactor))
		}

	case markup.BlockBegin:
		e.frames.push()
		if e.rich != nil {
			e.rich.pushBlock()
		}
		e.changedStack = append(e.changedStack, e.blockChanged)
		e.blockChanged = false

	case markup.BlockEnd:
		if !e.frames.pop() {
			e.log.Debug("忽略未配对的 '}'", "pos", tok.Pos)
			return
		}
		e.formats = append(e.formats, FormatRange{Start: len(e.block), Color: e.frames.top().Color})
		if n := len(e.changedStack); n > 0 {
			e.blockChanged = e.changedStack[n-1]
			e.changedStack = e.changedStack[:n-1]
		}
		if e.rich != nil {
			e.rich.popBlock()
		}

	case markup.ColorIndex, markup.ColorCustom:
		if !tok.Valid {
			e.log.Debug("忽略无效的颜色指令", "raw", tok.Raw)
			return
		}
		var c palette.Color
		if tok.Kind == markup.ColorIndex {
			c = e.opts.Palette.IndexedColor(tok.Int)
		} else {
			c = e.opts.Palette.CustomColor(tok.Int)
		}
		f.Color = c
		e.frames.set(f)
		e.formats = append(e.formats, FormatRange{Start: len(e.block), Color: c})
		if e.rich != nil {
			e.rich.color(c.CSS())
		}

	case markup.OverlineOn, markup.OverlineOff:
		f.Overline = tok.Kind == markup.OverlineOn
		e.frames.set(f)
	case markup.UnderlineOn, markup.UnderlineOff:
		f.Underline = tok.Kind == markup.UnderlineOn
		e.frames.set(f)
	case markup.WidthChange:
		if tok.Valid {
			f.Width = tok.Number
			e.frames.set(f)
		}
	case markup.ObliqueChange:
		if tok.Valid {
			f.Oblique = tok.Number
			e.frames.set(f)
		}
	case markup.TrackChange:
		if tok.Valid {
			f.Tracking = tok.Number
			e.frames.set(f)
		}
	case markup.AlignmentChange:
		if tok.Valid {
			f.Alignment = tok.Int
			e.frames.set(f)
		}
	}
}

// buildSimple 是单行简单文本的快速路径：不解析格式指令，整段文本按基础样式渲染一次。
func (e *engine) buildSimple() *Result {
	doc := e.doc
	pos := doc.AlignmentPoint
	if doc.HAlign == HAlignFit {
		pos = doc.Position
	}
	text := markup.ReplaceSpecial(doc.Text)
	runes := []rune(text)
	leading := len(runes) > 0 && unicode.IsSpace(runes[0])
	trailing := len(runes) > 0 && unicode.IsSpace(runes[len(runes)-1])

	base := e.frames.top()
	h := base.Height
	formats := []FormatRange{{Start: 0, Length: len(runes), Color: base.Color}}
	// 简单文本不输出富文本，RichText 保持为空
	g := e.renderRun(text, formats, base)

	size := canvas.Identity.Scale(h, h)
	var box Box
	paths := make([]Path, 0, len(g.Paths)+1)
	for _, p := range g.Paths {
		q := p.Transformed(size)
		box = box.Grow(q.Bounds())
		paths = append(paths, q)
	}
	featureSize := box.Height()
	var color palette.Color
	var fixed bool
	for i := range paths {
		if i == 0 {
			color, fixed = paths[i].Color, paths[i].FixedColor
		}
		paths[i].FeatureSize = featureSize
	}
	if box.Valid {
		paths = append(paths, Path{Path: box.Path(), Color: color, FixedColor: fixed, FeatureSize: -featureSize})
	}

	var yOffset float64
	switch doc.VAlign {
	case VAlignTop:
		yOffset = -h
	case VAlignMiddle:
		yOffset = -h / 2
	case VAlignBottom:
		yOffset = -g.Descent * h
	}
	var xOffset float64
	switch doc.HAlign {
	case HAlignCenter, HAlignMid:
		if leading || trailing {
			xOffset = -g.Advance * h / 2
		} else {
			xOffset = -(box.MinX + box.MaxX) / 2
		}
	case HAlignRight:
		if trailing {
			xOffset = -g.Advance * h
		} else {
			xOffset = -box.MaxX
		}
	default:
		if !leading {
			xOffset = -box.MinX
		}
	}

	m := canvas.Identity.
		Translate(pos.X, pos.Y).
		Rotate(doc.Angle*180/math.Pi).
		Translate(xOffset, yOffset)

	e.res.Width = g.AdvanceNoSpacing * h
	e.res.Height = box.Height()
	e.res.Transform = m
	for i := range paths {
		paths[i].transform(m)
		e.res.BoundingBox = e.res.BoundingBox.Grow(paths[i].Bounds())
	}
	e.res.Paths = paths
	e.res.Lines = []Line{{
		Runs: []Run{{
			Text:    text,
			Style:   base,
			X:       xOffset,
			Y:       yOffset,
			Scale:   h,
			Advance: g.Advance * h,
			Formats: formats,
		}},
		MaxAscent:      g.Ascent * h,
		MinDescent:     g.Descent * h,
		Advance:        g.Advance * h,
		OffsetX:        xOffset,
		Y:              yOffset,
		BoundingBox:    box.Translate(xOffset, yOffset),
		LeadingSpaces:  leading,
		TrailingSpaces: trailing,
	}}
	return e.res
}

// transform 原地变换路径；调用方需保证路径不与后端共享。
func (p *Path) transform(m canvas.Matrix) {
	if p.Path != nil {
		p.Path = p.Path.Transform(m)
	}
}

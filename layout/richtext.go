package layout

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// decorationKind 标记富文本中打开的 span 来自哪类指令。
type decorationKind int

const (
	decoFont decorationKind = iota
	decoHeight
	decoColor
)

// decoration 是一个尚未关闭的 span。
type decoration struct {
	kind  decorationKind
	style string
}

// richWriter 把样式变化序列化为嵌套 span。每个格式块拥有自己的一组
// decoration，块结束时按后进先出顺序关闭。
type richWriter struct {
	b      strings.Builder
	blocks [][]decoration
}

func newRichWriter() *richWriter {
	return &richWriter{blocks: [][]decoration{nil}}
}

func (w *richWriter) open(kind decorationKind, style string) {
	fmt.Fprintf(&w.b, `<span style="%s">`, html.EscapeString(style))
	top := len(w.blocks) - 1
	w.blocks[top] = append(w.blocks[top], decoration{kind: kind, style: style})
}

func (w *richWriter) pushBlock() {
	w.blocks = append(w.blocks, nil)
}

// popBlock 关闭当前块内打开的所有 span；顶层块不会被弹出。
func (w *richWriter) popBlock() {
	if len(w.blocks) <= 1 {
		return
	}
	w.closeTop()
	w.blocks = w.blocks[:len(w.blocks)-1]
}

func (w *richWriter) closeTop() {
	top := len(w.blocks) - 1
	for i := len(w.blocks[top]) - 1; i >= 0; i-- {
		w.b.WriteString("</span>")
	}
	w.blocks[top] = nil
}

func (w *richWriter) text(s string) {
	w.b.WriteString(escapeRichText(s))
}

func (w *richWriter) lineBreak() {
	w.b.WriteString("<br/>")
}

func (w *richWriter) stacked(numerator, denominator string) {
	if numerator != "" {
		fmt.Fprintf(&w.b, `<span style="vertical-align:super;">%s</span>`, escapeRichText(numerator))
	}
	if denominator != "" {
		fmt.Fprintf(&w.b, `<span style="vertical-align:sub;">%s</span>`, escapeRichText(denominator))
	}
}

func (w *richWriter) font(f StyleFrame, outline bool) {
	style := fmt.Sprintf("font-family:%s;", f.Font)
	if outline {
		style += fmt.Sprintf("font-weight:%s;", pick(f.Bold, "bold", "normal"))
		style += fmt.Sprintf("font-style:%s;", pick(f.Italic, "italic", "normal"))
	}
	w.open(decoFont, style)
}

func (w *richWriter) size(pt float64) {
	w.open(decoHeight, "font-size:"+strconv.FormatFloat(pt, 'g', -1, 64)+"pt;")
}

func (w *richWriter) color(css string) {
	w.open(decoColor, "color:"+css+";")
}

// String 关闭所有仍然打开的块（包括未配对的 '{'）并返回结果。
func (w *richWriter) String() string {
	for len(w.blocks) > 1 {
		w.popBlock()
	}
	w.closeTop()
	return w.b.String()
}

// escapeRichText 转义 HTML 特殊字符，并把空格与不换行空格统一写成 &nbsp;。
func escapeRichText(s string) string {
	s = html.EscapeString(s)
	return strings.NewReplacer(" ", "&nbsp;", "\u00a0", "&nbsp;").Replace(s)
}

func pick(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}

package cxf

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	cxfLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Meta", Pattern: `#[^\n]*`},
		{Name: "Header", Pattern: `\[[^\]\n]*\][^\n]*`},
		{Name: "Number", Pattern: `[-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?`},
		{Name: "Ident", Pattern: `[A-Za-z]+`},
		{Name: "Comma", Pattern: `,`},
		{Name: "Newline", Pattern: `\r?\n`},
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
	})

	fileParser = participle.MustBuild[fileAST](
		participle.Lexer(cxfLexer),
		participle.Elide("Whitespace"),
	)
)

// fileAST is the raw line structure of a CXF file.
type fileAST struct {
	Lines []*lineAST `parser:"( @@ | Newline )*"`
}

// lineAST is a metadata comment, a glyph header or a drawing element.
type lineAST struct {
	Meta    *string     `parser:"  @Meta"`
	Header  *string     `parser:"| @Header"`
	Element *elementAST `parser:"| @@"`
}

// elementAST is one drawing instruction, e.g. `L 0,0,3,9` or `A 3,3,3,0,360`.
type elementAST struct {
	Pos  lexer.Position `parser:""`
	Kind string         `parser:"@Ident"`
	Args []float64      `parser:"( @Number ( ',' @Number )* )?"`
}

// Parse 读取 CXF 笔画字体。name 用于错误信息，并在字体未声明名称时作为字体名。
func Parse(name string, r io.Reader) (*Font, error) {
	ast, err := fileParser.Parse(name, r)
	if err != nil {
		return nil, fmt.Errorf("cxf: 解析 %s 失败: %w", name, err)
	}

	f := newFont(strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)))
	var current *glyph
	for _, l := range ast.Lines {
		switch {
		case l.Meta != nil:
			f.setMeta(*l.Meta)
		case l.Header != nil:
			ch, ok := parseHeader(*l.Header)
			if !ok {
				return nil, fmt.Errorf("cxf: %s: 无法识别的字形头 %q", name, strings.TrimSpace(*l.Header))
			}
			current = &glyph{}
			f.glyphs[ch] = current
		case l.Element != nil:
			if current == nil {
				return nil, fmt.Errorf("cxf: %s: 元素出现在字形头之前", l.Element.Pos)
			}
			el, err := l.Element.decode()
			if err != nil {
				return nil, err
			}
			current.elements = append(current.elements, el)
		}
	}
	return f, nil
}

// ParseString 读取字符串形式的 CXF 字体。
func ParseString(name, src string) (*Font, error) {
	return Parse(name, strings.NewReader(src))
}

// parseHeader 识别 `[A]`、`[#0041]` 与 `[0041] A` 三种字形头。
func parseHeader(h string) (rune, bool) {
	h = strings.TrimSpace(h)
	end := strings.IndexByte(h[1:], ']') + 1
	if end <= 0 {
		return 0, false
	}
	inner := h[1:end]
	rest := strings.TrimSpace(h[end+1:])
	switch {
	case strings.HasPrefix(inner, "#"):
		return parseCode(inner[1:])
	case utf8.RuneCountInString(inner) == 1:
		r, _ := utf8.DecodeRuneInString(inner)
		return r, true
	case len(inner) == 4:
		return parseCode(inner)
	case inner == "" && rest == "]":
		return ']', true
	}
	return 0, false
}

func parseCode(s string) (rune, bool) {
	code, err := strconv.ParseUint(s, 16, 32)
	if err != nil || !utf8.ValidRune(rune(code)) {
		return 0, false
	}
	return rune(code), true
}

func (e *elementAST) decode() (element, error) {
	var want int
	var kind elementKind
	switch e.Kind {
	case "L":
		kind, want = lineElement, 4
	case "A":
		kind, want = arcElement, 5
	case "AR":
		kind, want = reversedArcElement, 5
	default:
		return element{}, fmt.Errorf("cxf: %s: 未知元素 %q", e.Pos, e.Kind)
	}
	if len(e.Args) != want {
		return element{}, fmt.Errorf("cxf: %s: 元素 %s 需要 %d 个参数，实际 %d", e.Pos, e.Kind, want, len(e.Args))
	}
	el := element{kind: kind}
	copy(el.args[:], e.Args)
	return el, nil
}

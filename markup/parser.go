package markup

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Kind identifies the type of a markup token.
type Kind int

// Token kinds, in grammar priority order.
const (
	Literal Kind = iota
	LineFeed
	ParagraphFeed
	HeightChange
	StackedText
	ColorIndex
	ColorCustom
	NonBreakingSpace
	OverlineOn
	OverlineOff
	UnderlineOn
	UnderlineOff
	WidthChange
	ObliqueChange
	TrackChange
	AlignmentChange
	StrokeFontChange
	OutlineFontChange
	BlockBegin
	BlockEnd
	Escape
)

var kindNames = map[Kind]string{
	Literal:           "Literal",
	LineFeed:          "LineFeed",
	ParagraphFeed:     "ParagraphFeed",
	HeightChange:      "HeightChange",
	StackedText:       "StackedText",
	ColorIndex:        "ColorIndex",
	ColorCustom:       "ColorCustom",
	NonBreakingSpace:  "NonBreakingSpace",
	OverlineOn:        "OverlineOn",
	OverlineOff:       "OverlineOff",
	UnderlineOn:       "UnderlineOn",
	UnderlineOff:      "UnderlineOff",
	WidthChange:       "WidthChange",
	ObliqueChange:     "ObliqueChange",
	TrackChange:       "TrackChange",
	AlignmentChange:   "AlignmentChange",
	StrokeFontChange:  "StrokeFontChange",
	OutlineFontChange: "OutlineFontChange",
	BlockBegin:        "BlockBegin",
	BlockEnd:          "BlockEnd",
	Escape:            "Escape",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Special characters produced by percent escapes.
const (
	Degree    = '\u00b0'
	PlusMinus = '\u00b1'
	Diameter  = '\u2300'
	NBSP      = '\u00a0'
)

// rule binds a lexer rule name to the token kind it produces. The order of
// the grammar table is the match priority.
type rule struct {
	name    string
	kind    Kind
	pattern string
	decode  func(tok *Token, groups []string)
}

var grammar = []rule{
	{"LineFeed", LineFeed, `\\p(?:x?i(\d*\.?\d+);)?`, decodeLineFeed},
	{"ParagraphFeed", ParagraphFeed, `\\P`, nil},
	{"HeightChange", HeightChange, `\\H(\d*\.?\d+)(x?);`, decodeHeight},
	{"StackedText", StackedText, `\\S([^^]*)\^([^;]*);`, decodeStacked},
	{"ColorIndex", ColorIndex, `\\C(\d+);`, decodeInt},
	{"ColorCustom", ColorCustom, `\\c(\d+);`, decodeInt},
	{"NonBreakingSpace", NonBreakingSpace, `\\~`, decodeNBSP},
	{"OverlineOn", OverlineOn, `\\O`, nil},
	{"OverlineOff", OverlineOff, `\\o`, nil},
	{"UnderlineOn", UnderlineOn, `\\L`, nil},
	{"UnderlineOff", UnderlineOff, `\\l`, nil},
	{"WidthChange", WidthChange, `\\W(\d*\.?\d+);`, decodeNumber},
	{"ObliqueChange", ObliqueChange, `\\Q(\d*\.?\d+);`, decodeNumber},
	{"TrackChange", TrackChange, `\\T(\d*\.?\d+);`, decodeNumber},
	{"AlignmentChange", AlignmentChange, `\\A(\d+);`, decodeInt},
	{"StrokeFontChange", StrokeFontChange, `\\F([^|]*)\|c(\d+);|\\F([^|;]*);`, decodeStrokeFont},
	{"OutlineFontChange", OutlineFontChange, `\\f([^|]*)\|b(\d+)\|i(\d+)\|c(\d+)\|p(\d+);`, decodeOutlineFont},
	{"BlockBegin", BlockBegin, `\{`, nil},
	{"BlockEnd", BlockEnd, `\}`, nil},
	{"Backslash", Escape, `\\\\`, literalEscape("\\")},
	{"CurlyOpen", Escape, `\\\{`, literalEscape("{")},
	{"CurlyClose", Escape, `\\\}`, literalEscape("}")},
	{"Degree", Escape, `%%[dD]`, literalEscape(string(Degree))},
	{"PlusMinus", Escape, `%%[pP]`, literalEscape(string(PlusMinus))},
	{"Diameter", Escape, `%%[cC]`, literalEscape(string(Diameter))},
	{"Unicode", Escape, `\\[Uu]\+([0-9a-fA-F]{4})`, decodeUnicode},
}

var (
	markupLexer = lexer.MustSimple(lexerRules())

	symbolNames  = invertSymbols(markupLexer.Symbols())
	rulesByName  = indexRules()
	exactPattern = compileExact()

	specialPattern = regexp.MustCompile(`%%[dDpPcC]|\\[Uu]\+[0-9a-fA-F]{4}`)
)

func lexerRules() []lexer.SimpleRule {
	rules := make([]lexer.SimpleRule, 0, len(grammar)+2)
	for _, r := range grammar {
		rules = append(rules, lexer.SimpleRule{Name: r.name, Pattern: `(?:` + r.pattern + `)`})
	}
	// plain text runs and any single character no directive claims
	rules = append(rules,
		lexer.SimpleRule{Name: "Text", Pattern: `[^\\{}%]+`},
		lexer.SimpleRule{Name: "Char", Pattern: `[\s\S]`},
	)
	return rules
}

func indexRules() map[string]rule {
	out := make(map[string]rule, len(grammar))
	for _, r := range grammar {
		out[r.name] = r
	}
	return out
}

func compileExact() map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp, len(grammar))
	for _, r := range grammar {
		out[r.name] = regexp.MustCompile(`^(?:` + r.pattern + `)$`)
	}
	return out
}

// Token is one lexical element of a markup string: either a literal text
// span or a formatting directive with its decoded arguments.
type Token struct {
	Kind Kind
	Raw  string // source text of the token
	Pos  int    // byte offset in the source

	Text string // literal text, or the character an escape expands to

	Number   float64 // height/width/oblique/track value, paragraph indent
	Relative bool    // height change with trailing 'x'
	Valid    bool    // numeric argument parsed successfully
	Int      int     // color index/value, alignment

	Numerator   string
	Denominator string

	Font    string
	Bold    bool
	Italic  bool
	Charset int
	Pitch   int
}

// IsDirective reports whether the token is anything but literal text.
func (t Token) IsDirective() bool { return t.Kind != Literal }

// Split cuts the markup string into literal spans and the directives between
// them. The result always satisfies len(literals) == len(directives)+1;
// literals may be empty.
func Split(s string) ([]string, []Token) {
	lexemes, err := lex(s)
	if err != nil {
		return []string{s}, nil
	}
	literals := []string{}
	directives := []Token{}
	var current strings.Builder
	for _, t := range lexemes {
		if !t.IsDirective() {
			current.WriteString(t.Text)
			continue
		}
		literals = append(literals, current.String())
		current.Reset()
		directives = append(directives, t)
	}
	literals = append(literals, current.String())
	return literals, directives
}

// Tokenize returns the markup as an ordered token sequence. Adjacent text is
// merged into one Literal token and empty literals are dropped, except that
// a string without any directive always yields exactly one Literal.
func Tokenize(s string) []Token {
	literals, directives := Split(s)
	if len(directives) == 0 {
		return []Token{{Kind: Literal, Raw: s, Text: s, Valid: true}}
	}
	tokens := make([]Token, 0, len(literals)+len(directives))
	pos := 0
	for i, lit := range literals {
		if lit != "" {
			tokens = append(tokens, Token{Kind: Literal, Raw: lit, Pos: pos, Text: lit, Valid: true})
		}
		if i < len(directives) {
			tokens = append(tokens, directives[i])
			pos = directives[i].Pos + len(directives[i].Raw)
		}
	}
	return tokens
}

// Decode parses a single directive string such as `\H2.5x;`. It returns
// false if raw is not exactly one directive.
func Decode(raw string) (Token, bool) {
	for _, r := range grammar {
		if !exactPattern[r.name].MatchString(raw) {
			continue
		}
		return decode(r, raw, 0), true
	}
	return Token{}, false
}

// ReplaceSpecial expands only percent escapes and unicode escapes, leaving
// every other directive untouched. Used for simple (single-line) text.
func ReplaceSpecial(s string) string {
	return specialPattern.ReplaceAllStringFunc(s, func(match string) string {
		tok, ok := Decode(match)
		if !ok || tok.Kind != Escape {
			return match
		}
		return tok.Text
	})
}

// EscapeText protects characters that would otherwise start a directive.
func EscapeText(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '{':
			b.WriteString(`\{`)
		case '}':
			b.WriteString(`\}`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// lex runs the participle lexer and converts its tokens.
func lex(s string) ([]Token, error) {
	l, err := markupLexer.LexString("", s)
	if err != nil {
		return nil, err
	}
	raw, err := lexer.ConsumeAll(l)
	if err != nil {
		return nil, err
	}
	out := make([]Token, 0, len(raw))
	for _, t := range raw {
		if t.EOF() {
			break
		}
		name := symbolNames[t.Type]
		r, ok := rulesByName[name]
		if !ok {
			out = append(out, Token{Kind: Literal, Raw: t.Value, Pos: t.Pos.Offset, Text: t.Value, Valid: true})
			continue
		}
		out = append(out, decode(r, t.Value, t.Pos.Offset))
	}
	return out, nil
}

func decode(r rule, raw string, pos int) Token {
	tok := Token{Kind: r.kind, Raw: raw, Pos: pos, Valid: true}
	if r.decode != nil {
		groups := exactPattern[r.name].FindStringSubmatch(raw)
		if groups != nil {
			r.decode(&tok, groups[1:])
		}
	}
	return tok
}

func decodeLineFeed(tok *Token, groups []string) {
	if groups[0] == "" {
		return
	}
	tok.Number, tok.Valid = parseFloat(groups[0])
}

func decodeHeight(tok *Token, groups []string) {
	tok.Number, tok.Valid = parseFloat(groups[0])
	tok.Relative = groups[1] == "x"
}

func decodeStacked(tok *Token, groups []string) {
	tok.Numerator = groups[0]
	tok.Denominator = groups[1]
}

func decodeInt(tok *Token, groups []string) {
	v, err := strconv.Atoi(groups[0])
	tok.Int, tok.Valid = v, err == nil
}

func decodeNumber(tok *Token, groups []string) {
	tok.Number, tok.Valid = parseFloat(groups[0])
}

func decodeNBSP(tok *Token, _ []string) {
	tok.Text = string(NBSP)
}

func decodeStrokeFont(tok *Token, groups []string) {
	if groups[1] != "" {
		tok.Font = groups[0]
		tok.Charset, _ = strconv.Atoi(groups[1])
		return
	}
	tok.Font = groups[2]
}

func decodeOutlineFont(tok *Token, groups []string) {
	tok.Font = groups[0]
	b, _ := strconv.Atoi(groups[1])
	i, _ := strconv.Atoi(groups[2])
	tok.Bold = b != 0
	tok.Italic = i != 0
	tok.Charset, _ = strconv.Atoi(groups[3])
	tok.Pitch, _ = strconv.Atoi(groups[4])
}

func decodeUnicode(tok *Token, groups []string) {
	code, err := strconv.ParseUint(groups[0], 16, 32)
	if err != nil {
		tok.Valid = false
		tok.Text = tok.Raw
		return
	}
	tok.Text = string(rune(code))
}

func literalEscape(text string) func(*Token, []string) {
	return func(tok *Token, _ []string) {
		tok.Text = text
	}
}

func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func invertSymbols(symbols map[string]lexer.TokenType) map[lexer.TokenType]string {
	out := make(map[lexer.TokenType]string, len(symbols))
	for name, tt := range symbols {
		out[tt] = name
	}
	return out
}

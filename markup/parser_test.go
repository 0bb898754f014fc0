package markup_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ByLCY/mtext/markup"
)

func kinds(tokens []markup.Token) []markup.Kind {
	out := make([]markup.Kind, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, t.Kind)
	}
	return out
}

func TestTokenizePlainText(t *testing.T) {
	for _, input := range []string{"", "ABC", "50% off", "a;b|c^d", "100%"} {
		tokens := markup.Tokenize(input)
		if len(tokens) != 1 {
			t.Fatalf("%q: expected one literal, got %d tokens", input, len(tokens))
		}
		if tokens[0].Kind != markup.Literal || tokens[0].Text != input {
			t.Fatalf("%q: unexpected token %+v", input, tokens[0])
		}
	}
}

func TestTokenizeDirectiveSequence(t *testing.T) {
	input := `AB\H2.5x;{\C1;red}\PC\S1^2;\fArial|b1|i0|c0|p34;D\Fstandard;`
	got := kinds(markup.Tokenize(input))
	want := []markup.Kind{
		markup.Literal,
		markup.HeightChange,
		markup.BlockBegin,
		markup.ColorIndex,
		markup.Literal,
		markup.BlockEnd,
		markup.ParagraphFeed,
		markup.Literal,
		markup.StackedText,
		markup.OutlineFontChange,
		markup.Literal,
		markup.StrokeFontChange,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("token kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitKeepsEmptyLiterals(t *testing.T) {
	literals, directives := markup.Split(`\P\P{}`)
	if len(literals) != len(directives)+1 {
		t.Fatalf("literal/directive invariant broken: %d literals, %d directives", len(literals), len(directives))
	}
	if diff := cmp.Diff([]string{"", "", "", "", ""}, literals); diff != "" {
		t.Fatalf("unexpected literals (-want +got):\n%s", diff)
	}
}

func TestEscapes(t *testing.T) {
	cases := map[string]string{
		"%%d":       "°",
		"%%D":       "°",
		"%%p":       "±",
		"%%P":       "±",
		"%%c":       "⌀",
		"%%C":       "⌀",
		`\U+00E9`:   "é",
		`\u+00e9`:   "é",
		`\{`:        "{",
		`\}`:        "}",
		`\\`:        `\`,
		`\~`:        "\u00a0",
		`10%%d C`:   "10° C",
		`a\\b\{c\}`: `a\b{c}`,
	}
	for input, want := range cases {
		var b strings.Builder
		for _, tok := range markup.Tokenize(input) {
			switch tok.Kind {
			case markup.Literal, markup.Escape, markup.NonBreakingSpace:
				b.WriteString(tok.Text)
			default:
				t.Fatalf("%q: unexpected directive %s", input, tok.Kind)
			}
		}
		if got := b.String(); got != want {
			t.Fatalf("%q: expected %q, got %q", input, want, got)
		}
	}
}

func TestDecodeArguments(t *testing.T) {
	cases := []struct {
		raw  string
		want markup.Token
	}{
		{`\H2.5;`, markup.Token{Kind: markup.HeightChange, Number: 2.5, Valid: true}},
		{`\H.5x;`, markup.Token{Kind: markup.HeightChange, Number: 0.5, Relative: true, Valid: true}},
		{`\S1/4^16;`, markup.Token{Kind: markup.StackedText, Numerator: "1/4", Denominator: "16", Valid: true}},
		{`\C256;`, markup.Token{Kind: markup.ColorIndex, Int: 256, Valid: true}},
		{`\c16711680;`, markup.Token{Kind: markup.ColorCustom, Int: 16711680, Valid: true}},
		{`\pxi1.5;`, markup.Token{Kind: markup.LineFeed, Number: 1.5, Valid: true}},
		{`\p`, markup.Token{Kind: markup.LineFeed, Valid: true}},
		{`\A1;`, markup.Token{Kind: markup.AlignmentChange, Int: 1, Valid: true}},
		{`\W0.8;`, markup.Token{Kind: markup.WidthChange, Number: 0.8, Valid: true}},
		{`\Fromans|c0;`, markup.Token{Kind: markup.StrokeFontChange, Font: "romans", Valid: true}},
		{`\Fstandard;`, markup.Token{Kind: markup.StrokeFontChange, Font: "standard", Valid: true}},
		{`\fTimes New Roman|b1|i1|c0|p18;`, markup.Token{Kind: markup.OutlineFontChange, Font: "Times New Roman", Bold: true, Italic: true, Pitch: 18, Valid: true}},
	}
	for _, tc := range cases {
		got, ok := markup.Decode(tc.raw)
		if !ok {
			t.Fatalf("%q: not recognized as directive", tc.raw)
		}
		tc.want.Raw = tc.raw
		if diff := cmp.Diff(tc.want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
			t.Fatalf("%q: decoded token mismatch (-want +got):\n%s", tc.raw, diff)
		}
	}
}

func TestUnrecognizedBackslashStaysLiteral(t *testing.T) {
	tokens := markup.Tokenize(`\X5;\H;abc`)
	if len(tokens) != 1 || tokens[0].Kind != markup.Literal {
		t.Fatalf("expected a single literal, got %+v", tokens)
	}
	if tokens[0].Text != `\X5;\H;abc` {
		t.Fatalf("literal text changed: %q", tokens[0].Text)
	}
}

func TestPriorityOrder(t *testing.T) {
	// \p with an indent argument is one line-feed token, not \p followed by text
	tokens := markup.Tokenize(`A\pxi2;B`)
	if diff := cmp.Diff([]markup.Kind{markup.Literal, markup.LineFeed, markup.Literal}, kinds(tokens)); diff != "" {
		t.Fatalf("unexpected kinds (-want +got):\n%s", diff)
	}
	// the stroke-font rule wins over a later brace
	tokens = markup.Tokenize(`\Fa;{x}`)
	if tokens[0].Kind != markup.StrokeFontChange || tokens[0].Font != "a" {
		t.Fatalf("expected stroke font change, got %+v", tokens[0])
	}
}

func TestTokenPositions(t *testing.T) {
	tokens := markup.Tokenize(`ab\Pcd`)
	if len(tokens) != 3 {
		t.Fatalf("expected 3 tokens, got %d", len(tokens))
	}
	if tokens[1].Pos != 2 || tokens[2].Pos != 4 {
		t.Fatalf("unexpected positions: %d, %d", tokens[1].Pos, tokens[2].Pos)
	}
}

func TestReplaceSpecial(t *testing.T) {
	got := markup.ReplaceSpecial(`%%c20\P%%p0.1 \U+00B2`)
	if want := "⌀20\\P±0.1 ²"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestEscapeRoundTrip(t *testing.T) {
	raw := `C:\dir{1}`
	tokens := markup.Tokenize(markup.EscapeText(raw))
	var b strings.Builder
	for _, tok := range tokens {
		if tok.Kind != markup.Literal && tok.Kind != markup.Escape {
			t.Fatalf("unexpected directive %s", tok.Kind)
		}
		b.WriteString(tok.Text)
	}
	if b.String() != raw {
		t.Fatalf("expected %q, got %q", raw, b.String())
	}
}

func TestIsDirective(t *testing.T) {
	tokens := markup.Tokenize(`a\P%%d`)
	want := []bool{false, true, true}
	if len(tokens) != len(want) {
		t.Fatalf("expected %d tokens, got %d", len(want), len(tokens))
	}
	for i, tok := range tokens {
		if tok.IsDirective() != want[i] {
			t.Fatalf("token %d (%s): IsDirective = %v", i, tok.Kind, tok.IsDirective())
		}
	}
	// 转义后的文本不再包含格式指令
	for _, tok := range markup.Tokenize(markup.EscapeText(`\P{x}`)) {
		if tok.IsDirective() && tok.Kind != markup.Escape {
			t.Fatalf("unexpected directive %s in escaped text", tok.Kind)
		}
	}
}

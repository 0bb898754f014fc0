package binding

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/mtext/markup"
)

func decode(t *testing.T, src string) any {
	t.Helper()
	var data any
	require.NoError(t, json.Unmarshal([]byte(src), &data))
	return data
}

func TestInterpolate(t *testing.T) {
	data := decode(t, `{
		"part": {"name": "Flange", "size": 1500000, "ok": true},
		"rows": [["a", "b"], ["c", "d"]],
		"note": "x{y}\\z",
		"multi": "line1\nline2",
		"none": null
	}`)

	cases := []struct {
		in, want string
	}{
		{`\C1;${part.name}`, `\C1;Flange`},
		{`${ part.size }mm`, `1500000mm`},
		{`${part.ok}`, `true`},
		{`${rows[1][0]}`, `c`},
		{`${note}`, `x\{y\}\\z`},
		{`${multi}`, `line1\Pline2`},
		{`[${none}]`, `[]`},
		{`${missing.path}`, `${missing.path}`},
		{`${rows[9]}`, `${rows[9]}`},
		{`${rows[x]}`, `${rows[x]}`},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Interpolate(tc.in, data), tc.in)
	}
	assert.Equal(t, "${a}", Interpolate("${a}", nil))
}

func TestInterpolatedValuesStayLiteral(t *testing.T) {
	data := map[string]any{"v": `{\H9;big}`}
	out := Interpolate(`A${v}B`, data)
	var text string
	for _, tok := range markup.Tokenize(out) {
		require.Contains(t, []markup.Kind{markup.Literal, markup.Escape}, tok.Kind, tok.Raw)
		text += tok.Text
	}
	assert.Equal(t, `A{\H9;big}B`, text)
}

func TestMissing(t *testing.T) {
	data := map[string]any{"a": "1", "m": map[string]string{"k": "v"}}
	assert.Equal(t, []string{"b", "c.d"}, Missing("${a}${b}${m.k}${ c.d }", data))
	assert.Empty(t, Missing("no fields", data))
}

package canvasrenderer

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/ByLCY/mtext/cxf"
	"github.com/ByLCY/mtext/fonts"
	"github.com/ByLCY/mtext/layout"
	"github.com/ByLCY/mtext/palette"
	"github.com/ByLCY/mtext/renderer"
)

func near(a, b, eps float64) bool { return math.Abs(a-b) <= eps }

func TestBackendNormalizesToCapitalHeight(t *testing.T) {
	b := NewBackend(nil, false)
	g, err := b.RenderRun(layout.RunRequest{Text: "A", Font: layout.FontSpec{Name: "NoSuchFont"}})
	if err != nil {
		t.Fatalf("RenderRun error: %v", err)
	}
	if len(g.Paths) != 1 {
		t.Fatalf("expected 1 path, got %d", len(g.Paths))
	}
	bounds := g.Paths[0].Bounds()
	if !near(bounds.MaxY, 1, 1e-6) || !near(bounds.MinY, 0, 1e-6) {
		t.Fatalf("A should span 0..1, got %g..%g", bounds.MinY, bounds.MaxY)
	}
	if !g.Paths[0].Fill {
		t.Fatalf("outline glyphs must be filled")
	}
	if g.Advance <= 0 || g.Advance != g.AdvanceNoSpacing {
		t.Fatalf("unexpected advance %g / %g", g.Advance, g.AdvanceNoSpacing)
	}
	if g.Ascent < 1 || g.Descent >= 0 {
		t.Fatalf("unexpected metrics ascent=%g descent=%g", g.Ascent, g.Descent)
	}
}

func TestBackendInjectedFontMatchesFallbackMetrics(t *testing.T) {
	b := NewBackend(map[string]Resource{"Body": {Bytes: fonts.Outline(false, false)}}, false)
	req := layout.RunRequest{Text: "Hello world", Font: layout.FontSpec{Name: "body"}}
	injected, err := b.RenderRun(req)
	if err != nil {
		t.Fatalf("RenderRun error: %v", err)
	}
	req.Font.Name = "missing"
	fallback, err := b.RenderRun(req)
	if err != nil {
		t.Fatalf("RenderRun error: %v", err)
	}
	if !near(injected.Advance, fallback.Advance, 1e-9) {
		t.Fatalf("same font bytes should give same advance: %g vs %g", injected.Advance, fallback.Advance)
	}
}

func TestBackendSplitsByColor(t *testing.T) {
	b := NewBackend(nil, false)
	red := palette.RGB(255, 0, 0)
	g, err := b.RenderRun(layout.RunRequest{
		Text:    "ab cd",
		Formats: []layout.FormatRange{{Start: 0, Length: 2}, {Start: 2, Length: 3, Color: red}},
	})
	if err != nil {
		t.Fatalf("RenderRun error: %v", err)
	}
	if len(g.Paths) != 2 {
		t.Fatalf("expected 2 colored paths, got %d", len(g.Paths))
	}
	if g.Paths[0].FixedColor || !g.Paths[1].FixedColor || g.Paths[1].Color != red {
		t.Fatalf("unexpected colors: %+v / %+v", g.Paths[0].Color, g.Paths[1].Color)
	}
	if g.Paths[1].Bounds().MinX <= g.Paths[0].Bounds().MaxX {
		t.Fatalf("second segment should start after the first")
	}
}

func TestColorSegments(t *testing.T) {
	red := palette.RGB(255, 0, 0)
	segs := colorSegments([]rune("abcd"), []layout.FormatRange{
		{Start: 0, Length: 1},
		{Start: 1, Length: 0, Color: red}, // 空区间不生效
		{Start: 2, Length: 2, Color: red},
	})
	if len(segs) != 2 || segs[0].text != "ab" || segs[1].text != "cd" || segs[1].color != red {
		t.Fatalf("unexpected segments %+v", segs)
	}
	if got := colorSegments(nil, nil); len(got) != 0 {
		t.Fatalf("empty text should give no segments, got %+v", got)
	}
}

func TestSystemCandidates(t *testing.T) {
	got := systemCandidates(layout.FontSpec{Name: "Arial", Bold: true})
	if got[0] != "Arialbd.ttf" || got[len(got)-1] != "Arial" {
		t.Fatalf("unexpected candidates %v", got)
	}
}

func TestBackendConcurrentRuns(t *testing.T) {
	b := NewBackend(nil, false)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(bold bool) {
			defer wg.Done()
			if _, err := b.RenderRun(layout.RunRequest{Text: "Ag", Font: layout.FontSpec{Name: "x", Bold: bold}}); err != nil {
				t.Errorf("RenderRun error: %v", err)
			}
		}(i%2 == 0)
	}
	wg.Wait()
}

func buildSample(t *testing.T, r *Renderer) *layout.Result {
	t.Helper()
	reg, err := cxf.NewRegistry(cxf.RegistryOptions{})
	if err != nil {
		t.Fatalf("NewRegistry error: %v", err)
	}
	res, err := layout.Build(layout.Document{
		Text:     `{\C1;Outline}\P\Fstandard;Stroke \S1^2;`,
		Height:   5,
		FontName: "Sans",
	}, layout.BuildOptions{Outline: r.Backend(), Stroke: cxf.NewBackend(reg)})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	return res
}

func TestRenderPDF(t *testing.T) {
	r := NewRendererWithOptions(Options{ShowBoxes: true})
	data, err := r.Render(buildSample(t, r))
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("expected PDF header, got %q", data[:min(len(data), 8)])
	}
}

func TestRenderSVG(t *testing.T) {
	r := NewRendererWithOptions(Options{Format: FormatSVG})
	data, err := r.Render(buildSample(t, r))
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	svg := string(data)
	if !strings.Contains(svg, "<svg") || !strings.Contains(svg, "<path") {
		t.Fatalf("unexpected SVG output: %.200s", svg)
	}
}

func TestRenderEmptyResult(t *testing.T) {
	r := NewRenderer()
	if _, err := r.Render(nil); !errors.Is(err, renderer.ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult, got %v", err)
	}
	if _, err := r.Render(&layout.Result{}); !errors.Is(err, renderer.ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult, got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{"": FormatPDF, "PDF": FormatPDF, " svg ": FormatSVG}
	for in, want := range cases {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("png"); err == nil {
		t.Fatalf("expected error for png")
	}
}

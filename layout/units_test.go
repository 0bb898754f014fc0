package layout

import (
	"math"
	"testing"
)

// TestPtMmRoundTrip 验证 pt↔mm 换算的往返精度（允许极小的浮点误差）。
func TestPtMmRoundTrip(t *testing.T) {
	samples := []float64{0, 0.001, 1, 2.5, 12, 72, 1000}
	for _, pt := range samples {
		mm := pt * PtToMm
		back := mm * MmToPt
		if diff := math.Abs(back - pt); diff > 1e-9 {
			t.Fatalf("pt→mm→pt 往返误差过大: in=%gpt mm=%g back=%g diff=%g", pt, mm, back, diff)
		}
	}
}

// TestLengthConversions 覆盖 Length 在常见单位上的转换正确性。
func TestLengthConversions(t *testing.T) {
	if got := (Length{Value: 1, Unit: UnitIN}).ToMM(); math.Abs(got-25.4) > 1e-9 {
		t.Fatalf("1in 转 mm 期望 25.4，实际 %g", got)
	}
	if got := (Length{Value: 2.54, Unit: UnitCM}).ToMM(); math.Abs(got-25.4) > 1e-9 {
		t.Fatalf("2.54cm 转 mm 期望 25.4，实际 %g", got)
	}
	if got := (Length{Value: 12, Unit: UnitPT}).ToMM(); math.Abs(got-12*PtToMm) > 1e-9 {
		t.Fatalf("12pt 转 mm 期望 %g，实际 %g", 12*PtToMm, got)
	}
	if got := (Length{Value: 10, Unit: UnitMM}).ToPT(); math.Abs(got-10*MmToPt) > 1e-9 {
		t.Fatalf("10mm 转 pt 期望 %g，实际 %g", 10*MmToPt, got)
	}
	if got := (Length{Value: 3}).ToMM(); got != 3 {
		t.Fatalf("无单位长度应按绘图单位处理，实际 %g", got)
	}
}

func TestParseLength(t *testing.T) {
	cases := []struct {
		in   string
		want Length
	}{
		{"10mm", Length{Value: 10, Unit: UnitMM}},
		{" 0.5 IN ", Length{Value: 0.5, Unit: UnitIN}},
		{"12pt", Length{Value: 12, Unit: UnitPT}},
		{"4", Length{Value: 4}},
		{"", Length{}},
	}
	for _, c := range cases {
		got, err := ParseLength(c.in)
		if err != nil {
			t.Fatalf("解析 %q 失败: %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("解析 %q 期望 %+v，实际 %+v", c.in, c.want, got)
		}
	}
	if _, err := ParseLength("abcmm"); err == nil {
		t.Fatalf("非法长度应返回错误")
	}
}

func TestRichTextSize(t *testing.T) {
	if got := RichTextSize(2.5, 0); got != 2.5 {
		t.Fatalf("系数缺省时期望 2.5，实际 %g", got)
	}
	if got := RichTextSize(2.5, 4); got != 10 {
		t.Fatalf("期望 10，实际 %g", got)
	}
}

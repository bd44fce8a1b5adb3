package layout

import (
	"math"
	"testing"
)

// TestPtMmRoundTrip 验证 pt↔mm 换算的往返精度（允许极小的浮点误差）。
func TestPtMmRoundTrip(t *testing.T) {
	samples := []float64{0, 0.001, 1, 12, 14.4, 72, 96, 144, 1000}
	for _, pt := range samples {
		back := pt * PtToMm * MmToPt
		if diff := math.Abs(back - pt); diff > 1e-9 {
			t.Fatalf("pt→mm→pt 往返误差过大: in=%gpt back=%g diff=%g", pt, back, diff)
		}
	}
}

// TestLengthConversions 覆盖 Length 在常见单位上到 mm/px 的转换。
func TestLengthConversions(t *testing.T) {
	cases := []struct {
		in     Length
		wantMM float64
	}{
		{Length{Value: 1, Unit: UnitIN}, 25.4},
		{Length{Value: 2.54, Unit: UnitCM}, 25.4},
		{Length{Value: 96, Unit: UnitPX}, 25.4},
		{Length{Value: 72, Unit: UnitPT}, 72 * PtToMm},
	}
	for _, tc := range cases {
		if got := tc.in.ToMM(); math.Abs(got-tc.wantMM) > 1e-9 {
			t.Fatalf("%g%s 转 mm 期望 %g，实际 %g", tc.in.Value, tc.in.Unit, tc.wantMM, got)
		}
	}
	if got := (Length{Value: 1.5, Unit: UnitPT}).String(); got != "1.5pt" {
		t.Fatalf("期望 1.5pt，实际 %s", got)
	}
	if got := Px(10).String(); got != "10px" {
		t.Fatalf("期望 10px，实际 %s", got)
	}
}

func TestParseLength(t *testing.T) {
	cases := map[string]Length{
		"12pt":  {Value: 12, Unit: UnitPT},
		" 3mm ": {Value: 3, Unit: UnitMM},
		"10":    {Value: 10, Unit: UnitPX},
		"1.5in": {Value: 1.5, Unit: UnitIN},
		"20PX":  {Value: 20, Unit: UnitPX},
	}
	for in, want := range cases {
		got, ok := ParseLength(in)
		if !ok || got != want {
			t.Fatalf("解析 %q 期望 %+v，实际 %+v (%v)", in, want, got, ok)
		}
	}
	for _, bad := range []string{"", "abc", "pt"} {
		if _, ok := ParseLength(bad); ok {
			t.Fatalf("解析 %q 应失败", bad)
		}
	}
}

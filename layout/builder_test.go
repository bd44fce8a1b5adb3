package layout

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func gridItem(index int, id string, start, end, group int) Item {
	return Item{
		Index:    index,
		ID:       id,
		Position: Position{Col: &ColSpan{Start: start, End: end}, Group: intp(group)},
	}
}

var grid12 = Grid{Width: 1200, Height: 800, NumberOfCols: 12, RowHeight: 20}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// TestLeftSpaceAcrossSkippedColumn 验证跳过一列时后一个实例的 leftSpace 为一个基础列宽。
func TestLeftSpaceAcrossSkippedColumn(t *testing.T) {
	res, err := Build(grid12, []Group{{Items: []Item{
		gridItem(0, "a", 1, 3, 0),
		gridItem(1, "b", 5, 6, 0),
	}}}, Options{})
	if err != nil {
		t.Fatalf("布局失败: %v", err)
	}
	a, _ := res.Lookup(0)
	b, _ := res.Lookup(1)
	if a.LeftSpace != 0 {
		t.Fatalf("第一个实例 leftSpace 期望 0，实际 %g", a.LeftSpace)
	}
	if b.LeftSpace != 100 {
		t.Fatalf("第二个实例 leftSpace 期望 100，实际 %g", b.LeftSpace)
	}
	if a.Width != 300 || b.Width != 200 {
		t.Fatalf("宽度错误: a=%g b=%g", a.Width, b.Width)
	}
	if len(res.Rows) != 1 || len(res.Rows[0].Boxes) != 2 {
		t.Fatalf("期望一行两个实例，实际 %+v", res.Rows)
	}
}

// TestFirstInstanceNotAtColumnOne 固定首个实例不从第 1 列开始时的行为：
// 第 1 列即零偏移，因此从第 3 列开始的实例 leftSpace 为两列宽。
func TestFirstInstanceNotAtColumnOne(t *testing.T) {
	res, err := Build(grid12, []Group{{Items: []Item{gridItem(0, "a", 3, 4, 0)}}}, Options{})
	if err != nil {
		t.Fatalf("布局失败: %v", err)
	}
	a, _ := res.Lookup(0)
	if a.LeftSpace != 200 {
		t.Fatalf("leftSpace 期望 200，实际 %g", a.LeftSpace)
	}
}

// TestConsumedColumnsResetPerGroup 验证已占用列在每个分组重新计数。
func TestConsumedColumnsResetPerGroup(t *testing.T) {
	res, err := Build(grid12, []Group{
		{Items: []Item{gridItem(0, "a", 1, 10, 0)}},
		{Items: []Item{gridItem(1, "b", 2, 2, 1)}},
	}, Options{})
	if err != nil {
		t.Fatalf("布局失败: %v", err)
	}
	b, _ := res.Lookup(1)
	if b.LeftSpace != 100 || b.Group != 1 {
		t.Fatalf("分组 1 的实例 leftSpace 期望 100，实际 %+v", b)
	}
}

func TestItemsSortedByStartColumn(t *testing.T) {
	res, err := Build(grid12, []Group{{Items: []Item{
		gridItem(0, "right", 7, 12, 0),
		gridItem(1, "left", 1, 2, 0),
	}}}, Options{})
	if err != nil {
		t.Fatalf("布局失败: %v", err)
	}
	boxes := res.Rows[0].Boxes
	if boxes[0].ID != "left" || boxes[1].ID != "right" {
		t.Fatalf("期望按起始列排序，实际 %s,%s", boxes[0].ID, boxes[1].ID)
	}
	if boxes[1].LeftSpace != 400 {
		t.Fatalf("right leftSpace 期望 400，实际 %g", boxes[1].LeftSpace)
	}
}

func TestRightSpaceFromDefaultSize(t *testing.T) {
	item := gridItem(0, "a", 1, 3, 0)
	item.DefaultSize = &Size{Width: 120, Height: 20}
	narrow := gridItem(1, "b", 4, 4, 0)
	narrow.DefaultSize = &Size{Width: 150}

	res, err := Build(grid12, []Group{{Items: []Item{item, narrow}}}, Options{})
	if err != nil {
		t.Fatalf("布局失败: %v", err)
	}
	a, _ := res.Lookup(0)
	if a.RightSpace != 180 {
		t.Fatalf("rightSpace 期望 180，实际 %g", a.RightSpace)
	}
	b, _ := res.Lookup(1)
	if b.RightSpace != 0 {
		t.Fatalf("默认宽度超过跨度时 rightSpace 应为 0，实际 %g", b.RightSpace)
	}
}

func TestTopSpaceCountsEmptyGroups(t *testing.T) {
	res, err := Build(grid12, []Group{
		{Index: 0, Items: []Item{gridItem(0, "a", 1, 2, 0)}},
		{Index: 1},
		{Index: 3, Items: []Item{gridItem(1, "b", 1, 2, 3)}, TopSpace: 1},
	}, Options{})
	if err != nil {
		t.Fatalf("布局失败: %v", err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("空分组不应产生行，实际 %d 行", len(res.Rows))
	}
	if res.Rows[0].TopSpace != 0 {
		t.Fatalf("首行 topSpace 期望 0，实际 %g", res.Rows[0].TopSpace)
	}
	second := res.Rows[1]
	if second.TopSpace != 3 || second.TopSpacePx != 60 || second.Group != 3 {
		t.Fatalf("期望分组 3 的 topSpace=3 (60px)，实际 %+v", second)
	}

	// 开头缺失的分组同样计入
	res, err = Build(grid12, []Group{{Index: 1, Items: []Item{gridItem(0, "a", 1, 2, 1)}}}, Options{})
	if err != nil {
		t.Fatalf("布局失败: %v", err)
	}
	if res.Rows[0].TopSpace != 1 {
		t.Fatalf("期望 topSpace=1，实际 %g", res.Rows[0].TopSpace)
	}
}

func TestGroupIndexMustIncrease(t *testing.T) {
	for name, groups := range map[string][]Group{
		"duplicate": {{Index: 1}, {Index: 1}},
		"reversed":  {{Index: 2}, {Index: 0}},
		"negative":  {{Index: -1}},
	} {
		if _, err := Build(grid12, groups, Options{}); err == nil {
			t.Fatalf("%s: 期望分组序号错误", name)
		}
	}
}

func TestFreeModePassthrough(t *testing.T) {
	free := Item{Index: 4, ID: "f", Position: Position{Top: floatp(35), Left: floatp(12.5)}}
	res, err := Build(grid12, []Group{{Items: []Item{free}}}, Options{Percent: true})
	if err != nil {
		t.Fatalf("布局失败: %v", err)
	}
	if len(res.Rows) != 0 || len(res.Free) != 1 {
		t.Fatalf("自由模式不应参与行计算: %+v", res)
	}
	box, ok := res.Lookup(4)
	if !ok || box.Mode != ModeFree || box.Top != 35 || box.Left != 12.5 {
		t.Fatalf("自由模式几何错误: %+v", box)
	}
	if box.WidthPercent != 0 {
		t.Fatalf("自由模式不计算百分比")
	}
}

func TestPercentMode(t *testing.T) {
	res, err := Build(grid12, []Group{{Items: []Item{
		gridItem(0, "a", 1, 3, 0),
		gridItem(1, "b", 5, 6, 0),
	}}}, Options{Percent: true})
	if err != nil {
		t.Fatalf("布局失败: %v", err)
	}
	a, _ := res.Lookup(0)
	b, _ := res.Lookup(1)
	if !approx(a.WidthPercent, 25) || a.LeftSpacePercent != 0 {
		t.Fatalf("a 百分比错误: %+v", a)
	}
	if !approx(b.WidthPercent, 100.0/6) || !approx(b.LeftSpacePercent, 100.0/12) {
		t.Fatalf("b 百分比错误: %+v", b)
	}
}

func TestBuildErrors(t *testing.T) {
	cases := map[string]struct {
		grid   Grid
		groups []Group
	}{
		"zero cols":    {Grid{Width: 100, NumberOfCols: 0}, nil},
		"zero width":   {Grid{Width: 0, NumberOfCols: 4}, nil},
		"out of range": {grid12, []Group{{Items: []Item{gridItem(0, "a", 11, 13, 0)}}}},
		"inverted":     {grid12, []Group{{Items: []Item{gridItem(0, "a", 4, 2, 0)}}}},
		"overlap": {grid12, []Group{{Items: []Item{
			gridItem(0, "a", 1, 4, 0),
			gridItem(1, "b", 4, 6, 0),
		}}}},
		"no position": {grid12, []Group{{Items: []Item{{Index: 0, ID: "x"}}}}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Build(tc.grid, tc.groups, Options{}); err == nil {
				t.Fatalf("期望错误")
			}
		})
	}
}

func TestGroupInstances(t *testing.T) {
	items := []Item{
		gridItem(0, "a", 1, 2, 2),
		gridItem(1, "b", 1, 2, 0),
		{Index: 2, ID: "free", Position: Position{Top: floatp(1), Left: floatp(1)}},
	}
	groups := GroupInstances(items)
	if len(groups) != 2 {
		t.Fatalf("只应返回出现过的分组，实际 %d", len(groups))
	}
	if groups[0].Index != 0 || len(groups[0].Items) != 2 || groups[1].Index != 2 || groups[1].Items[0].ID != "a" {
		t.Fatalf("分组结果错误: %+v", groups)
	}
	if len(GroupInstances(nil)) != 0 {
		t.Fatalf("空输入应返回空分组")
	}

	res, err := Build(grid12, groups, Options{})
	if err != nil {
		t.Fatalf("布局失败: %v", err)
	}
	if len(res.Rows) != 2 || res.Rows[1].TopSpace != 1 {
		t.Fatalf("缺失的分组 1 应计入 topSpace: %+v", res.Rows)
	}
}

// TestGroupInstancesSparseIndex 验证极大的分组序号不会按序号分配内存。
func TestGroupInstancesSparseIndex(t *testing.T) {
	groups := GroupInstances([]Item{
		gridItem(0, "a", 1, 2, 0),
		gridItem(1, "b", 1, 2, 4000000000000),
	})
	if len(groups) != 2 || groups[1].Index != 4000000000000 {
		t.Fatalf("分组结果错误: %+v", groups)
	}
	res, err := Build(grid12, groups, Options{})
	if err != nil {
		t.Fatalf("布局失败: %v", err)
	}
	if got := res.Rows[1].TopSpace; got != 3999999999999 {
		t.Fatalf("topSpace 期望按序号差值计算，实际 %g", got)
	}
}

func TestWriteDebugJSON(t *testing.T) {
	res, err := Build(grid12, []Group{{Items: []Item{gridItem(0, "a", 2, 3, 0)}}}, Options{})
	if err != nil {
		t.Fatalf("布局失败: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteDebugJSON(&buf, res); err != nil {
		t.Fatalf("写出调试 JSON 失败: %v", err)
	}
	if !strings.Contains(buf.String(), `"leftSpace": 100`) {
		t.Fatalf("调试 JSON 缺少 leftSpace: %s", buf.String())
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("调试 JSON 无法解析: %v", err)
	}
}

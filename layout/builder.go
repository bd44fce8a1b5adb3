package layout

import (
	"fmt"
	"math"
	"sort"
)

// Build 根据网格与分组后的实例计算几何信息。
//
// 网格模式下同一分组内按起始列从左到右累计已占用的列：两个实例之间空出的列
// 变为后者的 leftSpace，分组的第一个实例从第 0 列开始计算（第 1 列起始即为 0）。
// 跨度宽度超出实例默认宽度的部分为 rightSpace。自由模式直接透传 top/left。
// 分组按 Group.Index 严格递增排列；序号之间缺失的分组以及没有网格实例的分组
// 不产生行，但会计入下一个非空分组的 topSpace。
func Build(grid Grid, groups []Group, opts Options) (*Result, error) {
	if grid.NumberOfCols < 1 {
		return nil, fmt.Errorf("layout: numberOfCols 必须 >= 1，实际为 %d", grid.NumberOfCols)
	}
	if grid.Width <= 0 {
		return nil, fmt.Errorf("layout: width 必须 > 0，实际为 %g", grid.Width)
	}

	res := &Result{
		Grid:    grid,
		Percent: opts.Percent,
		Rows:    []Row{},
		Free:    []Box{},
		byIndex: map[int]Box{},
	}
	base := grid.BaseColWidth()
	lastNonEmpty := -1

	for i, group := range groups {
		gi := group.Index
		if gi < 0 || (i > 0 && gi <= groups[i-1].Index) {
			return nil, fmt.Errorf("layout: 分组序号 %d 无效，必须非负且严格递增", gi)
		}
		var gridItems []Item
		for _, item := range group.Items {
			switch item.Position.Mode() {
			case ModeFree:
				box := freeBox(item, gi)
				res.Free = append(res.Free, box)
				res.byIndex[item.Index] = box
			case ModeGrid:
				gridItems = append(gridItems, item)
			default:
				return nil, fmt.Errorf("layout: 实例 %q 的位置既没有 top/left 也没有 col", item.ID)
			}
		}
		if len(gridItems) == 0 {
			continue
		}

		sort.SliceStable(gridItems, func(i, j int) bool {
			return gridItems[i].Position.Col.Start < gridItems[j].Position.Col.Start
		})

		topSpace := group.TopSpace + float64(gi-lastNonEmpty-1)
		lastNonEmpty = gi
		row := Row{
			Group:      gi,
			TopSpace:   topSpace,
			TopSpacePx: topSpace * grid.RowHeight,
			Boxes:      make([]Box, 0, len(gridItems)),
		}

		lastConsumed := 0
		for _, item := range gridItems {
			col := *item.Position.Col
			if col.Start < 1 || col.End < col.Start || col.End > grid.NumberOfCols {
				return nil, fmt.Errorf("layout: 实例 %q 的列跨度 %d-%d 超出网格 1-%d", item.ID, col.Start, col.End, grid.NumberOfCols)
			}
			if col.Start <= lastConsumed {
				return nil, fmt.Errorf("layout: 实例 %q 的列跨度 %d-%d 与分组 %d 中前一实例重叠", item.ID, col.Start, col.End, gi)
			}

			box := gridBox(item, gi, col, lastConsumed, base)
			if opts.Percent {
				applyPercent(&box, grid, col, lastConsumed)
			}
			row.Boxes = append(row.Boxes, box)
			res.byIndex[item.Index] = box
			lastConsumed = col.End
		}
		res.Rows = append(res.Rows, row)
	}
	return res, nil
}

func freeBox(item Item, group int) Box {
	box := Box{Index: item.Index, ID: item.ID, Mode: ModeFree, Group: group}
	if item.Position.Top != nil {
		box.Top = *item.Position.Top
	}
	if item.Position.Left != nil {
		box.Left = *item.Position.Left
	}
	if item.DefaultSize != nil {
		box.Width = item.DefaultSize.Width
		box.Height = item.DefaultSize.Height
	}
	return box
}

func gridBox(item Item, group int, col ColSpan, lastConsumed int, base float64) Box {
	width := float64(col.Cols()) * base
	box := Box{
		Index:     item.Index,
		ID:        item.ID,
		Mode:      ModeGrid,
		Group:     group,
		Start:     col.Start,
		End:       col.End,
		Width:     width,
		LeftSpace: float64(col.Start-lastConsumed-1) * base,
	}
	if item.DefaultSize != nil {
		box.Height = item.DefaultSize.Height
		if item.DefaultSize.Width > 0 {
			box.RightSpace = math.Max(0, width-item.DefaultSize.Width)
		}
	}
	return box
}

// applyPercent 按 100 / (numberOfCols / consumedCols) 计算百分比宽度。
func applyPercent(box *Box, grid Grid, col ColSpan, lastConsumed int) {
	total := float64(grid.NumberOfCols)
	box.WidthPercent = 100 / (total / float64(col.Cols()))
	if gap := col.Start - lastConsumed - 1; gap > 0 {
		box.LeftSpacePercent = 100 / (total / float64(gap))
	}
	if box.RightSpace > 0 {
		box.RightSpacePercent = box.RightSpace / grid.Width * 100
	}
}

// GroupInstances 将扁平的实例按 position.group 分组，缺省分组为 0。
// 只返回出现过的分组，按序号升序；缺失的序号由 Build 通过 Index 差值计入 topSpace。
func GroupInstances(items []Item) []Group {
	byGroup := map[int][]Item{}
	for _, item := range items {
		g := groupOf(item)
		byGroup[g] = append(byGroup[g], item)
	}
	indexes := make([]int, 0, len(byGroup))
	for g := range byGroup {
		indexes = append(indexes, g)
	}
	sort.Ints(indexes)

	groups := make([]Group, 0, len(indexes))
	for _, g := range indexes {
		groups = append(groups, Group{Index: g, Items: byGroup[g]})
	}
	return groups
}

func groupOf(item Item) int {
	if item.Position.Group != nil && *item.Position.Group > 0 {
		return *item.Position.Group
	}
	return 0
}

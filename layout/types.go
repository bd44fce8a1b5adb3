package layout

// 该文件定义网格、实例位置与布局结果，供布局计算、设计渲染与调试 JSON 共用。

// Grid 描述画布网格。Width/Height 与 RowHeight 单位为 px。
type Grid struct {
	Width        float64 `json:"width" yaml:"width" validate:"gt=0"`
	Height       float64 `json:"height" yaml:"height" validate:"gte=0"`
	NumberOfCols int     `json:"numberOfCols" yaml:"numberOfCols" validate:"gte=1"`
	RowHeight    float64 `json:"rowHeight" yaml:"rowHeight" validate:"gte=0"`
}

// BaseColWidth 返回单列宽度 width / numberOfCols。
func (g Grid) BaseColWidth() float64 {
	if g.NumberOfCols <= 0 {
		return 0
	}
	return g.Width / float64(g.NumberOfCols)
}

// Mode 表示实例的布局方式。
type Mode string

const (
	ModeGrid Mode = "grid" // 按列跨度排版
	ModeFree Mode = "free" // 绝对像素定位
)

// ColSpan 是从 1 开始、首尾均包含的列跨度。
type ColSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Cols 返回跨越的列数。
func (c ColSpan) Cols() int { return c.End - c.Start + 1 }

// Position 为 {top,left}（自由模式）或 {col,group}（网格模式）之一。
type Position struct {
	Top   *float64 `json:"top,omitempty"`
	Left  *float64 `json:"left,omitempty"`
	Col   *ColSpan `json:"col,omitempty"`
	Group *int     `json:"group,omitempty"`
}

// Mode 判断位置所属的布局方式，两种都不满足时返回空串。
func (p Position) Mode() Mode {
	switch {
	case p.Col != nil:
		return ModeGrid
	case p.Top != nil || p.Left != nil:
		return ModeFree
	default:
		return ""
	}
}

// Size 是组件的默认尺寸（px）。
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Item 是布局的输入单元。Index 由调用方分配（通常是实例在载荷中的序号），用于回查结果。
type Item struct {
	Index       int
	ID          string
	Position    Position
	DefaultSize *Size
}

// Group 是一行分组，Index 为分组序号，TopSpace 以行高为单位。
type Group struct {
	Index    int
	Items    []Item
	TopSpace float64
}

// Box 是单个实例计算后的几何信息，长度单位均为 px。
type Box struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
	Mode  Mode   `json:"mode"`
	Group int    `json:"group"`

	// 自由模式
	Top  float64 `json:"top,omitempty"`
	Left float64 `json:"left,omitempty"`

	// 网格模式
	Start      int     `json:"start,omitempty"`
	End        int     `json:"end,omitempty"`
	Width      float64 `json:"width,omitempty"`
	Height     float64 `json:"height,omitempty"` // 来自默认尺寸，未知时为 0
	LeftSpace  float64 `json:"leftSpace,omitempty"`
	RightSpace float64 `json:"rightSpace,omitempty"`

	// 百分比模式下的同名值（0-100）
	WidthPercent      float64 `json:"widthPercent,omitempty"`
	LeftSpacePercent  float64 `json:"leftSpacePercent,omitempty"`
	RightSpacePercent float64 `json:"rightSpacePercent,omitempty"`
}

// Vars 返回模板中 @layout 可访问的几何变量。
func (b Box) Vars() map[string]any {
	return map[string]any{
		"mode":       string(b.Mode),
		"top":        b.Top,
		"left":       b.Left,
		"width":      b.Width,
		"height":     b.Height,
		"leftSpace":  b.LeftSpace,
		"rightSpace": b.RightSpace,
		"start":      float64(b.Start),
		"end":        float64(b.End),
	}
}

// Row 是一个非空分组排版后的行。
type Row struct {
	Group int `json:"group"`
	// TopSpace 为生效的行高单位数，包含前面被跳过的空分组。
	TopSpace   float64 `json:"topSpace"`
	TopSpacePx float64 `json:"topSpacePx"`
	Boxes      []Box   `json:"boxes"`
}

// Result 保存一次布局的全部几何结果。
type Result struct {
	Grid    Grid  `json:"grid"`
	Percent bool  `json:"percent"`
	Rows    []Row `json:"rows"`
	Free    []Box `json:"free"`

	byIndex map[int]Box
}

// Lookup 按 Item.Index 查找实例的几何信息。
func (r *Result) Lookup(index int) (Box, bool) {
	if r == nil {
		return Box{}, false
	}
	b, ok := r.byIndex[index]
	return b, ok
}

// Len 返回已定位的实例数。
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.byIndex)
}

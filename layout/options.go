package layout

// Options 配置布局阶段的输出形式。
type Options struct {
	// Percent 为网格模式额外计算百分比宽度，用于响应式输出而非固定像素网格。
	Percent bool
}

package renderer

import "github.com/jsreport/jsreport-designer-sub001/layout"

// Renderer 将布局几何输出为预览文件，例如 PDF 线框图。
// Render 返回生成的二进制数据以及可能的错误。
type Renderer interface {
	Render(result *layout.Result) ([]byte, error)
}

// Package components 提供内置的 Text、Image、Table 与 Divider 组件定义。
package components

import (
	"embed"
	"fmt"
	"strings"

	"github.com/jsreport/jsreport-designer-sub001/binding"
	"github.com/jsreport/jsreport-designer-sub001/compiler"
	"github.com/jsreport/jsreport-designer-sub001/registry"
)

//go:embed templates/*.tmpl
var templates embed.FS

const (
	Text    = "Text"
	Image   = "Image"
	Table   = "Table"
	Divider = "Divider"
)

// 1x1 透明 GIF，Image 未设置 url 时使用。
const blankImage = "data:image/gif;base64,R0lGODlhAQABAIAAAAAAAP///yH5BAEAAAAALAAAAAABAAEAAAIBRAA7"

// Definitions 返回全部内置组件定义，每次调用都会生成新的默认属性。
func Definitions() []registry.Definition {
	return []registry.Definition{
		{
			Name: Text,
			DefaultProps: func() map[string]any {
				return map[string]any{"text": "Sample text"}
			},
			Template: template("text.tmpl"),
			PropsMeta: map[string]binding.PropMeta{
				"text": {Description: "显示的文本"},
			},
		},
		{
			Name: Image,
			DefaultProps: func() map[string]any {
				return map[string]any{
					"url": "",
					"alt": "",
					"style": map[string]any{
						"width":  map[string]any{"size": 100.0},
						"height": map[string]any{"size": 100.0},
					},
				}
			},
			Template: template("image.tmpl"),
			Funcs: compiler.FuncMap{
				"imageSrc": func(c *compiler.Call) (any, error) {
					if url, ok := c.Arg(0).(string); ok && strings.TrimSpace(url) != "" {
						return url, nil
					}
					return blankImage, nil
				},
			},
			PropsMeta: map[string]binding.PropMeta{
				"url": {Description: "图片地址，为空时输出透明占位图"},
				"alt": {Description: "替代文本"},
			},
		},
		{
			Name: Table,
			DefaultProps: func() map[string]any {
				return map[string]any{
					"data": []any{},
					"columns": []any{
						map[string]any{"name": "Column 1", "value": ""},
						map[string]any{"name": "Column 2", "value": ""},
					},
				}
			},
			Template: template("table.tmpl"),
			Funcs: compiler.FuncMap{
				"designerCell": cell,
			},
			Helpers: map[string]string{
				"designerCell": "function designerCell(value) {\n  return value == null ? '' : value\n}",
			},
			PropsMeta: map[string]binding.PropMeta{
				"data": {Description: "行数据数组"},
				"columns": {
					Description: "列定义；value 绑定针对 data 的每一行求值",
					Collection:  &binding.Collection{Source: "data", Field: "value", Target: "rows"},
				},
			},
		},
		{
			Name: Divider,
			DefaultProps: func() map[string]any {
				return map[string]any{
					"style": map[string]any{
						"border": map[string]any{
							"size":  1.0,
							"color": map[string]any{"r": 0.0, "g": 0.0, "b": 0.0, "a": 1.0},
						},
					},
				}
			},
			Template: template("divider.tmpl"),
		},
	}
}

// Register 把内置组件注册到 reg。
func Register(reg *registry.Registry) error {
	for _, def := range Definitions() {
		if err := reg.Register(def); err != nil {
			return fmt.Errorf("components: 注册 %s 失败: %w", def.Name, err)
		}
	}
	return nil
}

func template(name string) func() string {
	return func() string {
		data, err := templates.ReadFile("templates/" + name)
		if err != nil {
			panic(fmt.Sprintf("components: 缺少内置模板 %s", name))
		}
		return string(data)
	}
}

// cell 把单元格值转为文本，nil 输出空串。
func cell(c *compiler.Call) (any, error) {
	v := c.Arg(0)
	if v == nil {
		return "", nil
	}
	return compiler.Stringify(v), nil
}

package style

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jsreport/jsreport-designer-sub001/layout"
)

// 该文件负责把编辑器产出的样式值对象（盒模型、颜色、对齐等）转换为 CSS 声明串。

// Resolver 将单个样式值对象转换为 CSS 声明片段，返回空串表示跳过该样式。
type Resolver func(value any) string

// CanonicalOrder 是样式输出的固定顺序，决定 CSS 属性在结果中的先后，与数据中的键顺序无关。
var CanonicalOrder = []string{
	"width",
	"height",
	"margin",
	"padding",
	"background",
	"border",
	"color",
	"fontSize",
	"fontWeight",
	"textAlign",
}

var builtin = map[string]Resolver{
	"width":      sizeResolver("width"),
	"height":     sizeResolver("height"),
	"margin":     boxResolver("margin"),
	"padding":    boxResolver("padding"),
	"background": resolveBackground,
	"border":     resolveBorder,
	"color":      resolveColorDecl,
	"fontSize":   sizeResolver("font-size"),
	"fontWeight": keywordResolver("font-weight"),
	"textAlign":  keywordResolver("text-align"),
}

// Default 返回内置解析器表的副本，调用方可以在副本上追加或覆盖。
func Default() map[string]Resolver {
	out := make(map[string]Resolver, len(builtin))
	for name, r := range builtin {
		out[name] = r
	}
	return out
}

// Resolve 按 names 的顺序依次解析样式，片段之间以单个空格连接。
// 只有解析器与值同时存在且解析结果非空时才会输出；没有任何样式被解析时 ok 为 false，
// 调用方据此省略整个 style 属性（不会返回空串且 ok 为 true 的情况）。
func Resolve(names []string, resolvers map[string]Resolver, values map[string]any) (string, bool) {
	if len(values) == 0 {
		return "", false
	}
	parts := make([]string, 0, len(names))
	for _, name := range names {
		resolver, ok := resolvers[name]
		if !ok || resolver == nil {
			continue
		}
		value, ok := values[name]
		if !ok || value == nil {
			continue
		}
		if decl := strings.TrimSpace(resolver(value)); decl != "" {
			parts = append(parts, decl)
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, " "), true
}

// Attr 使用内置解析器与固定顺序生成 ` style="..."` 属性，无样式时返回空串。
func Attr(values map[string]any) string {
	css, ok := Resolve(CanonicalOrder, builtin, values)
	if !ok {
		return ""
	}
	return fmt.Sprintf(` style="%s"`, css)
}

// Declaration 解析单个样式名，供模板中按名称取样式使用。
func Declaration(name string, values map[string]any) (string, bool) {
	return Resolve([]string{name}, builtin, values)
}

// sizeResolver 接受 {unit, size} 对象或 "12pt" 这样带单位的字符串。
func sizeResolver(property string) Resolver {
	return func(value any) string {
		raw, unit := value, "px"
		if obj, ok := asMap(value); ok {
			raw, unit = obj["size"], unitOf(obj)
		}
		size, ok := length(raw, unit)
		if !ok {
			return ""
		}
		return fmt.Sprintf("%s: %s;", property, size)
	}
}

// boxResolver 支持两种简写：{unit, margin: 10} 与 {unit, margin: {top, left, right, bottom}}，
// 数值使用对象的单位，字符串可自带单位（如 "2mm"）；对象简写中缺失的方向取 0。
func boxResolver(property string) Resolver {
	return func(value any) string {
		obj, ok := asMap(value)
		if !ok {
			return ""
		}
		unit := unitOf(obj)
		raw, ok := obj[property]
		if !ok || raw == nil {
			return ""
		}
		var sides [4]string
		if scalar, ok := length(raw, unit); ok {
			sides = [4]string{scalar, scalar, scalar, scalar}
		} else if m, ok := asMap(raw); ok {
			for i, key := range []string{"top", "right", "bottom", "left"} {
				if sides[i], ok = length(m[key], unit); !ok {
					sides[i] = "0" + unit
				}
			}
		} else {
			return ""
		}
		return fmt.Sprintf("%[1]s-top: %[2]s; %[1]s-right: %[3]s; %[1]s-bottom: %[4]s; %[1]s-left: %[5]s;",
			property, sides[0], sides[1], sides[2], sides[3])
	}
}

// length 把数值格式化为 数值+unit；带单位的字符串按 layout.ParseLength 解析并保留原单位。
func length(value any, unit string) (string, bool) {
	if n, ok := number(value); ok {
		return formatNumber(n) + unit, true
	}
	s, ok := value.(string)
	if !ok {
		return "", false
	}
	l, ok := layout.ParseLength(s)
	if !ok {
		return "", false
	}
	return l.String(), true
}

func keywordResolver(property string) Resolver {
	return func(value any) string {
		var v string
		switch t := value.(type) {
		case string:
			v = strings.TrimSpace(t)
		default:
			if n, ok := number(value); ok {
				v = formatNumber(n)
			}
		}
		if v == "" {
			return ""
		}
		return fmt.Sprintf("%s: %s;", property, v)
	}
}

func resolveBackground(value any) string {
	obj, ok := asMap(value)
	if !ok {
		return ""
	}
	c, ok := FormatColor(obj["color"])
	if !ok {
		return ""
	}
	return fmt.Sprintf("background-color: %s;", c)
}

func resolveColorDecl(value any) string {
	c, ok := FormatColor(value)
	if !ok {
		return ""
	}
	return fmt.Sprintf("color: %s;", c)
}

func resolveBorder(value any) string {
	obj, ok := asMap(value)
	if !ok {
		return ""
	}
	size, ok := number(obj["size"])
	if !ok {
		return ""
	}
	kind, _ := obj["style"].(string)
	if kind == "" {
		kind = "solid"
	}
	decl := fmt.Sprintf("border: %s%s %s", formatNumber(size), unitOf(obj), kind)
	if c, ok := FormatColor(obj["color"]); ok {
		decl += " " + c
	}
	return decl + ";"
}

// FormatColor 把 {r,g,b,a} 格式化为 rgba(r,g,b,a)。
// 通道值不做范围校验，越界数值原样输出，由调用方负责。a 缺省为 1。
func FormatColor(value any) (string, bool) {
	obj, ok := asMap(value)
	if !ok {
		return "", false
	}
	r, okR := number(obj["r"])
	g, okG := number(obj["g"])
	b, okB := number(obj["b"])
	if !okR || !okG || !okB {
		return "", false
	}
	a, ok := number(obj["a"])
	if !ok {
		a = 1
	}
	return fmt.Sprintf("rgba(%s,%s,%s,%s)", formatNumber(r), formatNumber(g), formatNumber(b), formatNumber(a)), true
}

func unitOf(obj map[string]any) string {
	if u, ok := obj["unit"].(string); ok && strings.TrimSpace(u) != "" {
		return strings.TrimSpace(u)
	}
	return "px"
}

func asMap(value any) (map[string]any, bool) {
	switch v := value.(type) {
	case map[string]any:
		return v, true
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func number(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

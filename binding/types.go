package binding

import (
	"encoding/json"
	"fmt"
	"strings"
)

// 表达式类型
const (
	TypeData     = "data"
	TypeFunction = "function"
	TypeScalar   = "scalar"
)

// StylePrefix 标记样式级绑定，例如 "@style.color" 会写入 props.style.color。
const StylePrefix = "@style."

// Names 是绑定引用的表达式名，JSON 中既可以是单个字符串也可以是数组。
type Names []string

// UnmarshalJSON 同时接受 "a" 与 ["a","b"]。
func (n *Names) UnmarshalJSON(b []byte) error {
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*n = Names{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return fmt.Errorf("expression must be a string or an array of strings: %w", err)
	}
	*n = list
	return nil
}

// Binding 声明一个属性的值由一个或多个命名表达式计算得到。
type Binding struct {
	Expression Names    `json:"expression" yaml:"expression"`
	Compose    *Compose `json:"compose,omitempty" yaml:"compose,omitempty"`
}

// Compose 描述组合绑定：按条件选出 content 模板，再把子表达式结果代入 ${name} 占位符。
type Compose struct {
	Content     map[string]string `json:"content" yaml:"content"`
	Conditional *Conditional      `json:"conditional,omitempty" yaml:"conditional,omitempty"`
}

// Conditional 以某个 function 子表达式的布尔结果在 Content[Key] 与 Default 之间选择。
type Conditional struct {
	Expression string `json:"expression" yaml:"expression"`
	Key        string `json:"key,omitempty" yaml:"key,omitempty"`
	Default    string `json:"default" yaml:"default"`
}

// DefaultContentKey 是未指定 key 时使用的 content 键。
const DefaultContentKey = "default"

// Bindings 以绑定名（通常即属性名，或 @style.<name>）为键。
type Bindings map[string]Binding

// Expression 是一个带类型的命名计算。
type Expression struct {
	Type  string `json:"type" yaml:"type"`
	Value any    `json:"value" yaml:"value"`
}

// ExpressionSet 是某个属性下的命名表达式集合。
type ExpressionSet map[string]Expression

// ExpressionSets 以属性名为键。
type ExpressionSets map[string]ExpressionSet

// PropMeta 描述组件属性的元信息。
type PropMeta struct {
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Collection  *Collection `json:"collection,omitempty" yaml:"collection,omitempty"`
}

// Collection 声明重复子结构：属性数组中每个元素的 Field 若为绑定标记，
// 则针对 Source 数组的每一行单独求值，结果按行写入 Target。
type Collection struct {
	Source string `json:"source" yaml:"source"`
	Field  string `json:"field" yaml:"field"`
	Target string `json:"target" yaml:"target"`
}

// MarkerName 判断 value 是否为 {binding: name} 形式的绑定标记。
func MarkerName(value any) (string, bool) {
	m, ok := value.(map[string]any)
	if !ok || len(m) != 1 {
		return "", false
	}
	name, ok := m["binding"].(string)
	if !ok || strings.TrimSpace(name) == "" {
		return "", false
	}
	return name, true
}

// Marker 构造绑定标记。
func Marker(name string) map[string]any {
	return map[string]any{"binding": name}
}

package binding

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/ohler55/ojg/jp"
)

var placeholder = regexp.MustCompile(`\$\{([^}]+)\}`)

// 占位符路径的解析结果，nil 表示路径语法无效。
var placeholderPaths sync.Map

// Interpolate 将组合内容中的 ${name.path} 占位符替换为 values 中对应子表达式的结果。
// 路径语法同 JSONPath 去掉前导 $，例如 ${user.tags[1]}。
// values 为空、路径无效或不存在时保留原占位符；结果为 nil 时替换为空串。
func Interpolate(text string, values map[string]any) string {
	if len(values) == 0 {
		return text
	}
	return placeholder.ReplaceAllStringFunc(text, func(match string) string {
		path := placeholderPath(strings.TrimSpace(match[2 : len(match)-1]))
		if path == nil {
			return match
		}
		found := path.Get(values)
		if len(found) == 0 {
			return match
		}
		return stringify(found[0])
	})
}

func placeholderPath(src string) jp.Expr {
	if src == "" {
		return nil
	}
	if cached, ok := placeholderPaths.Load(src); ok {
		return cached.(jp.Expr)
	}
	path, err := jp.ParseString(src)
	if err != nil {
		path = nil
	}
	placeholderPaths.Store(src, path)
	return path
}

func stringify(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}

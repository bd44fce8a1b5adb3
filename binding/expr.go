package binding

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ohler55/ojg/jp"
)

// Expr 是表达式 AST 的一个变体，Eval 针对数据上下文求值且不修改输入。
type Expr interface {
	Eval(data any) (any, error)
}

// Segment 是数据路径中的一段：字段（p:name 或裸名）或下标（i:0）。
type Segment struct {
	Field string
	Index int
	IsIdx bool
}

func (s Segment) String() string {
	if s.IsIdx {
		return "i:" + strconv.Itoa(s.Index)
	}
	return "p:" + s.Field
}

// DataExpr 按路径逐段查找，中间段缺失时结果为 nil 而不是错误。
type DataExpr struct {
	Segments []Segment
	path     jp.Expr
}

// NewDataExpr 解析路径段。value 可以是字符串数组，也可以是以 "." 分隔的字符串。
func NewDataExpr(value any) (*DataExpr, error) {
	var raw []string
	switch v := value.(type) {
	case nil:
	case string:
		if strings.TrimSpace(v) != "" {
			raw = strings.Split(v, ".")
		}
	case []string:
		raw = v
	case []any:
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("data path segment %d must be a string, got %T", i, item)
			}
			raw = append(raw, s)
		}
	default:
		return nil, fmt.Errorf("data path must be a string or an array of segments, got %T", value)
	}

	d := &DataExpr{path: jp.R()}
	for _, s := range raw {
		seg, err := parseDataSegment(s)
		if err != nil {
			return nil, err
		}
		d.Segments = append(d.Segments, seg)
		if seg.IsIdx {
			d.path = d.path.N(seg.Index)
		} else {
			d.path = d.path.C(seg.Field)
		}
	}
	return d, nil
}

func parseDataSegment(s string) (Segment, error) {
	prefix, rest, found := strings.Cut(s, ":")
	if !found {
		return Segment{Field: s}, nil
	}
	switch prefix {
	case "p":
		return Segment{Field: rest}, nil
	case "i":
		idx, err := strconv.Atoi(rest)
		if err != nil {
			return Segment{}, fmt.Errorf("invalid index segment %q: %w", s, err)
		}
		return Segment{Index: idx, IsIdx: true}, nil
	default:
		return Segment{}, fmt.Errorf("unknown path segment namespace %q in %q", prefix, s)
	}
}

// Eval 实现 Expr。
func (d *DataExpr) Eval(data any) (any, error) {
	if len(d.Segments) == 0 {
		return data, nil
	}
	return d.path.First(data), nil
}

// String 返回 $.a.b 形式的路径。
func (d *DataExpr) String() string { return d.path.String() }

// ScalarExpr 原样返回值。
type ScalarExpr struct {
	Value any
}

// Eval 实现 Expr。
func (s *ScalarExpr) Eval(any) (any, error) { return s.Value, nil }

// ComposeExpr 按顺序对子表达式求值，可选地按条件选出内容模板并替换占位符。
type ComposeExpr struct {
	Names   []string
	Parts   map[string]Expr
	Compose *Compose
}

// Eval 实现 Expr。
func (c *ComposeExpr) Eval(data any) (any, error) {
	values := make(map[string]any, len(c.Names))
	ordered := make([]any, 0, len(c.Names))
	for _, name := range c.Names {
		v, err := c.Parts[name].Eval(data)
		if err != nil {
			return nil, fmt.Errorf("expression %q: %w", name, err)
		}
		values[name] = v
		ordered = append(ordered, v)
	}

	if c.Compose == nil {
		if len(ordered) == 1 {
			return ordered[0], nil
		}
		return ordered, nil
	}

	content, err := c.selectContent(values)
	if err != nil {
		return nil, err
	}
	return Interpolate(content, values), nil
}

func (c *ComposeExpr) selectContent(values map[string]any) (string, error) {
	cond := c.Compose.Conditional
	if cond == nil {
		return c.Compose.Content[DefaultContentKey], nil
	}
	raw := values[cond.Expression]
	ok, isBool := raw.(bool)
	if !isBool {
		return "", fmt.Errorf("conditional expression %q must evaluate to a bool, got %T", cond.Expression, raw)
	}
	if !ok {
		return cond.Default, nil
	}
	key := cond.Key
	if key == "" {
		key = DefaultContentKey
	}
	return c.Compose.Content[key], nil
}

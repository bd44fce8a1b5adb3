package binding

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// ContextVar 是 function 表达式中数据上下文的变量名。
const ContextVar = "context"

// DefaultFunctions 返回 function 表达式可调用的函数表。
func DefaultFunctions() map[string]function.Function {
	return map[string]function.Function{
		"upper":     stdlib.UpperFunc,
		"lower":     stdlib.LowerFunc,
		"title":     stdlib.TitleFunc,
		"trim":      stdlib.TrimFunc,
		"trimspace": stdlib.TrimSpaceFunc,
		"replace":   stdlib.ReplaceFunc,
		"substr":    stdlib.SubstrFunc,
		"format":    stdlib.FormatFunc,
		"join":      stdlib.JoinFunc,
		"length":    stdlib.LengthFunc,
		"concat":    stdlib.ConcatFunc,
		"coalesce":  stdlib.CoalesceFunc,
		"abs":       stdlib.AbsoluteFunc,
		"max":       stdlib.MaxFunc,
		"min":       stdlib.MinFunc,
		"ceil":      stdlib.CeilFunc,
		"floor":     stdlib.FloorFunc,
	}
}

// FuncExpr 是以 HCL 表达式书写的函数体，数据上下文以 context 变量暴露。
// 例如 `context.total > 100` 或 `upper(context.customer.name)`。
type FuncExpr struct {
	Source string
	expr   hclsyntax.Expression
	funcs  map[string]function.Function
}

// exprCache 按源码缓存解析结果，解析后的表达式只读，可并发求值。
type exprCache struct {
	mu    sync.RWMutex
	exprs map[string]hclsyntax.Expression
}

func (c *exprCache) parse(source string) (hclsyntax.Expression, error) {
	c.mu.RLock()
	expr, ok := c.exprs[source]
	c.mu.RUnlock()
	if ok {
		return expr, nil
	}
	expr, diags := hclsyntax.ParseExpression([]byte(source), "expression", hcl.Pos{Line: 1, Column: 1, Byte: 0})
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse function expression: %s", diags.Error())
	}
	c.mu.Lock()
	if c.exprs == nil {
		c.exprs = map[string]hclsyntax.Expression{}
	}
	c.exprs[source] = expr
	c.mu.Unlock()
	return expr, nil
}

// Eval 实现 Expr。
func (f *FuncExpr) Eval(data any) (any, error) {
	ctxVal, err := toCty(data)
	if err != nil {
		return nil, err
	}
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{ContextVar: ctxVal},
		Functions: f.funcs,
	}
	val, diags := f.expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, fmt.Errorf("evaluate function expression: %s", diags.Error())
	}
	return ctyValueToInterface(val)
}

// toCty 经由 JSON 把任意数据上下文转换为 cty 值，类型由内容推断。
func toCty(data any) (cty.Value, error) {
	if data == nil {
		return cty.NullVal(cty.DynamicPseudoType), nil
	}
	buf, err := json.Marshal(data)
	if err != nil {
		return cty.NilVal, fmt.Errorf("encode data context: %w", err)
	}
	ty, err := ctyjson.ImpliedType(buf)
	if err != nil {
		return cty.NilVal, fmt.Errorf("infer data context type: %w", err)
	}
	val, err := ctyjson.Unmarshal(buf, ty)
	if err != nil {
		return cty.NilVal, fmt.Errorf("convert data context: %w", err)
	}
	return val, nil
}

// ctyValueToInterface 将 cty.Value 转换为 JSON 风格的 Go 值。
func ctyValueToInterface(val cty.Value) (any, error) {
	if !val.IsKnown() || val.IsNull() {
		return nil, nil
	}
	ty := val.Type()
	if ty.IsPrimitiveType() {
		switch ty {
		case cty.String:
			return val.AsString(), nil
		case cty.Number:
			f, _ := val.AsBigFloat().Float64()
			return f, nil
		case cty.Bool:
			return val.True(), nil
		default:
			return nil, fmt.Errorf("unsupported primitive type: %s", ty.FriendlyName())
		}
	}
	if ty.IsObjectType() || ty.IsMapType() {
		out := make(map[string]any)
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			item, err := ctyValueToInterface(v)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = item
		}
		return out, nil
	}
	if ty.IsTupleType() || ty.IsListType() || ty.IsSetType() {
		out := make([]any, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			item, err := ctyValueToInterface(v)
			if err != nil {
				return nil, err
			}
			out = append(out, item)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported cty.Type for conversion: %s", ty.FriendlyName())
}

package binding

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/zclconf/go-cty/cty/function"
)

// Options 配置解析器。Functions 为空时使用 DefaultFunctions。
type Options struct {
	Functions map[string]function.Function
}

// Resolver 针对数据上下文解析组件实例的绑定属性。
// 除表达式解析缓存外无内部状态，可被并发渲染共享。
type Resolver struct {
	funcs map[string]function.Function
	cache *exprCache
}

// NewResolver 创建解析器。
func NewResolver(opts Options) *Resolver {
	funcs := opts.Functions
	if funcs == nil {
		funcs = DefaultFunctions()
	}
	return &Resolver{funcs: funcs, cache: &exprCache{}}
}

// Target 是待解析的组件实例视图。
type Target struct {
	ID          string
	Props       map[string]any
	Bindings    Bindings
	Expressions ExpressionSets
}

// ResolveProps 返回替换了全部绑定标记的新属性对象，输入不会被修改。
// 普通属性先于集合属性解析，集合的 Source 可以是已绑定的属性。
func (r *Resolver) ResolveProps(t Target, meta map[string]PropMeta, data any) (map[string]any, error) {
	out := make(map[string]any, len(t.Props)+1)
	for k, v := range t.Props {
		out[k] = v
	}

	var collections []string
	for _, key := range sortedKeys(out) {
		if m, ok := meta[key]; ok && m.Collection != nil {
			collections = append(collections, key)
			continue
		}
		name, ok := MarkerName(out[key])
		if !ok {
			continue
		}
		v, err := r.resolve(t, key, name, data)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}

	if err := r.resolveStyle(t, out, data); err != nil {
		return nil, err
	}

	for _, key := range collections {
		if err := r.resolveCollection(t, key, meta[key].Collection, out, data); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Compile 为名为 name 的绑定构建表达式 AST。prop 仅用于错误信息。
func (r *Resolver) Compile(t Target, prop, name string) (Expr, error) {
	b, ok := t.Bindings[name]
	if !ok {
		return nil, &MissingBindingError{Instance: t.ID, Prop: prop, Binding: name}
	}
	if len(b.Expression) == 0 {
		return nil, &MissingExpressionError{Instance: t.ID, Prop: prop}
	}
	set := t.Expressions[name]

	parts := make(map[string]Expr, len(b.Expression))
	for _, exprName := range b.Expression {
		def, ok := set[exprName]
		if !ok {
			return nil, &MissingExpressionError{Instance: t.ID, Prop: prop, Expression: exprName}
		}
		e, err := r.compileExpression(def)
		if err != nil {
			if _, unsupported := err.(*UnsupportedExpressionError); unsupported {
				return nil, &UnsupportedExpressionError{Instance: t.ID, Prop: prop, Type: def.Type}
			}
			return nil, &EvalError{Instance: t.ID, Prop: prop, Err: fmt.Errorf("expression %q: %w", exprName, err)}
		}
		parts[exprName] = e
	}

	if b.Compose != nil && b.Compose.Conditional != nil {
		condName := b.Compose.Conditional.Expression
		cond, ok := parts[condName]
		if !ok {
			return nil, &MissingExpressionError{Instance: t.ID, Prop: prop, Expression: condName}
		}
		if _, isFunc := cond.(*FuncExpr); !isFunc {
			return nil, &EvalError{Instance: t.ID, Prop: prop, Err: fmt.Errorf("conditional expression %q must be of type %s", condName, TypeFunction)}
		}
	}

	if len(b.Expression) == 1 && b.Compose == nil {
		return parts[b.Expression[0]], nil
	}
	return &ComposeExpr{Names: append([]string(nil), b.Expression...), Parts: parts, Compose: b.Compose}, nil
}

func (r *Resolver) compileExpression(def Expression) (Expr, error) {
	switch def.Type {
	case TypeData:
		return NewDataExpr(def.Value)
	case TypeFunction:
		source, ok := def.Value.(string)
		if !ok || strings.TrimSpace(source) == "" {
			return nil, fmt.Errorf("function expression value must be a non-empty string")
		}
		expr, err := r.cache.parse(source)
		if err != nil {
			return nil, err
		}
		return &FuncExpr{Source: source, expr: expr, funcs: r.funcs}, nil
	case TypeScalar:
		return &ScalarExpr{Value: def.Value}, nil
	default:
		return nil, &UnsupportedExpressionError{Type: def.Type}
	}
}

func (r *Resolver) resolve(t Target, prop, name string, data any) (any, error) {
	expr, err := r.Compile(t, prop, name)
	if err != nil {
		return nil, err
	}
	v, err := expr.Eval(data)
	if err != nil {
		return nil, &EvalError{Instance: t.ID, Prop: prop, Err: err}
	}
	return v, nil
}

// resolveStyle 处理 @style.<name> 绑定以及 style 对象内的绑定标记。
func (r *Resolver) resolveStyle(t Target, out map[string]any, data any) error {
	var styleKeys []string
	for _, key := range sortedKeys(t.Bindings) {
		if strings.HasPrefix(key, StylePrefix) {
			styleKeys = append(styleKeys, key)
		}
	}
	current, _ := out["style"].(map[string]any)
	hasMarkers := false
	for _, v := range current {
		if _, ok := MarkerName(v); ok {
			hasMarkers = true
			break
		}
	}
	if len(styleKeys) == 0 && !hasMarkers {
		return nil
	}

	styles := make(map[string]any, len(current)+len(styleKeys))
	for k, v := range current {
		styles[k] = v
	}
	for _, key := range sortedKeys(styles) {
		name, ok := MarkerName(styles[key])
		if !ok {
			continue
		}
		v, err := r.resolve(t, StylePrefix+key, name, data)
		if err != nil {
			return err
		}
		styles[key] = v
	}
	for _, key := range styleKeys {
		v, err := r.resolve(t, key, key, data)
		if err != nil {
			return err
		}
		styles[strings.TrimPrefix(key, StylePrefix)] = v
	}
	out["style"] = styles
	return nil
}

// resolveCollection 对集合属性中每个元素的绑定字段逐行求值：
// 表达式的上下文是 Source 数组的对应元素，而不是顶层数据。
func (r *Resolver) resolveCollection(t Target, key string, c *Collection, out map[string]any, data any) error {
	value := out[key]
	if name, ok := MarkerName(value); ok {
		v, err := r.resolve(t, key, name, data)
		if err != nil {
			return err
		}
		value = v
	}
	items, ok := value.([]any)
	if !ok {
		if value != nil {
			return &EvalError{Instance: t.ID, Prop: key, Err: fmt.Errorf("collection prop must be an array, got %T", value)}
		}
		out[c.Target] = []any{}
		return nil
	}

	exprs := make([]Expr, len(items))
	literals := make([]any, len(items))
	cleaned := make([]any, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			cleaned[i] = item
			continue
		}
		cp := make(map[string]any, len(obj))
		for k, v := range obj {
			cp[k] = v
		}
		if name, ok := MarkerName(obj[c.Field]); ok {
			e, err := r.Compile(t, key+"."+strconv.Itoa(i)+"."+c.Field, name)
			if err != nil {
				return err
			}
			exprs[i] = e
			delete(cp, c.Field)
		} else {
			literals[i] = obj[c.Field]
		}
		cleaned[i] = cp
	}
	out[key] = cleaned

	var source []any
	switch s := out[c.Source].(type) {
	case nil:
	case []any:
		source = s
	default:
		return &EvalError{Instance: t.ID, Prop: c.Source, Err: fmt.Errorf("collection source must be an array, got %T", s)}
	}

	rows := make([]any, 0, len(source))
	for rowIdx, row := range source {
		cells := make([]any, len(items))
		for i := range items {
			if exprs[i] == nil {
				cells[i] = literals[i]
				continue
			}
			v, err := exprs[i].Eval(row)
			if err != nil {
				return &EvalError{
					Instance: t.ID,
					Prop:     key + "." + strconv.Itoa(i) + "." + c.Field,
					Err:      fmt.Errorf("row %d: %w", rowIdx, err),
				}
			}
			cells[i] = v
		}
		rows = append(rows, cells)
	}
	out[c.Target] = rows
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

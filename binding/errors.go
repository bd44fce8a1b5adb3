package binding

import "fmt"

// MissingBindingError 表示属性上的绑定标记引用了不存在的绑定。
type MissingBindingError struct {
	Instance string
	Prop     string
	Binding  string
}

func (e *MissingBindingError) Error() string {
	return fmt.Sprintf("instance %q: prop %q references missing binding %q", e.Instance, e.Prop, e.Binding)
}

// MissingExpressionError 表示绑定引用的表达式名不在该属性的表达式集合中。
type MissingExpressionError struct {
	Instance   string
	Prop       string
	Expression string
}

func (e *MissingExpressionError) Error() string {
	return fmt.Sprintf("instance %q: prop %q references missing expression %q", e.Instance, e.Prop, e.Expression)
}

// UnsupportedExpressionError 表示表达式类型不是 data、function 或 scalar。
type UnsupportedExpressionError struct {
	Instance string
	Prop     string
	Type     string
}

func (e *UnsupportedExpressionError) Error() string {
	return fmt.Sprintf("instance %q: prop %q uses unsupported expression type %q", e.Instance, e.Prop, e.Type)
}

// EvalError 包装表达式解析或求值失败。
type EvalError struct {
	Instance string
	Prop     string
	Err      error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("instance %q: prop %q: %v", e.Instance, e.Prop, e.Err)
}

// Unwrap 返回底层错误。
func (e *EvalError) Unwrap() error { return e.Err }

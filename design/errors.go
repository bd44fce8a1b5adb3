package design

import "fmt"

// InputError 表示设计载荷不合法，Field 为出错字段的 JSON 路径。
type InputError struct {
	Field  string
	Reason string
	Err    error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("design: invalid payload: field %q %s", e.Field, e.Reason)
}

func (e *InputError) Unwrap() error { return e.Err }

// UnregisteredComponentError 表示实例引用了注册表中不存在的组件类型。
type UnregisteredComponentError struct {
	Instance string
	Type     string
}

func (e *UnregisteredComponentError) Error() string {
	return fmt.Sprintf("design: instance %q uses unregistered component type %q", e.Instance, e.Type)
}

// InstanceError 包装单个实例在绑定解析或模板求值阶段的失败。
type InstanceError struct {
	Instance string
	Type     string
	Err      error
}

func (e *InstanceError) Error() string {
	return fmt.Sprintf("design: instance %q (%s): %v", e.Instance, e.Type, e.Err)
}

func (e *InstanceError) Unwrap() error { return e.Err }

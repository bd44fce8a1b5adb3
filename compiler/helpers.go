package compiler

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/jsreport/jsreport-designer-sub001/dsl"
	"github.com/jsreport/jsreport-designer-sub001/style"
)

// Func is a template helper. Block helpers render their body through Call.Fn
// and Call.Inverse.
type Func func(call *Call) (any, error)

// FuncMap maps helper names to implementations.
type FuncMap map[string]Func

// Call carries the evaluated arguments of one helper invocation.
type Call struct {
	Name string
	Args []any
	Hash map[string]any

	state *state
	frame *frame
	block *dsl.Block
}

// Arg returns the i-th positional argument or nil.
func (c *Call) Arg(i int) any {
	if i < 0 || i >= len(c.Args) {
		return nil
	}
	return c.Args[i]
}

// IsBlock reports whether the helper was invoked as `{{#name}}`.
func (c *Call) IsBlock() bool { return c.block != nil }

// Data returns the current scope.
func (c *Call) Data() any { return c.frame.data }

// Lookup resolves a dotted path against the current scope chain.
func (c *Call) Lookup(path string) any {
	if path == "" {
		return nil
	}
	return c.state.lookup(&dsl.Path{Segments: strings.Split(path, ".")}, c.frame)
}

// Fragment returns slot content injected for name.
func (c *Call) Fragment(name string) (string, bool) {
	v, ok := c.state.ctx.Fragments[name]
	return v, ok
}

// Fn renders the block body with data as the new scope.
func (c *Call) Fn(data any) (string, error) {
	return c.render(c.bodyNodes(), data, nil)
}

// FnWith renders the block body with data and extra @variables.
func (c *Call) FnWith(data any, vars map[string]any) (string, error) {
	return c.render(c.bodyNodes(), data, vars)
}

// Inverse renders the `{{else}}` branch within the current scope.
func (c *Call) Inverse() (string, error) {
	if c.block == nil {
		return "", nil
	}
	return c.render(c.block.Else, c.frame.data, nil)
}

func (c *Call) bodyNodes() []*dsl.Node {
	if c.block == nil {
		return nil
	}
	return c.block.Body
}

func (c *Call) render(nodes []*dsl.Node, data any, vars map[string]any) (string, error) {
	if len(nodes) == 0 {
		return "", nil
	}
	f := &frame{data: data, vars: vars, parent: c.frame}
	var buf strings.Builder
	if err := c.state.walk(&buf, nodes, f); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var builtins FuncMap

func init() {
	builtins = FuncMap{
		"designerStyle": designerStyleHelper,
		"styleProp":     stylePropHelper,
		"fragment":      fragmentHelper,
		"if":            ifHelper,
		"unless":        unlessHelper,
		"each":          eachHelper,
		"with":          withHelper,
		"eq":            eqHelper,
		"not":           notHelper,
		"join":          joinHelper,
		"default":       defaultHelper,
		"lookup":        lookupHelper,
	}
}

// Builtins lists the names of the built-in helpers.
func Builtins() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// designerStyle renders ` style="..."` from a style values object, defaulting
// to the `style` prop in scope. Nothing is written when no style resolves.
func designerStyleHelper(c *Call) (any, error) {
	values, err := styleValues(c, 0)
	if err != nil {
		return nil, err
	}
	return SafeString(style.Attr(values)), nil
}

// styleProp renders a single declaration, e.g. {{styleProp "color"}}.
func stylePropHelper(c *Call) (any, error) {
	name, ok := c.Arg(0).(string)
	if !ok || name == "" {
		return nil, fmt.Errorf("style name must be a string")
	}
	values, err := styleValues(c, 1)
	if err != nil {
		return nil, err
	}
	decl, _ := style.Declaration(name, values)
	return SafeString(decl), nil
}

func styleValues(c *Call, idx int) (map[string]any, error) {
	raw := c.Arg(idx)
	if len(c.Args) <= idx {
		raw = c.Lookup("style")
	}
	if raw == nil {
		return nil, nil
	}
	values, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("style values must be an object, got %T", raw)
	}
	return values, nil
}

func fragmentHelper(c *Call) (any, error) {
	name, ok := c.Arg(0).(string)
	if !ok || name == "" {
		return nil, fmt.Errorf("fragment name must be a string")
	}
	if content, ok := c.Fragment(name); ok {
		return SafeString(content), nil
	}
	out, err := c.Fn(c.Data())
	if err != nil {
		return nil, err
	}
	return SafeString(out), nil
}

func ifHelper(c *Call) (any, error) {
	if !c.IsBlock() {
		return nil, nil
	}
	if Truthy(c.Arg(0)) {
		return renderSafe(c.Fn(c.Data()))
	}
	return renderSafe(c.Inverse())
}

func unlessHelper(c *Call) (any, error) {
	if !c.IsBlock() {
		return nil, nil
	}
	if !Truthy(c.Arg(0)) {
		return renderSafe(c.Fn(c.Data()))
	}
	return renderSafe(c.Inverse())
}

func withHelper(c *Call) (any, error) {
	if !c.IsBlock() {
		return nil, nil
	}
	v := c.Arg(0)
	if !Truthy(v) {
		return renderSafe(c.Inverse())
	}
	return renderSafe(c.Fn(v))
}

// each iterates slices in order and maps in sorted key order.
func eachHelper(c *Call) (any, error) {
	if !c.IsBlock() {
		return nil, nil
	}
	v := c.Arg(0)
	if v == nil {
		return renderSafe(c.Inverse())
	}
	rv := reflect.ValueOf(v)
	var buf strings.Builder
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		n := rv.Len()
		if n == 0 {
			return renderSafe(c.Inverse())
		}
		for i := 0; i < n; i++ {
			out, err := c.FnWith(rv.Index(i).Interface(), map[string]any{
				"index": float64(i),
				"first": i == 0,
				"last":  i == n-1,
			})
			if err != nil {
				return nil, err
			}
			buf.WriteString(out)
		}
	case reflect.Map:
		if rv.Len() == 0 {
			return renderSafe(c.Inverse())
		}
		keys := make([]string, 0, rv.Len())
		byKey := map[string]reflect.Value{}
		for _, k := range rv.MapKeys() {
			ks := fmt.Sprint(k.Interface())
			keys = append(keys, ks)
			byKey[ks] = rv.MapIndex(k)
		}
		sort.Strings(keys)
		for i, k := range keys {
			out, err := c.FnWith(byKey[k].Interface(), map[string]any{
				"key":   k,
				"index": float64(i),
				"first": i == 0,
				"last":  i == len(keys)-1,
			})
			if err != nil {
				return nil, err
			}
			buf.WriteString(out)
		}
	default:
		return nil, fmt.Errorf("cannot iterate over %T", v)
	}
	return SafeString(buf.String()), nil
}

func renderSafe(out string, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return SafeString(out), nil
}

func eqHelper(c *Call) (any, error) {
	if len(c.Args) != 2 {
		return nil, fmt.Errorf("expects 2 arguments, got %d", len(c.Args))
	}
	return equal(c.Args[0], c.Args[1]), nil
}

func equal(a, b any) bool {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func notHelper(c *Call) (any, error) {
	return !Truthy(c.Arg(0)), nil
}

// join concatenates list items with a separator (default ", "). The optional
// max hash argument limits how many items are used.
func joinHelper(c *Call) (any, error) {
	v := c.Arg(0)
	if v == nil {
		return "", nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return Stringify(v), nil
	}
	sep := ", "
	if s, ok := c.Arg(1).(string); ok {
		sep = s
	}
	n := rv.Len()
	if limit, ok := toFloat(c.Hash["max"]); ok && int(limit) >= 0 && int(limit) < n {
		n = int(limit)
	}
	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		parts = append(parts, Stringify(rv.Index(i).Interface()))
	}
	return strings.Join(parts, sep), nil
}

func defaultHelper(c *Call) (any, error) {
	if v := c.Arg(0); Truthy(v) {
		return v, nil
	}
	return c.Arg(1), nil
}

func lookupHelper(c *Call) (any, error) {
	key := Stringify(c.Arg(1))
	v, _ := descend(c.Arg(0), key)
	return v, nil
}

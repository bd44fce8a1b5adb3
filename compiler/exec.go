package compiler

import (
	"fmt"
	"html"
	"reflect"
	"strconv"
	"strings"

	"github.com/jsreport/jsreport-designer-sub001/dsl"
)

// frame is one data scope; each/with push a new frame over the current one.
type frame struct {
	data   any
	vars   map[string]any
	parent *frame
}

type state struct {
	tpl *Template
	ctx Context
}

func (s *state) walk(buf *strings.Builder, nodes []*dsl.Node, f *frame) error {
	for _, n := range nodes {
		switch {
		case n.Text != nil:
			buf.WriteString(*n.Text)
		case n.Output != nil:
			v, err := s.evalMustache(n.Output, f)
			if err != nil {
				return err
			}
			buf.WriteString(escape(v))
		case n.Raw != nil:
			v, err := s.evalMustache(n.Raw, f)
			if err != nil {
				return err
			}
			buf.WriteString(Stringify(v))
		case n.Block != nil:
			out, err := s.evalBlock(n.Block, f)
			if err != nil {
				return err
			}
			buf.WriteString(out)
		}
	}
	return nil
}

func (s *state) helper(name string) (Func, bool) {
	if fn, ok := s.ctx.Funcs[name]; ok {
		return fn, true
	}
	if fn, ok := s.tpl.funcs[name]; ok {
		return fn, true
	}
	fn, ok := builtins[name]
	return fn, ok
}

// evalMustache resolves a single-segment path to a helper when one exists,
// otherwise performs a property lookup. Arguments on a non-helper are an error.
func (s *state) evalMustache(m *dsl.Mustache, f *frame) (any, error) {
	name := m.Path.String()
	if len(m.Path.Segments) == 1 {
		if fn, ok := s.helper(name); ok {
			call, err := s.newCall(name, m.Params, f)
			if err != nil {
				return nil, err
			}
			return s.invoke(fn, call)
		}
	}
	if len(m.Params) > 0 {
		return nil, &HelperError{Template: s.tpl.name, Helper: name}
	}
	return s.lookup(m.Path, f), nil
}

func (s *state) evalBlock(b *dsl.Block, f *frame) (string, error) {
	fn, ok := s.helper(b.Name)
	if !ok {
		return "", &HelperError{Template: s.tpl.name, Helper: b.Name}
	}
	call, err := s.newCall(b.Name, b.Params, f)
	if err != nil {
		return "", err
	}
	call.block = b
	v, err := s.invoke(fn, call)
	if err != nil {
		return "", err
	}
	return Stringify(v), nil
}

func (s *state) invoke(fn Func, call *Call) (any, error) {
	v, err := fn(call)
	if err != nil {
		if he, ok := err.(*HelperError); ok {
			return nil, he
		}
		return nil, &HelperError{Template: s.tpl.name, Helper: call.Name, Err: err}
	}
	return v, nil
}

func (s *state) newCall(name string, params []*dsl.Param, f *frame) (*Call, error) {
	call := &Call{Name: name, state: s, frame: f}
	for _, p := range params {
		if p.Hash != nil {
			v, err := s.evalValue(p.Hash.Value, f)
			if err != nil {
				return nil, err
			}
			if call.Hash == nil {
				call.Hash = map[string]any{}
			}
			call.Hash[p.Hash.Key] = v
			continue
		}
		v, err := s.evalValue(p.Value, f)
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, v)
	}
	return call, nil
}

func (s *state) evalValue(v *dsl.Value, f *frame) (any, error) {
	switch {
	case v == nil:
		return nil, nil
	case v.String != nil:
		return string(*v.String), nil
	case v.Number != nil:
		return *v.Number, nil
	case v.Bool != nil:
		return bool(*v.Bool), nil
	case v.Sub != nil:
		return s.evalMustache(v.Sub, f)
	case v.Path != nil:
		return s.lookup(v.Path, f), nil
	}
	return nil, nil
}

// lookup resolves a path. `this` is the current scope, `@root` the root data,
// other @names come from each-iteration variables or Context.Vars. Plain names
// are searched from the innermost scope outwards.
func (s *state) lookup(p *dsl.Path, f *frame) any {
	if p == nil || len(p.Segments) == 0 {
		return nil
	}
	head := p.Segments[0]
	var current any
	switch {
	case head == "this":
		current = f.data
	case head == "@root":
		current = s.ctx.Data
	case strings.HasPrefix(head, "@"):
		current = s.variable(strings.TrimPrefix(head, "@"), f)
	default:
		found := false
		for fr := f; fr != nil; fr = fr.parent {
			if v, ok := descend(fr.data, head); ok {
				current, found = v, true
				break
			}
		}
		if !found {
			return nil
		}
	}
	for _, seg := range p.Segments[1:] {
		v, ok := descend(current, seg)
		if !ok {
			return nil
		}
		current = v
	}
	return current
}

func (s *state) variable(name string, f *frame) any {
	for fr := f; fr != nil; fr = fr.parent {
		if v, ok := fr.vars[name]; ok {
			return v
		}
	}
	return s.ctx.Vars[name]
}

func descend(current any, key string) (any, bool) {
	switch c := current.(type) {
	case nil:
		return nil, false
	case map[string]any:
		v, ok := c[key]
		return v, ok
	case map[string]string:
		v, ok := c[key]
		return v, ok
	case []any:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(c) {
			return nil, false
		}
		return c[idx], true
	}
	rv := reflect.ValueOf(current)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		v := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, false
		}
		return v.Interface(), true
	case reflect.Slice, reflect.Array:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= rv.Len() {
			return nil, false
		}
		return rv.Index(idx).Interface(), true
	}
	return nil, false
}

// SafeString is output verbatim by `{{ }}` instead of being HTML-escaped.
type SafeString string

func escape(v any) string {
	if safe, ok := v.(SafeString); ok {
		return string(safe)
	}
	return html.EscapeString(Stringify(v))
}

// Stringify formats a value the way templates print it; nil prints nothing.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case SafeString:
		return string(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// Truthy implements template truthiness: nil, false, zero numbers, empty strings
// and empty collections are false.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case SafeString:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

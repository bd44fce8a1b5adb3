// Package compiler turns component template source into executable templates.
//
// Templates are parsed once by the dsl grammar and cached by source text for the
// lifetime of the process. Evaluation only supports property lookup, iteration,
// conditionals and calls into an explicit helper table.
package compiler

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jsreport/jsreport-designer-sub001/dsl"
)

// Options configures helpers shared by every template compiled by a Compiler.
type Options struct {
	Funcs FuncMap
}

// Compiler compiles template source and caches the result keyed by source text.
// The cache has no eviction; it is bounded by the number of distinct registered templates.
type Compiler struct {
	mu    sync.RWMutex
	cache map[string]*Template
	funcs FuncMap
}

// New creates a compiler. Helpers in opts.Funcs extend the built-in table.
func New(opts Options) *Compiler {
	funcs := FuncMap{}
	for name, fn := range opts.Funcs {
		funcs[name] = fn
	}
	return &Compiler{
		cache: map[string]*Template{},
		funcs: funcs,
	}
}

// Compile returns the compiled template for source, parsing it only on first use.
// name identifies the template in errors; templates sharing a source share the
// parsed tree but each carries the name it was requested under.
func (c *Compiler) Compile(name, source string) (*Template, error) {
	c.mu.RLock()
	tpl, ok := c.cache[source]
	c.mu.RUnlock()
	if ok {
		return tpl.named(name), nil
	}

	root, err := dsl.ParseString(name, source)
	if err != nil {
		return nil, &SyntaxError{Template: name, Err: err}
	}
	tpl = &Template{name: name, root: root, funcs: c.funcs}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.cache[source]; ok {
		return existing.named(name), nil
	}
	c.cache[source] = tpl
	return tpl, nil
}

// Len reports how many distinct sources have been compiled.
func (c *Compiler) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Template is an immutable compiled template, safe for concurrent Execute calls.
type Template struct {
	name  string
	root  *dsl.Template
	funcs FuncMap
}

func (t *Template) named(name string) *Template {
	if t.name == name {
		return t
	}
	cp := *t
	cp.name = name
	return &cp
}

// Name returns the name the template was compiled under.
func (t *Template) Name() string { return t.name }

// Context is the evaluation context of a single Execute call.
type Context struct {
	// Data is the root data object, usually the resolved component props.
	Data any
	// Vars are exposed as @name variables, e.g. @layout.
	Vars map[string]any
	// Funcs are per-call helpers, taking precedence over compiler and built-in helpers.
	Funcs FuncMap
	// Fragments holds slot content injected at composition time.
	Fragments map[string]string
}

// Execute renders the template against ctx.
func (t *Template) Execute(ctx Context) (string, error) {
	s := &state{tpl: t, ctx: ctx}
	var buf strings.Builder
	root := &frame{data: ctx.Data}
	if err := s.walk(&buf, t.root.Nodes, root); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SyntaxError reports malformed template source.
type SyntaxError struct {
	Template string
	Err      error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("template %q: syntax error: %v", e.Template, e.Err)
}

// Unwrap exposes the underlying parser error.
func (e *SyntaxError) Unwrap() error { return e.Err }

// HelperError reports a helper that is unknown or failed while rendering.
type HelperError struct {
	Template string
	Helper   string
	Err      error
}

func (e *HelperError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("template %q: unknown helper %q", e.Template, e.Helper)
	}
	return fmt.Sprintf("template %q: helper %q: %v", e.Template, e.Helper, e.Err)
}

// Unwrap exposes the helper failure, nil for unknown helpers.
func (e *HelperError) Unwrap() error { return e.Err }

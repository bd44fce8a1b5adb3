// Package design 把设计载荷渲染为完整的 HTML 文档：
// 逐实例解析绑定、执行组件模板，并按布局结果包装定位容器后填入基础布局。
package design

import (
	_ "embed"
	"errors"
	"html"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	htmlmin "github.com/tdewolff/minify/v2/html"

	"github.com/jsreport/jsreport-designer-sub001/binding"
	"github.com/jsreport/jsreport-designer-sub001/compiler"
	"github.com/jsreport/jsreport-designer-sub001/layout"
	"github.com/jsreport/jsreport-designer-sub001/logger"
	"github.com/jsreport/jsreport-designer-sub001/registry"
)

//go:embed base.html
var defaultBaseLayout string

// DefaultBaseLayout 返回内置的基础布局。
func DefaultBaseLayout() string { return defaultBaseLayout }

// 基础布局中的占位符。
const (
	PlaceholderGridWidth  = "$gridWidth"
	PlaceholderGridHeight = "$gridHeight"
	PlaceholderComponents = "$designComponents"
)

// Options 配置设计渲染器。
type Options struct {
	// BaseLayout 为空时使用 DefaultBaseLayout。
	BaseLayout string
	// Minify 对最终文档执行 HTML/CSS 压缩。
	Minify bool
	// Percent 让网格实例以百分比宽度输出。
	Percent bool
	// Fragments 供模板中的 fragment 助手按名称引用。
	Fragments map[string]string
	Logger    *logger.Logger
}

// Output 是一次渲染的结果。没有任何组件贡献助手源码时 Helpers 为 nil。
type Output struct {
	Content string
	Helpers *string
}

// Renderer 组合注册表、模板编译器与绑定解析器完成设计渲染。
// 渲染过程不修改共享状态（编译缓存除外），可被并发调用。
type Renderer struct {
	reg      *registry.Registry
	compiler *compiler.Compiler
	resolver *binding.Resolver
	opts     Options
	minifier *minify.M
}

// New 创建渲染器。compiler/resolver 为 nil 时使用默认配置。
func New(reg *registry.Registry, c *compiler.Compiler, res *binding.Resolver, opts Options) *Renderer {
	if c == nil {
		c = compiler.New(compiler.Options{})
	}
	if res == nil {
		res = binding.NewResolver(binding.Options{})
	}
	if opts.BaseLayout == "" {
		opts.BaseLayout = defaultBaseLayout
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	r := &Renderer{reg: reg, compiler: c, resolver: res, opts: opts}
	if opts.Minify {
		m := minify.New()
		m.AddFunc("text/css", css.Minify)
		m.Add("text/html", &htmlmin.Minifier{
			KeepDocumentTags: true,
			KeepEndTags:      true,
			KeepQuotes:       true,
		})
		r.minifier = m
	}
	return r
}

// Layout 校验载荷并计算几何信息，不执行任何组件模板。
func (r *Renderer) Layout(p *Payload) (*layout.Result, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	grid, _, groups := p.normalize()
	return layout.Build(grid, groups, layout.Options{Percent: r.opts.Percent})
}

// Render 渲染整个设计。任何实例失败都会中止渲染并且不返回部分结果。
// Output.Helpers 按组件类型去重：每种组件的助手源码只在其第一个实例处追加一次。
func (r *Renderer) Render(p *Payload, data any) (*Output, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	grid, instances, groups := p.normalize()
	log := r.opts.Logger.WithFields(map[string]any{"instances": len(instances)})

	defs := make([]registry.Definition, len(instances))
	for i, inst := range instances {
		def, ok := r.reg.Get(inst.Type)
		if !ok {
			err := &UnregisteredComponentError{Instance: inst.ID, Type: inst.Type}
			log.Error(err, "render aborted")
			return nil, err
		}
		defs[i] = def
	}

	geometry, err := layout.Build(grid, groups, layout.Options{Percent: r.opts.Percent})
	if err != nil {
		return nil, &InputError{Field: "position", Reason: err.Error(), Err: err}
	}

	fragments := make([]string, len(instances))
	var helpers []string
	seen := map[string]bool{}
	for i, inst := range instances {
		def := defs[i]
		box, _ := geometry.Lookup(i)
		markup, err := r.renderInstance(inst, def, box, data)
		if err != nil {
			log.Error(err, "render aborted")
			return nil, err
		}
		fragments[i] = markup
		if log.Enabled(zerolog.DebugLevel) {
			log.WithFields(map[string]any{"instance": inst.ID, "type": inst.Type}).Debug("instance rendered")
		}

		if !seen[def.Name] {
			seen[def.Name] = true
			if src := def.HelperSource(); src != "" {
				helpers = append(helpers, src)
			}
		}
	}

	body := assemble(geometry, instances, fragments)
	content := strings.NewReplacer(
		PlaceholderGridWidth, formatNumber(grid.Width),
		PlaceholderGridHeight, formatNumber(grid.Height),
		PlaceholderComponents, body,
	).Replace(r.opts.BaseLayout)

	if r.minifier != nil {
		minified, err := r.minifier.String("text/html", content)
		if err != nil {
			return nil, errors.Join(errors.New("design: minify failed"), err)
		}
		content = minified
	}

	out := &Output{Content: content}
	if len(helpers) > 0 {
		joined := strings.Join(helpers, "\n")
		out.Helpers = &joined
	}
	log.Debug("design rendered")
	return out, nil
}

func (r *Renderer) renderInstance(inst Instance, def registry.Definition, box layout.Box, data any) (string, error) {
	props, _ := r.reg.DefaultProps(def.Name, inst.Props)
	resolved, err := r.resolver.ResolveProps(binding.Target{
		ID:          inst.ID,
		Props:       props,
		Bindings:    inst.Bindings,
		Expressions: inst.Expressions,
	}, def.PropsMeta, data)
	if err != nil {
		return "", &InstanceError{Instance: inst.ID, Type: inst.Type, Err: err}
	}

	source := ""
	if def.Template != nil {
		source = def.Template()
	}
	tpl, err := r.compiler.Compile(def.Name, source)
	if err != nil {
		return "", &InstanceError{Instance: inst.ID, Type: inst.Type, Err: err}
	}
	markup, err := tpl.Execute(compiler.Context{
		Data: resolved,
		Vars: map[string]any{
			"layout":   box.Vars(),
			"instance": map[string]any{"id": inst.ID, "type": inst.Type},
		},
		Funcs:     def.Funcs,
		Fragments: r.opts.Fragments,
	})
	if err != nil {
		return "", &InstanceError{Instance: inst.ID, Type: inst.Type, Err: err}
	}
	return markup, nil
}

// assemble 先按载荷顺序输出自由实例（各自绝对定位），再按分组顺序输出网格行，
// 行内按起始列排列，使各行的 margin-top 与布局结果一致。
func assemble(geometry *layout.Result, instances []Instance, fragments []string) string {
	var b strings.Builder
	for i := range instances {
		if box, ok := geometry.Lookup(i); ok && box.Mode == layout.ModeFree {
			writeFree(&b, box, fragments[i])
		}
	}
	for _, row := range geometry.Rows {
		writeRow(&b, geometry, row, fragments)
	}
	return b.String()
}

func writeFree(b *strings.Builder, box layout.Box, markup string) {
	b.WriteString(`<div class="designer-component" data-instance="`)
	b.WriteString(html.EscapeString(box.ID))
	b.WriteString(`" style="position: absolute; top: `)
	b.WriteString(formatNumber(box.Top))
	b.WriteString(`px; left: `)
	b.WriteString(formatNumber(box.Left))
	b.WriteString(`px;">`)
	b.WriteString(markup)
	b.WriteString("</div>\n")
}

func writeRow(b *strings.Builder, geometry *layout.Result, row layout.Row, fragments []string) {
	b.WriteString(`<div class="designer-row"`)
	if row.TopSpacePx > 0 {
		b.WriteString(` style="margin-top: `)
		b.WriteString(formatNumber(row.TopSpacePx))
		b.WriteString(`px;"`)
	}
	b.WriteString(">")
	for _, box := range row.Boxes {
		unit := "px"
		width, left, right := box.Width-box.RightSpace, box.LeftSpace, box.RightSpace
		if geometry.Percent {
			unit = "%"
			width, left, right = box.WidthPercent-box.RightSpacePercent, box.LeftSpacePercent, box.RightSpacePercent
		}
		b.WriteString(`<div class="designer-component" data-instance="`)
		b.WriteString(html.EscapeString(box.ID))
		b.WriteString(`" style="display: inline-block; vertical-align: top; width: `)
		b.WriteString(formatNumber(width) + unit)
		b.WriteString(`; padding-left: `)
		b.WriteString(formatNumber(left) + unit)
		b.WriteString(`; padding-right: `)
		b.WriteString(formatNumber(right) + unit)
		b.WriteString(`;">`)
		b.WriteString(fragments[box.Index])
		b.WriteString("</div>")
	}
	b.WriteString("</div>\n")
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

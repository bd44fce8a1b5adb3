package design

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/jsreport/jsreport-designer-sub001/binding"
	"github.com/jsreport/jsreport-designer-sub001/compiler"
	"github.com/jsreport/jsreport-designer-sub001/layout"
	"github.com/jsreport/jsreport-designer-sub001/logger"
	"github.com/jsreport/jsreport-designer-sub001/registry"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	reg.MustRegister(
		registry.Definition{
			Name:         "Text",
			DefaultProps: func() map[string]any { return map[string]any{"text": "Sample text"} },
			Template:     func() string { return `<span{{designerStyle}}>{{text}}</span>` },
		},
		registry.Definition{
			Name:     "Box",
			Template: func() string { return `<div data-width="{{@layout.width}}">{{@instance.id}}</div>` },
			Helpers: map[string]string{
				"boxB": "function boxB() {}",
				"boxA": "function boxA() {}",
			},
		},
		registry.Definition{
			Name:     "Empty",
			Template: func() string { return `<i></i>` },
			Helpers:  map[string]string{"unused": ""},
		},
	)
	return reg
}

func testGrid() *layout.Grid {
	return &layout.Grid{Width: 1200, Height: 800, NumberOfCols: 12, RowHeight: 20}
}

func span(start, end int) layout.Position {
	return layout.Position{Col: &layout.ColSpan{Start: start, End: end}}
}

func newTestRenderer(t *testing.T, opts Options) *Renderer {
	return New(testRegistry(t), nil, nil, opts)
}

func TestRenderSampleText(t *testing.T) {
	r := newTestRenderer(t, Options{})
	out, err := r.Render(&Payload{
		Grid:       testGrid(),
		Components: []Instance{{ID: "t1", Type: "Text", Position: span(1, 12)}},
	}, nil)
	require.NoError(t, err)
	assert.Contains(t, out.Content, "<span>Sample text</span>")
	assert.Contains(t, out.Content, "width: 1200px; min-height: 800px;")
	assert.NotContains(t, out.Content, "$designComponents")
	assert.Nil(t, out.Helpers)
}

func TestRenderEmptyDesign(t *testing.T) {
	r := newTestRenderer(t, Options{})
	out, err := r.Render(&Payload{Grid: testGrid(), Components: []Instance{}}, nil)
	require.NoError(t, err)
	assert.Contains(t, out.Content, `<div class="designer-canvas" style="width: 1200px; min-height: 800px;">`)
	assert.NotContains(t, out.Content, `class="designer-component"`)
	assert.Nil(t, out.Helpers)
}

func TestRenderCustomBaseLayout(t *testing.T) {
	r := newTestRenderer(t, Options{BaseLayout: "[$gridWidth x $gridHeight]$designComponents"})
	out, err := r.Render(&Payload{
		Grid:       testGrid(),
		Components: []Instance{{ID: "f", Type: "Text", Position: layout.Position{Top: ptr(5), Left: ptr(7.5)}}},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t,
		"[1200 x 800]"+`<div class="designer-component" data-instance="f" style="position: absolute; top: 5px; left: 7.5px;"><span>Sample text</span></div>`+"\n",
		out.Content)
}

func TestRenderGridRow(t *testing.T) {
	r := newTestRenderer(t, Options{BaseLayout: "$designComponents"})
	out, err := r.Render(&Payload{
		Grid: testGrid(),
		Components: []Instance{
			{ID: "b", Type: "Box", Position: span(7, 12), DefaultSize: &layout.Size{Width: 500}},
			{ID: "a", Type: "Box", Position: span(3, 4)},
		},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t,
		`<div class="designer-row">`+
			`<div class="designer-component" data-instance="a" style="display: inline-block; vertical-align: top; width: 200px; padding-left: 200px; padding-right: 0px;"><div data-width="200">a</div></div>`+
			`<div class="designer-component" data-instance="b" style="display: inline-block; vertical-align: top; width: 500px; padding-left: 200px; padding-right: 100px;"><div data-width="600">b</div></div>`+
			"</div>\n",
		out.Content)
}

func TestRenderRowsFollowGroupOrder(t *testing.T) {
	second := 1
	r := newTestRenderer(t, Options{BaseLayout: "$designComponents"})
	out, err := r.Render(&Payload{
		Grid: testGrid(),
		Components: []Instance{
			{ID: "lower", Type: "Box", Position: layout.Position{Col: &layout.ColSpan{Start: 1, End: 2}, Group: &second}},
			{ID: "free", Type: "Box", Position: layout.Position{Top: ptr(0), Left: ptr(0)}},
			{ID: "upper", Type: "Box", Position: span(1, 2)},
		},
	}, nil)
	require.NoError(t, err)

	free := strings.Index(out.Content, `data-instance="free"`)
	upper := strings.Index(out.Content, `data-instance="upper"`)
	lower := strings.Index(out.Content, `data-instance="lower"`)
	require.True(t, free >= 0 && upper >= 0 && lower >= 0, out.Content)
	assert.Less(t, free, upper)
	assert.Less(t, upper, lower)
	assert.Equal(t, 2, strings.Count(out.Content, `class="designer-row"`))
}

func TestRenderSparseGroupIndex(t *testing.T) {
	far := 4000000000000
	r := newTestRenderer(t, Options{BaseLayout: "$designComponents"})
	out, err := r.Render(&Payload{
		Grid: testGrid(),
		Components: []Instance{
			{ID: "far", Type: "Box", Position: layout.Position{Col: &layout.ColSpan{Start: 1, End: 2}, Group: &far}},
		},
	}, nil)
	require.NoError(t, err)
	assert.Contains(t, out.Content, `data-instance="far"`)
}

func TestRenderGroupedPercent(t *testing.T) {
	r := newTestRenderer(t, Options{BaseLayout: "$designComponents", Percent: true})
	out, err := r.Render(&Payload{
		Canvas: testGrid(),
		Groups: []Group{
			{Items: []Instance{}},
			{TopSpace: 1, Items: []Instance{{ID: "x", Type: "Text", Position: span(4, 6)}}},
		},
	}, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.Content, `<div class="designer-row" style="margin-top: 40px;">`))
	assert.Contains(t, out.Content, "width: 25%; padding-left: 25%; padding-right: 0%;")
}

func TestRenderHelpersAggregated(t *testing.T) {
	r := newTestRenderer(t, Options{})
	out, err := r.Render(&Payload{
		Grid: testGrid(),
		Components: []Instance{
			{ID: "e", Type: "Empty", Position: span(1, 1)},
			{ID: "b1", Type: "Box", Position: span(2, 3)},
			{ID: "b2", Type: "Box", Position: span(4, 5)},
		},
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, out.Helpers)
	assert.Equal(t, "function boxA() {}\nfunction boxB() {}", *out.Helpers)
}

func TestRenderUnregisteredComponent(t *testing.T) {
	r := newTestRenderer(t, Options{})
	out, err := r.Render(&Payload{
		Grid: testGrid(),
		Components: []Instance{
			{ID: "ok", Type: "Text", Position: span(1, 2)},
			{ID: "bad", Type: "Chart", Position: span(3, 4)},
		},
	}, nil)
	assert.Nil(t, out)
	var ue *UnregisteredComponentError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "bad", ue.Instance)
	assert.Equal(t, "Chart", ue.Type)
}

func TestRenderMissingExpression(t *testing.T) {
	r := newTestRenderer(t, Options{})
	out, err := r.Render(&Payload{
		Grid: testGrid(),
		Components: []Instance{{
			ID:       "t1",
			Type:     "Text",
			Position: span(1, 2),
			Props:    map[string]any{"text": binding.Marker("text")},
			Bindings: binding.Bindings{"text": {Expression: binding.Names{"nope"}}},
		}},
	}, map[string]any{})
	assert.Nil(t, out)
	var me *binding.MissingExpressionError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "text", me.Prop)
	var ie *InstanceError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "t1", ie.Instance)
}

func TestRenderBoundData(t *testing.T) {
	r := newTestRenderer(t, Options{})
	p := &Payload{
		Grid: testGrid(),
		Components: []Instance{{
			ID:       "t1",
			Type:     "Text",
			Position: span(1, 2),
			Props:    map[string]any{"text": binding.Marker("text")},
			Bindings: binding.Bindings{"text": {Expression: binding.Names{"name"}}},
			Expressions: binding.ExpressionSets{
				"text": {"name": {Type: binding.TypeFunction, Value: `upper(context.customer)`}},
			},
		}},
	}
	data := map[string]any{"customer": "acme"}
	first, err := r.Render(p, data)
	require.NoError(t, err)
	assert.Contains(t, first.Content, "<span>ACME</span>")

	second, err := r.Render(p, data)
	require.NoError(t, err)
	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, binding.Marker("text"), p.Components[0].Props["text"])
}

func TestRenderTemplateError(t *testing.T) {
	reg := registry.New()
	reg.MustRegister(registry.Definition{Name: "Broken", Template: func() string { return `{{#if x}}` }})
	r := New(reg, compiler.New(compiler.Options{}), nil, Options{})
	_, err := r.Render(&Payload{
		Grid:       testGrid(),
		Components: []Instance{{ID: "x", Type: "Broken", Position: span(1, 1)}},
	}, nil)
	var se *compiler.SyntaxError
	require.True(t, errors.As(err, &se), "unexpected error %v", err)
}

func TestRenderLayoutErrors(t *testing.T) {
	r := newTestRenderer(t, Options{})
	_, err := r.Render(&Payload{
		Grid: testGrid(),
		Components: []Instance{
			{ID: "a", Type: "Text", Position: span(1, 4)},
			{ID: "b", Type: "Text", Position: span(3, 6)},
		},
	}, nil)
	var ie *InputError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "position", ie.Field)

	_, err = r.Render(&Payload{Components: []Instance{}}, nil)
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "grid", ie.Field)
}

func TestRenderMinify(t *testing.T) {
	r := newTestRenderer(t, Options{Minify: true})
	out, err := r.Render(&Payload{
		Grid:       testGrid(),
		Components: []Instance{{ID: "t1", Type: "Text", Position: span(1, 12)}},
	}, nil)
	require.NoError(t, err)
	assert.Contains(t, out.Content, "Sample text")
	assert.NotContains(t, out.Content, "\n  ")
	assert.Less(t, len(out.Content), len(DefaultBaseLayout()))
}

func TestRenderConcurrent(t *testing.T) {
	r := newTestRenderer(t, Options{})
	p := &Payload{
		Grid:       testGrid(),
		Components: []Instance{{ID: "t1", Type: "Text", Position: span(1, 12)}},
	}
	want, err := r.Render(p, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := r.Render(p, nil)
			assert.NoError(t, err)
			assert.Equal(t, want.Content, got.Content)
		}()
	}
	wg.Wait()
}

func TestRenderLogsInstances(t *testing.T) {
	var buf bytes.Buffer
	log, err := logger.New(logger.Options{Level: "debug", Writer: &buf})
	require.NoError(t, err)
	r := newTestRenderer(t, Options{Logger: log})
	_, err = r.Render(&Payload{
		Grid:       testGrid(),
		Components: []Instance{{ID: "t1", Type: "Text", Position: span(1, 12)}},
	}, nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"instance":"t1"`)
	assert.Contains(t, buf.String(), "design rendered")
}

func TestRenderWellFormedDocument(t *testing.T) {
	r := newTestRenderer(t, Options{})
	out, err := r.Render(&Payload{
		Grid: testGrid(),
		Components: []Instance{
			{ID: "free", Type: "Text", Position: layout.Position{Top: ptr(1), Left: ptr(2)}},
			{ID: "g1", Type: "Box", Position: span(1, 3), Props: map[string]any{}},
			{ID: "g2", Type: "Text", Position: span(4, 6), Props: map[string]any{"text": `"quoted" <b>`}},
		},
	}, nil)
	require.NoError(t, err)

	doc, err := html.Parse(strings.NewReader(out.Content))
	require.NoError(t, err)

	var ids []string
	var rows int
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "div" {
			for _, attr := range n.Attr {
				switch {
				case attr.Key == "data-instance":
					ids = append(ids, attr.Val)
				case attr.Key == "class" && attr.Val == "designer-row":
					rows++
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	assert.Equal(t, []string{"free", "g1", "g2"}, ids)
	assert.Equal(t, 1, rows)
	assert.Contains(t, out.Content, "&#34;quoted&#34; &lt;b&gt;")
}

func TestRenderEscapesInstanceID(t *testing.T) {
	r := newTestRenderer(t, Options{BaseLayout: "$designComponents"})
	out, err := r.Render(&Payload{
		Grid:       testGrid(),
		Components: []Instance{{ID: `it's "x"`, Type: "Text", Position: layout.Position{Top: ptr(0), Left: ptr(0)}}},
	}, nil)
	require.NoError(t, err)
	assert.Contains(t, out.Content, `data-instance="it&#39;s &#34;x&#34;"`)
}

func ptr(v float64) *float64 { return &v }

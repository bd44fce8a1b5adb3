package compiler

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, source string, ctx Context) string {
	t.Helper()
	tpl, err := New(Options{}).Compile("test", source)
	require.NoError(t, err)
	out, err := tpl.Execute(ctx)
	require.NoError(t, err)
	return out
}

func TestCompileCachesBySource(t *testing.T) {
	c := New(Options{})
	a, err := c.Compile("Text", "<p>{{text}}</p>")
	require.NoError(t, err)
	again, err := c.Compile("Text", "<p>{{text}}</p>")
	require.NoError(t, err)
	assert.Same(t, a, again)
	b, err := c.Compile("Other", "<p>{{text}}</p>")
	require.NoError(t, err)
	assert.Same(t, a.root, b.root)
	assert.Equal(t, "Other", b.Name())
	assert.Equal(t, "Text", a.Name())
	assert.Equal(t, 1, c.Len())

	_, err = c.Compile("Text", "<span>{{text}}</span>")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
}

func TestCompileConcurrent(t *testing.T) {
	c := New(Options{})
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tpl, err := c.Compile("Text", "<p>{{text}}</p>")
			assert.NoError(t, err)
			out, err := tpl.Execute(Context{Data: map[string]any{"text": "hi"}})
			assert.NoError(t, err)
			assert.Equal(t, "<p>hi</p>", out)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, c.Len())
}

func TestSyntaxError(t *testing.T) {
	_, err := New(Options{}).Compile("Broken", "{{#if x}}never closed")
	var se *SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Broken", se.Template)
}

func TestEscaping(t *testing.T) {
	data := map[string]any{"html": "<b>&</b>"}
	assert.Equal(t, "&lt;b&gt;&amp;&lt;/b&gt;|<b>&</b>", render(t, "{{html}}|{{{html}}}", Context{Data: data}))
}

func TestLookupAndScopes(t *testing.T) {
	data := map[string]any{
		"title": "T",
		"items": []any{
			map[string]any{"name": "a"},
			map[string]any{"name": "b"},
		},
		"nested": map[string]any{"value": 3.5},
	}
	out := render(t, `{{nested.value}} {{items.1.name}} {{#each items}}[{{@index}}:{{name}}:{{title}}{{#if @last}}!{{/if}}]{{/each}}`, Context{Data: data})
	assert.Equal(t, "3.5 b [0:a:T][1:b:T!]", out)

	assert.Equal(t, "", render(t, "{{missing.path}}", Context{Data: data}))
}

func TestNestedIndexPath(t *testing.T) {
	data := map[string]any{"rows": []any{[]any{"a", "b"}, []any{"c", "d"}}}
	assert.Equal(t, "[b][c]", render(t, "[{{rows.0.1}}][{{rows.1.0}}]", Context{Data: data}))
}

func TestEachMapAndElse(t *testing.T) {
	data := map[string]any{
		"m":     map[string]any{"b": 2.0, "a": 1.0},
		"empty": []any{},
	}
	out := render(t, `{{#each m}}{{@key}}={{this}};{{/each}}{{#each empty}}x{{else}}none{{/each}}`, Context{Data: data})
	assert.Equal(t, "a=1;b=2;none", out)
}

func TestConditionals(t *testing.T) {
	tpl := `{{#if flag}}yes{{else}}no{{/if}} {{#unless flag}}u{{/unless}} {{#with obj}}{{v}}{{else}}empty{{/with}}`
	assert.Equal(t, "yes  7", render(t, tpl, Context{Data: map[string]any{"flag": true, "obj": map[string]any{"v": 7.0}}}))
	assert.Equal(t, "no u empty", render(t, tpl, Context{Data: map[string]any{"flag": 0.0}}))
}

func TestInlineHelpers(t *testing.T) {
	data := map[string]any{
		"tags": []any{"a", "b", "c", "d"},
		"item": map[string]any{"name": ""},
		"n":    2.0,
	}
	out := render(t, `{{join tags "-" max=3}} {{default (lookup item "name") 'n/a'}} {{#if (eq n 2)}}two{{/if}} {{not n}}`, Context{Data: data})
	assert.Equal(t, "a-b-c n/a two false", out)
}

func TestStyleHelpers(t *testing.T) {
	data := map[string]any{
		"style": map[string]any{
			"textAlign": "center",
			"color":     map[string]any{"r": 1, "g": 2, "b": 3},
		},
	}
	out := render(t, `<p{{designerStyle}}>{{styleProp "textAlign"}}</p>`, Context{Data: data})
	assert.Equal(t, `<p style="color: rgba(1,2,3,1); text-align: center;">text-align: center;</p>`, out)

	assert.Equal(t, "<p></p>", render(t, `<p{{designerStyle style}}></p>`, Context{Data: map[string]any{}}))
}

func TestLayoutVars(t *testing.T) {
	out := render(t, `{{@layout.width}}x{{@layout.height}}`, Context{
		Vars: map[string]any{"layout": map[string]any{"width": 300.0, "height": 20.0}},
	})
	assert.Equal(t, "300x20", out)
}

func TestFragments(t *testing.T) {
	src := `<header>{{#fragment "title"}}Default{{/fragment}}</header>`
	assert.Equal(t, "<header>Default</header>", render(t, src, Context{}))
	assert.Equal(t, "<header><i>Injected</i></header>", render(t, src, Context{
		Fragments: map[string]string{"title": "<i>Injected</i>"},
	}))
}

func TestUnknownHelper(t *testing.T) {
	c := New(Options{})
	for _, src := range []string{"{{shout text}}", "{{#repeat 3}}x{{/repeat}}"} {
		tpl, err := c.Compile("Text", src)
		require.NoError(t, err)
		_, err = tpl.Execute(Context{Data: map[string]any{"text": "x"}})
		var he *HelperError
		require.ErrorAs(t, err, &he, src)
		assert.Equal(t, "Text", he.Template)
		assert.Nil(t, he.Err)
	}
}

func TestSharedSourceKeepsCallerName(t *testing.T) {
	c := New(Options{})
	_, err := c.Compile("First", "{{nope 1}}")
	require.NoError(t, err)
	second, err := c.Compile("Second", "{{nope 1}}")
	require.NoError(t, err)
	_, err = second.Execute(Context{})
	var he *HelperError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, "Second", he.Template)
}

func TestCustomFuncs(t *testing.T) {
	boom := errors.New("boom")
	c := New(Options{Funcs: FuncMap{
		"upper": func(call *Call) (any, error) { return "UP:" + Stringify(call.Arg(0)), nil },
	}})
	tpl, err := c.Compile("Custom", "{{upper name}} {{fail}}")
	require.NoError(t, err)

	_, err = tpl.Execute(Context{
		Data:  map[string]any{"name": "x"},
		Funcs: FuncMap{"fail": func(*Call) (any, error) { return nil, boom }},
	})
	require.ErrorIs(t, err, boom)

	out, err := tpl.Execute(Context{
		Data:  map[string]any{"name": "x"},
		Funcs: FuncMap{"fail": func(*Call) (any, error) { return "ok", nil }},
	})
	require.NoError(t, err)
	assert.Equal(t, "UP:x ok", out)
}

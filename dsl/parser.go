package dsl

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	templateLexer = lexer.MustStateful(lexer.Rules{
		"Root": {
			{Name: "comment", Pattern: `\{\{!--[\s\S]*?--\}\}|\{\{![^}]*\}\}`},
			{Name: "OpenRaw", Pattern: `\{\{\{`, Action: lexer.Push("Tag")},
			{Name: "Open", Pattern: `\{\{`, Action: lexer.Push("Tag")},
			{Name: "Text", Pattern: `[^{]+`},
			{Name: "Brace", Pattern: `\{`},
		},
		"Tag": {
			{Name: "whitespace", Pattern: `\s+`},
			{Name: "CloseRaw", Pattern: `\}\}\}`, Action: lexer.Pop()},
			{Name: "Close", Pattern: `\}\}`, Action: lexer.Pop()},
			{Name: "String", Pattern: `"(?:\\.|[^"\\])*"|'(?:\\.|[^'\\])*'`},
			{Name: "Member", Pattern: `\.(?:[A-Za-z_$][A-Za-z0-9_$-]*|\d+)`},
			{Name: "Number", Pattern: `-?\d+(?:\.\d+)?`},
			{Name: "Keyword", Pattern: `else\b`},
			{Name: "Bool", Pattern: `(?:true|false)\b`},
			{Name: "Ident", Pattern: `@?[A-Za-z_$][A-Za-z0-9_$-]*`},
			{Name: "Punct", Pattern: `[#/=()]`},
		},
	})

	templateParser = participle.MustBuild[Template](
		participle.Lexer(templateLexer),
		participle.Map(trimMember, "Member"),
		participle.UseLookahead(4),
	)
)

// Template is the root AST node of a component template.
type Template struct {
	Nodes []*Node `parser:"@@*"`
}

// Node is one template element: literal text, a block section or a mustache.
type Node struct {
	Pos    lexer.Position `parser:"" json:"-"`
	Text   *string        `parser:"  @(Text | Brace)+"`
	Block  *Block         `parser:"| @@"`
	Raw    *Mustache      `parser:"| OpenRaw @@ CloseRaw"`
	Output *Mustache      `parser:"| Open @@ Close"`
}

// Block is a `{{#name params}}...{{else}}...{{/name}}` section.
type Block struct {
	Pos    lexer.Position `parser:"" json:"-"`
	Name   string         `parser:"Open '#' @Ident"`
	Params []*Param       `parser:"@@* Close"`
	Body   []*Node        `parser:"@@*"`
	Else   []*Node        `parser:"( Open Keyword Close @@* )?"`
	End    string         `parser:"Open '/' @Ident Close"`
}

// Mustache is a value lookup or helper invocation, e.g. `{{name}}` or `{{join items ", "}}`.
type Mustache struct {
	Pos    lexer.Position `parser:"" json:"-"`
	Path   *Path          `parser:"@@"`
	Params []*Param       `parser:"@@*"`
}

// Param is a positional value or a key=value hash argument.
type Param struct {
	Hash  *HashParam `parser:"  @@"`
	Value *Value     `parser:"| @@"`
}

// HashParam captures `key=value`.
type HashParam struct {
	Key   string `parser:"@Ident '='"`
	Value *Value `parser:"@@"`
}

// Value is a literal, a path or a parenthesised sub-expression.
type Value struct {
	String *StringLiteral `parser:"  @String"`
	Number *float64       `parser:"| @Number"`
	Bool   *Boolean       `parser:"| @Bool"`
	Sub    *Mustache      `parser:"| '(' @@ ')'"`
	Path   *Path          `parser:"| @@"`
}

// Path is a dotted property path such as `items.0.name` or `@layout.width`.
type Path struct {
	Segments []string `parser:"@Ident @Member*"`
}

// trimMember drops the leading dot of a `.name` / `.0` path member.
func trimMember(tok lexer.Token) (lexer.Token, error) {
	tok.Value = strings.TrimPrefix(tok.Value, ".")
	return tok, nil
}

// String returns the dotted form of the path.
func (p *Path) String() string {
	if p == nil {
		return ""
	}
	return strings.Join(p.Segments, ".")
}

// Head returns the first segment.
func (p *Path) Head() string {
	if p == nil || len(p.Segments) == 0 {
		return ""
	}
	return p.Segments[0]
}

// StringLiteral unquotes double or single quoted strings on capture.
type StringLiteral string

// Capture implements participle.Capture.
func (s *StringLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("string literal capture requires value")
	}
	raw := values[0]
	if strings.HasPrefix(raw, "'") {
		inner := strings.TrimSuffix(strings.TrimPrefix(raw, "'"), "'")
		*s = StringLiteral(strings.ReplaceAll(inner, `\'`, `'`))
		return nil
	}
	val, err := strconv.Unquote(raw)
	if err != nil {
		return err
	}
	*s = StringLiteral(val)
	return nil
}

// Boolean captures true/false keywords.
type Boolean bool

// Capture implements participle.Capture.
func (b *Boolean) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("bool literal capture requires value")
	}
	*b = Boolean(values[0] == "true")
	return nil
}

// Parse parses template source from an io.Reader. name is used in error positions.
func Parse(name string, r io.Reader) (*Template, error) {
	tpl, err := templateParser.Parse(name, r)
	if err != nil {
		return nil, err
	}
	if err := checkBlocks(tpl.Nodes); err != nil {
		return nil, err
	}
	return tpl, nil
}

// ParseString parses template source from a string.
func ParseString(name, source string) (*Template, error) {
	tpl, err := templateParser.ParseString(name, source)
	if err != nil {
		return nil, err
	}
	if err := checkBlocks(tpl.Nodes); err != nil {
		return nil, err
	}
	return tpl, nil
}

// checkBlocks verifies every `{{#x}}` is closed by a matching `{{/x}}`.
func checkBlocks(nodes []*Node) error {
	for _, n := range nodes {
		if n == nil || n.Block == nil {
			continue
		}
		b := n.Block
		if b.Name != b.End {
			return fmt.Errorf("%s: block %q closed by %q", b.Pos, b.Name, b.End)
		}
		if err := checkBlocks(b.Body); err != nil {
			return err
		}
		if err := checkBlocks(b.Else); err != nil {
			return err
		}
	}
	return nil
}

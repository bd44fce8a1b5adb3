package registry

import (
	"bytes"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jsreport/jsreport-designer-sub001/binding"
)

// Extension is the YAML shape of a declarative extension component.
type Extension struct {
	Name         string                      `yaml:"name"`
	DefaultProps map[string]any              `yaml:"defaultProps"`
	Template     string                      `yaml:"template"`
	Helpers      map[string]string           `yaml:"helpers"`
	PropsMeta    map[string]binding.PropMeta `yaml:"propsMeta"`
}

// ParseExtension decodes one extension document. source names it in errors.
func ParseExtension(data []byte, source string) (Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var ext Extension
	if err := dec.Decode(&ext); err != nil {
		return Definition{}, fmt.Errorf("parse extension %s: %w", source, err)
	}
	if strings.TrimSpace(ext.Name) == "" {
		return Definition{}, fmt.Errorf("%w: %s: name is required", ErrInvalidDefinition, source)
	}
	if strings.TrimSpace(ext.Template) == "" {
		return Definition{}, fmt.Errorf("%w: %s: template is required", ErrInvalidDefinition, source)
	}
	return ext.Definition(), nil
}

// Definition converts the extension into a registry definition. Every
// DefaultProps call returns a deep copy so renders never share nested objects.
func (e Extension) Definition() Definition {
	defaults := e.DefaultProps
	tpl := e.Template
	return Definition{
		Name: e.Name,
		DefaultProps: func() map[string]any {
			out, _ := deepCopy(defaults).(map[string]any)
			if out == nil {
				out = map[string]any{}
			}
			return out
		},
		Template:  func() string { return tpl },
		Helpers:   e.Helpers,
		PropsMeta: e.PropsMeta,
	}
}

// LoadExtensionFile parses and registers a single extension file.
func (r *Registry) LoadExtensionFile(fsys fs.FS, name string) (string, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return "", fmt.Errorf("read extension %s: %w", name, err)
	}
	def, err := ParseExtension(data, name)
	if err != nil {
		return "", err
	}
	if err := r.Register(def); err != nil {
		return "", err
	}
	return def.Name, nil
}

// LoadExtensions registers every *.yaml / *.yml file in dir, in file name order,
// and returns the registered component names.
func (r *Registry) LoadExtensions(fsys fs.FS, dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := fs.Glob(fsys, path.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("scan extensions in %s: %w", dir, err)
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	names := make([]string, 0, len(files))
	for _, file := range files {
		name, err := r.LoadExtensionFile(fsys, file)
		if err != nil {
			return names, err
		}
		names = append(names, name)
	}
	return names, nil
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return v
	}
}

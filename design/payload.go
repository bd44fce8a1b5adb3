package design

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/jsreport/jsreport-designer-sub001/binding"
	"github.com/jsreport/jsreport-designer-sub001/layout"
)

// Payload is a design as produced by the editor: either a flat grid with
// components, or a canvas with groups of items.
type Payload struct {
	Grid       *layout.Grid `json:"grid,omitempty"`
	Components []Instance   `json:"components,omitempty" validate:"dive"`

	Canvas *layout.Grid `json:"canvas,omitempty"`
	Groups []Group      `json:"groups,omitempty" validate:"dive"`
}

// Group is one row group of the grouped payload variant.
type Group struct {
	Items    []Instance `json:"items" validate:"dive"`
	TopSpace float64    `json:"topSpace,omitempty" validate:"gte=0"`
}

// Instance is one placed component.
type Instance struct {
	ID          string                 `json:"id" validate:"required"`
	Type        string                 `json:"componentType" validate:"required"`
	Position    layout.Position        `json:"position"`
	Props       map[string]any         `json:"props,omitempty"`
	Bindings    binding.Bindings       `json:"bindings,omitempty"`
	Expressions binding.ExpressionSets `json:"expressions,omitempty"`
	DefaultSize *layout.Size           `json:"defaultSize,omitempty"`
}

// Grouped reports whether the payload uses the canvas/groups variant.
func (p *Payload) Grouped() bool { return p.Groups != nil || p.Canvas != nil }

// ParsePayload decodes a JSON design and checks its shape: the grid must be an
// object with numeric width and height and components must be an array.
func ParsePayload(data []byte) (*Payload, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &InputError{Field: "payload", Reason: "must be a JSON object", Err: err}
	}

	gridKey, listKey := "grid", "components"
	if _, ok := raw["groups"]; ok {
		gridKey, listKey = "canvas", "groups"
	}
	if err := checkGrid(raw, gridKey); err != nil {
		return nil, err
	}
	if err := checkArray(raw, listKey); err != nil {
		return nil, err
	}

	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		var ute *json.UnmarshalTypeError
		if errors.As(err, &ute) {
			return nil, &InputError{Field: ute.Field, Reason: fmt.Sprintf("must be %s, got %s", ute.Type, ute.Value), Err: err}
		}
		return nil, &InputError{Field: "payload", Reason: err.Error(), Err: err}
	}
	if p.Grouped() && p.Groups == nil {
		p.Groups = []Group{}
	}
	if !p.Grouped() && p.Components == nil {
		p.Components = []Instance{}
	}
	if err := Validate(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

func checkGrid(raw map[string]json.RawMessage, key string) error {
	msg, ok := raw[key]
	if !ok || isNull(msg) {
		return &InputError{Field: key, Reason: "is required"}
	}
	var obj map[string]any
	if err := json.Unmarshal(msg, &obj); err != nil {
		return &InputError{Field: key, Reason: "must be an object", Err: err}
	}
	for _, dim := range []string{"width", "height"} {
		if _, ok := obj[dim].(float64); !ok {
			return &InputError{Field: key + "." + dim, Reason: "must be a number"}
		}
	}
	return nil
}

func checkArray(raw map[string]json.RawMessage, key string) error {
	msg, ok := raw[key]
	if !ok || isNull(msg) {
		return &InputError{Field: key, Reason: "is required"}
	}
	if trimmed := bytes.TrimSpace(msg); len(trimmed) == 0 || trimmed[0] != '[' {
		return &InputError{Field: key, Reason: "must be an array"}
	}
	return nil
}

func isNull(msg json.RawMessage) bool {
	return string(bytes.TrimSpace(msg)) == "null"
}

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		validateInst = v
	})
	return validateInst
}

// Validate checks a payload before any rendering starts. Failures are
// *InputError values naming the offending field.
func Validate(p *Payload) error {
	if p == nil {
		return &InputError{Field: "payload", Reason: "is required"}
	}
	if p.Grouped() {
		if p.Canvas == nil {
			return &InputError{Field: "canvas", Reason: "is required"}
		}
	} else if p.Grid == nil {
		return &InputError{Field: "grid", Reason: "is required"}
	}
	if err := validatorInstance().Struct(p); err != nil {
		var ves validator.ValidationErrors
		if errors.As(err, &ves) {
			fe := ves[0]
			field := strings.TrimPrefix(fe.Namespace(), "Payload.")
			return &InputError{Field: field, Reason: fmt.Sprintf("failed validation for tag '%s'", fe.Tag()), Err: err}
		}
		return &InputError{Field: "payload", Reason: err.Error(), Err: err}
	}
	return nil
}

// normalize flattens the payload into instances in payload order together with
// the grid and the layout groups they belong to.
func (p *Payload) normalize() (layout.Grid, []Instance, []layout.Group) {
	if !p.Grouped() {
		items := make([]layout.Item, len(p.Components))
		for i, inst := range p.Components {
			items[i] = inst.layoutItem(i)
		}
		return *p.Grid, p.Components, layout.GroupInstances(items)
	}

	var instances []Instance
	groups := make([]layout.Group, len(p.Groups))
	for gi, g := range p.Groups {
		groups[gi].Index = gi
		groups[gi].TopSpace = g.TopSpace
		for _, inst := range g.Items {
			groups[gi].Items = append(groups[gi].Items, inst.layoutItem(len(instances)))
			instances = append(instances, inst)
		}
	}
	return *p.Canvas, instances, groups
}

func (inst Instance) layoutItem(index int) layout.Item {
	return layout.Item{
		Index:       index,
		ID:          inst.ID,
		Position:    inst.Position,
		DefaultSize: inst.DefaultSize,
	}
}

// Package filters resolves the active filters of a view from its URL query,
// caller defaults and uncommitted form edits.
package filters

import (
	"errors"
	"fmt"
)

// Kind selects how a field is rendered and how its URL value is interpreted.
type Kind int

const (
	KindText Kind = iota
	KindSelect
	KindCheckbox
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindSelect:
		return "select"
	case KindCheckbox:
		return "checkbox"
	case KindDate:
		return "date"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Option is one choice of a select field.
type Option struct {
	Value string
	Label string
}

// Field describes one filter control. Name doubles as the URL parameter.
type Field struct {
	Name        string
	Kind        Kind
	Label       string
	Placeholder string
	Options     []Option
	Default     *Value
	Disabled    bool
}

// EmptyValue returns the zero value for the field's kind.
func (f Field) EmptyValue() Value {
	if f.Kind == KindCheckbox {
		return Bool(false)
	}
	return String("")
}

// Parse interprets a raw URL value for this field.
func (f Field) Parse(raw string) Value {
	if f.Kind == KindCheckbox {
		return Bool(raw == "true")
	}
	return String(raw)
}

// Registry is the ordered list of fields mounted on a view.
type Registry struct {
	fields []Field
	index  map[string]int
}

// NewRegistry copies fields into a registry. The first field wins when names repeat.
func NewRegistry(fields ...Field) *Registry {
	r := &Registry{
		fields: make([]Field, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	copy(r.fields, fields)
	for i, f := range r.fields {
		if _, exists := r.index[f.Name]; !exists {
			r.index[f.Name] = i
		}
	}
	return r
}

// Field looks a field up by name.
func (r *Registry) Field(name string) (Field, bool) {
	i, ok := r.index[name]
	if !ok {
		return Field{}, false
	}
	return r.fields[i], true
}

// Fields returns the fields in mount order.
func (r *Registry) Fields() []Field {
	return append([]Field(nil), r.fields...)
}

// Names returns the field names in mount order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.fields))
	for _, f := range r.fields {
		names = append(names, f.Name)
	}
	return names
}

// Reinterpret converts decoded query strings back into typed values for the
// registered fields. Unknown keys and empty values are dropped.
func (r *Registry) Reinterpret(raw map[string]string) Values {
	out := make(Values)
	for name, value := range raw {
		f, ok := r.Field(name)
		if !ok {
			continue
		}
		if v := f.Parse(value); !v.Empty() {
			out[name] = v
		}
	}
	return out
}

// reservedParams belong to the pagination adapter.
var reservedParams = map[string]struct{}{"page": {}, "pageSize": {}}

// Validate reports caller mistakes in the field list. Nothing at runtime calls it.
func (r *Registry) Validate() error {
	var errs []error
	seen := make(map[string]struct{}, len(r.fields))
	for _, f := range r.fields {
		if f.Name == "" {
			errs = append(errs, errors.New("filters: field with empty name"))
			continue
		}
		if _, dup := seen[f.Name]; dup {
			errs = append(errs, fmt.Errorf("filters: duplicate field %q", f.Name))
		}
		seen[f.Name] = struct{}{}
		if _, reserved := reservedParams[f.Name]; reserved {
			errs = append(errs, fmt.Errorf("filters: field %q collides with a pagination parameter", f.Name))
		}
		if f.Kind == KindSelect && len(f.Options) == 0 {
			errs = append(errs, fmt.Errorf("filters: select field %q has no options", f.Name))
		}
	}
	return errors.Join(errs...)
}

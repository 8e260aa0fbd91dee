package schema

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// Validator turns a loosely typed field map into a fully populated entity, or
// fails. Fields missing from the map are expected to be filled with defaults.
type Validator[T any] interface {
	Validate(fields map[string]any) (T, error)
}

// ValidatorFunc adapts a plain function to Validator.
type ValidatorFunc[T any] func(fields map[string]any) (T, error)

// Validate calls f(fields).
func (f ValidatorFunc[T]) Validate(fields map[string]any) (T, error) {
	return f(fields)
}

// StructValidator decodes a field map onto a copy of a defaults value and
// checks `validate` struct tags with go-playground/validator.
//
//	type Person struct {
//		ID   string `sheet:"id" validate:"required"`
//		Name string `sheet:"name" validate:"required"`
//		Age  int    `sheet:"age" validate:"gte=0"`
//	}
//	v := schema.NewStructValidator(Person{Age: 18})
type StructValidator[T any] struct {
	defaults T
	validate *validator.Validate
}

// NewStructValidator creates a validator whose absent fields fall back to defaults.
// T must be a struct type.
func NewStructValidator[T any](defaults T) *StructValidator[T] {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get(TagName), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &StructValidator[T]{defaults: defaults, validate: v}
}

// Validate implements Validator.
func (s *StructValidator[T]) Validate(fields map[string]any) (T, error) {
	out := s.defaults

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		TagName:          TagName,
		WeaklyTypedInput: true,
		ZeroFields:       true,
	})
	if err != nil {
		var zero T
		return zero, err
	}
	if err := dec.Decode(fields); err != nil {
		var zero T
		return zero, fmt.Errorf("decode fields: %w", err)
	}

	if err := s.validate.Struct(out); err != nil {
		var zero T
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			return zero, fmt.Errorf("%s", strings.Join(msgs, "; "))
		}
		return zero, err
	}
	return out, nil
}

// MapValidator validates dynamic map entities: required fields must be
// present and non-empty, absent fields take Defaults.
type MapValidator struct {
	Required []string
	Defaults map[string]any
}

// Validate implements Validator for map[string]any entities.
func (m MapValidator) Validate(fields map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(fields)+len(m.Defaults))
	for k, v := range m.Defaults {
		out[k] = v
	}
	for k, v := range fields {
		out[k] = v
	}
	var missing []string
	for _, name := range m.Required {
		v, ok := out[name]
		if !ok || v == nil || v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

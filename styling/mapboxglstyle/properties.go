package mapboxglstyle

import (
	"reflect"
	"sort"

	"github.com/jamesrr39/goutil/errorsx"
)

// GetProperty fetches a paint or layout property by its style name, e.g. "circle-radius".
// An unset property is returned as nil.
func GetProperty(layer Layer, name string) (*Value, errorsx.Error) {
	property, err := findProperty(layer, name)
	if err != nil {
		return nil, err
	}

	switch v := property.value.Interface().(type) {
	case *Value:
		return v, nil
	case Visibility:
		if v == "" {
			return nil, nil
		}
		return Constant(string(v)), nil
	default:
		return nil, errorsx.Errorf("unhandled property type %T for %q", v, name)
	}
}

// SetProperty sets a paint or layout property by its style name. A nil value clears the property.
func SetProperty(layer Layer, name string, value *Value) errorsx.Error {
	property, err := findProperty(layer, name)
	if err != nil {
		return err
	}

	switch property.value.Interface().(type) {
	case *Value:
		property.value.Set(reflect.ValueOf(valueForProperty(name, value)))
	case Visibility:
		if value == nil {
			property.value.Set(reflect.ValueOf(Visibility("")))
			return nil
		}
		s, ok := value.StringConstant()
		if !ok || (Visibility(s) != VisibilityVisible && Visibility(s) != VisibilityNone) {
			return errorsx.Errorf("visibility must be %q or %q", VisibilityVisible, VisibilityNone)
		}
		property.value.Set(reflect.ValueOf(Visibility(s)))
	}

	return nil
}

// PropertyGroup returns "paint" or "layout" for a property of the layer
func PropertyGroup(layer Layer, name string) (string, errorsx.Error) {
	property, err := findProperty(layer, name)
	if err != nil {
		return "", err
	}
	return property.group, nil
}

// PropertyNames lists the paint and layout property names the layer supports, sorted
func PropertyNames(layer Layer) []string {
	var names []string
	for _, property := range layerProperties(layer) {
		names = append(names, property.name)
	}
	sort.Strings(names)
	return names
}

func findProperty(layer Layer, name string) (layerProperty, errorsx.Error) {
	for _, property := range layerProperties(layer) {
		if property.name == name {
			return property, nil
		}
	}
	return layerProperty{}, errorsx.Wrap(ErrUnknownProperty, "property", name, "layerType", layer.Type())
}

// stringArrayProperties take arrays of plain strings, e.g. a font stack
var stringArrayProperties = map[string]bool{
	"text-font":            true,
	"text-variable-anchor": true,
}

// valueForProperty turns a decoded array with an unknown head back into a constant for properties that take string arrays.
// Everywhere else it stays an expression, and fails validation.
func valueForProperty(name string, value *Value) *Value {
	if !stringArrayProperties[name] || !value.IsExpression() || value.Expression.Operator.IsKnown() {
		return value
	}
	return Constant(value.Expression.Wire())
}

// normalizeStringArrays applies valueForProperty to every property of a decoded layer
func normalizeStringArrays(layer Layer) {
	for _, property := range layerProperties(layer) {
		value, ok := property.value.Interface().(*Value)
		if !ok {
			continue
		}
		property.value.Set(reflect.ValueOf(valueForProperty(property.name, value)))
	}
}

package mapboxglstyle

import (
	"encoding/json"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/ownmapstyle/styling/expression"
)

// Value is a paint or layout property value: either a constant, or an expression.
// Legacy function objects ({"base": 1.4, "stops": [[10, 8], [20, 14]]}) are converted to expressions when decoded.
type Value struct {
	Constant   interface{}
	Expression *expression.Expression
}

func Constant(value interface{}) *Value {
	return &Value{Constant: value}
}

func Expr(expr *expression.Expression) *Value {
	return &Value{Expression: expr}
}

func (v *Value) IsExpression() bool {
	return v != nil && v.Expression != nil
}

// Float returns the constant as a number, if it is one
func (v *Value) Float() (float64, bool) {
	if v == nil || v.IsExpression() {
		return 0, false
	}

	switch c := v.Constant.(type) {
	case float64:
		return c, true
	case float32:
		return float64(c), true
	case int:
		return float64(c), true
	case int64:
		return float64(c), true
	default:
		return 0, false
	}
}

func (v *Value) StringConstant() (string, bool) {
	if v == nil || v.IsExpression() {
		return "", false
	}
	s, ok := v.Constant.(string)
	return s, ok
}

// Evaluate resolves the value for a feature and zoom level. A nil value evaluates to nil.
func (v *Value) Evaluate(ctx expression.EvaluationContext) (interface{}, errorsx.Error) {
	if v == nil {
		return nil, nil
	}
	if v.IsExpression() {
		return expression.Evaluate(v.Expression, ctx)
	}
	return v.Constant, nil
}

// Number evaluates the value as a number, returning defaultValue if the value is not set
func (v *Value) Number(ctx expression.EvaluationContext, defaultValue float64) (float64, errorsx.Error) {
	if v == nil {
		return defaultValue, nil
	}

	result, err := v.Evaluate(ctx)
	if err != nil {
		return 0, err
	}

	f, ok := (&Value{Constant: result}).Float()
	if !ok {
		return 0, errorsx.Errorf("expected a number but got %#v", result)
	}
	return f, nil
}

// Color evaluates the value as a colour, returning defaultValue if the value is not set
func (v *Value) Color(ctx expression.EvaluationContext, defaultValue expression.Color) (expression.Color, errorsx.Error) {
	if v == nil {
		return defaultValue, nil
	}

	result, err := v.Evaluate(ctx)
	if err != nil {
		return expression.Color{}, err
	}

	switch c := result.(type) {
	case expression.Color:
		return c, nil
	case string:
		return expression.ParseColor(c)
	default:
		return expression.Color{}, errorsx.Errorf("expected a colour but got %#v", result)
	}
}

// Numbers evaluates the value as an array of numbers, e.g. line-dasharray
func (v *Value) Numbers(ctx expression.EvaluationContext) ([]float64, errorsx.Error) {
	if v == nil {
		return nil, nil
	}

	result, err := v.Evaluate(ctx)
	if err != nil {
		return nil, err
	}

	items, ok := result.([]interface{})
	if !ok {
		return nil, errorsx.Errorf("expected an array but got %#v", result)
	}

	var numbers []float64
	for _, item := range items {
		f, ok := (&Value{Constant: item}).Float()
		if !ok {
			return nil, errorsx.Errorf("expected an array of numbers but got %#v", result)
		}
		numbers = append(numbers, f)
	}
	return numbers, nil
}

func (v *Value) Validate() errorsx.Error {
	if !v.IsExpression() {
		return nil
	}
	return expression.Validate(v.Expression)
}

func (v *Value) MarshalJSON() ([]byte, error) {
	if v.IsExpression() {
		return v.Expression.MarshalJSON()
	}
	return json.Marshal(v.Constant)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}

	// arrays headed by a name are decoded as expressions, even for unknown operators, so validation can reject them.
	// String array properties such as text-font are turned back into constants by the layer.
	if expression.HasOperatorHead(raw) {
		expr, err := expression.FromWire(raw)
		if err != nil {
			return err
		}
		*v = Value{Expression: expr}
		return nil
	}

	if function, ok := raw.(map[string]interface{}); ok {
		if _, hasStops := function["stops"]; hasStops {
			expr := convertFunction(function)
			if expr != nil {
				*v = Value{Expression: expr}
				return nil
			}
		}
	}

	*v = Value{Constant: raw}
	return nil
}

// convertFunction converts a legacy function object into the equivalent expression.
// It returns nil for forms it cannot convert (zoom-and-property functions), which are then kept as constants.
func convertFunction(function map[string]interface{}) *expression.Expression {
	rawStops, ok := function["stops"].([]interface{})
	if !ok || len(rawStops) == 0 {
		return nil
	}

	var stops []expression.Stop
	var labels []interface{}
	hasStringInputs := false
	for _, rawStop := range rawStops {
		pair, ok := rawStop.([]interface{})
		if !ok || len(pair) != 2 {
			return nil
		}
		if _, isObject := pair[0].(map[string]interface{}); isObject {
			// zoom-and-property function
			return nil
		}
		if _, isString := pair[0].(string); isString {
			hasStringInputs = true
		}
		input, _ := pair[0].(float64)
		stops = append(stops, expression.Stop{Input: input, Output: pair[1]})
		labels = append(labels, pair[0])
	}

	var input interface{} = expression.Zoom()
	property, hasProperty := function["property"].(string)
	if hasProperty {
		input = expression.Get(property)
	}

	functionType, _ := function["type"].(string)
	switch {
	case functionType != "":
	case hasStringInputs:
		functionType = "categorical"
	default:
		functionType = defaultFunctionType(stops, hasProperty)
	}

	switch functionType {
	case "exponential":
		var interpolation = expression.Linear()
		base, ok := function["base"].(float64)
		if ok && base != 1 {
			interpolation = expression.Exponential(base)
		}
		return expression.Interpolate(interpolation, input, stops...)
	case "interval":
		return expression.Step(input, stops[0].Output, stops[1:]...)
	case "categorical":
		var cases []expression.MatchCase
		for i, stop := range stops {
			cases = append(cases, expression.MatchCase{Label: labels[i], Output: stop.Output})
		}
		return expression.Match(input, function["default"], cases...)
	default:
		return nil
	}
}

func defaultFunctionType(stops []expression.Stop, hasProperty bool) string {
	for _, stop := range stops {
		switch output := stop.Output.(type) {
		case float64:
		case string:
			_, err := expression.ParseColor(output)
			if err != nil {
				if hasProperty {
					return "categorical"
				}
				return "interval"
			}
		default:
			return "interval"
		}
	}
	return "exponential"
}

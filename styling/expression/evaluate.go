package expression

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/paulmach/orb/geojson"
)

// EvaluationContext is the feature and camera state an expression is evaluated against.
// Feature may be nil, for example when evaluating paint properties of a background layer.
type EvaluationContext struct {
	Zoom    float64
	Feature *geojson.Feature
}

func Evaluate(expr *Expression, ctx EvaluationContext) (interface{}, errorsx.Error) {
	e := &evaluator{ctx: ctx}
	return e.eval(expr)
}

// EvaluateValue evaluates value if it is an expression, and returns it unchanged otherwise
func EvaluateValue(value interface{}, ctx EvaluationContext) (interface{}, errorsx.Error) {
	expr, ok := value.(*Expression)
	if !ok {
		return value, nil
	}
	return Evaluate(expr, ctx)
}

// EvaluateFilter evaluates a layer filter. Both expression filters and legacy filters
// (["==", "class", "park"], ["in", "$type", "Polygon"]) are accepted. A nil filter matches everything.
func EvaluateFilter(filter *Expression, ctx EvaluationContext) (bool, errorsx.Error) {
	if filter == nil {
		return true, nil
	}

	result, err := Evaluate(upgradeLegacyFilter(filter), ctx)
	if err != nil {
		return false, err
	}

	return isTruthy(result), nil
}

func upgradeLegacyFilter(filter *Expression) *Expression {
	operands := filter.Operands
	if len(operands) == 0 {
		return filter
	}

	switch filter.Operator {
	case OperatorAll, OperatorAny, OperatorNot, OperatorLegacyNone:
		upgraded := make([]interface{}, len(operands))
		for i, operand := range operands {
			if sub, ok := operand.(*Expression); ok {
				upgraded[i] = upgradeLegacyFilter(sub)
				continue
			}
			upgraded[i] = operand
		}
		if filter.Operator == OperatorLegacyNone {
			return Not(Any(upgraded...))
		}
		return New(filter.Operator, upgraded...)
	case OperatorEquals, OperatorNotEqual, OperatorLessThan, OperatorLessThanOrEqual, OperatorGreaterThan, OperatorGreaterThanOrEqual:
		key, ok := operands[0].(string)
		if !ok || len(operands) != 2 {
			return filter
		}
		return New(filter.Operator, legacyKeyLookup(key), operands[1])
	case OperatorIn, OperatorLegacyNotIn:
		key, ok := operands[0].(string)
		if !ok {
			return filter
		}
		if len(operands) == 2 {
			if _, isExpr := operands[1].(*Expression); isExpr {
				return filter
			}
		}
		var comparisons []interface{}
		for _, value := range operands[1:] {
			comparisons = append(comparisons, Eq(legacyKeyLookup(key), value))
		}
		if filter.Operator == OperatorLegacyNotIn {
			return Not(Any(comparisons...))
		}
		return Any(comparisons...)
	case OperatorLegacyNotHas:
		return Not(New(OperatorHas, operands...))
	default:
		return filter
	}
}

func legacyKeyLookup(key string) *Expression {
	switch key {
	case "$type":
		return GeometryType()
	case "$id":
		return ID()
	default:
		return Get(key)
	}
}

type evaluator struct {
	ctx    EvaluationContext
	scopes []map[string]interface{}
}

func (e *evaluator) evalOperand(operand interface{}) (interface{}, errorsx.Error) {
	switch v := operand.(type) {
	case *Expression:
		return e.eval(v)
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float32:
		return float64(v), nil
	default:
		return v, nil
	}
}

func (e *evaluator) evalNumber(operand interface{}, operator Operator) (float64, errorsx.Error) {
	value, err := e.evalOperand(operand)
	if err != nil {
		return 0, err
	}
	f, ok := toFloat(value)
	if !ok {
		return 0, errorsx.Errorf("%q: expected a number but got %#v", operator, value)
	}
	return f, nil
}

func (e *evaluator) evalString(operand interface{}, operator Operator) (string, errorsx.Error) {
	value, err := e.evalOperand(operand)
	if err != nil {
		return "", err
	}
	s, ok := value.(string)
	if !ok {
		return "", errorsx.Errorf("%q: expected a string but got %#v", operator, value)
	}
	return s, nil
}

func (e *evaluator) properties() map[string]interface{} {
	if e.ctx.Feature == nil {
		return nil
	}
	return e.ctx.Feature.Properties
}

func (e *evaluator) eval(expr *Expression) (interface{}, errorsx.Error) {
	if expr == nil {
		return nil, errorsx.Wrap(ErrMalformed, "reason", "nil expression")
	}

	operands := expr.Operands
	arities, ok := operatorArities[expr.Operator]
	if !ok {
		return nil, malformed("$", expr.Operator, "unknown operator")
	}
	if len(operands) < arities.min || (arities.max != unbounded && len(operands) > arities.max) {
		return nil, malformed("$", expr.Operator, "expected "+arities.String()+" operands")
	}

	switch expr.Operator {
	case OperatorLiteral:
		return operands[0], nil
	case OperatorZoom:
		return e.ctx.Zoom, nil
	case OperatorID:
		if e.ctx.Feature == nil {
			return nil, nil
		}
		return e.ctx.Feature.ID, nil
	case OperatorGeometryType:
		if e.ctx.Feature == nil || e.ctx.Feature.Geometry == nil {
			return nil, nil
		}
		return strings.TrimPrefix(e.ctx.Feature.Geometry.GeoJSONType(), "Multi"), nil
	case OperatorProperties:
		return e.properties(), nil
	case OperatorGet, OperatorHas:
		return e.evalLookup(expr)
	case OperatorLegacyNotHas:
		found, err := e.evalLookup(New(OperatorHas, operands...))
		if err != nil {
			return nil, err
		}
		return !found.(bool), nil
	case OperatorAt:
		index, err := e.evalNumber(operands[0], expr.Operator)
		if err != nil {
			return nil, err
		}
		value, err := e.evalOperand(operands[1])
		if err != nil {
			return nil, err
		}
		arr, ok := value.([]interface{})
		if !ok {
			return nil, errorsx.Errorf("%q: expected an array but got %#v", expr.Operator, value)
		}
		if index < 0 || int(index) >= len(arr) {
			return nil, errorsx.Errorf("%q: index %v out of bounds (length %d)", expr.Operator, index, len(arr))
		}
		return arr[int(index)], nil
	case OperatorIn, OperatorLegacyNotIn:
		upgraded := upgradeLegacyFilter(expr)
		if upgraded != expr {
			return e.eval(upgraded)
		}
		return e.evalIn(operands)
	case OperatorLength:
		value, err := e.evalOperand(operands[0])
		if err != nil {
			return nil, err
		}
		switch v := value.(type) {
		case string:
			return float64(len([]rune(v))), nil
		case []interface{}:
			return float64(len(v)), nil
		default:
			return nil, errorsx.Errorf("%q: expected a string or array but got %#v", expr.Operator, value)
		}
	case OperatorEquals, OperatorNotEqual:
		a, b, err := e.evalPair(operands)
		if err != nil {
			return nil, err
		}
		equal := valuesEqual(a, b)
		if expr.Operator == OperatorNotEqual {
			return !equal, nil
		}
		return equal, nil
	case OperatorLessThan, OperatorLessThanOrEqual, OperatorGreaterThan, OperatorGreaterThanOrEqual:
		a, b, err := e.evalPair(operands)
		if err != nil {
			return nil, err
		}
		return compareOrdered(expr.Operator, a, b)
	case OperatorAll:
		for _, operand := range operands {
			value, err := e.evalOperand(operand)
			if err != nil {
				return nil, err
			}
			if !isTruthy(value) {
				return false, nil
			}
		}
		return true, nil
	case OperatorAny:
		for _, operand := range operands {
			value, err := e.evalOperand(operand)
			if err != nil {
				return nil, err
			}
			if isTruthy(value) {
				return true, nil
			}
		}
		return false, nil
	case OperatorLegacyNone:
		for _, operand := range operands {
			if sub, ok := operand.(*Expression); ok {
				operand = upgradeLegacyFilter(sub)
			}
			value, err := e.evalOperand(operand)
			if err != nil {
				return nil, err
			}
			if isTruthy(value) {
				return false, nil
			}
		}
		return true, nil
	case OperatorNot:
		value, err := e.evalOperand(operands[0])
		if err != nil {
			return nil, err
		}
		return !isTruthy(value), nil
	case OperatorCase:
		for i := 0; i+1 < len(operands); i += 2 {
			condition, err := e.evalOperand(operands[i])
			if err != nil {
				return nil, err
			}
			if isTruthy(condition) {
				return e.evalOperand(operands[i+1])
			}
		}
		return e.evalOperand(operands[len(operands)-1])
	case OperatorMatch:
		return e.evalMatch(operands)
	case OperatorCoalesce:
		for _, operand := range operands {
			value, err := e.evalOperand(operand)
			if err != nil {
				return nil, err
			}
			if value != nil {
				return value, nil
			}
		}
		return nil, nil
	case OperatorInterpolate:
		return e.evalInterpolate(operands)
	case OperatorStep:
		return e.evalStep(operands)
	case OperatorAdd, OperatorMultiply:
		var result float64
		if expr.Operator == OperatorMultiply {
			result = 1
		}
		for _, operand := range operands {
			f, err := e.evalNumber(operand, expr.Operator)
			if err != nil {
				return nil, err
			}
			if expr.Operator == OperatorAdd {
				result += f
			} else {
				result *= f
			}
		}
		return result, nil
	case OperatorSubtract:
		a, err := e.evalNumber(operands[0], expr.Operator)
		if err != nil {
			return nil, err
		}
		if len(operands) == 1 {
			return -a, nil
		}
		b, err := e.evalNumber(operands[1], expr.Operator)
		if err != nil {
			return nil, err
		}
		return a - b, nil
	case OperatorDivide, OperatorMod, OperatorPow:
		a, err := e.evalNumber(operands[0], expr.Operator)
		if err != nil {
			return nil, err
		}
		b, err := e.evalNumber(operands[1], expr.Operator)
		if err != nil {
			return nil, err
		}
		switch expr.Operator {
		case OperatorDivide:
			return a / b, nil
		case OperatorMod:
			return math.Mod(a, b), nil
		default:
			return math.Pow(a, b), nil
		}
	case OperatorToString:
		value, err := e.evalOperand(operands[0])
		if err != nil {
			return nil, err
		}
		return stringify(value), nil
	case OperatorToNumber:
		for _, operand := range operands {
			value, err := e.evalOperand(operand)
			if err != nil {
				return nil, err
			}
			f, ok := coerceNumber(value)
			if ok {
				return f, nil
			}
		}
		return nil, errorsx.Errorf("%q: no operand could be converted to a number", expr.Operator)
	case OperatorToBoolean:
		value, err := e.evalOperand(operands[0])
		if err != nil {
			return nil, err
		}
		return isTruthy(value), nil
	case OperatorToColor:
		for _, operand := range operands {
			value, err := e.evalOperand(operand)
			if err != nil {
				return nil, err
			}
			c, ok := coerceColor(value)
			if ok {
				return c, nil
			}
		}
		return nil, errorsx.Errorf("%q: no operand could be converted to a color", expr.Operator)
	case OperatorRGB, OperatorRGBA:
		var components []float64
		for _, operand := range operands {
			f, err := e.evalNumber(operand, expr.Operator)
			if err != nil {
				return nil, err
			}
			components = append(components, f)
		}
		c := Color{
			R: uint8(clamp(components[0], 0, 255)),
			G: uint8(clamp(components[1], 0, 255)),
			B: uint8(clamp(components[2], 0, 255)),
			A: 1,
		}
		if len(components) == 4 {
			c.A = clamp(components[3], 0, 1)
		}
		return c, nil
	case OperatorConcat:
		var sb strings.Builder
		for _, operand := range operands {
			value, err := e.evalOperand(operand)
			if err != nil {
				return nil, err
			}
			sb.WriteString(stringify(value))
		}
		return sb.String(), nil
	case OperatorFormat:
		// rendered as plain text; section options only affect styling
		var sb strings.Builder
		for i := 0; i < len(operands); i += 2 {
			value, err := e.evalOperand(operands[i])
			if err != nil {
				return nil, err
			}
			sb.WriteString(stringify(value))
		}
		return sb.String(), nil
	case OperatorLet:
		scope := make(map[string]interface{})
		for i := 0; i+1 < len(operands); i += 2 {
			name, ok := operands[i].(string)
			if !ok {
				return nil, malformed("$", expr.Operator, "variable name must be a string")
			}
			value, err := e.evalOperand(operands[i+1])
			if err != nil {
				return nil, err
			}
			scope[name] = value
		}
		e.scopes = append(e.scopes, scope)
		defer func() {
			e.scopes = e.scopes[:len(e.scopes)-1]
		}()
		return e.evalOperand(operands[len(operands)-1])
	case OperatorVar:
		name, ok := operands[0].(string)
		if !ok {
			return nil, malformed("$", expr.Operator, "variable name must be a string")
		}
		for i := len(e.scopes) - 1; i >= 0; i-- {
			value, ok := e.scopes[i][name]
			if ok {
				return value, nil
			}
		}
		return nil, errorsx.Errorf("unknown variable %q", name)
	case OperatorLinear, OperatorExponential, OperatorCubicBezier:
		return nil, malformed("$", expr.Operator, "interpolation types are only valid inside interpolate")
	default:
		return nil, errorsx.Errorf("evaluation of operator %q is not supported", expr.Operator)
	}
}

func (e *evaluator) evalPair(operands []interface{}) (interface{}, interface{}, errorsx.Error) {
	a, err := e.evalOperand(operands[0])
	if err != nil {
		return nil, nil, err
	}
	b, err := e.evalOperand(operands[1])
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func (e *evaluator) evalLookup(expr *Expression) (interface{}, errorsx.Error) {
	name, err := e.evalString(expr.Operands[0], expr.Operator)
	if err != nil {
		return nil, err
	}

	object := e.properties()
	if len(expr.Operands) == 2 {
		value, err := e.evalOperand(expr.Operands[1])
		if err != nil {
			return nil, err
		}
		m, ok := value.(map[string]interface{})
		if !ok {
			return nil, errorsx.Errorf("%q: expected an object but got %#v", expr.Operator, value)
		}
		object = m
	}

	value, found := object[name]
	if expr.Operator == OperatorHas {
		return found, nil
	}
	return value, nil
}

func (e *evaluator) evalIn(operands []interface{}) (interface{}, errorsx.Error) {
	needle, haystack, err := e.evalPair(operands)
	if err != nil {
		return nil, err
	}

	switch v := haystack.(type) {
	case string:
		s, ok := needle.(string)
		if !ok {
			return nil, errorsx.Errorf("%q: expected a string needle but got %#v", OperatorIn, needle)
		}
		return strings.Contains(v, s), nil
	case []interface{}:
		for _, item := range v {
			if valuesEqual(needle, item) {
				return true, nil
			}
		}
		return false, nil
	default:
		return nil, errorsx.Errorf("%q: expected a string or array haystack but got %#v", OperatorIn, haystack)
	}
}

func (e *evaluator) evalMatch(operands []interface{}) (interface{}, errorsx.Error) {
	input, err := e.evalOperand(operands[0])
	if err != nil {
		return nil, err
	}

	for i := 1; i < len(operands)-1; i += 2 {
		if matchesLabel(input, operands[i]) {
			return e.evalOperand(operands[i+1])
		}
	}

	return e.evalOperand(operands[len(operands)-1])
}

func matchesLabel(input, label interface{}) bool {
	labels, ok := label.([]interface{})
	if !ok {
		return valuesEqual(input, label)
	}
	for _, l := range labels {
		if valuesEqual(input, l) {
			return true
		}
	}
	return false
}

func (e *evaluator) evalStep(operands []interface{}) (interface{}, errorsx.Error) {
	input, err := e.evalNumber(operands[0], OperatorStep)
	if err != nil {
		return nil, err
	}

	output := operands[1]
	for i := 2; i+1 < len(operands); i += 2 {
		stop, ok := toFloat(operands[i])
		if !ok {
			return nil, malformed("$", OperatorStep, "stop input must be a number literal")
		}
		if input < stop {
			break
		}
		output = operands[i+1]
	}

	return e.evalOperand(output)
}

func (e *evaluator) evalInterpolate(operands []interface{}) (interface{}, errorsx.Error) {
	interpolation, ok := operands[0].(*Expression)
	if !ok {
		return nil, malformed("$", OperatorInterpolate, "first operand must be an interpolation type")
	}

	input, err := e.evalNumber(operands[1], OperatorInterpolate)
	if err != nil {
		return nil, err
	}

	type stop struct {
		input  float64
		output interface{}
	}
	var stops []stop
	for i := 2; i+1 < len(operands); i += 2 {
		stopInput, ok := toFloat(operands[i])
		if !ok {
			return nil, malformed("$", OperatorInterpolate, "stop input must be a number literal")
		}
		stops = append(stops, stop{stopInput, operands[i+1]})
	}

	if len(stops) == 0 {
		return nil, malformed("$", OperatorInterpolate, "no stops")
	}

	if input <= stops[0].input {
		return e.evalOperand(stops[0].output)
	}
	last := stops[len(stops)-1]
	if input >= last.input {
		return e.evalOperand(last.output)
	}

	var lower, upper stop
	for i := 1; i < len(stops); i++ {
		if input < stops[i].input {
			lower, upper = stops[i-1], stops[i]
			break
		}
	}

	t, err := e.interpolationFactor(interpolation, input, lower.input, upper.input)
	if err != nil {
		return nil, err
	}

	lowerValue, err := e.evalOperand(lower.output)
	if err != nil {
		return nil, err
	}
	upperValue, err := e.evalOperand(upper.output)
	if err != nil {
		return nil, err
	}

	return interpolateValues(lowerValue, upperValue, t)
}

func (e *evaluator) interpolationFactor(interpolation *Expression, input, lower, upper float64) (float64, errorsx.Error) {
	span := upper - lower
	progress := input - lower
	if span == 0 {
		return 0, nil
	}

	switch interpolation.Operator {
	case OperatorLinear:
		return progress / span, nil
	case OperatorExponential:
		base, err := e.evalNumber(interpolation.Operands[0], OperatorExponential)
		if err != nil {
			return 0, err
		}
		if base == 1 {
			return progress / span, nil
		}
		return (math.Pow(base, progress) - 1) / (math.Pow(base, span) - 1), nil
	case OperatorCubicBezier:
		var controlPoints [4]float64
		for i := range controlPoints {
			f, err := e.evalNumber(interpolation.Operands[i], OperatorCubicBezier)
			if err != nil {
				return 0, err
			}
			controlPoints[i] = f
		}
		return solveCubicBezier(controlPoints, progress/span), nil
	default:
		return 0, malformed("$", OperatorInterpolate, "unknown interpolation type "+string(interpolation.Operator))
	}
}

// solveCubicBezier finds y for x on the curve through (0,0), (x1,y1), (x2,y2), (1,1) by bisection
func solveCubicBezier(controlPoints [4]float64, x float64) float64 {
	x1, y1, x2, y2 := controlPoints[0], controlPoints[1], controlPoints[2], controlPoints[3]

	bezier := func(t, p1, p2 float64) float64 {
		mt := 1 - t
		return 3*mt*mt*t*p1 + 3*mt*t*t*p2 + t*t*t
	}

	lo, hi := 0.0, 1.0
	t := x
	for i := 0; i < 50; i++ {
		t = (lo + hi) / 2
		bx := bezier(t, x1, x2)
		if math.Abs(bx-x) < 1e-7 {
			break
		}
		if bx < x {
			lo = t
		} else {
			hi = t
		}
	}

	return bezier(t, y1, y2)
}

func interpolateValues(lower, upper interface{}, t float64) (interface{}, errorsx.Error) {
	if a, ok := toFloat(lower); ok {
		b, ok := toFloat(upper)
		if !ok {
			return nil, errorsx.Errorf("cannot interpolate between %#v and %#v", lower, upper)
		}
		return a + (b-a)*t, nil
	}

	if a, ok := coerceColor(lower); ok {
		b, ok := coerceColor(upper)
		if !ok {
			return nil, errorsx.Errorf("cannot interpolate between %#v and %#v", lower, upper)
		}
		return Color{
			R: uint8(math.Round(float64(a.R) + (float64(b.R)-float64(a.R))*t)),
			G: uint8(math.Round(float64(a.G) + (float64(b.G)-float64(a.G))*t)),
			B: uint8(math.Round(float64(a.B) + (float64(b.B)-float64(a.B))*t)),
			A: a.A + (b.A-a.A)*t,
		}, nil
	}

	if a, ok := lower.([]interface{}); ok {
		b, ok := upper.([]interface{})
		if !ok || len(a) != len(b) {
			return nil, errorsx.Errorf("cannot interpolate between %#v and %#v", lower, upper)
		}
		result := make([]interface{}, len(a))
		for i := range a {
			value, err := interpolateValues(a[i], b[i], t)
			if err != nil {
				return nil, err
			}
			result[i] = value
		}
		return result, nil
	}

	return nil, errorsx.Errorf("cannot interpolate between %#v and %#v", lower, upper)
}

func compareOrdered(operator Operator, a, b interface{}) (bool, errorsx.Error) {
	var cmp int
	af, aIsNumber := toFloat(a)
	bf, bIsNumber := toFloat(b)
	as, aIsString := a.(string)
	bs, bIsString := b.(string)

	switch {
	case aIsNumber && bIsNumber:
		switch {
		case af < bf:
			cmp = -1
		case af > bf:
			cmp = 1
		}
	case aIsString && bIsString:
		cmp = strings.Compare(as, bs)
	default:
		// mismatched or missing values never satisfy an ordering
		return false, nil
	}

	switch operator {
	case OperatorLessThan:
		return cmp < 0, nil
	case OperatorLessThanOrEqual:
		return cmp <= 0, nil
	case OperatorGreaterThan:
		return cmp > 0, nil
	case OperatorGreaterThanOrEqual:
		return cmp >= 0, nil
	default:
		return false, errorsx.Errorf("%q is not an ordering operator", operator)
	}
}

func valuesEqual(a, b interface{}) bool {
	af, aIsNumber := toFloat(a)
	bf, bIsNumber := toFloat(b)
	if aIsNumber && bIsNumber {
		return af == bf
	}
	if aIsNumber != bIsNumber {
		return false
	}
	return reflect.DeepEqual(a, b)
}

func isTruthy(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	default:
		f, ok := toFloat(v)
		if ok {
			return f != 0 && !math.IsNaN(f)
		}
		return true
	}
}

func stringify(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case Color:
		return v.String()
	default:
		f, ok := toFloat(v)
		if ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		b, err := json.Marshal(operandToWire(v))
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func coerceNumber(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case nil:
		return 0, true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return toFloat(v)
	}
}

func coerceColor(value interface{}) (Color, bool) {
	switch v := value.(type) {
	case Color:
		return v, true
	case string:
		c, err := ParseColor(v)
		return c, err == nil
	default:
		return Color{}, false
	}
}
